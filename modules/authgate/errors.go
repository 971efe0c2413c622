package authgate

import "errors"

var (
	// ErrAnonymous indicates no identity channel produced a user.
	ErrAnonymous = errors.New("authgate.anonymous")

	// ErrStateInvalid indicates an expired, mismatched, or replayed
	// state nonce. Recoverable by re-initiating login.
	ErrStateInvalid = errors.New("authgate.state_invalid")

	// ErrBindFailed indicates no identity channel accepted the write.
	ErrBindFailed = errors.New("authgate.bind_failed")
)

// Coarse failure reason codes surfaced to the browser. Raw provider
// error text never leaves the server.
const (
	ReasonNoCode        = "no_code"
	ReasonStateMismatch = "state_mismatch"
	ReasonProviderError = "provider_error"
	ReasonResolveFailed = "resolve_failed"
)
