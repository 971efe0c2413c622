package battlenet

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSubject indicates the userinfo document carried no usable
	// account identifier under any known key.
	ErrNoSubject = errors.New("battlenet.no_subject")
)

// ProviderError describes a failed interaction with the Battle.net API.
// Transient errors (network, 5xx) are safe to retry by re-initiating the
// login flow; permanent errors (invalid_grant, expired code) must not be
// retried with the same authorization code.
type ProviderError struct {
	Op         string
	StatusCode int
	Code       string // OAuth error code when the provider supplied one
	Transient  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("battlenet: %s failed: %s (status %d)", e.Op, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("battlenet: %s failed (status %d)", e.Op, e.StatusCode)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a provider error worth retrying
// through a fresh login attempt.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}

// IsAuthRejected reports whether the provider refused the credential
// itself (expired or revoked access token).
func IsAuthRejected(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && (pe.StatusCode == 401 || pe.StatusCode == 403)
}
