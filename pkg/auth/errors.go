package auth

import "errors"

// User and resolution errors
var (
	ErrUserNotFound    = errors.New("auth.user_not_found")
	ErrProviderIDTaken = errors.New("auth.provider_id_taken")
	ErrResolveConflict = errors.New("auth.resolve_conflict")
	ErrNoSubject       = errors.New("auth.profile_missing_subject")
)

// Token lifecycle errors
var (
	// ErrReauthRequired indicates the provider rejected the stored
	// access token; the user must go through the login flow again.
	ErrReauthRequired = errors.New("auth.reauth_required")

	ErrTokenNotFound   = errors.New("auth.token_not_found")
	ErrTokenGeneration = errors.New("auth.token_generation_failed")
)
