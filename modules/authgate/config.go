package authgate

import "time"

// Config holds auth gateway settings loaded from the environment.
type Config struct {
	// LandingPath is where the browser lands after a successful login.
	LandingPath string `env:"AUTH_LANDING_PATH" envDefault:"/"`

	// FailurePath receives failed logins with a coarse reason code.
	FailurePath string `env:"AUTH_FAILURE_PATH" envDefault:"/login-failed"`

	// StateTTL bounds the anti-forgery nonce between /login and /callback.
	StateTTL time.Duration `env:"AUTH_STATE_TTL" envDefault:"10m"`

	// StateCookieName carries the cookie copy of the state nonce.
	StateCookieName string `env:"AUTH_STATE_COOKIE" envDefault:"gh_state"`

	// IdentityCookieName carries the signed identity cookie.
	IdentityCookieName string `env:"AUTH_IDENTITY_COOKIE" envDefault:"gh_uid"`

	// IdentityCookieTTL is deliberately long: the identity cookie is
	// the fallback for clients whose sessions do not survive.
	IdentityCookieTTL time.Duration `env:"AUTH_IDENTITY_COOKIE_TTL" envDefault:"168h"`

	// TokenCookieName carries the direct token value.
	TokenCookieName string `env:"AUTH_TOKEN_COOKIE" envDefault:"gh_tok"`

	// DirectTokenTTL bounds direct tokens; extended on verified use.
	DirectTokenTTL time.Duration `env:"AUTH_DIRECT_TOKEN_TTL" envDefault:"168h"`

	// MarkerCookieName is the short-lived "just authenticated" marker
	// that gates the URL recovery parameter.
	MarkerCookieName string `env:"AUTH_MARKER_COOKIE" envDefault:"gh_fresh"`

	// MarkerTTL bounds the recovery window after a callback. Kept to
	// minutes: the recovery parameter must never become standing auth.
	MarkerTTL time.Duration `env:"AUTH_MARKER_TTL" envDefault:"2m"`

	// RecoveryParam is the query parameter carrying the recovery id.
	RecoveryParam string `env:"AUTH_RECOVERY_PARAM" envDefault:"uid"`

	// SecureCookies enables the Secure flag on all gateway cookies.
	SecureCookies bool `env:"AUTH_SECURE_COOKIES" envDefault:"false"`

	// RelaxedState downgrades a state mismatch to a logged warning.
	// Debug aid only; must never be enabled in production.
	RelaxedState bool `env:"AUTH_RELAXED_STATE" envDefault:"false"`
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() Config {
	return Config{
		LandingPath:        "/",
		FailurePath:        "/login-failed",
		StateTTL:           10 * time.Minute,
		StateCookieName:    "gh_state",
		IdentityCookieName: "gh_uid",
		IdentityCookieTTL:  7 * 24 * time.Hour,
		TokenCookieName:    "gh_tok",
		DirectTokenTTL:     7 * 24 * time.Hour,
		MarkerCookieName:   "gh_fresh",
		MarkerTTL:          2 * time.Minute,
		RecoveryParam:      "uid",
	}
}
