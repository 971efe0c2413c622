package session

import "time"

// Config holds session behavior settings.
type Config struct {
	// CookieName is the name of the session cookie.
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"gh_sid"`

	// AnonTTL bounds sessions that are not bound to a user yet
	// (e.g. a login attempt carrying only the state nonce).
	AnonTTL time.Duration `env:"SESSION_ANON_TTL" envDefault:"30m"`

	// AuthTTL bounds authenticated sessions.
	AuthTTL time.Duration `env:"SESSION_AUTH_TTL" envDefault:"720h"`

	// CleanupInterval for expired sessions in the memory store (0 disables).
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"5m"`

	// SecureCookies enables the Secure flag on the session cookie.
	SecureCookies bool `env:"SESSION_SECURE_COOKIES" envDefault:"false"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		CookieName:      "gh_sid",
		AnonTTL:         30 * time.Minute,
		AuthTTL:         30 * 24 * time.Hour,
		CleanupInterval: 5 * time.Minute,
	}
}

// TTL returns the session lifetime for the given authentication state.
func (c Config) TTL(authenticated bool) time.Duration {
	if authenticated {
		return c.AuthTTL
	}
	return c.AnonTTL
}
