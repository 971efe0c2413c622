package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

// DirectToken is a session-independent proof of identity for clients
// whose session storage cannot be relied on across the OAuth round
// trip. The value is high-entropy random data, never derived from
// session ids or timestamps.
type DirectToken struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the token has passed its expiry.
func (t *DirectToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// NewDirectToken mints a token for the user with the given TTL.
func NewDirectToken(userID int64, ttl time.Duration) (*DirectToken, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, errors.Join(ErrTokenGeneration, err)
	}

	now := time.Now()
	return &DirectToken{
		Token:     base64.RawURLEncoding.EncodeToString(b),
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}
