package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/emberwake/guildhall/pkg/cookie"
)

// Manager ties a Store to a signed-cookie transport. The cookie carries
// only the opaque session token; all session contents stay server-side.
type Manager struct {
	store   Store
	cookies *cookie.Manager
	config  Config
}

// NewManager creates a session manager. The cookie manager is required:
// an unsigned session cookie would let clients mint their own tokens'
// container cookie and probe the store.
func NewManager(store Store, cookies *cookie.Manager, cfg Config) *Manager {
	if store == nil {
		store = NewMemoryStore(cfg.CleanupInterval)
	}
	if cookies == nil {
		panic("session: cookie manager is required")
	}
	return &Manager{store: store, cookies: cookies, config: cfg}
}

// Get retrieves the session referenced by the request cookie.
func (m *Manager) Get(ctx context.Context, r *http.Request) (*Session, error) {
	token, err := m.cookies.GetSigned(r, m.config.CookieName)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	return m.store.Get(ctx, token)
}

// Ensure returns the request's session, creating an anonymous one if
// none exists or the existing one is invalid.
func (m *Manager) Ensure(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	if session, err := m.Get(ctx, r); err == nil {
		return session, nil
	}

	session, err := m.create(ctx, nil)
	if err != nil {
		return nil, err
	}
	if err := m.setCookie(w, session); err != nil {
		_ = m.store.Delete(ctx, session.Token)
		return nil, err
	}
	return session, nil
}

// Authenticate binds the request's session to a user, rotating the
// token so a pre-login token cannot be replayed post-login.
func (m *Manager) Authenticate(ctx context.Context, w http.ResponseWriter, r *http.Request, userID int64) error {
	session, err := m.Get(ctx, r)
	if err != nil {
		session, err = m.create(ctx, &userID)
		if err != nil {
			return err
		}
		return m.setCookie(w, session)
	}

	newToken, err := generateToken()
	if err != nil {
		return err
	}

	_ = m.store.Delete(ctx, session.Token)

	// The authenticated TTL starts now, not at the anonymous session's
	// creation; an aged anonymous session must not shorten the login.
	session.Token = newToken
	session.UserID = &userID
	session.ExpiresAt = time.Now().Add(m.config.TTL(true))

	if err := m.store.Create(ctx, session); err != nil {
		return err
	}
	return m.setCookie(w, session)
}

// Update persists modified session data.
func (m *Manager) Update(ctx context.Context, session *Session) error {
	return m.store.Update(ctx, session)
}

// Destroy deletes the session record and expires the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var storeErr error
	if token, err := m.cookies.GetSigned(r, m.config.CookieName); err == nil && token != "" {
		storeErr = m.store.Delete(ctx, token)
	}
	m.cookies.Delete(w, m.config.CookieName)
	return storeErr
}

// DestroyByUserID deletes every session bound to the user.
func (m *Manager) DestroyByUserID(ctx context.Context, userID int64) error {
	return m.store.DeleteByUserID(ctx, userID)
}

func (m *Manager) create(ctx context.Context, userID *int64) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	session := NewSession(token, userID, m.config.TTL(userID != nil))
	if err := m.store.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (m *Manager) setCookie(w http.ResponseWriter, session *Session) error {
	opts := []cookie.Option{
		cookie.WithMaxAge(int(m.config.TTL(session.IsAuthenticated()).Seconds())),
		cookie.WithHTTPOnly(true),
		cookie.WithSameSite(http.SameSiteLaxMode),
	}
	if m.config.SecureCookies {
		opts = append(opts, cookie.WithSecure(true))
	}
	m.cookies.SetSigned(w, m.config.CookieName, session.Token, opts...)
	return nil
}

// generateToken creates a cryptographically secure session token.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
