package authgate

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/emberwake/guildhall/pkg/cookie"
	"github.com/emberwake/guildhall/pkg/logger"
	"github.com/emberwake/guildhall/pkg/session"
)

const stateSessionKey = "auth_state"

// stateRecord is the persisted form of an issued nonce.
type stateRecord struct {
	Nonce        string `json:"n"`
	ExpiresAt    int64  `json:"exp"`
	ReturnPath   string `json:"rp,omitempty"`
	DebugChannel string `json:"dc,omitempty"`
}

// StateStore issues and validates the anti-forgery nonce binding a
// /login request to its /callback. The nonce is persisted redundantly
// in the server-side session and in a signed cookie, because one of
// the deployment environments loses its session between the redirect
// out and the redirect back.
type StateStore struct {
	sessions *session.Manager
	cookies  *cookie.Manager
	config   Config
	log      *slog.Logger
}

// NewStateStore creates a state store over the given channels.
func NewStateStore(sessions *session.Manager, cookies *cookie.Manager, cfg Config, log *slog.Logger) *StateStore {
	if log == nil {
		log = logger.Discard()
	}
	return &StateStore{sessions: sessions, cookies: cookies, config: cfg, log: log}
}

// Issue generates a nonce and persists it in both channels. Either
// surviving copy is enough for the callback to validate. A non-empty
// debugChannel rides in the record so the callback can restrict which
// fallback channel gets bound.
func (s *StateStore) Issue(ctx context.Context, w http.ResponseWriter, r *http.Request, returnPath, debugChannel string) (string, error) {
	b := make([]byte, 16) // 128 bits of entropy
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state nonce: %w", err)
	}

	record := stateRecord{
		Nonce:        base64.RawURLEncoding.EncodeToString(b),
		ExpiresAt:    time.Now().Add(s.config.StateTTL).Unix(),
		ReturnPath:   returnPath,
		DebugChannel: debugChannel,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("marshal state record: %w", err)
	}

	// Session write is best-effort: the cookie copy alone can carry
	// the flow in the session-losing environment.
	if sess, err := s.sessions.Ensure(ctx, w, r); err == nil {
		sess.Set(stateSessionKey, string(payload))
		if err := s.sessions.Update(ctx, sess); err != nil {
			s.log.WarnContext(ctx, "failed to persist state nonce in session",
				logger.Error(err), logger.Component("state_store"))
		}
	} else {
		s.log.WarnContext(ctx, "no session available for state nonce",
			logger.Error(err), logger.Component("state_store"))
	}

	opts := []cookie.Option{
		cookie.WithMaxAge(int(s.config.StateTTL.Seconds())),
		cookie.WithSameSite(http.SameSiteLaxMode),
	}
	if s.config.SecureCookies {
		opts = append(opts, cookie.WithSecure(true))
	}
	s.cookies.SetSigned(w, s.config.StateCookieName, string(payload), opts...)

	return record.Nonce, nil
}

// Validate checks the presented nonce against both stored copies and
// consumes them. A match in either channel succeeds; both copies are
// cleared regardless so a nonce can never validate twice.
func (s *StateStore) Validate(ctx context.Context, w http.ResponseWriter, r *http.Request, nonce string) (returnPath, debugChannel string, err error) {
	sessRecord, hadSession := s.readSessionCopy(ctx, r)
	cookieRecord, hadCookie := s.readCookieCopy(r)

	// Single use: consume before judging the outcome.
	s.clear(ctx, w, r)

	if nonce != "" {
		if hadSession && matches(sessRecord, nonce) {
			return sessRecord.ReturnPath, sessRecord.DebugChannel, nil
		}
		if hadCookie && matches(cookieRecord, nonce) {
			return cookieRecord.ReturnPath, cookieRecord.DebugChannel, nil
		}
	}

	if s.config.RelaxedState {
		// Reduced security by explicit configuration; only ever
		// acceptable on a non-production debug deployment.
		s.log.WarnContext(ctx, "state mismatch ignored: relaxed state validation is enabled",
			logger.Component("state_store"))
		// Whatever copy survived still carries the return path and the
		// debug channel selection, so the relaxed flow stays usable.
		if hadSession {
			return sessRecord.ReturnPath, sessRecord.DebugChannel, nil
		}
		if hadCookie {
			return cookieRecord.ReturnPath, cookieRecord.DebugChannel, nil
		}
		return "", "", nil
	}

	return "", "", ErrStateInvalid
}

func (s *StateStore) readSessionCopy(ctx context.Context, r *http.Request) (stateRecord, bool) {
	sess, err := s.sessions.Get(ctx, r)
	if err != nil {
		return stateRecord{}, false
	}
	payload, ok := sess.GetString(stateSessionKey)
	if !ok {
		return stateRecord{}, false
	}
	var record stateRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return stateRecord{}, false
	}
	return record, true
}

func (s *StateStore) readCookieCopy(r *http.Request) (stateRecord, bool) {
	payload, err := s.cookies.GetSigned(r, s.config.StateCookieName)
	if err != nil {
		return stateRecord{}, false
	}
	var record stateRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return stateRecord{}, false
	}
	return record, true
}

func (s *StateStore) clear(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if sess, err := s.sessions.Get(ctx, r); err == nil {
		if _, ok := sess.Get(stateSessionKey); ok {
			sess.Delete(stateSessionKey)
			_ = s.sessions.Update(ctx, sess)
		}
	}
	s.cookies.Delete(w, s.config.StateCookieName)
}

func matches(record stateRecord, nonce string) bool {
	if time.Now().Unix() > record.ExpiresAt {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(record.Nonce), []byte(nonce)) == 1
}
