package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/emberwake/guildhall/pkg/battlenet"
	"github.com/emberwake/guildhall/pkg/logger"
)

// ProfileFetcher is the slice of the provider client the refresher needs.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, accessToken string) (battlenet.Profile, error)
}

// Refresher re-fetches provider profile data for records whose handle
// is still unresolved or whose token expiry has passed. It makes at
// most one attempt per call and degrades to the stored values on
// transient failure, so a stalled provider never breaks a request.
type Refresher struct {
	users   UserStore
	client  ProfileFetcher
	timeout time.Duration
	grace   time.Duration
	log     *slog.Logger
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithRefreshTimeout bounds a single profile re-fetch.
func WithRefreshTimeout(d time.Duration) RefresherOption {
	return func(r *Refresher) { r.timeout = d }
}

// WithRefresherLogger sets the logger for the refresher.
func WithRefresherLogger(l *slog.Logger) RefresherOption {
	return func(r *Refresher) { r.log = l }
}

// NewRefresher creates a token lifecycle manager.
func NewRefresher(users UserStore, client ProfileFetcher, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		users:   users,
		client:  client,
		timeout: 5 * time.Second,
		grace:   15 * time.Minute,
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MaybeRefresh re-fetches the profile when the user record needs it and
// persists the result. It is idempotent: a record that needs nothing is
// returned unchanged. A provider rejection of the stored token marks
// the tokens invalid and returns ErrReauthRequired.
func (r *Refresher) MaybeRefresh(ctx context.Context, user *User) (*User, error) {
	needs := user.NeedsRefresh || user.BattleTag == "" || user.TokenExpired()
	if !needs {
		return user, nil
	}
	if user.AccessToken == "" {
		return user, ErrReauthRequired
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	profile, err := r.client.FetchProfile(ctx, user.AccessToken)
	if err != nil {
		if battlenet.IsAuthRejected(err) {
			user.AccessToken = ""
			user.RefreshToken = ""
			user.TokenExpiry = time.Time{}
			if updErr := r.users.Update(ctx, user); updErr != nil {
				r.log.ErrorContext(ctx, "failed to persist token invalidation",
					logger.UserID(user.ID),
					logger.Error(updErr),
					logger.Component("token_refresher"),
				)
			}
			return user, ErrReauthRequired
		}

		// Transient or malformed response: keep the previous values.
		r.log.WarnContext(ctx, "profile refresh failed, keeping stored values",
			logger.UserID(user.ID),
			logger.Error(err),
			logger.Component("token_refresher"),
		)
		return user, nil
	}

	if profile.Handle != "" {
		user.BattleTag = profile.Handle
		user.NeedsRefresh = false
	}
	if profile.Locale != "" {
		user.Locale = profile.Locale
	}
	// The fetch proved the token still works; push the recorded expiry
	// forward so every request does not repeat the round trip.
	if user.TokenExpired() {
		user.TokenExpiry = time.Now().Add(r.grace)
	}

	if err := r.users.Update(ctx, user); err != nil {
		r.log.ErrorContext(ctx, "failed to persist refreshed profile",
			logger.UserID(user.ID),
			logger.Error(err),
			logger.Component("token_refresher"),
		)
	}
	return user, nil
}
