package authgate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/emberwake/guildhall/pkg/auth"
	"github.com/emberwake/guildhall/pkg/logger"
)

// Resolver answers "who is this request's caller" by trying the
// identity channels in priority order. A hit on a lower-priority
// channel self-heals the faster channels for subsequent requests.
type Resolver struct {
	channels  []identityChannel
	recovery  *recoveryChannel
	users     auth.UserStore
	refresher *auth.Refresher
	binder    *Binder
	log       *slog.Logger
}

// NewResolver creates a current-user resolver. The channel slice is in
// priority order; recovery may be nil when the deployment does not use
// the URL recovery parameter.
func NewResolver(channels []identityChannel, recovery *recoveryChannel, users auth.UserStore, refresher *auth.Refresher, binder *Binder, log *slog.Logger) *Resolver {
	if log == nil {
		log = logger.Discard()
	}
	return &Resolver{
		channels:  channels,
		recovery:  recovery,
		users:     users,
		refresher: refresher,
		binder:    binder,
		log:       log,
	}
}

// Current resolves the request's caller, or ErrAnonymous when no
// channel produces a valid identity.
func (rs *Resolver) Current(ctx context.Context, w http.ResponseWriter, r *http.Request) (*auth.User, error) {
	userID, hitIndex, hitName := int64(0), -1, ""
	for i, ch := range rs.channels {
		if id, ok := ch.Read(ctx, r); ok {
			userID, hitIndex, hitName = id, i, ch.Name()
			break
		}
	}
	if hitIndex < 0 {
		return nil, ErrAnonymous
	}

	user, err := rs.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			// A channel referenced a user that no longer exists;
			// drop the stale identity so it stops matching.
			_ = rs.channels[hitIndex].Clear(ctx, w, r)
			return nil, ErrAnonymous
		}
		return nil, err
	}

	if rs.refresher != nil {
		refreshed, err := rs.refresher.MaybeRefresh(ctx, user)
		if err != nil && !errors.Is(err, auth.ErrReauthRequired) {
			rs.log.WarnContext(ctx, "profile refresh during resolve failed",
				logger.UserID(user.ID), logger.Error(err), logger.Component("current_user_resolver"))
		}
		// ReauthRequired does not end the local session: the user
		// stays authenticated on the stored record until they choose
		// to log in again for fresh provider data.
		user = refreshed
	}

	if hitName == ChannelRecovery && rs.recovery != nil {
		// The marker is single-use; consume it on the first hit.
		rs.recovery.Consume(w)
	}

	// Self-heal: a hit below the top priority means a faster channel
	// is empty; rebind so the next request takes the fast path.
	if hitIndex > 0 && rs.binder != nil {
		if err := rs.binder.BindAll(ctx, w, r, user); err != nil {
			rs.log.WarnContext(ctx, "self-heal rebind failed",
				logger.UserID(user.ID),
				logger.Channel(hitName),
				logger.Error(err),
				logger.Component("current_user_resolver"),
			)
		}
	}

	return user, nil
}
