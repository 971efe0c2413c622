package authgate

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/emberwake/guildhall/pkg/auth"
	"github.com/emberwake/guildhall/pkg/logger"
	"github.com/emberwake/guildhall/pkg/session"
)

// ChannelFailure records one channel that could not be cleared.
type ChannelFailure struct {
	Channel string `json:"channel"`
	Reason  string `json:"reason"`
}

// LogoutResult reports how completely the logout took effect.
type LogoutResult struct {
	PartialFailures []ChannelFailure `json:"partial_failures,omitempty"`
}

// OK reports whether every channel cleared cleanly. A false result
// still means every clearable channel was cleared; it is never a
// claim that some channel remains authenticated silently.
func (r LogoutResult) OK() bool { return len(r.PartialFailures) == 0 }

// Logout clears every identity channel for the request, best-effort:
// one channel failing never stops the others from being cleared.
type Logout struct {
	channels []identityChannel
	sessions *session.Manager
	tokens   auth.TokenStore
	log      *slog.Logger
}

// NewLogout creates a logout coordinator over all channels.
func NewLogout(channels []identityChannel, sessions *session.Manager, tokens auth.TokenStore, log *slog.Logger) *Logout {
	if log == nil {
		log = logger.Discard()
	}
	return &Logout{channels: channels, sessions: sessions, tokens: tokens, log: log}
}

// All clears every channel and, when the caller is known, invalidates
// all of the user's sessions and direct tokens server-side so copies
// held by other clients of the same account die too.
func (l *Logout) All(ctx context.Context, w http.ResponseWriter, r *http.Request, user *auth.User) LogoutResult {
	var result LogoutResult

	for _, ch := range l.channels {
		if err := ch.Clear(ctx, w, r); err != nil {
			result.PartialFailures = append(result.PartialFailures, ChannelFailure{
				Channel: ch.Name(),
				Reason:  err.Error(),
			})
			l.log.ErrorContext(ctx, "logout channel clear failed",
				logger.Channel(ch.Name()),
				logger.Error(err),
				logger.Component("logout"),
			)
		}
	}

	if user != nil {
		if err := l.sessions.DestroyByUserID(ctx, user.ID); err != nil {
			result.PartialFailures = append(result.PartialFailures, ChannelFailure{
				Channel: ChannelSession,
				Reason:  err.Error(),
			})
		}
		if err := l.tokens.DeleteByUserID(ctx, user.ID); err != nil {
			result.PartialFailures = append(result.PartialFailures, ChannelFailure{
				Channel: ChannelToken,
				Reason:  err.Error(),
			})
		}
	}

	return result
}
