package authgate

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/emberwake/guildhall/pkg/auth"
	"github.com/emberwake/guildhall/pkg/logger"
)

// Binder writes a resolved identity into every writable channel. A
// bind counts as successful when at least one channel accepted the
// write; each outcome is logged individually so a quietly failing
// backend stays visible. Token contents are never logged.
type Binder struct {
	channels []identityChannel
	log      *slog.Logger
}

// NewBinder creates a binder over the given writable channels.
func NewBinder(log *slog.Logger, channels ...identityChannel) *Binder {
	if log == nil {
		log = logger.Discard()
	}
	return &Binder{channels: channels, log: log}
}

// BindAll writes the user into each channel independently. Returns
// ErrBindFailed only when every channel rejected the write.
func (b *Binder) BindAll(ctx context.Context, w http.ResponseWriter, r *http.Request, user *auth.User) error {
	return b.bind(ctx, w, r, user, b.channels)
}

// BindOnly restricts the write to the named channels. The debug login
// flow uses this to exercise one fallback channel in isolation.
func (b *Binder) BindOnly(ctx context.Context, w http.ResponseWriter, r *http.Request, user *auth.User, names ...string) error {
	var subset []identityChannel
	for _, ch := range b.channels {
		if slices.Contains(names, ch.Name()) {
			subset = append(subset, ch)
		}
	}
	return b.bind(ctx, w, r, user, subset)
}

func (b *Binder) bind(ctx context.Context, w http.ResponseWriter, r *http.Request, user *auth.User, channels []identityChannel) error {
	var bound int
	for _, ch := range channels {
		if err := ch.Write(ctx, w, r, user); err != nil {
			b.log.WarnContext(ctx, "identity bind failed",
				logger.Channel(ch.Name()),
				logger.UserID(user.ID),
				logger.Error(err),
				logger.Component("session_binder"),
			)
			continue
		}
		bound++
		b.log.DebugContext(ctx, "identity bound",
			logger.Channel(ch.Name()),
			logger.UserID(user.ID),
			logger.Component("session_binder"),
		)
	}

	if bound == 0 {
		return ErrBindFailed
	}
	return nil
}
