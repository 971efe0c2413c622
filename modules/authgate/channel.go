package authgate

import (
	"context"
	"net/http"

	"github.com/emberwake/guildhall/pkg/auth"
)

// Channel names, also used as log attributes.
const (
	ChannelSession  = "session"
	ChannelCookie   = "cookie"
	ChannelToken    = "token"
	ChannelRecovery = "recovery"
)

// identityChannel is one independent carrier of authenticated identity.
// The resolver composes channels by priority; adding or removing a
// carrier never touches resolver logic.
type identityChannel interface {
	// Name identifies the channel in logs and diagnostics.
	Name() string

	// Read extracts a user id from the request, reporting whether the
	// channel produced a trustworthy hit.
	Read(ctx context.Context, r *http.Request) (int64, bool)

	// Write binds the user's identity into the channel.
	Write(ctx context.Context, w http.ResponseWriter, r *http.Request, user *auth.User) error

	// Clear removes the identity from the channel for this client.
	Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}
