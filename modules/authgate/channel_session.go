package authgate

import (
	"context"
	"net/http"

	"github.com/emberwake/guildhall/pkg/auth"
	"github.com/emberwake/guildhall/pkg/session"
)

// sessionChannel carries identity in the server-side session. Fastest
// and most trustworthy when present, so it sits first in priority.
type sessionChannel struct {
	sessions *session.Manager
}

func newSessionChannel(sessions *session.Manager) *sessionChannel {
	return &sessionChannel{sessions: sessions}
}

func (c *sessionChannel) Name() string { return ChannelSession }

func (c *sessionChannel) Read(ctx context.Context, r *http.Request) (int64, bool) {
	sess, err := c.sessions.Get(ctx, r)
	if err != nil || !sess.IsAuthenticated() {
		return 0, false
	}
	return *sess.UserID, true
}

func (c *sessionChannel) Write(ctx context.Context, w http.ResponseWriter, r *http.Request, user *auth.User) error {
	return c.sessions.Authenticate(ctx, w, r, user.ID)
}

func (c *sessionChannel) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return c.sessions.Destroy(ctx, w, r)
}
