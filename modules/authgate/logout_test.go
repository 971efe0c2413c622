package authgate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberwake/guildhall/pkg/auth"
	"github.com/emberwake/guildhall/pkg/logger"
)

// brokenChannel always fails to clear.
type brokenChannel struct{}

func (brokenChannel) Name() string                                          { return "broken" }
func (brokenChannel) Read(ctx context.Context, r *http.Request) (int64, bool) { return 0, false }
func (brokenChannel) Write(ctx context.Context, w http.ResponseWriter, r *http.Request, user *auth.User) error {
	return nil
}
func (brokenChannel) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return errors.New("backend unavailable")
}

func TestLogout_All(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	user := seedTestUser(t, env.store, "Foo#1111")
	ctx := context.Background()

	t.Run("clean logout reports no failures", func(t *testing.T) {
		t.Parallel()

		j := bindUser(t, env, user.ID)
		w := httptest.NewRecorder()
		result := env.service.logout.All(ctx, w, j.request(http.MethodPost, "/logout"), user)
		assert.True(t, result.OK())
	})

	t.Run("anonymous logout still clears channels", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		result := env.service.logout.All(ctx, w, httptest.NewRequest(http.MethodPost, "/logout", nil), nil)
		assert.True(t, result.OK())
	})
}

func TestLogout_PartialFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	user := seedTestUser(t, env.store, "Bar#2222")
	ctx := context.Background()

	// Rebuild the coordinator with a channel that cannot clear, next to
	// the real ones.
	channels := []identityChannel{
		newSessionChannel(env.sessions),
		brokenChannel{},
		newCookieChannel(env.cookies, env.config),
	}
	l := NewLogout(channels, env.sessions, env.store, logger.Discard())

	j := bindUser(t, env, user.ID)
	w := httptest.NewRecorder()
	result := l.All(ctx, w, j.request(http.MethodPost, "/logout"), user)

	require.False(t, result.OK())
	require.Len(t, result.PartialFailures, 1)
	assert.Equal(t, "broken", result.PartialFailures[0].Channel)

	// The failing channel did not stop the others: the session is gone
	// both client- and server-side.
	_, err := env.sessions.Get(ctx, j.request(http.MethodGet, "/"))
	assert.Error(t, err)

	// Server-side invalidation still ran: the direct token minted at
	// bind time no longer resolves.
	tokenCookie, ok := j[env.config.TokenCookieName]
	require.True(t, ok)
	_, err = env.store.GetUserID(ctx, tokenCookie.Value)
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)
}
