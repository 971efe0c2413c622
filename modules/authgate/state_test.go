package authgate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStore_IssueValidate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()
	j := newJar()

	w := httptest.NewRecorder()
	nonce, err := env.service.state.Issue(ctx, w, j.request(http.MethodGet, "/login"), "/roster", "")
	require.NoError(t, err)
	require.NotEmpty(t, nonce)
	j.absorb(w)

	w2 := httptest.NewRecorder()
	returnPath, _, err := env.service.state.Validate(ctx, w2, j.request(http.MethodGet, "/callback"), nonce)
	require.NoError(t, err)
	assert.Equal(t, "/roster", returnPath)
}

func TestStateStore_SingleUse(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()
	j := newJar()

	w := httptest.NewRecorder()
	nonce, err := env.service.state.Issue(ctx, w, j.request(http.MethodGet, "/login"), "", "")
	require.NoError(t, err)
	j.absorb(w)

	w2 := httptest.NewRecorder()
	_, _, err = env.service.state.Validate(ctx, w2, j.request(http.MethodGet, "/callback"), nonce)
	require.NoError(t, err)
	j.absorb(w2)

	// The same nonce must never validate a second time.
	w3 := httptest.NewRecorder()
	_, _, err = env.service.state.Validate(ctx, w3, j.request(http.MethodGet, "/callback"), nonce)
	assert.ErrorIs(t, err, ErrStateInvalid)
}

func TestStateStore_WrongNonce(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()
	j := newJar()

	w := httptest.NewRecorder()
	_, err := env.service.state.Issue(ctx, w, j.request(http.MethodGet, "/login"), "", "")
	require.NoError(t, err)
	j.absorb(w)

	w2 := httptest.NewRecorder()
	_, _, err = env.service.state.Validate(ctx, w2, j.request(http.MethodGet, "/callback"), "forged-nonce")
	assert.ErrorIs(t, err, ErrStateInvalid)

	w3 := httptest.NewRecorder()
	_, _, err = env.service.state.Validate(ctx, w3, j.request(http.MethodGet, "/callback"), "")
	assert.ErrorIs(t, err, ErrStateInvalid)
}

func TestStateStore_CookieCopySurvivesSessionLoss(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()
	j := newJar()

	w := httptest.NewRecorder()
	nonce, err := env.service.state.Issue(ctx, w, j.request(http.MethodGet, "/login"), "/officers", "")
	require.NoError(t, err)
	j.absorb(w)

	// The environment that loses its session between redirects: drop the
	// session cookie, keep the signed state cookie.
	j.drop("gh_sid")

	w2 := httptest.NewRecorder()
	returnPath, _, err := env.service.state.Validate(ctx, w2, j.request(http.MethodGet, "/callback"), nonce)
	require.NoError(t, err)
	assert.Equal(t, "/officers", returnPath)
}

func TestStateStore_Expiry(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(cfg *Config) { cfg.StateTTL = -time.Minute })
	ctx := context.Background()
	j := newJar()

	w := httptest.NewRecorder()
	nonce, err := env.service.state.Issue(ctx, w, j.request(http.MethodGet, "/login"), "", "")
	require.NoError(t, err)
	j.absorb(w)

	w2 := httptest.NewRecorder()
	_, _, err = env.service.state.Validate(ctx, w2, j.request(http.MethodGet, "/callback"), nonce)
	assert.ErrorIs(t, err, ErrStateInvalid)
}

func TestStateStore_RelaxedState(t *testing.T) {
	t.Parallel()

	t.Run("mismatch passes without any record", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, func(cfg *Config) { cfg.RelaxedState = true })

		w := httptest.NewRecorder()
		returnPath, _, err := env.service.state.Validate(context.Background(), w, httptest.NewRequest(http.MethodGet, "/callback", nil), "anything")
		require.NoError(t, err)
		assert.Empty(t, returnPath)
	})

	t.Run("mismatch keeps the surviving record's payload", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, func(cfg *Config) { cfg.RelaxedState = true })
		ctx := context.Background()
		j := newJar()

		w := httptest.NewRecorder()
		_, err := env.service.state.Issue(ctx, w, j.request(http.MethodGet, "/login"), "/roster", ChannelToken)
		require.NoError(t, err)
		j.absorb(w)

		w2 := httptest.NewRecorder()
		returnPath, debugChannel, err := env.service.state.Validate(ctx, w2, j.request(http.MethodGet, "/callback"), "forged-nonce")
		require.NoError(t, err)
		assert.Equal(t, "/roster", returnPath)
		assert.Equal(t, ChannelToken, debugChannel)
	})
}
