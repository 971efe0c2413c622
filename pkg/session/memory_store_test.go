package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberwake/guildhall/pkg/session"
)

func TestMemoryStore_CRUD(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore(0)
	ctx := context.Background()

	sess := session.NewSession("tok-1", nil, time.Hour)
	sess.Set("key", "value")
	require.NoError(t, store.Create(ctx, sess))

	got, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	v, ok := got.GetString("key")
	require.True(t, ok)
	assert.Equal(t, "value", v)

	got.Set("key", "changed")
	require.NoError(t, store.Update(ctx, got))

	again, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	v, _ = again.GetString("key")
	assert.Equal(t, "changed", v)

	require.NoError(t, store.Delete(ctx, "tok-1"))
	_, err = store.Get(ctx, "tok-1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestMemoryStore_Validation(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore(0)
	ctx := context.Background()

	assert.ErrorIs(t, store.Create(ctx, nil), session.ErrInvalidSession)
	assert.ErrorIs(t, store.Create(ctx, &session.Session{}), session.ErrInvalidSession)
	assert.ErrorIs(t, store.Update(ctx, session.NewSession("never-created", nil, time.Hour)), session.ErrSessionNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore(0)
	ctx := context.Background()

	sess := session.NewSession("tok-exp", nil, -time.Minute)
	require.NoError(t, store.Create(ctx, sess))

	_, err := store.Get(ctx, "tok-exp")
	assert.ErrorIs(t, err, session.ErrSessionExpired)

	// The expired record is gone after the first read.
	_, err = store.Get(ctx, "tok-exp")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestMemoryStore_DeleteByUserID(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore(0)
	ctx := context.Background()

	alice, bob := int64(1), int64(2)
	require.NoError(t, store.Create(ctx, session.NewSession("a1", &alice, time.Hour)))
	require.NoError(t, store.Create(ctx, session.NewSession("a2", &alice, time.Hour)))
	require.NoError(t, store.Create(ctx, session.NewSession("b1", &bob, time.Hour)))

	require.NoError(t, store.DeleteByUserID(ctx, alice))

	_, err := store.Get(ctx, "a1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	_, err = store.Get(ctx, "a2")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = store.Get(ctx, "b1")
	assert.NoError(t, err)
}

func TestMemoryStore_CloneIsolation(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore(0)
	ctx := context.Background()

	sess := session.NewSession("tok-iso", nil, time.Hour)
	require.NoError(t, store.Create(ctx, sess))

	// Mutating the caller's copy must not leak into the store.
	sess.Set("dirty", true)

	got, err := store.Get(ctx, "tok-iso")
	require.NoError(t, err)
	_, ok := got.Get("dirty")
	assert.False(t, ok)
}
