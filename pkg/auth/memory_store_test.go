package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Users(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	user := &User{ProviderID: "p1", BattleTag: "Foo#1111", Email: "foo@example.com"}
	require.NoError(t, store.Create(ctx, user))
	assert.NotZero(t, user.ID)

	t.Run("duplicate provider id rejected", func(t *testing.T) {
		err := store.Create(ctx, &User{ProviderID: "p1", Email: "other@example.com"})
		assert.ErrorIs(t, err, ErrProviderIDTaken)
	})

	t.Run("lookups", func(t *testing.T) {
		byID, err := store.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Foo#1111", byID.BattleTag)

		byProvider, err := store.GetByProviderID(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byProvider.ID)

		byEmail, err := store.GetByEmail(ctx, "foo@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)

		_, err = store.GetByID(ctx, 999)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("update reindexes", func(t *testing.T) {
		updated := *user
		updated.Email = "new@example.com"
		require.NoError(t, store.Update(ctx, &updated))

		_, err := store.GetByEmail(ctx, "foo@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)

		byEmail, err := store.GetByEmail(ctx, "new@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)
	})
}

func TestMemoryStore_DirectTokens(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	user := &User{ProviderID: "p1", Email: "p1@login.invalid"}
	require.NoError(t, store.Create(ctx, user))

	tok, err := NewDirectToken(user.ID, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Token)
	require.NoError(t, store.Insert(ctx, tok))

	t.Run("resolves while valid", func(t *testing.T) {
		id, err := store.GetUserID(ctx, tok.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, id)
	})

	t.Run("extend pushes expiry", func(t *testing.T) {
		require.NoError(t, store.Extend(ctx, tok.Token, time.Now().Add(48*time.Hour)))
		_, err := store.GetUserID(ctx, tok.Token)
		assert.NoError(t, err)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := store.GetUserID(ctx, "no-such-token")
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("expired token dies on read", func(t *testing.T) {
		expired, err := NewDirectToken(user.ID, -time.Minute)
		require.NoError(t, err)
		require.NoError(t, store.Insert(ctx, expired))

		_, err = store.GetUserID(ctx, expired.Token)
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("delete by user removes all", func(t *testing.T) {
		second, err := NewDirectToken(user.ID, time.Hour)
		require.NoError(t, err)
		require.NoError(t, store.Insert(ctx, second))

		require.NoError(t, store.DeleteByUserID(ctx, user.ID))

		_, err = store.GetUserID(ctx, tok.Token)
		assert.ErrorIs(t, err, ErrTokenNotFound)
		_, err = store.GetUserID(ctx, second.Token)
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})
}

func TestNewDirectToken_Unique(t *testing.T) {
	t.Parallel()

	a, err := NewDirectToken(1, time.Hour)
	require.NoError(t, err)
	b, err := NewDirectToken(1, time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, a.Token, b.Token)
	assert.GreaterOrEqual(t, len(a.Token), 40)
}

func TestUser_Public(t *testing.T) {
	t.Parallel()

	u := &User{ID: 5, BattleTag: "Foo#1111", IsMember: true}
	pub := u.Public()
	assert.Equal(t, "Foo#1111", pub.BattleTag)
	assert.True(t, pub.IsMember)

	// The placeholder appears only in the public view; storage keeps the
	// empty value so a later refresh can fill it.
	unknown := &User{ID: 6}
	assert.Equal(t, "Unknown", unknown.Public().BattleTag)
	assert.Empty(t, unknown.BattleTag)
}
