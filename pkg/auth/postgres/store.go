// Package postgres implements the auth storage contracts on pgx.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emberwake/guildhall/pkg/auth"
)

const uniqueViolation = "23505"

// Store implements auth.UserStore and auth.TokenStore on a pgx pool.
// The users.provider_id unique constraint is the concurrency guard for
// find-or-create; conflicts surface as auth.ErrProviderIDTaken.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a postgres-backed auth store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var (
	_ auth.UserStore  = (*Store)(nil)
	_ auth.TokenStore = (*Store)(nil)
)

const userColumns = `
	id, provider_id, battle_tag, needs_refresh, email,
	access_token, refresh_token, token_expiry, last_login, created_at,
	is_member, is_officer, region, locale, avatar_url
`

func (s *Store) Create(ctx context.Context, user *auth.User) error {
	const query = `
		INSERT INTO users (
			provider_id, battle_tag, needs_refresh, email,
			access_token, refresh_token, token_expiry, last_login, created_at,
			is_member, is_officer, region, locale, avatar_url
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	err := s.pool.QueryRow(ctx, query,
		user.ProviderID, user.BattleTag, user.NeedsRefresh, user.Email,
		user.AccessToken, user.RefreshToken, nullTime(user.TokenExpiry), user.LastLogin, user.CreatedAt,
		user.IsMember, user.IsOfficer, user.Region, user.Locale, user.AvatarURL,
	).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return auth.ErrProviderIDTaken
		}
		return err
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	return s.getUser(ctx, `SELECT`+userColumns+`FROM users WHERE id = $1`, id)
}

func (s *Store) GetByProviderID(ctx context.Context, providerID string) (*auth.User, error) {
	return s.getUser(ctx, `SELECT`+userColumns+`FROM users WHERE provider_id = $1`, providerID)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.getUser(ctx, `SELECT`+userColumns+`FROM users WHERE email = $1`, email)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (*auth.User, error) {
	var (
		user        auth.User
		tokenExpiry *time.Time
	)
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.ProviderID, &user.BattleTag, &user.NeedsRefresh, &user.Email,
		&user.AccessToken, &user.RefreshToken, &tokenExpiry, &user.LastLogin, &user.CreatedAt,
		&user.IsMember, &user.IsOfficer, &user.Region, &user.Locale, &user.AvatarURL,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if tokenExpiry != nil {
		user.TokenExpiry = *tokenExpiry
	}
	return &user, nil
}

func (s *Store) Update(ctx context.Context, user *auth.User) error {
	const query = `
		UPDATE users SET
			provider_id = $2, battle_tag = $3, needs_refresh = $4, email = $5,
			access_token = $6, refresh_token = $7, token_expiry = $8, last_login = $9,
			is_member = $10, is_officer = $11, region = $12, locale = $13, avatar_url = $14
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		user.ID,
		user.ProviderID, user.BattleTag, user.NeedsRefresh, user.Email,
		user.AccessToken, user.RefreshToken, nullTime(user.TokenExpiry), user.LastLogin,
		user.IsMember, user.IsOfficer, user.Region, user.Locale, user.AvatarURL,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return auth.ErrProviderIDTaken
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, token *auth.DirectToken) error {
	const query = `
		INSERT INTO direct_tokens (token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.pool.Exec(ctx, query, token.Token, token.UserID, token.ExpiresAt, token.CreatedAt)
	return err
}

func (s *Store) GetUserID(ctx context.Context, token string) (int64, error) {
	// The join guarantees a token is only valid while its user exists.
	const query = `
		SELECT t.user_id
		FROM direct_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token = $1 AND t.expires_at > NOW()
	`
	var userID int64
	err := s.pool.QueryRow(ctx, query, token).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, auth.ErrTokenNotFound
	}
	if err != nil {
		return 0, err
	}
	return userID, nil
}

func (s *Store) Extend(ctx context.Context, token string, expiresAt time.Time) error {
	const query = `UPDATE direct_tokens SET expires_at = $2 WHERE token = $1`
	tag, err := s.pool.Exec(ctx, query, token, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrTokenNotFound
	}
	return nil
}

func (s *Store) DeleteByToken(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM direct_tokens WHERE token = $1`, token)
	return err
}

func (s *Store) DeleteByUserID(ctx context.Context, userID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM direct_tokens WHERE user_id = $1`, userID)
	return err
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
