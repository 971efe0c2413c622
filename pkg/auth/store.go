package auth

import (
	"context"
	"time"
)

// UserStore is the persistence contract for identity records.
type UserStore interface {
	// Create inserts a new user and fills in its ID. Returns
	// ErrProviderIDTaken when another row already owns the provider id;
	// the unique constraint is the concurrency guard for find-or-create.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by local id.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByProviderID retrieves a user by provider account id.
	GetByProviderID(ctx context.Context, providerID string) (*User, error)

	// GetByEmail retrieves a user by email, used only for merge-on-create.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update persists all mutable fields of the user.
	Update(ctx context.Context, user *User) error
}

// TokenStore is the persistence contract for direct tokens.
type TokenStore interface {
	// Insert stores a new direct token.
	Insert(ctx context.Context, token *DirectToken) error

	// GetUserID resolves a token value to its owning user id. Expired
	// or unknown tokens yield ErrTokenNotFound.
	GetUserID(ctx context.Context, token string) (int64, error)

	// Extend moves the token expiry forward after a verified use.
	Extend(ctx context.Context, token string, expiresAt time.Time) error

	// DeleteByToken invalidates a single token.
	DeleteByToken(ctx context.Context, token string) error

	// DeleteByUserID invalidates all tokens owned by a user.
	DeleteByUserID(ctx context.Context, userID int64) error
}
