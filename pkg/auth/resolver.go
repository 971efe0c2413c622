package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emberwake/guildhall/pkg/battlenet"
	"github.com/emberwake/guildhall/pkg/logger"
)

// Resolver maps a provider profile onto a local user record:
// find by provider id, fall back to an email merge, or create.
type Resolver struct {
	users UserStore
	log   *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger for the resolver.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.log = l }
}

// NewResolver creates an identity resolver over the given user store.
func NewResolver(users UserStore, opts ...ResolverOption) *Resolver {
	r := &Resolver{users: users, log: logger.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the local user for the given provider profile,
// creating or merging a record as needed. A missing handle or email
// never fails resolution; the only hard failure besides storage errors
// is a profile with no subject id at all.
func (r *Resolver) Resolve(ctx context.Context, profile battlenet.Profile, token battlenet.Token) (*User, error) {
	if profile.SubjectID == "" {
		return nil, ErrNoSubject
	}

	user, err := r.users.GetByProviderID(ctx, profile.SubjectID)
	if err == nil {
		return r.update(ctx, user, profile, token)
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("lookup by provider id: %w", err)
	}

	if email := normalizeEmail(profile.Email); email != "" {
		user, err = r.users.GetByEmail(ctx, email)
		if err == nil {
			// Adopt the pre-existing row: attach the provider id
			// instead of creating a duplicate identity.
			user.ProviderID = profile.SubjectID
			r.log.InfoContext(ctx, "adopted existing user by email",
				logger.UserID(user.ID),
				logger.Component("identity_resolver"),
			)
			return r.update(ctx, user, profile, token)
		}
		if !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("lookup by email: %w", err)
		}
	}

	return r.create(ctx, profile, token)
}

func (r *Resolver) update(ctx context.Context, user *User, profile battlenet.Profile, token battlenet.Token) (*User, error) {
	user.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		user.RefreshToken = token.RefreshToken
	}
	user.TokenExpiry = token.Expiry
	user.LastLogin = time.Now()

	// A known handle never regresses to unknown: keep the stored
	// BattleTag when the provider omitted it this time.
	if profile.Handle != "" {
		user.BattleTag = profile.Handle
		user.NeedsRefresh = false
	} else if user.BattleTag == "" {
		user.NeedsRefresh = true
	}
	if profile.Locale != "" {
		user.Locale = profile.Locale
	}

	if err := r.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (r *Resolver) create(ctx context.Context, profile battlenet.Profile, token battlenet.Token) (*User, error) {
	email := normalizeEmail(profile.Email)
	if email == "" {
		// The users table requires a unique email; synthesize one
		// under a reserved, undeliverable domain.
		email = fmt.Sprintf("%s@login.invalid", profile.SubjectID)
	}

	now := time.Now()
	user := &User{
		ProviderID:   profile.SubjectID,
		BattleTag:    profile.Handle,
		NeedsRefresh: profile.HandleMissing(),
		Email:        email,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenExpiry:  token.Expiry,
		LastLogin:    now,
		CreatedAt:    now,
		Locale:       profile.Locale,
	}

	err := r.users.Create(ctx, user)
	if err == nil {
		r.log.InfoContext(ctx, "created user",
			logger.UserID(user.ID),
			logger.Component("identity_resolver"),
		)
		return user, nil
	}

	// A concurrent login for the same new provider id lost the race on
	// the unique constraint; the winner's row is the identity.
	if errors.Is(err, ErrProviderIDTaken) {
		existing, lookupErr := r.users.GetByProviderID(ctx, profile.SubjectID)
		if lookupErr == nil {
			return r.update(ctx, existing, profile, token)
		}
		return nil, ErrResolveConflict
	}

	return nil, fmt.Errorf("create user: %w", err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
