package authgate

import (
	"context"

	"github.com/emberwake/guildhall/pkg/auth"
)

type contextKey struct{ name string }

var userContextKey = contextKey{"authgate_user"}

// WithUser returns a context carrying the resolved caller.
func WithUser(ctx context.Context, user *auth.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the caller placed in the context by
// RequireAuth, or false when the request is anonymous.
func UserFromContext(ctx context.Context) (*auth.User, bool) {
	user, ok := ctx.Value(userContextKey).(*auth.User)
	return user, ok && user != nil
}
