package authgate

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/emberwake/guildhall/pkg/auth"
	"github.com/emberwake/guildhall/pkg/cookie"
	"github.com/emberwake/guildhall/pkg/logger"
)

// tokenChannel carries identity through a server-stored direct token
// whose opaque value rides in a cookie. The token survives session
// loss entirely: validation is a store lookup, and a verified use
// slides the expiry forward.
type tokenChannel struct {
	tokens  auth.TokenStore
	cookies *cookie.Manager
	config  Config
	log     *slog.Logger
}

func newTokenChannel(tokens auth.TokenStore, cookies *cookie.Manager, cfg Config, log *slog.Logger) *tokenChannel {
	return &tokenChannel{tokens: tokens, cookies: cookies, config: cfg, log: log}
}

func (c *tokenChannel) Name() string { return ChannelToken }

func (c *tokenChannel) Read(ctx context.Context, r *http.Request) (int64, bool) {
	value, err := c.cookies.Get(r, c.config.TokenCookieName)
	if err != nil || value == "" {
		return 0, false
	}

	userID, err := c.tokens.GetUserID(ctx, value)
	if err != nil {
		return 0, false
	}

	// Sliding expiry on verified use.
	if err := c.tokens.Extend(ctx, value, time.Now().Add(c.config.DirectTokenTTL)); err != nil {
		c.log.WarnContext(ctx, "failed to extend direct token",
			logger.Error(err), logger.Channel(c.Name()))
	}

	return userID, true
}

func (c *tokenChannel) Write(ctx context.Context, w http.ResponseWriter, r *http.Request, user *auth.User) error {
	token, err := auth.NewDirectToken(user.ID, c.config.DirectTokenTTL)
	if err != nil {
		return err
	}
	if err := c.tokens.Insert(ctx, token); err != nil {
		return err
	}

	opts := []cookie.Option{
		cookie.WithMaxAge(int(c.config.DirectTokenTTL.Seconds())),
		cookie.WithSameSite(http.SameSiteLaxMode),
	}
	if c.config.SecureCookies {
		opts = append(opts, cookie.WithSecure(true))
	}
	c.cookies.Set(w, c.config.TokenCookieName, token.Token, opts...)
	return nil
}

func (c *tokenChannel) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var storeErr error
	if value, err := c.cookies.Get(r, c.config.TokenCookieName); err == nil && value != "" {
		storeErr = c.tokens.DeleteByToken(ctx, value)
	}
	c.cookies.Delete(w, c.config.TokenCookieName)
	return storeErr
}
