package authgate

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/emberwake/guildhall/pkg/auth"
	"github.com/emberwake/guildhall/pkg/cookie"
)

// cookieChannel carries identity in a signed, client-held cookie:
// "userID.issuedAt" under an HMAC. Presence alone proves nothing; the
// signature check runs before the value is trusted, and the server
// re-checks freshness rather than relying on client-side expiry.
type cookieChannel struct {
	cookies *cookie.Manager
	config  Config
}

func newCookieChannel(cookies *cookie.Manager, cfg Config) *cookieChannel {
	return &cookieChannel{cookies: cookies, config: cfg}
}

func (c *cookieChannel) Name() string { return ChannelCookie }

func (c *cookieChannel) Read(ctx context.Context, r *http.Request) (int64, bool) {
	value, err := c.cookies.GetSigned(r, c.config.IdentityCookieName)
	if err != nil {
		return 0, false
	}

	idPart, issuedPart, ok := strings.Cut(value, ".")
	if !ok {
		return 0, false
	}
	userID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || userID <= 0 {
		return 0, false
	}
	issuedAt, err := strconv.ParseInt(issuedPart, 10, 64)
	if err != nil {
		return 0, false
	}
	if time.Since(time.Unix(issuedAt, 0)) > c.config.IdentityCookieTTL {
		return 0, false
	}

	return userID, true
}

func (c *cookieChannel) Write(ctx context.Context, w http.ResponseWriter, r *http.Request, user *auth.User) error {
	value := fmt.Sprintf("%d.%d", user.ID, time.Now().Unix())

	opts := []cookie.Option{
		cookie.WithMaxAge(int(c.config.IdentityCookieTTL.Seconds())),
		cookie.WithSameSite(http.SameSiteLaxMode),
	}
	if c.config.SecureCookies {
		opts = append(opts, cookie.WithSecure(true))
	}
	c.cookies.SetSigned(w, c.config.IdentityCookieName, value, opts...)
	return nil
}

func (c *cookieChannel) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	c.cookies.Delete(w, c.config.IdentityCookieName)
	return nil
}
