package authgate

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/emberwake/guildhall/pkg/auth"
	"github.com/emberwake/guildhall/pkg/cookie"
)

// recoveryChannel accepts a user id from a URL query parameter, but
// only while a server-set, signed "just authenticated" marker cookie
// is alive and names the same user. The marker lives for minutes and
// is consumed on first use, so the parameter bridges the window right
// after a callback and can never become a standing, forgeable
// authentication mechanism.
type recoveryChannel struct {
	cookies *cookie.Manager
	config  Config
}

func newRecoveryChannel(cookies *cookie.Manager, cfg Config) *recoveryChannel {
	return &recoveryChannel{cookies: cookies, config: cfg}
}

func (c *recoveryChannel) Name() string { return ChannelRecovery }

func (c *recoveryChannel) Read(ctx context.Context, r *http.Request) (int64, bool) {
	param := r.URL.Query().Get(c.config.RecoveryParam)
	if param == "" {
		return 0, false
	}
	paramID, err := strconv.ParseInt(param, 10, 64)
	if err != nil || paramID <= 0 {
		return 0, false
	}

	marker, err := c.cookies.GetSigned(r, c.config.MarkerCookieName)
	if err != nil {
		return 0, false
	}
	idPart, expPart, ok := strings.Cut(marker, ".")
	if !ok {
		return 0, false
	}
	markerID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || markerID != paramID {
		return 0, false
	}
	expiresAt, err := strconv.ParseInt(expPart, 10, 64)
	if err != nil || time.Now().Unix() > expiresAt {
		return 0, false
	}

	return paramID, true
}

// Write sets the marker cookie; the callback handler separately embeds
// the recovery parameter in its redirect URL.
func (c *recoveryChannel) Write(ctx context.Context, w http.ResponseWriter, r *http.Request, user *auth.User) error {
	value := strconv.FormatInt(user.ID, 10) + "." +
		strconv.FormatInt(time.Now().Add(c.config.MarkerTTL).Unix(), 10)

	opts := []cookie.Option{
		cookie.WithMaxAge(int(c.config.MarkerTTL.Seconds())),
		cookie.WithSameSite(http.SameSiteLaxMode),
	}
	if c.config.SecureCookies {
		opts = append(opts, cookie.WithSecure(true))
	}
	c.cookies.SetSigned(w, c.config.MarkerCookieName, value, opts...)
	return nil
}

// Consume invalidates the marker after a successful recovery read so
// the parameter is single-use.
func (c *recoveryChannel) Consume(w http.ResponseWriter) {
	c.cookies.Delete(w, c.config.MarkerCookieName)
}

func (c *recoveryChannel) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	c.cookies.Delete(w, c.config.MarkerCookieName)
	return nil
}
