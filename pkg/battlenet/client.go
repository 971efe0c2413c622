package battlenet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Token is the provider credential set returned by a code exchange.
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Client talks to the Battle.net OAuth2/OIDC endpoints. It holds no
// per-user state; all methods are safe for concurrent use.
type Client struct {
	conf        *oauth2.Config
	userinfoURL string
	httpClient  *http.Client
}

// NewClient creates a Battle.net client for the configured region.
func NewClient(cfg Config) *Client {
	authorizeURL, tokenURL, userinfoURL := regionEndpoints(cfg.Region)
	return &Client{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authorizeURL,
				TokenURL: tokenURL,
			},
		},
		userinfoURL: userinfoURL,
		httpClient:  &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// China runs on a separate domain; every other region shares the
// global oauth.battle.net host.
func regionEndpoints(region string) (authorize, token, userinfo string) {
	if region == "cn" {
		return "https://oauth.battlenet.com.cn/authorize",
			"https://oauth.battlenet.com.cn/token",
			"https://oauth.battlenet.com.cn/userinfo"
	}
	return "https://oauth.battle.net/authorize",
		"https://oauth.battle.net/token",
		"https://oauth.battle.net/userinfo"
}

// AuthCodeURL builds the authorization URL carrying the state nonce.
// All parameters are URL-encoded by the oauth2 package.
func (c *Client) AuthCodeURL(state string) string {
	return c.conf.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens. Failures are
// classified: network errors and 5xx responses are transient, 4xx
// responses (invalid_grant, expired code) are permanent.
func (c *Client) Exchange(ctx context.Context, code string) (Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.conf.Exchange(ctx, code)
	if err != nil {
		return Token{}, classify("exchange", err)
	}

	return Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}, nil
}

// Profile is the normalized userinfo document. SubjectID is the
// provider account id; Handle is the BattleTag when the provider
// returned one under any of its known key names.
type Profile struct {
	SubjectID string
	Handle    string
	Email     string
	Locale    string
}

// HandleMissing reports whether the provider returned no usable handle.
// The caller decides the placeholder policy.
func (p Profile) HandleMissing() bool { return p.Handle == "" }

// FetchProfile retrieves and normalizes the userinfo document for the
// given access token. The provider has returned the subject and the
// BattleTag under different key names across API revisions; every
// variant is tried here so the rest of the codebase sees one shape.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userinfoURL, nil)
	if err != nil {
		return Profile{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Profile{}, &ProviderError{Op: "userinfo", Transient: true, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, &ProviderError{
			Op:         "userinfo",
			StatusCode: resp.StatusCode,
			Transient:  resp.StatusCode >= 500,
		}
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Profile{}, &ProviderError{Op: "userinfo", StatusCode: resp.StatusCode, Err: err}
	}

	return normalizeProfile(raw)
}

// normalizeProfile maps the loose userinfo shape into a Profile.
func normalizeProfile(raw map[string]json.RawMessage) (Profile, error) {
	p := Profile{
		SubjectID: firstString(raw, "sub", "id", "account_id"),
		Handle:    firstString(raw, "battletag", "battle_tag"),
		Email:     firstString(raw, "email"),
		Locale:    firstString(raw, "locale"),
	}
	if p.SubjectID == "" {
		return Profile{}, ErrNoSubject
	}
	return p, nil
}

// firstString returns the first of the named keys holding a non-empty
// string or number value.
func firstString(raw map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		data, ok := raw[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(data, &s); err == nil && s != "" {
			return s
		}
		// Older responses carried the account id as a JSON number.
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil && n.String() != "" {
			return n.String()
		}
	}
	return ""
}

func classify(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return &ProviderError{
			Op:         op,
			StatusCode: re.Response.StatusCode,
			Code:       re.ErrorCode,
			Transient:  re.Response.StatusCode >= 500,
			Err:        err,
		}
	}
	// No HTTP response at all: connection refused, timeout, DNS.
	return &ProviderError{Op: op, Transient: true, Err: fmt.Errorf("%s: %w", op, err)}
}
