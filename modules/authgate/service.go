package authgate

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/emberwake/guildhall/pkg/auth"
	"github.com/emberwake/guildhall/pkg/battlenet"
	"github.com/emberwake/guildhall/pkg/cookie"
	"github.com/emberwake/guildhall/pkg/logger"
	"github.com/emberwake/guildhall/pkg/session"
)

// ProviderClient is the slice of the Battle.net client the gateway
// depends on, kept as an interface so tests can fake the provider.
type ProviderClient interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (battlenet.Token, error)
	FetchProfile(ctx context.Context, accessToken string) (battlenet.Profile, error)
}

// Service is the authentication gateway: it owns the OAuth flow
// endpoints and exposes current-user resolution to the rest of the
// application.
type Service struct {
	config    Config
	provider  ProviderClient
	identity  *auth.Resolver
	refresher *auth.Refresher
	state     *StateStore
	binder    *Binder
	current   *Resolver
	logout    *Logout
	recovery  *recoveryChannel
	log       *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithServiceLogger sets the logger for the gateway and the parts it
// constructs.
func WithServiceLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New wires the auth gateway. The identity channels are composed here,
// in priority order: session, signed cookie, direct token, recovery
// parameter.
func New(
	cfg Config,
	provider ProviderClient,
	users auth.UserStore,
	tokens auth.TokenStore,
	sessions *session.Manager,
	cookies *cookie.Manager,
	opts ...Option,
) *Service {
	s := &Service{
		config:   cfg,
		provider: provider,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	sessionCh := newSessionChannel(sessions)
	cookieCh := newCookieChannel(cookies, cfg)
	tokenCh := newTokenChannel(tokens, cookies, cfg, s.log)
	s.recovery = newRecoveryChannel(cookies, cfg)

	s.identity = auth.NewResolver(users, auth.WithResolverLogger(s.log))
	s.refresher = auth.NewRefresher(users, provider, auth.WithRefresherLogger(s.log))
	s.state = NewStateStore(sessions, cookies, cfg, s.log)
	s.binder = NewBinder(s.log, sessionCh, cookieCh, tokenCh)

	readOrder := []identityChannel{sessionCh, cookieCh, tokenCh, s.recovery}
	s.current = NewResolver(readOrder, s.recovery, users, s.refresher, s.binder, s.log)
	s.logout = NewLogout(readOrder, sessions, tokens, s.log)

	return s
}

// CurrentUser resolves the request's caller through the channel
// priority list. This is the lookup the rest of the application uses.
func (s *Service) CurrentUser(ctx context.Context, w http.ResponseWriter, r *http.Request) (*auth.User, error) {
	return s.current.Current(ctx, w, r)
}
