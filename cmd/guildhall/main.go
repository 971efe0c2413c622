package main

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/emberwake/guildhall/modules/authgate"
	"github.com/emberwake/guildhall/pkg/auth"
	"github.com/emberwake/guildhall/pkg/auth/postgres"
	"github.com/emberwake/guildhall/pkg/battlenet"
	"github.com/emberwake/guildhall/pkg/config"
	"github.com/emberwake/guildhall/pkg/cookie"
	"github.com/emberwake/guildhall/pkg/httpserver"
	"github.com/emberwake/guildhall/pkg/logger"
	"github.com/emberwake/guildhall/pkg/pg"
	guildredis "github.com/emberwake/guildhall/pkg/redis"
	"github.com/emberwake/guildhall/pkg/session"
)

type appConfig struct {
	Log       logger.Config
	HTTP      httpserver.Config
	PG        pg.Config
	Redis     guildredis.Config
	Session   session.Config
	Battlenet battlenet.Config
	Gate      authgate.Config

	// CookieSecrets signs every gateway cookie; the first entry signs,
	// the rest still verify, so secrets rotate without logging users out.
	CookieSecrets []string `env:"COOKIE_SECRETS,required"`
}

// userStores are the persistence backends the gateway needs, plus the
// health checks for whichever external services are in play.
type userStores struct {
	users    auth.UserStore
	tokens   auth.TokenStore
	sessions session.Store
	checks   []func(context.Context) error
	close    func()
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.NewFromConfig(cfg.Log, logger.WithAttr(slog.String("app", "guildhall")))
	ctx := context.Background()

	stores, err := buildStores(ctx, cfg, log)
	if err != nil {
		log.ErrorContext(ctx, "storage init failed", logger.Error(err))
		os.Exit(1)
	}
	defer stores.close()

	cookies, err := cookie.New(cfg.CookieSecrets)
	if err != nil {
		log.ErrorContext(ctx, "cookie manager init failed", logger.Error(err))
		os.Exit(1)
	}

	sessions := session.NewManager(stores.sessions, cookies, cfg.Session)
	provider := battlenet.NewClient(cfg.Battlenet)

	gate := authgate.New(
		cfg.Gate,
		provider,
		stores.users,
		stores.tokens,
		sessions,
		cookies,
		authgate.WithServiceLogger(log),
	)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Mount("/", gate.Router())
	r.Get("/health", httpserver.HealthCheckHandler(ctx, log, stores.checks...))

	r.Get(cfg.Gate.LandingPath, handleLanding)
	r.Get(cfg.Gate.FailurePath, handleLoginFailed)

	r.Group(func(r chi.Router) {
		r.Use(gate.RequireAuth)
		r.Get("/me", func(w http.ResponseWriter, req *http.Request) {
			user, _ := authgate.UserFromContext(req.Context())
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_ = json.NewEncoder(w).Encode(user.Public())
		})
	})

	srv := httpserver.New(cfg.HTTP, log)
	if err := srv.Run(ctx, r); err != nil {
		log.ErrorContext(ctx, "server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// buildStores wires Postgres and Redis when configured, and falls back
// to in-memory stores when they are not, so a local checkout runs with
// nothing but provider credentials. In-memory state does not survive a
// restart; never deploy without both backends configured.
func buildStores(ctx context.Context, cfg appConfig, log *slog.Logger) (*userStores, error) {
	stores := &userStores{close: func() {}}

	if cfg.PG.ConnectionString != "" {
		pool, err := pg.Connect(ctx, cfg.PG)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		if err := pg.Migrate(ctx, pool, cfg.PG, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		store := postgres.New(pool)
		stores.users = store
		stores.tokens = store
		stores.checks = append(stores.checks, func(ctx context.Context) error { return pool.Ping(ctx) })
		stores.close = pool.Close
	} else {
		log.WarnContext(ctx, "PG_CONN_URL not set, using in-memory user store")
		memory := auth.NewMemoryStore()
		stores.users = memory
		stores.tokens = memory
	}

	if cfg.Redis.ConnectionURL != "" {
		client, err := guildredis.Connect(ctx, cfg.Redis)
		if err != nil {
			stores.close()
			return nil, fmt.Errorf("redis connect: %w", err)
		}
		stores.sessions = session.NewRedisStore(client)
		stores.checks = append(stores.checks, func(ctx context.Context) error { return client.Ping(ctx).Err() })
		closePool := stores.close
		stores.close = func() {
			_ = client.Close()
			closePool()
		}
	} else {
		log.WarnContext(ctx, "REDIS_URL not set, using in-memory session store")
		stores.sessions = session.NewMemoryStore(cfg.Session.CleanupInterval)
	}

	return stores, nil
}

// handleLanding is the minimal page behind the login redirect. A real
// frontend replaces this; it exists so a fresh checkout has somewhere
// to land.
func handleLanding(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!doctype html><title>Guildhall</title><h1>Guildhall</h1><p><a href="/login">Sign in with Battle.net</a></p>`)
}

func handleLoginFailed(w http.ResponseWriter, r *http.Request) {
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "unknown"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!doctype html><title>Login failed</title><h1>Login failed</h1><p>Reason: %s. <a href="/login">Try again</a>.</p>`, html.EscapeString(reason))
}
