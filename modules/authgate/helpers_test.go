package authgate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emberwake/guildhall/pkg/auth"
	"github.com/emberwake/guildhall/pkg/battlenet"
	"github.com/emberwake/guildhall/pkg/cookie"
	"github.com/emberwake/guildhall/pkg/session"
)

const testCookieSecret = "this-is-a-very-long-secret-key-32-chars-long"

// fakeProvider implements ProviderClient with scripted responses.
type fakeProvider struct {
	token       battlenet.Token
	exchangeErr error
	profile     battlenet.Profile
	profileErr  error
}

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.test/authorize?state=" + state
}

func (f *fakeProvider) Exchange(ctx context.Context, code string) (battlenet.Token, error) {
	if f.exchangeErr != nil {
		return battlenet.Token{}, f.exchangeErr
	}
	return f.token, nil
}

func (f *fakeProvider) FetchProfile(ctx context.Context, accessToken string) (battlenet.Profile, error) {
	if f.profileErr != nil {
		return battlenet.Profile{}, f.profileErr
	}
	return f.profile, nil
}

func defaultFakeProvider() *fakeProvider {
	return &fakeProvider{
		token: battlenet.Token{
			AccessToken:  "at-1",
			RefreshToken: "rt-1",
			Expiry:       time.Now().Add(time.Hour),
		},
		profile: battlenet.Profile{
			SubjectID: "subject-1",
			Handle:    "Foo#1111",
			Locale:    "en_GB",
		},
	}
}

type testEnv struct {
	service  *Service
	provider *fakeProvider
	store    *auth.MemoryStore
	sessions *session.Manager
	cookies  *cookie.Manager
	config   Config
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	cookies, err := cookie.New([]string{testCookieSecret})
	require.NoError(t, err)

	sessCfg := session.DefaultConfig()
	sessCfg.CleanupInterval = 0
	sessions := session.NewManager(session.NewMemoryStore(0), cookies, sessCfg)

	store := auth.NewMemoryStore()
	provider := defaultFakeProvider()

	svc := New(cfg, provider, store, store, sessions, cookies)

	return &testEnv{
		service:  svc,
		provider: provider,
		store:    store,
		sessions: sessions,
		cookies:  cookies,
		config:   cfg,
	}
}

// jar is a minimal cookie jar for chaining recorded responses into
// follow-up requests.
type jar map[string]*http.Cookie

func newJar() jar { return make(jar) }

func (j jar) absorb(w *httptest.ResponseRecorder) {
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(j, c.Name)
			continue
		}
		j[c.Name] = c
	}
}

func (j jar) request(method, target string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	for _, c := range j {
		r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return r
}

func (j jar) drop(name string) { delete(j, name) }

// seedTestUser creates a user directly in the store.
func seedTestUser(t *testing.T, store *auth.MemoryStore, battleTag string) *auth.User {
	t.Helper()
	user := &auth.User{
		ProviderID:  "seed-" + battleTag,
		BattleTag:   battleTag,
		Email:       battleTag + "@login.invalid",
		AccessToken: "at-seed",
		TokenExpiry: time.Now().Add(time.Hour),
		CreatedAt:   time.Now(),
	}
	require.NoError(t, store.Create(context.Background(), user))
	return user
}
