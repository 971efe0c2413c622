package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberwake/guildhall/pkg/cookie"
)

const (
	testSecret    = "this-is-a-very-long-secret-key-32-chars-long"
	oldTestSecret = "this-is-old-very-long-secret-key-32-chars-ok"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		secrets []string
		wantErr error
	}{
		{name: "no secrets", secrets: []string{}, wantErr: cookie.ErrNoSecret},
		{name: "empty secrets", secrets: []string{"", ""}, wantErr: cookie.ErrNoSecret},
		{name: "secret too short", secrets: []string{"short"}, wantErr: cookie.ErrSecretTooShort},
		{name: "valid secret", secrets: []string{testSecret}},
		{name: "rotation pair", secrets: []string{testSecret, oldTestSecret}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := cookie.New(tt.secrets)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func requestWithCookies(t *testing.T, w *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestManager_SetGet(t *testing.T) {
	t.Parallel()

	m, err := cookie.New([]string{testSecret})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	m.Set(w, "plain", "hello")

	got, err := m.Get(requestWithCookies(t, w), "plain")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = m.Get(requestWithCookies(t, w), "missing")
	assert.ErrorIs(t, err, cookie.ErrCookieNotFound)
}

func TestManager_Signed(t *testing.T) {
	t.Parallel()

	m, err := cookie.New([]string{testSecret})
	require.NoError(t, err)

	t.Run("roundtrip", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		m.SetSigned(w, "signed", "user-42")

		got, err := m.GetSigned(requestWithCookies(t, w), "signed")
		require.NoError(t, err)
		assert.Equal(t, "user-42", got)
	})

	t.Run("tampered value rejected", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		m.SetSigned(w, "signed", "user-42")

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		for _, c := range w.Result().Cookies() {
			encoded, sig, ok := strings.Cut(c.Value, "|")
			require.True(t, ok)
			// Swap in a different payload while keeping the signature.
			c.Value = strings.Repeat("A", len(encoded)) + "|" + sig
			r.AddCookie(c)
		}

		_, err := m.GetSigned(r, "signed")
		require.Error(t, err)
	})

	t.Run("garbage format rejected", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "signed", Value: "no-separator-here"})

		_, err := m.GetSigned(r, "signed")
		assert.ErrorIs(t, err, cookie.ErrInvalidFormat)
	})

	t.Run("forged with wrong secret rejected", func(t *testing.T) {
		t.Parallel()

		forger, err := cookie.New([]string{"attacker-controlled-secret-key-32-chars!"})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		forger.SetSigned(w, "signed", "user-1")

		_, err = m.GetSigned(requestWithCookies(t, w), "signed")
		assert.ErrorIs(t, err, cookie.ErrInvalidSignature)
	})
}

func TestManager_SecretRotation(t *testing.T) {
	t.Parallel()

	oldManager, err := cookie.New([]string{oldTestSecret})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	oldManager.SetSigned(w, "signed", "survives-rotation")

	// New deployment signs with a fresh secret but keeps the old one for
	// verification.
	rotated, err := cookie.New([]string{testSecret, oldTestSecret})
	require.NoError(t, err)

	got, err := rotated.GetSigned(requestWithCookies(t, w), "signed")
	require.NoError(t, err)
	assert.Equal(t, "survives-rotation", got)

	// Once the old secret is dropped entirely, the cookie dies.
	final, err := cookie.New([]string{testSecret})
	require.NoError(t, err)

	_, err = final.GetSigned(requestWithCookies(t, w), "signed")
	assert.ErrorIs(t, err, cookie.ErrInvalidSignature)
}

func TestManager_Delete(t *testing.T) {
	t.Parallel()

	m, err := cookie.New([]string{testSecret})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	m.Delete(w, "gone")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "gone", cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
