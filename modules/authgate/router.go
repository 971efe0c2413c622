package authgate

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router returns the gateway's HTTP surface, ready to mount.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/login", s.handleLogin)
	r.Get("/callback", s.handleCallback)
	r.Get("/auth/status", s.handleStatus)
	r.Get("/logout", s.handleLogout)
	r.Post("/logout", s.handleLogout)

	return r
}
