package authgate

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/emberwake/guildhall/pkg/logger"
)

// RequireAuth rejects anonymous requests before the wrapped handler
// runs. The response never says which channel failed or existed; an
// unauthenticated caller learns only that authentication is required.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.current.Current(r.Context(), w, r)
		if err != nil {
			if !errors.Is(err, ErrAnonymous) {
				s.log.ErrorContext(r.Context(), "current user resolution failed",
					logger.Error(err), logger.Component("authgate"))
			}
			if wantsJSON(r) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
				return
			}
			http.Redirect(w, r, "/login?return="+url.QueryEscape(r.URL.Path), http.StatusFound)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}
