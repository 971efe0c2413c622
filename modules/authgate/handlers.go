package authgate

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/emberwake/guildhall/pkg/auth"
	"github.com/emberwake/guildhall/pkg/battlenet"
	"github.com/emberwake/guildhall/pkg/logger"
)

// handleLogin issues a fresh state nonce and redirects the browser to
// the provider's authorization page. The optional debug_channel
// parameter restricts which fallback channel the callback will bind,
// so each recovery path can be exercised in isolation. It is only
// honored on deployments already running with RelaxedState; production
// callers cannot use it to weaken their own binds.
func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	returnPath := sanitizeReturnPath(r.URL.Query().Get("return"))

	var debugChannel string
	if s.config.RelaxedState {
		debugChannel = r.URL.Query().Get("debug_channel")
		if debugChannel != ChannelCookie && debugChannel != ChannelToken {
			debugChannel = ""
		}
	}

	nonce, err := s.state.Issue(ctx, w, r, returnPath, debugChannel)
	if err != nil {
		s.log.ErrorContext(ctx, "state issue failed", logger.Error(err), logger.Component("authgate"))
		http.Error(w, "login temporarily unavailable", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, s.provider.AuthCodeURL(nonce), http.StatusFound)
}

// handleCallback finishes the OAuth flow: validate state, exchange the
// code, fetch the profile, resolve the identity, then bind every
// channel. Nothing is committed until resolution fully succeeds, so an
// aborted flow leaves the caller exactly as authenticated as before.
func (s *Service) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if provErr := q.Get("error"); provErr != "" {
		s.log.WarnContext(ctx, "provider returned error on callback",
			slog.String("provider_error", provErr), logger.Component("authgate"))
		s.redirectFailure(w, r, ReasonProviderError)
		return
	}

	code := q.Get("code")
	if code == "" {
		s.redirectFailure(w, r, ReasonNoCode)
		return
	}

	returnPath, debugChannel, err := s.state.Validate(ctx, w, r, q.Get("state"))
	if err != nil {
		s.log.WarnContext(ctx, "state validation failed", logger.Error(err), logger.Component("authgate"))
		s.redirectFailure(w, r, ReasonStateMismatch)
		return
	}

	token, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.log.ErrorContext(ctx, "code exchange failed",
			logger.Error(err),
			slog.Bool("transient", battlenet.IsTransient(err)),
			logger.Component("authgate"),
		)
		s.redirectFailure(w, r, ReasonProviderError)
		return
	}

	profile, err := s.provider.FetchProfile(ctx, token.AccessToken)
	if err != nil {
		if errors.Is(err, battlenet.ErrNoSubject) {
			s.log.ErrorContext(ctx, "profile missing subject id", logger.Error(err), logger.Component("authgate"))
			s.redirectFailure(w, r, ReasonResolveFailed)
			return
		}
		s.log.ErrorContext(ctx, "profile fetch failed", logger.Error(err), logger.Component("authgate"))
		s.redirectFailure(w, r, ReasonProviderError)
		return
	}

	user, err := s.identity.Resolve(ctx, profile, token)
	if err != nil {
		s.log.ErrorContext(ctx, "identity resolution failed", logger.Error(err), logger.Component("authgate"))
		s.redirectFailure(w, r, ReasonResolveFailed)
		return
	}

	var bindErr error
	if debugChannel != "" {
		s.log.InfoContext(ctx, "debug login: binding restricted channel set",
			logger.Channel(debugChannel), logger.UserID(user.ID), logger.Component("authgate"))
		bindErr = s.binder.BindOnly(ctx, w, r, user, ChannelSession, debugChannel)
	} else {
		bindErr = s.binder.BindAll(ctx, w, r, user)
	}
	if bindErr != nil {
		s.log.ErrorContext(ctx, "identity bind failed on callback",
			logger.UserID(user.ID), logger.Error(bindErr), logger.Component("authgate"))
		s.redirectFailure(w, r, ReasonResolveFailed)
		return
	}

	// The recovery marker plus the uid parameter in the redirect let the
	// landing request identify the user even if the browser dropped the
	// cookies we just set.
	if err := s.recovery.Write(ctx, w, r, user); err != nil {
		s.log.WarnContext(ctx, "recovery marker write failed",
			logger.UserID(user.ID), logger.Error(err), logger.Component("authgate"))
	}

	dest := returnPath
	if dest == "" {
		dest = s.config.LandingPath
	}
	dest = appendQueryParam(dest, s.config.RecoveryParam, strconv.FormatInt(user.ID, 10))

	s.log.InfoContext(ctx, "login completed",
		logger.UserID(user.ID), logger.Provider("battlenet"), logger.Component("authgate"))
	http.Redirect(w, r, dest, http.StatusFound)
}

// handleStatus reports whether the request is authenticated, with the
// public view of the user when it is.
func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	user, err := s.current.Current(r.Context(), w, r)
	if err != nil {
		if !errors.Is(err, ErrAnonymous) {
			s.log.ErrorContext(r.Context(), "status resolution failed",
				logger.Error(err), logger.Component("authgate"))
		}
		writeJSON(w, http.StatusOK, statusResponse{Authenticated: false})
		return
	}

	pub := user.Public()
	writeJSON(w, http.StatusOK, statusResponse{Authenticated: true, User: &pub})
}

// handleLogout clears every identity channel and the server-side
// sessions and tokens of the caller. JSON clients get the result
// report; browsers get redirected to the landing page.
func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := s.current.Current(ctx, w, r)
	if err != nil {
		user = nil
	}

	result := s.logout.All(ctx, w, r, user)
	if !result.OK() {
		s.log.WarnContext(ctx, "logout finished with partial failures",
			slog.Int("failed_channels", len(result.PartialFailures)),
			logger.Component("authgate"),
		)
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, logoutResponse{OK: result.OK(), PartialFailures: result.PartialFailures})
		return
	}
	http.Redirect(w, r, s.config.LandingPath, http.StatusFound)
}

type statusResponse struct {
	Authenticated bool             `json:"authenticated"`
	User          *auth.PublicUser `json:"user,omitempty"`
}

type logoutResponse struct {
	OK              bool             `json:"ok"`
	PartialFailures []ChannelFailure `json:"partial_failures,omitempty"`
}

// redirectFailure sends the browser to the failure page with a coarse
// reason code. Provider error details stay in the logs.
func (s *Service) redirectFailure(w http.ResponseWriter, r *http.Request, reason string) {
	dest := appendQueryParam(s.config.FailurePath, "reason", reason)
	http.Redirect(w, r, dest, http.StatusFound)
}

// sanitizeReturnPath keeps redirects on-site: only absolute local paths
// survive, everything else falls back to the landing page default.
func sanitizeReturnPath(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
		return ""
	}
	if strings.ContainsAny(p, "\r\n") {
		return ""
	}
	return p
}

func appendQueryParam(dest, key, value string) string {
	sep := "?"
	if strings.Contains(dest, "?") {
		sep = "&"
	}
	return dest + sep + key + "=" + url.QueryEscape(value)
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
