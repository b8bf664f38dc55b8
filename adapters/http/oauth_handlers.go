package authhttp

import (
	"errors"
	"net/http"
	"strings"

	oauthkit "github.com/PaulFidika/authcore/oauth"
	"github.com/PaulFidika/authcore/session"
)

func (s *Service) engine(r *http.Request) (oauthkit.Engine, oauthkit.ProviderID, error) {
	id, err := oauthkit.ParseProviderID(r.PathValue("provider"))
	if err != nil {
		return nil, "", err
	}
	e, err := s.providers.Client(id)
	if err != nil {
		return nil, id, err
	}
	return e, id, nil
}

func (s *Service) handleOAuthLoginGET(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLOAuthStart) {
		tooMany(w)
		return
	}
	e, _, err := s.engine(r)
	if err != nil {
		notFound(w, "unknown_provider")
		return
	}
	authURL, err := e.CreateAuthURL(s.jar(w, r))
	if err != nil {
		s.logger.Error("oauth login start failed", "provider", string(e.Provider()), "err", err)
		serverErr(w, "oauth_begin_failed")
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *Service) handleOAuthCallbackGET(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLOAuthCallback) {
		tooMany(w)
		return
	}
	e, id, err := s.engine(r)
	if err != nil {
		notFound(w, "unknown_provider")
		return
	}
	provider := string(id)

	q := r.URL.Query()
	if qErr := q.Get("error"); qErr != "" {
		s.metrics.callback(provider, "provider_error")
		s.logger.Warn("oauth provider returned error", "provider", provider,
			"error", qErr, "error_description", q.Get("error_description"))
		badRequest(w, "provider_error")
		return
	}
	code := q.Get("code")
	if code == "" {
		s.metrics.callback(provider, "invalid_request")
		badRequest(w, "invalid_request")
		return
	}

	jar := s.jar(w, r)
	ident, err := e.FetchUser(r.Context(), code, q.Get("state"), jar)
	if err != nil {
		status, errCode := errorCode(err)
		s.metrics.callback(provider, errCode)
		if status >= http.StatusInternalServerError {
			s.logger.Error("oauth callback failed", "provider", provider, "err", err)
		} else {
			s.logger.Warn("oauth callback rejected", "provider", provider, "err", err)
		}
		sendErr(w, status, errCode)
		return
	}

	user, err := s.resolver.ResolveUser(r.Context(), id, ident)
	if err != nil {
		if errors.Is(err, ErrAccessDenied) {
			s.metrics.callback(provider, "forbidden")
			forbidden(w, "forbidden")
			return
		}
		s.metrics.callback(provider, "server_error")
		s.logger.Error("identity resolution failed", "provider", provider, "err", err)
		serverErr(w, "identity_resolution_failed")
		return
	}

	if err := s.sessions.CreateUserSession(r.Context(), user, jar); err != nil {
		s.metrics.callback(provider, "session_failed")
		if session.IsInvalid(err) {
			s.logger.Error("resolver returned invalid session", "provider", provider, "err", err)
		} else {
			s.logger.Error("session create failed", "provider", provider, "err", err)
		}
		sendError(w, err)
		return
	}
	s.metrics.callback(provider, "ok")
	s.metrics.sessionOp("create")

	if s.postLoginURL == "" || wantsJSON(r) {
		writeJSON(w, http.StatusOK, user)
		return
	}
	http.Redirect(w, r, s.postLoginURL, http.StatusFound)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
