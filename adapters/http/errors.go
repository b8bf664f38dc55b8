package authhttp

import (
	"encoding/json"
	"errors"
	"net/http"

	oauthkit "github.com/PaulFidika/authcore/oauth"
	"github.com/PaulFidika/authcore/session"
)

// ErrAccessDenied is returned by an IdentityResolver to refuse a login.
var ErrAccessDenied = errors.New("authhttp: access denied")

type errResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendErr(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errResp{Error: code})
}

func badRequest(w http.ResponseWriter, code string)   { sendErr(w, http.StatusBadRequest, code) }
func unauthorized(w http.ResponseWriter, code string) { sendErr(w, http.StatusUnauthorized, code) }
func forbidden(w http.ResponseWriter, code string)    { sendErr(w, http.StatusForbidden, code) }
func serverErr(w http.ResponseWriter, code string)    { sendErr(w, http.StatusInternalServerError, code) }
func notFound(w http.ResponseWriter, code string)     { sendErr(w, http.StatusNotFound, code) }
func tooMany(w http.ResponseWriter)                   { sendErr(w, http.StatusTooManyRequests, "rate_limited") }

// errorCode maps a core error to its HTTP status and JSON code.
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, oauthkit.ErrConfiguration):
		return http.StatusNotFound, "unknown_provider"
	case errors.Is(err, oauthkit.ErrCSRF):
		return http.StatusBadRequest, "invalid_state"
	case errors.Is(err, oauthkit.ErrMissingVerifier):
		return http.StatusBadRequest, "missing_verifier"
	case errors.Is(err, oauthkit.ErrUpstreamValidation):
		return http.StatusBadGateway, "upstream_invalid"
	case errors.Is(err, session.ErrInvalidSession):
		return http.StatusBadRequest, "invalid_session"
	case errors.Is(err, ErrAccessDenied):
		return http.StatusForbidden, "forbidden"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}

func sendError(w http.ResponseWriter, err error) {
	status, code := errorCode(err)
	sendErr(w, status, code)
}
