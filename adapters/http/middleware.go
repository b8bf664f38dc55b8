package authhttp

import (
	"context"
	"net/http"

	"github.com/PaulFidika/authcore/roles"
	"github.com/PaulFidika/authcore/session"
)

type userCtxKey struct{}

func withUser(ctx context.Context, u session.UserSession) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext returns the session user attached by Middleware.
func UserFromContext(ctx context.Context) (session.UserSession, bool) {
	u, ok := ctx.Value(userCtxKey{}).(session.UserSession)
	return u, ok
}

// Middleware loads the request's session, if any, slides its expiry and
// attaches the user to the request context. Requests without a session pass
// through untouched.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jar := s.jar(w, r)
		user, err := s.sessions.GetUserFromSession(r.Context(), jar)
		if err != nil {
			s.logger.Error("session lookup failed", "err", err)
			serverErr(w, "session_unavailable")
			return
		}
		s.metrics.sessionOp("get")
		if user == nil {
			next.ServeHTTP(w, r)
			return
		}
		if err := s.sessions.UpdateUserSessionExpiration(r.Context(), jar); err != nil {
			s.logger.Warn("session touch failed", "err", err)
		} else {
			s.metrics.sessionOp("touch")
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), *user)))
	})
}

// RequireSession rejects requests without a session user with 401. It must
// run inside Middleware.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			unauthorized(w, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole allows only session users holding one of allowed. It must run
// inside Middleware.
func RequireRole(allowed ...roles.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok {
				unauthorized(w, "unauthorized")
				return
			}
			for _, role := range allowed {
				if u.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			forbidden(w, "forbidden")
		})
	}
}
