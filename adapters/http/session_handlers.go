package authhttp

import "net/http"

func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLAuthLogout) {
		tooMany(w)
		return
	}
	if err := s.sessions.RemoveUserFromSession(r.Context(), s.jar(w, r)); err != nil {
		s.logger.Error("logout failed", "err", err)
		serverErr(w, "failed_to_logout")
		return
	}
	s.metrics.sessionOp("remove")
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) handleSessionGET(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		unauthorized(w, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
