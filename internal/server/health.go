package server

import (
	"net/http"

	"github.com/pdftablepro/pdftab/constants"
)

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "pdftab",
		"status":  "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"files_stored": s.store.Count(),
	})
}

// handleSecurityStatus reports the active protections without exposing
// tunables an attacker could use.
func (s *Server) handleSecurityStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"max_file_size_mb": constants.MaxUploadBytes >> 20,
		"allowed_types":    []string{constants.PDFMediaType},
		"content_scanning": true,
		"rate_limiting":    true,
		"file_expiry":      true,
	})
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"auth_enabled": s.verifier != nil,
	})
}

// handleAuthVerify validates the caller's bearer token and echoes back the
// identity plus current quota standing.
func (s *Server) handleAuthVerify(w http.ResponseWriter, r *http.Request) {
	if s.verifier == nil {
		writeDetail(w, http.StatusNotImplemented, "Authentication is not configured")
		return
	}
	user, err := s.verifier.UserFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		writeDetail(w, http.StatusUnauthorized, "Missing bearer token")
		return
	}

	body := map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
	}
	if s.profiles != nil {
		tier, usedToday, usedMonth, err := s.profiles.Usage(r.Context(), user.ID)
		if err == nil {
			body["tier"] = tier
			body["pages_used_today"] = usedToday
			body["pages_used_month"] = usedMonth
		}
	}
	writeJSON(w, http.StatusOK, body)
}
