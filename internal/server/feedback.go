package server

import (
	"encoding/json"
	"net/http"

	"github.com/pdftablepro/pdftab/internal/entity"
)

func (s *Server) handleFeedbackSubmit(w http.ResponseWriter, r *http.Request) {
	if s.feedback == nil {
		writeDetail(w, http.StatusNotImplemented, "Feedback is not configured")
		return
	}

	var fb entity.AccuracyFeedback
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid feedback payload")
		return
	}
	if err := s.feedback.Submit(r.Context(), fb); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (s *Server) handleFeedbackStats(w http.ResponseWriter, r *http.Request) {
	if s.feedback == nil {
		writeDetail(w, http.StatusNotImplemented, "Feedback is not configured")
		return
	}
	stats, err := s.feedback.Stats(r.Context())
	if err != nil {
		s.logger.Error("http.feedback.stats_failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "An error occurred processing your request")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSocialProof(w http.ResponseWriter, r *http.Request) {
	if s.feedback == nil {
		// No data is not an error for the landing page; just hide the badge.
		writeJSON(w, http.StatusOK, entity.SocialProof{ShowProof: false})
		return
	}
	proof, err := s.feedback.SocialProof(r.Context())
	if err != nil {
		s.logger.Error("http.social_proof.failed", "error", err)
		writeJSON(w, http.StatusOK, entity.SocialProof{ShowProof: false})
		return
	}
	writeJSON(w, http.StatusOK, proof)
}
