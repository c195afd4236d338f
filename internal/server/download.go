package server

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pdftablepro/pdftab/internal/download"
	"github.com/pdftablepro/pdftab/internal/entity"
	"github.com/pdftablepro/pdftab/internal/security"
)

// handleDownload streams a stored export with a timestamped attachment name.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if !security.IsValidFileID(fileID) {
		writeDetail(w, http.StatusBadRequest, "Invalid file ID")
		return
	}

	format, err := entity.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	path, err := s.store.ExportPath(fileID, format)
	if err != nil {
		writeError(w, err)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		s.logger.Error("http.download.open_failed", "file_id", fileID, "error", err)
		writeDetail(w, http.StatusNotFound, "File not found or expired")
		return
	}
	defer f.Close()

	name := download.Filename("extracted_tables", format, time.Now())
	w.Header().Set("Content-Type", format.MIMEType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, name))
	http.ServeContent(w, r, name, time.Time{}, f)
}

// handleCleanup removes an upload and its exports ahead of expiry.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if err := s.store.Cleanup(fileID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleaned", "file_id": fileID})
}
