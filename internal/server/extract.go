package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdftablepro/pdftab/constants"
	"github.com/pdftablepro/pdftab/internal/auth"
	"github.com/pdftablepro/pdftab/internal/entity"
	"github.com/pdftablepro/pdftab/internal/export"
	"github.com/pdftablepro/pdftab/internal/security"
	"github.com/pdftablepro/pdftab/internal/upload"
)

// extractResponse is the gateway's answer to an upload: the extraction result
// plus where to fetch each export.
type extractResponse struct {
	*entity.ExtractionResult
	DownloadURLs map[string]string `json:"download_urls,omitempty"`
	Suggestions  []string          `json:"suggestions,omitempty"`
}

var noTablesSuggestions = []string{
	"Make sure the PDF contains actual tables, not images of tables",
	"Scanned documents may need OCR processing first",
	"Try a PDF where the table text can be selected",
}

// handleExtract accepts one multipart PDF upload, runs it through validation
// and the upstream extractor, and stores exports for later download.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadBytes+1024)
	if err := r.ParseMultipartForm(constants.MaxUploadBytes); err != nil {
		writeDetail(w, http.StatusRequestEntityTooLarge, upload.MsgTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, upload.MsgUploadFailed)
		return
	}

	if err := security.ValidateFilename(header.Filename); err != nil {
		writeError(w, err)
		return
	}

	candidate := entity.UploadCandidate{
		Filename:  header.Filename,
		MediaType: header.Header.Get("Content-Type"),
		Size:      header.Size,
		Content:   content,
	}
	req, err := upload.Validate(candidate)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.scanner.ScanContent(content); err != nil {
		s.logger.Warn("http.extract.scan_rejected",
			"filename", header.Filename, "ip", clientIP(r), "sha256", security.HashContent(content), "error", err)
		writeError(w, err)
		return
	}

	user, err := s.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	pages := estimatePages(content)
	if s.profiles != nil {
		if err := auth.CheckQuota(r.Context(), s.profiles, user, pages); err != nil {
			writeError(w, err)
			return
		}
	}

	fileID, err := s.store.Save(content)
	if err != nil {
		s.logger.Error("http.extract.store_failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "An error occurred processing your request")
		return
	}

	result, err := s.extractor.Extract(r.Context(), req)
	if err != nil {
		s.logger.Error("http.extract.upstream_failed", "file_id", fileID, "error", err)
		writeError(w, err)
		return
	}
	result.FileID = fileID

	if len(result.Tables) == 0 {
		result.Success = false
		result.Message = "No tables found in the PDF"
		writeJSON(w, http.StatusOK, extractResponse{
			ExtractionResult: result,
			Suggestions:      noTablesSuggestions,
		})
		return
	}

	urls, err := s.materializeExports(fileID, result)
	if err != nil {
		s.logger.Error("http.extract.export_failed", "file_id", fileID, "error", err)
		writeDetail(w, http.StatusInternalServerError, "An error occurred processing your request")
		return
	}

	if user != nil && s.profiles != nil {
		if err := s.profiles.AddUsage(r.Context(), user.ID, pages); err != nil {
			// Usage accounting must not fail the extraction the user paid for.
			s.logger.Warn("http.extract.usage_update_failed", "user_id", user.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, extractResponse{
		ExtractionResult: result,
		DownloadURLs:     urls,
	})
}

// authenticate resolves the optional bearer token. Anonymous access is
// allowed; a present-but-invalid token is not.
func (s *Server) authenticate(r *http.Request) (*auth.User, error) {
	if s.verifier == nil {
		return nil, nil
	}
	return s.verifier.UserFromRequest(r)
}

// materializeExports serializes the result in every supported format so any
// of them can be downloaded without re-running extraction.
func (s *Server) materializeExports(fileID string, result *entity.ExtractionResult) (map[string]string, error) {
	now := time.Now()
	urls := make(map[string]string, 3)
	for _, format := range []entity.ExportFormat{entity.FormatCSV, entity.FormatJSON, entity.FormatXLSX} {
		data, err := export.Serialize(result, format, now)
		if err != nil {
			return nil, err
		}
		if err := s.store.SaveExport(fileID, format, data); err != nil {
			return nil, err
		}
		urls[string(format)] = fmt.Sprintf("/download/%s?format=%s", fileID, format)
	}
	return urls, nil
}

// estimatePages counts page markers in the raw PDF for quota accounting.
// Always at least one.
func estimatePages(content []byte) int {
	pages := bytes.Count(content, []byte("/Type /Page")) - bytes.Count(content, []byte("/Type /Pages"))
	if compact := bytes.Count(content, []byte("/Type/Page")) - bytes.Count(content, []byte("/Type/Pages")); compact > pages {
		pages = compact
	}
	if pages < 1 {
		pages = 1
	}
	return pages
}
