package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pdftablepro/pdftab/internal/common"
	"github.com/pdftablepro/pdftab/internal/upload"
)

// detailBody mirrors the error envelope clients already parse: a single
// human-readable detail string.
type detailBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailBody{Detail: detail})
}

// writeError maps an application error onto an HTTP status and the detail
// envelope. Internal causes are never leaked; callers log them.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrSecurity):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, common.ErrTransport), errors.Is(err, common.ErrServer):
		status = http.StatusBadGateway
	}

	detail := "An error occurred processing your request"
	var appErr *common.AppError
	var rejection *upload.RejectionError
	switch {
	case errors.As(err, &appErr):
		detail = appErr.Message
	case errors.As(err, &rejection):
		detail = rejection.Reason
	}
	writeDetail(w, status, detail)
}
