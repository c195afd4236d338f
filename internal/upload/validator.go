// Package upload validates user-selected files before they are handed to the
// extraction client. Validation is synchronous and local; nothing here
// touches the network.
package upload

import (
	"github.com/pdftablepro/pdftab/constants"
	"github.com/pdftablepro/pdftab/internal/common"
	"github.com/pdftablepro/pdftab/internal/entity"
)

// Rejection reasons surfaced to the user verbatim.
const (
	MsgInvalidType  = "Invalid file type. Please upload a PDF file."
	MsgTooLarge     = "File is too large. Maximum size is 10MB."
	MsgUploadFailed = "Upload failed. Please try again."
)

// RejectionError carries the human-readable reason a candidate was refused.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string { return e.Reason }

func (e *RejectionError) Unwrap() error { return common.ErrValidation }

// Reject constructs a RejectionError, substituting the generic fallback when
// no specific reason applies.
func Reject(reason string) *RejectionError {
	if reason == "" {
		reason = MsgUploadFailed
	}
	return &RejectionError{Reason: reason}
}

// First picks the single candidate to validate when several files were
// offered at once. Only the first is considered; the rest are ignored, not
// queued.
func First(candidates []entity.UploadCandidate) (entity.UploadCandidate, bool) {
	if len(candidates) == 0 {
		return entity.UploadCandidate{}, false
	}
	return candidates[0], true
}

// Validate checks a candidate against the type and size constraints and
// returns the request to hand to the extraction client. The media type check
// is exact: the declared MIME type must be application/pdf, regardless of
// extension. Size is capped at 10 MiB.
func Validate(c entity.UploadCandidate) (*entity.ExtractionRequest, error) {
	if c.MediaType != constants.PDFMediaType {
		return nil, Reject(MsgInvalidType)
	}

	size := c.Size
	if size == 0 {
		size = int64(len(c.Content))
	}
	if size > constants.MaxUploadBytes {
		return nil, Reject(MsgTooLarge)
	}

	if len(c.Content) == 0 {
		return nil, Reject("")
	}

	return &entity.ExtractionRequest{
		Filename:  c.Filename,
		MediaType: c.MediaType,
		Content:   c.Content,
	}, nil
}
