// Package security implements the gateway's content checks, upload store and
// rate limiting.
package security

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pdftablepro/pdftab/constants"
	"github.com/pdftablepro/pdftab/internal/common"
)

// pdfMagic is the header every well-formed PDF starts with. The scanner
// checks content, not just the declared type.
var pdfMagic = []byte("%PDF-")

// suspiciousPatterns are byte sequences that have no business inside a
// document a user wants tables out of.
var suspiciousPatterns = [][]byte{
	[]byte("eval("),
	[]byte("unescape("),
	[]byte("String.fromCharCode("),
	[]byte("document.write("),
	[]byte("ActiveXObject"),
	[]byte("WScript.Shell"),
	[]byte("cmd.exe"),
	[]byte("powershell"),
}

// dangerousFilenameFragments are rejected anywhere in an uploaded filename.
var dangerousFilenameFragments = []string{
	"..", "/", "\\", ":", "*", "?", `"`, "<", ">", "|", "\x00",
}

// Scanner runs content-level validation on uploaded bytes.
type Scanner struct {
	maxBytes int64
}

// NewScanner builds a scanner with the standard 10 MiB ceiling.
func NewScanner() *Scanner {
	return &Scanner{maxBytes: constants.MaxUploadBytes}
}

// ScanContent validates raw upload bytes: size, PDF magic header, suspicious
// patterns, and PDF-bomb heuristics.
func (s *Scanner) ScanContent(content []byte) error {
	if int64(len(content)) > s.maxBytes {
		return common.NewAppError("FILE_TOO_LARGE", "File too large (max 10MB)", common.ErrValidation)
	}
	if !bytes.HasPrefix(content, pdfMagic) {
		return common.NewAppError("NOT_A_PDF", "Invalid PDF file (missing PDF header)", common.ErrValidation)
	}

	for _, pattern := range suspiciousPatterns {
		if bytes.Contains(content, pattern) {
			return common.NewAppError("SUSPICIOUS_CONTENT",
				fmt.Sprintf("Suspicious content detected: %s", pattern), common.ErrSecurity)
		}
	}

	if warn := bombIndicator(content); warn != "" {
		return common.NewAppError("PDF_BOMB", warn, common.ErrSecurity)
	}
	return nil
}

// bombIndicator applies cheap heuristics for pathological inputs: extreme
// null-byte ratios and very large bodies drawing on a tiny byte alphabet.
func bombIndicator(content []byte) string {
	if len(content) == 0 {
		return ""
	}

	nulls := bytes.Count(content, []byte{0})
	if float64(nulls)/float64(len(content)) > 0.9 {
		return "High null byte ratio - potential PDF bomb"
	}

	if len(content) > 100000 {
		var seen [256]bool
		distinct := 0
		for _, b := range content {
			if !seen[b] {
				seen[b] = true
				distinct++
				if distinct >= 50 {
					return ""
				}
			}
		}
		return "Extremely repetitive content - potential PDF bomb"
	}
	return ""
}

// ValidateFilename rejects empty, overlong, traversal-prone or non-PDF
// filenames.
func ValidateFilename(filename string) error {
	if filename == "" {
		return common.NewAppError("FILENAME_EMPTY", "Filename cannot be empty", common.ErrValidation)
	}

	for _, fragment := range dangerousFilenameFragments {
		if strings.Contains(filename, fragment) {
			return common.NewAppError("FILENAME_UNSAFE",
				fmt.Sprintf("Invalid character in filename: %q", fragment), common.ErrValidation)
		}
	}

	base := filepath.Base(filename)
	if len(base) > constants.MaxFilenameLength {
		return common.NewAppError("FILENAME_TOO_LONG", "Filename too long", common.ErrValidation)
	}
	if !strings.HasSuffix(strings.ToLower(base), ".pdf") {
		return common.NewAppError("FILENAME_EXT", "File must have .pdf extension", common.ErrValidation)
	}
	return nil
}

// HashContent returns the SHA-256 of the upload as a hex string, used for
// integrity logging.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
