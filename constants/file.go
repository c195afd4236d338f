package constants

import "strings"

// PDFMediaType is the only media type accepted for upload. The check is on
// the declared MIME type, not the file extension.
const PDFMediaType = "application/pdf"

// MaxUploadBytes is the upload size ceiling (10 MiB).
const MaxUploadBytes = 10 << 20

// MaxCellChars bounds a single CSV cell before quoting.
const MaxCellChars = 1000

// MaxFilenameLength is the longest original filename accepted.
const MaxFilenameLength = 255

// AllowedExtensions holds the file extensions accepted by the upload store.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt checks if a file extension is in the allowed set.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
