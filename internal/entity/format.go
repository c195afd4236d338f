package entity

import (
	"fmt"
	"strings"
)

// ExportFormat selects the serialization for a download.
type ExportFormat string

// Stable values (accepted on the wire as query/form parameters).
const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
	FormatXLSX ExportFormat = "xlsx"
)

// ParseFormat normalizes a user-supplied format label. "excel" is accepted as
// an alias for xlsx.
func ParseFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv", "":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("invalid export format %q (allowed: csv, excel, json)", s)
}

// Ext returns the filename extension for the format, dot included.
func (f ExportFormat) Ext() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatXLSX:
		return ".xlsx"
	default:
		return ".csv"
	}
}

// MIMEType returns the content type served for the format.
func (f ExportFormat) MIMEType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}
