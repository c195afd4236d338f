// Package export serializes extraction results for download. The CSV and
// JSON serializers are pure functions; the XLSX serializer produces a real
// workbook via excelize.
package export

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pdftablepro/pdftab/constants"
	"github.com/pdftablepro/pdftab/internal/entity"
)

// PlaceholderNoData is emitted instead of failing when there is nothing to
// serialize. A failed serialization must never break the download action.
const PlaceholderNoData = "No data available"

// ToCSV renders tables as RFC 4180 CSV: every cell quoted, quotes doubled,
// comma delimiter, UTF-8 without BOM. When more than one table is present,
// each is preceded by a separator line carrying its index, source page and
// confidence percentage. Deterministic: same input, same bytes.
func ToCSV(tables []entity.Table) string {
	if len(tables) == 0 {
		return quoteCell(PlaceholderNoData) + "\n"
	}

	var sb strings.Builder
	for i, table := range tables {
		if i > 0 {
			sb.WriteString("\n")
		}
		if len(tables) > 1 {
			sb.WriteString(quoteCell(tableSeparator(i, table)))
			sb.WriteString("\n")
		}
		writeTableCSV(&sb, table)
	}
	return sb.String()
}

func tableSeparator(i int, table entity.Table) string {
	return fmt.Sprintf("Table %d (Page %d, Confidence: %.1f%%)", i+1, table.Page, table.Confidence*100)
}

func writeTableCSV(sb *strings.Builder, table entity.Table) {
	headers := table.Headers
	if len(headers) == 0 && len(table.Records) > 0 {
		// Malformed table without a header list: fall back to whatever the
		// first record exposes so the rows are still usable. Sorted, so the
		// output stays deterministic.
		for k := range table.Records[0] {
			headers = append(headers, k)
		}
		sort.Strings(headers)
	}

	if len(headers) == 0 || len(table.Records) == 0 {
		sb.WriteString(quoteCell(PlaceholderNoData))
		sb.WriteString("\n")
		return
	}

	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = quoteCell(truncateCell(h))
	}
	sb.WriteString(strings.Join(cells, ","))
	sb.WriteString("\n")

	for _, rec := range table.Records {
		for i, h := range headers {
			cells[i] = quoteCell(truncateCell(rec[h]))
		}
		sb.WriteString(strings.Join(cells, ","))
		sb.WriteString("\n")
	}
}

// truncateCell bounds a cell before quoting. The cut is backed off to a rune
// boundary so a multibyte character is never split into invalid UTF-8.
func truncateCell(s string) string {
	if len(s) <= constants.MaxCellChars {
		return s
	}
	cut := constants.MaxCellChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// quoteCell wraps a value in double quotes, doubling embedded quotes.
func quoteCell(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
