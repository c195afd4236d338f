package export

import (
	"time"

	"github.com/pdftablepro/pdftab/internal/common"
	"github.com/pdftablepro/pdftab/internal/entity"
)

// Serialize dispatches on format and returns the bytes to download. now only
// feeds the JSON timestamp; the CSV and XLSX paths ignore it.
func Serialize(result *entity.ExtractionResult, format entity.ExportFormat, now time.Time) ([]byte, error) {
	var tables []entity.Table
	if result != nil {
		tables = result.Tables
	}

	switch format {
	case entity.FormatJSON:
		s, err := ToJSON(result, now)
		if err != nil {
			return nil, common.NewAppError("EXPORT_JSON", "json export failed", common.ErrSerialization)
		}
		return []byte(s), nil
	case entity.FormatXLSX:
		b, err := ToXLSX(tables)
		if err != nil {
			return nil, common.NewAppError("EXPORT_XLSX", "xlsx export failed", err)
		}
		return b, nil
	default:
		return []byte(ToCSV(tables)), nil
	}
}
