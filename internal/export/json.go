package export

import (
	"encoding/json"
	"time"

	"github.com/pdftablepro/pdftab/internal/entity"
)

// jsonDocument wraps the full extraction result for download. JSON is the
// superset representation: nothing present in the CSV output is dropped here.
type jsonDocument struct {
	ExtractedAt    string      `json:"extracted_at"`
	ProcessingTime float64     `json:"processing_time"`
	Method         string      `json:"extraction_method"`
	FileID         string      `json:"file_id,omitempty"`
	TablesCount    int         `json:"tables_count"`
	Tables         []jsonTable `json:"tables"`
}

type jsonTable struct {
	Index      int                 `json:"index"`
	Page       int                 `json:"page"`
	Confidence float64             `json:"confidence"`
	Method     string              `json:"method,omitempty"`
	Dimensions jsonDimensions      `json:"dimensions"`
	Headers    []string            `json:"headers"`
	Data       []map[string]string `json:"data"`
}

type jsonDimensions struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// ToJSON renders the result as an indented JSON document with an ISO-8601
// extraction timestamp. The echoed dimensions come straight from each table's
// own row/column counts; they are not recomputed from the data.
func ToJSON(result *entity.ExtractionResult, now time.Time) (string, error) {
	doc := jsonDocument{
		ExtractedAt: now.UTC().Format(time.RFC3339),
		Tables:      []jsonTable{},
	}
	if result != nil {
		doc.ProcessingTime = result.ProcessingTime
		doc.Method = result.Method
		doc.FileID = result.FileID
		doc.TablesCount = len(result.Tables)
		for _, t := range result.Tables {
			headers := t.Headers
			if headers == nil {
				headers = []string{}
			}
			records := t.Records
			if records == nil {
				records = []map[string]string{}
			}
			doc.Tables = append(doc.Tables, jsonTable{
				Index:      t.Index,
				Page:       t.Page,
				Confidence: t.Confidence,
				Method:     t.Method,
				Dimensions: jsonDimensions{Rows: t.Rows, Columns: t.Columns},
				Headers:    headers,
				Data:       records,
			})
		}
	}

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		// Degrade to a placeholder document rather than failing the
		// download.
		return `{"tables_count": 0, "tables": [], "error": "` + PlaceholderNoData + `"}`, nil
	}
	return string(b), nil
}
