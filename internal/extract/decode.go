package extract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/pdftablepro/pdftab/internal/entity"
)

// The endpoint has shipped two table shapes over time: row data as a list of
// header-keyed objects, and row data as a raw 2-D grid whose first row is the
// header. Both decode into the one canonical shape (header-keyed records).

type wireResult struct {
	Success        bool        `json:"success"`
	Message        string      `json:"message"`
	Tables         []wireTable `json:"tables"`
	TablesFound    int         `json:"tables_found"`
	Confidence     float64     `json:"confidence_score"`
	Method         string      `json:"extraction_method"`
	FileID         string      `json:"file_id"`
	ProcessingTime float64     `json:"processing_time"`
}

type wireTable struct {
	Index      int             `json:"index"`
	Page       int             `json:"page"`
	Rows       int             `json:"rows"`
	Columns    int             `json:"columns"`
	Confidence float64         `json:"confidence"`
	Method     string          `json:"method"`
	Headers    []string        `json:"headers"`
	Data       json.RawMessage `json:"data"`
}

// DecodeResult parses a success response body into the canonical result.
func DecodeResult(raw []byte) (*entity.ExtractionResult, error) {
	var wr wireResult
	if err := json.Unmarshal(raw, &wr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	result := &entity.ExtractionResult{
		Success:        wr.Success,
		Message:        wr.Message,
		TablesFound:    wr.TablesFound,
		Confidence:     wr.Confidence,
		Method:         wr.Method,
		FileID:         wr.FileID,
		ProcessingTime: wr.ProcessingTime,
	}

	result.Tables = make([]entity.Table, 0, len(wr.Tables))
	for i, wt := range wr.Tables {
		table, err := decodeTable(wt)
		if err != nil {
			return nil, fmt.Errorf("decode table %d: %w", i, err)
		}
		result.Tables = append(result.Tables, table)
	}
	return result, nil
}

func decodeTable(wt wireTable) (entity.Table, error) {
	t := entity.Table{
		Index:      wt.Index,
		Page:       wt.Page,
		Rows:       wt.Rows,
		Columns:    wt.Columns,
		Confidence: wt.Confidence,
		Method:     wt.Method,
		Headers:    wt.Headers,
	}

	if len(wt.Data) == 0 || string(wt.Data) == "null" {
		t.Records = []map[string]string{}
		return t, nil
	}

	// Object-shaped rows first; this is the canonical wire form.
	var records []map[string]any
	if err := json.Unmarshal(wt.Data, &records); err == nil {
		t.Records = make([]map[string]string, 0, len(records))
		for _, rec := range records {
			row := make(map[string]string, len(rec))
			for k, v := range rec {
				row[k] = stringify(v)
			}
			t.Records = append(t.Records, row)
		}
		if len(t.Headers) == 0 && len(records) > 0 {
			t.Headers = headersFromRecord(records[0])
		}
		return t, nil
	}

	// Legacy shape: raw 2-D grid, first row is the header.
	var grid [][]any
	if err := json.Unmarshal(wt.Data, &grid); err != nil {
		return t, fmt.Errorf("unrecognized table data shape: %w", err)
	}
	if len(grid) == 0 {
		t.Records = []map[string]string{}
		return t, nil
	}

	headers := make([]string, len(grid[0]))
	for i, cell := range grid[0] {
		headers[i] = stringify(cell)
	}
	if len(t.Headers) == 0 {
		t.Headers = headers
	}

	t.Records = make([]map[string]string, 0, len(grid)-1)
	for _, row := range grid[1:] {
		rec := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				rec[h] = stringify(row[i])
			} else {
				rec[h] = ""
			}
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

// headersFromRecord recovers a stable column order when the endpoint sent
// object rows without an explicit header list.
func headersFromRecord(rec map[string]any) []string {
	headers := make([]string, 0, len(rec))
	for k := range rec {
		headers = append(headers, k)
	}
	sort.Strings(headers)
	return headers
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	}
}
