package export

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdftablepro/pdftab/internal/entity"
)

func TestToJSON_EchoesClaimedDimensions(t *testing.T) {
	// Claimed dimensions deliberately disagree with the actual data: the
	// serializer trusts the table, it does not recount.
	table := sampleTable()
	table.Rows = 99
	table.Columns = 7

	result := &entity.ExtractionResult{
		Tables:         []entity.Table{table},
		Method:         "pdfplumber",
		ProcessingTime: 0.06,
	}

	s, err := ToJSON(result, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &doc))

	tables := doc["tables"].([]any)
	require.Len(t, tables, 1)
	dims := tables[0].(map[string]any)["dimensions"].(map[string]any)
	assert.Equal(t, float64(99), dims["rows"])
	assert.Equal(t, float64(7), dims["columns"])
}

func TestToJSON_EmptyResult(t *testing.T) {
	result := &entity.ExtractionResult{}
	s, err := ToJSON(result, time.Now())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &doc))
	assert.Equal(t, float64(0), doc["tables_count"])
	assert.Equal(t, []any{}, doc["tables"])
}

func TestToJSON_NilResultStillValidDocument(t *testing.T) {
	s, err := ToJSON(nil, time.Now())
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(s)))
}

func TestToJSON_TimestampAndMetadata(t *testing.T) {
	now := time.Date(2025, 6, 15, 9, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	result := &entity.ExtractionResult{
		Tables:         []entity.Table{sampleTable()},
		Method:         "camelot",
		FileID:         "f-1",
		ProcessingTime: 1.25,
	}

	s, err := ToJSON(result, now)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &doc))
	assert.Equal(t, "2025-06-15T07:30:00Z", doc["extracted_at"], "timestamp normalized to UTC ISO-8601")
	assert.Equal(t, 1.25, doc["processing_time"])
	assert.Equal(t, "camelot", doc["extraction_method"])
	assert.Equal(t, "f-1", doc["file_id"])
	assert.Equal(t, float64(1), doc["tables_count"])
}

func TestToJSON_SupersetOfCSV(t *testing.T) {
	table := sampleTable()
	result := &entity.ExtractionResult{Tables: []entity.Table{table}}

	s, err := ToJSON(result, time.Now())
	require.NoError(t, err)

	// Every cell value present in the CSV output also appears in the JSON.
	for _, rec := range table.Records {
		for _, v := range rec {
			assert.Contains(t, s, v)
		}
	}
	for _, h := range table.Headers {
		assert.Contains(t, s, h)
	}
}
