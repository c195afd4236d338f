package extract

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdftablepro/pdftab/internal/common"
	"github.com/pdftablepro/pdftab/internal/entity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testRequest() *entity.ExtractionRequest {
	return &entity.ExtractionRequest{
		Filename:  "report.pdf",
		MediaType: "application/pdf",
		Content:   []byte("%PDF-1.4 test"),
	}
}

const objectShapedBody = `{
	"success": true,
	"message": "Tables extracted successfully",
	"tables": [{
		"index": 0,
		"page": 2,
		"rows": 2,
		"columns": 2,
		"confidence": 0.97,
		"method": "pdfplumber",
		"headers": ["Name", "Amount"],
		"data": [
			{"Name": "Widget", "Amount": "12.50"},
			{"Name": "Gadget", "Amount": "8.00"}
		]
	}],
	"tables_found": 1,
	"confidence_score": 0.97,
	"extraction_method": "pdfplumber",
	"file_id": "abc-123",
	"processing_time": 0.06
}`

const gridShapedBody = `{
	"success": true,
	"tables": [{
		"index": 0,
		"page": 1,
		"rows": 1,
		"columns": 2,
		"confidence": 0.8,
		"method": "camelot",
		"data": [["Col A", "Col B"], ["1", "2"]]
	}],
	"tables_found": 1
}`

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewClient("", testLogger())
	require.Error(t, err)
}

func TestExtract_DecodesObjectShapedTables(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, http.MethodPost, r.Method)

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "report.pdf", hdr.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(objectShapedBody))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, testLogger())
	require.NoError(t, err)

	res, err := c.Extract(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, res.Tables, 1)

	table := res.Tables[0]
	assert.Equal(t, 2, table.Page)
	assert.Equal(t, 0.97, table.Confidence)
	assert.Equal(t, []string{"Name", "Amount"}, table.Headers)
	require.Len(t, table.Records, 2)
	assert.Equal(t, "Widget", table.Records[0]["Name"])
	assert.Equal(t, "8.00", table.Records[1]["Amount"])
	assert.Equal(t, "abc-123", res.FileID)
	assert.Equal(t, int32(1), calls.Load(), "exactly one attempt, no retry")
}

func TestExtract_CanonicalizesGridShapedTables(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(gridShapedBody))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, testLogger())
	require.NoError(t, err)

	res, err := c.Extract(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, res.Tables, 1)

	table := res.Tables[0]
	assert.Equal(t, []string{"Col A", "Col B"}, table.Headers)
	require.Len(t, table.Records, 1)
	assert.Equal(t, "1", table.Records[0]["Col A"])
	assert.Equal(t, "2", table.Records[0]["Col B"])
}

func TestExtract_Non2xxIsUniformFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"detail": "upstream exploded with secrets"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, testLogger())
	require.NoError(t, err)

	res, err := c.Extract(context.Background(), testRequest())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, common.ErrServer))

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, MsgExtractionFailed, appErr.Message)
	// server-provided detail never travels up
	assert.NotContains(t, appErr.Message, "secrets")
	assert.Equal(t, int32(1), calls.Load(), "no retry after failure")
}

func TestExtract_TransportErrorIsUniformFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c, err := NewClient(srv.URL, testLogger())
	require.NoError(t, err)

	_, err = c.Extract(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrTransport))

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, MsgExtractionFailed, appErr.Message)
}

func TestExtract_SchemaRejectsMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": "yes", "tables": {}}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, testLogger())
	require.NoError(t, err)

	_, err = c.Extract(context.Background(), testRequest())
	require.Error(t, err)
}

func TestDecodeResult_EmptyTables(t *testing.T) {
	res, err := DecodeResult([]byte(`{"success": false, "message": "No tables found in the PDF", "tables": [], "tables_found": 0}`))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, res.Tables)
	assert.Equal(t, 0, res.TablesFound)
}

func TestValidateAgainstSchema(t *testing.T) {
	schema := BuildExtractionResultSchema()

	err := ValidateAgainstSchema(schema, []byte(objectShapedBody))
	assert.NoError(t, err)

	err = ValidateAgainstSchema(schema, []byte(`{"tables": []}`))
	assert.Error(t, err, "success is required")
}
