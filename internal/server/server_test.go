package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdftablepro/pdftab/constants"
	"github.com/pdftablepro/pdftab/internal/common"
	"github.com/pdftablepro/pdftab/internal/entity"
	"github.com/pdftablepro/pdftab/internal/repository"
	"github.com/pdftablepro/pdftab/internal/security"
	"github.com/pdftablepro/pdftab/internal/upload"
)

type cannedExtractor struct {
	result *entity.ExtractionResult
	err    error
	calls  int
}

func (c *cannedExtractor) Extract(_ context.Context, _ *entity.ExtractionRequest) (*entity.ExtractionResult, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

func tableResult() *entity.ExtractionResult {
	return &entity.ExtractionResult{
		Success: true,
		Tables: []entity.Table{{
			Page:    1,
			Rows:    2,
			Columns: 2,
			Headers: []string{"Name", "Amount"},
			Records: []map[string]string{
				{"Name": "Widget", "Amount": "9.50"},
				{"Name": "Gadget", "Amount": "12.00"},
			},
		}},
		TablesFound: 1,
	}
}

func newTestServer(t *testing.T, ex Extractor, opts ...Option) *Server {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	store, err := security.NewFileStore(t.TempDir(), time.Hour, logger)
	require.NoError(t, err)
	return New(":0", ex, store, logger, opts...)
}

func multipartPDF(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(partHeader(filename))
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// partHeader builds the multipart part header with an explicit PDF content
// type, which the validator checks.
func partHeader(filename string) textproto.MIMEHeader {
	return textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="file"; filename="` + filename + `"`},
		"Content-Type":        {constants.PDFMediaType},
	}
}

func doExtract(t *testing.T, s *Server, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartPDF(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestExtract_SuccessStoresExports(t *testing.T) {
	ex := &cannedExtractor{result: tableResult()}
	s := newTestServer(t, ex)

	rec := doExtract(t, s, "invoice.pdf", []byte("%PDF-1.4 table data"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	fileID, _ := body["file_id"].(string)
	require.True(t, security.IsValidFileID(fileID))

	urls, ok := body["download_urls"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, urls, 3)

	// The CSV export is immediately downloadable.
	req := httptest.NewRequest(http.MethodGet, "/download/"+fileID+"?format=csv", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Body.String(), `"Widget","9.50"`)
}

func TestExtract_NoFilePart(t *testing.T) {
	s := newTestServer(t, &cannedExtractor{result: tableResult()})
	req := httptest.NewRequest(http.MethodPost, "/extract", bytes.NewBufferString("x"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=zzz")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestExtract_RejectsNonPDFContent(t *testing.T) {
	ex := &cannedExtractor{result: tableResult()}
	s := newTestServer(t, ex)

	rec := doExtract(t, s, "fake.pdf", []byte("PK\x03\x04 zip bytes"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, ex.calls, "rejected content never reaches the extractor")
}

func TestExtract_RejectsSuspiciousContent(t *testing.T) {
	ex := &cannedExtractor{result: tableResult()}
	s := newTestServer(t, ex)

	rec := doExtract(t, s, "evil.pdf", []byte("%PDF-1.4 eval(payload)"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 0, ex.calls)
}

func TestExtract_RejectsUnsafeFilename(t *testing.T) {
	ex := &cannedExtractor{result: tableResult()}
	s := newTestServer(t, ex)

	// Path separators never survive multipart parsing (the stdlib applies
	// filepath.Base to part filenames), so exercise a dangerous character
	// that does.
	rec := doExtract(t, s, "in*voice.pdf", []byte("%PDF-1.4"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, ex.calls)
}

func TestExtract_TraversalFilenameArrivesSanitized(t *testing.T) {
	ex := &cannedExtractor{result: tableResult()}
	s := newTestServer(t, ex)

	// The traversal prefix is stripped to "passwd.pdf" before the handler
	// sees it; the request proceeds as a normal upload.
	rec := doExtract(t, s, "../../etc/passwd.pdf", []byte("%PDF-1.4"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ex.calls)
}

func TestExtract_WrongTypeDetailSurfaced(t *testing.T) {
	ex := &cannedExtractor{result: tableResult()}
	s := newTestServer(t, ex)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="file"; filename="notes.pdf"`},
		"Content-Type":        {"text/plain"},
	})
	require.NoError(t, err)
	_, err = part.Write([]byte("plain text"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, upload.MsgInvalidType, decodeBody(t, rec)["detail"])
	assert.Equal(t, 0, ex.calls)
}

func TestExtract_UpstreamFailureIsBadGateway(t *testing.T) {
	ex := &cannedExtractor{err: common.NewAppError("EXTRACT_STATUS", "Extraction failed", common.ErrServer)}
	s := newTestServer(t, ex)

	rec := doExtract(t, s, "doc.pdf", []byte("%PDF-1.4"))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Extraction failed", body["detail"])
}

func TestExtract_NoTablesFound(t *testing.T) {
	ex := &cannedExtractor{result: &entity.ExtractionResult{Success: true, Tables: []entity.Table{}}}
	s := newTestServer(t, ex)

	rec := doExtract(t, s, "empty.pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "No tables found in the PDF", body["message"])
	assert.NotEmpty(t, body["suggestions"])
	assert.Nil(t, body["download_urls"])
}

func TestDownload_InvalidID(t *testing.T) {
	s := newTestServer(t, &cannedExtractor{})
	req := httptest.NewRequest(http.MethodGet, "/download/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownload_UnknownID(t *testing.T) {
	s := newTestServer(t, &cannedExtractor{})
	req := httptest.NewRequest(http.MethodGet, "/download/01234567-89ab-4cde-8f01-23456789abcd", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCleanup_RemovesStoredFile(t *testing.T) {
	ex := &cannedExtractor{result: tableResult()}
	s := newTestServer(t, ex)

	rec := doExtract(t, s, "doc.pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusOK, rec.Code)
	fileID := decodeBody(t, rec)["file_id"].(string)

	req := httptest.NewRequest(http.MethodDelete, "/cleanup/"+fileID, nil)
	rec2 := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec2, req)
	require.Equal(t, http.StatusOK, rec2.Code)

	req = httptest.NewRequest(http.MethodGet, "/download/"+fileID+"?format=csv", nil)
	rec2 = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusNotFound, rec2.Code)
}

func TestRateLimit_UploadBudgetEnforced(t *testing.T) {
	ex := &cannedExtractor{result: tableResult()}
	s := newTestServer(t, ex)

	var last *httptest.ResponseRecorder
	for i := 0; i < 11; i++ {
		last = doExtract(t, s, "doc.pdf", []byte("%PDF-1.4"))
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
}

func TestHealthAndStatus(t *testing.T) {
	s := newTestServer(t, &cannedExtractor{})

	for _, path := range []string{"/", "/health", "/security/status", "/auth/status"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestFeedback_Roundtrip(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	fb, err := repository.NewFeedbackRepository(t.TempDir()+"/fb.db", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fb.Close() })

	s := newTestServer(t, &cannedExtractor{}, WithFeedback(fb))

	payload := `{"file_id":"01234567-89ab-4cde-8f01-23456789abcd","is_accurate":true,"extraction_method":"pdfplumber"}`
	req := httptest.NewRequest(http.MethodPost, "/feedback/accuracy", bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/feedback/stats", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["total_feedback"])
}

func TestSocialProof_HiddenWithoutData(t *testing.T) {
	s := newTestServer(t, &cannedExtractor{})
	req := httptest.NewRequest(http.MethodGet, "/social-proof", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["show_proof"])
}

func TestRecoverer_TurnsPanicInto500(t *testing.T) {
	s := newTestServer(t, &cannedExtractor{})
	h := s.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "An error occurred processing your request", decodeBody(t, rec)["detail"])
}
