// Package extract submits validated uploads to the external extraction
// endpoint and decodes its response. The endpoint performs the actual table
// detection; this package only speaks its HTTP contract.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pdftablepro/pdftab/internal/common"
	"github.com/pdftablepro/pdftab/internal/entity"
)

// MsgExtractionFailed is the uniform user-facing failure message. Server
// error bodies are logged, not surfaced.
const MsgExtractionFailed = "Extraction failed"

// formField is the multipart field carrying the PDF binary.
const formField = "file"

// Client performs one multipart POST per extraction. A single attempt, no
// retry and no backoff: a failed extraction requires an explicit re-upload.
type Client struct {
	endpoint string
	hc       *http.Client
	logger   *slog.Logger
	validate bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithTimeout sets the request timeout on the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.hc.Timeout = d
		}
	}
}

// WithResponseValidation toggles JSON-Schema validation of the endpoint's
// response body before decoding.
func WithResponseValidation(on bool) Option {
	return func(c *Client) { c.validate = on }
}

// NewClient builds a client for the given extraction endpoint. The endpoint
// is required; there is no default.
func NewClient(endpoint string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "extraction endpoint is required", common.ErrInvalidInput)
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		endpoint: endpoint,
		hc:       &http.Client{Timeout: 60 * time.Second},
		logger:   logger,
		validate: true,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Extract performs the multipart POST and returns the decoded result. Any
// non-2xx status and any transport failure surface as the same uniform
// failure; callers cannot distinguish them and are not meant to.
func (c *Client) Extract(ctx context.Context, req *entity.ExtractionRequest) (*entity.ExtractionResult, error) {
	reqID := uuid.New().String()
	start := time.Now()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(formField, req.Filename)
	if err != nil {
		return nil, common.WrapError(err, "build multipart body")
	}
	if _, err := part.Write(req.Content); err != nil {
		return nil, common.WrapError(err, "write multipart body")
	}
	if err := mw.Close(); err != nil {
		return nil, common.WrapError(err, "close multipart body")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		c.logger.Error("extract.http.build_request_error", "req_id", reqID, "error", err)
		return nil, common.WrapError(err, "build request")
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	c.logger.Info("extract.http.request",
		"req_id", reqID,
		"endpoint", c.endpoint,
		"filename", req.Filename,
		"bytes", len(req.Content),
		"seq", req.Seq,
	)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		c.logger.Error("extract.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.NewAppError("EXTRACT_TRANSPORT", MsgExtractionFailed, common.ErrTransport)
	}
	defer func(rc io.ReadCloser) {
		if err := rc.Close(); err != nil {
			c.logger.Warn("extract.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)

	c.logger.Info("extract.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		// The server-provided detail stays in the log.
		c.logger.Error("extract.http.non_2xx", "req_id", reqID, "status", resp.StatusCode, "body", truncateForLog(raw, 512))
		return nil, common.NewAppError("EXTRACT_STATUS", MsgExtractionFailed, common.ErrServer)
	}

	if c.validate {
		if err := ValidateAgainstSchema(BuildExtractionResultSchema(), raw); err != nil {
			c.logger.Error("extract.response.schema_mismatch", "req_id", reqID, "error", err)
			return nil, common.NewAppError("EXTRACT_DECODE", MsgExtractionFailed, fmt.Errorf("%w: %v", common.ErrServer, err))
		}
	}

	result, err := DecodeResult(raw)
	if err != nil {
		c.logger.Error("extract.response.decode_error", "req_id", reqID, "error", err)
		return nil, common.NewAppError("EXTRACT_DECODE", MsgExtractionFailed, common.ErrServer)
	}
	return result, nil
}

func truncateForLog(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
