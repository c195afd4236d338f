// Package workflow orchestrates one upload cycle: validation, the extraction
// call, the cosmetic progress signal, and the resulting state.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/pdftablepro/pdftab/internal/common"
	"github.com/pdftablepro/pdftab/internal/entity"
	"github.com/pdftablepro/pdftab/internal/progress"
	"github.com/pdftablepro/pdftab/internal/upload"
)

// State is the controller's phase within an upload cycle.
type State int

const (
	StateIdle State = iota
	StateUploading
	// StateProcessing covers the span where the request is in flight; to the
	// user it is visible only through the progress percentage.
	StateProcessing
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUploading:
		return "uploading"
	case StateProcessing:
		return "processing"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Extractor is the extraction client surface the controller needs.
type Extractor interface {
	Extract(ctx context.Context, req *entity.ExtractionRequest) (*entity.ExtractionResult, error)
}

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	State   State
	Result  *entity.ExtractionResult
	Err     string
	Percent int
}

// Controller drives the upload state machine. Terminal states are always
// re-enterable: selecting a new file from Success or Error starts a fresh
// cycle. Each cycle carries a sequence number; a result arriving for a
// superseded cycle is discarded so a slow response can never overwrite newer
// state.
type Controller struct {
	client     Extractor
	logger     *slog.Logger
	onProgress func(int)
	simOpts    []progress.Option

	mu      sync.Mutex
	state   State
	result  *entity.ExtractionResult
	errMsg  string
	seq     uint64
	sim     *progress.Simulator
	percent int
}

// Option configures a Controller.
type Option func(*Controller)

// WithProgress registers a callback for progress percentage updates.
func WithProgress(fn func(int)) Option {
	return func(c *Controller) { c.onProgress = fn }
}

// WithSimulatorOptions forwards options to each cycle's progress simulator.
func WithSimulatorOptions(opts ...progress.Option) Option {
	return func(c *Controller) { c.simOpts = opts }
}

// New builds an idle controller around an extraction client.
func New(client Extractor, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		client: client,
		logger: logger,
		state:  StateIdle,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Upload runs one full cycle for the candidate and blocks until it settles.
// An invalid candidate surfaces its rejection reason and leaves the current
// state untouched. A valid one moves the controller to Uploading, issues
// exactly one extraction call, and lands in Success or Error.
func (c *Controller) Upload(ctx context.Context, candidate entity.UploadCandidate) error {
	req, err := upload.Validate(candidate)
	if err != nil {
		// Rejections never change state; the previous result stays visible.
		c.logger.Info("workflow.upload.rejected", "filename", candidate.Filename, "reason", err.Error())
		return err
	}

	c.mu.Lock()
	c.seq++
	seq := c.seq
	req.Seq = seq
	c.state = StateUploading
	c.errMsg = ""
	prev := c.sim
	sim := progress.New(c.progressUpdate, c.simOpts...)
	c.sim = sim
	c.mu.Unlock()

	if prev != nil {
		// A prior cycle's ticker must not outlive its cycle. Stopped outside
		// the controller lock: the simulator invokes progressUpdate under its
		// own lock.
		prev.Stop()
	}

	sim.Start()

	c.mu.Lock()
	if seq == c.seq {
		c.state = StateProcessing
	}
	c.mu.Unlock()

	c.logger.Info("workflow.extract.start", "filename", req.Filename, "bytes", len(req.Content), "seq", seq)
	result, err := c.client.Extract(ctx, req)
	sim.Finish(err == nil)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		// A newer upload took over while this one was in flight.
		c.logger.Warn("workflow.extract.stale_result_discarded", "seq", seq, "current_seq", c.seq)
		return nil
	}

	if err != nil {
		c.state = StateError
		c.errMsg = errorMessage(err)
		c.result = nil
		c.logger.Error("workflow.extract.failed", "seq", seq, "error", err)
		return err
	}

	c.state = StateSuccess
	c.result = result
	c.logger.Info("workflow.extract.ok", "seq", seq, "tables", len(result.Tables))
	return nil
}

// Reset stops any running progress ticker and returns the controller to
// Idle. In-flight requests are not cancelled; their results will be discarded
// as stale.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.seq++
	c.state = StateIdle
	c.result = nil
	c.errMsg = ""
	c.percent = 0
	sim := c.sim
	c.sim = nil
	c.mu.Unlock()

	if sim != nil {
		sim.Stop()
	}
}

// Snapshot reports the current state, result and progress.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:   c.state,
		Result:  c.result,
		Err:     c.errMsg,
		Percent: c.percent,
	}
}

func (c *Controller) progressUpdate(pct int) {
	c.mu.Lock()
	c.percent = pct
	c.mu.Unlock()
	if c.onProgress != nil {
		c.onProgress(pct)
	}
}

func errorMessage(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
