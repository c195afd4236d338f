package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pdftablepro/pdftab/internal/common"
	"github.com/pdftablepro/pdftab/internal/entity"
)

const feedbackSchema = `
CREATE TABLE IF NOT EXISTS accuracy_feedback (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id TEXT NOT NULL,
	is_accurate INTEGER NOT NULL,
	extraction_method TEXT NOT NULL DEFAULT '',
	comment TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON accuracy_feedback (created_at);`

// FeedbackRepository stores accuracy feedback in a local SQLite database.
// Feedback is low-volume and survives restarts without needing Postgres.
type FeedbackRepository interface {
	Submit(ctx context.Context, fb entity.AccuracyFeedback) error
	Stats(ctx context.Context) (*entity.FeedbackStats, error)
	SocialProof(ctx context.Context) (*entity.SocialProof, error)
	Close() error
}

type feedbackRepository struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewFeedbackRepository opens (creating if needed) the SQLite file at path
// and ensures the schema exists.
func NewFeedbackRepository(path string, logger *slog.Logger) (FeedbackRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, common.WrapError(err, "create feedback directory")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.WrapError(err, "open feedback database")
	}
	if _, err := db.Exec(feedbackSchema); err != nil {
		_ = db.Close()
		return nil, common.WrapError(err, "migrate feedback database")
	}
	return &feedbackRepository{db: db, logger: logger, now: time.Now}, nil
}

func (r *feedbackRepository) Submit(ctx context.Context, fb entity.AccuracyFeedback) error {
	if fb.FileID == "" {
		return common.NewAppError("FEEDBACK_FILE_ID", "file_id is required", common.ErrInvalidInput)
	}
	if len(fb.Comment) > 1000 {
		fb.Comment = fb.Comment[:1000]
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accuracy_feedback (file_id, is_accurate, extraction_method, comment, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		fb.FileID, fb.Accurate, fb.Method, fb.Comment, r.now().UTC())
	if err != nil {
		r.logger.Error("feedback.submit.failed", "file_id", fb.FileID, "error", err)
		return common.WrapError(err, "insert feedback")
	}
	r.logger.Info("feedback.submit", "file_id", fb.FileID, "accurate", fb.Accurate)
	return nil
}

func (r *feedbackRepository) Stats(ctx context.Context) (*entity.FeedbackStats, error) {
	stats := &entity.FeedbackStats{ByMethod: map[string]int{}}

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(is_accurate), 0),
		        COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
		 FROM accuracy_feedback`,
		r.now().UTC().AddDate(0, 0, -30),
	).Scan(&stats.Total, &stats.Accurate, &stats.Last30Days)
	if err != nil {
		return nil, common.WrapError(err, "read feedback stats")
	}

	if stats.Total > 0 {
		stats.AccuracyRate = float64(stats.Accurate) / float64(stats.Total)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT extraction_method, COUNT(*) FROM accuracy_feedback
		 WHERE extraction_method != '' GROUP BY extraction_method`)
	if err != nil {
		return nil, common.WrapError(err, "read feedback methods")
	}
	defer rows.Close()
	for rows.Next() {
		var method string
		var count int
		if err := rows.Scan(&method, &count); err != nil {
			return nil, common.WrapError(err, "scan feedback method")
		}
		stats.ByMethod[method] = count
	}
	return stats, rows.Err()
}

// SocialProof turns stats into display strings; proof is only shown once
// there is enough feedback to be meaningful.
func (r *feedbackRepository) SocialProof(ctx context.Context) (*entity.SocialProof, error) {
	stats, err := r.Stats(ctx)
	if err != nil {
		return nil, err
	}

	proof := &entity.SocialProof{ShowProof: stats.Total >= 10}
	if proof.ShowProof {
		proof.AccuracyDisplay = fmt.Sprintf("%.0f%% accuracy", stats.AccuracyRate*100)
		proof.FeedbackDisplay = fmt.Sprintf("Based on %d extractions", stats.Total)
	}
	return proof, nil
}

func (r *feedbackRepository) Close() error {
	return r.db.Close()
}
