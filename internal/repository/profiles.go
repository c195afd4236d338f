package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pdftablepro/pdftab/internal/entity"
)

// ProfileRepository reads and updates subscription profiles and their usage
// counters.
type ProfileRepository interface {
	GetOrCreate(ctx context.Context, userID, email string) (*entity.Profile, error)
	// Usage satisfies the quota checker: tier plus pages consumed today and
	// this month. Counters older than their period read as zero.
	Usage(ctx context.Context, userID string) (tier string, usedToday, usedMonth int, err error)
	AddUsage(ctx context.Context, userID string, pages int) error
}

type profileRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewProfileRepository(pool *pgxpool.Pool, logger *slog.Logger) ProfileRepository {
	return &profileRepository{
		pool:   pool,
		logger: logger,
	}
}

func (r *profileRepository) GetOrCreate(ctx context.Context, userID, email string) (*entity.Profile, error) {
	const query = `
		INSERT INTO profiles (id, email, subscription_tier, pages_used_today, pages_used_month, last_usage_date)
		VALUES ($1, $2, 'free', 0, 0, CURRENT_DATE)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, email, subscription_tier, pages_used_today, pages_used_month, last_usage_date, created_at`

	var p entity.Profile
	err := r.pool.QueryRow(ctx, query, userID, email).Scan(
		&p.ID, &p.Email, &p.Tier, &p.PagesToday, &p.PagesMonth, &p.LastUsageDate, &p.CreatedAt,
	)
	if err != nil {
		r.logger.Error("profiles.get_or_create.failed", "user_id", userID, "error", err)
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) Usage(ctx context.Context, userID string) (string, int, int, error) {
	const query = `
		SELECT subscription_tier,
		       CASE WHEN last_usage_date = CURRENT_DATE THEN pages_used_today ELSE 0 END,
		       CASE WHEN date_trunc('month', last_usage_date) = date_trunc('month', CURRENT_DATE)
		            THEN pages_used_month ELSE 0 END
		FROM profiles WHERE id = $1`

	var tier string
	var today, month int
	err := r.pool.QueryRow(ctx, query, userID).Scan(&tier, &today, &month)
	if errors.Is(err, pgx.ErrNoRows) {
		// No profile yet: treat as a fresh free-tier user.
		return "free", 0, 0, nil
	}
	if err != nil {
		return "", 0, 0, err
	}
	return tier, today, month, nil
}

func (r *profileRepository) AddUsage(ctx context.Context, userID string, pages int) error {
	const query = `
		UPDATE profiles SET
			pages_used_today = CASE WHEN last_usage_date = CURRENT_DATE
			                        THEN pages_used_today + $2 ELSE $2 END,
			pages_used_month = CASE WHEN date_trunc('month', last_usage_date) = date_trunc('month', CURRENT_DATE)
			                        THEN pages_used_month + $2 ELSE $2 END,
			last_usage_date = CURRENT_DATE
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, userID, pages)
	if err != nil {
		r.logger.Error("profiles.add_usage.failed", "user_id", userID, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn("profiles.add_usage.no_profile", "user_id", userID)
	}
	return nil
}
