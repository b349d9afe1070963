package repository

import (
	"context"
	"time"

	usagedomain "github.com/naijatax/taxguide/internal/usage/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() usagedomain.Repository {
	return &repo{}
}

func (r *repo) Get(ctx context.Context, db *gorm.DB, accountID, day string) (*usagedomain.DailyUsage, error) {
	var row usagedomain.DailyUsage
	err := db.WithContext(ctx).Raw(
		`SELECT account_id, day, cache_count, updated_at FROM qa_daily_usage WHERE account_id = ? AND day = ?`,
		accountID, day,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.AccountID == "" {
		return nil, nil
	}
	return &row, nil
}

// IncrementBelow keeps the limit check inside the UPDATE so two
// concurrent requests cannot both take the last slot.
func (r *repo) IncrementBelow(ctx context.Context, db *gorm.DB, accountID, day string, limit int, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE qa_daily_usage SET cache_count = cache_count + 1, updated_at = ? WHERE account_id = ? AND day = ? AND cache_count < ?`,
		now, accountID, day, limit,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Increment(ctx context.Context, db *gorm.DB, accountID, day string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE qa_daily_usage SET cache_count = cache_count + 1, updated_at = ? WHERE account_id = ? AND day = ?`,
		now, accountID, day,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertFirst(ctx context.Context, db *gorm.DB, accountID, day string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO qa_daily_usage (account_id, day, cache_count, updated_at) VALUES (?, ?, 1, ?)`,
		accountID, day, now,
	).Error
}
