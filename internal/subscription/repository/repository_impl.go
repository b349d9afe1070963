package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/naijatax/taxguide/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rec *subscriptiondomain.SubscriptionRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (
			id, account_id, plan_code, status, trial, start_at, expires_at,
			next_plan_code, payment_ref, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.AccountID,
		rec.PlanCode,
		rec.Status,
		rec.Trial,
		rec.StartAt,
		rec.ExpiresAt,
		rec.NextPlanCode,
		rec.PaymentRef,
		rec.CreatedAt,
		rec.UpdatedAt,
	).Error
}

func (r *repo) GetCurrent(ctx context.Context, db *gorm.DB, accountID string) (*subscriptiondomain.SubscriptionRecord, error) {
	return r.getCurrent(ctx, db, accountID, false)
}

func (r *repo) GetCurrentForUpdate(ctx context.Context, db *gorm.DB, accountID string) (*subscriptiondomain.SubscriptionRecord, error) {
	return r.getCurrent(ctx, db, accountID, true)
}

func (r *repo) getCurrent(ctx context.Context, db *gorm.DB, accountID string, lock bool) (*subscriptiondomain.SubscriptionRecord, error) {
	query := `SELECT id, account_id, plan_code, status, trial, start_at, expires_at,
			next_plan_code, payment_ref, created_at, updated_at
		 FROM subscriptions
		 WHERE account_id = ?
		 ORDER BY expires_at DESC, created_at DESC
		 LIMIT 1`
	if lock && db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var rows []subscriptiondomain.SubscriptionRecord
	if err := db.WithContext(ctx).Raw(query, accountID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) HasAny(ctx context.Context, db *gorm.DB, accountID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM subscriptions WHERE account_id = ?`,
		accountID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status subscriptiondomain.RecordStatus, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions SET status = ?, updated_at = ? WHERE id = ?`,
		status, now, id,
	).Error
}

func (r *repo) SetNextPlan(ctx context.Context, db *gorm.DB, id snowflake.ID, nextPlanCode *string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions SET next_plan_code = ?, updated_at = ? WHERE id = ?`,
		nextPlanCode, now, id,
	).Error
}

func (r *repo) ListLapsedActive(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]subscriptiondomain.SubscriptionRecord, error) {
	var rows []subscriptiondomain.SubscriptionRecord
	// Only current records are demoted; superseded periods stay as
	// history.
	err := db.WithContext(ctx).Raw(
		`SELECT s.* FROM subscriptions s
		 WHERE s.status = ? AND s.expires_at < ?
		   AND NOT EXISTS (
			SELECT 1 FROM subscriptions s2
			WHERE s2.account_id = s.account_id AND s2.expires_at > s.expires_at
		   )
		 ORDER BY s.expires_at ASC LIMIT ?`,
		subscriptiondomain.RecordStatusActive, before, limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListDueScheduled(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]subscriptiondomain.SubscriptionRecord, error) {
	var rows []subscriptiondomain.SubscriptionRecord
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM subscriptions WHERE next_plan_code IS NOT NULL AND expires_at <= ? ORDER BY expires_at ASC LIMIT ?`,
		before, limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
