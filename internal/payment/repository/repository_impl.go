package repository

import (
	"context"
	"time"

	paymentdomain "github.com/naijatax/taxguide/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() paymentdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *paymentdomain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, reference, account_id, plan_code, amount_kobo, currency,
			status, raw, paid_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.Reference,
		payment.AccountID,
		payment.PlanCode,
		payment.AmountKobo,
		payment.Currency,
		payment.Status,
		payment.Raw,
		payment.PaidAt,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
}

func (r *repo) GetByReference(ctx context.Context, db *gorm.DB, reference string) (*paymentdomain.Payment, error) {
	return r.getByReference(ctx, db, reference, false)
}

func (r *repo) GetByReferenceForUpdate(ctx context.Context, db *gorm.DB, reference string) (*paymentdomain.Payment, error) {
	return r.getByReference(ctx, db, reference, true)
}

func (r *repo) getByReference(ctx context.Context, db *gorm.DB, reference string, lock bool) (*paymentdomain.Payment, error) {
	query := `SELECT id, reference, account_id, plan_code, amount_kobo, currency,
			status, raw, paid_at, created_at, updated_at
		 FROM payments
		 WHERE reference = ?
		 LIMIT 1`
	if lock && db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var rows []paymentdomain.Payment
	if err := db.WithContext(ctx).Raw(query, reference).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) MarkStatus(ctx context.Context, db *gorm.DB, reference, status string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payments SET status = ?, updated_at = ? WHERE reference = ?`,
		status, now, reference,
	).Error
}
