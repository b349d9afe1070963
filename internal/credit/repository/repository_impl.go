package repository

import (
	"context"
	"errors"
	"time"

	creditdomain "github.com/naijatax/taxguide/internal/credit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() creditdomain.Repository {
	return &repo{}
}

func (r *repo) GetBalance(ctx context.Context, db *gorm.DB, accountID string) (*creditdomain.CreditBalance, error) {
	var row creditdomain.CreditBalance
	err := db.WithContext(ctx).Raw(
		`SELECT account_id, balance, total, updated_at FROM credit_balances WHERE account_id = ?`,
		accountID,
	).Scan(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if row.AccountID == "" {
		return nil, nil
	}
	return &row, nil
}

// SetBalance overwrites the balance with the plan allowance. Activation
// is the only writer of total.
func (r *repo) SetBalance(ctx context.Context, db *gorm.DB, accountID string, total int64, now time.Time) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE credit_balances SET balance = ?, total = ?, updated_at = ? WHERE account_id = ?`,
		total, total, now, accountID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO credit_balances (account_id, balance, total, updated_at) VALUES (?, ?, ?, ?)`,
		accountID, total, total, now,
	).Error
}

// ConsumeBalance decrements iff the balance covers the amount. The guard
// lives in the WHERE clause so concurrent consumers can never drive the
// balance negative.
func (r *repo) ConsumeBalance(ctx context.Context, db *gorm.DB, accountID string, amount int64, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE credit_balances SET balance = balance - ?, updated_at = ? WHERE account_id = ? AND balance >= ?`,
		amount, now, accountID, amount,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) RefundBalance(ctx context.Context, db *gorm.DB, accountID string, amount int64, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE credit_balances SET balance = balance + ?, updated_at = ? WHERE account_id = ?`,
		amount, now, accountID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertLedger(ctx context.Context, db *gorm.DB, entry *creditdomain.CreditLedgerEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO credit_ledger (id, account_id, delta, reason, ref, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.AccountID,
		entry.Delta,
		entry.Reason,
		entry.Ref,
		entry.CreatedAt,
	).Error
}
