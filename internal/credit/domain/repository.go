package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	GetBalance(ctx context.Context, db *gorm.DB, accountID string) (*CreditBalance, error)
	SetBalance(ctx context.Context, db *gorm.DB, accountID string, total int64, now time.Time) error
	ConsumeBalance(ctx context.Context, db *gorm.DB, accountID string, amount int64, now time.Time) (bool, error)
	RefundBalance(ctx context.Context, db *gorm.DB, accountID string, amount int64, now time.Time) (bool, error)
	InsertLedger(ctx context.Context, db *gorm.DB, entry *CreditLedgerEntry) error
}
