package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Get(ctx context.Context, db *gorm.DB, accountID, day string) (*DailyUsage, error)
	// IncrementBelow bumps the counter iff it is below limit. Returns
	// whether a row was updated.
	IncrementBelow(ctx context.Context, db *gorm.DB, accountID, day string, limit int, now time.Time) (bool, error)
	// Increment bumps unconditionally (unlimited plans).
	Increment(ctx context.Context, db *gorm.DB, accountID, day string, now time.Time) (bool, error)
	InsertFirst(ctx context.Context, db *gorm.DB, accountID, day string, now time.Time) error
}
