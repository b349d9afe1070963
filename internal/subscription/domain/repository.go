package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, rec *SubscriptionRecord) error
	// GetCurrent returns the record with the latest period end, or nil.
	GetCurrent(ctx context.Context, db *gorm.DB, accountID string) (*SubscriptionRecord, error)
	// GetCurrentForUpdate locks the current record for the transaction.
	GetCurrentForUpdate(ctx context.Context, db *gorm.DB, accountID string) (*SubscriptionRecord, error)
	HasAny(ctx context.Context, db *gorm.DB, accountID string) (bool, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status RecordStatus, now time.Time) error
	SetNextPlan(ctx context.Context, db *gorm.DB, id snowflake.ID, nextPlanCode *string, now time.Time) error
	// ListLapsedActive returns active records whose period end passed.
	ListLapsedActive(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]SubscriptionRecord, error)
	// ListDueScheduled returns records carrying a pending plan change
	// whose effective time passed.
	ListDueScheduled(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]SubscriptionRecord, error)
}
