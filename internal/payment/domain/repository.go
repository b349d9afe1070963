package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	GetByReference(ctx context.Context, db *gorm.DB, reference string) (*Payment, error)
	// GetByReferenceForUpdate locks the row so concurrent deliveries of
	// the same reference serialize behind the first.
	GetByReferenceForUpdate(ctx context.Context, db *gorm.DB, reference string) (*Payment, error)
	MarkStatus(ctx context.Context, db *gorm.DB, reference, status string, now time.Time) error
}
