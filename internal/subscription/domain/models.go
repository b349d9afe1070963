// Package domain contains the subscription records and the pure state
// machine over them.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Stored record statuses. The access states callers see (none, trial,
// active, grace, expired) are derived, never stored.
type RecordStatus string

const (
	RecordStatusActive    RecordStatus = "active"
	RecordStatusPastDue   RecordStatus = "past_due"
	RecordStatusCancelled RecordStatus = "cancelled"
)

// SubscriptionRecord is one paid (or trial) period. Records are
// append-only; activation inserts a fresh row instead of mutating
// history, and the current record is the one with the latest period end.
type SubscriptionRecord struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	AccountID    string       `gorm:"not null;index"`
	PlanCode     string       `gorm:"type:text;not null"`
	Status       RecordStatus `gorm:"type:text;not null"`
	Trial        bool         `gorm:"not null;default:false"`
	StartAt      time.Time    `gorm:"not null"`
	ExpiresAt    time.Time    `gorm:"not null;index"`
	NextPlanCode *string      `gorm:"type:text"`
	PaymentRef   *string      `gorm:"type:text;uniqueIndex"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (SubscriptionRecord) TableName() string { return "subscriptions" }
