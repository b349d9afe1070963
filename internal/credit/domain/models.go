// Package domain contains persistence models for AI credit balances.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// CreditBalance is the single balance row per account. Plan activation
// overwrites it with the plan's allowance.
type CreditBalance struct {
	AccountID string    `gorm:"primaryKey"`
	Balance   int64     `gorm:"not null"`
	Total     int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CreditBalance) TableName() string { return "credit_balances" }

// CreditLedgerEntry records every grant, consume and refund.
type CreditLedgerEntry struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	AccountID string       `gorm:"not null;index"`
	Delta     int64        `gorm:"not null"`
	Reason    string       `gorm:"type:text;not null"`
	Ref       string       `gorm:"type:text"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CreditLedgerEntry) TableName() string { return "credit_ledger" }
