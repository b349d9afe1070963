// Package domain contains persistence models for daily usage counters.
package domain

import "time"

// DailyUsage is one counter row per account per UTC day. The day column
// is the date in YYYY-MM-DD form so the unique index stays portable.
type DailyUsage struct {
	AccountID  string    `gorm:"primaryKey"`
	Day        string    `gorm:"primaryKey"`
	CacheCount int       `gorm:"not null;default:0"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (DailyUsage) TableName() string { return "qa_daily_usage" }
