// Package domain contains the translation backlog models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

// TranslationJob is one pending translation of a stored answer into a
// target language. Unique per (canonical_key, target_lang); duplicate
// enqueues are no-ops.
type TranslationJob struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	CanonicalKey string       `gorm:"type:text;not null"`
	SourceLang   string       `gorm:"type:text;not null"`
	TargetLang   string       `gorm:"type:text;not null"`
	SourceTable  string       `gorm:"type:text;not null"`
	Status       JobStatus    `gorm:"type:text;not null;default:pending"`
	Attempts     int          `gorm:"not null;default:0"`
	LastError    string       `gorm:"type:text"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TranslationJob) TableName() string { return "translation_jobs" }
