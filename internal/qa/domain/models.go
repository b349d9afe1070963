// Package domain contains the answer store models: the curated library
// and the generated answer cache.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Cache entry sources.
const (
	SourceAI             = "ai"
	SourceLibraryDerived = "library_derived"
)

// LibraryEntry is a curated, reviewed answer. Library rows are managed
// by editors and always beat cache rows for the same key.
type LibraryEntry struct {
	ID                 snowflake.ID `gorm:"primaryKey"`
	Question           string       `gorm:"type:text;not null"`
	NormalizedQuestion string       `gorm:"type:text;not null;index"`
	CanonicalKey       string       `gorm:"type:text;not null;index"`
	Lang               string       `gorm:"type:text;not null"`
	Answer             string       `gorm:"type:text;not null"`
	Enabled            bool         `gorm:"not null;default:true"`
	Priority           int          `gorm:"not null;default:0"`
	UseCount           int64        `gorm:"not null;default:0"`
	LastUsedAt         *time.Time   `gorm:""`
	CreatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (LibraryEntry) TableName() string { return "qa_library" }

// CacheEntry is a generated answer. Keyed by (canonical_key, lang) when
// a real key exists, otherwise by (normalized_question, lang).
type CacheEntry struct {
	ID                 snowflake.ID `gorm:"primaryKey"`
	NormalizedQuestion string       `gorm:"type:text;not null"`
	CanonicalKey       string       `gorm:"type:text;not null"`
	Lang               string       `gorm:"type:text;not null"`
	Answer             string       `gorm:"type:text;not null"`
	Source             string       `gorm:"type:text;not null"`
	Enabled            bool         `gorm:"not null;default:true"`
	Priority           int          `gorm:"not null;default:0"`
	UseCount           int64        `gorm:"not null;default:0"`
	LastUsedAt         *time.Time   `gorm:""`
	CreatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CacheEntry) TableName() string { return "qa_cache" }
