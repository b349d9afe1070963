// Package domain contains the question pipeline types.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Interaction modes and their credit costs.
const (
	ModeText  = "text"
	ModeVoice = "voice"
)

// CostForMode returns the credit cost of generating in a mode, or 0 for
// an unknown mode.
func CostForMode(mode string) int64 {
	switch mode {
	case ModeText:
		return 1
	case ModeVoice:
		return 2
	default:
		return 0
	}
}

// AskEvent is the best-effort log row written for every answered
// question. Losing one is tolerable.
type AskEvent struct {
	ID                 snowflake.ID `gorm:"primaryKey"`
	AccountID          string       `gorm:"not null;index"`
	Question           string       `gorm:"type:text;not null"`
	NormalizedQuestion string       `gorm:"type:text;not null"`
	CanonicalKey       string       `gorm:"type:text;not null"`
	Lang               string       `gorm:"type:text;not null"`
	Source             string       `gorm:"type:text;not null"`
	Mode               string       `gorm:"type:text;not null"`
	FallbackUsed       bool         `gorm:"not null;default:false"`
	CreatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AskEvent) TableName() string { return "qa_events" }
