package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, job *TranslationJob) error
	ListPending(ctx context.Context, db *gorm.DB, limit int) ([]TranslationJob, error)
	MarkDone(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
	// MarkFailure bumps attempts and records the error; the job flips to
	// failed once attempts reach the cap.
	MarkFailure(ctx context.Context, db *gorm.DB, id snowflake.ID, attempts int, lastError string, now time.Time) error
}
