package repository

import (
	"context"

	askdomain "github.com/naijatax/taxguide/internal/ask/domain"
	"gorm.io/gorm"
)

type Repository interface {
	InsertEvent(ctx context.Context, db *gorm.DB, event *askdomain.AskEvent) error
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *askdomain.AskEvent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO qa_events (
			id, account_id, question, normalized_question, canonical_key,
			lang, source, mode, fallback_used, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.AccountID,
		event.Question,
		event.NormalizedQuestion,
		event.CanonicalKey,
		event.Lang,
		event.Source,
		event.Mode,
		event.FallbackUsed,
		event.CreatedAt,
	).Error
}
