package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	translationdomain "github.com/naijatax/taxguide/internal/translation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() translationdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, job *translationdomain.TranslationJob) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO translation_jobs (
			id, canonical_key, source_lang, target_lang, source_table,
			status, attempts, last_error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.CanonicalKey,
		job.SourceLang,
		job.TargetLang,
		job.SourceTable,
		job.Status,
		job.Attempts,
		job.LastError,
		job.CreatedAt,
		job.UpdatedAt,
	).Error
}

func (r *repo) ListPending(ctx context.Context, db *gorm.DB, limit int) ([]translationdomain.TranslationJob, error) {
	var rows []translationdomain.TranslationJob
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM translation_jobs WHERE status = ? ORDER BY created_at ASC LIMIT ?`,
		translationdomain.JobStatusPending, limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) MarkDone(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE translation_jobs SET status = ?, updated_at = ? WHERE id = ?`,
		translationdomain.JobStatusDone, now, id,
	).Error
}

func (r *repo) MarkFailure(ctx context.Context, db *gorm.DB, id snowflake.ID, attempts int, lastError string, now time.Time) error {
	status := translationdomain.JobStatusPending
	if attempts >= translationdomain.MaxAttempts {
		status = translationdomain.JobStatusFailed
	}
	return db.WithContext(ctx).Exec(
		`UPDATE translation_jobs SET status = ?, attempts = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		status, attempts, lastError, now, id,
	).Error
}
