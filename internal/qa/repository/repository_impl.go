package repository

import (
	"context"
	"time"

	qadomain "github.com/naijatax/taxguide/internal/qa/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() qadomain.Repository {
	return &repo{}
}

func (r *repo) FindLibraryByKey(ctx context.Context, db *gorm.DB, canonicalKey, lang string) (*qadomain.LibraryEntry, error) {
	var rows []qadomain.LibraryEntry
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM qa_library
		 WHERE enabled = ? AND canonical_key = ? AND lang = ?
		 ORDER BY priority DESC, updated_at DESC, last_used_at DESC NULLS LAST
		 LIMIT 1`,
		true, canonicalKey, lang,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) FindLibraryByText(ctx context.Context, db *gorm.DB, normalized, lang string) (*qadomain.LibraryEntry, error) {
	var rows []qadomain.LibraryEntry
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM qa_library
		 WHERE enabled = ? AND normalized_question = ? AND lang = ?
		 ORDER BY priority DESC, updated_at DESC, last_used_at DESC NULLS LAST
		 LIMIT 1`,
		true, normalized, lang,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) FindCacheByKey(ctx context.Context, db *gorm.DB, canonicalKey, lang string) (*qadomain.CacheEntry, error) {
	var rows []qadomain.CacheEntry
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM qa_cache
		 WHERE enabled = ? AND canonical_key = ? AND lang = ?
		 ORDER BY priority DESC, updated_at DESC, last_used_at DESC NULLS LAST
		 LIMIT 1`,
		true, canonicalKey, lang,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) FindCacheByText(ctx context.Context, db *gorm.DB, normalized, lang string) (*qadomain.CacheEntry, error) {
	var rows []qadomain.CacheEntry
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM qa_cache
		 WHERE enabled = ? AND normalized_question = ? AND lang = ?
		 ORDER BY priority DESC, updated_at DESC, last_used_at DESC NULLS LAST
		 LIMIT 1`,
		true, normalized, lang,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) InsertCache(ctx context.Context, db *gorm.DB, entry *qadomain.CacheEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO qa_cache (
			id, normalized_question, canonical_key, lang, answer, source,
			enabled, priority, use_count, last_used_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.NormalizedQuestion,
		entry.CanonicalKey,
		entry.Lang,
		entry.Answer,
		entry.Source,
		entry.Enabled,
		entry.Priority,
		entry.UseCount,
		entry.LastUsedAt,
		entry.CreatedAt,
		entry.UpdatedAt,
	).Error
}

func (r *repo) OverwriteCacheByKey(ctx context.Context, db *gorm.DB, canonicalKey, lang, answer, source string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE qa_cache SET answer = ?, source = ?, enabled = ?, updated_at = ? WHERE canonical_key = ? AND lang = ?`,
		answer, source, true, now, canonicalKey, lang,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) OverwriteCacheByText(ctx context.Context, db *gorm.DB, normalized, lang, answer, source string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE qa_cache SET answer = ?, source = ?, enabled = ?, updated_at = ? WHERE normalized_question = ? AND lang = ? AND canonical_key = ''`,
		answer, source, true, now, normalized, lang,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) TouchLibrary(ctx context.Context, db *gorm.DB, id int64, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE qa_library SET use_count = use_count + 1, last_used_at = ? WHERE id = ?`,
		now, id,
	).Error
}

func (r *repo) TouchCache(ctx context.Context, db *gorm.DB, id int64, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE qa_cache SET use_count = use_count + 1, last_used_at = ? WHERE id = ?`,
		now, id,
	).Error
}
