package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	FindLibraryByKey(ctx context.Context, db *gorm.DB, canonicalKey, lang string) (*LibraryEntry, error)
	FindLibraryByText(ctx context.Context, db *gorm.DB, normalized, lang string) (*LibraryEntry, error)
	FindCacheByKey(ctx context.Context, db *gorm.DB, canonicalKey, lang string) (*CacheEntry, error)
	FindCacheByText(ctx context.Context, db *gorm.DB, normalized, lang string) (*CacheEntry, error)
	InsertCache(ctx context.Context, db *gorm.DB, entry *CacheEntry) error
	// OverwriteCacheByKey refreshes answer and source and re-enables the
	// row. Returns whether a row matched.
	OverwriteCacheByKey(ctx context.Context, db *gorm.DB, canonicalKey, lang, answer, source string, now time.Time) (bool, error)
	OverwriteCacheByText(ctx context.Context, db *gorm.DB, normalized, lang, answer, source string, now time.Time) (bool, error)
	TouchLibrary(ctx context.Context, db *gorm.DB, id int64, now time.Time) error
	TouchCache(ctx context.Context, db *gorm.DB, id int64, now time.Time) error
}
