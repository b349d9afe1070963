package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidLookup = errors.New("invalid_lookup")
	ErrInvalidUpsert = errors.New("invalid_upsert")
)

// Hit sources as reported to callers.
const (
	HitLibrary = "library"
	HitCache   = "cache"
)

type LookupRequest struct {
	CanonicalKey       string
	NormalizedQuestion string
	Lang               string
	// TextOnly forces normalized-text matching; set when every key
	// field resolved to the placeholder.
	TextOnly bool
}

type LookupResult struct {
	Found  bool
	Answer string
	// Source is HitLibrary or HitCache.
	Source string
	// EntryID identifies the row for the best-effort usage touch.
	EntryID int64
}

type UpsertCacheRequest struct {
	CanonicalKey       string
	NormalizedQuestion string
	Lang               string
	Answer             string
	Source             string
}

type TouchRequest struct {
	Source  string
	EntryID int64
}

// Service resolves answers against the library first, then the cache.
// Lookup is single-language; language fallback is the caller's loop.
type Service interface {
	Lookup(ctx context.Context, req LookupRequest) (LookupResult, error)
	UpsertCache(ctx context.Context, req UpsertCacheRequest) error
	// Touch bumps use-count and last-used-at. Best-effort: errors are
	// logged, never returned.
	Touch(ctx context.Context, req TouchRequest)
}
