package domain

import (
	"context"
	"errors"
)

var ErrInvalidJob = errors.New("invalid_translation_job")

// maxAttempts before a job is parked as failed.
const MaxAttempts = 3

type EnqueueRequest struct {
	CanonicalKey string
	SourceLang   string
	TargetLang   string
	SourceTable  string
}

// Service maintains the translation backlog. Enqueue is idempotent per
// (canonical key, target language); Drain is invoked by the periodic
// batch job.
type Service interface {
	Enqueue(ctx context.Context, req EnqueueRequest) error
	// EnqueueMissing enqueues one job per supported language other than
	// sourceLang. Best-effort; individual failures are logged.
	EnqueueMissing(ctx context.Context, canonicalKey, sourceLang, sourceTable string)
	// Drain processes up to limit pending jobs and reports how many
	// completed.
	Drain(ctx context.Context, limit int) (int, error)
}
