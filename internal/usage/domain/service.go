package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidAccount = errors.New("invalid_account")
	ErrCacheLimitHit  = errors.New("cache_limit_reached")
)

type ConsumeSlotRequest struct {
	AccountID string
	// Limit <= 0 means unlimited.
	Limit int
}

type UsageResponse struct {
	AccountID  string    `json:"account_id"`
	Day        string    `json:"day"`
	CacheCount int       `json:"cache_count"`
	Remaining  int       `json:"remaining"`
	ResetsAt   time.Time `json:"resets_at"`
}

// Service tracks per-account daily cache admissions. ConsumeSlot is a
// single atomic check-and-increment against the store.
type Service interface {
	ConsumeSlot(ctx context.Context, req ConsumeSlotRequest) error
	Today(ctx context.Context, accountID string, limit int) (UsageResponse, error)
}
