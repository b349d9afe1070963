package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidAccount      = errors.New("invalid_account")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInsufficientCredits = errors.New("no_credits")
)

type ConsumeRequest struct {
	AccountID string
	Amount    int64
	Reason    string
	Ref       string
}

type RefundRequest struct {
	AccountID string
	Amount    int64
	Reason    string
	Ref       string
}

type GrantRequest struct {
	AccountID string
	Total     int64
	Reason    string
	Ref       string
}

type BalanceResponse struct {
	AccountID string    `json:"account_id"`
	Balance   int64     `json:"balance"`
	Total     int64     `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service manages credit balances. Consume must be a single atomic
// store operation; callers rely on it never driving a balance negative.
type Service interface {
	Balance(ctx context.Context, accountID string) (BalanceResponse, error)
	Consume(ctx context.Context, req ConsumeRequest) error
	Refund(ctx context.Context, req RefundRequest) error
	Grant(ctx context.Context, req GrantRequest) error
}
