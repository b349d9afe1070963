package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidAccount    = errors.New("invalid_account")
	ErrUnknownPlan       = errors.New("unknown_plan")
	ErrTrialAlreadyUsed  = errors.New("trial_already_used")
	ErrNoSubscription    = errors.New("subscription_required")
	ErrNothingToSchedule = errors.New("no_current_subscription")
)

type StatusResponse struct {
	AccountID    string     `json:"account_id"`
	State        State      `json:"state"`
	PlanCode     string     `json:"plan_code,omitempty"`
	Trial        bool       `json:"trial,omitempty"`
	StartAt      *time.Time `json:"start_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	GraceUntil   *time.Time `json:"grace_until,omitempty"`
	NextPlanCode *string    `json:"next_plan_code,omitempty"`
}

type ActivateRequest struct {
	AccountID  string
	PlanCode   string
	PaymentRef string
	// AtExpiry schedules the plan for the current period end instead of
	// activating immediately.
	AtExpiry bool
}

type StartTrialRequest struct {
	AccountID string
}

type ScheduleRequest struct {
	AccountID    string
	NextPlanCode string
}

type CancelRequest struct {
	AccountID string
}

// Service drives the subscription state machine. Status applies any due
// scheduled plan change before answering, so readers never observe a
// stale pending change.
type Service interface {
	Status(ctx context.Context, accountID string) (StatusResponse, error)
	StartTrial(ctx context.Context, req StartTrialRequest) (StatusResponse, error)
	Activate(ctx context.Context, req ActivateRequest) (StatusResponse, error)
	Schedule(ctx context.Context, req ScheduleRequest) (StatusResponse, error)
	Cancel(ctx context.Context, req CancelRequest) (StatusResponse, error)
	// SweepDue applies overdue transitions and due plan changes across
	// all accounts; used by the periodic sweep.
	SweepDue(ctx context.Context, limit int) (int, error)
}
