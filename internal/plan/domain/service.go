package domain

import (
	"context"
	"errors"
)

var ErrUnknownPlan = errors.New("unknown_plan")

// PlanView is the public shape of a catalog entry. Prices are kobo.
type PlanView struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	PriceKobo       int64  `json:"price_kobo"`
	DurationDays    int    `json:"duration_days"`
	AICredits       int64  `json:"ai_credits"`
	DailyCacheLimit int    `json:"daily_cache_limit"`
	Trial           bool   `json:"trial"`
}

// Service exposes the plan catalog. Backed by hot-reloaded config, so
// responses can change between calls without a restart.
type Service interface {
	List(ctx context.Context) []PlanView
	// Purchasable lists the plans an account can pay for (everything
	// except the trial).
	Purchasable(ctx context.Context) []PlanView
	Get(ctx context.Context, code string) (PlanView, error)
}
