package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/naijatax/taxguide/internal/clock"
	"github.com/naijatax/taxguide/internal/config"
	creditdomain "github.com/naijatax/taxguide/internal/credit/domain"
	subscriptiondomain "github.com/naijatax/taxguide/internal/subscription/domain"
	"github.com/naijatax/taxguide/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const TrialPlanCode = "trial"

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	repo  subscriptiondomain.Repository

	creditRepo creditdomain.Repository
	plans      *config.PlanCatalogHolder
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  subscriptiondomain.Repository

	CreditRepo creditdomain.Repository
	Plans      *config.PlanCatalogHolder
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("subscription.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		creditRepo: p.CreditRepo,
		plans:      p.Plans,
	}
}

// Status implements domain.Service. A due scheduled plan change is
// applied before the state is derived, and a lapsed active record is
// demoted to past_due as a side effect so the grace test stays honest
// even if the periodic sweep is behind.
func (s *Service) Status(ctx context.Context, accountID string) (subscriptiondomain.StatusResponse, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return subscriptiondomain.StatusResponse{}, subscriptiondomain.ErrInvalidAccount
	}

	now := s.clock.Now()
	rec, err := s.repo.GetCurrent(ctx, s.db, accountID)
	if err != nil {
		return subscriptiondomain.StatusResponse{}, err
	}

	if dueForMaintenance(rec, now) {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			locked, err := s.repo.GetCurrentForUpdate(ctx, tx, accountID)
			if err != nil {
				return err
			}
			rec, err = s.maintain(ctx, tx, locked, now)
			return err
		})
		if err != nil {
			return subscriptiondomain.StatusResponse{}, err
		}
	}

	return s.respond(accountID, rec), nil
}

// dueForMaintenance reports whether the record needs a transition
// persisted before its state can be served.
func dueForMaintenance(rec *subscriptiondomain.SubscriptionRecord, now time.Time) bool {
	if rec == nil || now.Before(rec.ExpiresAt) {
		return false
	}
	if rec.NextPlanCode != nil {
		return true
	}
	return rec.Status == subscriptiondomain.RecordStatusActive
}

// maintain applies a due scheduled plan change and the lazy
// active -> past_due demotion. Runs inside the caller's transaction
// with the current record locked.
func (s *Service) maintain(ctx context.Context, tx *gorm.DB, rec *subscriptiondomain.SubscriptionRecord, now time.Time) (*subscriptiondomain.SubscriptionRecord, error) {
	if rec == nil || now.Before(rec.ExpiresAt) {
		return rec, nil
	}

	if rec.NextPlanCode != nil {
		next, ok := s.plans.Plan(*rec.NextPlanCode)
		if !ok {
			// Catalog changed under the scheduled code; drop the pending
			// change rather than blocking the account forever.
			s.log.Warn("scheduled plan no longer in catalog",
				zap.String("account_id", rec.AccountID),
				zap.String("plan_code", *rec.NextPlanCode),
			)
			if err := s.repo.SetNextPlan(ctx, tx, rec.ID, nil, now); err != nil {
				return nil, err
			}
			rec.NextPlanCode = nil
		} else {
			fresh := subscriptiondomain.BuildRecord(
				s.genID.Generate(), rec.AccountID, next.Code, next.DurationDays,
				next.Trial, nil, rec.ExpiresAt, now,
			)
			if err := s.repo.Insert(ctx, tx, &fresh); err != nil {
				return nil, err
			}
			if err := s.repo.SetNextPlan(ctx, tx, rec.ID, nil, now); err != nil {
				return nil, err
			}
			if err := s.creditRepo.SetBalance(ctx, tx, rec.AccountID, next.AICredits, now); err != nil {
				return nil, err
			}
			s.log.Info("scheduled plan applied",
				zap.String("account_id", rec.AccountID),
				zap.String("plan_code", next.Code),
			)
			return &fresh, nil
		}
	}

	if rec.Status == subscriptiondomain.RecordStatusActive {
		if err := s.repo.UpdateStatus(ctx, tx, rec.ID, subscriptiondomain.RecordStatusPastDue, now); err != nil {
			return nil, err
		}
		rec.Status = subscriptiondomain.RecordStatusPastDue
	}
	return rec, nil
}

// StartTrial implements domain.Service. One trial per account lifetime,
// detected by the absence of any prior record; the synthetic payment
// ref turns a racing double-start into a duplicate-key error.
func (s *Service) StartTrial(ctx context.Context, req subscriptiondomain.StartTrialRequest) (subscriptiondomain.StatusResponse, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return subscriptiondomain.StatusResponse{}, subscriptiondomain.ErrInvalidAccount
	}

	plan, ok := s.plans.Plan(TrialPlanCode)
	if !ok {
		return subscriptiondomain.StatusResponse{}, subscriptiondomain.ErrUnknownPlan
	}

	now := s.clock.Now()
	var rec subscriptiondomain.SubscriptionRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		used, err := s.repo.HasAny(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if used {
			return subscriptiondomain.ErrTrialAlreadyUsed
		}

		ref := "trial:" + accountID
		rec = subscriptiondomain.BuildRecord(
			s.genID.Generate(), accountID, plan.Code, plan.DurationDays,
			true, &ref, now, now,
		)
		if err := s.repo.Insert(ctx, tx, &rec); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return subscriptiondomain.ErrTrialAlreadyUsed
			}
			return err
		}
		return s.creditRepo.SetBalance(ctx, tx, accountID, plan.AICredits, now)
	})
	if err != nil {
		return subscriptiondomain.StatusResponse{}, err
	}

	s.log.Info("trial started", zap.String("account_id", accountID))
	return s.respond(accountID, &rec), nil
}

// Activate implements domain.Service. Immediate by default; AtExpiry
// schedules instead when a current period is still running.
func (s *Service) Activate(ctx context.Context, req subscriptiondomain.ActivateRequest) (subscriptiondomain.StatusResponse, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return subscriptiondomain.StatusResponse{}, subscriptiondomain.ErrInvalidAccount
	}

	plan, ok := s.plans.Plan(req.PlanCode)
	if !ok {
		return subscriptiondomain.StatusResponse{}, subscriptiondomain.ErrUnknownPlan
	}

	now := s.clock.Now()
	var current *subscriptiondomain.SubscriptionRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prev, err := s.repo.GetCurrentForUpdate(ctx, tx, accountID)
		if err != nil {
			return err
		}

		if req.AtExpiry && prev != nil && now.Before(prev.ExpiresAt) {
			code := plan.Code
			if err := s.repo.SetNextPlan(ctx, tx, prev.ID, &code, now); err != nil {
				return err
			}
			prev.NextPlanCode = &code
			current = prev
			return nil
		}

		var ref *string
		if r := strings.TrimSpace(req.PaymentRef); r != "" {
			ref = &r
		}
		rec := subscriptiondomain.BuildRecord(
			s.genID.Generate(), accountID, plan.Code, plan.DurationDays,
			plan.Trial, ref, now, now,
		)
		if err := s.repo.Insert(ctx, tx, &rec); err != nil {
			return err
		}
		if err := s.creditRepo.SetBalance(ctx, tx, accountID, plan.AICredits, now); err != nil {
			return err
		}
		current = &rec
		return nil
	})
	if err != nil {
		return subscriptiondomain.StatusResponse{}, err
	}

	s.log.Info("plan activated",
		zap.String("account_id", accountID),
		zap.String("plan_code", plan.Code),
		zap.Bool("scheduled", req.AtExpiry),
	)
	return s.respond(accountID, current), nil
}

// Schedule implements domain.Service.
func (s *Service) Schedule(ctx context.Context, req subscriptiondomain.ScheduleRequest) (subscriptiondomain.StatusResponse, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return subscriptiondomain.StatusResponse{}, subscriptiondomain.ErrInvalidAccount
	}

	plan, ok := s.plans.Plan(req.NextPlanCode)
	if !ok {
		return subscriptiondomain.StatusResponse{}, subscriptiondomain.ErrUnknownPlan
	}

	now := s.clock.Now()
	var current *subscriptiondomain.SubscriptionRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.repo.GetCurrentForUpdate(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if rec == nil || !subscriptiondomain.DeriveState(rec, now, s.plans.GraceWindow()).Granted() {
			return subscriptiondomain.ErrNothingToSchedule
		}
		code := plan.Code
		if err := s.repo.SetNextPlan(ctx, tx, rec.ID, &code, now); err != nil {
			return err
		}
		rec.NextPlanCode = &code
		current = rec
		return nil
	})
	if err != nil {
		return subscriptiondomain.StatusResponse{}, err
	}

	return s.respond(accountID, current), nil
}

// Cancel implements domain.Service. Cancellation keeps access until the
// period end plus grace; it only flips the stored status and drops any
// pending plan change.
func (s *Service) Cancel(ctx context.Context, req subscriptiondomain.CancelRequest) (subscriptiondomain.StatusResponse, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return subscriptiondomain.StatusResponse{}, subscriptiondomain.ErrInvalidAccount
	}

	now := s.clock.Now()
	var current *subscriptiondomain.SubscriptionRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.repo.GetCurrentForUpdate(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if rec == nil {
			return subscriptiondomain.ErrNoSubscription
		}
		if err := s.repo.UpdateStatus(ctx, tx, rec.ID, subscriptiondomain.RecordStatusCancelled, now); err != nil {
			return err
		}
		rec.Status = subscriptiondomain.RecordStatusCancelled
		if rec.NextPlanCode != nil {
			if err := s.repo.SetNextPlan(ctx, tx, rec.ID, nil, now); err != nil {
				return err
			}
			rec.NextPlanCode = nil
		}
		current = rec
		return nil
	})
	if err != nil {
		return subscriptiondomain.StatusResponse{}, err
	}

	s.log.Info("subscription cancelled", zap.String("account_id", accountID))
	return s.respond(accountID, current), nil
}

// SweepDue implements domain.Service. Applies due scheduled changes and
// demotes lapsed active records in bounded batches.
func (s *Service) SweepDue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	now := s.clock.Now()
	touched := 0

	due, err := s.repo.ListDueScheduled(ctx, s.db, now, limit)
	if err != nil {
		return 0, err
	}
	for _, rec := range due {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			locked, err := s.repo.GetCurrentForUpdate(ctx, tx, rec.AccountID)
			if err != nil {
				return err
			}
			_, err = s.maintain(ctx, tx, locked, now)
			return err
		})
		if err != nil {
			s.log.Warn("sweep: scheduled change failed",
				zap.String("account_id", rec.AccountID),
				zap.Error(err),
			)
			continue
		}
		touched++
	}

	lapsed, err := s.repo.ListLapsedActive(ctx, s.db, now, limit)
	if err != nil {
		return touched, err
	}
	for _, rec := range lapsed {
		if err := s.repo.UpdateStatus(ctx, s.db, rec.ID, subscriptiondomain.RecordStatusPastDue, now); err != nil {
			s.log.Warn("sweep: demotion failed",
				zap.String("account_id", rec.AccountID),
				zap.Error(err),
			)
			continue
		}
		touched++
	}

	return touched, nil
}

func (s *Service) respond(accountID string, rec *subscriptiondomain.SubscriptionRecord) subscriptiondomain.StatusResponse {
	now := s.clock.Now()
	grace := s.plans.GraceWindow()
	state := subscriptiondomain.DeriveState(rec, now, grace)

	resp := subscriptiondomain.StatusResponse{
		AccountID: accountID,
		State:     state,
	}
	if rec != nil && state != subscriptiondomain.StateNone {
		resp.PlanCode = rec.PlanCode
		resp.Trial = rec.Trial
		start := rec.StartAt
		end := rec.ExpiresAt
		resp.StartAt = &start
		resp.ExpiresAt = &end
		resp.GraceUntil = subscriptiondomain.GraceUntil(rec, grace)
		resp.NextPlanCode = rec.NextPlanCode
	}
	return resp
}
