package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/naijatax/taxguide/internal/clock"
	"github.com/naijatax/taxguide/internal/config"
	creditdomain "github.com/naijatax/taxguide/internal/credit/domain"
	"github.com/naijatax/taxguide/internal/payment/adapters/paystack"
	paymentdomain "github.com/naijatax/taxguide/internal/payment/domain"
	subscriptiondomain "github.com/naijatax/taxguide/internal/subscription/domain"
	"github.com/naijatax/taxguide/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	repo  paymentdomain.Repository

	adapter  *paystack.Adapter
	verifier paystack.Verifier

	subscriptionRepo subscriptiondomain.Repository
	creditRepo       creditdomain.Repository
	plans            *config.PlanCatalogHolder
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  paymentdomain.Repository

	Adapter  *paystack.Adapter
	Verifier paystack.Verifier

	SubscriptionRepo subscriptiondomain.Repository
	CreditRepo       creditdomain.Repository
	Plans            *config.PlanCatalogHolder
}

func NewService(p ServiceParam) paymentdomain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("payment.service"),
		genID:            p.GenID,
		clock:            p.Clock,
		repo:             p.Repo,
		adapter:          p.Adapter,
		verifier:         p.Verifier,
		subscriptionRepo: p.SubscriptionRepo,
		creditRepo:       p.CreditRepo,
		plans:            p.Plans,
	}
}

// HandleWebhook implements domain.Service.
//
// Fulfillment order: authenticate the delivery, re-verify the charge
// against the provider, then claim the reference and activate inside
// one transaction. The unique reference index makes the claim the
// exactly-once point; everything after it is covered by the same
// commit.
func (s *Service) HandleWebhook(ctx context.Context, req paymentdomain.WebhookRequest) (paymentdomain.WebhookResponse, error) {
	if err := s.adapter.Verify(ctx, req.Body, req.Signature); err != nil {
		return paymentdomain.WebhookResponse{}, err
	}

	event, err := s.adapter.Parse(ctx, req.Body)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			return paymentdomain.WebhookResponse{Status: "ignored"}, nil
		}
		return paymentdomain.WebhookResponse{}, err
	}

	plan, ok := s.plans.Plan(event.PlanCode)
	if !ok || plan.Trial {
		return paymentdomain.WebhookResponse{}, subscriptiondomain.ErrUnknownPlan
	}

	verified, err := s.verifier.VerifyTransaction(ctx, event.Reference)
	if err != nil {
		return paymentdomain.WebhookResponse{}, err
	}
	if !strings.EqualFold(verified.Status, "success") {
		return paymentdomain.WebhookResponse{}, paymentdomain.ErrVerificationFailed
	}
	if verified.AmountKobo < plan.PriceKobo {
		s.log.Warn("charge below plan price",
			zap.String("reference", event.Reference),
			zap.Int64("amount_kobo", verified.AmountKobo),
			zap.Int64("price_kobo", plan.PriceKobo),
		)
		return paymentdomain.WebhookResponse{}, paymentdomain.ErrAmountMismatch
	}

	now := s.clock.Now()
	var resp paymentdomain.WebhookResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		paidAt := event.PaidAt
		if paidAt.IsZero() {
			paidAt = now
		}
		marker := &paymentdomain.Payment{
			ID:         s.genID.Generate(),
			Reference:  event.Reference,
			AccountID:  event.AccountID,
			PlanCode:   event.PlanCode,
			AmountKobo: verified.AmountKobo,
			Currency:   verified.Currency,
			Status:     paymentdomain.StatusProcessing,
			Raw:        event.RawPayload,
			PaidAt:     &paidAt,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		if err := s.repo.Insert(ctx, tx, marker); err != nil {
			if !db.IsDuplicateKeyErr(err) {
				return err
			}
			// Another delivery claimed the reference; serialize behind it.
			existing, err := s.repo.GetByReferenceForUpdate(ctx, tx, event.Reference)
			if err != nil {
				return err
			}
			if existing == nil {
				return gorm.ErrRecordNotFound
			}
			if existing.Status == paymentdomain.StatusSuccess {
				resp = paymentdomain.WebhookResponse{
					Reference: event.Reference,
					Status:    paymentdomain.StatusSuccess,
					Duplicate: true,
				}
				return nil
			}
			// processing or failed: the earlier delivery never finished;
			// this one completes the fulfillment under the row lock.
		}

		if err := s.activate(ctx, tx, event, plan, now); err != nil {
			return err
		}
		if err := s.repo.MarkStatus(ctx, tx, event.Reference, paymentdomain.StatusSuccess, now); err != nil {
			return err
		}
		resp = paymentdomain.WebhookResponse{
			Reference: event.Reference,
			Status:    paymentdomain.StatusSuccess,
		}
		return nil
	})
	if err != nil {
		return paymentdomain.WebhookResponse{}, err
	}

	if !resp.Duplicate && resp.Status == paymentdomain.StatusSuccess {
		s.log.Info("payment fulfilled",
			zap.String("reference", event.Reference),
			zap.String("account_id", event.AccountID),
			zap.String("plan_code", event.PlanCode),
		)
	}
	return resp, nil
}

// activate grants the paid plan inside the caller's transaction. A
// still-running period plus the at-expiry flag schedules the plan for
// the period end instead of restarting the clock.
func (s *Service) activate(ctx context.Context, tx *gorm.DB, event *paymentdomain.PaymentEvent, plan config.PlanSpec, now time.Time) error {
	prev, err := s.subscriptionRepo.GetCurrentForUpdate(ctx, tx, event.AccountID)
	if err != nil {
		return err
	}

	if event.AtExpiry && prev != nil && now.Before(prev.ExpiresAt) {
		code := plan.Code
		return s.subscriptionRepo.SetNextPlan(ctx, tx, prev.ID, &code, now)
	}

	ref := event.Reference
	rec := subscriptiondomain.BuildRecord(
		s.genID.Generate(), event.AccountID, plan.Code, plan.DurationDays,
		false, &ref, now, now,
	)
	if err := s.subscriptionRepo.Insert(ctx, tx, &rec); err != nil {
		return err
	}
	return s.creditRepo.SetBalance(ctx, tx, event.AccountID, plan.AICredits, now)
}
