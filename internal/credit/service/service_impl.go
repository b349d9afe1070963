package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/naijatax/taxguide/internal/clock"
	creditdomain "github.com/naijatax/taxguide/internal/credit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	repo  creditdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  creditdomain.Repository
}

func NewService(p ServiceParam) creditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("credit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Balance implements domain.Service.
func (s *Service) Balance(ctx context.Context, accountID string) (creditdomain.BalanceResponse, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return creditdomain.BalanceResponse{}, creditdomain.ErrInvalidAccount
	}

	row, err := s.repo.GetBalance(ctx, s.db, accountID)
	if err != nil {
		return creditdomain.BalanceResponse{}, err
	}
	if row == nil {
		return creditdomain.BalanceResponse{AccountID: accountID}, nil
	}

	return creditdomain.BalanceResponse{
		AccountID: row.AccountID,
		Balance:   row.Balance,
		Total:     row.Total,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// Consume implements domain.Service. The decrement and its guard are a
// single UPDATE; on a miss the balance is untouched.
func (s *Service) Consume(ctx context.Context, req creditdomain.ConsumeRequest) error {
	if strings.TrimSpace(req.AccountID) == "" {
		return creditdomain.ErrInvalidAccount
	}
	if req.Amount <= 0 {
		return creditdomain.ErrInvalidAmount
	}

	now := s.clock.Now()
	ok, err := s.repo.ConsumeBalance(ctx, s.db, req.AccountID, req.Amount, now)
	if err != nil {
		return err
	}
	if !ok {
		return creditdomain.ErrInsufficientCredits
	}

	s.writeLedger(ctx, req.AccountID, -req.Amount, req.Reason, req.Ref)
	return nil
}

// Refund implements domain.Service. Releases a reservation taken by
// Consume when generation fails.
func (s *Service) Refund(ctx context.Context, req creditdomain.RefundRequest) error {
	if strings.TrimSpace(req.AccountID) == "" {
		return creditdomain.ErrInvalidAccount
	}
	if req.Amount <= 0 {
		return creditdomain.ErrInvalidAmount
	}

	now := s.clock.Now()
	ok, err := s.repo.RefundBalance(ctx, s.db, req.AccountID, req.Amount, now)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Warn("refund for unknown account", zap.String("account_id", req.AccountID))
		return creditdomain.ErrInvalidAccount
	}

	s.writeLedger(ctx, req.AccountID, req.Amount, req.Reason, req.Ref)
	return nil
}

// Grant implements domain.Service. Overwrites the balance with the plan
// allowance on activation.
func (s *Service) Grant(ctx context.Context, req creditdomain.GrantRequest) error {
	if strings.TrimSpace(req.AccountID) == "" {
		return creditdomain.ErrInvalidAccount
	}
	if req.Total < 0 {
		return creditdomain.ErrInvalidAmount
	}

	now := s.clock.Now()
	if err := s.repo.SetBalance(ctx, s.db, req.AccountID, req.Total, now); err != nil {
		return err
	}

	s.writeLedger(ctx, req.AccountID, req.Total, req.Reason, req.Ref)
	return nil
}

// writeLedger is best-effort; losing an audit row must not fail the
// caller's operation.
func (s *Service) writeLedger(ctx context.Context, accountID string, delta int64, reason, ref string) {
	entry := &creditdomain.CreditLedgerEntry{
		ID:        s.genID.Generate(),
		AccountID: accountID,
		Delta:     delta,
		Reason:    reason,
		Ref:       ref,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.InsertLedger(ctx, s.db, entry); err != nil {
		s.log.Warn("credit ledger write failed",
			zap.String("account_id", accountID),
			zap.Int64("delta", delta),
			zap.Error(err),
		)
	}
}
