package service

import (
	"context"
	"strings"
	"time"

	"github.com/naijatax/taxguide/internal/clock"
	usagedomain "github.com/naijatax/taxguide/internal/usage/domain"
	"github.com/naijatax/taxguide/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dayLayout = "2006-01-02"

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  usagedomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  usagedomain.Repository
}

func NewService(p ServiceParam) usagedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("usage.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// ConsumeSlot implements domain.Service. The first admission of the day
// races on the unique (account_id, day) key; the loser of that race
// falls back to the guarded update.
func (s *Service) ConsumeSlot(ctx context.Context, req usagedomain.ConsumeSlotRequest) error {
	if strings.TrimSpace(req.AccountID) == "" {
		return usagedomain.ErrInvalidAccount
	}

	now := s.clock.Now()
	day := now.UTC().Format(dayLayout)

	ok, err := s.increment(ctx, req, day, now)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	// No row yet for today.
	if err := s.repo.InsertFirst(ctx, s.db, req.AccountID, day, now); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return err
		}
		// Lost the insert race; the row now exists.
		ok, err := s.increment(ctx, req, day, now)
		if err != nil {
			return err
		}
		if !ok {
			return usagedomain.ErrCacheLimitHit
		}
		return nil
	}

	return nil
}

func (s *Service) increment(ctx context.Context, req usagedomain.ConsumeSlotRequest, day string, now time.Time) (bool, error) {
	if req.Limit <= 0 {
		return s.repo.Increment(ctx, s.db, req.AccountID, day, now)
	}
	ok, err := s.repo.IncrementBelow(ctx, s.db, req.AccountID, day, req.Limit, now)
	if err != nil {
		return false, err
	}
	if !ok {
		// Distinguish "no row" from "limit reached".
		row, err := s.repo.Get(ctx, s.db, req.AccountID, day)
		if err != nil {
			return false, err
		}
		if row != nil {
			return false, usagedomain.ErrCacheLimitHit
		}
	}
	return ok, nil
}

// Today implements domain.Service.
func (s *Service) Today(ctx context.Context, accountID string, limit int) (usagedomain.UsageResponse, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return usagedomain.UsageResponse{}, usagedomain.ErrInvalidAccount
	}

	now := s.clock.Now().UTC()
	day := now.Format(dayLayout)
	resetsAt := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)

	resp := usagedomain.UsageResponse{
		AccountID: accountID,
		Day:       day,
		ResetsAt:  resetsAt,
	}

	row, err := s.repo.Get(ctx, s.db, accountID, day)
	if err != nil {
		return usagedomain.UsageResponse{}, err
	}
	if row != nil {
		resp.CacheCount = row.CacheCount
	}
	if limit > 0 {
		remaining := limit - resp.CacheCount
		if remaining < 0 {
			remaining = 0
		}
		resp.Remaining = remaining
	} else {
		resp.Remaining = -1
	}
	return resp, nil
}
