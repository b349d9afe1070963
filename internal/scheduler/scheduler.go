package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/naijatax/taxguide/internal/clock"
	"github.com/naijatax/taxguide/internal/observability/metrics"
	"github.com/naijatax/taxguide/internal/ratelimit"
	subscriptiondomain "github.com/naijatax/taxguide/internal/subscription/domain"
	translationdomain "github.com/naijatax/taxguide/internal/translation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	Log             *zap.Logger
	Clock           clock.Clock
	SubscriptionSvc subscriptiondomain.Service
	TranslationSvc  translationdomain.Service

	Limiter    *ratelimit.AskLimiter `optional:"true"`
	ObsMetrics *metrics.Metrics      `optional:"true"`
	Config     Config                `optional:"true"`
}

// Scheduler drives the periodic background jobs: the subscription sweep
// that applies overdue state transitions, and the translation drain
// that works off the pending backlog. When redis is configured, each
// job takes a cross-instance lock so only one replica runs it.
type Scheduler struct {
	log             *zap.Logger
	cfg             Config
	clock           clock.Clock
	subscriptionSvc subscriptiondomain.Service
	translationSvc  translationdomain.Service
	limiter         *ratelimit.AskLimiter
	obsMetrics      *metrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.SubscriptionSvc == nil || p.TranslationSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:             p.Log.Named("scheduler"),
		cfg:             p.Config.withDefaults(),
		clock:           p.Clock,
		subscriptionSvc: p.SubscriptionSvc,
		translationSvc:  p.TranslationSvc,
		limiter:         p.Limiter,
		obsMetrics:      p.ObsMetrics,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) (int, error)) error {
	token, owner, err := s.limiter.TryLockSweep(parent, name)
	if err != nil {
		// Redis being down must not stall the sweep; run without the
		// lock and accept the duplicate work.
		s.log.Warn("sweep lock unavailable, running unlocked",
			zap.String("job", name), zap.Error(err))
		owner = true
		token = ""
	}
	if !owner {
		return nil
	}
	if token != "" {
		defer func() {
			if err := s.limiter.ReleaseSweep(parent, name, token); err != nil {
				s.log.Warn("sweep lock release failed",
					zap.String("job", name), zap.Error(err))
			}
		}()
	}

	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	start := s.clock.Now()
	processed, err := fn(ctx)
	s.obsMetrics.RecordSweep(name, processed)

	log := s.log.With(
		zap.String("job", name),
		zap.Int("processed", processed),
		zap.Duration("took", s.clock.Now().Sub(start)),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("job timed out", zap.Duration("timeout", s.cfg.JobTimeout))
			return nil
		}
		log.Error("job failed", zap.Error(err))
		return err
	}
	if processed > 0 {
		log.Info("job done")
	}
	return nil
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	var err error

	err = errors.Join(err, s.runJob(ctx, "subscription_sweep", func(ctx context.Context) (int, error) {
		return s.subscriptionSvc.SweepDue(ctx, s.cfg.SweepBatchSize)
	}))
	err = errors.Join(err, s.runJob(ctx, "translation_drain", func(ctx context.Context) (int, error) {
		return s.translationSvc.Drain(ctx, s.cfg.DrainBatchSize)
	}))

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
