package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/naijatax/taxguide/internal/canonical"
	"github.com/naijatax/taxguide/internal/clock"
	"github.com/naijatax/taxguide/internal/providers/ai"
	qadomain "github.com/naijatax/taxguide/internal/qa/domain"
	translationdomain "github.com/naijatax/taxguide/internal/translation/domain"
	"github.com/naijatax/taxguide/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const translateTimeout = 60 * time.Second

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	repo  translationdomain.Repository

	qaSvc     qadomain.Service
	generator ai.Generator
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  translationdomain.Repository

	QASvc     qadomain.Service
	Generator ai.Generator
}

func NewService(p ServiceParam) translationdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("translation.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		qaSvc:     p.QASvc,
		generator: p.Generator,
	}
}

// Enqueue implements domain.Service. The unique (canonical_key,
// target_lang) index turns a duplicate enqueue into a no-op.
func (s *Service) Enqueue(ctx context.Context, req translationdomain.EnqueueRequest) error {
	if req.CanonicalKey == "" || req.TargetLang == "" || req.SourceLang == req.TargetLang {
		return translationdomain.ErrInvalidJob
	}

	now := s.clock.Now()
	job := &translationdomain.TranslationJob{
		ID:           s.genID.Generate(),
		CanonicalKey: req.CanonicalKey,
		SourceLang:   req.SourceLang,
		TargetLang:   req.TargetLang,
		SourceTable:  req.SourceTable,
		Status:       translationdomain.JobStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, s.db, job); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil
		}
		return err
	}
	return nil
}

// EnqueueMissing implements domain.Service.
func (s *Service) EnqueueMissing(ctx context.Context, canonicalKey, sourceLang, sourceTable string) {
	for _, lang := range canonical.TargetLangs {
		if lang == sourceLang {
			continue
		}
		err := s.Enqueue(ctx, translationdomain.EnqueueRequest{
			CanonicalKey: canonicalKey,
			SourceLang:   sourceLang,
			TargetLang:   lang,
			SourceTable:  sourceTable,
		})
		if err != nil {
			s.log.Warn("translation enqueue failed",
				zap.String("canonical_key", canonicalKey),
				zap.String("target_lang", lang),
				zap.Error(err),
			)
		}
	}
}

// Drain implements domain.Service. Each job reads the source answer,
// translates it and upserts a cache entry in the target language.
func (s *Service) Drain(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}

	jobs, err := s.repo.ListPending(ctx, s.db, limit)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, job := range jobs {
		if err := s.process(ctx, job); err != nil {
			now := s.clock.Now()
			attempts := job.Attempts + 1
			if markErr := s.repo.MarkFailure(ctx, s.db, job.ID, attempts, err.Error(), now); markErr != nil {
				s.log.Warn("translation failure mark failed", zap.Error(markErr))
			}
			continue
		}
		if err := s.repo.MarkDone(ctx, s.db, job.ID, s.clock.Now()); err != nil {
			s.log.Warn("translation done mark failed", zap.Error(err))
			continue
		}
		done++
	}
	return done, nil
}

func (s *Service) process(ctx context.Context, job translationdomain.TranslationJob) error {
	src, err := s.qaSvc.Lookup(ctx, qadomain.LookupRequest{
		CanonicalKey: job.CanonicalKey,
		Lang:         job.SourceLang,
	})
	if err != nil {
		return err
	}
	if !src.Found {
		return translationdomain.ErrInvalidJob
	}

	tctx, cancel := context.WithTimeout(ctx, translateTimeout)
	defer cancel()

	translated, err := s.generator.Translate(tctx, src.Answer, job.SourceLang, job.TargetLang)
	if err != nil {
		return err
	}

	return s.qaSvc.UpsertCache(ctx, qadomain.UpsertCacheRequest{
		CanonicalKey: job.CanonicalKey,
		Lang:         job.TargetLang,
		Answer:       translated,
		Source:       qadomain.SourceAI,
	})
}
