package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/naijatax/taxguide/internal/clock"
	qadomain "github.com/naijatax/taxguide/internal/qa/domain"
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
	repo  qadomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  qadomain.Repository
}

func NewService(p ServiceParam) qadomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("qa.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Lookup implements domain.Service. Library beats cache; canonical-key
// matching beats normalized-text matching unless the key carries no
// information at all.
func (s *Service) Lookup(ctx context.Context, req qadomain.LookupRequest) (qadomain.LookupResult, error) {
	if strings.TrimSpace(req.Lang) == "" {
		return qadomain.LookupResult{}, qadomain.ErrInvalidLookup
	}

	byKey := !req.TextOnly && strings.TrimSpace(req.CanonicalKey) != ""

	if byKey {
		lib, err := s.repo.FindLibraryByKey(ctx, s.db, req.CanonicalKey, req.Lang)
		if err != nil {
			return qadomain.LookupResult{}, err
		}
		if lib != nil {
			return qadomain.LookupResult{Found: true, Answer: lib.Answer, Source: qadomain.HitLibrary, EntryID: int64(lib.ID)}, nil
		}
	}
	if req.NormalizedQuestion != "" {
		lib, err := s.repo.FindLibraryByText(ctx, s.db, req.NormalizedQuestion, req.Lang)
		if err != nil {
			return qadomain.LookupResult{}, err
		}
		if lib != nil {
			return qadomain.LookupResult{Found: true, Answer: lib.Answer, Source: qadomain.HitLibrary, EntryID: int64(lib.ID)}, nil
		}
	}

	if byKey {
		hit, err := s.repo.FindCacheByKey(ctx, s.db, req.CanonicalKey, req.Lang)
		if err != nil {
			return qadomain.LookupResult{}, err
		}
		if hit != nil {
			return qadomain.LookupResult{Found: true, Answer: hit.Answer, Source: qadomain.HitCache, EntryID: int64(hit.ID)}, nil
		}
	}
	if req.NormalizedQuestion != "" {
		hit, err := s.repo.FindCacheByText(ctx, s.db, req.NormalizedQuestion, req.Lang)
		if err != nil {
			return qadomain.LookupResult{}, err
		}
		if hit != nil {
			return qadomain.LookupResult{Found: true, Answer: hit.Answer, Source: qadomain.HitCache, EntryID: int64(hit.ID)}, nil
		}
	}

	return qadomain.LookupResult{}, nil
}

// UpsertCache implements domain.Service. Overwrite-then-insert keyed by
// (canonical_key, lang) when a real key exists, else by
// (normalized_question, lang); a duplicate-key loser retries the
// overwrite so concurrent writers converge on one row.
func (s *Service) UpsertCache(ctx context.Context, req qadomain.UpsertCacheRequest) error {
	if strings.TrimSpace(req.Lang) == "" || strings.TrimSpace(req.Answer) == "" {
		return qadomain.ErrInvalidUpsert
	}
	if req.CanonicalKey == "" && req.NormalizedQuestion == "" {
		return qadomain.ErrInvalidUpsert
	}

	now := s.clock.Now()
	overwrite := func() (bool, error) {
		if req.CanonicalKey != "" {
			return s.repo.OverwriteCacheByKey(ctx, s.db, req.CanonicalKey, req.Lang, req.Answer, req.Source, now)
		}
		return s.repo.OverwriteCacheByText(ctx, s.db, req.NormalizedQuestion, req.Lang, req.Answer, req.Source, now)
	}

	ok, err := overwrite()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	entry := &qadomain.CacheEntry{
		ID:                 s.genID.Generate(),
		NormalizedQuestion: req.NormalizedQuestion,
		CanonicalKey:       req.CanonicalKey,
		Lang:               req.Lang,
		Answer:             req.Answer,
		Source:             req.Source,
		Enabled:            true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.InsertCache(ctx, s.db, entry); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return err
		}
		if _, err := overwrite(); err != nil {
			return err
		}
	}
	return nil
}

// Touch implements domain.Service.
func (s *Service) Touch(ctx context.Context, req qadomain.TouchRequest) {
	now := s.clock.Now()
	var err error
	switch req.Source {
	case qadomain.HitLibrary:
		err = s.repo.TouchLibrary(ctx, s.db, req.EntryID, now)
	case qadomain.HitCache:
		err = s.repo.TouchCache(ctx, s.db, req.EntryID, now)
	default:
		return
	}
	if err != nil {
		s.log.Debug("usage touch failed",
			zap.String("source", req.Source),
			zap.Int64("entry_id", req.EntryID),
			zap.Error(err),
		)
	}
}
