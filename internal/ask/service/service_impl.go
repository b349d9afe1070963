package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	askdomain "github.com/naijatax/taxguide/internal/ask/domain"
	askrepo "github.com/naijatax/taxguide/internal/ask/repository"
	"github.com/naijatax/taxguide/internal/canonical"
	"github.com/naijatax/taxguide/internal/clock"
	"github.com/naijatax/taxguide/internal/config"
	creditdomain "github.com/naijatax/taxguide/internal/credit/domain"
	"github.com/naijatax/taxguide/internal/providers/ai"
	qadomain "github.com/naijatax/taxguide/internal/qa/domain"
	subscriptiondomain "github.com/naijatax/taxguide/internal/subscription/domain"
	translationdomain "github.com/naijatax/taxguide/internal/translation/domain"
	usagedomain "github.com/naijatax/taxguide/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	generateTimeout = 60 * time.Second
	touchTimeout    = 5 * time.Second
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	repo  askrepo.Repository

	subscriptionSvc subscriptiondomain.Service
	qaSvc           qadomain.Service
	usageSvc        usagedomain.Service
	creditSvc       creditdomain.Service
	translationSvc  translationdomain.Service
	generator       ai.Generator
	plans           *config.PlanCatalogHolder
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  askrepo.Repository

	SubscriptionSvc subscriptiondomain.Service
	QASvc           qadomain.Service
	UsageSvc        usagedomain.Service
	CreditSvc       creditdomain.Service
	TranslationSvc  translationdomain.Service
	Generator       ai.Generator
	Plans           *config.PlanCatalogHolder
}

func NewService(p ServiceParam) askdomain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("ask.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		repo:            p.Repo,
		subscriptionSvc: p.SubscriptionSvc,
		qaSvc:           p.QASvc,
		usageSvc:        p.UsageSvc,
		creditSvc:       p.CreditSvc,
		translationSvc:  p.TranslationSvc,
		generator:       p.Generator,
		plans:           p.Plans,
	}
}

// Ask implements domain.Service.
//
// The gate cannot know the answer source in advance, so quota is taken
// just before serving a cache hit and credit just before generation; a
// library hit passes through free.
func (s *Service) Ask(ctx context.Context, req askdomain.AskRequest) (askdomain.AskResponse, error) {
	accountID := strings.TrimSpace(req.AccountID)
	question := strings.TrimSpace(req.Question)
	if accountID == "" || question == "" {
		return askdomain.AskResponse{}, askdomain.ErrInvalidRequest
	}

	mode := req.Mode
	if mode == "" {
		mode = askdomain.ModeText
	}
	cost := askdomain.CostForMode(mode)
	if cost == 0 {
		return askdomain.AskResponse{}, askdomain.ErrInvalidRequest
	}

	lang := canonical.DetectLang(question)
	if strings.TrimSpace(req.Lang) != "" {
		lang = canonical.NormalizeLang(req.Lang)
	}

	key := canonical.Canonicalize(question)

	status, err := s.subscriptionSvc.Status(ctx, accountID)
	if err != nil {
		return askdomain.AskResponse{}, err
	}
	if !status.State.Granted() {
		return askdomain.AskResponse{}, subscriptiondomain.ErrNoSubscription
	}

	// A granted subscription whose plan left the catalog must not slip
	// through with an unlimited daily quota.
	plan, ok := s.plans.Plan(status.PlanCode)
	if !ok {
		s.log.Warn("plan missing from catalog",
			zap.String("account_id", accountID),
			zap.String("plan_code", status.PlanCode))
		return askdomain.AskResponse{}, subscriptiondomain.ErrUnknownPlan
	}
	cacheLimit := plan.DailyCacheLimit

	// Requested language first, then the base language.
	hit, fallbackUsed, err := s.resolve(ctx, key, lang)
	if err != nil {
		return askdomain.AskResponse{}, err
	}

	if hit.Found {
		if hit.Source == qadomain.HitCache {
			err := s.usageSvc.ConsumeSlot(ctx, usagedomain.ConsumeSlotRequest{AccountID: accountID, Limit: cacheLimit})
			if err != nil {
				return askdomain.AskResponse{}, err
			}
		}

		if fallbackUsed && !key.AllAnyKey() {
			if err := s.translationSvc.Enqueue(ctx, translationdomain.EnqueueRequest{
				CanonicalKey: key.Key,
				SourceLang:   canonical.BaseLang,
				TargetLang:   lang,
				SourceTable:  sourceTableFor(hit.Source),
			}); err != nil {
				s.log.Debug("translation enqueue failed", zap.Error(err))
			}
		}

		s.touchAsync(hit)
		source := askdomain.SourceLibrary
		if hit.Source == qadomain.HitCache {
			source = askdomain.SourceCache
		}
		s.logEvent(ctx, accountID, question, key, lang, source, mode, fallbackUsed)

		return askdomain.AskResponse{
			OK:           true,
			Answer:       hit.Answer,
			Source:       source,
			Lang:         lang,
			CanonicalKey: key.Key,
			FallbackUsed: fallbackUsed,
		}, nil
	}

	// Nothing stored anywhere: generate. Credit is reserved first and
	// released if the generator fails, so a failed generation is never
	// charged.
	err = s.creditSvc.Consume(ctx, creditdomain.ConsumeRequest{
		AccountID: accountID,
		Amount:    cost,
		Reason:    "generation",
		Ref:       key.Key,
	})
	if err != nil {
		return askdomain.AskResponse{}, err
	}

	answer, genErr := s.generate(ctx, question, lang)
	if genErr != nil {
		if refundErr := s.creditSvc.Refund(ctx, creditdomain.RefundRequest{
			AccountID: accountID,
			Amount:    cost,
			Reason:    "generation_failed",
			Ref:       key.Key,
		}); refundErr != nil {
			s.log.Error("refund after failed generation failed",
				zap.String("account_id", accountID),
				zap.Error(refundErr),
			)
		}
		return askdomain.AskResponse{}, askdomain.ErrGenerationFailed
	}

	cacheKey := key.Key
	if key.AllAnyKey() {
		cacheKey = ""
	}
	err = s.qaSvc.UpsertCache(ctx, qadomain.UpsertCacheRequest{
		CanonicalKey:       cacheKey,
		NormalizedQuestion: key.Normalized,
		Lang:               lang,
		Answer:             answer,
		Source:             qadomain.SourceAI,
	})
	if err != nil {
		s.log.Warn("cache write after generation failed", zap.Error(err))
	}

	if cacheKey != "" {
		s.translationSvc.EnqueueMissing(ctx, cacheKey, lang, "qa_cache")
	}

	s.logEvent(ctx, accountID, question, key, lang, askdomain.SourceAI, mode, false)

	return askdomain.AskResponse{
		OK:           true,
		Answer:       answer,
		Source:       askdomain.SourceAI,
		Lang:         lang,
		CanonicalKey: key.Key,
	}, nil
}

// resolve looks up the requested language, falling back to the base
// language when the requested one has nothing stored.
func (s *Service) resolve(ctx context.Context, key canonical.Result, lang string) (qadomain.LookupResult, bool, error) {
	lookup := qadomain.LookupRequest{
		CanonicalKey:       key.Key,
		NormalizedQuestion: key.Normalized,
		Lang:               lang,
		TextOnly:           key.AllAnyKey(),
	}

	hit, err := s.qaSvc.Lookup(ctx, lookup)
	if err != nil {
		return qadomain.LookupResult{}, false, err
	}
	if hit.Found || lang == canonical.BaseLang {
		return hit, false, nil
	}

	lookup.Lang = canonical.BaseLang
	hit, err = s.qaSvc.Lookup(ctx, lookup)
	if err != nil {
		return qadomain.LookupResult{}, false, err
	}
	return hit, hit.Found, nil
}

func (s *Service) generate(ctx context.Context, question, lang string) (string, error) {
	gctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	answer, err := s.generator.Generate(gctx, question, lang)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		return "", askdomain.ErrGenerationFailed
	}
	return answer, nil
}

// touchAsync bumps use counters off the request path.
func (s *Service) touchAsync(hit qadomain.LookupResult) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
		defer cancel()
		s.qaSvc.Touch(ctx, qadomain.TouchRequest{Source: hit.Source, EntryID: hit.EntryID})
	}()
}

// logEvent is best-effort; the answer is already committed.
func (s *Service) logEvent(ctx context.Context, accountID, question string, key canonical.Result, lang, source, mode string, fallbackUsed bool) {
	event := &askdomain.AskEvent{
		ID:                 s.genID.Generate(),
		AccountID:          accountID,
		Question:           question,
		NormalizedQuestion: key.Normalized,
		CanonicalKey:       key.Key,
		Lang:               lang,
		Source:             source,
		Mode:               mode,
		FallbackUsed:       fallbackUsed,
		CreatedAt:          s.clock.Now(),
	}
	if err := s.repo.InsertEvent(ctx, s.db, event); err != nil {
		s.log.Debug("ask event write failed", zap.Error(err))
	}
}

func sourceTableFor(hitSource string) string {
	if hitSource == qadomain.HitLibrary {
		return "qa_library"
	}
	return "qa_cache"
}
