package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	askdomain "github.com/naijatax/taxguide/internal/ask/domain"
	askrepo "github.com/naijatax/taxguide/internal/ask/repository"
	"github.com/naijatax/taxguide/internal/clock"
	"github.com/naijatax/taxguide/internal/config"
	creditdomain "github.com/naijatax/taxguide/internal/credit/domain"
	creditrepo "github.com/naijatax/taxguide/internal/credit/repository"
	creditservice "github.com/naijatax/taxguide/internal/credit/service"
	qarepo "github.com/naijatax/taxguide/internal/qa/repository"
	qaservice "github.com/naijatax/taxguide/internal/qa/service"
	subscriptiondomain "github.com/naijatax/taxguide/internal/subscription/domain"
	subscriptionrepo "github.com/naijatax/taxguide/internal/subscription/repository"
	subscriptionservice "github.com/naijatax/taxguide/internal/subscription/service"
	translationrepo "github.com/naijatax/taxguide/internal/translation/repository"
	translationservice "github.com/naijatax/taxguide/internal/translation/service"
	usagedomain "github.com/naijatax/taxguide/internal/usage/domain"
	usagerepo "github.com/naijatax/taxguide/internal/usage/repository"
	usageservice "github.com/naijatax/taxguide/internal/usage/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type generatorMock struct {
	mock.Mock
}

func (m *generatorMock) Generate(ctx context.Context, question, lang string) (string, error) {
	args := m.Called(ctx, question, lang)
	return args.String(0), args.Error(1)
}

func (m *generatorMock) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	args := m.Called(ctx, text, sourceLang, targetLang)
	return args.String(0), args.Error(1)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// In-memory sqlite gives every pooled connection its own database;
	// pin the pool to one so the async touch goroutine sees the schema.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	schema := []string{
		`CREATE TABLE subscriptions (
			id BIGINT PRIMARY KEY,
			account_id TEXT NOT NULL,
			plan_code TEXT NOT NULL,
			status TEXT NOT NULL,
			trial BOOLEAN NOT NULL DEFAULT FALSE,
			start_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			next_plan_code TEXT,
			payment_ref TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_subscriptions_payment_ref ON subscriptions(payment_ref) WHERE payment_ref IS NOT NULL`,
		`CREATE TABLE credit_balances (
			account_id TEXT PRIMARY KEY,
			balance BIGINT NOT NULL,
			total BIGINT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE credit_ledger (
			id BIGINT PRIMARY KEY,
			account_id TEXT NOT NULL,
			delta BIGINT NOT NULL,
			reason TEXT NOT NULL,
			ref TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE qa_daily_usage (
			account_id TEXT NOT NULL,
			day TEXT NOT NULL,
			cache_count INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (account_id, day)
		)`,
		`CREATE TABLE qa_library (
			id BIGINT PRIMARY KEY,
			question TEXT NOT NULL,
			normalized_question TEXT NOT NULL,
			canonical_key TEXT NOT NULL,
			lang TEXT NOT NULL,
			answer TEXT NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			priority INTEGER NOT NULL DEFAULT 0,
			use_count BIGINT NOT NULL DEFAULT 0,
			last_used_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE qa_cache (
			id BIGINT PRIMARY KEY,
			normalized_question TEXT NOT NULL,
			canonical_key TEXT NOT NULL,
			lang TEXT NOT NULL,
			answer TEXT NOT NULL,
			source TEXT NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			priority INTEGER NOT NULL DEFAULT 0,
			use_count BIGINT NOT NULL DEFAULT 0,
			last_used_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_qa_cache_key_lang ON qa_cache(canonical_key, lang) WHERE canonical_key <> ''`,
		`CREATE UNIQUE INDEX ux_qa_cache_text_lang ON qa_cache(normalized_question, lang) WHERE canonical_key = ''`,
		`CREATE TABLE translation_jobs (
			id BIGINT PRIMARY KEY,
			canonical_key TEXT NOT NULL,
			source_lang TEXT NOT NULL,
			target_lang TEXT NOT NULL,
			source_table TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_translation_jobs_key_lang ON translation_jobs(canonical_key, target_lang)`,
		`CREATE TABLE qa_events (
			id BIGINT PRIMARY KEY,
			account_id TEXT NOT NULL,
			question TEXT NOT NULL,
			normalized_question TEXT NOT NULL,
			canonical_key TEXT NOT NULL,
			lang TEXT NOT NULL,
			source TEXT NOT NULL,
			mode TEXT NOT NULL,
			fallback_used BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

type testEnv struct {
	db      *gorm.DB
	clock   *clock.FakeClock
	gen     *generatorMock
	askSvc  askdomain.Service
	subSvc  subscriptiondomain.Service
	credSvc creditdomain.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	gen := &generatorMock{}
	log := zap.NewNop()

	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	plans := config.NewPlanCatalogHolder(config.Config{GraceWindowDays: 5}, log)

	subSvc := subscriptionservice.NewService(subscriptionservice.ServiceParam{
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      fake,
		Repo:       subscriptionrepo.Provide(),
		CreditRepo: creditrepo.Provide(),
		Plans:      plans,
	})
	qaSvc := qaservice.NewService(qaservice.ServiceParam{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  qarepo.Provide(),
	})
	usageSvc := usageservice.NewService(usageservice.ServiceParam{
		DB:    db,
		Log:   log,
		Clock: fake,
		Repo:  usagerepo.Provide(),
	})
	credSvc := creditservice.NewService(creditservice.ServiceParam{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  creditrepo.Provide(),
	})
	translationSvc := translationservice.NewService(translationservice.ServiceParam{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     fake,
		Repo:      translationrepo.Provide(),
		QASvc:     qaSvc,
		Generator: gen,
	})

	askSvc := NewService(ServiceParam{
		DB:              db,
		Log:             log,
		GenID:           node,
		Clock:           fake,
		Repo:            askrepo.Provide(),
		SubscriptionSvc: subSvc,
		QASvc:           qaSvc,
		UsageSvc:        usageSvc,
		CreditSvc:       credSvc,
		TranslationSvc:  translationSvc,
		Generator:       gen,
		Plans:           plans,
	})

	return &testEnv{
		db:      db,
		clock:   fake,
		gen:     gen,
		askSvc:  askSvc,
		subSvc:  subSvc,
		credSvc: credSvc,
	}
}

func (e *testEnv) startTrial(t *testing.T, accountID string) {
	t.Helper()
	_, err := e.subSvc.StartTrial(context.Background(), subscriptiondomain.StartTrialRequest{AccountID: accountID})
	if err != nil {
		t.Fatalf("start trial: %v", err)
	}
}

func (e *testEnv) balance(t *testing.T, accountID string) int64 {
	t.Helper()
	var balance int64
	if err := e.db.Raw(`SELECT balance FROM credit_balances WHERE account_id = ?`, accountID).Scan(&balance).Error; err != nil {
		t.Fatalf("read balance: %v", err)
	}
	return balance
}

func (e *testEnv) count(t *testing.T, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := e.db.Raw(query, args...).Scan(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestAskRejectsInvalidRequests(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.askSvc.Ask(ctx, askdomain.AskRequest{AccountID: "acct-1", Question: "   "})
	assert.True(t, errors.Is(err, askdomain.ErrInvalidRequest))

	_, err = env.askSvc.Ask(ctx, askdomain.AskRequest{AccountID: "acct-1", Question: "What is VAT?", Mode: "video"})
	assert.True(t, errors.Is(err, askdomain.ErrInvalidRequest))
}

func TestAskRequiresSubscription(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.askSvc.Ask(context.Background(), askdomain.AskRequest{
		AccountID: "acct-none",
		Question:  "What is VAT?",
	})
	assert.True(t, errors.Is(err, subscriptiondomain.ErrNoSubscription))
}

func TestAskDeniedWhenPlanLeftCatalog(t *testing.T) {
	env := newTestEnv(t)

	// Active record for a plan code the catalog no longer carries.
	err := env.db.Exec(
		`INSERT INTO subscriptions (id, account_id, plan_code, status, trial, start_at, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		1, "acct-legacy", "retired_plan", "active", false,
		time.Date(2025, 5, 25, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 25, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 25, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 25, 0, 0, 0, 0, time.UTC),
	).Error
	assert.NoError(t, err)

	_, err = env.askSvc.Ask(context.Background(), askdomain.AskRequest{
		AccountID: "acct-legacy",
		Question:  "What is VAT?",
	})
	assert.True(t, errors.Is(err, subscriptiondomain.ErrUnknownPlan))
	env.gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestAskGeneratesAndCaches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.startTrial(t, "acct-1")

	env.gen.On("Generate", mock.Anything, "What is VAT?", "en").Return("VAT is charged at 7.5%.", nil).Once()

	resp, err := env.askSvc.Ask(ctx, askdomain.AskRequest{AccountID: "acct-1", Question: "What is VAT?"})
	assert.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, askdomain.SourceAI, resp.Source)
	assert.Equal(t, "VAT is charged at 7.5%.", resp.Answer)
	assert.Equal(t, "vat|any|any|any", resp.CanonicalKey)
	assert.Equal(t, "en", resp.Lang)

	// Trial grants 5 credits, text generation costs 1.
	assert.Equal(t, int64(4), env.balance(t, "acct-1"))

	cached := env.count(t, `SELECT COUNT(*) FROM qa_cache WHERE canonical_key = ? AND lang = ?`, "vat|any|any|any", "en")
	assert.Equal(t, int64(1), cached)

	// One pending translation per supported language besides English.
	jobs := env.count(t, `SELECT COUNT(*) FROM translation_jobs WHERE canonical_key = ?`, "vat|any|any|any")
	assert.Equal(t, int64(4), jobs)

	env.gen.AssertExpectations(t)
}

func TestAskServesCacheWithoutSpendingCredits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.startTrial(t, "acct-1")

	env.gen.On("Generate", mock.Anything, "What is VAT?", "en").Return("VAT is charged at 7.5%.", nil).Once()

	_, err := env.askSvc.Ask(ctx, askdomain.AskRequest{AccountID: "acct-1", Question: "What is VAT?"})
	assert.NoError(t, err)

	resp, err := env.askSvc.Ask(ctx, askdomain.AskRequest{AccountID: "acct-1", Question: "what is VAT"})
	assert.NoError(t, err)
	assert.Equal(t, askdomain.SourceCache, resp.Source)
	assert.Equal(t, "VAT is charged at 7.5%.", resp.Answer)

	// Second answer came from the cache: no further credit spend, one
	// daily slot consumed.
	assert.Equal(t, int64(4), env.balance(t, "acct-1"))
	slots := env.count(t, `SELECT cache_count FROM qa_daily_usage WHERE account_id = ? AND day = ?`, "acct-1", "2025-06-01")
	assert.Equal(t, int64(1), slots)

	env.gen.AssertExpectations(t)
}

func TestAskLibraryHitIsFree(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.startTrial(t, "acct-1")

	now := env.clock.Now()
	err := env.db.Exec(
		`INSERT INTO qa_library (id, question, normalized_question, canonical_key, lang, answer, enabled, priority, use_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, TRUE, 10, 0, ?, ?)`,
		100, "What is VAT?", "what is vat", "vat|any|any|any", "en", "Curated VAT answer.", now, now,
	).Error
	assert.NoError(t, err)

	resp, err := env.askSvc.Ask(ctx, askdomain.AskRequest{AccountID: "acct-1", Question: "What is VAT?"})
	assert.NoError(t, err)
	assert.Equal(t, askdomain.SourceLibrary, resp.Source)
	assert.Equal(t, "Curated VAT answer.", resp.Answer)

	// Library answers cost nothing: no credit spend, no daily slot.
	assert.Equal(t, int64(5), env.balance(t, "acct-1"))
	slots := env.count(t, `SELECT COUNT(*) FROM qa_daily_usage WHERE account_id = ?`, "acct-1")
	assert.Equal(t, int64(0), slots)

	env.gen.AssertExpectations(t)
}

func TestAskCacheHitBlockedAtDailyLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.startTrial(t, "acct-1")

	env.gen.On("Generate", mock.Anything, "What is VAT?", "en").Return("VAT is charged at 7.5%.", nil).Once()
	_, err := env.askSvc.Ask(ctx, askdomain.AskRequest{AccountID: "acct-1", Question: "What is VAT?"})
	assert.NoError(t, err)

	// Trial allows 10 cached answers per day; pre-spend them all.
	err = env.db.Exec(
		`INSERT INTO qa_daily_usage (account_id, day, cache_count, updated_at) VALUES (?, ?, 10, ?)`,
		"acct-1", "2025-06-01", env.clock.Now(),
	).Error
	assert.NoError(t, err)

	_, err = env.askSvc.Ask(ctx, askdomain.AskRequest{AccountID: "acct-1", Question: "What is VAT?"})
	assert.True(t, errors.Is(err, usagedomain.ErrCacheLimitHit))
}

func TestAskGenerationBlockedWithoutCredits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.startTrial(t, "acct-1")

	err := env.db.Exec(`UPDATE credit_balances SET balance = 0 WHERE account_id = ?`, "acct-1").Error
	assert.NoError(t, err)

	_, err = env.askSvc.Ask(ctx, askdomain.AskRequest{AccountID: "acct-1", Question: "What is VAT?"})
	assert.True(t, errors.Is(err, creditdomain.ErrInsufficientCredits))

	// The generator must never run when the gate fails.
	env.gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestAskGenerationFailureRefundsCredit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.startTrial(t, "acct-1")

	env.gen.On("Generate", mock.Anything, "What is VAT?", "en").Return("", errors.New("upstream timeout")).Once()

	_, err := env.askSvc.Ask(ctx, askdomain.AskRequest{AccountID: "acct-1", Question: "What is VAT?"})
	assert.True(t, errors.Is(err, askdomain.ErrGenerationFailed))

	// The reserved credit is returned and nothing is cached.
	assert.Equal(t, int64(5), env.balance(t, "acct-1"))
	cached := env.count(t, `SELECT COUNT(*) FROM qa_cache`)
	assert.Equal(t, int64(0), cached)

	env.gen.AssertExpectations(t)
}

func TestAskVoiceModeCostsTwoCredits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.startTrial(t, "acct-1")

	env.gen.On("Generate", mock.Anything, "What is VAT?", "en").Return("VAT is charged at 7.5%.", nil).Once()

	resp, err := env.askSvc.Ask(ctx, askdomain.AskRequest{AccountID: "acct-1", Question: "What is VAT?", Mode: askdomain.ModeVoice})
	assert.NoError(t, err)
	assert.Equal(t, askdomain.SourceAI, resp.Source)
	assert.Equal(t, int64(3), env.balance(t, "acct-1"))
}

func TestAskFallsBackToBaseLanguage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.startTrial(t, "acct-1")

	now := env.clock.Now()
	err := env.db.Exec(
		`INSERT INTO qa_library (id, question, normalized_question, canonical_key, lang, answer, enabled, priority, use_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, TRUE, 10, 0, ?, ?)`,
		101, "What is VAT?", "what is vat", "vat|any|any|any", "en", "VAT is charged at 7.5%.", now, now,
	).Error
	assert.NoError(t, err)

	resp, err := env.askSvc.Ask(ctx, askdomain.AskRequest{AccountID: "acct-1", Question: "What is VAT?", Lang: "yoruba"})
	assert.NoError(t, err)
	assert.Equal(t, askdomain.SourceLibrary, resp.Source)
	assert.Equal(t, "yo", resp.Lang)
	assert.True(t, resp.FallbackUsed)

	// The miss in the requested language queued a translation.
	jobs := env.count(t, `SELECT COUNT(*) FROM translation_jobs WHERE canonical_key = ? AND target_lang = ?`, "vat|any|any|any", "yo")
	assert.Equal(t, int64(1), jobs)
}

func TestAskRecordsEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.startTrial(t, "acct-1")

	env.gen.On("Generate", mock.Anything, "What is VAT?", "en").Return("VAT is charged at 7.5%.", nil).Once()

	_, err := env.askSvc.Ask(ctx, askdomain.AskRequest{AccountID: "acct-1", Question: "What is VAT?"})
	assert.NoError(t, err)

	events := env.count(t, `SELECT COUNT(*) FROM qa_events WHERE account_id = ? AND source = ?`, "acct-1", askdomain.SourceAI)
	assert.Equal(t, int64(1), events)
}
