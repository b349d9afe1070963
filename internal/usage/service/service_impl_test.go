package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/naijatax/taxguide/internal/clock"
	usagedomain "github.com/naijatax/taxguide/internal/usage/domain"
	usagerepo "github.com/naijatax/taxguide/internal/usage/repository"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	if err := db.Exec(
		`CREATE TABLE qa_daily_usage (
			account_id TEXT NOT NULL,
			day TEXT NOT NULL,
			cache_count INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (account_id, day)
		)`,
	).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}

	// In-memory sqlite gives every pooled connection its own database;
	// pin the pool to one so concurrent callers share the schema.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return db
}

func newTestService(t *testing.T, db *gorm.DB, fake *clock.FakeClock) usagedomain.Service {
	t.Helper()
	return NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: fake,
		Repo:  usagerepo.Provide(),
	})
}

func TestConsumeSlotUpToLimit(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, fake)

	for i := 0; i < 3; i++ {
		assert.NoError(t, svc.ConsumeSlot(ctx, usagedomain.ConsumeSlotRequest{AccountID: "acct_1", Limit: 3}))
	}

	err := svc.ConsumeSlot(ctx, usagedomain.ConsumeSlotRequest{AccountID: "acct_1", Limit: 3})
	assert.True(t, errors.Is(err, usagedomain.ErrCacheLimitHit))

	usage, err := svc.Today(ctx, "acct_1", 3)
	assert.NoError(t, err)
	assert.Equal(t, 3, usage.CacheCount)
	assert.Equal(t, 0, usage.Remaining)
}

func TestConcurrentConsumeSlotBoundedByLimit(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, fake)

	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.ConsumeSlot(ctx, usagedomain.ConsumeSlotRequest{AccountID: "acct_1", Limit: 3}); err == nil {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(3), wins)

	usage, err := svc.Today(ctx, "acct_1", 3)
	assert.NoError(t, err)
	assert.Equal(t, 3, usage.CacheCount)
	assert.Equal(t, 0, usage.Remaining)
}

func TestConsumeSlotResetsNextDay(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, fake)

	assert.NoError(t, svc.ConsumeSlot(ctx, usagedomain.ConsumeSlotRequest{AccountID: "acct_1", Limit: 1}))
	assert.Error(t, svc.ConsumeSlot(ctx, usagedomain.ConsumeSlotRequest{AccountID: "acct_1", Limit: 1}))

	fake.Advance(2 * time.Hour)
	assert.NoError(t, svc.ConsumeSlot(ctx, usagedomain.ConsumeSlotRequest{AccountID: "acct_1", Limit: 1}))
}

func TestConsumeSlotUnlimited(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, fake)

	for i := 0; i < 10; i++ {
		assert.NoError(t, svc.ConsumeSlot(ctx, usagedomain.ConsumeSlotRequest{AccountID: "acct_1", Limit: 0}))
	}

	usage, err := svc.Today(ctx, "acct_1", 0)
	assert.NoError(t, err)
	assert.Equal(t, 10, usage.CacheCount)
	assert.Equal(t, -1, usage.Remaining)
}

func TestAccountsDoNotShareCounters(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, fake)

	assert.NoError(t, svc.ConsumeSlot(ctx, usagedomain.ConsumeSlotRequest{AccountID: "acct_1", Limit: 1}))
	assert.NoError(t, svc.ConsumeSlot(ctx, usagedomain.ConsumeSlotRequest{AccountID: "acct_2", Limit: 1}))
}
