package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/naijatax/taxguide/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyAskAccount = "ask:account:%s"
	keySweepLock  = "sweep:lock:%s"
)

// AskLimiter throttles question traffic per account and arbitrates
// which instance runs the periodic sweeps. Disabled configuration
// yields a nil limiter; every method degrades to allow.
type AskLimiter struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	askRate  float64
	askBurst int
	lockTTL  time.Duration
}

func NewAskLimiter(cfg config.Config) (*AskLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.AskRate <= 0 || limitCfg.AskBurst <= 0 {
		return nil, errors.New("ask rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &AskLimiter{
		enabled:  true,
		bucket:   NewTokenBucket(client),
		locker:   NewLocker(client),
		askRate:  limitCfg.AskRate,
		askBurst: limitCfg.AskBurst,
		lockTTL:  limitCfg.SweepLockTTL,
	}, nil
}

func (l *AskLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *AskLimiter) AllowAccount(ctx context.Context, accountID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyAskAccount, strings.TrimSpace(accountID)), l.askRate, l.askBurst)
}

// TryLockSweep claims the named sweep for one run across all instances.
func (l *AskLimiter) TryLockSweep(ctx context.Context, name string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, fmt.Sprintf(keySweepLock, name), l.lockTTL)
}

func (l *AskLimiter) ReleaseSweep(ctx context.Context, name, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, fmt.Sprintf(keySweepLock, name), token)
}
