package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/naijatax/taxguide/internal/clock"
	"github.com/naijatax/taxguide/internal/config"
	creditrepo "github.com/naijatax/taxguide/internal/credit/repository"
	"github.com/naijatax/taxguide/internal/payment/adapters/paystack"
	paymentdomain "github.com/naijatax/taxguide/internal/payment/domain"
	paymentrepo "github.com/naijatax/taxguide/internal/payment/repository"
	subscriptionrepo "github.com/naijatax/taxguide/internal/subscription/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSecret = "sk_test_webhook"

type verifierMock struct {
	mock.Mock
}

func (m *verifierMock) VerifyTransaction(ctx context.Context, reference string) (*paystack.VerifiedTransaction, error) {
	args := m.Called(ctx, reference)
	if v := args.Get(0); v != nil {
		return v.(*paystack.VerifiedTransaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE payments (
			id BIGINT PRIMARY KEY,
			reference TEXT NOT NULL UNIQUE,
			account_id TEXT NOT NULL,
			plan_code TEXT NOT NULL,
			amount_kobo BIGINT NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			raw TEXT,
			paid_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
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
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, verifier *verifierMock) paymentdomain.Service {
	t.Helper()

	node, err := snowflake.NewNode(6)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	plans := config.NewPlanCatalogHolder(config.Config{GraceWindowDays: 5}, zap.NewNop())

	return NewService(ServiceParam{
		DB:               db,
		Log:              zap.NewNop(),
		GenID:            node,
		Clock:            fake,
		Repo:             paymentrepo.Provide(),
		Adapter:          paystack.NewAdapter(testSecret),
		Verifier:         verifier,
		SubscriptionRepo: subscriptionrepo.Provide(),
		CreditRepo:       creditrepo.Provide(),
		Plans:            plans,
	})
}

func sign(body []byte) string {
	mac := hmac.New(sha512.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func chargeBody(reference, accountID, planCode string, amount int64) []byte {
	return []byte(fmt.Sprintf(`{
		"event": "charge.success",
		"data": {
			"reference": %q,
			"amount": %d,
			"currency": "NGN",
			"status": "success",
			"channel": "card",
			"paid_at": "2025-06-01T11:59:30Z",
			"metadata": {"account_id": %q, "plan_code": %q}
		}
	}`, reference, amount, accountID, planCode))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	db := setupTestDB(t)
	verifier := &verifierMock{}
	svc := newTestService(t, db, verifier)

	body := chargeBody("ref-1", "acct-1", "monthly", 300000)
	_, err := svc.HandleWebhook(context.Background(), paymentdomain.WebhookRequest{
		Body:      body,
		Signature: "deadbeef",
	})
	assert.True(t, errors.Is(err, paymentdomain.ErrInvalidSignature))

	verifier.AssertNotCalled(t, "VerifyTransaction", mock.Anything, mock.Anything)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	db := setupTestDB(t)
	verifier := &verifierMock{}
	svc := newTestService(t, db, verifier)

	body := []byte(`{"event": "transfer.success", "data": {"reference": "ref-1", "status": "success"}}`)
	resp, err := svc.HandleWebhook(context.Background(), paymentdomain.WebhookRequest{
		Body:      body,
		Signature: sign(body),
	})
	assert.NoError(t, err)
	assert.Equal(t, "ignored", resp.Status)

	var n int64
	assert.NoError(t, db.Raw(`SELECT COUNT(*) FROM payments`).Scan(&n).Error)
	assert.Equal(t, int64(0), n)
}

func TestWebhookFulfillsCharge(t *testing.T) {
	db := setupTestDB(t)
	verifier := &verifierMock{}
	svc := newTestService(t, db, verifier)

	verifier.On("VerifyTransaction", mock.Anything, "ref-1").Return(&paystack.VerifiedTransaction{
		Reference:  "ref-1",
		Status:     "success",
		AmountKobo: 300000,
		Currency:   "NGN",
	}, nil).Once()

	body := chargeBody("ref-1", "acct-1", "monthly", 300000)
	resp, err := svc.HandleWebhook(context.Background(), paymentdomain.WebhookRequest{
		Body:      body,
		Signature: sign(body),
	})
	assert.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusSuccess, resp.Status)
	assert.False(t, resp.Duplicate)

	var status string
	assert.NoError(t, db.Raw(`SELECT status FROM payments WHERE reference = ?`, "ref-1").Scan(&status).Error)
	assert.Equal(t, paymentdomain.StatusSuccess, status)

	var planCode string
	assert.NoError(t, db.Raw(`SELECT plan_code FROM subscriptions WHERE account_id = ?`, "acct-1").Scan(&planCode).Error)
	assert.Equal(t, "monthly", planCode)

	var balance int64
	assert.NoError(t, db.Raw(`SELECT balance FROM credit_balances WHERE account_id = ?`, "acct-1").Scan(&balance).Error)
	assert.Equal(t, int64(60), balance)

	verifier.AssertExpectations(t)
}

func TestWebhookDuplicateDeliveryIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	verifier := &verifierMock{}
	svc := newTestService(t, db, verifier)

	verifier.On("VerifyTransaction", mock.Anything, "ref-1").Return(&paystack.VerifiedTransaction{
		Reference:  "ref-1",
		Status:     "success",
		AmountKobo: 300000,
		Currency:   "NGN",
	}, nil).Twice()

	body := chargeBody("ref-1", "acct-1", "monthly", 300000)
	req := paymentdomain.WebhookRequest{Body: body, Signature: sign(body)}

	_, err := svc.HandleWebhook(context.Background(), req)
	assert.NoError(t, err)

	resp, err := svc.HandleWebhook(context.Background(), req)
	assert.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusSuccess, resp.Status)
	assert.True(t, resp.Duplicate)

	// Exactly one subscription and one payment row.
	var n int64
	assert.NoError(t, db.Raw(`SELECT COUNT(*) FROM subscriptions WHERE account_id = ?`, "acct-1").Scan(&n).Error)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, db.Raw(`SELECT COUNT(*) FROM payments`).Scan(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestWebhookVerificationFailureBlocksFulfillment(t *testing.T) {
	db := setupTestDB(t)
	verifier := &verifierMock{}
	svc := newTestService(t, db, verifier)

	verifier.On("VerifyTransaction", mock.Anything, "ref-1").Return(&paystack.VerifiedTransaction{
		Reference: "ref-1",
		Status:    "failed",
	}, nil).Once()

	body := chargeBody("ref-1", "acct-1", "monthly", 300000)
	_, err := svc.HandleWebhook(context.Background(), paymentdomain.WebhookRequest{
		Body:      body,
		Signature: sign(body),
	})
	assert.True(t, errors.Is(err, paymentdomain.ErrVerificationFailed))

	var n int64
	assert.NoError(t, db.Raw(`SELECT COUNT(*) FROM subscriptions`).Scan(&n).Error)
	assert.Equal(t, int64(0), n)
}

func TestWebhookUnderpaidChargeRejected(t *testing.T) {
	db := setupTestDB(t)
	verifier := &verifierMock{}
	svc := newTestService(t, db, verifier)

	verifier.On("VerifyTransaction", mock.Anything, "ref-1").Return(&paystack.VerifiedTransaction{
		Reference:  "ref-1",
		Status:     "success",
		AmountKobo: 1000,
		Currency:   "NGN",
	}, nil).Once()

	body := chargeBody("ref-1", "acct-1", "monthly", 1000)
	_, err := svc.HandleWebhook(context.Background(), paymentdomain.WebhookRequest{
		Body:      body,
		Signature: sign(body),
	})
	assert.True(t, errors.Is(err, paymentdomain.ErrAmountMismatch))
}

func TestWebhookAtExpirySchedulesInsteadOfRestarting(t *testing.T) {
	db := setupTestDB(t)
	verifier := &verifierMock{}
	svc := newTestService(t, db, verifier)

	// A running monthly period ends on 2025-06-20.
	err := db.Exec(
		`INSERT INTO subscriptions (id, account_id, plan_code, status, trial, start_at, expires_at, created_at, updated_at)
		 VALUES (1, 'acct-1', 'monthly', 'active', FALSE, '2025-05-21 12:00:00+00:00', '2025-06-20 12:00:00+00:00', '2025-05-21 12:00:00+00:00', '2025-05-21 12:00:00+00:00')`,
	).Error
	assert.NoError(t, err)

	verifier.On("VerifyTransaction", mock.Anything, "ref-2").Return(&paystack.VerifiedTransaction{
		Reference:  "ref-2",
		Status:     "success",
		AmountKobo: 800000,
		Currency:   "NGN",
	}, nil).Once()

	body := []byte(fmt.Sprintf(`{
		"event": "charge.success",
		"data": {
			"reference": "ref-2",
			"amount": 800000,
			"currency": "NGN",
			"status": "success",
			"channel": "card",
			"paid_at": "2025-06-01T11:59:30Z",
			"metadata": {"account_id": "acct-1", "plan_code": "quarterly", "at_expiry": "true"}
		}
	}`))
	resp, err := svc.HandleWebhook(context.Background(), paymentdomain.WebhookRequest{
		Body:      body,
		Signature: sign(body),
	})
	assert.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusSuccess, resp.Status)

	var next string
	assert.NoError(t, db.Raw(`SELECT next_plan_code FROM subscriptions WHERE id = 1`).Scan(&next).Error)
	assert.Equal(t, "quarterly", next)

	var n int64
	assert.NoError(t, db.Raw(`SELECT COUNT(*) FROM subscriptions WHERE account_id = ?`, "acct-1").Scan(&n).Error)
	assert.Equal(t, int64(1), n)
}
