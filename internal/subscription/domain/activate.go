package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// BuildRecord assembles a fresh current record for a plan activation.
// Scheduled applications pass startAt = previous period end so coverage
// has no gap; immediate activations pass startAt = now.
func BuildRecord(id snowflake.ID, accountID, planCode string, durationDays int, trial bool, paymentRef *string, startAt, now time.Time) SubscriptionRecord {
	return SubscriptionRecord{
		ID:         id,
		AccountID:  accountID,
		PlanCode:   planCode,
		Status:     RecordStatusActive,
		Trial:      trial,
		StartAt:    startAt,
		ExpiresAt:  startAt.Add(time.Duration(durationDays) * 24 * time.Hour),
		PaymentRef: paymentRef,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
