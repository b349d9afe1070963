package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Payment statuses. A row is inserted as processing the moment a
// delivery claims the reference; success and failed are terminal.
const (
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
)

// Payment is the idempotency marker and audit row for one provider
// reference. The unique reference index is what makes fulfillment
// exactly-once across concurrent webhook deliveries.
type Payment struct {
	ID         snowflake.ID   `json:"id" gorm:"primaryKey"`
	Reference  string         `json:"reference" gorm:"type:text;not null;uniqueIndex"`
	AccountID  string         `json:"account_id" gorm:"type:text;not null;index"`
	PlanCode   string         `json:"plan_code" gorm:"type:text;not null"`
	AmountKobo int64          `json:"amount_kobo" gorm:"not null"`
	Currency   string         `json:"currency" gorm:"type:text;not null"`
	Status     string         `json:"status" gorm:"type:text;not null"`
	Raw        datatypes.JSON `json:"raw" gorm:"type:jsonb"`
	PaidAt     *time.Time     `json:"paid_at"`
	CreatedAt  time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time      `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// PaymentEvent is the canonical successful-charge event parsed out of a
// provider webhook.
type PaymentEvent struct {
	Reference  string
	AccountID  string
	PlanCode   string
	AtExpiry   bool
	AmountKobo int64
	Currency   string
	Channel    string
	PaidAt     time.Time
	RawPayload []byte
}
