// Package paystack verifies and parses Paystack webhook deliveries.
package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	paymentdomain "github.com/naijatax/taxguide/internal/payment/domain"
)

// Adapter authenticates webhook payloads and extracts the canonical
// payment event. Verification of the charge against the Paystack API is
// the Client's job.
type Adapter struct {
	secret string
}

func NewAdapter(secret string) *Adapter {
	return &Adapter{secret: secret}
}

// Verify checks the x-paystack-signature header: hex HMAC-SHA512 of the
// raw body under the secret key.
func (a *Adapter) Verify(ctx context.Context, payload []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" || a.secret == "" {
		return paymentdomain.ErrInvalidSignature
	}

	mac := hmac.New(sha512.New, []byte(a.secret))
	_, _ = mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

// Parse extracts the payment event from a webhook body. Only successful
// charges are fulfilled; every other event type is ignored.
func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.PaymentEvent, error) {
	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	if strings.TrimSpace(event.Event) != "charge.success" {
		return nil, paymentdomain.ErrEventIgnored
	}
	if !strings.EqualFold(strings.TrimSpace(event.Data.Status), "success") {
		return nil, paymentdomain.ErrEventIgnored
	}
	if strings.TrimSpace(event.Data.Reference) == "" {
		return nil, paymentdomain.ErrInvalidPayload
	}

	accountID := strings.TrimSpace(event.Data.Metadata.AccountID)
	planCode := strings.TrimSpace(event.Data.Metadata.PlanCode)
	if accountID == "" || planCode == "" {
		return nil, paymentdomain.ErrMissingMetadata
	}

	return &paymentdomain.PaymentEvent{
		Reference:  strings.TrimSpace(event.Data.Reference),
		AccountID:  accountID,
		PlanCode:   planCode,
		AtExpiry:   event.Data.Metadata.AtExpiry.value(),
		AmountKobo: event.Data.Amount,
		Currency:   strings.TrimSpace(event.Data.Currency),
		Channel:    strings.TrimSpace(event.Data.Channel),
		PaidAt:     parsePaidAt(event.Data.PaidAt),
		RawPayload: payload,
	}, nil
}

type webhookEvent struct {
	Event string      `json:"event"`
	Data  webhookData `json:"data"`
}

type webhookData struct {
	Reference string          `json:"reference"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	Channel   string          `json:"channel"`
	PaidAt    string          `json:"paid_at"`
	Metadata  webhookMetadata `json:"metadata"`
}

type webhookMetadata struct {
	AccountID string   `json:"account_id"`
	PlanCode  string   `json:"plan_code"`
	AtExpiry  boolFlag `json:"at_expiry"`
}

// boolFlag tolerates both JSON booleans and the stringified values
// Paystack echoes back for metadata set through some client libraries.
type boolFlag struct {
	set bool
}

func (b *boolFlag) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "true", "1":
		b.set = true
	default:
		b.set = false
	}
	return nil
}

func (b boolFlag) value() bool { return b.set }

func parsePaidAt(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC()
	}
	// Paystack sometimes drops the zone suffix.
	if t, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
