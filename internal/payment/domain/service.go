package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidSignature   = errors.New("invalid_signature")
	ErrInvalidPayload     = errors.New("invalid_payload")
	ErrEventIgnored       = errors.New("event_ignored")
	ErrMissingMetadata    = errors.New("missing_metadata")
	ErrVerificationFailed = errors.New("verification_failed")
	ErrAmountMismatch     = errors.New("amount_mismatch")
)

type WebhookRequest struct {
	// Body is the raw request body; the signature covers these exact
	// bytes.
	Body      []byte
	Signature string
}

type WebhookResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	// Duplicate is set when the reference had already been fulfilled.
	Duplicate bool `json:"duplicate,omitempty"`
}

// Service fulfills provider payment notifications. HandleWebhook must
// be safe to call any number of times with the same reference; exactly
// one call activates the subscription.
type Service interface {
	HandleWebhook(ctx context.Context, req WebhookRequest) (WebhookResponse, error)
}
