package paystack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/naijatax/taxguide/internal/config"
	paymentdomain "github.com/naijatax/taxguide/internal/payment/domain"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// Verifier confirms a charge against the provider before it is
// fulfilled. The webhook body alone is never trusted.
type Verifier interface {
	VerifyTransaction(ctx context.Context, reference string) (*VerifiedTransaction, error)
}

type VerifiedTransaction struct {
	Reference  string
	Status     string
	AmountKobo int64
	Currency   string
}

// Client calls the Paystack REST API.
type Client struct {
	secretKey string
	baseURL   string
	client    *http.Client
	log       *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		secretKey: cfg.PaystackSecretKey,
		baseURL:   strings.TrimRight(cfg.PaystackBaseURL, "/"),
		client:    &http.Client{Timeout: cfg.PaystackTimeout},
		log:       log.Named("paystack.client"),
	}
}

// VerifyTransaction fetches the authoritative charge state for a
// reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifiedTransaction, error) {
	endpoint := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, url.PathEscape(reference))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paystack verify: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("paystack verify: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("verify request rejected",
			zap.Int("status_code", resp.StatusCode),
			zap.String("reference", reference),
		)
		return nil, paymentdomain.ErrVerificationFailed
	}

	var payload verifyResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("paystack verify: decode: %w", err)
	}
	if !payload.Status {
		return nil, paymentdomain.ErrVerificationFailed
	}

	return &VerifiedTransaction{
		Reference:  payload.Data.Reference,
		Status:     payload.Data.Status,
		AmountKobo: payload.Data.Amount,
		Currency:   payload.Data.Currency,
	}, nil
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	} `json:"data"`
}
