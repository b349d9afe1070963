package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/naijatax/taxguide/internal/payment/domain"
	subscriptiondomain "github.com/naijatax/taxguide/internal/subscription/domain"
	"go.uber.org/zap"
)

const paystackSignatureHeader = "x-paystack-signature"

// unprocessableReason classifies fulfillment outcomes that must still be
// acknowledged with a 200: the provider retries anything else, and
// redelivering a charge we cannot honor never makes it honorable. Only
// a signature mismatch or a store failure is an actual error response.
func unprocessableReason(err error) (string, bool) {
	switch {
	case errors.Is(err, paymentdomain.ErrInvalidPayload):
		return "invalid_payload", true
	case errors.Is(err, paymentdomain.ErrMissingMetadata):
		return "missing_metadata", true
	case errors.Is(err, subscriptiondomain.ErrUnknownPlan):
		return "unknown_plan", true
	case errors.Is(err, paymentdomain.ErrVerificationFailed):
		return "verification_failed", true
	case errors.Is(err, paymentdomain.ErrAmountMismatch):
		return "amount_mismatch", true
	}
	return "", false
}

func (s *Server) HandlePaystackWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, paymentdomain.ErrInvalidPayload)
		return
	}

	resp, err := s.paymentSvc.HandleWebhook(c.Request.Context(), paymentdomain.WebhookRequest{
		Body:      payload,
		Signature: c.GetHeader(paystackSignatureHeader),
	})
	if err != nil {
		if reason, ok := unprocessableReason(err); ok {
			s.log.Warn("webhook event not processed", zap.String("reason", reason))
			s.obsMetrics.RecordPayment("unprocessable")
			c.JSON(http.StatusOK, gin.H{"ok": true, "status": "unprocessable", "reason": reason})
			return
		}
		s.obsMetrics.RecordPayment("rejected")
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordPayment(resp.Status)
	c.JSON(http.StatusOK, resp)
}
