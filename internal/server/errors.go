package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	askdomain "github.com/naijatax/taxguide/internal/ask/domain"
	creditdomain "github.com/naijatax/taxguide/internal/credit/domain"
	paymentdomain "github.com/naijatax/taxguide/internal/payment/domain"
	plandomain "github.com/naijatax/taxguide/internal/plan/domain"
	subscriptiondomain "github.com/naijatax/taxguide/internal/subscription/domain"
	usagedomain "github.com/naijatax/taxguide/internal/usage/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate_limited")
	ErrNotFound     = errors.New("not_found")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// mapError translates domain sentinels into wire responses. Every gate
// outcome keeps its stable type string so channel frontends can branch
// on it.
func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, askdomain.ErrInvalidRequest),
		errors.Is(err, subscriptiondomain.ErrInvalidAccount),
		errors.Is(err, creditdomain.ErrInvalidAccount),
		errors.Is(err, usagedomain.ErrInvalidAccount),
		errors.Is(err, creditdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrMissingMetadata):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: "invalid request"}

	case errors.Is(err, subscriptiondomain.ErrNoSubscription):
		return http.StatusForbidden, errorPayload{Type: "subscription_required", Message: "an active subscription or trial is required"}

	case errors.Is(err, creditdomain.ErrInsufficientCredits):
		return http.StatusPaymentRequired, errorPayload{Type: "no_credits", Message: "ai credits exhausted"}

	case errors.Is(err, usagedomain.ErrCacheLimitHit):
		return http.StatusTooManyRequests, errorPayload{Type: "cache_limit_reached", Message: "daily answer limit reached"}

	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{Type: "rate_limited", Message: "too many requests"}

	case errors.Is(err, subscriptiondomain.ErrTrialAlreadyUsed):
		return http.StatusConflict, errorPayload{Type: "trial_already_used", Message: "trial has already been used"}

	case errors.Is(err, subscriptiondomain.ErrUnknownPlan),
		errors.Is(err, plandomain.ErrUnknownPlan):
		return http.StatusNotFound, errorPayload{Type: "unknown_plan", Message: "unknown plan code"}

	case errors.Is(err, subscriptiondomain.ErrNothingToSchedule):
		return http.StatusConflict, errorPayload{Type: "nothing_to_schedule", Message: "no running period to schedule against"}

	case errors.Is(err, askdomain.ErrGenerationFailed):
		return http.StatusBadGateway, errorPayload{Type: "generation_failed", Message: "answer generation failed, no credits were spent"}

	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusUnauthorized, errorPayload{Type: "invalid_signature", Message: "webhook signature mismatch"}

	case errors.Is(err, paymentdomain.ErrVerificationFailed),
		errors.Is(err, paymentdomain.ErrAmountMismatch):
		return http.StatusBadRequest, errorPayload{Type: "verification_failed", Message: "charge could not be verified"}

	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{Type: "unauthorized", Message: "unauthorized"}

	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "not found"}
	}

	return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
}
