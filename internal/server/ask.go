package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	askdomain "github.com/naijatax/taxguide/internal/ask/domain"
	creditdomain "github.com/naijatax/taxguide/internal/credit/domain"
	subscriptiondomain "github.com/naijatax/taxguide/internal/subscription/domain"
	usagedomain "github.com/naijatax/taxguide/internal/usage/domain"
)

func (s *Server) HandleAsk(c *gin.Context) {
	var req askdomain.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, askdomain.ErrInvalidRequest)
		return
	}

	if !s.askAllowed(c, req.AccountID) {
		s.obsMetrics.RecordAskDenied("rate_limited")
		AbortWithError(c, ErrRateLimited)
		return
	}

	resp, err := s.askSvc.Ask(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, subscriptiondomain.ErrNoSubscription):
			s.obsMetrics.RecordAskDenied("subscription_required")
		case errors.Is(err, creditdomain.ErrInsufficientCredits):
			s.obsMetrics.RecordAskDenied("no_credits")
		case errors.Is(err, usagedomain.ErrCacheLimitHit):
			s.obsMetrics.RecordAskDenied("cache_limit_reached")
		}
		AbortWithError(c, err)
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = askdomain.ModeText
	}
	s.obsMetrics.RecordAsk(resp.Source, mode)
	c.JSON(http.StatusOK, resp)
}
