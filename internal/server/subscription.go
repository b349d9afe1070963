package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	creditdomain "github.com/naijatax/taxguide/internal/credit/domain"
	subscriptiondomain "github.com/naijatax/taxguide/internal/subscription/domain"
)

func (s *Server) SubscriptionStatus(c *gin.Context) {
	accountID := strings.TrimSpace(c.Param("account_id"))

	resp, err := s.subscriptionSvc.Status(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) StartTrial(c *gin.Context) {
	accountID := strings.TrimSpace(c.Param("account_id"))

	resp, err := s.subscriptionSvc.StartTrial(c.Request.Context(), subscriptiondomain.StartTrialRequest{
		AccountID: accountID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type activatePlanRequest struct {
	PlanCode   string `json:"plan_code"`
	PaymentRef string `json:"payment_ref,omitempty"`
	AtExpiry   bool   `json:"at_expiry,omitempty"`
}

// ActivatePlan is the operator escape hatch; normal activation comes
// through the payment webhook.
func (s *Server) ActivatePlan(c *gin.Context) {
	accountID := strings.TrimSpace(c.Param("account_id"))

	var req activatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, subscriptiondomain.ErrUnknownPlan)
		return
	}

	resp, err := s.subscriptionSvc.Activate(c.Request.Context(), subscriptiondomain.ActivateRequest{
		AccountID:  accountID,
		PlanCode:   req.PlanCode,
		PaymentRef: req.PaymentRef,
		AtExpiry:   req.AtExpiry,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type schedulePlanRequest struct {
	NextPlanCode string `json:"next_plan_code"`
}

func (s *Server) SchedulePlan(c *gin.Context) {
	accountID := strings.TrimSpace(c.Param("account_id"))

	var req schedulePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, subscriptiondomain.ErrUnknownPlan)
		return
	}

	resp, err := s.subscriptionSvc.Schedule(c.Request.Context(), subscriptiondomain.ScheduleRequest{
		AccountID:    accountID,
		NextPlanCode: req.NextPlanCode,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) CancelSubscription(c *gin.Context) {
	accountID := strings.TrimSpace(c.Param("account_id"))

	resp, err := s.subscriptionSvc.Cancel(c.Request.Context(), subscriptiondomain.CancelRequest{
		AccountID: accountID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreditBalance(c *gin.Context) {
	accountID := strings.TrimSpace(c.Param("account_id"))

	resp, err := s.creditSvc.Balance(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type grantCreditsRequest struct {
	Total  int64  `json:"total"`
	Reason string `json:"reason,omitempty"`
}

func (s *Server) GrantCredits(c *gin.Context) {
	accountID := strings.TrimSpace(c.Param("account_id"))

	var req grantCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, creditdomain.ErrInvalidAmount)
		return
	}

	err := s.creditSvc.Grant(c.Request.Context(), creditdomain.GrantRequest{
		AccountID: accountID,
		Total:     req.Total,
		Reason:    req.Reason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) DailyUsage(c *gin.Context) {
	accountID := strings.TrimSpace(c.Param("account_id"))

	limit := 0
	status, err := s.subscriptionSvc.Status(c.Request.Context(), accountID)
	if err == nil && status.State.Granted() {
		if plan, ok := s.plans.Plan(status.PlanCode); ok {
			limit = plan.DailyCacheLimit
		}
	}

	resp, err := s.usageSvc.Today(c.Request.Context(), accountID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
