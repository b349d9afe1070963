package server

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/naijatax/taxguide/internal/observability/metrics"
	"go.uber.org/zap"
)

// MetricsMiddleware records per-route latency. The route template keeps
// cardinality bounded regardless of path parameters.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// AdminRequired guards the operator surface with the static API token.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := s.cfg.AdminAPIToken
		if token == "" {
			AbortWithError(c, ErrNotFound)
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(presented)), []byte(token)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// askAllowed throttles per account before any work happens. Redis
// being down fails open; the entitlement gate behind it still holds.
func (s *Server) askAllowed(c *gin.Context, accountID string) bool {
	if !s.askLimiter.Enabled() {
		return true
	}

	allowed, err := s.askLimiter.AllowAccount(c.Request.Context(), accountID)
	if err != nil {
		s.log.Warn("rate limiter unavailable", zap.Error(err))
		return true
	}
	return allowed
}
