// internal/server/middleware.go
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"jobboard-backend/internal/common/logger"
	"jobboard-backend/internal/common/metrics"

	"github.com/gin-gonic/gin"
)

// TokenVerifier is the identity collaborator surface: the server only needs
// the authenticated-or-not outcome.
type TokenVerifier interface {
	ValidateToken(ctx context.Context, token string) (valid bool, subject string, err error)
}

// OperationRecorder receives one measurement pair per completed operation.
// Satisfied by observability.Observability.
type OperationRecorder interface {
	RecordRequestProcessed(ctx context.Context, operation, status string)
	RecordRequestDuration(ctx context.Context, operation string, duration time.Duration)
}

// RequestLogger logs one line per request with latency and status.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("http request", map[string]interface{}{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
	}
}

// Metrics records request totals and durations per route, and forwards the
// same measurements to the operation recorder when one is configured.
func Metrics(recorder OperationRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		status := http.StatusText(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, route, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request.Method, route).Observe(elapsed.Seconds())

		if recorder != nil {
			operation := c.Request.Method + " " + route
			recorder.RecordRequestProcessed(c.Request.Context(), operation, status)
			recorder.RecordRequestDuration(c.Request.Context(), operation, elapsed)
		}
	}
}

// RequireAuth gates protected routes behind bearer token verification. With a
// nil verifier (auth disabled), requests pass through.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		valid, subject, err := verifier.ValidateToken(c.Request.Context(), token)
		if err != nil || !valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("subject", subject)
		c.Next()
	}
}
