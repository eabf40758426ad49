package server

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/guestlist/internal/accountcontext"
	"github.com/smallbiznis/guestlist/internal/observability/logger"
	"github.com/smallbiznis/guestlist/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	rateLimitScopeGuestForm = "guest_form"
	rateLimitScopeBooking   = "booking"
)

type allowFunc func(ctx context.Context, caller string) (ratelimit.Result, error)

// GuestFormRateLimit throttles RSVP and registration submissions per account.
func (s *Server) GuestFormRateLimit() gin.HandlerFunc {
	return s.rateLimit(rateLimitScopeGuestForm, s.limiter.AllowGuestForm)
}

// BookingRateLimit throttles seat bookings, carpool offers and joins per account.
func (s *Server) BookingRateLimit() gin.HandlerFunc {
	return s.rateLimit(rateLimitScopeBooking, s.limiter.AllowBooking)
}

func (s *Server) rateLimit(scope string, allow allowFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		res, err := allow(ctx, rateLimitCaller(c))
		if err != nil {
			logger.FromContext(ctx).Warn("rate limit check failed",
				zap.String("scope", scope),
				zap.Error(err),
			)
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			logger.FromContext(ctx).Info("rate limit exceeded",
				zap.String("scope", scope),
				zap.String("route", normalizeRateLimitEndpoint(c)),
			)
			c.Header("Retry-After", retryAfterSeconds(res.RetryAfter))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

// rateLimitCaller keys the bucket by account, falling back to the client
// address for requests that reach the limiter unauthenticated.
func rateLimitCaller(c *gin.Context) string {
	if id, ok := accountcontext.IDFromContext(c.Request.Context()); ok {
		return "account:" + id
	}
	return "ip:" + c.ClientIP()
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	if endpoint := c.FullPath(); endpoint != "" {
		return endpoint
	}
	if c.Request != nil && c.Request.URL.Path != "" {
		return c.Request.URL.Path
	}
	return "unknown"
}
