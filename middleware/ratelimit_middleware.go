package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/upb/travel-agent/services"
	"github.com/upb/travel-agent/services/ratelimit"
	"github.com/upb/travel-agent/utils"
	"go.uber.org/zap"
)

// Limiter decides whether a keyed request may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (*ratelimit.Result, error)
}

// RejectionRecorder counts rejected requests
type RejectionRecorder interface {
	RecordRateLimited()
}

// RateLimitMiddleware limits requests per client IP
type RateLimitMiddleware struct {
	limiter Limiter
	metrics RejectionRecorder
	logger  *zap.Logger
}

// NewRateLimitMiddleware creates a new RateLimitMiddleware. metrics may be nil.
func NewRateLimitMiddleware(limiter Limiter, metrics RejectionRecorder, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		metrics: metrics,
		logger:  logger,
	}
}

// Limit rejects callers over their window with 429 and Retry-After.
// Store failures let the request through.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := ClientIP(r)

		result, err := m.limiter.Allow(ctx, "ip:"+ip)
		if err != nil {
			m.logger.Error("rate limit check failed",
				zap.String("request_id", GetRequestIDFromContext(ctx)),
				zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			if m.metrics != nil {
				m.metrics.RecordRateLimited()
			}
			m.logger.Warn("rate limit exceeded",
				zap.String("request_id", GetRequestIDFromContext(ctx)),
				zap.String("client_ip", ip),
				zap.Duration("retry_after", result.RetryAfter))
			_ = utils.WriteTooManyRequests(w, services.ErrRateLimitExceeded.Message, result.RetryAfter, map[string]interface{}{
				"limit":       result.Limit,
				"retry_after": int(result.RetryAfter.Seconds()),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
