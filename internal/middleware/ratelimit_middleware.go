package middleware

import (
	"context"
	"net/http"
	"strconv"

	"eboto/internal/redis"
	"eboto/internal/services"
	"eboto/internal/transport/httpdto"
	"eboto/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BallotLimiter interface {
	AllowBallot(ctx context.Context, userID string) (*redis.RateLimitResult, error)
}

type CronLimiter interface {
	AllowCron(ctx context.Context, ip string) (*redis.RateLimitResult, error)
}

// BallotRateLimitMiddleware sheds repeated ballot submissions per user. It
// runs after AuthMiddleware. A Redis failure lets the request through; the
// ballot transaction is what guarantees a single accepted ballot.
func BallotRateLimitMiddleware(limiter BallotLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := services.UserIDFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}
		result, err := limiter.AllowBallot(c.Request.Context(), userID.String())
		if !admit(c, result, err, "ballot rate limit exceeded") {
			return
		}
		c.Next()
	}
}

// CronRateLimitMiddleware caps scheduler triggers per client IP.
func CronRateLimitMiddleware(limiter CronLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.AllowCron(c.Request.Context(), c.ClientIP())
		if !admit(c, result, err, "cron rate limit exceeded") {
			return
		}
		c.Next()
	}
}

func admit(c *gin.Context, result *redis.RateLimitResult, err error, message string) bool {
	if err != nil {
		logger.OrGlobal(nil).WithContext(c.Request.Context()).Logger.Warn("rate limit check failed", zap.Error(err))
		return true
	}
	setRateLimitHeaders(c, result)
	if !result.Allowed {
		c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse(message, "RATE_LIMITED"))
		c.Abort()
		return false
	}
	return true
}

func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
