package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"logitoon-ai-api/internal/config"
	"logitoon-ai-api/internal/infrastructure/persistence/redis"
	"logitoon-ai-api/pkg/errors"
	"logitoon-ai-api/pkg/logger"
)

// RateLimitRemainingHeader 当前窗口剩余次数
const RateLimitRemainingHeader = "X-RateLimit-Remaining"

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error)
}

// RateLimit 按客户端 IP 与路由做滑动窗口限流；限流器故障时放行
func RateLimit(cfg config.RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = 30
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := redis.BuildRateLimitKey(c.ClientIP(), c.Request.Method+" "+route)

		allowed, err := limiter.Allow(ctx, key, limit, window)
		if err != nil {
			logger.Warn(ctx, "rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}
		if !allowed {
			c.Header(RateLimitRemainingHeader, "0")
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":     http.StatusTooManyRequests,
				"message":  errors.UserMessageRateLimited,
				"error":    gin.H{"error_code": errors.CodeTooManyRequests},
				"trace_id": c.GetString("trace_id"),
			})
			return
		}

		if remaining, err := limiter.Remaining(ctx, key, limit, window); err == nil {
			c.Header(RateLimitRemainingHeader, strconv.Itoa(remaining))
		}
		c.Next()
	}
}
