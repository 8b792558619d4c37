package middleware

import (
	"fmt"
	"sync"
	"time"

	"culinai/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiter 以客戶端 IP 分桶的令牌桶限流
type RateLimiter struct {
	limit  rate.Limit
	burst  int
	window time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter 每個 window 允許 requests 次請求
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    requests,
		window:   window,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow 檢查 key 是否還有可用令牌
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[key] = l
	}
	rl.mu.Unlock()
	return l.Allow()
}

// RateLimit 限流中間件
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(requests, window)

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			common.LogInfo("Rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)
			c.Header("Retry-After", fmt.Sprintf("%d", int(limiter.window.Seconds())))
			Abort(c, common.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
