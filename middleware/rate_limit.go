package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Redis        *redis.Client
	Requests     int           // Number of requests allowed
	Window       time.Duration // Time window
	KeyPrefix    string        // Redis key prefix
	SkipPaths    []string      // Paths to skip rate limiting
	ErrorMessage string        // Custom error message
}

// RateLimitStrategy defines different rate limiting strategies
type RateLimitStrategy string

const (
	StrategyIP           RateLimitStrategy = "ip"
	StrategyReporter     RateLimitStrategy = "reporter"
	StrategyReporterOrIP RateLimitStrategy = "reporter_or_ip"
)

// RateLimiter provides redis-backed sliding window rate limiting
type RateLimiter struct {
	config   RateLimitConfig
	strategy RateLimitStrategy
}

func NewRateLimiter(config RateLimitConfig, strategy RateLimitStrategy) *RateLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "rate_limit"
	}
	if config.ErrorMessage == "" {
		config.ErrorMessage = "Rate limit exceeded"
	}

	return &RateLimiter{
		config:   config,
		strategy: strategy,
	}
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		if rl.shouldSkipPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		key := rl.getKey(c)
		if key == "" {
			c.Next()
			return
		}

		allowed, resetTime, remaining, err := rl.checkRateLimit(key)
		if err != nil {
			logrus.Errorf("Rate limit check failed: %v", err)
			// Allow request to proceed on error
			c.Next()
			return
		}

		rl.setRateLimitHeaders(c, remaining, resetTime)

		if !allowed {
			rl.handleRateLimitExceeded(c, resetTime)
			return
		}

		c.Next()
	})
}

// checkRateLimit runs a sliding window log over a redis sorted set
func (rl *RateLimiter) checkRateLimit(key string) (allowed bool, resetTime time.Time, remaining int, err error) {
	ctx := context.Background()
	now := time.Now()
	window := rl.config.Window

	pipe := rl.config.Redis.Pipeline()

	expiredBefore := now.Add(-window).UnixNano()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", expiredBefore))
	pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, &redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	pipe.Expire(ctx, key, window+time.Minute)

	results, err := pipe.Exec(ctx)
	if err != nil {
		return false, time.Time{}, 0, err
	}

	currentCount := results[1].(*redis.IntCmd).Val()

	remaining = rl.config.Requests - int(currentCount) - 1
	if remaining < 0 {
		remaining = 0
	}

	resetTime = now.Add(window)
	allowed = currentCount < int64(rl.config.Requests)

	// Take back the slot we optimistically claimed
	if !allowed {
		rl.config.Redis.ZRem(ctx, key, fmt.Sprintf("%d", now.UnixNano()))
	}

	return allowed, resetTime, remaining, nil
}

func (rl *RateLimiter) getKey(c *gin.Context) string {
	prefix := rl.config.KeyPrefix

	switch rl.strategy {
	case StrategyIP:
		return fmt.Sprintf("%s:ip:%s", prefix, rl.getClientIP(c))

	case StrategyReporter:
		reporterID := c.GetString("reporterID")
		if reporterID == "" {
			return ""
		}
		return fmt.Sprintf("%s:reporter:%s", prefix, reporterID)

	case StrategyReporterOrIP:
		reporterID := c.GetString("reporterID")
		if reporterID != "" {
			return fmt.Sprintf("%s:reporter:%s", prefix, reporterID)
		}
		return fmt.Sprintf("%s:ip:%s", prefix, rl.getClientIP(c))

	default:
		return fmt.Sprintf("%s:ip:%s", prefix, rl.getClientIP(c))
	}
}

func (rl *RateLimiter) getClientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := c.GetHeader("X-Real-IP"); xri != "" {
		return xri
	}

	return c.ClientIP()
}

func (rl *RateLimiter) setRateLimitHeaders(c *gin.Context, remaining int, resetTime time.Time) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Requests))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))
	c.Header("X-RateLimit-Window", rl.config.Window.String())
}

func (rl *RateLimiter) handleRateLimitExceeded(c *gin.Context, resetTime time.Time) {
	retryAfter := time.Until(resetTime).Seconds()
	if retryAfter < 0 {
		retryAfter = 0
	}

	c.Header("Retry-After", strconv.Itoa(int(retryAfter)))

	logrus.WithFields(logrus.Fields{
		"client_ip":   rl.getClientIP(c),
		"reporter_id": c.GetString("reporterID"),
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"retry_after": retryAfter,
	}).Warn("Rate limit exceeded")

	c.JSON(429, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "TOO_MANY_REQUESTS",
			"message": rl.config.ErrorMessage,
			"details": gin.H{
				"retry_after": int(retryAfter),
				"reset_time":  resetTime.Unix(),
			},
		},
	})
	c.Abort()
}

func (rl *RateLimiter) shouldSkipPath(path string) bool {
	for _, skipPath := range rl.config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	return false
}

// Predefined rate limiters

// DefaultRateLimit limits anonymous traffic per IP
func DefaultRateLimit(redis *redis.Client, requests int, window time.Duration) gin.HandlerFunc {
	config := RateLimitConfig{
		Redis:        redis,
		Requests:     requests,
		Window:       window,
		KeyPrefix:    "rate_limit",
		ErrorMessage: "Too many requests. Please try again later.",
		SkipPaths: []string{
			"/health",
		},
	}

	limiter := NewRateLimiter(config, StrategyIP)
	return limiter.Middleware()
}

// IngestRateLimit limits telemetry uploads per reporter. Devices batch their
// samples, so the ceiling is per batch, not per point.
func IngestRateLimit(redis *redis.Client) gin.HandlerFunc {
	config := RateLimitConfig{
		Redis:        redis,
		Requests:     120,
		Window:       time.Minute,
		KeyPrefix:    "ingest_rate_limit",
		ErrorMessage: "Telemetry upload rate limit exceeded. Batch your samples.",
	}

	limiter := NewRateLimiter(config, StrategyReporterOrIP)
	return limiter.Middleware()
}

// WebSocketRateLimit limits connection churn per IP
func WebSocketRateLimit(redis *redis.Client) gin.HandlerFunc {
	config := RateLimitConfig{
		Redis:        redis,
		Requests:     10,
		Window:       time.Minute,
		KeyPrefix:    "ws_rate_limit",
		ErrorMessage: "WebSocket connection rate limit exceeded.",
	}

	limiter := NewRateLimiter(config, StrategyIP)
	return limiter.Middleware()
}
