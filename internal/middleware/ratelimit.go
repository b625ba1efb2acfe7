package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RateLimit 返回一个 Gin 中间件，按客户端 IP 做固定窗口限流。
// keyPrefix 用于多个服务共用一个 Redis 时区分计数器。
func RateLimit(redisClient *redis.Client, keyPrefix string, maxRequests int, window time.Duration) gin.HandlerFunc {
	// 启动时检查依赖
	if redisClient == nil {
		panic("Redis client cannot be nil for RateLimit middleware")
	}
	if maxRequests <= 0 {
		panic("maxRequests must be positive for RateLimit middleware")
	}
	if window <= 0 {
		panic("window duration must be positive for RateLimit middleware")
	}

	return func(c *gin.Context) {
		key := keyPrefix + "ratelimit:" + c.ClientIP()
		ctx := c.Request.Context()

		// INCR 本身是原子的，Pipeline 减少一次往返
		pipe := redisClient.Pipeline()
		incrCmd := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		if _, err := pipe.Exec(ctx); err != nil {
			// Redis 不可用时放行，限流不应该拖垮整个 API
			logrus.WithError(err).Error("RateLimit: Redis Pipeline failed, allowing request")
			c.Next()
			return
		}

		count := incrCmd.Val()
		remaining := int64(maxRequests) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(maxRequests) {
			logrus.WithFields(logrus.Fields{"client_ip": c.ClientIP(), "count": count}).Warn("RateLimit: Too many requests")
			c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "Too many requests"})
			c.Abort()
			return
		}

		c.Next()
	}
}
