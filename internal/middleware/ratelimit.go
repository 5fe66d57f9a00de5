package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const rateLimitPrefix = "taxe_limiter"

// NewMemoryStore returns a process-local counter store.
func NewMemoryStore() limiter.Store {
	return memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          rateLimitPrefix,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	})
}

// NewRedisStore returns a counter store shared by every instance behind the same redis.
func NewRedisStore(redisURL string) (limiter.Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	store, err := sredis.NewStoreWithOptions(redis.NewClient(opts), limiter.StoreOptions{
		Prefix: rateLimitPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis limiter store: %w", err)
	}
	return store, nil
}

// RateLimit allows perMinute requests per client IP and answers 429 beyond that.
// The X-RateLimit-* headers are set on every response.
func RateLimit(store limiter.Store, perMinute int64) gin.HandlerFunc {
	rate := limiter.Rate{Period: time.Minute, Limit: perMinute}
	return mgin.NewMiddleware(
		limiter.New(store, rate),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			abortWithError(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, retry later")
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			// Fail open.
			if log := GetLogger(c); log != nil {
				log.Error("Rate limiter store failed", err, nil)
			}
			c.Next()
		}),
	)
}
