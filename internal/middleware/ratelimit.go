package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AnshRaj112/crm-backend/pkg/clientip"
)

const (
	RateLimitWindow      = 120 * time.Second
	RateLimitMaxRequests = 300
	RateLimitKeyPrefix   = "ratelimit:"
	BlockedIPKeyPrefix   = "blocked_ip:"
	BlockedIPDuration    = 15 * time.Minute
)

// RedisRateLimit counts requests per IP in a fixed Redis window. An IP
// that exceeds the limit is blocked for BlockedIPDuration. Redis errors
// let the request through.
func RedisRateLimit(client *redis.Client, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientip.RealClientIP(r)

			blockedKey := BlockedIPKeyPrefix + ip
			blocked, err := client.Exists(ctx, blockedKey).Result()
			if err == nil && blocked > 0 {
				writeError(w, http.StatusTooManyRequests, "Your IP has been temporarily blocked due to excessive requests. Please try again later.")
				return
			}

			key := RateLimitKeyPrefix + ip
			count, err := client.Incr(ctx, key).Result()
			if err != nil {
				log.Warn("rate limit counter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				client.Expire(ctx, key, RateLimitWindow)
			}

			if count > RateLimitMaxRequests {
				if err := client.Set(ctx, blockedKey, "1", BlockedIPDuration).Err(); err != nil {
					log.Warn("failed to block ip", zap.String("ip", ip), zap.Error(err))
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(BlockedIPDuration.Seconds())))
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(RateLimitMaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(RateLimitMaxRequests-count, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(RateLimitWindow).Unix(), 10))
			next.ServeHTTP(w, r)
		})
	}
}
