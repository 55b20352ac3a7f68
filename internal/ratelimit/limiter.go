// Package ratelimit throttles checkout bursts per merchant. The counters live
// in Redis so all API instances share one budget.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/cedarpos/backend/internal/common"
)

// Limiter reports whether a request under the given key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, resetAt time.Time, err error)
}

// RedisLimiter implements Limiter on a shared Redis store.
type RedisLimiter struct {
	Store limiter.Store
}

// NewRedisStore builds the limiter store.
func NewRedisStore(client *redis.Client, prefix string) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
}

// Allow consumes one unit from the window for key.
func (l RedisLimiter) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	instance := limiter.New(l.Store, limiter.Rate{Period: window, Limit: int64(max)})
	res, err := instance.Get(ctx, key)
	if err != nil {
		return false, 0, time.Time{}, err
	}
	return !res.Reached, int(res.Remaining), time.Unix(res.Reset, 0), nil
}

// MerchantOrIPKey keys the limit by authenticated merchant, falling back to
// the client address for unauthenticated requests.
func MerchantOrIPKey(r *http.Request) string {
	if merchantID, ok := common.MerchantID(r.Context()); ok {
		return "merchant:" + merchantID.String()
	}
	return "ip:" + clientIP(r)
}

// clientIP prefers proxy headers over the socket address so one NAT does not
// share a budget.
func clientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
