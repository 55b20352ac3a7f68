package rate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cedarpos/backend/internal/money"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestGetServesCachedRateWithoutDB(t *testing.T) {
	client, _ := newTestRedis(t)
	merchant := uuid.New()
	cached := money.ExchangeRate{USDToLBP: 91500, AsOf: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	data, _ := json.Marshal(cached)
	if err := client.Set(context.Background(), cacheKey(merchant), data, time.Minute).Err(); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	// Pool is nil: a DB round trip would panic, proving the cache hit.
	svc := &Service{Redis: client, CacheTTL: time.Minute}
	got, err := svc.Get(context.Background(), merchant)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.USDToLBP != 91500 {
		t.Fatalf("rate: got %v, want 91500", got.USDToLBP)
	}
}

func TestSetRejectsNonPositiveRate(t *testing.T) {
	svc := &Service{}
	_, err := svc.Set(context.Background(), uuid.New(), 0)
	if !errors.Is(err, money.ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
}
