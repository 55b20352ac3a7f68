package catalog

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, ttl), mr
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	in := cachedList{Items: []Product{{Name: "Arak", UnitPriceUSD: 12}}, Total: 1}
	if err := cache.SetJSON(ctx, "k", in); err != nil {
		t.Fatalf("set: %v", err)
	}
	var out cachedList
	ok, err := cache.GetJSON(ctx, "k", &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if out.Total != 1 || out.Items[0].Name != "Arak" {
		t.Fatalf("unexpected payload: %+v", out)
	}
}

func TestCacheMissAndDelete(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	var out cachedList
	ok, err := cache.GetJSON(ctx, "missing", &out)
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := cache.SetJSON(ctx, "k", cachedList{Total: 3}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := cache.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ok, _ = cache.GetJSON(ctx, "k", &out)
	if ok {
		t.Fatal("key survived delete")
	}
}

func TestCacheExpires(t *testing.T) {
	cache, mr := newTestCache(t, time.Second)
	ctx := context.Background()

	if err := cache.SetJSON(ctx, "k", cachedList{Total: 2}); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(2 * time.Second)

	var out cachedList
	ok, _ := cache.GetJSON(ctx, "k", &out)
	if ok {
		t.Fatal("key survived TTL")
	}
}
