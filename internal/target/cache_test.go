package target

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/models"
)

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), &redis.Options{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func testCacheRoundTrip(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	var got models.AnalyticsResult
	hit, err := c.Get(ctx, "analytics:device_1", &got)
	if err != nil || hit {
		t.Fatalf("expected miss on empty cache, got hit=%v err=%v", hit, err)
	}

	want := models.AnalyticsResult{DeviceID: "device_1", RollingAverage: 12.5, WindowLength: 3}
	if err := c.Set(ctx, "analytics:device_1", want, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	hit, err = c.Get(ctx, "analytics:device_1", &got)
	if err != nil || !hit {
		t.Fatalf("expected hit, got hit=%v err=%v", hit, err)
	}
	if got.DeviceID != want.DeviceID || got.RollingAverage != want.RollingAverage || got.WindowLength != 3 {
		t.Fatalf("unexpected cached value: %+v", got)
	}

	cm, err := c.Metrics(ctx)
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if cm.Hits != 1 || cm.Misses != 1 || cm.Size != 1 {
		t.Fatalf("expected 1 hit, 1 miss, size 1, got %+v", cm)
	}
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	testCacheRoundTrip(t, c)

	cm, _ := c.Metrics(context.Background())
	if cm.Backend != "memory" {
		t.Fatalf("expected backend memory, got %q", cm.Backend)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if err := c.Set(ctx, "k", 1, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var v int
	if hit, _ := c.Get(ctx, "k", &v); !hit || v != 1 {
		t.Fatalf("expected fresh hit with 1, got hit=%v v=%d", hit, v)
	}

	now = now.Add(time.Minute)
	if hit, _ := c.Get(ctx, "k", &v); hit {
		t.Fatalf("expected entry to expire at its TTL")
	}
	cm, _ := c.Metrics(ctx)
	if cm.Size != 0 {
		t.Fatalf("expected size 0 after expiry, got %d", cm.Size)
	}
}

func TestMemoryCacheNoTTL(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_ = c.Set(ctx, "k", "v", 0)
	now = now.Add(24 * time.Hour)
	var v string
	if hit, _ := c.Get(ctx, "k", &v); !hit || v != "v" {
		t.Fatalf("expected entry without TTL to persist")
	}
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c, _ := newRedisCache(t)
	testCacheRoundTrip(t, c)

	cm, _ := c.Metrics(context.Background())
	if cm.Backend != "redis" {
		t.Fatalf("expected backend redis, got %q", cm.Backend)
	}
}

func TestRedisCacheExpiry(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "analytics:device_2", models.AnalyticsResult{DeviceID: "device_2"}, DefaultCacheTTL); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ttl := mr.TTL("analytics:device_2"); ttl != DefaultCacheTTL {
		t.Fatalf("expected TTL %v, got %v", DefaultCacheTTL, ttl)
	}

	mr.FastForward(DefaultCacheTTL + time.Second)
	var got models.AnalyticsResult
	if hit, err := c.Get(ctx, "analytics:device_2", &got); err != nil || hit {
		t.Fatalf("expected miss after TTL, got hit=%v err=%v", hit, err)
	}
}

func TestRedisCacheUnreachable(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := lis.Addr().String()
	_ = lis.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NewRedisCache(ctx, &redis.Options{Addr: addr, MaxRetries: -1}); err == nil {
		t.Fatalf("expected error connecting to a closed server")
	}
}

func TestRedisCacheServerError(t *testing.T) {
	c, mr := newRedisCache(t)
	mr.SetError("ERR simulated failure")

	var got models.AnalyticsResult
	if _, err := c.Get(context.Background(), "analytics:x", &got); err == nil {
		t.Fatalf("expected server error to surface")
	}
	if _, err := c.Metrics(context.Background()); err == nil {
		t.Fatalf("expected Metrics to fail on server error")
	}
}
