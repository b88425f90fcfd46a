package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func TestTTLCache_ExpiresAfterTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewTTLCache[string, int](60*time.Second, clock.Now)

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	clock.Advance(59 * time.Second)
	_, ok = c.Get("a")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestTTLCache_EvictsExpiredOnAccess(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewTTLCache[string, string](10*time.Second, clock.Now)

	c.Set("old", "x")
	clock.Advance(5 * time.Second)
	c.Set("new", "y")
	assert.Equal(t, 2, c.Len())

	clock.Advance(6 * time.Second)
	_, ok := c.Get("new")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestTTLCache_Delete(t *testing.T) {
	c := NewTTLCache[string, int](time.Minute, nil)
	c.Set("k", 7)
	c.Delete("k")
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestRedisHelpers_DegradeWithoutClient(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	assert.True(t, FirstSeen(ctx, "webhook:x", time.Minute))
	assert.True(t, FirstSeen(ctx, "webhook:x", time.Minute))
	_, ok := GetCached(ctx, "k")
	assert.False(t, ok)
	SetCached(ctx, "k", []byte("v"), time.Minute)
	InvalidateDashboard(ctx, "t1")
	assert.False(t, IsHealthy())
}
