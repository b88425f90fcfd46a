package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefixes
const (
	DashboardKeyPrefix = "dashboard:"
	WebhookKeyPrefix   = "webhook:"
)

var client *redis.Client

// Init initializes the Redis connection. On failure the client stays nil and
// every helper below degrades to a no-op.
func Init(host, port, password string) error {
	if host == "" {
		host = "redis"
	}
	if port == "" {
		port = "6379"
	}

	client = redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// Close the failed client and set to nil for graceful degradation
		client.Close()
		client = nil
		return err
	}
	log.Printf("[Redis] Connected to %s:%s", host, port)
	return nil
}

// SetClient replaces the package client; nil disables Redis
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the Redis client
func GetClient() *redis.Client {
	return client
}

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

// FirstSeen records key and reports whether this is its first occurrence within
// ttl. Without Redis every key counts as first seen.
func FirstSeen(ctx context.Context, key string, ttl time.Duration) bool {
	if client == nil {
		return true
	}
	ok, err := client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		log.Printf("[Redis] SETNX %s failed: %v", key, err)
		return true
	}
	return ok
}

// Forget removes a key recorded by FirstSeen so a failed delivery can be retried
func Forget(ctx context.Context, key string) {
	if client == nil {
		return
	}
	client.Del(ctx, key)
}

// InvalidatePattern removes all keys matching a glob pattern
func InvalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	keys, err := client.Keys(ctx, pattern).Result()
	if err == nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateDashboard clears shared KPI caches of a tenant
// Called when: cancellation, payment recorded, rental activated
func InvalidateDashboard(ctx context.Context, tenantID string) {
	InvalidatePattern(ctx, DashboardKeyPrefix+tenantID+"|*")
}

// IsHealthy returns true if Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}
