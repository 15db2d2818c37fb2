package health

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
)

// TestRedisChecker_HealthCheck tests the Redis health checker construction.
func TestRedisChecker_HealthCheck(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})

	checker := NewRedisChecker(client)
	if checker == nil {
		t.Fatal("expected checker to be non-nil")
	}

	if checker.client != client {
		t.Error("expected checker client to match provided client")
	}
}

// TestRedisChecker_HealthCheck_ContextCancellation tests that context cancellation works.
func TestRedisChecker_HealthCheck_ContextCancellation(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})

	checker := NewRedisChecker(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := checker.HealthCheck(ctx)
	if err == nil {
		// Error is expected due to cancelled context or connection failure
		// Both are acceptable for this test
		t.Log("HealthCheck completed (might be cached or immediate)")
	}
}
