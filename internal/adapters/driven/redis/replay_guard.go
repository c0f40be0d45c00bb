package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/agency-connect/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ReplayGuard = (*ReplayGuard)(nil)

// stateKeyPrefix namespaces consumed state markers
const stateKeyPrefix = "agency-connect:oauth-state:"

// ReplayGuard implements driven.ReplayGuard using Redis SET NX.
// Markers expire with the state window, so nothing needs cleaning up.
type ReplayGuard struct {
	client redis.UniversalClient
}

// NewReplayGuard creates a Redis-backed ReplayGuard
func NewReplayGuard(client redis.UniversalClient) *ReplayGuard {
	return &ReplayGuard{client: client}
}

// Consume marks token as used. Only the token digest is stored.
func (g *ReplayGuard) Consume(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, fmt.Errorf("replay guard ttl must be positive, got %s", ttl)
	}

	fresh, err := g.client.SetNX(ctx, stateKey(token), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record state token: %w", err)
	}
	return fresh, nil
}

// Ping checks connectivity to Redis.
func (g *ReplayGuard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

func stateKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return stateKeyPrefix + hex.EncodeToString(sum[:])
}

// Connect parses a redis:// URL and verifies the server is reachable.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
