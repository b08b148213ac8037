package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const blocklistPrefix = "auth:blocklist:"

// TokenBlocklist records revoked access token IDs in Redis until they expire.
// A nil client turns every call into a no-op.
type TokenBlocklist struct {
	client *redis.Client
}

// NewTokenBlocklist constructs a blocklist backed by client.
func NewTokenBlocklist(client *redis.Client) *TokenBlocklist {
	return &TokenBlocklist{client: client}
}

// Block marks jti revoked for ttl. Non-positive ttl is ignored since the token has already expired.
func (b *TokenBlocklist) Block(ctx context.Context, jti string, ttl time.Duration) error {
	if b == nil || b.client == nil || jti == "" || ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, blocklistPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis block token: %w", err)
	}
	return nil
}

// IsBlocked reports whether jti was revoked.
func (b *TokenBlocklist) IsBlocked(ctx context.Context, jti string) (bool, error) {
	if b == nil || b.client == nil || jti == "" {
		return false, nil
	}
	err := b.client.Get(ctx, blocklistPrefix+jti).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("redis check token: %w", err)
	}
}

// Ping reports Redis reachability. Without a client there is nothing to check.
func (b *TokenBlocklist) Ping(ctx context.Context) error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Ping(ctx).Err()
}
