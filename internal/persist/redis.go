package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/entradago/entradago-backend/pkg/redis"
)

// RedisBridge stores cart snapshots under a namespaced redis key with no TTL.
type RedisBridge struct {
	client *redis.Client
}

// NewRedisBridge wraps the shared redis client.
func NewRedisBridge(client *redis.Client) (*RedisBridge, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisBridge{client: client}, nil
}

// Save overwrites the user's snapshot. An empty item list deletes the key
// instead: a missing snapshot and an empty cart read the same on cold start.
func (b *RedisBridge) Save(ctx context.Context, userID string, payload []byte) error {
	if emptySnapshot(payload) {
		return b.client.Del(ctx, b.client.CartSnapshotKey(userID))
	}
	return b.client.Set(ctx, b.client.CartSnapshotKey(userID), string(payload), 0)
}

func emptySnapshot(payload []byte) bool {
	trimmed := string(bytes.TrimSpace(payload))
	return trimmed == "" || trimmed == "null" || trimmed == "[]"
}

// Load returns the user's snapshot, or ErrNotFound.
func (b *RedisBridge) Load(ctx context.Context, userID string) ([]byte, error) {
	value, err := b.client.Get(ctx, b.client.CartSnapshotKey(userID))
	if err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(value), nil
}
