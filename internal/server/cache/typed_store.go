package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// TypedStore provides typed JSON-serialized get/set operations on Redis.
type TypedStore[T any] struct {
	client    *Client
	keyPrefix string
}

// NewTypedStore creates a TypedStore backed by the given client.
// All keys are prefixed with keyPrefix followed by a colon separator.
func NewTypedStore[T any](client *Client, keyPrefix string) *TypedStore[T] {
	return &TypedStore[T]{client: client, keyPrefix: keyPrefix}
}

func (s *TypedStore[T]) fullKey(key string) string {
	if s.keyPrefix == "" {
		return key
	}
	return s.keyPrefix + ":" + key
}

// Load deserializes JSON from Redis. Returns (nil, nil) if key doesn't exist.
func (s *TypedStore[T]) Load(ctx context.Context, key string) (*T, error) {
	raw, ok, err := s.client.Get(ctx, s.fullKey(key))
	if err != nil {
		return nil, fmt.Errorf("typed store load %q: %w", key, err)
	}
	if !ok {
		return nil, nil
	}

	var val T
	if err := json.Unmarshal([]byte(raw), &val); err != nil {
		return nil, fmt.Errorf("typed store unmarshal %q: %w", key, err)
	}
	return &val, nil
}

// Save serializes to JSON and stores with TTL. A zero TTL selects the
// client's default.
func (s *TypedStore[T]) Save(ctx context.Context, key string, val *T, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("typed store marshal %q: %w", key, err)
	}
	if err := s.client.Set(ctx, s.fullKey(key), string(data), ttl); err != nil {
		return fmt.Errorf("typed store save %q: %w", key, err)
	}
	return nil
}

// Delete removes the key.
func (s *TypedStore[T]) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.fullKey(key)); err != nil {
		return fmt.Errorf("typed store delete %q: %w", key, err)
	}
	return nil
}
