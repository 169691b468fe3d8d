package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	orderKeyPrefix = "idem:order:"
	eventKeyPrefix = "idem:event:"

	// pendingMarker is stored while the first request holding a key is in flight.
	pendingMarker = "-"
)

// OrderIdempotencyStore implements repository.IdempotencyStore using Redis.
// A key is claimed with SET NX and later overwritten with the placed order ID.
type OrderIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOrderIdempotencyStore creates a Redis-backed idempotency store. Keys
// expire after ttl.
func NewOrderIdempotencyStore(client *redis.Client, ttl time.Duration) *OrderIdempotencyStore {
	return &OrderIdempotencyStore{client: client, ttl: ttl}
}

// Acquire claims key. If it was already claimed, the recorded order ID is
// returned ("" while the first request is still running).
func (s *OrderIdempotencyStore) Acquire(ctx context.Context, key string) (string, bool, error) {
	ok, err := s.client.SetNX(ctx, orderKeyPrefix+key, pendingMarker, s.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis setnx idempotency key: %w", err)
	}
	if ok {
		return "", true, nil
	}

	val, err := s.client.Get(ctx, orderKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Released between the two calls; report it as in flight.
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get idempotency key: %w", err)
	}
	if val == pendingMarker {
		return "", false, nil
	}
	return val, false, nil
}

// Complete records the order placed under key.
func (s *OrderIdempotencyStore) Complete(ctx context.Context, key, orderID string) error {
	if err := s.client.Set(ctx, orderKeyPrefix+key, orderID, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set idempotency key: %w", err)
	}
	return nil
}

// Release frees key so the client can retry.
func (s *OrderIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, orderKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del idempotency key: %w", err)
	}
	return nil
}

// EventStore implements kafka.IdempotencyStore using Redis so that processed
// event IDs survive restarts and are shared between replicas.
type EventStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEventStore creates a Redis-backed processed-event store.
func NewEventStore(client *redis.Client, ttl time.Duration) *EventStore {
	return &EventStore{client: client, ttl: ttl}
}

// Contains reports whether eventID was already processed.
func (s *EventStore) Contains(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, eventKeyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists event: %w", err)
	}
	return n > 0, nil
}

// Add marks eventID as processed.
func (s *EventStore) Add(ctx context.Context, eventID string) error {
	if err := s.client.Set(ctx, eventKeyPrefix+eventID, 1, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set event: %w", err)
	}
	return nil
}
