package memory

import (
	"context"
	"sync"
)

// IdempotencyStore implements repository.IdempotencyStore in memory. Keys
// never expire, which suits tests and single-process development.
type IdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]string
}

// NewIdempotencyStore creates an empty idempotency store.
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{keys: make(map[string]string)}
}

func (s *IdempotencyStore) Acquire(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if orderID, ok := s.keys[key]; ok {
		return orderID, false, nil
	}
	s.keys[key] = ""
	return "", true, nil
}

func (s *IdempotencyStore) Complete(_ context.Context, key, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = orderID
	return nil
}

func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}
