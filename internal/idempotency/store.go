// Package idempotency replays the stored response of a write request when a client retries it
// with the same Idempotency-Key header.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Response is what gets replayed.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// State is the outcome of Reserve.
type State int

const (
	// Reserved means the caller now owns the key and must Put or Release it.
	Reserved State = iota
	// InFlight means another request holds the key and has not finished.
	InFlight
	// Completed means the key already has a stored response.
	Completed
)

// PendingTTL bounds how long a reservation outlives a request that never finished.
const PendingTTL = time.Minute

type Store interface {
	// Reserve atomically claims key, or reports who already has it.
	Reserve(ctx context.Context, key string) (Response, State, error)
	Put(ctx context.Context, key string, resp Response, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

const pendingMarker = "pending"

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Reserve(ctx context.Context, key string) (Response, State, error) {
	for range 2 {
		ok, err := s.rdb.SetNX(ctx, key, pendingMarker, PendingTTL).Result()
		if err != nil {
			return Response{}, 0, fmt.Errorf("redis setnx %s: %w", key, err)
		}
		if ok {
			return Response{}, Reserved, nil
		}

		data, err := s.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // expired between the two calls
		}
		if err != nil {
			return Response{}, 0, fmt.Errorf("redis get %s: %w", key, err)
		}
		if string(data) == pendingMarker {
			return Response{}, InFlight, nil
		}
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			return Response{}, 0, fmt.Errorf("decode %s: %w", key, err)
		}
		return resp, Completed, nil
	}
	return Response{}, InFlight, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, resp Response, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

type memoryEntry struct {
	resp      Response
	pending   bool
	expiresAt time.Time
}

// MemoryStore keeps responses in process. Expired entries are dropped on read.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, now: time.Now}
}

func (s *MemoryStore) Reserve(_ context.Context, key string) (Response, State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if ok && !e.expiresAt.IsZero() && now.After(e.expiresAt) {
		ok = false
	}
	switch {
	case !ok:
		s.entries[key] = memoryEntry{pending: true, expiresAt: now.Add(PendingTTL)}
		return Response{}, Reserved, nil
	case e.pending:
		return Response{}, InFlight, nil
	default:
		return e.resp, Completed, nil
	}
}

func (s *MemoryStore) Put(_ context.Context, key string, resp Response, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memoryEntry{resp: resp}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
