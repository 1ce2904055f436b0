package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process Store used when no Redis address is
// configured, and by tests. go-cache handles per-key expiration; the mutex
// serializes the read-modify-write of an append so two concurrent appends
// on one key cannot lose a record or trim from a stale length.
type MemoryStore struct {
	mu  sync.Mutex
	c   *gocache.Cache
	ttl time.Duration
	max int
}

// NewMemoryStore creates a MemoryStore with the given sliding TTL and
// per-conversation message bound.
func NewMemoryStore(ttl time.Duration, max int) *MemoryStore {
	return &MemoryStore{
		c:   gocache.New(ttl, 10*time.Minute),
		ttl: ttl,
		max: max,
	}
}

func (s *MemoryStore) Has(_ context.Context, key Key) (bool, error) {
	_, ok := s.c.Get(key.String())
	return ok, nil
}

func (s *MemoryStore) Append(_ context.Context, key Key, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var msgs []Message
	if v, ok := s.c.Get(key.String()); ok {
		msgs = v.([]Message)
	}
	msgs = append(msgs, msg)
	if len(msgs) > s.max {
		msgs = msgs[len(msgs)-s.max:]
	}
	s.c.Set(key.String(), msgs, s.ttl)
	return nil
}

func (s *MemoryStore) SetAll(_ context.Context, key Key, msgs []Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(msgs) == 0 {
		s.c.Delete(key.String())
		return nil
	}
	if len(msgs) > s.max {
		msgs = msgs[len(msgs)-s.max:]
	}
	stored := make([]Message, len(msgs))
	copy(stored, msgs)
	s.c.Set(key.String(), stored, s.ttl)
	return nil
}

func (s *MemoryStore) GetAll(_ context.Context, key Key) ([]Message, error) {
	v, ok := s.c.Get(key.String())
	if !ok {
		return []Message{}, nil
	}
	msgs := v.([]Message)
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, key Key) error {
	s.c.Delete(key.String())
	return nil
}

func (s *MemoryStore) TTL(_ context.Context, key Key) (time.Duration, error) {
	_, exp, ok := s.c.GetWithExpiration(key.String())
	if !ok {
		return TTLMissing, nil
	}
	return time.Until(exp), nil
}
