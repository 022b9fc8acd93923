package statestore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/lborres/boardauth/pkg/crypto"
)

// Memory is a process-local Store backed by go-cache. States are keyed by
// their SHA-256 so the raw values are never held.
type Memory struct {
	c  *gocache.Cache
	mu sync.Mutex // makes Take's get-and-delete atomic

	puts   int64
	hits   int64
	misses int64
}

var _ Store = (*Memory)(nil)

func NewMemory(defaultTTL time.Duration) *Memory {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Memory{c: gocache.New(defaultTTL, time.Minute)}
}

func (m *Memory) Put(ctx context.Context, state, registrationID string, ttl time.Duration) error {
	if state == "" {
		return ErrStateRequired
	}
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(crypto.HashSecret(state), registrationID, ttl)
	atomic.AddInt64(&m.puts, 1)
	return nil
}

func (m *Memory) Take(ctx context.Context, state string) (string, bool, error) {
	if state == "" {
		atomic.AddInt64(&m.misses, 1)
		return "", false, nil
	}
	key := crypto.HashSecret(state)

	m.mu.Lock()
	v, found := m.c.Get(key)
	if found {
		m.c.Delete(key)
	}
	m.mu.Unlock()

	id, ok := v.(string)
	if !found || !ok {
		atomic.AddInt64(&m.misses, 1)
		return "", false, nil
	}
	atomic.AddInt64(&m.hits, 1)
	return id, true, nil
}

func (m *Memory) Stats() Stats {
	return Stats{
		Puts:   atomic.LoadInt64(&m.puts),
		Hits:   atomic.LoadInt64(&m.hits),
		Misses: atomic.LoadInt64(&m.misses),
	}
}

// Len returns the number of unexpired states.
func (m *Memory) Len() int {
	return m.c.ItemCount()
}
