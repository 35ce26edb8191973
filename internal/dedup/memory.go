// Package dedup implements the opportunity seen-set: a TTL gate that keeps
// identical opportunity signatures from being persisted and alerted twice
// within a short window.
package dedup

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process seen-set. Expired signatures are purged lazily on
// each call, so the map stays bounded by the number of distinct signatures
// observed within one TTL window.
type Memory struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewMemory creates an in-process seen-set with the given TTL.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Seen reports whether signature was recorded within the TTL window and
// records it if not. It never returns an error; the signature matches
// domain.SeenSet.
func (m *Memory) Seen(_ context.Context, signature string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for sig, at := range m.seen {
		if now.Sub(at) >= m.ttl {
			delete(m.seen, sig)
		}
	}

	if at, ok := m.seen[signature]; ok && now.Sub(at) < m.ttl {
		return true, nil
	}
	m.seen[signature] = now
	return false, nil
}
