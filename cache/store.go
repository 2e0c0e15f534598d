// Package cache provides the search result cache: a TTL-bounded in-memory
// store fronted by single-flight request collapsing.
package cache

import (
	"sync"
	"time"

	"github.com/pricegrid/pricegrid/models"
)

// Store is the result cache backend.
type Store interface {
	Get(key string) (*models.SearchResponse, bool)
	Set(key string, v *models.SearchResponse)
	Len() int
}

type entry struct {
	value     *models.SearchResponse
	expiresAt time.Time
}

// MemoryStore is a TTL map with a background sweeper. Expired entries are
// also dropped lazily on read, so a stopped sweeper only costs memory.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewMemoryStore returns a store whose entries expire after ttl.
// maxEntries <= 0 means unbounded.
func NewMemoryStore(ttl time.Duration, maxEntries int) *MemoryStore {
	s := &MemoryStore{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Get returns the cached response for key if present and fresh.
func (s *MemoryStore) Get(key string) (*models.SearchResponse, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		s.Delete(key)
		return nil, false
	}
	return e.value, true
}

// Set stores v under key. When the store is full an arbitrary expired entry
// is reclaimed first; if none is expired the write is dropped rather than
// evicting fresh results.
func (s *MemoryStore) Set(key string, v *models.SearchResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		if _, exists := s.entries[key]; !exists && !s.reclaimLocked() {
			return
		}
	}
	s.entries[key] = entry{value: v, expiresAt: time.Now().Add(s.ttl)}
}

// Delete removes key.
func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Len reports the number of stored entries, including not-yet-swept
// expired ones.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the sweeper.
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *MemoryStore) reclaimLocked() bool {
	now := time.Now()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
			return true
		}
	}
	return false
}

func (s *MemoryStore) sweep() {
	interval := s.ttl
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for k, e := range s.entries {
				if now.After(e.expiresAt) {
					delete(s.entries, k)
				}
			}
			s.mu.Unlock()
		}
	}
}
