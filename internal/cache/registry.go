package cache

import (
	"sync"
	"time"
)

type registryEntry struct {
	data     *Data
	lastUsed time.Time
}

// Registry keeps one Data per signed-in user. A user's cache expires after
// ttl without use and is dropped at logout.
type Registry struct {
	mu      sync.Mutex
	entries map[int64]*registryEntry
	ttl     time.Duration
	build   func() *Data
	now     func() time.Time

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewRegistry starts a goroutine that evicts idle users every
// cleanupInterval; Close stops it.
func NewRegistry(ttl, cleanupInterval time.Duration, build func() *Data) *Registry {
	r := &Registry{
		entries:     make(map[int64]*registryEntry),
		ttl:         ttl,
		build:       build,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.evictExpired()
			case <-r.stopCleanup:
				return
			}
		}
	}()

	return r
}

// For returns the user's cache, building a fresh one when none exists or
// the old one went idle for longer than ttl.
func (r *Registry) For(userID int64) *Data {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	e, ok := r.entries[userID]
	if !ok || now.Sub(e.lastUsed) > r.ttl {
		e = &registryEntry{data: r.build()}
		r.entries[userID] = e
	}
	e.lastUsed = now
	return e.data
}

// Drop forgets the user's cache.
func (r *Registry) Drop(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, userID)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stopCleanup) })
}

func (r *Registry) evictExpired() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, e := range r.entries {
		if now.Sub(e.lastUsed) > r.ttl {
			delete(r.entries, id)
		}
	}
}
