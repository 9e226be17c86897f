// Package session keeps the live search controllers of the HTTP API.
package session

import (
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Caiqueoak/cade-meu-busao/internal/metrics"
	"github.com/Caiqueoak/cade-meu-busao/internal/tracker"
)

// Registry is a bounded set of controllers keyed by session ID. When full,
// adding a session evicts the least recently used one. Evicted and removed
// controllers are stopped.
type Registry struct {
	cache *lru.Cache[string, *tracker.Controller]
}

func NewRegistry(size int) (*Registry, error) {
	cache, err := lru.NewWithEvict(size, func(_ string, ctrl *tracker.Controller) {
		// Stop waits for the polling goroutine, which never takes the cache lock.
		ctrl.Stop()
		metrics.ActiveSessions.Dec()
	})
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	return &Registry{cache: cache}, nil
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// Add stores ctrl under its session ID, generating one if it has none, and
// returns the ID used.
func (r *Registry) Add(ctrl *tracker.Controller) string {
	id := ctrl.SessionID()
	if id == "" {
		id = NewID()
	}
	// Updating an existing key does not fire the eviction callback.
	if _, ok := r.cache.Peek(id); ok {
		r.cache.Remove(id)
	}
	r.cache.Add(id, ctrl)
	metrics.ActiveSessions.Inc()
	return id
}

// Get returns the controller for id and marks it recently used.
func (r *Registry) Get(id string) (*tracker.Controller, bool) {
	return r.cache.Get(id)
}

// Remove stops and forgets the controller for id.
func (r *Registry) Remove(id string) bool {
	return r.cache.Remove(id)
}

func (r *Registry) Len() int {
	return r.cache.Len()
}

// Purge stops every session.
func (r *Registry) Purge() {
	r.cache.Purge()
}
