package gtfs

import (
	"sync"
	"time"
)

// StaticStore is a thread-safe holder for the current route catalog. It is
// replaced wholesale on every successful bundle download.
type StaticStore struct {
	mu        sync.RWMutex
	catalog   *Catalog
	updatedAt time.Time
}

// NewStaticStore returns an empty store. Lookups miss until Set is called.
func NewStaticStore() *StaticStore {
	return &StaticStore{}
}

// Set replaces the catalog.
func (s *StaticStore) Set(catalog *Catalog, updatedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = catalog
	s.updatedAt = updatedAt
}

// Get returns the current catalog and when it was stored. The catalog is
// nil before the first download.
func (s *StaticStore) Get() (*Catalog, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog, s.updatedAt
}

// Terminals looks routeID up in the current catalog.
func (s *StaticStore) Terminals(routeID string) (main, secondary string, ok bool) {
	catalog, _ := s.Get()
	return catalog.Terminals(routeID)
}
