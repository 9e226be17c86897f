package transit

import (
	"sync"
	"time"

	"github.com/jamespfennell/gtfs"
)

// RealtimeStore holds the last parsed GTFS-RT feed and when it was
// downloaded, so every session polling the same feed shares one download.
type RealtimeStore struct {
	mu        sync.RWMutex
	data      *gtfs.Realtime
	fetchedAt time.Time
}

func NewRealtimeStore() *RealtimeStore {
	return &RealtimeStore{}
}

// Set stores a freshly parsed feed.
func (s *RealtimeStore) Set(data *gtfs.Realtime, fetchedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.fetchedAt = fetchedAt
}

// Get returns the stored feed and its download time, or nil if none was set.
func (s *RealtimeStore) Get() (*gtfs.Realtime, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data, s.fetchedAt
}

// Fresh returns the stored feed if it is younger than ttl at now.
func (s *RealtimeStore) Fresh(now time.Time, ttl time.Duration) (*gtfs.Realtime, bool) {
	data, fetchedAt := s.Get()
	if data == nil || now.Sub(fetchedAt) >= ttl {
		return nil, false
	}
	return data, true
}
