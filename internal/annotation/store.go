package annotation

import (
	"context"
	"sync"
)

// Store is the persistence abstraction for video records.
// Implementations can be in-memory or remote; the Service does not need to know which is used.
// Records are transient: a store may forget a video at any time (e.g. on TTL expiry).
type Store interface {
	GetVideo(ctx context.Context, id VideoID) (*Video, bool, error)
	SetVideo(ctx context.Context, v *Video) error
	DeleteVideo(ctx context.Context, id VideoID) error
	ListVideoIDs(ctx context.Context) ([]VideoID, error)
}

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	mu     sync.RWMutex
	videos map[VideoID]*Video
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		videos: make(map[VideoID]*Video),
	}
}

// GetVideo implements Store.GetVideo.
func (s *InMemoryStore) GetVideo(_ context.Context, id VideoID) (*Video, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.videos[id]
	return v.Clone(), ok, nil
}

// SetVideo implements Store.SetVideo.
func (s *InMemoryStore) SetVideo(_ context.Context, v *Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[v.ID] = v.Clone()
	return nil
}

// DeleteVideo implements Store.DeleteVideo.
func (s *InMemoryStore) DeleteVideo(_ context.Context, id VideoID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.videos, id)
	return nil
}

// ListVideoIDs implements Store.ListVideoIDs.
func (s *InMemoryStore) ListVideoIDs(_ context.Context) ([]VideoID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]VideoID, 0, len(s.videos))
	for id := range s.videos {
		ids = append(ids, id)
	}
	return ids, nil
}
