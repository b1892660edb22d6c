package journal

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// MemoryStore keeps the most recent entries up to a fixed capacity.
type MemoryStore struct {
	mu      sync.Mutex
	max     int
	entries []Entry
}

var _ Store = &MemoryStore{}

func NewMemoryStore(max int) *MemoryStore {
	if max <= 0 {
		max = 1000
	}
	return &MemoryStore{max: max}
}

func (s *MemoryStore) Append(_ context.Context, e Entry) (Entry, error) {
	if s == nil {
		return Entry{}, errors.New("in-memory journal: nil store")
	}
	e = normalizeEntry(e, time.Now())
	if e.Type == "" {
		return Entry{}, errors.New("in-memory journal: entry type is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	if over := len(s.entries) - s.max; over > 0 {
		s.entries = append([]Entry(nil), s.entries[over:]...)
	}
	return e, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]Entry, error) {
	if s == nil {
		return nil, errors.New("in-memory journal: nil store")
	}
	limit = normalizeLimit(limit)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, min(limit, len(s.entries)))
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
