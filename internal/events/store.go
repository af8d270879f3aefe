package events

import (
	"sync"
	"time"

	"vitalscore/internal/model"
)

// Store is a bounded in-memory ring of recent anomaly events, newest
// last. The durable append-only log lives in storage.
type Store struct {
	mu    sync.RWMutex
	buf   []model.AnomalyEvent
	limit int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 1000
	}
	return &Store{limit: limit}
}

func (s *Store) Add(ev model.AnomalyEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) < s.limit {
		s.buf = append(s.buf, ev)
		return
	}
	copy(s.buf, s.buf[1:])
	s.buf[len(s.buf)-1] = ev
}

func (s *Store) AddAll(evs []model.AnomalyEvent) {
	for _, ev := range evs {
		s.Add(ev)
	}
}

func (s *Store) List(limit int) []model.AnomalyEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.buf) {
		limit = len(s.buf)
	}
	out := make([]model.AnomalyEvent, 0, limit)
	start := len(s.buf) - limit
	if start < 0 {
		start = 0
	}
	for i := start; i < len(s.buf); i++ {
		out = append(out, s.buf[i])
	}
	return out
}

func (s *Store) Since(ts time.Time) []model.AnomalyEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AnomalyEvent, 0)
	for _, ev := range s.buf {
		if !ev.DetectedAt.Before(ts) {
			out = append(out, ev)
		}
	}
	return out
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
}
