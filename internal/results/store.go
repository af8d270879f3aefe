package results

import (
	"sync"
	"time"

	"vitalscore/internal/model"
)

// Store keeps the most recent HealthScoreRecord per user in memory for
// the read API. Bounded; the least recently updated user is evicted.
type Store struct {
	mu        sync.RWMutex
	byUser    map[string]model.HealthScoreRecord
	updatedAt map[string]time.Time
	limit     int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 5000
	}
	return &Store{
		byUser:    make(map[string]model.HealthScoreRecord),
		updatedAt: make(map[string]time.Time),
		limit:     limit,
	}
}

func (s *Store) Update(rec model.HealthScoreRecord) {
	if rec.UserID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[rec.UserID] = rec
	s.updatedAt[rec.UserID] = time.Now().UTC()
	if len(s.byUser) > s.limit {
		s.evictOldest()
	}
}

func (s *Store) Get(userID string) (model.HealthScoreRecord, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byUser[userID]
	if !ok {
		return model.HealthScoreRecord{}, time.Time{}, false
	}
	return rec, s.updatedAt[userID], true
}

func (s *Store) GetAll() map[string]model.HealthScoreRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.HealthScoreRecord, len(s.byUser))
	for userID, rec := range s.byUser {
		out[userID] = rec
	}
	return out
}

func (s *Store) evictOldest() {
	var oldestUser string
	var oldest time.Time
	for user, ts := range s.updatedAt {
		if oldestUser == "" || ts.Before(oldest) {
			oldestUser = user
			oldest = ts
		}
	}
	if oldestUser != "" {
		delete(s.byUser, oldestUser)
		delete(s.updatedAt, oldestUser)
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser = make(map[string]model.HealthScoreRecord)
	s.updatedAt = make(map[string]time.Time)
}
