package pipeline

import (
	"context"
	"sync"

	"vitalscore/internal/model"
)

// StaticProfiles is an in-memory ProfileSource fed over the admin API.
// Production deployments substitute their own profile collaborator.
type StaticProfiles struct {
	mu       sync.RWMutex
	profiles map[string]model.UserProfile
}

func NewStaticProfiles() *StaticProfiles {
	return &StaticProfiles{profiles: make(map[string]model.UserProfile)}
}

func (p *StaticProfiles) Profile(_ context.Context, userID string) (model.UserProfile, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	profile, ok := p.profiles[userID]
	return profile, ok, nil
}

func (p *StaticProfiles) Upsert(profile model.UserProfile) {
	if profile.UserID == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles[profile.UserID] = profile
}

func (p *StaticProfiles) All() []model.UserProfile {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]model.UserProfile, 0, len(p.profiles))
	for _, profile := range p.profiles {
		out = append(out, profile)
	}
	return out
}
