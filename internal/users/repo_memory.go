package users

import (
	"context"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{profiles: make(map[string]Profile)}
}

func (r *MemoryRepo) Ensure(_ context.Context, userID string, now time.Time) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[userID]; ok {
		return p, nil
	}
	p := Profile{ID: userID, CreatedAt: now, UpdatedAt: now}
	r.profiles[userID] = p
	return p, nil
}

func (r *MemoryRepo) Get(_ context.Context, userID string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) UpdateName(_ context.Context, userID, name string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.profileLocked(userID, now)
	p.Name = name
	p.UpdatedAt = now
	r.profiles[userID] = p
	return nil
}

func (r *MemoryRepo) UpdateProfileURL(_ context.Context, userID, url string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.profileLocked(userID, now)
	p.ProfileURL = url
	p.UpdatedAt = now
	r.profiles[userID] = p
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[userID]; !ok {
		return ErrNotFound
	}
	delete(r.profiles, userID)
	return nil
}

func (r *MemoryRepo) profileLocked(userID string, now time.Time) Profile {
	if p, ok := r.profiles[userID]; ok {
		return p
	}
	return Profile{ID: userID, CreatedAt: now}
}

var _ Repo = (*MemoryRepo)(nil)
