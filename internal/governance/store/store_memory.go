// Package store persists governance instances. Execute serializes mutations per instance;
// operations on different instances never contend.
package store

import (
	"context"
	"sort"
	"sync"

	"aegis/internal/governance/models"
	id "aegis/pkg/domain"
	"aegis/pkg/platform/sentinel"
)

// entry is tombstoned by Delete under its own lock, so a caller that resolved it before
// the delete sees not-found instead of committing to an orphan.
type entry struct {
	mu       sync.Mutex
	instance *models.Instance
	deleted  bool
}

// InMemory keeps one lock per instance. The directory lock only guards the map itself.
type InMemory struct {
	mu        sync.RWMutex
	instances map[id.InstanceID]*entry
}

func NewInMemory() *InMemory {
	return &InMemory{instances: make(map[id.InstanceID]*entry)}
}

func (s *InMemory) Create(_ context.Context, instance *models.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[instance.ID]; ok {
		return sentinel.ErrConflict
	}
	s.instances[instance.ID] = &entry{instance: instance.Clone()}
	return nil
}

func (s *InMemory) lookup(instanceID id.InstanceID) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.instances[instanceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return e, nil
}

func (s *InMemory) Get(_ context.Context, instanceID id.InstanceID) (*models.Instance, error) {
	e, err := s.lookup(instanceID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, sentinel.ErrNotFound
	}
	return e.instance.Clone(), nil
}

// List returns instances oldest first.
func (s *InMemory) List(_ context.Context) ([]*models.Instance, error) {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.instances))
	for _, e := range s.instances {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]*models.Instance, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.deleted {
			out = append(out, e.instance.Clone())
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, instanceID id.InstanceID) error {
	s.mu.Lock()
	e, ok := s.instances[instanceID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	delete(s.instances, instanceID)
	s.mu.Unlock()

	e.mu.Lock()
	e.deleted = true
	e.mu.Unlock()
	return nil
}

// Execute runs validate and mutate on a working copy under the instance lock and commits
// the copy only when validate passes.
func (s *InMemory) Execute(_ context.Context, instanceID id.InstanceID, validate func(*models.Instance) error, mutate func(*models.Instance)) (*models.Instance, error) {
	e, err := s.lookup(instanceID)
	if err != nil {
		return nil, err
	}
	return e.execute(validate, mutate)
}

func (e *entry) execute(validate func(*models.Instance) error, mutate func(*models.Instance)) (*models.Instance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, sentinel.ErrNotFound
	}

	working := e.instance.Clone()
	if validate != nil {
		if err := validate(working); err != nil {
			return nil, err
		}
	}
	mutate(working)
	e.instance = working
	return working.Clone(), nil
}
