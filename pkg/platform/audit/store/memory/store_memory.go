package memory

import (
	"context"
	"sync"

	id "aegis/pkg/domain"
	audit "aegis/pkg/platform/audit"
)

// InMemoryStore keeps audit events in arrival order, indexed by instance and actor.
type InMemoryStore struct {
	mu         sync.RWMutex
	events     []audit.Event
	byInstance map[id.InstanceID][]int
	byActor    map[id.Identity][]int
}

func NewInMemoryStore() *InMemoryStore {
	s := &InMemoryStore{}
	s.reset()
	return s
}

func (s *InMemoryStore) reset() {
	s.events = nil
	s.byInstance = make(map[id.InstanceID][]int)
	s.byActor = make(map[id.Identity][]int)
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.events)
	s.events = append(s.events, event)
	if !event.InstanceID.IsNil() {
		s.byInstance[event.InstanceID] = append(s.byInstance[event.InstanceID], idx)
	}
	if !event.Actor.IsZero() {
		s.byActor[event.Actor] = append(s.byActor[event.Actor], idx)
	}
	return nil
}

func (s *InMemoryStore) ListByActor(_ context.Context, actor id.Identity) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byActor[actor]), nil
}

func (s *InMemoryStore) ListByInstance(_ context.Context, instanceID id.InstanceID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byInstance[instanceID]), nil
}

// ListAll returns all audit events in arrival order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...), nil
}

// ListRecent returns the most recent limit events, oldest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := max(len(s.events)-limit, 0)
	return append([]audit.Event{}, s.events[start:]...), nil
}

func (s *InMemoryStore) collect(indexes []int) []audit.Event {
	out := make([]audit.Event, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, s.events[i])
	}
	return out
}
