package objects

import (
	"fmt"
	"sort"
	"sync"
)

// Source supplies the runtime objects of each descriptor. Objects is
// called once while the backend is built; Object is called on every read
// of a live value and must be safe for concurrent use.
type Source interface {
	Objects(descriptor string) ([]any, error)
	Object(descriptor, id string) (any, bool)
}

// MapSource is a Source backed by maps. Stored objects are treated as
// immutable; Put a new object to change a value.
type MapSource struct {
	mu      sync.RWMutex
	objects map[string]map[string]any
	order   map[string][]string
}

// NewMapSource creates an empty source.
func NewMapSource() *MapSource {
	return &MapSource{
		objects: make(map[string]map[string]any),
		order:   make(map[string][]string),
	}
}

// Put stores or replaces the object with the given id.
func (s *MapSource) Put(descriptor string, id any, obj any) {
	key := fmt.Sprint(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.objects[descriptor]
	if !ok {
		byID = make(map[string]any)
		s.objects[descriptor] = byID
	}
	if _, exists := byID[key]; !exists {
		s.order[descriptor] = append(s.order[descriptor], key)
	}
	byID[key] = obj
}

// Objects implements Source, in insertion order.
func (s *MapSource) Objects(descriptor string) ([]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.order[descriptor]
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.objects[descriptor][id])
	}
	return out, nil
}

// Object implements Source.
func (s *MapSource) Object(descriptor, id string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[descriptor][id]
	return obj, ok
}

// Descriptors returns the descriptor names that have objects, sorted.
func (s *MapSource) Descriptors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.objects))
	for name := range s.objects {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
