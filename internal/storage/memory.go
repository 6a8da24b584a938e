package storage

import (
	"sort"
	"sync"
	"time"
)

// InMemoryResourceStore is a thread-safe in-memory implementation of ResourceStore.
type InMemoryResourceStore struct {
	mu        sync.RWMutex
	resources map[string]*Resource
	now       func() time.Time
}

// NewInMemoryResourceStore creates a new InMemoryResourceStore.
func NewInMemoryResourceStore() *InMemoryResourceStore {
	return &InMemoryResourceStore{
		resources: make(map[string]*Resource),
		now:       time.Now,
	}
}

// Get retrieves a resource by name. Returns nil if not found.
// The returned value is a copy.
func (s *InMemoryResourceStore) Get(name string) *Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resources[name]
	if !ok {
		return nil
	}
	return r.clone()
}

// Set stores or replaces a resource. The version increases on every write.
func (s *InMemoryResourceStore) Set(name, contentType string, body []byte) *Resource {
	s.mu.Lock()
	defer s.mu.Unlock()

	version := 1
	if prev, ok := s.resources[name]; ok {
		version = prev.Version + 1
	}
	r := &Resource{
		Name:        name,
		Body:        append([]byte(nil), body...),
		ContentType: contentType,
		Version:     version,
		UpdatedAt:   s.now(),
	}
	s.resources[name] = r
	return r.clone()
}

// Delete removes a resource by name. Returns true if deleted, false if not found.
func (s *InMemoryResourceStore) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.resources[name]; exists {
		delete(s.resources, name)
		return true
	}
	return false
}

// List returns all stored resources sorted by name.
func (s *InMemoryResourceStore) List() []*Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Resource, 0, len(s.resources))
	for _, r := range s.resources {
		result = append(result, r.clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Count returns the number of stored resources.
func (s *InMemoryResourceStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.resources)
}

// Clear removes all stored resources.
func (s *InMemoryResourceStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources = make(map[string]*Resource)
}

// Exists checks if a resource with the given name exists.
func (s *InMemoryResourceStore) Exists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.resources[name]
	return exists
}

func (r *Resource) clone() *Resource {
	c := *r
	c.Body = append([]byte(nil), r.Body...)
	return &c
}

// Ensure InMemoryResourceStore implements ResourceStore.
var _ ResourceStore = (*InMemoryResourceStore)(nil)
