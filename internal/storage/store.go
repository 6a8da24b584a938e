package storage

import "time"

// Resource is a named body served to clients.
type Resource struct {
	Name        string    `json:"name"`
	Body        []byte    `json:"-"`
	ContentType string    `json:"contentType"`
	Version     int       `json:"version"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ResourceStore defines the interface for storing and retrieving resources.
type ResourceStore interface {
	// Get retrieves a resource by name. Returns nil if not found.
	Get(name string) *Resource

	// Set stores or replaces a resource and returns the stored copy.
	Set(name, contentType string, body []byte) *Resource

	// Delete removes a resource by name. Returns true if deleted, false if not found.
	Delete(name string) bool

	// List returns all stored resources sorted by name.
	List() []*Resource

	// Count returns the number of stored resources.
	Count() int

	// Clear removes all stored resources.
	Clear()

	// Exists checks if a resource with the given name exists.
	Exists(name string) bool
}
