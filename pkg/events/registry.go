package events

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
)

// Registry maps protocol identifiers to handler factories.
// It is thread-safe and can be used concurrently.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory for a protocol.
// The identifier must be usable as an Events dictionary key: a lowercase
// letter or "*" followed by lowercase letters, digits, "_", "-", "." or "*".
// Returns an error if the protocol is already registered.
func (r *Registry) Register(protocol string, f Factory) error {
	if protocol == "" {
		return ErrEmptyProtocol
	}
	if !ValidProtocol(protocol) {
		return fmt.Errorf("%w: %q", ErrInvalidProtocol, protocol)
	}
	if f == nil {
		return ErrNilFactory
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[protocol]; exists {
		return fmt.Errorf("%w: %s", ErrProtocolExists, protocol)
	}

	r.factories[protocol] = f
	return nil
}

// ValidProtocol reports whether protocol is a valid structured-field key.
func ValidProtocol(protocol string) bool {
	if protocol == "" {
		return false
	}
	for i := 0; i < len(protocol); i++ {
		c := protocol[i]
		switch {
		case c >= 'a' && c <= 'z', c == '*':
		case i > 0 && (c >= '0' && c <= '9' || c == '_' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

// Unregister removes the factory for a protocol.
func (r *Registry) Unregister(protocol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[protocol]; !exists {
		return fmt.Errorf("%w: %s", ErrProtocolNotFound, protocol)
	}

	delete(r.factories, protocol)
	return nil
}

// Get returns the factory for a protocol.
func (r *Registry) Get(protocol string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, exists := r.factories[protocol]
	return f, exists
}

// Protocols returns the registered protocol identifiers in sorted order.
func (r *Registry) Protocols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	protocols := make([]string, 0, len(r.factories))
	for p := range r.factories {
		protocols = append(protocols, p)
	}
	sort.Strings(protocols)
	return protocols
}

// Count returns the number of registered protocols.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// Handlers builds the per-request handler map by invoking every factory.
// Protocols whose factory returns nil are left out.
func (r *Registry) Handlers(w http.ResponseWriter, req *http.Request) map[string]Handler {
	r.mu.RLock()
	factories := make(map[string]Factory, len(r.factories))
	for p, f := range r.factories {
		factories[p] = f
	}
	r.mu.RUnlock()

	handlers := make(map[string]Handler, len(factories))
	for p, f := range factories {
		if h := f(w, req); h != nil {
			handlers[p] = h
		}
	}
	return handlers
}
