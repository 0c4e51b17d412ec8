package capability

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gboutry/defining-acceptance/internal/testbed"
	"github.com/gboutry/defining-acceptance/pkg/logging"
)

// Predicate reports whether the testbed satisfies one capability.
type Predicate func(env testbed.Descriptor) bool

// Registry manages registered capability predicates. It is written during
// startup and read-only afterwards; resolution never mutates it.
type Registry struct {
	mu         sync.RWMutex
	predicates map[string]Predicate
}

// NewRegistry creates an empty capability registry.
func NewRegistry() *Registry {
	return &Registry{
		predicates: make(map[string]Predicate),
	}
}

// Register adds a predicate for tag. Registering the same tag twice is a
// configuration error.
func (r *Registry) Register(tag string, predicate Predicate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(tag) == "" {
		return fmt.Errorf("capability tag must be a non-empty string")
	}
	if predicate == nil {
		return fmt.Errorf("capability %s must have a predicate", tag)
	}
	if _, exists := r.predicates[tag]; exists {
		return fmt.Errorf("capability %s already registered", tag)
	}

	r.predicates[tag] = predicate
	logging.Debug("Registry", "Registered capability %s", tag)
	return nil
}

// Lookup retrieves the predicate for tag.
func (r *Registry) Lookup(tag string) (Predicate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	predicate, exists := r.predicates[tag]
	return predicate, exists
}

// Tags returns all registered tags, sorted.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.predicates))
	for tag := range r.predicates {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
