// Package registry maps processor references to factories. The graph
// builder resolves node processor refs through a Registry; tests and the
// CLI populate one with the built-in processor set.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/semantiva/semantiva-go/internal/pipeline"
	semerrors "github.com/semantiva/semantiva-go/pkg/errors"
)

// Factory constructs a fresh processor instance. Stateless processors may
// return a shared instance.
type Factory func() pipeline.Processor

// Registry holds processor factories keyed by fully-qualified reference.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the ref reported by a probe instance.
func (r *Registry) Register(factory Factory) error {
	if factory == nil {
		return semerrors.NewSpecFieldError("registry", "factory is nil", nil)
	}
	probe := factory()
	if probe == nil {
		return semerrors.NewSpecFieldError("registry", "factory produced nil processor", nil)
	}
	ref := probe.Ref()
	if ref == "" {
		return semerrors.NewSpecFieldError("registry", "processor ref is empty", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[ref]; exists {
		return semerrors.NewSpecFieldError("registry", fmt.Sprintf("processor %q already registered", ref), nil)
	}
	r.factories[ref] = factory
	return nil
}

// Resolve returns a processor instance for ref. An exact match wins; a bare
// short name resolves only when it is unambiguous.
func (r *Registry) Resolve(ref string) (pipeline.Processor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if factory, ok := r.factories[ref]; ok {
		return factory(), nil
	}

	var matches []string
	for full := range r.factories {
		if shortName(full) == ref {
			matches = append(matches, full)
		}
	}
	switch len(matches) {
	case 1:
		return r.factories[matches[0]](), nil
	case 0:
		return nil, semerrors.NewSpecFieldError("processor", fmt.Sprintf("unknown processor %q", ref), nil)
	default:
		sort.Strings(matches)
		return nil, semerrors.NewSpecFieldError("processor",
			fmt.Sprintf("short name %q is ambiguous: %v", ref, matches), nil)
	}
}

// Refs returns all registered references, sorted.
func (r *Registry) Refs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	refs := make([]string, 0, len(r.factories))
	for ref := range r.factories {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

func shortName(ref string) string {
	if idx := strings.LastIndex(ref, "."); idx >= 0 {
		return ref[idx+1:]
	}
	return ref
}
