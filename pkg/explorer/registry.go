package explorer

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
)

// validate is shared by descriptor and config validation.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Registry maps resource names to descriptors. Lookups are safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	resources map[string]*ResourceDescriptor
}

// NewRegistry creates a registry holding the given descriptors.
func NewRegistry(descs ...*ResourceDescriptor) (*Registry, error) {
	r := &Registry{
		resources: make(map[string]*ResourceDescriptor, len(descs)),
	}

	for _, desc := range descs {
		err := r.Register(desc)
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Register validates desc and adds it to the registry. Registration is meant
// to happen before the registry is handed to a client.
func (r *Registry) Register(desc *ResourceDescriptor) error {
	if desc == nil {
		return fmt.Errorf("%w: nil descriptor", ErrInvalidDescriptor)
	}

	err := ValidateDescriptor(desc)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resources[desc.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateResource, desc.Name)
	}

	r.resources[desc.Name] = desc

	return nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*ResourceDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.resources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResource, name)
	}

	return desc, nil
}

// Names returns the registered resource names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Descriptors returns every descriptor ordered by name.
func (r *Registry) Descriptors() []*ResourceDescriptor {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]*ResourceDescriptor, 0, len(names))
	for _, name := range names {
		descs = append(descs, r.resources[name])
	}

	return descs
}

// ValidateDescriptor checks a descriptor's fields and that PathParams names
// exactly the parameters of its template.
func ValidateDescriptor(desc *ResourceDescriptor) error {
	err := validate.Struct(desc)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidDescriptor, desc.Name, err)
	}

	names, _ := templateParams(desc.Path)

	declared := slices.Clone(desc.PathParams)
	sort.Strings(declared)
	sort.Strings(names)

	if !slices.Equal(declared, names) {
		return fmt.Errorf("%w %q: path params %v do not match template %q",
			ErrInvalidDescriptor, desc.Name, desc.PathParams, desc.Path)
	}

	return nil
}
