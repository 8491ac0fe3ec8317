package item

import (
	"errors"
	"fmt"
	"sync"
)

var ErrDuplicateType = errors.New("already defined")

// Registry keeps item types by name so definitions loaded from
// configuration can refer to their parents.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Type
	order []string
}

func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*Type)}
}

// Define defines a type whose parents are looked up by name. Parents must
// be defined first. A nil mergeSchema takes the first parent's setting.
func (r *Registry) Define(name string, doc map[string]any, parents []string, mergeSchema *bool) (*Type, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.types[name]; ok {
		return nil, &ConfigError{Type: name, Err: ErrDuplicateType}
	}
	def := Definition{Name: name, Schema: doc, MergeSchema: mergeSchema}
	for _, parentName := range parents {
		parent, ok := r.types[parentName]
		if !ok {
			return nil, &ConfigError{Type: name, Err: fmt.Errorf("unknown parent type %q", parentName)}
		}
		def.Parents = append(def.Parents, parent)
	}

	t, err := Define(def)
	if err != nil {
		return nil, err
	}
	r.types[name] = t
	r.order = append(r.order, name)
	return t, nil
}

func (r *Registry) Get(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Names lists the defined types in definition order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
