// Package registry resolves model definitions by name and owning user.
//
// Definitions are compiled once from CUE files and shared read-only.
// Every lookup hands out a copy bound to the requesting user, so callers
// may hold the result without coordinating with other requests.
package registry

import (
	"fmt"
	"sort"

	"github.com/roach88/rowbridge/internal/compiler"
	"github.com/roach88/rowbridge/internal/ir"
)

// Registry is an immutable set of model definitions keyed by name.
type Registry struct {
	models map[string]ir.ModelDefinition
}

// New builds a registry from compiled definitions.
// Definitions are validated as a set; any validation error is returned.
func New(defs []ir.ModelDefinition) (*Registry, error) {
	if errs := compiler.Validate(defs); len(errs) > 0 {
		return nil, fmt.Errorf("invalid models: %w", errs[0])
	}

	r := &Registry{models: make(map[string]ir.ModelDefinition, len(defs))}
	for _, def := range defs {
		r.models[def.Name] = *def.ForOwner("")
	}
	return r, nil
}

// Lookup returns the definition of model as seen by user.
// An empty user or an unknown model is reported as not found.
func (r *Registry) Lookup(model, user string) (*ir.ModelDefinition, bool) {
	if r == nil || user == "" {
		return nil, false
	}
	def, ok := r.models[model]
	if !ok {
		return nil, false
	}
	return def.ForOwner(user), true
}

// Names returns the registered model names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns unbound copies of every definition, sorted by name.
func (r *Registry) Definitions() []ir.ModelDefinition {
	names := r.Names()
	defs := make([]ir.ModelDefinition, 0, len(names))
	for _, name := range names {
		defs = append(defs, *r.models[name].ForOwner(""))
	}
	return defs
}
