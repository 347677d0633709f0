// Package catalog holds the static registry of condition definitions the
// filter evaluator resolves rules against. The registry is built once at
// startup; an unknown config type or duplicate id is a construction-time
// error rather than a silent no-op at evaluation time.
package catalog

import (
	"fmt"

	"github.com/agencykit/automation/pkg/models"
)

// Registry is an immutable, id-keyed set of condition definitions.
type Registry struct {
	defs  map[string]models.ConditionDefinition
	order []string
}

// NewRegistry builds a registry from the given definitions.
func NewRegistry(defs []models.ConditionDefinition) (*Registry, error) {
	registry := &Registry{
		defs:  make(map[string]models.ConditionDefinition, len(defs)),
		order: make([]string, 0, len(defs)),
	}

	for _, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("condition definition with empty id (label %q)", def.Label)
		}

		if _, exists := registry.defs[def.ID]; exists {
			return nil, fmt.Errorf("duplicate condition definition id %q", def.ID)
		}

		if !def.ConfigType.IsValid() {
			return nil, fmt.Errorf("%w: %q on definition %q", models.ErrUnknownConfigType, def.ConfigType, def.ID)
		}

		registry.defs[def.ID] = def
		registry.order = append(registry.order, def.ID)
	}

	return registry, nil
}

// Get returns the definition for the given id.
func (r *Registry) Get(id string) (models.ConditionDefinition, bool) {
	def, ok := r.defs[id]

	return def, ok
}

// All returns every definition in registration order.
func (r *Registry) All() []models.ConditionDefinition {
	defs := make([]models.ConditionDefinition, 0, len(r.order))
	for _, id := range r.order {
		defs = append(defs, r.defs[id])
	}

	return defs
}

// ByCategory returns the definitions of one category in registration order.
func (r *Registry) ByCategory(category string) []models.ConditionDefinition {
	defs := make([]models.ConditionDefinition, 0)

	for _, id := range r.order {
		if def := r.defs[id]; def.Category == category {
			defs = append(defs, def)
		}
	}

	return defs
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	return len(r.order)
}
