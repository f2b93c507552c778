package workstation

import (
	"fmt"
	"iter"
	"sort"

	"craftworks.ai/internal/sim/craft"
	"craftworks.ai/internal/sim/inventory"
)

// Registry maps process types to factories and to the recipes workstations
// of that type can run.
type Registry struct {
	factories map[string]Factory
	recipes   map[string][]*craft.Recipe
	byID      map[string]map[string]*craft.Recipe
}

func NewRegistry() *Registry {
	return &Registry{
		factories: map[string]Factory{},
		recipes:   map[string][]*craft.Recipe{},
		byID:      map[string]map[string]*craft.Recipe{},
	}
}

func (r *Registry) RegisterProcessFactory(processType string, f Factory) error {
	if processType == "" || f == nil {
		return fmt.Errorf("register process factory %q: empty type or nil factory", processType)
	}
	if _, ok := r.factories[processType]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProcessType, processType)
	}
	r.factories[processType] = f
	r.byID[processType] = map[string]*craft.Recipe{}
	return nil
}

func (r *Registry) RegisterProcess(processType string, rec *craft.Recipe) error {
	ids, ok := r.byID[processType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProcessType, processType)
	}
	if rec == nil {
		return fmt.Errorf("%w: nil recipe for %s", craft.ErrInvalidRecipe, processType)
	}
	if _, dup := ids[rec.ID()]; dup {
		return fmt.Errorf("%w: %s in %s", craft.ErrDuplicateID, rec.ID(), processType)
	}
	ids[rec.ID()] = rec
	r.recipes[processType] = append(r.recipes[processType], rec)
	return nil
}

func (r *Registry) CreateProcess(processType string, rec *craft.Recipe, actor string, in inventory.Inputs, multiplier int) (*Process, error) {
	f, ok := r.factories[processType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProcessType, processType)
	}
	return f.NewProcess(Spec{
		ProcessType: processType,
		Recipe:      rec,
		Actor:       actor,
		Inputs:      in,
		Multiplier:  multiplier,
	})
}

func (r *Registry) HasType(processType string) bool {
	_, ok := r.factories[processType]
	return ok
}

// Types returns the registered process types sorted by name.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Recipes returns the recipes of a process type in registration order.
func (r *Registry) Recipes(processType string) []*craft.Recipe {
	return append([]*craft.Recipe(nil), r.recipes[processType]...)
}

func (r *Registry) Recipe(processType, id string) (*craft.Recipe, error) {
	ids, ok := r.byID[processType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProcessType, processType)
	}
	rec, ok := ids[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", craft.ErrNotFound, id, processType)
	}
	return rec, nil
}

// FindMatching yields the recipes of processType that match in, in
// registration order.
func (r *Registry) FindMatching(processType, actor string, in inventory.Inputs) iter.Seq[*craft.Recipe] {
	recipes := r.recipes[processType]
	return func(yield func(*craft.Recipe) bool) {
		for _, rec := range recipes {
			if rec.Matches(actor, in) && !yield(rec) {
				return
			}
		}
	}
}
