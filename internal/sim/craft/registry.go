package craft

import (
	"fmt"
	"iter"

	"craftworks.ai/internal/sim/inventory"
)

// Registry holds the craft-in-hand recipes. It is populated once at startup
// and read from the world loop afterwards; it does no locking.
type Registry struct {
	order    []*Recipe
	byID     map[string]*Recipe
	disabled bool
}

func NewRegistry() *Registry {
	return &Registry{byID: map[string]*Recipe{}}
}

func (r *Registry) Register(id string, rec *Recipe) error {
	if rec == nil {
		return fmt.Errorf("%w: nil recipe for %q", ErrInvalidRecipe, id)
	}
	if id != rec.ID() {
		return fmt.Errorf("%w: id %q does not match recipe %q", ErrInvalidRecipe, id, rec.ID())
	}
	if _, ok := r.byID[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	r.byID[id] = rec
	r.order = append(r.order, rec)
	return nil
}

func (r *Registry) Get(id string) (*Recipe, error) {
	rec, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

func (r *Registry) Len() int { return len(r.order) }

// All yields every recipe in registration order.
func (r *Registry) All() iter.Seq[*Recipe] {
	order := r.order
	return func(yield func(*Recipe) bool) {
		for _, rec := range order {
			if !yield(rec) {
				return
			}
		}
	}
}

// FindMatching yields, in registration order, the recipes that match in.
// Matching is evaluated lazily on each iteration, so the sequence can be
// ranged over again after the inputs change.
func (r *Registry) FindMatching(actor string, in inventory.Inputs) (iter.Seq[*Recipe], error) {
	if r.disabled {
		return nil, ErrFeatureDisabled
	}
	all := r.All()
	return func(yield func(*Recipe) bool) {
		for rec := range all {
			if rec.Matches(actor, in) && !yield(rec) {
				return
			}
		}
	}, nil
}

func (r *Registry) SetCraftingDisabled(v bool) { r.disabled = v }
func (r *Registry) CraftingDisabled() bool     { return r.disabled }
