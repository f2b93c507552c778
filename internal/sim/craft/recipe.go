package craft

import (
	"fmt"
	"math"

	"craftworks.ai/internal/sim/inventory"
)

// ResultSpec is what a recipe produces at multiplier 1. A result with a
// Tool kind is a tool: every unit starts at Durability.
type ResultSpec struct {
	Prefab     string `json:"prefab"`
	Block      bool   `json:"block,omitempty"`
	Count      int    `json:"count"`
	Tool       string `json:"tool,omitempty"`
	Durability int    `json:"durability,omitempty"`
}

type Output struct {
	RecipeID   string     `json:"recipe_id"`
	Prefab     string     `json:"prefab"`
	Block      bool       `json:"block,omitempty"`
	Tool       string     `json:"tool,omitempty"`
	Durability int        `json:"durability,omitempty"`
	Count      int        `json:"count"`
	Multiplier int        `json:"multiplier"`
	Mutations  []Mutation `json:"mutations,omitempty"`
}

// Stacks returns the output as inventory stacks: one stack for items and
// blocks, one single-unit stack per tool.
func (o Output) Stacks() []inventory.Stack {
	if o.Tool == "" {
		return []inventory.Stack{{Item: o.Prefab, Count: o.Count, Block: o.Block}}
	}
	out := make([]inventory.Stack, o.Count)
	for i := range out {
		out[i] = inventory.Stack{Item: o.Prefab, Count: 1, Tool: o.Tool, Durability: o.Durability}
	}
	return out
}

// Recipe is a composite of ordered behaviors plus a result. It is
// immutable once built and safe to share between registries.
type Recipe struct {
	id        string
	result    ResultSpec
	behaviors []Behavior
	ceiling   int
}

type RecipeOption func(*Recipe)

// WithCeiling caps the multiplier. Zero or less means unconstrained.
func WithCeiling(n int) RecipeOption {
	return func(r *Recipe) {
		if n > 0 {
			r.ceiling = n
		}
	}
}

func NewRecipe(id string, result ResultSpec, behaviors []Behavior, opts ...RecipeOption) (*Recipe, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalidRecipe)
	}
	if result.Prefab == "" || result.Count <= 0 {
		return nil, fmt.Errorf("%w: %s: result %q x%d", ErrInvalidRecipe, id, result.Prefab, result.Count)
	}
	if result.Tool != "" && (result.Block || result.Durability <= 0) {
		return nil, fmt.Errorf("%w: %s: tool result %q needs durability and cannot be a block", ErrInvalidRecipe, id, result.Prefab)
	}
	type key struct {
		kind Kind
		typ  string
	}
	seen := make(map[key]struct{}, len(behaviors))
	for i, b := range behaviors {
		if err := b.validate(); err != nil {
			return nil, fmt.Errorf("%s behavior %d: %w", id, i, err)
		}
		k := key{b.Kind, b.Type}
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("%w: %s: %s %s listed twice", ErrInvalidRecipe, id, b.Kind, b.Type)
		}
		seen[k] = struct{}{}
	}
	r := &Recipe{
		id:        id,
		result:    result,
		behaviors: append([]Behavior(nil), behaviors...),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

func (r *Recipe) ID() string          { return r.id }
func (r *Recipe) Result() ResultSpec  { return r.result }
func (r *Recipe) ResultQuantity() int { return r.result.Count }
func (r *Recipe) Ceiling() int        { return r.ceiling }

// Ingredients returns a copy of the behaviors in registration order.
func (r *Recipe) Ingredients() []Behavior {
	return append([]Behavior(nil), r.behaviors...)
}

// Selection pins behavior i to slot Selection[i]. Negative entries and
// missing tail entries mean "pick automatically".
type Selection []int

func (s Selection) pin(i int) int {
	if i < len(s) {
		return s[i]
	}
	return -1
}

func (r *Recipe) plan(in inventory.Inputs, sel Selection) (slots []int, limit int) {
	if len(r.behaviors) == 0 {
		return nil, 0
	}
	slots = make([]int, len(r.behaviors))
	limit = math.MaxInt
	for i, b := range r.behaviors {
		slot, c := b.bind(in, sel.pin(i))
		if c == 0 {
			return nil, 0
		}
		slots[i] = slot
		limit = min(limit, c)
	}
	if r.ceiling > 0 {
		limit = min(limit, r.ceiling)
	}
	return slots, limit
}

func (r *Recipe) Matches(actor string, in inventory.Inputs) bool {
	if len(r.behaviors) == 0 {
		return false
	}
	for _, b := range r.behaviors {
		if !b.IsValid(actor, in) {
			return false
		}
	}
	return true
}

func (r *Recipe) MaxMultiplier(actor string, in inventory.Inputs) int {
	_, limit := r.plan(in, nil)
	return limit
}

// Claims reports what a craft at multiplier m would take from each slot
// right now, without mutating in. ok is false when in cannot back m.
func (r *Recipe) Claims(in inventory.Inputs, m int) (claims []Mutation, ok bool) {
	slots, limit := r.plan(in, nil)
	if m < 1 || limit < m {
		return nil, false
	}
	claims = make([]Mutation, len(r.behaviors))
	for i, b := range r.behaviors {
		claims[i] = Mutation{Kind: b.Kind, Type: b.Type, Slot: slots[i], Amount: b.Amount * m}
	}
	return claims, true
}

func (r *Recipe) Craft(actor string, in inventory.Inputs, requested int) (Output, error) {
	return r.CraftSelected(actor, in, requested, nil)
}

// CraftSelected clamps requested to [1, max], applies every behavior in
// order and returns the scaled output. Behaviors already applied are not
// rolled back when a later one fails; the returned Output then carries
// the partial mutations.
func (r *Recipe) CraftSelected(actor string, in inventory.Inputs, requested int, sel Selection) (Output, error) {
	slots, limit := r.plan(in, sel)
	if limit == 0 {
		return Output{}, fmt.Errorf("%w: %s", ErrNoMatch, r.id)
	}
	m := min(max(requested, 1), limit)

	out := Output{
		RecipeID:   r.id,
		Prefab:     r.result.Prefab,
		Block:      r.result.Block,
		Tool:       r.result.Tool,
		Durability: r.result.Durability,
		Multiplier: m,
		Mutations:  make([]Mutation, 0, len(r.behaviors)),
	}
	for i, b := range r.behaviors {
		mu, err := b.applyAt(in, slots[i], m)
		if err != nil {
			return out, fmt.Errorf("recipe %s behavior %d: %w", r.id, i, err)
		}
		out.Mutations = append(out.Mutations, mu)
	}
	out.Count = r.result.Count * m
	return out, nil
}

// Display is the read-only preview a renderer needs.
type Display struct {
	RecipeID      string     `json:"recipe_id"`
	Ingredients   []Behavior `json:"ingredients"`
	Result        ResultSpec `json:"result"`
	MaxMultiplier int        `json:"max_multiplier"`
}

func (r *Recipe) Preview(actor string, in inventory.Inputs) Display {
	return Display{
		RecipeID:      r.id,
		Ingredients:   r.Ingredients(),
		Result:        r.result,
		MaxMultiplier: r.MaxMultiplier(actor, in),
	}
}
