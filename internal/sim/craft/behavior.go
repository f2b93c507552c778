package craft

import (
	"fmt"

	"craftworks.ai/internal/sim/inventory"
)

type Kind uint8

const (
	KindPresence Kind = iota + 1
	KindConsume
	KindReduceDurability
)

func (k Kind) String() string {
	switch k {
	case KindPresence:
		return "PRESENCE"
	case KindConsume:
		return "CONSUME"
	case KindReduceDurability:
		return "REDUCE_DURABILITY"
	default:
		return fmt.Sprintf("KIND(%d)", uint8(k))
	}
}

// Behavior is one ingredient rule of a recipe. Type is an item type for
// Presence/Consume and a tool kind for ReduceDurability. Every requirement
// scales linearly: at multiplier m the behavior needs Amount*m.
type Behavior struct {
	Kind   Kind   `json:"kind"`
	Type   string `json:"type"`
	Amount int    `json:"amount"`
}

func Presence(itemType string, count int) Behavior {
	return Behavior{Kind: KindPresence, Type: itemType, Amount: count}
}

func Consume(itemType string, count int) Behavior {
	return Behavior{Kind: KindConsume, Type: itemType, Amount: count}
}

func ReduceDurability(toolKind string, amount int) Behavior {
	return Behavior{Kind: KindReduceDurability, Type: toolKind, Amount: amount}
}

// Mutation records what Apply did to the inputs.
type Mutation struct {
	Kind      Kind   `json:"kind"`
	Type      string `json:"type"`
	Slot      int    `json:"slot"`
	Amount    int    `json:"amount"`
	Destroyed bool   `json:"destroyed,omitempty"`
}

func (b Behavior) validate() error {
	switch b.Kind {
	case KindPresence, KindConsume, KindReduceDurability:
	default:
		return fmt.Errorf("%w: unknown behavior kind %d", ErrInvalidRecipe, b.Kind)
	}
	if b.Type == "" {
		return fmt.Errorf("%w: %s with empty type", ErrInvalidRecipe, b.Kind)
	}
	if b.Amount <= 0 {
		return fmt.Errorf("%w: %s %s amount %d", ErrInvalidRecipe, b.Kind, b.Type, b.Amount)
	}
	return nil
}

func (b Behavior) accepts(s inventory.Stack) bool {
	switch b.Kind {
	case KindPresence, KindConsume:
		return s.Item == b.Type && s.Count > 0
	case KindReduceDurability:
		return s.IsTool() && s.Tool == b.Type
	}
	return false
}

// capacity is the largest multiplier the stack can back on its own.
func (b Behavior) capacity(s inventory.Stack) int {
	if b.Amount <= 0 || !b.accepts(s) {
		return 0
	}
	switch b.Kind {
	case KindPresence, KindConsume:
		return s.Count / b.Amount
	case KindReduceDurability:
		return s.Durability / b.Amount
	}
	return 0
}

// bind picks the slot the behavior draws from. A pinned slot (pin >= 0) is
// used as-is; otherwise the accepting slot with the greatest capacity wins,
// lowest slot first on ties. slot is -1 when nothing accepts.
func (b Behavior) bind(in inventory.Inputs, pin int) (slot, capacity int) {
	if pin >= 0 {
		s, ok := in.Get(pin)
		if !ok {
			return -1, 0
		}
		if c := b.capacity(s); c > 0 {
			return pin, c
		}
		return -1, 0
	}
	slot = -1
	for _, i := range in.Slots() {
		s, ok := in.Get(i)
		if !ok {
			continue
		}
		if c := b.capacity(s); c > capacity {
			slot, capacity = i, c
		}
	}
	return slot, capacity
}

func (b Behavior) IsValid(actor string, in inventory.Inputs) bool {
	return b.MaxMultiplier(actor, in) >= 1
}

func (b Behavior) MaxMultiplier(actor string, in inventory.Inputs) int {
	_, c := b.bind(in, -1)
	return c
}

// Apply performs the behavior's mutation once at multiplier m against the
// slot bind would choose right now.
func (b Behavior) Apply(actor string, in inventory.Inputs, m int) (Mutation, error) {
	slot, _ := b.bind(in, -1)
	return b.applyAt(in, slot, m)
}

func (b Behavior) applyAt(in inventory.Inputs, slot, m int) (Mutation, error) {
	if m < 1 {
		return Mutation{}, fmt.Errorf("%w: got %d", ErrInvalidMultiplier, m)
	}
	need := b.Amount * m
	mu := Mutation{Kind: b.Kind, Type: b.Type, Slot: slot, Amount: need}

	s, ok := in.Get(slot)
	if slot < 0 || !ok || b.capacity(s) < m {
		return mu, fmt.Errorf("%w: %s %s x%d at slot %d", ErrInsufficientResource, b.Kind, b.Type, need, slot)
	}

	switch b.Kind {
	case KindPresence:
		mu.Amount = 0
	case KindConsume:
		if err := in.Decrement(slot, need); err != nil {
			return mu, fmt.Errorf("%w: %v", ErrInsufficientResource, err)
		}
	case KindReduceDurability:
		destroyed, err := in.ReduceDurability(slot, need)
		if err != nil {
			return mu, fmt.Errorf("%w: %v", ErrInsufficientResource, err)
		}
		mu.Destroyed = destroyed
	}
	return mu, nil
}
