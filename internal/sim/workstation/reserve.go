package workstation

import (
	"craftworks.ai/internal/sim/craft"
	"craftworks.ai/internal/sim/inventory"
)

// reservedInputs hides what other live processes have claimed from a
// station's staged inputs. Reads see the remainder; mutations go straight
// to the underlying container.
type reservedInputs struct {
	in         inventory.Inputs
	count      map[int]int
	durability map[int]int
}

func newReservedInputs(in inventory.Inputs) *reservedInputs {
	return &reservedInputs{in: in, count: map[int]int{}, durability: map[int]int{}}
}

func (r *reservedInputs) hold(claims []craft.Mutation) {
	for _, c := range claims {
		if c.Kind == craft.KindReduceDurability {
			r.durability[c.Slot] += c.Amount
		} else {
			r.count[c.Slot] += c.Amount
		}
	}
}

func (r *reservedInputs) Slots() []int { return r.in.Slots() }

func (r *reservedInputs) Get(slot int) (inventory.Stack, bool) {
	s, ok := r.in.Get(slot)
	if !ok {
		return s, false
	}
	s.Count = max(s.Count-r.count[slot], 0)
	s.Durability = max(s.Durability-r.durability[slot], 0)
	return s, true
}

func (r *reservedInputs) Decrement(slot, n int) error {
	return r.in.Decrement(slot, n)
}

func (r *reservedInputs) ReduceDurability(slot, n int) (bool, error) {
	return r.in.ReduceDurability(slot, n)
}

// claims returns what each live process holds, keyed by slot. Processes
// claim in start order, each from what the earlier ones left.
func (s *Station) claims() map[int][]craft.Mutation {
	v := newReservedInputs(s.inputs)
	out := make(map[int][]craft.Mutation, len(s.order))
	for _, i := range s.order {
		p := s.slots[i]
		if p == nil || p.State().Terminal() {
			continue
		}
		if c, ok := p.Recipe().Claims(v, p.Multiplier()); ok {
			v.hold(c)
			out[i] = c
		}
	}
	return out
}

// available returns the staged inputs minus the claims of every live
// process except the one in slot skip.
func (s *Station) available(skip int) *reservedInputs {
	v := newReservedInputs(s.inputs)
	for i, c := range s.claims() {
		if i != skip {
			v.hold(c)
		}
	}
	return v
}

// Available is the part of the staged inputs no live process has claimed.
func (s *Station) Available() inventory.Inputs { return s.available(-1) }
