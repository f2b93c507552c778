package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrShort     = errors.New("inventory: slot cannot back request")
	ErrFull      = errors.New("inventory: no free slot")
	ErrBadSlot   = errors.New("inventory: slot out of range")
	ErrBadAmount = errors.New("inventory: amount must be positive")
)

// Stack is the content of one slot. Tools carry a Tool kind and a
// Durability; plain items leave both zero.
type Stack struct {
	Item       string `json:"item" yaml:"item"`
	Count      int    `json:"count" yaml:"count"`
	Tool       string `json:"tool,omitempty" yaml:"tool,omitempty"`
	Durability int    `json:"durability,omitempty" yaml:"durability,omitempty"`
	Block      bool   `json:"block,omitempty" yaml:"block,omitempty"`
}

func (s Stack) IsTool() bool { return s.Tool != "" }

// Inputs is the slot view the crafting engine reads and mutates.
// Slots must return occupied slot indices in ascending order.
type Inputs interface {
	Slots() []int
	Get(slot int) (Stack, bool)
	Decrement(slot, n int) error
	ReduceDurability(slot, n int) (destroyed bool, err error)
}

type SlotStack struct {
	Slot  int   `json:"slot" yaml:"slot"`
	Stack Stack `json:"stack" yaml:",inline"`
}

// Container is a fixed-size, in-memory Inputs implementation used for actor
// inventories and workstation input/output slots.
type Container struct {
	slots []*Stack
}

func NewContainer(size int) *Container {
	if size < 0 {
		size = 0
	}
	return &Container{slots: make([]*Stack, size)}
}

func (c *Container) Size() int { return len(c.slots) }

func (c *Container) Slots() []int {
	out := make([]int, 0, len(c.slots))
	for i, s := range c.slots {
		if s != nil {
			out = append(out, i)
		}
	}
	return out
}

func (c *Container) Get(slot int) (Stack, bool) {
	if slot < 0 || slot >= len(c.slots) || c.slots[slot] == nil {
		return Stack{}, false
	}
	return *c.slots[slot], true
}

// Set overwrites a slot. A stack with no count clears the slot.
func (c *Container) Set(slot int, s Stack) error {
	if slot < 0 || slot >= len(c.slots) {
		return fmt.Errorf("%w: %d", ErrBadSlot, slot)
	}
	if s.Count <= 0 {
		c.slots[slot] = nil
		return nil
	}
	cp := s
	c.slots[slot] = &cp
	return nil
}

func (c *Container) Remove(slot int) (Stack, bool) {
	s, ok := c.Get(slot)
	if ok {
		c.slots[slot] = nil
	}
	return s, ok
}

func (c *Container) Decrement(slot, n int) error {
	if n <= 0 {
		return ErrBadAmount
	}
	s, ok := c.Get(slot)
	if !ok || s.Count < n {
		return fmt.Errorf("%w: slot %d has %d, need %d", ErrShort, slot, s.Count, n)
	}
	if s.Count == n {
		c.slots[slot] = nil
		return nil
	}
	c.slots[slot].Count -= n
	return nil
}

func (c *Container) ReduceDurability(slot, n int) (bool, error) {
	if n <= 0 {
		return false, ErrBadAmount
	}
	s, ok := c.Get(slot)
	if !ok || !s.IsTool() || s.Durability < n {
		return false, fmt.Errorf("%w: slot %d durability %d, need %d", ErrShort, slot, s.Durability, n)
	}
	if s.Durability == n {
		c.slots[slot] = nil
		return true, nil
	}
	c.slots[slot].Durability -= n
	return false, nil
}

// Deposit merges s into an existing stack of the same item (tools never
// merge) or places it into the first free slot.
func (c *Container) Deposit(s Stack) (int, error) {
	if s.Count <= 0 {
		return -1, ErrBadAmount
	}
	if !s.IsTool() {
		for i, cur := range c.slots {
			if cur != nil && !cur.IsTool() && cur.Item == s.Item && cur.Block == s.Block {
				cur.Count += s.Count
				return i, nil
			}
		}
	}
	for i, cur := range c.slots {
		if cur == nil {
			cp := s
			c.slots[i] = &cp
			return i, nil
		}
	}
	return -1, ErrFull
}

// Take removes up to n units of item across slots, lowest slot first, and
// returns how many were removed.
func (c *Container) Take(item string, n int) int {
	taken := 0
	for i, cur := range c.slots {
		if taken >= n {
			break
		}
		if cur == nil || cur.Item != item {
			continue
		}
		d := min(cur.Count, n-taken)
		cur.Count -= d
		taken += d
		if cur.Count == 0 {
			c.slots[i] = nil
		}
	}
	return taken
}

// Count sums the units of item held across all slots.
func (c *Container) Count(item string) int {
	n := 0
	for _, cur := range c.slots {
		if cur != nil && cur.Item == item {
			n += cur.Count
		}
	}
	return n
}

// Stacks returns a copy of the occupied slots in slot order.
func (c *Container) Stacks() []SlotStack {
	out := make([]SlotStack, 0, len(c.slots))
	for i, s := range c.slots {
		if s != nil {
			out = append(out, SlotStack{Slot: i, Stack: *s})
		}
	}
	return out
}

// Load replaces the container content. Slots outside the container size are
// rejected.
func (c *Container) Load(stacks []SlotStack) error {
	for i := range c.slots {
		c.slots[i] = nil
	}
	for _, s := range stacks {
		if err := c.Set(s.Slot, s.Stack); err != nil {
			return err
		}
	}
	return nil
}

// Transfer moves up to n units of item from src to dst, lowest slot first;
// n <= 0 moves everything. Tool stacks move whole so their durability is
// kept. It returns the units moved so far when a deposit fails.
func Transfer(src, dst *Container, item string, n int) (int, error) {
	moved := 0
	for _, slot := range src.Slots() {
		if n > 0 && moved >= n {
			break
		}
		s, _ := src.Get(slot)
		if s.Item != item {
			continue
		}
		part := s
		if n > 0 && !s.IsTool() {
			part.Count = min(s.Count, n-moved)
		}
		if _, err := dst.Deposit(part); err != nil {
			return moved, err
		}
		if part.Count == s.Count {
			src.Remove(slot)
		} else if err := src.Decrement(slot, part.Count); err != nil {
			return moved, err
		}
		moved += part.Count
	}
	if moved == 0 {
		return 0, fmt.Errorf("%w: no %s", ErrShort, item)
	}
	return moved, nil
}
