package craft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"craftworks.ai/internal/sim/inventory"
)

func collect(seq func(func(*Recipe) bool)) []string {
	var ids []string
	for r := range seq {
		ids = append(ids, r.ID())
	}
	return ids
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	for _, r := range []*Recipe{
		mustRecipe(t, "zeta", 1, Consume("Plank", 1)),
		mustRecipe(t, "alpha", 4, Consume("Plank", 2), ReduceDurability("axe", 1)),
		mustRecipe(t, "torch", 1, Consume("Coal", 1), Consume("Stick", 1)),
		mustRecipe(t, "mid", 1, Presence("Plank", 1)),
	} {
		require.NoError(t, reg.Register(r.ID(), r))
	}
	return reg
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := newTestRegistry(t)
	assert.Equal(t, 4, reg.Len())

	r, err := reg.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", r.ID())

	_, err = reg.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = reg.Register("zeta", mustRecipe(t, "zeta", 2, Consume("Rock", 1)))
	assert.ErrorIs(t, err, ErrDuplicateID)
	r, _ = reg.Get("zeta")
	assert.Equal(t, 1, r.ResultQuantity(), "duplicate does not replace")

	assert.ErrorIs(t, reg.Register("other", r), ErrInvalidRecipe)
	assert.ErrorIs(t, reg.Register("nil", nil), ErrInvalidRecipe)
}

func TestFindMatchingRegistrationOrder(t *testing.T) {
	reg := newTestRegistry(t)
	in := newInputs(t, planks(9), axe(4))

	seq, err := reg.FindMatching("a", in)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, collect(seq))
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, collect(seq), "restartable")

	_, err = in.Deposit(inventory.Stack{Item: "Coal", Count: 1})
	require.NoError(t, err)
	_, err = in.Deposit(inventory.Stack{Item: "Stick", Count: 1})
	require.NoError(t, err)
	require.NoError(t, in.Decrement(0, 9))
	assert.Equal(t, []string{"torch"}, collect(seq), "evaluated lazily against current inputs")
}

func TestFindMatchingStopsEarly(t *testing.T) {
	reg := newTestRegistry(t)
	in := newInputs(t, planks(9), axe(4))
	seq, err := reg.FindMatching("a", in)
	require.NoError(t, err)
	for r := range seq {
		assert.Equal(t, "zeta", r.ID())
		break
	}
}

func TestDisabledRegistryRefuses(t *testing.T) {
	reg := newTestRegistry(t)
	reg.SetCraftingDisabled(true)
	assert.True(t, reg.CraftingDisabled())
	in := newInputs(t, planks(9), axe(4))

	seq, err := reg.FindMatching("a", in)
	assert.ErrorIs(t, err, ErrFeatureDisabled)
	assert.Nil(t, seq)

	_, err = reg.Submit(in, Request{Actor: "a", RecipeID: "alpha", Count: 1})
	assert.ErrorIs(t, err, ErrFeatureDisabled)
	assert.Equal(t, 9, in.Count("Plank"))

	reg.SetCraftingDisabled(false)
	_, err = reg.Submit(in, Request{Actor: "a", RecipeID: "alpha", Count: 1})
	assert.NoError(t, err)
}

func TestSubmit(t *testing.T) {
	reg := newTestRegistry(t)
	in := newInputs(t, planks(3), planks(8), axe(4))

	out, err := reg.Submit(in, Request{Actor: "a", RecipeID: "alpha", Count: 2})
	require.NoError(t, err)
	assert.Equal(t, 8, out.Count)
	s, _ := in.Get(1)
	assert.Equal(t, 4, s.Count, "auto selection takes the larger stack")

	out, err = reg.Submit(in, Request{Actor: "a", RecipeID: "alpha", Params: []string{"0", "*"}, Count: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Multiplier, "pinned slot 0 only backs one craft")
	_, ok := in.Get(0)
	assert.True(t, ok)

	_, err = reg.Submit(in, Request{Actor: "a", RecipeID: "nope"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = reg.Submit(in, Request{Actor: "a", RecipeID: "alpha", Params: []string{"x"}})
	assert.ErrorIs(t, err, ErrBadParams)

	_, err = reg.Submit(in, Request{Actor: "a", RecipeID: "torch"})
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestParseSelection(t *testing.T) {
	sel, err := ParseSelection(nil, 2)
	require.NoError(t, err)
	assert.Nil(t, sel)

	sel, err = ParseSelection([]string{"3", " ", "*"}, 3)
	require.NoError(t, err)
	assert.Equal(t, Selection{3, -1, -1}, sel)

	_, err = ParseSelection([]string{"1", "2"}, 1)
	assert.ErrorIs(t, err, ErrBadParams)
	_, err = ParseSelection([]string{"-2"}, 1)
	assert.ErrorIs(t, err, ErrBadParams)
}
