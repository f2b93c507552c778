package craft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"craftworks.ai/internal/sim/inventory"
)

func newInputs(t *testing.T, stacks ...inventory.Stack) *inventory.Container {
	t.Helper()
	c := inventory.NewContainer(len(stacks) + 2)
	for i, s := range stacks {
		require.NoError(t, c.Set(i, s))
	}
	return c
}

func planks(n int) inventory.Stack { return inventory.Stack{Item: "Plank", Count: n} }

func axe(durability int) inventory.Stack {
	return inventory.Stack{Item: "StoneAxe", Count: 1, Tool: "axe", Durability: durability}
}

func mustRecipe(t *testing.T, id string, count int, behaviors ...Behavior) *Recipe {
	t.Helper()
	r, err := NewRecipe(id, ResultSpec{Prefab: "Stick", Count: count}, behaviors)
	require.NoError(t, err)
	return r
}

func TestPlankAxeScenario(t *testing.T) {
	in := newInputs(t, planks(9), axe(4))
	r := mustRecipe(t, "sticks", 2, Consume("Plank", 2), ReduceDurability("axe", 1))

	require.True(t, r.Matches("a1", in))
	assert.Equal(t, 4, r.MaxMultiplier("a1", in))

	out, err := r.Craft("a1", in, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Multiplier)
	assert.Equal(t, 6, out.Count)
	assert.Equal(t, "Stick", out.Prefab)

	p, _ := in.Get(0)
	assert.Equal(t, 3, p.Count)
	a, _ := in.Get(1)
	assert.Equal(t, 1, a.Durability)
	require.Len(t, out.Mutations, 2)
	assert.Equal(t, Mutation{Kind: KindConsume, Type: "Plank", Slot: 0, Amount: 6}, out.Mutations[0])
	assert.Equal(t, Mutation{Kind: KindReduceDurability, Type: "axe", Slot: 1, Amount: 3}, out.Mutations[1])
}

func TestMaxMultiplierIsMinimumOverBehaviors(t *testing.T) {
	cases := []struct {
		name  string
		in    []inventory.Stack
		bs    []Behavior
		want  int
		match bool
	}{
		{
			name:  "consume bound",
			in:    []inventory.Stack{planks(7), axe(10)},
			bs:    []Behavior{Consume("Plank", 3), ReduceDurability("axe", 2)},
			want:  2,
			match: true,
		},
		{
			name:  "durability bound",
			in:    []inventory.Stack{planks(20), axe(5)},
			bs:    []Behavior{Consume("Plank", 1), ReduceDurability("axe", 2)},
			want:  2,
			match: true,
		},
		{
			name:  "presence bound",
			in:    []inventory.Stack{planks(20), {Item: "Flint", Count: 3}},
			bs:    []Behavior{Presence("Flint", 1), Consume("Plank", 2)},
			want:  3,
			match: true,
		},
		{
			name: "one behavior zero",
			in:   []inventory.Stack{planks(1), axe(5)},
			bs:   []Behavior{Consume("Plank", 2), ReduceDurability("axe", 1)},
			want: 0,
		},
		{
			name: "missing tool",
			in:   []inventory.Stack{planks(10)},
			bs:   []Behavior{Consume("Plank", 2), ReduceDurability("axe", 1)},
			want: 0,
		},
		{
			name: "no behaviors",
			in:   []inventory.Stack{planks(10)},
			want: 0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := newInputs(t, tc.in...)
			r := mustRecipe(t, "r", 1, tc.bs...)

			lowest := -1
			for _, b := range tc.bs {
				if m := b.MaxMultiplier("a", in); lowest < 0 || m < lowest {
					lowest = m
				}
			}
			if len(tc.bs) > 0 {
				assert.Equal(t, lowest, r.MaxMultiplier("a", in))
			}
			assert.Equal(t, tc.want, r.MaxMultiplier("a", in))
			assert.Equal(t, tc.match, r.Matches("a", in))
		})
	}
}

func TestCeilingCapsMultiplier(t *testing.T) {
	in := newInputs(t, planks(50))
	r, err := NewRecipe("r", ResultSpec{Prefab: "Stick", Count: 1}, []Behavior{Consume("Plank", 1)}, WithCeiling(8))
	require.NoError(t, err)
	assert.Equal(t, 8, r.MaxMultiplier("a", in))

	out, err := r.Craft("a", in, 100)
	require.NoError(t, err)
	assert.Equal(t, 8, out.Multiplier)
	assert.Equal(t, 42, in.Count("Plank"))
}

func TestConsumeScalesWithMultiplier(t *testing.T) {
	for m := 1; m <= 5; m++ {
		in := newInputs(t, planks(10))
		r := mustRecipe(t, "r", 3, Consume("Plank", 2))
		out, err := r.Craft("a", in, m)
		require.NoError(t, err)
		assert.Equal(t, 10-2*m, in.Count("Plank"), "m=%d", m)
		assert.Equal(t, 3*m, out.Count, "m=%d", m)
	}
}

func TestReadOnlyCallsDoNotMutate(t *testing.T) {
	in := newInputs(t, planks(9), axe(4))
	r := mustRecipe(t, "r", 1, Presence("Plank", 1), Consume("Plank", 2), ReduceDurability("axe", 1))
	before := in.Stacks()
	for i := 0; i < 10; i++ {
		r.Matches("a", in)
		r.MaxMultiplier("a", in)
		r.Preview("a", in)
	}
	assert.Equal(t, before, in.Stacks())
}

func TestCraftClampsRequestedMultiplier(t *testing.T) {
	in := newInputs(t, planks(9), axe(4))
	r := mustRecipe(t, "r", 1, Consume("Plank", 2), ReduceDurability("axe", 1))

	out, err := r.Craft("a", in, 99)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Multiplier)
	assert.Equal(t, 1, in.Count("Plank"))
	_, ok := in.Get(1)
	assert.False(t, ok, "axe used up exactly")

	in = newInputs(t, planks(9))
	r = mustRecipe(t, "r2", 1, Consume("Plank", 2))
	out, err = r.Craft("a", in, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Multiplier, "requests below 1 clamp up")
}

func TestCraftNoMatchLeavesInputs(t *testing.T) {
	in := newInputs(t, planks(1), axe(4))
	r := mustRecipe(t, "r", 1, Consume("Plank", 2), ReduceDurability("axe", 1))
	before := in.Stacks()

	_, err := r.Craft("a", in, 1)
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Equal(t, before, in.Stacks())

	empty := mustRecipe(t, "empty", 1)
	_, err = empty.Craft("a", in, 1)
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.False(t, empty.Matches("a", in))
}

func TestDurabilityBoundary(t *testing.T) {
	const amount, m = 2, 3

	in := newInputs(t, axe(amount*m))
	b := ReduceDurability("axe", amount)
	assert.Equal(t, m, b.MaxMultiplier("a", in))
	mu, err := b.Apply("a", in, m)
	require.NoError(t, err)
	assert.True(t, mu.Destroyed)
	assert.Empty(t, in.Slots())

	in = newInputs(t, axe(amount*m-1))
	assert.LessOrEqual(t, b.MaxMultiplier("a", in), m-1)
}

func TestApplyFailsLoudly(t *testing.T) {
	in := newInputs(t, planks(3))
	b := Consume("Plank", 2)

	_, err := b.Apply("a", in, 2)
	assert.ErrorIs(t, err, ErrInsufficientResource)
	assert.Equal(t, 3, in.Count("Plank"))

	_, err = b.Apply("a", in, 0)
	assert.ErrorIs(t, err, ErrInvalidMultiplier)
}

func TestPresenceNeverMutates(t *testing.T) {
	in := newInputs(t, inventory.Stack{Item: "Flint", Count: 2})
	b := Presence("Flint", 1)
	mu, err := b.Apply("a", in, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, mu.Amount)
	assert.Equal(t, 2, in.Count("Flint"))
}

func TestBindPrefersLargestStack(t *testing.T) {
	in := newInputs(t, planks(2), planks(7), planks(7))
	b := Consume("Plank", 2)
	slot, c := b.bind(in, -1)
	assert.Equal(t, 1, slot, "lowest slot wins ties")
	assert.Equal(t, 3, c)

	slot, c = b.bind(in, 0)
	assert.Equal(t, 0, slot)
	assert.Equal(t, 1, c)

	slot, c = b.bind(in, 4)
	assert.Equal(t, -1, slot)
	assert.Equal(t, 0, c)
}

// vanishingTools simulates another writer taking the tool between
// validation and commit.
type vanishingTools struct{ *inventory.Container }

func (v vanishingTools) ReduceDurability(slot, n int) (bool, error) {
	v.Container.Remove(slot)
	return v.Container.ReduceDurability(slot, n)
}

func TestCraftDoesNotRollBackPartialCommit(t *testing.T) {
	c := newInputs(t, planks(9), axe(4))
	r := mustRecipe(t, "r", 1, Consume("Plank", 2), ReduceDurability("axe", 1))

	out, err := r.Craft("a", vanishingTools{c}, 2)
	require.ErrorIs(t, err, ErrInsufficientResource)
	assert.Equal(t, 5, c.Count("Plank"), "earlier consume stays applied")
	require.Len(t, out.Mutations, 1)
	assert.Equal(t, 0, out.Count)
}

func TestNewRecipeValidation(t *testing.T) {
	cases := []struct {
		name   string
		id     string
		result ResultSpec
		bs     []Behavior
	}{
		{"empty id", "", ResultSpec{Prefab: "X", Count: 1}, nil},
		{"no prefab", "r", ResultSpec{Count: 1}, nil},
		{"zero result", "r", ResultSpec{Prefab: "X"}, nil},
		{"zero amount", "r", ResultSpec{Prefab: "X", Count: 1}, []Behavior{Consume("Plank", 0)}},
		{"empty type", "r", ResultSpec{Prefab: "X", Count: 1}, []Behavior{Presence("", 1)}},
		{"unknown kind", "r", ResultSpec{Prefab: "X", Count: 1}, []Behavior{{Kind: 9, Type: "a", Amount: 1}}},
		{"duplicate", "r", ResultSpec{Prefab: "X", Count: 1}, []Behavior{Consume("Plank", 1), Consume("Plank", 2)}},
		{"tool without durability", "r", ResultSpec{Prefab: "X", Count: 1, Tool: "axe"}, nil},
		{"tool block", "r", ResultSpec{Prefab: "X", Count: 1, Tool: "axe", Durability: 8, Block: true}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRecipe(tc.id, tc.result, tc.bs)
			assert.ErrorIs(t, err, ErrInvalidRecipe)
		})
	}

	_, err := NewRecipe("ok", ResultSpec{Prefab: "X", Count: 1}, []Behavior{Presence("Plank", 1), Consume("Plank", 1)})
	assert.NoError(t, err, "different kinds on one type are fine")
}

func TestOutputStacks(t *testing.T) {
	items := Output{Prefab: "Core:Plank", Block: true, Count: 8}
	assert.Equal(t, []inventory.Stack{{Item: "Core:Plank", Count: 8, Block: true}}, items.Stacks())

	tools := Output{Prefab: "WoodAndStone:CrudeAxe", Tool: "axe", Durability: 32, Count: 2}
	want := inventory.Stack{Item: "WoodAndStone:CrudeAxe", Count: 1, Tool: "axe", Durability: 32}
	assert.Equal(t, []inventory.Stack{want, want}, tools.Stacks())
}

func TestPreviewAccessors(t *testing.T) {
	in := newInputs(t, planks(9), axe(4))
	r := mustRecipe(t, "r", 2, Consume("Plank", 2), ReduceDurability("axe", 1))
	d := r.Preview("a", in)
	assert.Equal(t, "r", d.RecipeID)
	assert.Equal(t, 4, d.MaxMultiplier)
	assert.Equal(t, 2, r.ResultQuantity())
	assert.Equal(t, []Behavior{Consume("Plank", 2), ReduceDurability("axe", 1)}, d.Ingredients)

	d.Ingredients[0].Amount = 100
	assert.Equal(t, 2, r.Ingredients()[0].Amount, "ingredients are copied")
}

func TestPresetResolve(t *testing.T) {
	assert.Equal(t, 1, PresetSingle.Resolve(9, 5))
	assert.Equal(t, 5, PresetBatch.Resolve(9, 5))
	assert.Equal(t, 3, PresetBatch.Resolve(3, 5))
	assert.Equal(t, 5, PresetBatch.Resolve(9, 0))
	assert.Equal(t, 9, PresetAll.Resolve(9, 5))
	assert.Equal(t, 0, PresetAll.Resolve(0, 5))
	assert.Equal(t, 1, Preset("").Resolve(2, 5))
}
