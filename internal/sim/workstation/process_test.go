package workstation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"craftworks.ai/internal/sim/craft"
	"craftworks.ai/internal/sim/inventory"
)

const woodcrafting = "WoodAndStone:BasicWoodcrafting"

func plankRecipe(t *testing.T) *craft.Recipe {
	t.Helper()
	r, err := craft.NewRecipe("Building|Planks",
		craft.ResultSpec{Prefab: "Core:Plank", Block: true, Count: 4},
		[]craft.Behavior{craft.Consume("WoodAndStone:plank", 2), craft.ReduceDurability("axe", 1)})
	require.NoError(t, err)
	return r
}

func stockedInputs(t *testing.T, planks, durability int) *inventory.Container {
	t.Helper()
	c := inventory.NewContainer(4)
	require.NoError(t, c.Set(0, inventory.Stack{Item: "WoodAndStone:plank", Count: planks}))
	require.NoError(t, c.Set(1, inventory.Stack{Item: "StoneAxe", Count: 1, Tool: "axe", Durability: durability}))
	return c
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("P%03d", n)
	}
}

func newProcess(t *testing.T, in inventory.Inputs, workTicks, m int) *Process {
	t.Helper()
	p, err := CraftingFactory{WorkTicks: workTicks, NewID: seqIDs()}.NewProcess(Spec{
		ProcessType: woodcrafting,
		Recipe:      plankRecipe(t),
		Actor:       "a1",
		Inputs:      in,
		Multiplier:  m,
	})
	require.NoError(t, err)
	return p
}

type outputs []craft.Output

func (o *outputs) Deposit(out craft.Output) error {
	*o = append(*o, out)
	return nil
}

func TestProcessLifecycle(t *testing.T) {
	in := stockedInputs(t, 9, 4)
	p := newProcess(t, in, 3, 2)
	assert.Equal(t, "P001", p.ID())
	assert.Equal(t, StatePending, p.State())
	assert.Equal(t, 6, p.WorkRequired())

	var sink outputs
	res := p.Tick(in, 2, &sink)
	assert.Equal(t, StatePending, res.From)
	assert.Equal(t, StateInProgress, res.To)
	assert.InDelta(t, 1.0/3.0, p.Progress(), 1e-9)

	res = p.Tick(in, 2, &sink)
	assert.False(t, res.Changed())
	assert.Equal(t, 9, in.Count("WoodAndStone:plank"), "nothing consumed before completion")

	res = p.Tick(in, 2, &sink)
	assert.Equal(t, StateComplete, res.To)
	require.NotNil(t, res.Output)
	assert.Equal(t, 8, res.Output.Count)
	assert.Equal(t, 5, in.Count("WoodAndStone:plank"))
	axe, _ := in.Get(1)
	assert.Equal(t, 2, axe.Durability)
	require.Len(t, sink, 1)
	assert.Equal(t, 1.0, p.Progress())

	res = p.Tick(in, 2, &sink)
	assert.False(t, res.Changed(), "complete is terminal")
	assert.Len(t, sink, 1, "commit happens exactly once")
	assert.Equal(t, 5, in.Count("WoodAndStone:plank"))
}

func TestProcessSingleTickCompletion(t *testing.T) {
	in := stockedInputs(t, 2, 1)
	p := newProcess(t, in, 1, 1)
	var sink outputs
	res := p.Tick(in, 1, &sink)
	assert.Equal(t, StatePending, res.From)
	assert.Equal(t, StateComplete, res.To)
	assert.Empty(t, in.Slots(), "planks used and axe destroyed")
}

func TestProcessAbortsWhenInputsWithdrawn(t *testing.T) {
	in := stockedInputs(t, 9, 4)
	p := newProcess(t, in, 5, 3)
	var sink outputs

	p.Tick(in, 1, &sink)
	require.Equal(t, StateInProgress, p.State())

	in.Remove(0)
	res := p.Tick(in, 1, &sink)
	assert.Equal(t, StateAborted, res.To)
	assert.ErrorIs(t, res.Reason, ErrInputsChanged)
	assert.False(t, res.Anomaly)
	assert.Empty(t, sink)
	_, ok := p.Output()
	assert.False(t, ok)

	axe, _ := in.Get(1)
	assert.Equal(t, 4, axe.Durability, "aborted process commits nothing")

	res = p.Tick(in, 10, &sink)
	assert.False(t, res.Changed(), "aborted is terminal")
}

func TestProcessAbortsWhenStillPresentButInsufficient(t *testing.T) {
	in := stockedInputs(t, 6, 4)
	p := newProcess(t, in, 5, 3)
	require.NoError(t, in.Decrement(0, 1))

	res := p.Tick(in, 1, nil)
	assert.Equal(t, StatePending, res.From)
	assert.Equal(t, StateAborted, res.To)
}

func TestProcessMultiplierFixedAtCreation(t *testing.T) {
	in := stockedInputs(t, 4, 10)
	p := newProcess(t, in, 1, 5)
	assert.Equal(t, 2, p.Multiplier(), "clamped to the maximum at creation")

	require.NoError(t, in.Set(0, inventory.Stack{Item: "WoodAndStone:plank", Count: 40}))
	var sink outputs
	p.Tick(in, 1, &sink)
	p.Tick(in, 1, &sink)
	require.Equal(t, StateComplete, p.State())
	assert.Equal(t, 8, sink[0].Count)
	assert.Equal(t, 36, in.Count("WoodAndStone:plank"))
}

func TestProcessCancel(t *testing.T) {
	in := stockedInputs(t, 9, 4)
	p := newProcess(t, in, 5, 1)
	p.Tick(in, 1, nil)

	assert.True(t, p.Cancel())
	assert.Equal(t, StateAborted, p.State())
	assert.ErrorIs(t, p.Reason(), ErrCancelled)
	assert.False(t, p.Cancel())

	res := p.Tick(in, 100, nil)
	assert.False(t, res.Changed())
	assert.Equal(t, 9, in.Count("WoodAndStone:plank"))
}

type vanishingTools struct{ *inventory.Container }

func (v vanishingTools) ReduceDurability(slot, n int) (bool, error) {
	v.Container.Remove(slot)
	return v.Container.ReduceDurability(slot, n)
}

func TestProcessCommitAnomaly(t *testing.T) {
	c := stockedInputs(t, 9, 4)
	in := vanishingTools{c}
	p := newProcess(t, in, 1, 1)

	var sink outputs
	res := p.Tick(in, 1, &sink)
	assert.Equal(t, StateAborted, res.To)
	assert.True(t, res.Anomaly)
	assert.ErrorIs(t, res.Reason, craft.ErrInsufficientResource)
	assert.Empty(t, sink)
}

func TestProcessSinkError(t *testing.T) {
	in := stockedInputs(t, 9, 4)
	p := newProcess(t, in, 1, 1)
	full := errors.New("full")
	res := p.Tick(in, 1, SinkFunc(func(craft.Output) error { return full }))
	assert.Equal(t, StateComplete, res.To)
	assert.ErrorIs(t, res.Reason, full)
	require.NotNil(t, res.Output)
}

func TestFactoryNoMatch(t *testing.T) {
	in := stockedInputs(t, 1, 4)
	_, err := CraftingFactory{WorkTicks: 2}.NewProcess(Spec{
		ProcessType: woodcrafting,
		Recipe:      plankRecipe(t),
		Inputs:      in,
		Multiplier:  1,
	})
	assert.ErrorIs(t, err, craft.ErrNoMatch)
}

func TestFactoryDefaults(t *testing.T) {
	in := stockedInputs(t, 9, 4)
	p, err := CraftingFactory{}.NewProcess(Spec{ProcessType: woodcrafting, Recipe: plankRecipe(t), Inputs: in})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Multiplier())
	assert.Equal(t, 1, p.WorkRequired())
	assert.Len(t, p.ID(), 36, "uuid by default")
}

func TestRestore(t *testing.T) {
	p, err := Restore(RestoredProcess{
		ID: "P9", ProcessType: woodcrafting, Recipe: plankRecipe(t), Actor: "a1",
		Multiplier: 2, State: StateInProgress, Progress: 3, Required: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, StateInProgress, p.State())
	assert.Equal(t, 0.75, p.Progress())

	_, err = Restore(RestoredProcess{ID: "P9", Recipe: plankRecipe(t), Multiplier: 1, State: StateComplete})
	assert.Error(t, err)
	_, err = Restore(RestoredProcess{ID: "P9", Multiplier: 1})
	assert.Error(t, err)
}

func TestParseState(t *testing.T) {
	for _, s := range []State{StatePending, StateInProgress, StateComplete, StateAborted} {
		got, err := ParseState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseState("DONE")
	assert.Error(t, err)
}
