package workstation

import (
	"fmt"

	"github.com/google/uuid"

	"craftworks.ai/internal/sim/craft"
	"craftworks.ai/internal/sim/inventory"
)

// Spec is everything a factory needs to build a process.
type Spec struct {
	ProcessType string
	Recipe      *craft.Recipe
	Actor       string
	Inputs      inventory.Inputs
	Multiplier  int
}

type Factory interface {
	NewProcess(spec Spec) (*Process, error)
}

type FactoryFunc func(spec Spec) (*Process, error)

func (f FactoryFunc) NewProcess(spec Spec) (*Process, error) { return f(spec) }

// CraftingFactory builds processes that need WorkTicks units of work per
// multiplier step.
type CraftingFactory struct {
	WorkTicks int
	NewID     func() string
}

func (f CraftingFactory) NewProcess(spec Spec) (*Process, error) {
	if spec.Recipe == nil {
		return nil, fmt.Errorf("%w: nil recipe", craft.ErrInvalidRecipe)
	}
	limit := spec.Recipe.MaxMultiplier(spec.Actor, spec.Inputs)
	if limit == 0 {
		return nil, fmt.Errorf("%w: %s", craft.ErrNoMatch, spec.Recipe.ID())
	}
	m := min(max(spec.Multiplier, 1), limit)

	work := f.WorkTicks
	if work <= 0 {
		work = 1
	}
	newID := f.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Process{
		id:          newID(),
		processType: spec.ProcessType,
		recipe:      spec.Recipe,
		actor:       spec.Actor,
		multiplier:  m,
		state:       StatePending,
		required:    work * m,
	}, nil
}

// RestoredProcess rebuilds a live process from persisted state.
type RestoredProcess struct {
	ID          string
	ProcessType string
	Recipe      *craft.Recipe
	Actor       string
	Multiplier  int
	State       State
	Progress    int
	Required    int
}

func Restore(r RestoredProcess) (*Process, error) {
	if r.Recipe == nil || r.ID == "" {
		return nil, fmt.Errorf("restore process %q: missing recipe or id", r.ID)
	}
	if r.Multiplier < 1 || r.State.Terminal() {
		return nil, fmt.Errorf("restore process %s: multiplier %d state %s", r.ID, r.Multiplier, r.State)
	}
	return &Process{
		id:          r.ID,
		processType: r.ProcessType,
		recipe:      r.Recipe,
		actor:       r.Actor,
		multiplier:  r.Multiplier,
		state:       r.State,
		progress:    r.Progress,
		required:    r.Required,
	}, nil
}
