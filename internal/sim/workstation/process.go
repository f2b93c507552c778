package workstation

import (
	"errors"
	"fmt"

	"craftworks.ai/internal/sim/craft"
	"craftworks.ai/internal/sim/inventory"
)

type State uint8

const (
	StatePending State = iota
	StateInProgress
	StateComplete
	StateAborted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateInProgress:
		return "IN_PROGRESS"
	case StateComplete:
		return "COMPLETE"
	case StateAborted:
		return "ABORTED"
	default:
		return fmt.Sprintf("STATE(%d)", uint8(s))
	}
}

func (s State) Terminal() bool { return s == StateComplete || s == StateAborted }

func ParseState(v string) (State, error) {
	for s := StatePending; s <= StateAborted; s++ {
		if s.String() == v {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown process state %q", v)
}

// Sink receives the output of a completed process.
type Sink interface {
	Deposit(out craft.Output) error
}

type SinkFunc func(out craft.Output) error

func (f SinkFunc) Deposit(out craft.Output) error { return f(out) }

// Process executes one recipe at a fixed multiplier over several ticks.
// It is owned by exactly one station slot and is not safe for concurrent use.
type Process struct {
	id          string
	processType string
	recipe      *craft.Recipe
	actor       string
	multiplier  int

	state    State
	progress int
	required int

	output *craft.Output
	reason error
}

func (p *Process) ID() string            { return p.id }
func (p *Process) ProcessType() string   { return p.processType }
func (p *Process) Recipe() *craft.Recipe { return p.recipe }
func (p *Process) Actor() string         { return p.actor }
func (p *Process) Multiplier() int       { return p.multiplier }
func (p *Process) State() State          { return p.state }
func (p *Process) WorkDone() int         { return p.progress }
func (p *Process) WorkRequired() int     { return p.required }
func (p *Process) Reason() error         { return p.reason }

func (p *Process) Output() (craft.Output, bool) {
	if p.output == nil {
		return craft.Output{}, false
	}
	return *p.output, true
}

// Progress reports completion as a fraction in [0, 1].
func (p *Process) Progress() float64 {
	if p.required <= 0 {
		return 0
	}
	f := float64(p.progress) / float64(p.required)
	if f > 1 {
		return 1
	}
	return f
}

type TickResult struct {
	From    State
	To      State
	Reason  error
	Output  *craft.Output
	Anomaly bool
}

func (r TickResult) Changed() bool { return r.From != r.To }

// Tick advances the process by work units. Inputs are re-validated at the
// fixed multiplier first; a process whose inputs no longer suffice aborts
// without committing anything.
func (p *Process) Tick(in inventory.Inputs, work int, sink Sink) TickResult {
	res := TickResult{From: p.state, To: p.state}
	if p.state.Terminal() {
		return res
	}
	if p.recipe.MaxMultiplier(p.actor, in) < p.multiplier {
		p.abort(fmt.Errorf("%w: %s x%d", ErrInputsChanged, p.recipe.ID(), p.multiplier))
		res.To, res.Reason = p.state, p.reason
		return res
	}
	if p.state == StatePending {
		p.state = StateInProgress
	}
	if work > 0 {
		p.progress += work
	}
	if p.progress < p.required {
		res.To = p.state
		return res
	}

	out, err := p.recipe.Craft(p.actor, in, p.multiplier)
	if err != nil {
		p.abort(err)
		res.To, res.Reason = p.state, p.reason
		res.Anomaly = errors.Is(err, craft.ErrInsufficientResource)
		return res
	}
	p.output = &out
	if sink != nil {
		if err := sink.Deposit(out); err != nil {
			p.reason = err
			res.Reason = err
		}
	}
	p.state = StateComplete
	res.To = p.state
	res.Output = p.output
	return res
}

// Cancel aborts a live process. It reports false for terminal processes.
func (p *Process) Cancel() bool {
	if p.state.Terminal() {
		return false
	}
	p.abort(ErrCancelled)
	return true
}

func (p *Process) abort(reason error) {
	p.state = StateAborted
	p.reason = reason
}
