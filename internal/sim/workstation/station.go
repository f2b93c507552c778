package workstation

import (
	"fmt"
	"io"
	"log"
	"slices"

	"craftworks.ai/internal/sim/craft"
	"craftworks.ai/internal/sim/inventory"
)

type StationConfig struct {
	ID           string
	Type         string
	InputSlots   int
	OutputSlots  int
	ProcessSlots int
	Logger       *log.Logger
}

// Station is one workstation in the world: staged inputs, an output
// container and a fixed number of process slots. Live processes reserve
// what they will consume: other slots only see the remainder. Withdrawing
// reserved inputs makes the process abort on its next tick.
type Station struct {
	id          string
	stationType string
	reg         *Registry

	inputs *inventory.Container
	output *inventory.Container
	slots  []*Process
	// order lists occupied slots by start time.
	order []int

	log *log.Logger
}

// Event reports a process state change observed during Tick, Start or
// Cancel.
type Event struct {
	StationID string
	Slot      int
	ProcessID string
	RecipeID  string
	Actor     string
	From      State
	To        State
	Reason    error
	Output    *craft.Output
	Anomaly   bool
}

func NewStation(reg *Registry, cfg StationConfig) (*Station, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("station: empty id")
	}
	if !reg.HasType(cfg.Type) {
		return nil, fmt.Errorf("station %s: %w: %s", cfg.ID, ErrUnknownProcessType, cfg.Type)
	}
	if cfg.InputSlots <= 0 {
		cfg.InputSlots = 9
	}
	if cfg.OutputSlots <= 0 {
		cfg.OutputSlots = 9
	}
	if cfg.ProcessSlots <= 0 {
		cfg.ProcessSlots = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Station{
		id:          cfg.ID,
		stationType: cfg.Type,
		reg:         reg,
		inputs:      inventory.NewContainer(cfg.InputSlots),
		output:      inventory.NewContainer(cfg.OutputSlots),
		slots:       make([]*Process, cfg.ProcessSlots),
		log:         logger,
	}, nil
}

func (s *Station) ID() string                   { return s.id }
func (s *Station) Type() string                 { return s.stationType }
func (s *Station) Inputs() *inventory.Container { return s.inputs }
func (s *Station) Output() *inventory.Container { return s.output }
func (s *Station) ProcessSlots() int            { return len(s.slots) }

func (s *Station) Process(slot int) *Process {
	if slot < 0 || slot >= len(s.slots) {
		return nil
	}
	return s.slots[slot]
}

// Matching lists the recipes of this station's type the unclaimed staged
// inputs currently satisfy.
func (s *Station) Matching(actor string) []*craft.Recipe {
	var out []*craft.Recipe
	for rec := range s.reg.FindMatching(s.stationType, actor, s.available(-1)) {
		out = append(out, rec)
	}
	return out
}

func (s *Station) Start(slot int, actor, recipeID string, multiplier int) (*Process, error) {
	if slot < 0 || slot >= len(s.slots) {
		return nil, fmt.Errorf("station %s: %w: %d", s.id, ErrBadSlot, slot)
	}
	if s.slots[slot] != nil {
		return nil, fmt.Errorf("station %s: %w: %d", s.id, ErrSlotBusy, slot)
	}
	rec, err := s.reg.Recipe(s.stationType, recipeID)
	if err != nil {
		return nil, err
	}
	p, err := s.reg.CreateProcess(s.stationType, rec, actor, s.available(slot), multiplier)
	if err != nil {
		return nil, err
	}
	s.occupy(slot, p)
	return p, nil
}

func (s *Station) occupy(slot int, p *Process) {
	s.slots[slot] = p
	s.order = append(s.order, slot)
}

func (s *Station) free(slot int) {
	s.slots[slot] = nil
	s.order = slices.DeleteFunc(s.order, func(i int) bool { return i == slot })
}

// Cancel aborts the process in slot and frees the slot.
func (s *Station) Cancel(slot int) (Event, bool) {
	p := s.Process(slot)
	if p == nil {
		return Event{}, false
	}
	from := p.State()
	if !p.Cancel() {
		return Event{}, false
	}
	s.free(slot)
	return s.event(slot, p, TickResult{From: from, To: p.State(), Reason: p.Reason()}), true
}

// Restore installs a rebuilt process into a free slot.
func (s *Station) Restore(slot int, p *Process) error {
	if slot < 0 || slot >= len(s.slots) {
		return fmt.Errorf("station %s: %w: %d", s.id, ErrBadSlot, slot)
	}
	if s.slots[slot] != nil {
		return fmt.Errorf("station %s: %w: %d", s.id, ErrSlotBusy, slot)
	}
	if p.ProcessType() != s.stationType {
		return fmt.Errorf("station %s: process %s has type %s", s.id, p.ID(), p.ProcessType())
	}
	s.occupy(slot, p)
	return nil
}

// Tick advances every live process by work units. Finished processes are
// dropped from their slot; every state change is returned as an event.
func (s *Station) Tick(work int) []Event {
	var events []Event
	sink := SinkFunc(func(out craft.Output) error {
		return depositAll(s.output, out.Stacks())
	})
	for i, p := range s.slots {
		if p == nil {
			continue
		}
		res := p.Tick(s.available(i), work, sink)
		if res.Anomaly {
			s.log.Printf("station %s slot %d: process %s (%s x%d) commit failed: %v",
				s.id, i, p.ID(), p.Recipe().ID(), p.Multiplier(), res.Reason)
		} else if res.Output != nil && res.Reason != nil {
			s.log.Printf("station %s slot %d: output %s x%d not stored: %v",
				s.id, i, res.Output.Prefab, res.Output.Count, res.Reason)
		}
		if res.Changed() {
			events = append(events, s.event(i, p, res))
		}
		if res.To.Terminal() {
			s.free(i)
		}
	}
	return events
}

func (s *Station) event(slot int, p *Process, res TickResult) Event {
	return Event{
		StationID: s.id,
		Slot:      slot,
		ProcessID: p.ID(),
		RecipeID:  p.Recipe().ID(),
		Actor:     p.Actor(),
		From:      res.From,
		To:        res.To,
		Reason:    res.Reason,
		Output:    res.Output,
		Anomaly:   res.Anomaly,
	}
}

// depositAll stores every stack, stopping at the first that does not fit.
func depositAll(c *inventory.Container, stacks []inventory.Stack) error {
	for _, st := range stacks {
		if _, err := c.Deposit(st); err != nil {
			return err
		}
	}
	return nil
}
