package world

import (
	"fmt"
	"maps"
	"slices"

	"craftworks.ai/internal/persistence/snapshot"
	"craftworks.ai/internal/sim/inventory"
	"craftworks.ai/internal/sim/workstation"
)

// ExportSnapshot captures actors, stations and live processes as of
// nowTick. It must run on the world loop goroutine.
func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	s := snapshot.SnapshotV1{
		Header:          snapshot.Header{Version: snapshot.Version, WorldID: w.cfg.ID, Tick: nowTick},
		TickRate:        w.cfg.TickRateHz,
		WorkPerTick:     w.cfg.WorkPerTick,
		BatchMultiplier: w.cfg.BatchMultiplier,
		HandDisabled:    w.hand.CraftingDisabled(),
		Actors:          make([]snapshot.ActorV1, 0, len(w.actors)),
		Stations:        make([]snapshot.StationV1, 0, len(w.stationOrder)),
		Counters:        snapshot.CountersV1{NextActor: w.nextActorNum.Load()},
	}
	for _, id := range slices.Sorted(maps.Keys(w.actors)) {
		a := w.actors[id]
		s.Actors = append(s.Actors, snapshot.ActorV1{ID: a.ID, Name: a.Name, Inventory: exportStacks(a.Inventory)})
	}
	for _, id := range w.stationOrder {
		st := w.stations[id]
		sv := snapshot.StationV1{
			ID:           id,
			Type:         st.Type(),
			InputSlots:   st.Inputs().Size(),
			OutputSlots:  st.Output().Size(),
			ProcessSlots: st.ProcessSlots(),
			Inputs:       exportStacks(st.Inputs()),
			Output:       exportStacks(st.Output()),
		}
		for slot := range st.ProcessSlots() {
			p := st.Process(slot)
			if p == nil {
				continue
			}
			sv.Processes = append(sv.Processes, snapshot.ProcessV1{
				Slot:       slot,
				ID:         p.ID(),
				RecipeID:   p.Recipe().ID(),
				Actor:      p.Actor(),
				Multiplier: p.Multiplier(),
				State:      p.State().String(),
				Progress:   p.WorkDone(),
				Required:   p.WorkRequired(),
			})
		}
		s.Stations = append(s.Stations, sv)
	}
	return s
}

// ImportSnapshot replaces actors and station contents with s. Stations
// missing from the world are added with the snapshot's layout. Tuning
// stays authoritative for tick rate, work per tick and the hand gate;
// restored processes keep the work requirement they were started with.
// Nothing changes unless the whole snapshot loads.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	if s.Header.Version != snapshot.Version {
		return fmt.Errorf("import snapshot: unsupported version %d", s.Header.Version)
	}
	actors := make(map[string]*Actor, len(s.Actors))
	for _, av := range s.Actors {
		c := inventory.NewContainer(w.cfg.InventorySlots)
		if err := c.Load(importStacks(av.Inventory)); err != nil {
			return fmt.Errorf("import actor %s: %w", av.ID, err)
		}
		actors[av.ID] = &Actor{ID: av.ID, Name: av.Name, Inventory: c}
	}

	stations := make(map[string]*workstation.Station, len(s.Stations))
	var added []string
	for _, sv := range s.Stations {
		if _, dup := stations[sv.ID]; dup {
			return fmt.Errorf("import station %s: listed twice", sv.ID)
		}
		st, err := w.importStation(sv)
		if err != nil {
			return fmt.Errorf("import station %s: %w", sv.ID, err)
		}
		if w.stations[sv.ID] == nil {
			added = append(added, sv.ID)
		}
		stations[sv.ID] = st
	}

	maps.Copy(w.stations, stations)
	w.stationOrder = append(w.stationOrder, added...)
	w.actors = actors
	w.clients = map[string]chan []byte{}
	w.nextActorNum.Store(s.Counters.NextActor)
	w.tick.Store(s.Header.Tick)
	return nil
}

// importStation builds a detached replacement for station sv.ID. A station
// the world already has keeps its type and layout.
func (w *World) importStation(sv snapshot.StationV1) (*workstation.Station, error) {
	cfg := workstation.StationConfig{
		ID:           sv.ID,
		Type:         sv.Type,
		InputSlots:   sv.InputSlots,
		OutputSlots:  sv.OutputSlots,
		ProcessSlots: sv.ProcessSlots,
	}
	if cur := w.stations[sv.ID]; cur != nil {
		if cur.Type() != sv.Type {
			return nil, fmt.Errorf("type %s, snapshot has %s", cur.Type(), sv.Type)
		}
		cfg.InputSlots = cur.Inputs().Size()
		cfg.OutputSlots = cur.Output().Size()
		cfg.ProcessSlots = cur.ProcessSlots()
	}
	st, err := w.newStation(cfg)
	if err != nil {
		return nil, err
	}
	if err := st.Inputs().Load(importStacks(sv.Inputs)); err != nil {
		return nil, fmt.Errorf("inputs: %w", err)
	}
	if err := st.Output().Load(importStacks(sv.Output)); err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	for _, pv := range sv.Processes {
		if err := w.restoreProcess(st, pv); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (w *World) restoreProcess(st *workstation.Station, pv snapshot.ProcessV1) error {
	rec, err := w.ws.Recipe(st.Type(), pv.RecipeID)
	if err != nil {
		return err
	}
	state, err := workstation.ParseState(pv.State)
	if err != nil {
		return err
	}
	p, err := workstation.Restore(workstation.RestoredProcess{
		ID:          pv.ID,
		ProcessType: st.Type(),
		Recipe:      rec,
		Actor:       pv.Actor,
		Multiplier:  pv.Multiplier,
		State:       state,
		Progress:    pv.Progress,
		Required:    pv.Required,
	})
	if err != nil {
		return err
	}
	return st.Restore(pv.Slot, p)
}

func exportStacks(c *inventory.Container) []snapshot.StackV1 {
	stacks := c.Stacks()
	out := make([]snapshot.StackV1, 0, len(stacks))
	for _, s := range stacks {
		out = append(out, snapshot.StackV1{
			Slot:       s.Slot,
			Item:       s.Stack.Item,
			Count:      s.Stack.Count,
			Tool:       s.Stack.Tool,
			Durability: s.Stack.Durability,
			Block:      s.Stack.Block,
		})
	}
	return out
}

func importStacks(in []snapshot.StackV1) []inventory.SlotStack {
	out := make([]inventory.SlotStack, 0, len(in))
	for _, s := range in {
		out = append(out, inventory.SlotStack{Slot: s.Slot, Stack: inventory.Stack{
			Item:       s.Item,
			Count:      s.Count,
			Tool:       s.Tool,
			Durability: s.Durability,
			Block:      s.Block,
		}})
	}
	return out
}
