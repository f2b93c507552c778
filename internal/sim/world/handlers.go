package world

import (
	"errors"
	"fmt"

	"craftworks.ai/internal/protocol"
	"craftworks.ai/internal/sim/craft"
	"craftworks.ai/internal/sim/inventory"
	"craftworks.ai/internal/sim/workstation"
)

func (w *World) handle(nowTick uint64, req Request) protocol.ResultMsg {
	a := w.actors[req.ActorID]
	switch {
	case req.Craft != nil:
		return w.handleCraft(nowTick, a, *req.Craft)
	case req.Station != nil:
		return w.handleStation(nowTick, a, *req.Station)
	case req.Preview != nil:
		return w.handlePreview(nowTick, a, *req.Preview)
	default:
		return failResult("", nowTick, protocol.ErrProtoBadRequest, "empty request")
	}
}

func okResult(reqID string, tick uint64) protocol.ResultMsg {
	return protocol.ResultMsg{Type: protocol.TypeResult, ProtocolVersion: protocol.Version, ReqID: reqID, Tick: tick, OK: true}
}

func failResult(reqID string, tick uint64, code, message string) protocol.ResultMsg {
	return protocol.ResultMsg{Type: protocol.TypeResult, ProtocolVersion: protocol.Version, ReqID: reqID, Tick: tick, Code: code, Message: message}
}

func errResult(reqID string, tick uint64, err error) protocol.ResultMsg {
	return failResult(reqID, tick, codeFor(err), err.Error())
}

// codeFor maps engine errors onto protocol result codes.
func codeFor(err error) string {
	switch {
	case errors.Is(err, craft.ErrFeatureDisabled):
		return protocol.ErrDisabled
	case errors.Is(err, craft.ErrNoMatch):
		return protocol.ErrNoMatch
	case errors.Is(err, craft.ErrInsufficientResource), errors.Is(err, inventory.ErrShort):
		return protocol.ErrNoResource
	case errors.Is(err, craft.ErrNotFound), errors.Is(err, workstation.ErrUnknownProcessType):
		return protocol.ErrNotFound
	case errors.Is(err, craft.ErrBadParams), errors.Is(err, craft.ErrInvalidMultiplier):
		return protocol.ErrBadRequest
	case errors.Is(err, workstation.ErrSlotBusy):
		return protocol.ErrConflict
	case errors.Is(err, workstation.ErrBadSlot), errors.Is(err, inventory.ErrBadSlot):
		return protocol.ErrInvalidTarget
	case errors.Is(err, inventory.ErrFull):
		return protocol.ErrNoSpace
	default:
		return protocol.ErrInternal
	}
}

func parsePreset(v string) (craft.Preset, error) {
	switch p := craft.Preset(v); p {
	case "", craft.PresetSingle, craft.PresetBatch, craft.PresetAll:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown preset %q", craft.ErrBadParams, v)
	}
}

// multiplier turns a count or preset into the requested multiplier. A
// preset wins over count.
func (w *World) multiplier(rec *craft.Recipe, actor string, in inventory.Inputs, count int, preset string) (int, error) {
	p, err := parsePreset(preset)
	if err != nil {
		return 0, err
	}
	if count < 0 {
		return 0, fmt.Errorf("%w: count %d", craft.ErrInvalidMultiplier, count)
	}
	if p == "" {
		return count, nil
	}
	m := p.Resolve(rec.MaxMultiplier(actor, in), w.cfg.BatchMultiplier)
	if m == 0 {
		return 0, fmt.Errorf("%w: %s", craft.ErrNoMatch, rec.ID())
	}
	return m, nil
}

func (w *World) handleCraft(nowTick uint64, a *Actor, msg protocol.CraftMsg) protocol.ResultMsg {
	if w.hand.CraftingDisabled() {
		return errResult(msg.ReqID, nowTick, craft.ErrFeatureDisabled)
	}
	rec, err := w.hand.Get(msg.RecipeID)
	if err != nil {
		return errResult(msg.ReqID, nowTick, err)
	}
	if _, err := craft.ParseSelection(msg.Params, len(rec.Ingredients())); err != nil {
		return errResult(msg.ReqID, nowTick, err)
	}
	m, err := w.multiplier(rec, a.ID, a.Inventory, msg.Count, msg.Preset)
	if err != nil {
		return errResult(msg.ReqID, nowTick, err)
	}
	if !rec.Matches(a.ID, a.Inventory) {
		return errResult(msg.ReqID, nowTick, fmt.Errorf("%w: %s", craft.ErrNoMatch, rec.ID()))
	}
	units := rec.ResultQuantity() * min(max(m, 1), rec.MaxMultiplier(a.ID, a.Inventory))
	if !hasRoom(a.Inventory, rec.Result(), units) {
		return errResult(msg.ReqID, nowTick, fmt.Errorf("%w: inventory of %s", inventory.ErrFull, a.ID))
	}

	out, err := w.hand.Submit(a.Inventory, craft.Request{Actor: a.ID, RecipeID: msg.RecipeID, Params: msg.Params, Count: m})
	if err != nil {
		if errors.Is(err, craft.ErrInsufficientResource) {
			w.log.Printf("tick %d: actor %s recipe %s: commit failed: %v", nowTick, a.ID, msg.RecipeID, err)
			w.audit(AuditEntry{Tick: nowTick, Actor: a.ID, Action: AuditCraft, RecipeID: msg.RecipeID, Reason: err.Error(), Anomaly: true, Mutations: out.Mutations})
			w.metrics.anomalies.Add(1)
		}
		return errResult(msg.ReqID, nowTick, err)
	}
	for _, st := range out.Stacks() {
		if _, err := a.Inventory.Deposit(st); err != nil {
			w.log.Printf("tick %d: actor %s recipe %s: output %s x%d not stored: %v", nowTick, a.ID, out.RecipeID, st.Item, st.Count, err)
			break
		}
	}
	w.audit(AuditEntry{
		Tick:       nowTick,
		Actor:      a.ID,
		Action:     AuditCraft,
		RecipeID:   out.RecipeID,
		Multiplier: out.Multiplier,
		Prefab:     out.Prefab,
		Count:      out.Count,
		Mutations:  out.Mutations,
	})
	w.metrics.crafts.Add(1)

	r := okResult(msg.ReqID, nowTick)
	r.Output = outputRef(out)
	return r
}

// hasRoom reports whether units of res can be deposited without evicting
// anything. Tools need one free slot per unit.
func hasRoom(c *inventory.Container, res craft.ResultSpec, units int) bool {
	stacks := c.Stacks()
	free := c.Size() - len(stacks)
	if res.Tool != "" {
		return free >= units
	}
	if free > 0 {
		return true
	}
	for _, cur := range stacks {
		if !cur.Stack.IsTool() && cur.Stack.Item == res.Prefab && cur.Stack.Block == res.Block {
			return true
		}
	}
	return false
}

func (w *World) handleStation(nowTick uint64, a *Actor, msg protocol.StationMsg) protocol.ResultMsg {
	st := w.stations[msg.StationID]
	if st == nil {
		return failResult(msg.ReqID, nowTick, protocol.ErrNotFound, "unknown station "+msg.StationID)
	}
	switch msg.Op {
	case protocol.StationStart:
		return w.stationStart(nowTick, a, st, msg)
	case protocol.StationCancel:
		return w.stationCancel(nowTick, a, st, msg)
	case protocol.StationPut:
		return w.stationPut(nowTick, a, st, msg)
	case protocol.StationTake:
		return w.stationTake(nowTick, a, st, msg)
	default:
		return failResult(msg.ReqID, nowTick, protocol.ErrBadRequest, "unknown op "+msg.Op)
	}
}

func (w *World) stationStart(nowTick uint64, a *Actor, st *workstation.Station, msg protocol.StationMsg) protocol.ResultMsg {
	rec, err := w.ws.Recipe(st.Type(), msg.RecipeID)
	if err != nil {
		return errResult(msg.ReqID, nowTick, err)
	}
	m, err := w.multiplier(rec, a.ID, st.Available(), msg.Count, msg.Preset)
	if err != nil {
		return errResult(msg.ReqID, nowTick, err)
	}
	p, err := st.Start(msg.Slot, a.ID, msg.RecipeID, m)
	if err != nil {
		return errResult(msg.ReqID, nowTick, err)
	}
	w.audit(AuditEntry{
		Tick:       nowTick,
		Actor:      a.ID,
		Action:     AuditProcessStart,
		StationID:  st.ID(),
		RecipeID:   msg.RecipeID,
		ProcessID:  p.ID(),
		Multiplier: p.Multiplier(),
	})
	r := okResult(msg.ReqID, nowTick)
	r.ProcessID = p.ID()
	r.State = p.State().String()
	return r
}

func (w *World) stationCancel(nowTick uint64, a *Actor, st *workstation.Station, msg protocol.StationMsg) protocol.ResultMsg {
	p := st.Process(msg.Slot)
	if p == nil {
		return failResult(msg.ReqID, nowTick, protocol.ErrNotFound, fmt.Sprintf("no process in slot %d", msg.Slot))
	}
	if p.Actor() != a.ID {
		return failResult(msg.ReqID, nowTick, protocol.ErrNoPermission, "process owned by "+p.Actor())
	}
	ev, ok := st.Cancel(msg.Slot)
	if !ok {
		return failResult(msg.ReqID, nowTick, protocol.ErrConflict, "process already finished")
	}
	w.onProcessEvent(nowTick, ev)
	r := okResult(msg.ReqID, nowTick)
	r.ProcessID = ev.ProcessID
	r.State = ev.To.String()
	return r
}

func (w *World) stationPut(nowTick uint64, a *Actor, st *workstation.Station, msg protocol.StationMsg) protocol.ResultMsg {
	if msg.Item == "" {
		return failResult(msg.ReqID, nowTick, protocol.ErrBadRequest, "missing item")
	}
	moved, err := inventory.Transfer(a.Inventory, st.Inputs(), msg.Item, msg.ItemCount)
	if moved > 0 {
		w.audit(AuditEntry{Tick: nowTick, Actor: a.ID, Action: AuditStationPut, StationID: st.ID(), Prefab: msg.Item, Count: moved})
	}
	if err != nil && moved == 0 {
		return errResult(msg.ReqID, nowTick, err)
	}
	r := okResult(msg.ReqID, nowTick)
	r.Moved = moved
	return r
}

func (w *World) stationTake(nowTick uint64, a *Actor, st *workstation.Station, msg protocol.StationMsg) protocol.ResultMsg {
	if msg.Item == "" {
		return failResult(msg.ReqID, nowTick, protocol.ErrBadRequest, "missing item")
	}
	var src *inventory.Container
	switch msg.From {
	case "", "output":
		src = st.Output()
	case "inputs":
		src = st.Inputs()
	default:
		return failResult(msg.ReqID, nowTick, protocol.ErrBadRequest, "bad from "+msg.From)
	}
	moved, err := inventory.Transfer(src, a.Inventory, msg.Item, msg.ItemCount)
	if moved > 0 {
		w.audit(AuditEntry{Tick: nowTick, Actor: a.ID, Action: AuditStationTake, StationID: st.ID(), Prefab: msg.Item, Count: moved})
	}
	if err != nil && moved == 0 {
		return errResult(msg.ReqID, nowTick, err)
	}
	r := okResult(msg.ReqID, nowTick)
	r.Moved = moved
	return r
}

func (w *World) handlePreview(nowTick uint64, a *Actor, msg protocol.PreviewMsg) protocol.ResultMsg {
	r := okResult(msg.ReqID, nowTick)
	r.Recipes = []protocol.RecipeView{}
	if msg.StationID != "" {
		st := w.stations[msg.StationID]
		if st == nil {
			return failResult(msg.ReqID, nowTick, protocol.ErrNotFound, "unknown station "+msg.StationID)
		}
		for _, rec := range st.Matching(a.ID) {
			r.Recipes = append(r.Recipes, recipeView(rec.Preview(a.ID, st.Available())))
		}
		return r
	}
	seq, err := w.hand.FindMatching(a.ID, a.Inventory)
	if err != nil {
		return errResult(msg.ReqID, nowTick, err)
	}
	for rec := range seq {
		r.Recipes = append(r.Recipes, recipeView(rec.Preview(a.ID, a.Inventory)))
	}
	return r
}

// onProcessEvent forwards a process state change to its owner and audits
// terminal transitions.
func (w *World) onProcessEvent(nowTick uint64, ev workstation.Event) {
	owner := ev.Actor
	msg := protocol.EventMsg{
		Type:            protocol.TypeEvent,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		StationID:       ev.StationID,
		Slot:            ev.Slot,
		ProcessID:       ev.ProcessID,
		RecipeID:        ev.RecipeID,
		From:            ev.From.String(),
		To:              ev.To.String(),
	}
	if ev.Reason != nil {
		msg.Reason = ev.Reason.Error()
	}
	if ev.Output != nil {
		msg.Output = outputRef(*ev.Output)
	}
	w.sendTo(owner, msg)

	if !ev.To.Terminal() {
		return
	}
	entry := AuditEntry{
		Tick:      nowTick,
		Actor:     owner,
		StationID: ev.StationID,
		RecipeID:  ev.RecipeID,
		ProcessID: ev.ProcessID,
		Reason:    msg.Reason,
		Anomaly:   ev.Anomaly,
	}
	if ev.To == workstation.StateComplete {
		entry.Action = AuditProcessComplete
		w.metrics.processesCompleted.Add(1)
	} else {
		entry.Action = AuditProcessAbort
		w.metrics.processesAborted.Add(1)
	}
	if ev.Output != nil {
		entry.Multiplier = ev.Output.Multiplier
		entry.Prefab = ev.Output.Prefab
		entry.Count = ev.Output.Count
		entry.Mutations = ev.Output.Mutations
	}
	if ev.Anomaly {
		w.metrics.anomalies.Add(1)
	}
	w.audit(entry)
}

func outputRef(out craft.Output) *protocol.OutputRef {
	return &protocol.OutputRef{
		RecipeID:   out.RecipeID,
		Prefab:     out.Prefab,
		Block:      out.Block,
		Tool:       out.Tool,
		Count:      out.Count,
		Multiplier: out.Multiplier,
	}
}

func recipeView(d craft.Display) protocol.RecipeView {
	v := protocol.RecipeView{
		RecipeID:      d.RecipeID,
		Ingredients:   make([]protocol.IngredientView, 0, len(d.Ingredients)),
		Result:        d.Result.Prefab,
		Block:         d.Result.Block,
		ResultCount:   d.Result.Count,
		MaxMultiplier: d.MaxMultiplier,
	}
	for _, b := range d.Ingredients {
		v.Ingredients = append(v.Ingredients, protocol.IngredientView{Kind: b.Kind.String(), Type: b.Type, Amount: b.Amount})
	}
	return v
}
