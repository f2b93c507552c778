package world

import (
	"encoding/json"
	"fmt"
	"strings"

	"craftworks.ai/internal/protocol"
	"craftworks.ai/internal/sim/inventory"
)

func normalizeActorName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "actor"
	}
	if len(name) > 32 {
		name = name[:32]
	}
	return name
}

func (w *World) joinActor(req JoinRequest) JoinResponse {
	a := w.actors[req.ResumeActorID]
	if a == nil {
		idNum := w.nextActorNum.Add(1)
		a = &Actor{
			ID:        fmt.Sprintf("A%d", idNum),
			Name:      normalizeActorName(req.Name),
			Inventory: inventory.NewContainer(w.cfg.InventorySlots),
		}
		for _, s := range w.cfg.StarterItems {
			if _, err := a.Inventory.Deposit(s); err != nil {
				w.log.Printf("join %s: starter item %s x%d: %v", a.ID, s.Item, s.Count, err)
			}
		}
		w.actors[a.ID] = a
	}
	if req.Out != nil {
		w.clients[a.ID] = req.Out
	}
	return JoinResponse{Welcome: w.buildWelcome(a)}
}

func (w *World) buildWelcome(a *Actor) protocol.WelcomeMsg {
	msg := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		ActorID:         a.ID,
		WorldParams: protocol.WorldParams{
			WorldID:                w.cfg.ID,
			TickRateHz:             w.cfg.TickRateHz,
			BatchMultiplier:        w.cfg.BatchMultiplier,
			CraftingInHandDisabled: w.hand.CraftingDisabled(),
		},
		Catalogs:  w.cfg.Digests,
		Stations:  make([]protocol.StationRef, 0, len(w.stationOrder)),
		Inventory: itemStacks(a.Inventory.Stacks()),
	}
	for _, id := range w.stationOrder {
		st := w.stations[id]
		msg.Stations = append(msg.Stations, protocol.StationRef{ID: id, Type: st.Type(), ProcessSlots: st.ProcessSlots()})
	}
	return msg
}

func itemStacks(in []inventory.SlotStack) []protocol.ItemStack {
	out := make([]protocol.ItemStack, 0, len(in))
	for _, s := range in {
		out = append(out, protocol.ItemStack{
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

// sendTo queues msg for a connected actor, dropping the oldest queued
// message when the client is behind.
func (w *World) sendTo(actorID string, msg any) {
	out := w.clients[actorID]
	if out == nil {
		return
	}
	b, err := json.Marshal(msg)
	if err != nil {
		w.log.Printf("send %s: %v", actorID, err)
		return
	}
	sendLatest(out, b)
}
