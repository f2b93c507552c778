package world

import (
	"context"
	"time"

	"craftworks.ai/internal/protocol"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingJoins []JoinRequest
	var pendingLeaves []string
	var pendingReqs []Request

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-w.leave:
			pendingLeaves = append(pendingLeaves, id)
		case req := <-w.inbox:
			pendingReqs = append(pendingReqs, req)
		case <-ticker.C:
			w.step(pendingJoins, pendingLeaves, pendingReqs)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingReqs = pendingReqs[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick using the same ordering as
// Run and returns the tick that was processed.
func (w *World) StepOnce(joins []JoinRequest, leaves []string, reqs []Request) uint64 {
	tick := w.tick.Load()
	w.step(joins, leaves, reqs)
	return tick
}

// step applies leaves, joins and requests in receive order, then ticks
// every station in placement order.
func (w *World) step(joins []JoinRequest, leaves []string, reqs []Request) {
	start := time.Now()
	nowTick := w.tick.Load()

	for _, id := range leaves {
		delete(w.clients, id)
	}
	for _, req := range joins {
		resp := w.joinActor(req)
		if req.Resp != nil {
			req.Resp <- resp
		}
	}

	for _, req := range reqs {
		if w.actors[req.ActorID] == nil {
			continue
		}
		res := w.handle(nowTick, req)
		w.reply(req, res)
	}

	for _, id := range w.stationOrder {
		st := w.stations[id]
		for _, ev := range st.Tick(w.cfg.WorkPerTick) {
			w.onProcessEvent(nowTick, ev)
		}
	}

	if w.snapshotSink != nil && w.cfg.SnapshotEveryTicks > 0 && nowTick > 0 && nowTick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		select {
		case w.snapshotSink <- w.ExportSnapshot(nowTick):
		default:
			w.log.Printf("tick %d: snapshot sink full; skipping", nowTick)
		}
	}

	w.tick.Store(nowTick + 1)
	w.metrics.actors.Store(int64(len(w.actors)))
	w.metrics.clients.Store(int64(len(w.clients)))
	w.metrics.observeStep(time.Since(start))
}

func (w *World) reply(req Request, res protocol.ResultMsg) {
	if req.Reply != nil {
		req.Reply <- res
		return
	}
	w.sendTo(req.ActorID, res)
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
