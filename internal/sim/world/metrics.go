package world

import (
	"sync/atomic"
	"time"
)

// Metrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers
// and tests.
type Metrics struct {
	Tick uint64 `json:"tick"`

	Actors   int `json:"actors"`
	Clients  int `json:"clients"`
	Stations int `json:"stations"`

	QueueDepths QueueDepths `json:"queue_depths"`

	Crafts             uint64 `json:"crafts_total"`
	ProcessesCompleted uint64 `json:"processes_completed_total"`
	ProcessesAborted   uint64 `json:"processes_aborted_total"`
	Anomalies          uint64 `json:"anomalies_total"`

	StepMS float64 `json:"step_ms"`
}

type QueueDepths struct {
	Inbox int `json:"inbox"`
	Join  int `json:"join"`
	Leave int `json:"leave"`
}

type metricsCounters struct {
	crafts             atomic.Uint64
	processesCompleted atomic.Uint64
	processesAborted   atomic.Uint64
	anomalies          atomic.Uint64

	lastStepNS atomic.Int64
	actors     atomic.Int64
	clients    atomic.Int64
}

func (m *metricsCounters) observeStep(d time.Duration) {
	m.lastStepNS.Store(int64(d))
}

func (w *World) Metrics() Metrics {
	if w == nil {
		return Metrics{}
	}
	return Metrics{
		Tick:     w.tick.Load(),
		Actors:   int(w.metrics.actors.Load()),
		Clients:  int(w.metrics.clients.Load()),
		Stations: len(w.stationOrder),
		QueueDepths: QueueDepths{
			Inbox: len(w.inbox),
			Join:  len(w.join),
			Leave: len(w.leave),
		},
		Crafts:             w.metrics.crafts.Load(),
		ProcessesCompleted: w.metrics.processesCompleted.Load(),
		ProcessesAborted:   w.metrics.processesAborted.Load(),
		Anomalies:          w.metrics.anomalies.Load(),
		StepMS:             float64(w.metrics.lastStepNS.Load()) / float64(time.Millisecond),
	}
}
