package world

import (
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"craftworks.ai/internal/persistence/snapshot"
	"craftworks.ai/internal/protocol"
	"craftworks.ai/internal/sim/craft"
	"craftworks.ai/internal/sim/inventory"
	"craftworks.ai/internal/sim/workstation"
)

type Config struct {
	ID              string
	TickRateHz      int
	WorkPerTick     int
	BatchMultiplier int
	InventorySlots  int

	// Starter items granted to newly joined actors.
	StarterItems []inventory.Stack

	// Operational parameters. These are included in snapshots.
	SnapshotEveryTicks int

	Digests protocol.CatalogDigests
	Logger  *log.Logger
}

func (c *Config) applyDefaults() {
	if c.ID == "" {
		c.ID = "world"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 5
	}
	if c.WorkPerTick <= 0 {
		c.WorkPerTick = 1
	}
	if c.BatchMultiplier <= 0 {
		c.BatchMultiplier = craft.DefaultBatch
	}
	if c.InventorySlots <= 0 {
		c.InventorySlots = 36
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard, "", 0)
	}
}

type JoinRequest struct {
	Name string
	// ResumeActorID reattaches to an existing actor; unknown ids fall back
	// to a fresh join.
	ResumeActorID string
	Out           chan []byte
	Resp          chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
}

// Request is one client message addressed to the world. Exactly one of
// Craft, Station or Preview is set. The result goes to Reply when it is
// non-nil and to the actor's outbound queue otherwise; Reply must have
// room for one message.
type Request struct {
	ActorID string
	Craft   *protocol.CraftMsg
	Station *protocol.StationMsg
	Preview *protocol.PreviewMsg
	Reply   chan<- protocol.ResultMsg
}

type Actor struct {
	ID        string
	Name      string
	Inventory *inventory.Container
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// World is a single-threaded crafting host. All state must be accessed
// only from the world loop goroutine.
type World struct {
	cfg  Config
	hand *craft.Registry
	ws   *workstation.Registry
	log  *log.Logger

	tick atomic.Uint64

	actors  map[string]*Actor
	clients map[string]chan []byte

	stations     map[string]*workstation.Station
	stationOrder []string

	inbox chan Request
	join  chan JoinRequest
	leave chan string
	stop  chan struct{}

	nextActorNum atomic.Uint64

	// Optional audit sink (may be nil). Implemented in internal/persistence/*.
	auditLogger AuditLogger
	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	metrics metricsCounters
}

func New(cfg Config, hand *craft.Registry, ws *workstation.Registry) (*World, error) {
	if hand == nil || ws == nil {
		return nil, fmt.Errorf("world: nil registry")
	}
	cfg.applyDefaults()
	return &World{
		cfg:      cfg,
		hand:     hand,
		ws:       ws,
		log:      cfg.Logger,
		actors:   map[string]*Actor{},
		clients:  map[string]chan []byte{},
		stations: map[string]*workstation.Station{},
		inbox:    make(chan Request, 1024),
		join:     make(chan JoinRequest, 64),
		leave:    make(chan string, 64),
		stop:     make(chan struct{}),
	}, nil
}

// AddStation places a workstation of processType. It must be called before
// Run.
func (w *World) AddStation(id, processType string, processSlots int) error {
	if _, ok := w.stations[id]; ok {
		return fmt.Errorf("world: duplicate station %s", id)
	}
	st, err := w.newStation(workstation.StationConfig{ID: id, Type: processType, ProcessSlots: processSlots})
	if err != nil {
		return err
	}
	w.stations[id] = st
	w.stationOrder = append(w.stationOrder, id)
	return nil
}

func (w *World) newStation(cfg workstation.StationConfig) (*workstation.Station, error) {
	cfg.Logger = log.New(w.log.Writer(), w.log.Prefix()+"[station "+cfg.ID+"] ", w.log.Flags())
	return workstation.NewStation(w.ws, cfg)
}

func (w *World) Station(id string) *workstation.Station { return w.stations[id] }
func (w *World) Actor(id string) *Actor                 { return w.actors[id] }

func (w *World) SetAuditLogger(l AuditLogger)                  { w.auditLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) Inbox() chan<- Request    { return w.inbox }
func (w *World) Join() chan<- JoinRequest { return w.join }
func (w *World) Leave() chan<- string     { return w.leave }
func (w *World) CurrentTick() uint64      { return w.tick.Load() }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.TickRateHz
}
