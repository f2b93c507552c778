package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"craftworks.ai/internal/persistence/indexdb"
	persistlog "craftworks.ai/internal/persistence/log"
	"craftworks.ai/internal/persistence/snapshot"
	"craftworks.ai/internal/protocol"
	"craftworks.ai/internal/sim/catalogs"
	"craftworks.ai/internal/sim/recipes"
	"craftworks.ai/internal/sim/tuning"
	"craftworks.ai/internal/sim/world"
	"craftworks.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable indexing (audit rows + catalogs + snapshot metadata)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	regs, err := recipes.Setup(cats, tune)
	if err != nil {
		logger.Fatalf("register recipes: %v", err)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	// Optional read-model index; the JSONL audit log stays authoritative.
	idx, err := openRuntimeIndex(worldDir, *worldID, *disableDB, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	w, err := world.New(world.Config{
		ID:                 *worldID,
		TickRateHz:         tune.TickRateHz,
		WorkPerTick:        tune.WorkPerTick,
		BatchMultiplier:    tune.BatchMultiplier,
		StarterItems:       tune.StarterItems,
		SnapshotEveryTicks: tune.SnapshotEveryTicks,
		Digests: protocol.CatalogDigests{
			HandRecipesDigest: cats.Hand.Digest,
			WorkstationDigest: cats.Workstation.Digest,
			TuningDigest:      indexdb.TuningDigest(tune),
		},
		Logger: log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds),
	}, regs.Hand, regs.Workstation)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	for _, p := range tune.ProcessTypes {
		if err := w.AddStation(p.ID, p.ID, p.Slots); err != nil {
			logger.Fatalf("station %s: %v", p.ID, err)
		}
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(worldDir)
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", *worldID, snap.Header.WorldID)
		}
		if err := w.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), w.CurrentTick())
	}

	ctx, cancel := signalContext()
	defer cancel()

	auditLog := persistlog.NewAuditLogger(worldDir)
	defer auditLog.Close()
	w.SetAuditLogger(multiAuditLogger{a: auditLog, b: idx})

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	writeSnap := func(snap snapshot.SnapshotV1) {
		path := snapshotPath(worldDir, snap.Header.Tick)
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			logger.Printf("snapshot write: %v", err)
			return
		}
		if idx != nil {
			idx.RecordSnapshot(path, snap)
		}
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				writeSnap(snap)
			}
		}
	}()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, *worldID, w.Metrics())
		if s, ok := idx.(*indexdb.SQLiteIndex); ok {
			writeIndexMetrics(rw, *worldID, s.Stats())
		}
	})

	enableAdminHTTP := envBool("CRAFT_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("CRAFT_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				WorldID string        `json:"world_id"`
				Tick    uint64        `json:"tick"`
				Metrics world.Metrics `json:"metrics"`
			}{
				WorldID: *worldID,
				Tick:    w.CurrentTick(),
				Metrics: w.Metrics(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
		if s, ok := idx.(*indexdb.SQLiteIndex); ok {
			mux.HandleFunc("/admin/v1/crafts", craftsHandler(s))
		}
	} else {
		logger.Printf("admin endpoints disabled (CRAFT_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (CRAFT_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(w, log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds)).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	// The loop has exited, so the world can be read from this goroutine.
	<-worldDone
	writeSnap(w.ExportSnapshot(w.CurrentTick()))
	logger.Printf("final snapshot tick=%d", w.CurrentTick())
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func snapshotPath(worldDir string, tick uint64) string {
	return filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", tick))
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func craftsHandler(idx *indexdb.SQLiteIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		actor := strings.TrimSpace(r.URL.Query().Get("actor"))
		if actor == "" {
			http.Error(rw, "missing actor", http.StatusBadRequest)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		entries, err := idx.CraftsByActor(r.Context(), actor, limit)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{"actor": actor, "entries": entries})
	}
}

func writeMetrics(rw io.Writer, worldID string, m world.Metrics) {
	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP craftworks_world_tick Current world tick.\n")
	fmt.Fprintf(rw, "# TYPE craftworks_world_tick gauge\n")
	fmt.Fprintf(rw, "craftworks_world_tick{world=%q} %d\n", worldID, m.Tick)

	fmt.Fprintf(rw, "# HELP craftworks_world_actors Current number of actors in the world.\n")
	fmt.Fprintf(rw, "# TYPE craftworks_world_actors gauge\n")
	fmt.Fprintf(rw, "craftworks_world_actors{world=%q} %d\n", worldID, m.Actors)

	fmt.Fprintf(rw, "# HELP craftworks_world_clients Current number of connected clients.\n")
	fmt.Fprintf(rw, "# TYPE craftworks_world_clients gauge\n")
	fmt.Fprintf(rw, "craftworks_world_clients{world=%q} %d\n", worldID, m.Clients)

	fmt.Fprintf(rw, "# HELP craftworks_world_stations Placed workstation count.\n")
	fmt.Fprintf(rw, "# TYPE craftworks_world_stations gauge\n")
	fmt.Fprintf(rw, "craftworks_world_stations{world=%q} %d\n", worldID, m.Stations)

	fmt.Fprintf(rw, "# HELP craftworks_world_queue_depth Channel backlog depth.\n")
	fmt.Fprintf(rw, "# TYPE craftworks_world_queue_depth gauge\n")
	fmt.Fprintf(rw, "craftworks_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "inbox", m.QueueDepths.Inbox)
	fmt.Fprintf(rw, "craftworks_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "join", m.QueueDepths.Join)
	fmt.Fprintf(rw, "craftworks_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "leave", m.QueueDepths.Leave)

	fmt.Fprintf(rw, "# HELP craftworks_crafts_total Completed in-hand crafts.\n")
	fmt.Fprintf(rw, "# TYPE craftworks_crafts_total counter\n")
	fmt.Fprintf(rw, "craftworks_crafts_total{world=%q} %d\n", worldID, m.Crafts)

	fmt.Fprintf(rw, "# HELP craftworks_processes_total Workstation processes by terminal state.\n")
	fmt.Fprintf(rw, "# TYPE craftworks_processes_total counter\n")
	fmt.Fprintf(rw, "craftworks_processes_total{world=%q,state=%q} %d\n", worldID, "COMPLETE", m.ProcessesCompleted)
	fmt.Fprintf(rw, "craftworks_processes_total{world=%q,state=%q} %d\n", worldID, "ABORTED", m.ProcessesAborted)

	fmt.Fprintf(rw, "# HELP craftworks_commit_anomalies_total Commits that failed after a successful match.\n")
	fmt.Fprintf(rw, "# TYPE craftworks_commit_anomalies_total counter\n")
	fmt.Fprintf(rw, "craftworks_commit_anomalies_total{world=%q} %d\n", worldID, m.Anomalies)

	fmt.Fprintf(rw, "# HELP craftworks_world_step_ms Last tick step duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE craftworks_world_step_ms gauge\n")
	fmt.Fprintf(rw, "craftworks_world_step_ms{world=%q} %.3f\n", worldID, m.StepMS)
}

func writeIndexMetrics(rw io.Writer, worldID string, s indexdb.Stats) {
	fmt.Fprintf(rw, "# HELP craftworks_index_queue_depth Index writer queue depth.\n")
	fmt.Fprintf(rw, "# TYPE craftworks_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "craftworks_index_queue_depth{world=%q} %d\n", worldID, s.QueueDepth)

	fmt.Fprintf(rw, "# HELP craftworks_index_dropped_total Index writes dropped on a full queue.\n")
	fmt.Fprintf(rw, "# TYPE craftworks_index_dropped_total counter\n")
	fmt.Fprintf(rw, "craftworks_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "audit", s.DropAuditTotal)
	fmt.Fprintf(rw, "craftworks_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "snapshot", s.DropSnapshotTotal)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
