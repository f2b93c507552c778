package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	persistlog "craftworks.ai/internal/persistence/log"
	"craftworks.ai/internal/persistence/snapshot"
	"craftworks.ai/internal/sim/world"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "crafts":
			craftsCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	if *worldID != "" {
		base = filepath.Join(base, *worldID)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "world_1", "world id")
	actor := fs.String("actor", "", "actor id filter (optional)")
	action := fs.String("action", "", "action filter, e.g. CRAFT or PROCESS_ABORT (optional)")
	since := fs.Uint64("since", 0, "min tick (inclusive)")
	anomalies := fs.Bool("anomalies", false, "only commit anomalies")
	_ = fs.Parse(args)

	keep := func(e world.AuditEntry) bool {
		if *actor != "" && e.Actor != *actor {
			return false
		}
		if *action != "" && !strings.EqualFold(e.Action, *action) {
			return false
		}
		if *anomalies && !e.Anomaly {
			return false
		}
		return e.Tick >= *since
	}
	entries, err := readAuditDir(filepath.Join(*dataDir, "worlds", *worldID), keep)
	if err != nil {
		fmt.Fprintln(os.Stderr, "audit:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	for _, e := range entries {
		_ = enc.Encode(e)
	}
}

// readAuditDir reads every hourly audit file of a world in file-name order,
// which is chronological.
func readAuditDir(worldDir string, keep func(world.AuditEntry) bool) ([]world.AuditEntry, error) {
	dir := filepath.Join(worldDir, "audit")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "audit-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []world.AuditEntry
	for _, name := range names {
		got, err := persistlog.ReadAudit(filepath.Join(dir, name), keep)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, got...)
	}
	return out, nil
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "world_1", "world id")
	path := fs.String("path", "", "snapshot path (optional; defaults to latest)")
	_ = fs.Parse(args)

	p := strings.TrimSpace(*path)
	if p == "" {
		p = latestSnapshot(filepath.Join(*dataDir, "worlds", *worldID))
	}
	if p == "" {
		fmt.Fprintln(os.Stderr, "no snapshots found")
		os.Exit(2)
	}
	snap, err := snapshot.ReadSnapshot(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	_ = json.NewEncoder(os.Stdout).Encode(summarizeSnapshot(p, snap))
}

type snapshotSummary struct {
	Path          string           `json:"path"`
	WorldID       string           `json:"world_id"`
	Tick          uint64           `json:"tick"`
	Actors        int              `json:"actors"`
	Stations      int              `json:"stations"`
	LiveProcesses int              `json:"live_processes"`
	Processes     []processSummary `json:"processes,omitempty"`
}

type processSummary struct {
	StationID string `json:"station_id"`
	Slot      int    `json:"slot"`
	ID        string `json:"id"`
	RecipeID  string `json:"recipe_id"`
	Actor     string `json:"actor"`
	State     string `json:"state"`
	Progress  string `json:"progress"`
}

func summarizeSnapshot(path string, snap snapshot.SnapshotV1) snapshotSummary {
	out := snapshotSummary{
		Path:          path,
		WorldID:       snap.Header.WorldID,
		Tick:          snap.Header.Tick,
		Actors:        len(snap.Actors),
		Stations:      len(snap.Stations),
		LiveProcesses: snap.LiveProcesses(),
	}
	for _, st := range snap.Stations {
		for _, p := range st.Processes {
			out.Processes = append(out.Processes, processSummary{
				StationID: st.ID,
				Slot:      p.Slot,
				ID:        p.ID,
				RecipeID:  p.RecipeID,
				Actor:     p.Actor,
				State:     p.State,
				Progress:  fmt.Sprintf("%d/%d", p.Progress, p.Required),
			})
		}
	}
	return out
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
