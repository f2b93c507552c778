package indexdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"craftworks.ai/internal/persistence/snapshot"
	"craftworks.ai/internal/sim/catalogs"
	"craftworks.ai/internal/sim/tuning"
	"craftworks.ai/internal/sim/world"
)

// D1Config configures the remote ingest backend: batches of index events
// POSTed as JSON to a D1 ingest worker.
type D1Config struct {
	Endpoint      string
	Token         string
	WorldID       string
	BatchSize     int
	FlushInterval time.Duration
	HTTPTimeout   time.Duration
	Logger        *log.Logger
}

type D1Index struct {
	cfg        D1Config
	httpClient *http.Client

	ch   chan d1Event
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
	drops  atomic.Uint64

	auditMu       sync.Mutex
	lastAuditTick uint64
	auditSeq      int
}

type d1Event struct {
	Kind    string `json:"kind"`
	WorldID string `json:"world_id"`
	Payload any    `json:"payload"`
}

type d1CraftPayload struct {
	Tick      uint64           `json:"tick"`
	Seq       int              `json:"seq"`
	Actor     string           `json:"actor"`
	Action    string           `json:"action"`
	StationID string           `json:"station_id,omitempty"`
	RecipeID  string           `json:"recipe_id,omitempty"`
	Count     int              `json:"count,omitempty"`
	Anomaly   bool             `json:"anomaly,omitempty"`
	Raw       world.AuditEntry `json:"raw"`
}

type d1SnapshotPayload struct {
	Tick          uint64 `json:"tick"`
	Path          string `json:"path"`
	Actors        int    `json:"actors"`
	Stations      int    `json:"stations"`
	LiveProcesses int    `json:"live_processes"`
}

type d1CatalogPayload struct {
	Name      string `json:"name"`
	Digest    string `json:"digest"`
	JSON      string `json:"json"`
	UpdatedAt string `json:"updated_at"`
}

func OpenD1(cfg D1Config) (*D1Index, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.WorldID = strings.TrimSpace(cfg.WorldID)
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("empty d1 ingest endpoint")
	}
	if cfg.WorldID == "" {
		return nil, fmt.Errorf("empty world id")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 128
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}

	d := &D1Index{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		ch:         make(chan d1Event, 32768),
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop()
	}()
	return d, nil
}

// Close flushes queued events and stops the sender.
func (d *D1Index) Close() error {
	if d == nil {
		return nil
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.ch)
		d.wg.Wait()
	})
	return nil
}

func (d *D1Index) WriteAudit(entry world.AuditEntry) error {
	if d == nil || d.closed.Load() {
		return nil
	}
	d.enqueue(d1Event{Kind: "craft", WorldID: d.cfg.WorldID, Payload: d1CraftPayload{
		Tick:      entry.Tick,
		Seq:       d.nextAuditSeq(entry.Tick),
		Actor:     entry.Actor,
		Action:    entry.Action,
		StationID: entry.StationID,
		RecipeID:  entry.RecipeID,
		Count:     entry.Count,
		Anomaly:   entry.Anomaly,
		Raw:       entry,
	}})
	return nil
}

func (d *D1Index) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if d == nil || d.closed.Load() {
		return
	}
	d.enqueue(d1Event{Kind: "snapshot", WorldID: d.cfg.WorldID, Payload: d1SnapshotPayload{
		Tick:          snap.Header.Tick,
		Path:          path,
		Actors:        len(snap.Actors),
		Stations:      len(snap.Stations),
		LiveProcesses: snap.LiveProcesses(),
	}})
}

func (d *D1Index) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if d == nil || d.closed.Load() {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, r := range catalogRows(configDir, cats, tune) {
		d.enqueue(d1Event{Kind: "catalog", WorldID: d.cfg.WorldID, Payload: d1CatalogPayload{
			Name:      r.name,
			Digest:    r.digest,
			JSON:      string(r.data),
			UpdatedAt: now,
		}})
	}
	return nil
}

func (d *D1Index) Drops() uint64 { return d.drops.Load() }

func (d *D1Index) nextAuditSeq(tick uint64) int {
	d.auditMu.Lock()
	defer d.auditMu.Unlock()
	if tick != d.lastAuditTick {
		d.lastAuditTick = tick
		d.auditSeq = 0
	}
	d.auditSeq++
	return d.auditSeq
}

func (d *D1Index) enqueue(ev d1Event) {
	select {
	case d.ch <- ev:
	default:
		d.drops.Add(1)
		d.printf("d1 index queue full; drop kind=%s world=%s", ev.Kind, ev.WorldID)
	}
}

func (d *D1Index) loop() {
	ticker := time.NewTicker(d.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]d1Event, 0, d.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := d.sendBatch(batch); err != nil {
			d.printf("d1 index flush failed batch=%d err=%v", len(batch), err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-d.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= d.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// sendBatch POSTs one batch, retrying with backoff up to three times.
func (d *D1Index) sendBatch(events []d1Event) error {
	body := struct {
		Events []d1Event `json:"events"`
	}{Events: events}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequest(http.MethodPost, d.cfg.Endpoint, bytes.NewReader(buf))
		if err != nil {
			return err
		}
		req.Header.Set("content-type", "application/json")
		if d.cfg.Token != "" {
			req.Header.Set("x-craft-index-token", d.cfg.Token)
		}

		resp, err := d.httpClient.Do(req)
		if err == nil {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
			err = fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		lastErr = err
		time.Sleep(time.Duration(100*(1<<attempt)) * time.Millisecond)
	}
	return lastErr
}

func (d *D1Index) printf(format string, args ...any) {
	if d != nil && d.cfg.Logger != nil {
		d.cfg.Logger.Printf(format, args...)
	}
}
