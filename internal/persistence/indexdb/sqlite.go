package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"craftworks.ai/internal/persistence/snapshot"
	"craftworks.ai/internal/sim/catalogs"
	"craftworks.ai/internal/sim/tuning"
	"craftworks.ai/internal/sim/world"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropAudit    atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqAudit reqKind = iota + 1
	reqSnapshot
	reqSync
)

type req struct {
	kind reqKind

	audit    world.AuditEntry
	snapshot snapshotRow
	done     chan struct{}
}

type snapshotRow struct {
	Tick          uint64
	Path          string
	Actors        int
	Stations      int
	LiveProcesses int
}

// Stats reports the writer queue state; drops happen when the writer
// falls behind.
type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropAuditTotal    uint64 `json:"drop_audit_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// High buffer: allow bursty audit writes (batch crafts, many stations) without stalling the world loop.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS crafts (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			station_id TEXT,
			recipe_id TEXT,
			process_id TEXT,
			multiplier INTEGER NOT NULL,
			prefab TEXT,
			count INTEGER NOT NULL,
			reason TEXT,
			anomaly INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_crafts_actor_tick ON crafts(actor, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_crafts_recipe_tick ON crafts(recipe_id, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			actors INTEGER NOT NULL,
			stations INTEGER NOT NULL,
			live_processes INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropAudit.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Tick:          snap.Header.Tick,
		Path:          path,
		Actors:        len(snap.Actors),
		Stations:      len(snap.Stations),
		LiveProcesses: snap.LiveProcesses(),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// Sync blocks until every write queued before it is committed.
func (s *SQLiteIndex) Sync(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqSync, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropAuditTotal:    s.dropAudit.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	rows := catalogRows(configDir, cats, tune)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.name, r.digest, string(r.data), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CatalogDigest returns the stored digest of a catalog row.
func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, bool, error) {
	var digest string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name = ?`, name).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return digest, true, nil
}

// CraftsByActor returns the most recent audit entries of actor, newest
// first. limit <= 0 means 100.
func (s *SQLiteIndex) CraftsByActor(ctx context.Context, actor string, limit int) ([]world.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT raw_json FROM crafts WHERE actor = ? ORDER BY tick DESC, seq DESC LIMIT ?`, actor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []world.AuditEntry
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var e world.AuditEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the path of the newest recorded snapshot.
func (s *SQLiteIndex) LatestSnapshot(ctx context.Context) (tick uint64, path string, ok bool, err error) {
	var t int64
	err = s.db.QueryRowContext(ctx, `SELECT tick, path FROM snapshots ORDER BY tick DESC LIMIT 1`).Scan(&t, &path)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, err
	}
	return uint64(t), path, true, nil
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertCraft, _ := s.db.Prepare(`INSERT OR REPLACE INTO crafts(tick,seq,actor,action,station_id,recipe_id,process_id,multiplier,prefab,count,reason,anomaly,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,actors,stations,live_processes) VALUES(?,?,?,?,?)`)
	defer func() {
		if insertCraft != nil {
			_ = insertCraft.Close()
		}
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastAuditTick uint64
		auditSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	// Readers share the single connection, so an idle open tx must not
	// outlive commitMaxWait.
	ticker := time.NewTicker(commitMaxWait / 4)
	defer ticker.Stop()

	for {
		var r req
		select {
		case <-ticker.C:
			flushIfNeeded()
			continue
		case rr, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			r = rr
		}
		if r.kind == reqSync {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqAudit:
			a := r.audit
			if a.Tick != lastAuditTick {
				lastAuditTick = a.Tick
				auditSeq = 0
			}
			seq := auditSeq
			auditSeq++
			raw, _ := json.Marshal(a)
			anomaly := 0
			if a.Anomaly {
				anomaly = 1
			}
			if insertCraft != nil {
				if _, err := tx.Stmt(insertCraft).Exec(
					int64(a.Tick),
					seq,
					a.Actor,
					a.Action,
					a.StationID,
					a.RecipeID,
					a.ProcessID,
					a.Multiplier,
					a.Prefab,
					a.Count,
					a.Reason,
					anomaly,
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(
					int64(sn.Tick),
					sn.Path,
					sn.Actors,
					sn.Stations,
					sn.LiveProcesses,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}
}
