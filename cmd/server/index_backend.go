package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"craftworks.ai/internal/persistence/indexdb"
	"craftworks.ai/internal/persistence/snapshot"
	"craftworks.ai/internal/sim/catalogs"
	"craftworks.ai/internal/sim/tuning"
	"craftworks.ai/internal/sim/world"
)

type runtimeIndex interface {
	world.AuditLogger
	Close() error
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
}

func openRuntimeIndex(worldDir, worldID string, disableDB bool, logger *log.Logger) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("CRAFT_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		dbPath := filepath.Join(worldDir, "index", "world.sqlite")
		return indexdb.OpenSQLite(dbPath)
	case "d1":
		endpoint := strings.TrimSpace(os.Getenv("CRAFT_INDEX_D1_INGEST_URL"))
		token := strings.TrimSpace(os.Getenv("CRAFT_INDEX_D1_TOKEN"))
		if endpoint == "" {
			return nil, fmt.Errorf("CRAFT_INDEX_BACKEND=d1 but CRAFT_INDEX_D1_INGEST_URL is empty")
		}
		idx, err := indexdb.OpenD1(indexdb.D1Config{
			Endpoint:      endpoint,
			Token:         token,
			WorldID:       worldID,
			BatchSize:     envInt("CRAFT_INDEX_D1_BATCH_SIZE", 128),
			FlushInterval: time.Duration(envInt("CRAFT_INDEX_D1_FLUSH_MS", 500)) * time.Millisecond,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported CRAFT_INDEX_BACKEND: %s", backend)
	}
}

func envInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envBool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// multiAuditLogger fans entries out to the JSONL audit log and the index.
type multiAuditLogger struct {
	a world.AuditLogger
	b world.AuditLogger
}

func (m multiAuditLogger) WriteAudit(entry world.AuditEntry) error {
	if m.a != nil {
		_ = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return nil
}
