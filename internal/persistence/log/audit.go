package log

import (
	"encoding/json"
	"path/filepath"

	"craftworks.ai/internal/sim/world"
)

// AuditLogger writes world audit entries as compressed JSONL under
// <worldDir>/audit.
type AuditLogger struct{ w *JSONLZstdWriter }

func NewAuditLogger(worldDir string) *AuditLogger {
	return &AuditLogger{w: NewJSONLZstdWriter(filepath.Join(worldDir, "audit"), "audit")}
}

func (l *AuditLogger) WriteAudit(v world.AuditEntry) error { return l.w.Write(v) }
func (l *AuditLogger) Close() error                        { return l.w.Close() }

// ReadAudit returns the entries of one audit file, keeping those accepted
// by keep (nil keeps everything).
func ReadAudit(path string, keep func(world.AuditEntry) bool) ([]world.AuditEntry, error) {
	var out []world.AuditEntry
	err := ReadJSONL(path, func(line []byte) error {
		var e world.AuditEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		if keep == nil || keep(e) {
			out = append(out, e)
		}
		return nil
	})
	return out, err
}
