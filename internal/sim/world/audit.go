package world

import "craftworks.ai/internal/sim/craft"

// Audit actions.
const (
	AuditCraft           = "CRAFT"
	AuditProcessStart    = "PROCESS_START"
	AuditProcessComplete = "PROCESS_COMPLETE"
	AuditProcessAbort    = "PROCESS_ABORT"
	AuditStationPut      = "STATION_PUT"
	AuditStationTake     = "STATION_TAKE"
)

type AuditEntry struct {
	Tick       uint64           `json:"tick"`
	Actor      string           `json:"actor"`
	Action     string           `json:"action"`
	StationID  string           `json:"station_id,omitempty"`
	RecipeID   string           `json:"recipe_id,omitempty"`
	ProcessID  string           `json:"process_id,omitempty"`
	Multiplier int              `json:"multiplier,omitempty"`
	Prefab     string           `json:"prefab,omitempty"`
	Count      int              `json:"count,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	Anomaly    bool             `json:"anomaly,omitempty"`
	Mutations  []craft.Mutation `json:"mutations,omitempty"`
}

func (w *World) audit(e AuditEntry) {
	if w.auditLogger == nil {
		return
	}
	if err := w.auditLogger.WriteAudit(e); err != nil {
		w.log.Printf("audit %s tick %d: %v", e.Action, e.Tick, err)
	}
}
