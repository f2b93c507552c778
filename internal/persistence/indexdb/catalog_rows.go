package indexdb

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"craftworks.ai/internal/sim/catalogs"
	"craftworks.ai/internal/sim/tuning"
)

type catalogRow struct {
	name   string
	digest string
	data   []byte
}

// catalogRows collects the raw recipe files plus the tuning values actually
// applied, each with its digest.
func catalogRows(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) []catalogRow {
	var rows []catalogRow
	read := func(name, file, digest string) {
		if configDir == "" || digest == "" {
			return
		}
		b, err := os.ReadFile(filepath.Join(configDir, file))
		if err != nil || len(b) == 0 {
			return
		}
		rows = append(rows, catalogRow{name: name, digest: digest, data: b})
	}
	if cats != nil {
		read("hand_recipes", "recipes.json", cats.Hand.Digest)
		read("workstation", "workstation.json", cats.Workstation.Digest)
	}

	// Tuning: store the values we actually apply (canonical JSON).
	if b, err := json.Marshal(tune); err == nil {
		rows = append(rows, catalogRow{name: "tuning", digest: sha256Hex(b), data: b})
	}
	return rows
}

// TuningDigest is the digest stored for the tuning catalog row.
func TuningDigest(tune tuning.Tuning) string {
	b, _ := json.Marshal(tune)
	return sha256Hex(b)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
