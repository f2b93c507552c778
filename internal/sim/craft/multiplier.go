package craft

// Preset is how a client asks for a multiplier without knowing the maximum.
type Preset string

const (
	PresetSingle Preset = "SINGLE"
	PresetBatch  Preset = "BATCH"
	PresetAll    Preset = "ALL"
)

const DefaultBatch = 5

// Resolve turns the preset into a concrete multiplier for a recipe whose
// current maximum is limit. It returns 0 when limit is 0.
func (p Preset) Resolve(limit, batch int) int {
	if limit <= 0 {
		return 0
	}
	if batch <= 0 {
		batch = DefaultBatch
	}
	switch p {
	case PresetAll:
		return limit
	case PresetBatch:
		return min(limit, batch)
	default:
		return 1
	}
}
