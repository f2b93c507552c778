package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"craftworks.ai/internal/sim/inventory"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	CraftingInHandDisabled bool `yaml:"crafting_in_hand_disabled"`
	MaxMultiplier          int  `yaml:"max_multiplier"`
	BatchMultiplier        int  `yaml:"batch_multiplier"`
	WorkPerTick            int  `yaml:"work_per_tick"`

	ProcessTypes []ProcessType     `yaml:"process_types"`
	StarterItems []inventory.Stack `yaml:"starter_items"`
}

// ProcessType configures the factory and the station layout of one
// workstation process type.
type ProcessType struct {
	ID        string `yaml:"id"`
	WorkTicks int    `yaml:"work_ticks"`
	Slots     int    `yaml:"slots"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         5,
		SnapshotEveryTicks: 3000,
		BatchMultiplier:    5,
		WorkPerTick:        1,
	}
}

// Load reads path over Defaults; fields absent from the file keep their
// default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be > 0")
	}
	if t.MaxMultiplier < 0 || t.BatchMultiplier < 0 || t.WorkPerTick < 0 {
		return fmt.Errorf("max_multiplier, batch_multiplier and work_per_tick must be >= 0")
	}
	seen := map[string]bool{}
	for _, p := range t.ProcessTypes {
		if p.ID == "" {
			return fmt.Errorf("process_types: empty id")
		}
		if seen[p.ID] {
			return fmt.Errorf("process_types: duplicate id %q", p.ID)
		}
		seen[p.ID] = true
		if p.WorkTicks < 0 || p.Slots < 0 {
			return fmt.Errorf("process_types %s: negative work_ticks or slots", p.ID)
		}
	}
	for _, s := range t.StarterItems {
		if s.Item == "" || s.Count <= 0 {
			return fmt.Errorf("starter_items: %q x%d", s.Item, s.Count)
		}
	}
	return nil
}

func (t Tuning) ProcessType(id string) (ProcessType, bool) {
	for _, p := range t.ProcessTypes {
		if p.ID == id {
			return p, true
		}
	}
	return ProcessType{}, false
}
