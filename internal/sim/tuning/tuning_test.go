package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRepoTuning(t *testing.T) {
	tu, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 5, tu.TickRateHz)
	assert.Equal(t, 5, tu.BatchMultiplier)
	assert.False(t, tu.CraftingInHandDisabled)
	require.Len(t, tu.ProcessTypes, 4)

	p, ok := tu.ProcessType("WoodAndStone:AdvancedWoodcrafting")
	require.True(t, ok)
	assert.Equal(t, 15, p.WorkTicks)
	assert.Equal(t, 2, p.Slots)

	require.NotEmpty(t, tu.StarterItems)
	axe := tu.StarterItems[len(tu.StarterItems)-1]
	assert.Equal(t, "axe", axe.Tool)
	assert.Equal(t, 32, axe.Durability)
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crafting_in_hand_disabled: true\n"), 0o644))

	tu, err := Load(path)
	require.NoError(t, err)
	assert.True(t, tu.CraftingInHandDisabled)
	assert.Equal(t, Defaults().TickRateHz, tu.TickRateHz)
	assert.Equal(t, 1, tu.WorkPerTick)
}

func TestLoadRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"zero tick rate":    "tick_rate_hz: 0\n",
		"negative ceiling":  "max_multiplier: -1\n",
		"duplicate process": "process_types:\n  - id: a\n  - id: a\n",
		"empty process id":  "process_types:\n  - work_ticks: 3\n",
		"empty starter":     "starter_items:\n  - item: x\n    count: 0\n",
		"bad yaml":          "tick_rate_hz: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tuning.yaml")
			require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
