package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	persistlog "craftworks.ai/internal/persistence/log"
	"craftworks.ai/internal/sim/world"
)

var fixtureConfigs = filepath.Join("testdata", "configs")

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestPlanText(t *testing.T) {
	out, err := execute(t, "plan", "--configs", fixtureConfigs, "--inventory", filepath.Join("testdata", "inventory.yaml"))
	require.NoError(t, err)
	golden(t).Assert(t, "plan_text", []byte(out))
}

func TestPlanJSON(t *testing.T) {
	out, err := execute(t, "plan", "--format", "json", "--configs", fixtureConfigs, "--inventory", filepath.Join("testdata", "inventory.yaml"))
	require.NoError(t, err)
	golden(t).Assert(t, "plan_json", []byte(out))
}

func TestPlanHandDisabled(t *testing.T) {
	dir := t.TempDir()
	tune := []byte("tick_rate_hz: 5\ncrafting_in_hand_disabled: true\nprocess_types:\n  - id: Test:Bench\n    work_ticks: 5\n    slots: 1\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tuning.yaml"), tune, 0o644))

	out, err := execute(t, "plan", "--format", "json", "--configs", fixtureConfigs,
		"--tuning", filepath.Join(dir, "tuning.yaml"),
		"--inventory", filepath.Join("testdata", "inventory.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   Plan   `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.HandDisabled)
	require.Len(t, resp.Data.Entries, 1, "workstation recipes still plan")
	assert.Equal(t, "Test:Bench", resp.Data.Entries[0].Context)
}

func TestPlanEmptyInventory(t *testing.T) {
	inv := filepath.Join(t.TempDir(), "inv.yaml")
	require.NoError(t, os.WriteFile(inv, []byte("actor: nobody\nitems: []\n"), 0o644))
	out, err := execute(t, "plan", "--configs", fixtureConfigs, "--inventory", inv)
	require.NoError(t, err)
	assert.Equal(t, "actor: nobody\nno matching recipes\n", out)
}

func TestPlanMissingInventory(t *testing.T) {
	_, err := execute(t, "plan", "--configs", fixtureConfigs, "--inventory", "does-not-exist.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "validate", "--configs", fixtureConfigs)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ configs valid")
	assert.Contains(t, out, "hand recipes: 3 (crafting in hand enabled)")
	assert.Contains(t, out, "Test:Bench: 2 recipes, work_ticks=5, slots=1")
}

func TestValidateRepoConfigsJSON(t *testing.T) {
	out, err := execute(t, "validate", "--format", "json", "--configs", filepath.Join("..", "..", "configs"))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Positive(t, resp.Data.HandRecipes)
	assert.NotEmpty(t, resp.Data.ProcessTypes)
	assert.Len(t, resp.Data.Digests, 3)
}

func TestValidateRejectsBrokenCatalog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "recipes.json"), []byte(`[{"recipe_id":"x","item_result":"y","components":["zero*log"]}]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tuning.yaml"), []byte("tick_rate_hz: 5\n"), 0o644))

	out, err := execute(t, "validate", "--configs", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ invalid configs")
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "validate", "--format", "xml", "--configs", fixtureConfigs)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestAuditFilters(t *testing.T) {
	worldDir := t.TempDir()
	l := persistlog.NewAuditLogger(worldDir)
	require.NoError(t, l.WriteAudit(world.AuditEntry{Tick: 3, Actor: "A1", Action: world.AuditCraft, RecipeID: "WoodAndStone:Plank", Multiplier: 2, Prefab: "WoodAndStone:plank", Count: 8}))
	require.NoError(t, l.WriteAudit(world.AuditEntry{Tick: 4, Actor: "A2", Action: world.AuditCraft, RecipeID: "WoodAndStone:Plank", Multiplier: 1}))
	require.NoError(t, l.WriteAudit(world.AuditEntry{Tick: 9, Actor: "A1", Action: world.AuditProcessAbort, StationID: "S", Reason: "inputs no longer satisfy recipe"}))
	require.NoError(t, l.Close())

	files, err := filepath.Glob(filepath.Join(worldDir, "audit", "*.jsonl.zst"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	args := append([]string{"audit", "--actor", "A1"}, files...)
	out, err := execute(t, args...)
	require.NoError(t, err)
	assert.Equal(t,
		"tick=3 actor=A1 action=CRAFT recipe=WoodAndStone:Plank x2 output=WoodAndStone:plank x8\n"+
			"tick=9 actor=A1 action=PROCESS_ABORT station=S reason=\"inputs no longer satisfy recipe\"\n",
		out)

	args = append([]string{"audit", "--format", "json", "--action", "process_abort"}, files...)
	out, err = execute(t, args...)
	require.NoError(t, err)
	var resp struct {
		Data []world.AuditEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, uint64(9), resp.Data[0].Tick)
}
