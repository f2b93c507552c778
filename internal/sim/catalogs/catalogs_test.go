package catalogs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRepoConfigs(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "..", "configs"))
	require.NoError(t, err)

	require.NotEmpty(t, c.Hand.Defs)
	assert.Len(t, c.Hand.Digest, 64)
	assert.Equal(t, "WoodAndStone:CrudeAxe", c.Hand.Defs[0].RecipeID, "file order kept")

	torch, ok := c.Hand.ByID["WoodAndStone:Torch"]
	require.True(t, ok)
	prefab, block := torch.Result()
	assert.Equal(t, "Core:Torch", prefab)
	assert.True(t, block)
	assert.Equal(t, 16, torch.MaxMultiplier)

	require.Len(t, c.Workstation.ShapeFamilies, 4)
	assert.Equal(t, "2*WoodAndStone:plank", c.Workstation.ShapeFamilies[0].Ingredient)
	require.NotEmpty(t, c.Workstation.Recipes)
	assert.Equal(t, "WoodAndStone:BasicWoodcrafting", c.Workstation.Recipes[0].ProcessType)
	assert.Equal(t, "Core:Plank", c.Workstation.Recipes[0].BlockResult)
	assert.Equal(t, []string{
		"WoodAndStone:AdvancedWoodcrafting",
		"WoodAndStone:BasicStonecrafting",
		"WoodAndStone:AdvancedStonecrafting",
		"WoodAndStone:BasicWoodcrafting",
	}, c.Workstation.ProcessTypes())
}

func TestLoadWithoutWorkstationFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "recipes.json"),
		[]byte(`[{"recipe_id":"r","item_result":"x","components":["1*y"]}]`), 0o644))

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, c.Hand.Defs, 1)
	assert.Empty(t, c.Workstation.ShapeFamilies)
	assert.Len(t, c.Workstation.Digest, 64)

	_, err = Load(t.TempDir())
	assert.Error(t, err, "recipes.json is required")
}

func TestDecodeHandRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"no result":      `[{"recipe_id":"r","components":["1*y"]}]`,
		"bad tuple":      `[{"recipe_id":"r","item_result":"x","components":["y"]}]`,
		"missing count":  `[{"recipe_id":"r","item_result":"x","tools":["*axe"]}]`,
		"unknown field":  `[{"recipe_id":"r","item_result":"x","colour":"red"}]`,
		"zero result":    `[{"recipe_id":"r","item_result":"x","result_count":0}]`,
		"duplicate id":   `[{"recipe_id":"r","item_result":"x"},{"recipe_id":"r","item_result":"y"}]`,
		"not an array":   `{"recipe_id":"r"}`,
		"malformed json": `[{`,
	} {
		t.Run(name, func(t *testing.T) {
			var out HandCatalog
			assert.Error(t, decodeHand([]byte(doc), &out))
		})
	}
}

func TestDecodeWorkstationRejects(t *testing.T) {
	var out WorkstationCatalog
	err := decodeWorkstation([]byte(`{"shape_families":[{"process_type":"p","recipe_prefix":"r","ingredient":"2*x","tool":"axe","block_result":"b","result_count":1}]}`), &out)
	assert.Error(t, err)

	err = decodeWorkstation([]byte(`{"recipes":[{"process_type":"p","recipe_id":"r","item_result":"x","components":["2*y"]}]}`), &out)
	require.NoError(t, err)
	assert.Equal(t, "p", out.Recipes[0].ProcessType)
	assert.Equal(t, []string{"2*y"}, out.Recipes[0].Components)
}
