package recipes

import (
	"fmt"

	"craftworks.ai/internal/sim/catalogs"
	"craftworks.ai/internal/sim/craft"
)

// Shape scales a full block recipe into one block shape.
type Shape struct {
	Name       string
	Ingredient int
	Result     int
	Durability int
}

// Shapes is the fixed set of block shapes, in registration order.
var Shapes = []Shape{
	{"Stair", 3, 4, 2},
	{"Slope", 1, 2, 2},
	{"UpperHalfSlope", 1, 2, 2},
	{"SlopeCorner", 1, 2, 2},
	{"SteepSlope", 1, 1, 2},
	{"QuarterSlope", 1, 8, 2},
	{"HalfBlock", 1, 2, 1},
	{"HalfSlope", 1, 4, 2},
	{"HalfSlopeCorner", 1, 6, 1},
	{"PillarTop", 1, 1, 2},
	{"Pillar", 1, 1, 2},
	{"PillarBase", 1, 1, 2},
}

// ShapeResult is the block id of a shape variant.
func ShapeResult(blockPrefix, shape string) string {
	return blockPrefix + ":Engine:" + shape
}

// ExpandFamily returns the full block recipe followed by one recipe per
// shape, unless the family is full-block only.
func ExpandFamily(f catalogs.ShapeFamilyDef) ([]*craft.Recipe, error) {
	n, ingredient, err := ParseTuple(f.Ingredient)
	if err != nil {
		return nil, fmt.Errorf("family %s: ingredient: %w", f.RecipePrefix, err)
	}
	d, tool, err := ParseTuple(f.Tool)
	if err != nil {
		return nil, fmt.Errorf("family %s: tool: %w", f.RecipePrefix, err)
	}

	full, err := craft.NewRecipe(f.RecipePrefix,
		craft.ResultSpec{Prefab: f.BlockResult, Block: true, Count: f.ResultCount},
		[]craft.Behavior{craft.Consume(ingredient, n), craft.ReduceDurability(tool, d)})
	if err != nil {
		return nil, err
	}
	out := []*craft.Recipe{full}
	if f.FullBlockOnly {
		return out, nil
	}
	for _, s := range Shapes {
		rec, err := craft.NewRecipe(f.RecipePrefix+s.Name,
			craft.ResultSpec{Prefab: ShapeResult(f.BlockResult, s.Name), Block: true, Count: f.ResultCount * s.Result},
			[]craft.Behavior{craft.Consume(ingredient, n*s.Ingredient), craft.ReduceDurability(tool, d*s.Durability)})
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
