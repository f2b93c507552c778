package recipes

import (
	"fmt"

	"craftworks.ai/internal/sim/catalogs"
	"craftworks.ai/internal/sim/craft"
)

// Build turns a definition into a recipe. Activators come first, then
// components, then tools, so presence checks run before anything is
// mutated. ceiling applies when the definition sets none.
func Build(def catalogs.RecipeDef, ceiling int) (*craft.Recipe, error) {
	var behaviors []craft.Behavior
	groups := []struct {
		tuples []string
		build  func(string, int) craft.Behavior
	}{
		{def.Activators, craft.Presence},
		{def.Components, craft.Consume},
		{def.Tools, craft.ReduceDurability},
	}
	for _, g := range groups {
		for _, s := range g.tuples {
			n, typ, err := ParseTuple(s)
			if err != nil {
				return nil, fmt.Errorf("recipe %s: %w", def.RecipeID, err)
			}
			behaviors = append(behaviors, g.build(typ, n))
		}
	}

	prefab, block := def.Result()
	count := def.ResultCount
	if count == 0 {
		count = 1
	}
	if def.MaxMultiplier > 0 {
		ceiling = def.MaxMultiplier
	}
	res := craft.ResultSpec{Prefab: prefab, Block: block, Count: count}
	if !block {
		res.Tool, res.Durability = def.Tool, def.Durability
	}
	return craft.NewRecipe(def.RecipeID, res, behaviors, craft.WithCeiling(ceiling))
}

// RegisterHand builds and registers craft-in-hand recipes in definition
// order.
func RegisterHand(reg *craft.Registry, defs []catalogs.RecipeDef, ceiling int) error {
	for _, def := range defs {
		rec, err := Build(def, ceiling)
		if err != nil {
			return err
		}
		if err := reg.Register(rec.ID(), rec); err != nil {
			return err
		}
	}
	return nil
}
