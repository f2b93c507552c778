package recipes

import (
	"fmt"

	"craftworks.ai/internal/sim/catalogs"
	"craftworks.ai/internal/sim/craft"
	"craftworks.ai/internal/sim/tuning"
	"craftworks.ai/internal/sim/workstation"
)

// RegisterWorkstation registers one crafting factory per configured process
// type, then every shape family and plain station recipe of the catalog.
// Process types the catalog uses but tuning does not list get a factory
// with default work.
func RegisterWorkstation(reg *workstation.Registry, cat catalogs.WorkstationCatalog, t tuning.Tuning) error {
	for _, p := range t.ProcessTypes {
		if err := reg.RegisterProcessFactory(p.ID, workstation.CraftingFactory{WorkTicks: p.WorkTicks}); err != nil {
			return err
		}
	}
	for _, id := range cat.ProcessTypes() {
		if reg.HasType(id) {
			continue
		}
		if err := reg.RegisterProcessFactory(id, workstation.CraftingFactory{}); err != nil {
			return err
		}
	}

	for _, f := range cat.ShapeFamilies {
		recs, err := ExpandFamily(f)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			if err := reg.RegisterProcess(f.ProcessType, rec); err != nil {
				return err
			}
		}
	}
	for _, def := range cat.Recipes {
		rec, err := Build(def.RecipeDef, t.MaxMultiplier)
		if err != nil {
			return err
		}
		if err := reg.RegisterProcess(def.ProcessType, rec); err != nil {
			return err
		}
	}
	return nil
}

// Registries holds everything the engine needs after startup registration.
type Registries struct {
	Hand        *craft.Registry
	Workstation *workstation.Registry
}

// Setup builds both registries from loaded catalogs and tuning.
func Setup(cat *catalogs.Catalogs, t tuning.Tuning) (Registries, error) {
	hand := craft.NewRegistry()
	hand.SetCraftingDisabled(t.CraftingInHandDisabled)
	if err := RegisterHand(hand, cat.Hand.Defs, t.MaxMultiplier); err != nil {
		return Registries{}, fmt.Errorf("hand recipes: %w", err)
	}
	ws := workstation.NewRegistry()
	if err := RegisterWorkstation(ws, cat.Workstation, t); err != nil {
		return Registries{}, fmt.Errorf("workstation recipes: %w", err)
	}
	return Registries{Hand: hand, Workstation: ws}, nil
}
