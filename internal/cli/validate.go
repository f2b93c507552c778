package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"craftworks.ai/internal/persistence/indexdb"
)

// ValidationResult summarizes a config directory that loaded cleanly.
type ValidationResult struct {
	Configs                string              `json:"configs"`
	HandRecipes            int                 `json:"hand_recipes"`
	CraftingInHandDisabled bool                `json:"crafting_in_hand_disabled,omitempty"`
	ProcessTypes           []ProcessTypeResult `json:"process_types"`
	Digests                map[string]string   `json:"digests"`
}

type ProcessTypeResult struct {
	ID        string `json:"id"`
	Recipes   int    `json:"recipes"`
	WorkTicks int    `json:"work_ticks"`
	Slots     int    `json:"slots"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate recipe catalogs and tuning",
		Long: `Load recipes.json, workstation.json and tuning.yaml, check them against
their schemas and register every recipe, exactly as the server does at
startup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd.OutOrStdout())
		},
	}
}

func runValidate(opts *RootOptions, w io.Writer) error {
	f := &OutputFormatter{Format: opts.Format, Writer: w}
	eng, err := loadEngine(opts)
	if err != nil {
		return f.Fail(ExitFailure, "invalid configs", err)
	}

	res := ValidationResult{
		Configs:                opts.Configs,
		HandRecipes:            eng.regs.Hand.Len(),
		CraftingInHandDisabled: eng.regs.Hand.CraftingDisabled(),
		Digests: map[string]string{
			"hand_recipes": eng.cats.Hand.Digest,
			"workstation":  eng.cats.Workstation.Digest,
			"tuning":       indexdb.TuningDigest(eng.tune),
		},
	}
	for _, id := range eng.regs.Workstation.Types() {
		p := ProcessTypeResult{ID: id, Recipes: len(eng.regs.Workstation.Recipes(id))}
		if cfg, ok := eng.tune.ProcessType(id); ok {
			p.WorkTicks, p.Slots = cfg.WorkTicks, cfg.Slots
		}
		res.ProcessTypes = append(res.ProcessTypes, p)
	}

	return f.Success(res, func(w io.Writer) error {
		fmt.Fprintf(w, "✓ configs valid: %s\n", res.Configs)
		state := "enabled"
		if res.CraftingInHandDisabled {
			state = "disabled"
		}
		fmt.Fprintf(w, "hand recipes: %d (crafting in hand %s)\n", res.HandRecipes, state)
		for _, p := range res.ProcessTypes {
			fmt.Fprintf(w, "%s: %d recipes, work_ticks=%d, slots=%d\n", p.ID, p.Recipes, p.WorkTicks, p.Slots)
		}
		return nil
	})
}
