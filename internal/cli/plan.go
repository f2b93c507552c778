package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"craftworks.ai/internal/sim/craft"
	"craftworks.ai/internal/sim/inventory"
)

// InventoryFile is the YAML input of the plan command.
type InventoryFile struct {
	Actor string            `yaml:"actor"`
	Items []inventory.Stack `yaml:"items"`
}

// Plan lists every recipe the inventory can craft right now.
type Plan struct {
	Actor        string      `json:"actor"`
	HandDisabled bool        `json:"hand_disabled,omitempty"`
	Entries      []PlanEntry `json:"entries"`
}

// PlanEntry is one craftable recipe. Context is "hand" or a workstation
// process type.
type PlanEntry struct {
	Context       string `json:"context"`
	RecipeID      string `json:"recipe_id"`
	Result        string `json:"result"`
	Block         bool   `json:"block,omitempty"`
	ResultCount   int    `json:"result_count"`
	MaxMultiplier int    `json:"max_multiplier"`
	Yield         int    `json:"yield"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	var inventoryPath string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "List the recipes an inventory can craft",
		Long: `Read an inventory YAML file and list every recipe it satisfies, in hand
and at each workstation process type, with the largest multiplier and the
resulting yield.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(rootOpts, inventoryPath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&inventoryPath, "inventory", "", "inventory YAML file (required)")
	_ = cmd.MarkFlagRequired("inventory")
	return cmd
}

func runPlan(opts *RootOptions, inventoryPath string, w io.Writer) error {
	f := &OutputFormatter{Format: opts.Format, Writer: w}
	eng, err := loadEngine(opts)
	if err != nil {
		return f.Fail(ExitFailure, "invalid configs", err)
	}
	inv, err := readInventory(inventoryPath)
	if err != nil {
		return f.Fail(ExitCommandError, "read inventory", err)
	}
	in, err := fill(inv.Items)
	if err != nil {
		return f.Fail(ExitCommandError, "read inventory", err)
	}

	plan := Plan{Actor: inv.Actor, Entries: []PlanEntry{}}
	hand, err := eng.regs.Hand.FindMatching(inv.Actor, in)
	switch {
	case errors.Is(err, craft.ErrFeatureDisabled):
		plan.HandDisabled = true
	case err != nil:
		return f.Fail(ExitFailure, "match hand recipes", err)
	default:
		for rec := range hand {
			plan.Entries = append(plan.Entries, planEntry("hand", rec, inv.Actor, in))
		}
	}
	for _, typ := range eng.regs.Workstation.Types() {
		for rec := range eng.regs.Workstation.FindMatching(typ, inv.Actor, in) {
			plan.Entries = append(plan.Entries, planEntry(typ, rec, inv.Actor, in))
		}
	}

	return f.Success(plan, func(w io.Writer) error { return writePlanText(w, plan) })
}

func planEntry(context string, rec *craft.Recipe, actor string, in inventory.Inputs) PlanEntry {
	res := rec.Result()
	m := rec.MaxMultiplier(actor, in)
	return PlanEntry{
		Context:       context,
		RecipeID:      rec.ID(),
		Result:        res.Prefab,
		Block:         res.Block,
		ResultCount:   res.Count,
		MaxMultiplier: m,
		Yield:         res.Count * m,
	}
}

func writePlanText(w io.Writer, plan Plan) error {
	fmt.Fprintf(w, "actor: %s\n", plan.Actor)
	if plan.HandDisabled {
		fmt.Fprintln(w, "crafting in hand: disabled")
	}
	if len(plan.Entries) == 0 {
		fmt.Fprintln(w, "no matching recipes")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CONTEXT\tRECIPE\tRESULT\tPER CRAFT\tMAX\tYIELD")
	for _, e := range plan.Entries {
		result := e.Result
		if e.Block {
			result += " [block]"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n", e.Context, e.RecipeID, result, e.ResultCount, e.MaxMultiplier, e.Yield)
	}
	return tw.Flush()
}

func readInventory(path string) (InventoryFile, error) {
	var inv InventoryFile
	raw, err := os.ReadFile(path)
	if err != nil {
		return inv, err
	}
	if err := yaml.Unmarshal(raw, &inv); err != nil {
		return inv, fmt.Errorf("%s: %w", path, err)
	}
	if inv.Actor == "" {
		inv.Actor = "planner"
	}
	return inv, nil
}

// fill deposits items into a container sized to hold every stack.
func fill(items []inventory.Stack) (*inventory.Container, error) {
	c := inventory.NewContainer(max(36, len(items)))
	for _, s := range items {
		if _, err := c.Deposit(s); err != nil {
			return nil, fmt.Errorf("%s x%d: %w", s.Item, s.Count, err)
		}
	}
	return c, nil
}
