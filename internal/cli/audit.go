package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	persistlog "craftworks.ai/internal/persistence/log"
	"craftworks.ai/internal/sim/world"
)

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	var actor, action string
	var anomalies bool
	cmd := &cobra.Command{
		Use:   "audit <file.jsonl.zst>...",
		Short: "Print craft audit entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keep := func(e world.AuditEntry) bool {
				if actor != "" && e.Actor != actor {
					return false
				}
				if action != "" && !strings.EqualFold(e.Action, action) {
					return false
				}
				return !anomalies || e.Anomaly
			}
			return runAudit(rootOpts, args, keep, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "only entries of this actor")
	cmd.Flags().StringVar(&action, "action", "", "only entries with this action (CRAFT, PROCESS_COMPLETE, ...)")
	cmd.Flags().BoolVar(&anomalies, "anomalies", false, "only commit anomalies")
	return cmd
}

func runAudit(opts *RootOptions, files []string, keep func(world.AuditEntry) bool, w io.Writer) error {
	f := &OutputFormatter{Format: opts.Format, Writer: w}
	entries := []world.AuditEntry{}
	for _, path := range files {
		got, err := persistlog.ReadAudit(path, keep)
		if err != nil {
			return f.Fail(ExitCommandError, "read audit", err)
		}
		entries = append(entries, got...)
	}
	return f.Success(entries, func(w io.Writer) error {
		for _, e := range entries {
			fmt.Fprintf(w, "tick=%d actor=%s action=%s", e.Tick, e.Actor, e.Action)
			if e.StationID != "" {
				fmt.Fprintf(w, " station=%s", e.StationID)
			}
			if e.RecipeID != "" {
				fmt.Fprintf(w, " recipe=%s x%d", e.RecipeID, e.Multiplier)
			}
			if e.Prefab != "" {
				fmt.Fprintf(w, " output=%s x%d", e.Prefab, e.Count)
			}
			if e.Reason != "" {
				fmt.Fprintf(w, " reason=%q", e.Reason)
			}
			if e.Anomaly {
				fmt.Fprint(w, " ANOMALY")
			}
			fmt.Fprintln(w)
		}
		return nil
	})
}
