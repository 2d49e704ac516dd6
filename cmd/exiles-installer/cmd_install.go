package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/exileshud/exiles-installer/internal/engine"
)

func newInstallCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "install [entry-id...]",
		Short: "Install catalog entries without the interactive UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("name at least one entry id, or pass --all")
			}

			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			var selections []engine.Selection
			if all {
				for _, e := range a.cat.Entries() {
					selections = append(selections, engine.Selection{ID: e.ID})
				}
			} else {
				for _, id := range args {
					if _, ok := a.cat.Entry(id); !ok {
						return fmt.Errorf("entry %q is not in the catalog", id)
					}
					selections = append(selections, engine.Selection{ID: id})
				}
			}

			ctx, cancel := signalContext()
			defer cancel()

			summary := a.newEngine(engine.LogReporter{}).Run(ctx, selections)
			for _, o := range summary.Outcomes {
				fmt.Printf("%-12s %-24s %s\n", o.Status, o.EntryID, o.Detail)
			}
			fmt.Printf("\n%d succeeded, %d failed, %d skipped\n",
				summary.Succeeded, summary.Failed, summary.Skipped)
			if summary.Failed > 0 {
				return fmt.Errorf("%d entries failed", summary.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "install every catalog entry")
	return cmd
}
