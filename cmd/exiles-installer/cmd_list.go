package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var game string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			entries := a.cat.Entries()
			if game != "" {
				entries = a.cat.EntriesFor(game)
			}
			for _, e := range entries {
				req := "optional"
				if !e.Optional {
					req = "required"
				}
				fmt.Printf("%-24s %-8s %-10s %-12s %s\n", e.ID, e.InstallType, req, e.Category, e.Name)
			}
			fmt.Printf("\n%d entries", len(entries))
			if a.cat.Metadata.Updated != "" {
				fmt.Printf(" (catalog updated %s)", a.cat.Metadata.Updated)
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().StringVar(&game, "game", "", "only entries for this game id")
	return cmd
}
