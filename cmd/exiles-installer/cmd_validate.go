package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/exileshud/exiles-installer/internal/catalog"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the catalog and report every problem",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(flagCatalog)
			if err != nil {
				var ve *catalog.ValidationError
				if errors.As(err, &ve) {
					for _, p := range ve.Problems {
						fmt.Println(p)
					}
					return fmt.Errorf("%d invalid entries", len(ve.Problems))
				}
				return err
			}
			fmt.Printf("catalog ok: %d entries, %d games\n", cat.Len(), len(cat.Games()))
			return nil
		},
	}
}
