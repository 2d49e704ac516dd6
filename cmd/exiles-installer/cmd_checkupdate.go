package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/exileshud/exiles-installer/internal/catalog"
	"github.com/exileshud/exiles-installer/internal/update"
)

func newCheckUpdateCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "check-update",
		Short: "Check the squad server for installer and catalog updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			updated := ""
			if cat, err := catalog.Load(flagCatalog); err == nil {
				updated = cat.Metadata.Updated
			}

			ctx, cancel := signalContext()
			defer cancel()

			checker := update.NewChecker(updateCheckURL, updateCatalogURL, version)
			info, err := checker.Check(ctx, updated)
			if err != nil {
				return err
			}

			if info.InstallerOutdated {
				fmt.Printf("installer update available: %s (running %s)\n", info.LatestVersion, info.CurrentVersion)
			} else {
				fmt.Printf("installer up to date (%s)\n", info.CurrentVersion)
			}

			switch {
			case info.CatalogOutdated && refresh:
				if err := checker.RefreshCatalog(ctx, flagCatalog); err != nil {
					return err
				}
				fmt.Printf("catalog refreshed (%s)\n", info.CatalogUpdated)
			case info.CatalogOutdated:
				fmt.Printf("catalog update available (%s) — pass --refresh-catalog to download\n", info.CatalogUpdated)
			default:
				fmt.Println("catalog up to date")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh-catalog", false, "download the latest catalog, keeping a backup of the old one")
	return cmd
}
