package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/exileshud/exiles-installer/internal/catalog"
	"github.com/exileshud/exiles-installer/internal/engine"
	"github.com/exileshud/exiles-installer/internal/executor"
	"github.com/exileshud/exiles-installer/internal/fetch"
	"github.com/exileshud/exiles-installer/internal/github"
	"github.com/exileshud/exiles-installer/internal/logging"
	"github.com/exileshud/exiles-installer/internal/poststep"
	"github.com/exileshud/exiles-installer/internal/resolver"
	"github.com/exileshud/exiles-installer/internal/settings"
	"github.com/exileshud/exiles-installer/internal/system"
	"github.com/exileshud/exiles-installer/internal/update"
	"github.com/exileshud/exiles-installer/tui"
)

// Overridden at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

const (
	updateCheckURL   = "https://your-squad-vps.com/api/installer/version"
	updateCatalogURL = "https://your-squad-vps.com/api/apps.json"
	logFileName      = "exiles-installer.log"
)

var (
	flagCatalog  string
	flagSettings string
	flagScripts  string
	flagVerbose  bool
)

func main() {
	root := &cobra.Command{
		Use:     "exiles-installer",
		Short:   "Installer for the Elite Dangerous community tool ecosystem",
		Version: version,
		RunE:    runTUI,
	}
	root.PersistentFlags().StringVar(&flagCatalog, "catalog", "apps.json", "path to the apps catalog")
	root.PersistentFlags().StringVar(&flagSettings, "settings", "settings.json", "path to the settings file")
	root.PersistentFlags().StringVar(&flagScripts, "scripts", "scripts.toml", "path to the post-step script allow-list")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newInstallCmd(), newListCmd(), newValidateCmd(), newCheckUpdateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles everything a command needs after setup.
type app struct {
	cfg      settings.Settings
	cat      *catalog.Catalog
	registry *poststep.Registry
	close    func()
}

func setup() (*app, error) {
	cfg, err := settings.Load(flagSettings)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if flagVerbose {
		level = "debug"
	}
	closeLog, err := logging.Setup(level, filepath.Join(cfg.DownloadDirectory, logFileName))
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(flagCatalog)
	if err != nil {
		closeLog()
		return nil, err
	}

	registry := poststep.EmptyRegistry()
	if _, statErr := os.Stat(flagScripts); statErr == nil {
		registry, err = poststep.LoadRegistry(flagScripts)
		if err != nil {
			closeLog()
			return nil, err
		}
	}

	if err := system.EnsureDownloadDir(cfg.DownloadDirectory); err != nil {
		closeLog()
		return nil, fmt.Errorf("create download directory: %w", err)
	}

	return &app{cfg: cfg, cat: cat, registry: registry, close: closeLog}, nil
}

func (a *app) newEngine(rep engine.Reporter) *engine.Engine {
	home, _ := os.UserHomeDir()
	return engine.New(engine.Config{
		Catalog:   a.cat,
		Resolver:  resolver.New(github.NewClient("")),
		Fetcher:   fetch.New(a.cfg.DownloadDirectory, a.cfg.MaxConcurrentDownloads, a.cfg.DownloadTimeout),
		Executors: executor.NewSet(a.cfg.DownloadDirectory),
		PostSteps: poststep.NewRunner(a.registry, filepath.Join(home, "Desktop")),
		Settings:  a.cfg,
		Reporter:  rep,
	})
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	var notes []string
	checker := update.NewChecker(updateCheckURL, updateCatalogURL, version)
	if info, err := checker.Check(ctx, a.cat.Metadata.Updated); err == nil {
		if info.InstallerOutdated {
			notes = append(notes, fmt.Sprintf("installer update available: %s (running %s)", info.LatestVersion, version))
		}
		if info.CatalogOutdated {
			notes = append(notes, "a newer apps catalog is available — run `exiles-installer check-update --refresh-catalog`")
		}
	}

	run := func(ctx context.Context, rep engine.Reporter, selections []engine.Selection) {
		a.newEngine(rep).Run(ctx, selections)
	}
	model := tui.New(ctx, a.cat, run, notes)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}
