// Package tui is the interactive front end: a selector over the catalog
// and a live progress screen. It talks to the engine purely through the
// Reporter interface, the same one the headless reporters implement.
package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/exileshud/exiles-installer/internal/catalog"
	"github.com/exileshud/exiles-installer/internal/engine"
	"github.com/exileshud/exiles-installer/internal/system"
)

var styleNotice = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

type screen int

const (
	screenSelector screen = iota
	screenPreflight
	screenProgress
)

// RunBatch starts an engine batch. Split out so the model doesn't hold
// the engine itself, just this closure; tests can stub it.
type RunBatch func(ctx context.Context, rep engine.Reporter, selections []engine.Selection)

// RootModel is the top-level bubbletea model.
type RootModel struct {
	screen    screen
	selector  selectorModel
	preflight preflightModel
	progress  progressModel

	cat   *catalog.Catalog
	run   RunBatch
	ctx   context.Context
	notes []string
}

type preflightModel struct {
	warnings []string
}

func (m preflightModel) View() string {
	var sb strings.Builder
	sb.WriteString(styleNotice.Render("\n  Before installing:\n\n"))
	for _, w := range m.warnings {
		sb.WriteString(styleNotice.Render("    • "+w) + "\n")
	}
	sb.WriteString("\n  Press enter to continue anyway, q to quit.\n")
	return sb.String()
}

// New creates the root TUI model. notes are shown above the selector
// (e.g. an available update).
func New(ctx context.Context, cat *catalog.Catalog, run RunBatch, notes []string) RootModel {
	return RootModel{
		screen:   screenSelector,
		selector: newSelectorModel(cat.Entries()),
		cat:      cat,
		run:      run,
		ctx:      ctx,
		notes:    notes,
	}
}

func (m RootModel) Init() tea.Cmd {
	return m.selector.Init()
}

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.screen {
	case screenSelector:
		next, cmd := m.selector.Update(msg)
		m.selector = next.(selectorModel)
		if m.selector.quit {
			return m, tea.Quit
		}
		if m.selector.done {
			selected := m.selector.selectedIDs()
			if len(selected) == 0 {
				return m, tea.Quit
			}
			if warnings := m.preflightWarnings(selected); len(warnings) > 0 {
				m.preflight = preflightModel{warnings: warnings}
				m.screen = screenPreflight
				return m, nil
			}
			return m.launch(selected)
		}
		return m, cmd

	case screenPreflight:
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.String() {
			case "q", "ctrl+c", "esc":
				return m, tea.Quit
			case "enter":
				return m.launch(m.selector.selectedIDs())
			}
		}
		return m, nil

	case screenProgress:
		next, cmd := m.progress.Update(msg)
		m.progress = next.(progressModel)
		return m, cmd
	}

	return m, nil
}

// launch builds the batch — every catalog entry, deselected ones marked
// so they surface as skipped — and switches to the progress screen.
func (m RootModel) launch(selected map[string]bool) (tea.Model, tea.Cmd) {
	entries := m.cat.Entries()
	selections := make([]engine.Selection, len(entries))
	names := make(map[string]string, len(entries))
	order := make([]string, len(entries))
	for i, e := range entries {
		selections[i] = engine.Selection{ID: e.ID, Deselected: !selected[e.ID]}
		names[e.ID] = e.Name
		order[i] = e.ID
	}

	rep := newChannelReporter(len(entries) * 8)
	go m.run(m.ctx, rep, selections)

	m.progress = newProgressModel(names, order, rep.ch)
	m.screen = screenProgress
	return m, m.progress.Init()
}

// preflightWarnings checks the selection for problems worth flagging
// before the batch starts rather than mid-run.
func (m RootModel) preflightWarnings(selected map[string]bool) []string {
	var warnings []string
	for _, e := range m.cat.Entries() {
		if selected[e.ID] && e.InstallType == catalog.TypeWinget {
			if !system.HasCommand("winget") {
				warnings = append(warnings, "winget is not on PATH — package-manager installs will fail (install App Installer from the Microsoft Store)")
			}
			break
		}
	}
	for _, n := range m.notes {
		warnings = append(warnings, n)
	}
	return warnings
}

func (m RootModel) View() string {
	switch m.screen {
	case screenSelector:
		return m.selector.View()
	case screenPreflight:
		return m.preflight.View()
	case screenProgress:
		return m.progress.View()
	}
	return ""
}
