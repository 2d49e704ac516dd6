package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/exileshud/exiles-installer/internal/engine"
)

var (
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleSkipped = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	stylePending = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Faint(true)
)

type progressEntry struct {
	id      string
	name    string
	stage   engine.Stage
	outcome *engine.InstallOutcome
}

type progressModel struct {
	entries map[string]*progressEntry
	order   []string
	spin    spinner.Model
	ch      <-chan tea.Msg
	summary *engine.BatchSummary
	done    bool
}

func newProgressModel(names map[string]string, order []string, ch <-chan tea.Msg) progressModel {
	entries := make(map[string]*progressEntry, len(order))
	for _, id := range order {
		entries[id] = &progressEntry{id: id, name: names[id], stage: engine.StagePending}
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return progressModel{entries: entries, order: order, spin: sp, ch: ch}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, waitForEvent(m.ch))
}

// applyMsg folds one engine event into the model. Returns false for
// messages the progress model doesn't handle.
func (m *progressModel) applyMsg(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case progressMsg:
		if e, ok := m.entries[msg.EntryID]; ok {
			e.stage = msg.Stage
		}
	case outcomeMsg:
		if e, ok := m.entries[msg.EntryID]; ok {
			o := msg.Outcome
			e.outcome = &o
			e.stage = engine.StageDone
		}
	case summaryMsg:
		s := msg.Summary
		m.summary = &s
		m.done = true
	default:
		return false
	}
	return true
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.done {
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case nil:
		m.done = true
		return m, nil
	default:
		if m.applyMsg(msg) {
			if m.done {
				return m, nil
			}
			return m, waitForEvent(m.ch)
		}
	}
	return m, nil
}

func (m progressModel) View() string {
	var sb strings.Builder
	sb.WriteString("\n  Installing tools\n\n")

	for _, id := range m.order {
		e := m.entries[id]
		sb.WriteString(m.renderEntry(e) + "\n")
		if e.outcome != nil {
			for _, w := range e.outcome.Warnings {
				sb.WriteString(styleWarn.Render("      ! "+w) + "\n")
			}
		}
	}

	if m.done && m.summary != nil {
		s := m.summary
		sb.WriteString(fmt.Sprintf("\n  %d installed, %d skipped, %d failed\n",
			s.Succeeded, s.Skipped, s.Failed))
		sb.WriteString("\n  Press any key to exit\n")
	}
	return sb.String()
}

func (m progressModel) renderEntry(e *progressEntry) string {
	if e.outcome != nil {
		switch e.outcome.Status {
		case engine.StatusSucceeded:
			detail := e.outcome.Detail
			if e.outcome.RequiresBookmark {
				detail = "opened in browser — bookmark it"
			}
			return styleDone.Render(fmt.Sprintf("  ✓ %-24s %s", e.name, detail))
		case engine.StatusSkipped:
			return styleSkipped.Render(fmt.Sprintf("  - %-24s %s", e.name, e.outcome.Detail))
		default:
			return styleError.Render(fmt.Sprintf("  ✗ %-24s %s", e.name, e.outcome.Detail))
		}
	}
	if e.stage == engine.StagePending {
		return stylePending.Render(fmt.Sprintf("  · %-24s pending", e.name))
	}
	return stylePending.Render(fmt.Sprintf("  %s %-24s %s", m.spin.View(), e.name, e.stage))
}
