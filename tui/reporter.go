package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/exileshud/exiles-installer/internal/engine"
)

// Event messages bridged from the engine's Reporter calls onto the
// bubbletea message loop.
type (
	progressMsg struct {
		EntryID string
		Stage   engine.Stage
	}
	outcomeMsg struct {
		EntryID string
		Outcome engine.InstallOutcome
	}
	summaryMsg struct {
		Summary engine.BatchSummary
	}
)

// channelReporter implements engine.Reporter by pushing events into a
// channel the TUI drains. Channel sends are safe from any worker, which
// satisfies the Reporter's concurrency contract.
type channelReporter struct {
	ch chan tea.Msg
}

func newChannelReporter(capacity int) *channelReporter {
	return &channelReporter{ch: make(chan tea.Msg, capacity)}
}

func (r *channelReporter) Progress(entryID string, stage engine.Stage) {
	r.ch <- progressMsg{EntryID: entryID, Stage: stage}
}

func (r *channelReporter) Outcome(entryID string, o engine.InstallOutcome) {
	r.ch <- outcomeMsg{EntryID: entryID, Outcome: o}
}

func (r *channelReporter) BatchComplete(s engine.BatchSummary) {
	r.ch <- summaryMsg{Summary: s}
	close(r.ch)
}

// waitForEvent reads the next engine event. A closed channel yields nil,
// which the model treats as end-of-stream.
func waitForEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
