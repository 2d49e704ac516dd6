package engine

import (
	"log/slog"
	"time"
)

// Reporter receives structured progress and outcome events. The engine
// calls it from multiple workers concurrently; implementations must be
// safe for that. A GUI, a CLI, and a log file all sit behind this same
// interface.
type Reporter interface {
	Progress(entryID string, stage Stage)
	Outcome(entryID string, outcome InstallOutcome)
	BatchComplete(summary BatchSummary)
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) Progress(string, Stage)         {}
func (NopReporter) Outcome(string, InstallOutcome) {}
func (NopReporter) BatchComplete(BatchSummary)     {}

// LogReporter writes events to slog. slog handlers are safe for
// concurrent use, so this needs no locking of its own.
type LogReporter struct{}

func (LogReporter) Progress(entryID string, stage Stage) {
	slog.Debug("install progress", "entry", entryID, "stage", stage)
}

func (LogReporter) Outcome(entryID string, o InstallOutcome) {
	switch o.Status {
	case StatusFailed:
		slog.Error("install failed", "entry", entryID, "kind", o.Failure, "detail", o.Detail)
	case StatusSkipped:
		slog.Info("install skipped", "entry", entryID, "detail", o.Detail)
	default:
		slog.Info("install succeeded", "entry", entryID, "detail", o.Detail, "warnings", len(o.Warnings))
	}
}

func (LogReporter) BatchComplete(s BatchSummary) {
	slog.Info("batch complete", "run", s.RunID,
		"succeeded", s.Succeeded, "failed", s.Failed, "skipped", s.Skipped,
		"elapsed", s.Finished.Sub(s.Started).Round(time.Millisecond))
}

// MultiReporter fans events out to several reporters in order.
type MultiReporter []Reporter

func (m MultiReporter) Progress(entryID string, stage Stage) {
	for _, r := range m {
		r.Progress(entryID, stage)
	}
}

func (m MultiReporter) Outcome(entryID string, o InstallOutcome) {
	for _, r := range m {
		r.Outcome(entryID, o)
	}
}

func (m MultiReporter) BatchComplete(s BatchSummary) {
	for _, r := range m {
		r.BatchComplete(s)
	}
}
