// Package engine schedules catalog entry installations. Entries run in
// parallel under a bounded worker pool; a failing or hanging entry gets
// its own outcome and the batch always completes with a full summary.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/exileshud/exiles-installer/internal/catalog"
	"github.com/exileshud/exiles-installer/internal/executor"
	"github.com/exileshud/exiles-installer/internal/fetch"
	"github.com/exileshud/exiles-installer/internal/poststep"
	"github.com/exileshud/exiles-installer/internal/resolver"
	"github.com/exileshud/exiles-installer/internal/settings"
)

// Selection is one entry the user saw in the picker. Deselected entries
// still produce a skipped outcome so no entry is ever silently dropped.
type Selection struct {
	ID         string
	Deselected bool
}

// Config wires an Engine's collaborators.
type Config struct {
	Catalog   *catalog.Catalog
	Resolver  *resolver.Resolver
	Fetcher   *fetch.Fetcher
	Executors *executor.Set
	PostSteps *poststep.Runner
	Settings  settings.Settings
	Reporter  Reporter
}

// Engine runs install batches.
type Engine struct {
	catalog   *catalog.Catalog
	resolver  *resolver.Resolver
	fetcher   *fetch.Fetcher
	executors *executor.Set
	postSteps *poststep.Runner
	cfg       settings.Settings
	reporter  Reporter

	// exclusiveMu serializes executors that cannot share the machine,
	// e.g. winget against its package database.
	exclusiveMu sync.Mutex
}

// New creates an Engine from cfg. A nil Reporter gets NopReporter.
func New(cfg Config) *Engine {
	rep := cfg.Reporter
	if rep == nil {
		rep = NopReporter{}
	}
	return &Engine{
		catalog:   cfg.Catalog,
		resolver:  cfg.Resolver,
		fetcher:   cfg.Fetcher,
		executors: cfg.Executors,
		postSteps: cfg.PostSteps,
		cfg:       cfg.Settings,
		reporter:  rep,
	}
}

// Run installs every selection and returns the summary in selection
// order. Outcomes stream to the Reporter as entries finish, unordered.
func (e *Engine) Run(ctx context.Context, selections []Selection) BatchSummary {
	started := time.Now()
	runID := uuid.NewString()
	slog.Info("starting batch", "run", runID, "entries", len(selections))

	// Worker pool wider than the fetch cap: a slow installer process
	// should not stop queued downloads from making progress. The fetch
	// cap itself is enforced inside the Fetcher.
	workers := e.cfg.MaxConcurrentDownloads + 2

	outcomes := make([]InstallOutcome, len(selections))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, sel := range selections {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, sel Selection) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = e.runEntry(ctx, sel)
			e.reporter.Outcome(sel.ID, outcomes[i])
		}(i, sel)
	}
	wg.Wait()

	summary := BatchSummary{
		RunID:    runID,
		Outcomes: outcomes,
		Started:  started,
		Finished: time.Now(),
	}
	for _, o := range outcomes {
		switch o.Status {
		case StatusSucceeded:
			summary.Succeeded++
		case StatusFailed:
			summary.Failed++
		case StatusSkipped:
			summary.Skipped++
		}
	}
	e.reporter.BatchComplete(summary)
	return summary
}

// runEntry walks one entry through the install pipeline. It never
// returns an error: every path ends in exactly one outcome, and a panic
// in a stage is converted rather than allowed to kill the batch.
func (e *Engine) runEntry(ctx context.Context, sel Selection) (out InstallOutcome) {
	started := time.Now()
	finish := func(o InstallOutcome) InstallOutcome {
		o.EntryID = sel.ID
		o.Started = started
		o.Finished = time.Now()
		e.reporter.Progress(sel.ID, StageDone)
		return o
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker panic", "entry", sel.ID, "panic", r)
			out = finish(InstallOutcome{
				Status:  StatusFailed,
				Failure: FailInternal,
				Detail:  fmt.Sprintf("internal error: %v", r),
			})
		}
	}()

	if sel.Deselected {
		return finish(InstallOutcome{Status: StatusSkipped, Detail: "deselected before run"})
	}

	entry, ok := e.catalog.Entry(sel.ID)
	if !ok {
		return finish(InstallOutcome{
			Status:  StatusFailed,
			Failure: FailInternal,
			Detail:  fmt.Sprintf("entry %q is not in the catalog", sel.ID),
		})
	}

	// Hard wall-clock ceiling: even a hung installer process cannot keep
	// the batch from terminating.
	entryCtx, cancel := context.WithTimeout(ctx, e.cfg.InstallTimeout)
	defer cancel()

	// Resolving.
	if o, stop := e.stageGate(ctx, entryCtx, entry.ID, StageResolving); stop {
		return finish(o)
	}
	art, err := e.resolver.Resolve(entryCtx, entry)
	if err != nil {
		return finish(e.classify(ctx, entryCtx, err))
	}

	// Fetching, only for strategies with an artifact.
	var artifactPath string
	if art != nil {
		if o, stop := e.stageGate(ctx, entryCtx, entry.ID, StageFetching); stop {
			return finish(o)
		}
		artifactPath, err = e.fetcher.Fetch(entryCtx, entry.ID, art)
		if err != nil {
			e.cleanup(entry.ID, true)
			return finish(e.classify(ctx, entryCtx, err))
		}
	}

	// Installing.
	if o, stop := e.stageGate(ctx, entryCtx, entry.ID, StageInstalling); stop {
		e.cleanup(entry.ID, false)
		return finish(o)
	}
	exec, ok := e.executors.For(entry.InstallType)
	if !ok {
		e.cleanup(entry.ID, false)
		return finish(InstallOutcome{
			Status:  StatusFailed,
			Failure: FailInternal,
			Detail:  fmt.Sprintf("no executor for install_type %q", entry.InstallType),
		})
	}

	var result executor.Result
	if exec.Exclusive() {
		// Unlock must survive a panicking executor, or every later
		// exclusive entry would block forever.
		func() {
			e.exclusiveMu.Lock()
			defer e.exclusiveMu.Unlock()
			result, err = exec.Run(entryCtx, entry, artifactPath)
		}()
	} else {
		result, err = exec.Run(entryCtx, entry, artifactPath)
	}
	if err != nil {
		e.cleanup(entry.ID, true)
		return finish(e.classify(ctx, entryCtx, err))
	}

	// Post steps run only after primary success, and their failures are
	// warnings — the install itself already completed.
	var warnings []string
	if len(entry.PostSteps) > 0 {
		if o, stop := e.stageGate(ctx, entryCtx, entry.ID, StagePostStep); !stop {
			steps := make([]poststep.Step, len(entry.PostSteps))
			for i, s := range entry.PostSteps {
				steps[i] = poststep.Step{Name: s.Name, Script: s.Script}
			}
			warnings = e.postSteps.Run(entryCtx, steps)
			for _, w := range warnings {
				slog.Warn("post-step warning", "entry", entry.ID, "warning", w)
			}
		} else {
			warnings = append(warnings, "post-steps skipped: "+o.Detail)
		}
	}

	e.cleanup(entry.ID, false)
	return finish(InstallOutcome{
		Status:           StatusSucceeded,
		Detail:           result.Detail,
		Warnings:         warnings,
		RequiresBookmark: result.RequiresBookmark,
	})
}

// stageGate reports a stage transition and observes cooperative
// cancellation at the stage boundary. Entries already mid-stage finish
// or time out on their own.
func (e *Engine) stageGate(parent, entryCtx context.Context, entryID string, stage Stage) (InstallOutcome, bool) {
	if parent.Err() != nil {
		return InstallOutcome{Status: StatusSkipped, Failure: FailCanceled, Detail: "batch canceled"}, true
	}
	if entryCtx.Err() != nil {
		return InstallOutcome{
			Status:  StatusFailed,
			Failure: FailTimeout,
			Detail:  fmt.Sprintf("entry exceeded install_timeout before %s", stage),
		}, true
	}
	e.reporter.Progress(entryID, stage)
	return InstallOutcome{}, false
}

// classify converts a pipeline error into a failed (or, for a canceled
// batch, skipped) outcome with the failure kind preserved.
func (e *Engine) classify(parent, entryCtx context.Context, err error) InstallOutcome {
	if parent.Err() != nil {
		return InstallOutcome{Status: StatusSkipped, Failure: FailCanceled, Detail: "batch canceled"}
	}
	if errors.Is(err, context.DeadlineExceeded) || entryCtx.Err() == context.DeadlineExceeded {
		return InstallOutcome{Status: StatusFailed, Failure: FailTimeout, Detail: err.Error()}
	}

	var re *resolver.Error
	if errors.As(err, &re) {
		kind := FailNetwork
		switch re.Kind {
		case resolver.NoMatchingRelease:
			kind = FailNoMatchingRelease
		case resolver.NoMatchingAsset:
			kind = FailNoMatchingAsset
		}
		return InstallOutcome{Status: StatusFailed, Failure: kind, Detail: err.Error()}
	}

	var fe *fetch.Error
	if errors.As(err, &fe) {
		kind := FailNetwork
		switch fe.Kind {
		case fetch.ChecksumMismatch:
			kind = FailChecksumMismatch
		case fetch.Timeout:
			kind = FailTimeout
		case fetch.LocalIO:
			kind = FailInternal
		}
		return InstallOutcome{Status: StatusFailed, Failure: kind, Detail: err.Error()}
	}

	var xe *executor.Error
	if errors.As(err, &xe) {
		kind := FailNonZeroExit
		switch xe.Kind {
		case executor.ExtractionFailure:
			kind = FailExtraction
		case executor.ManagerUnavailable:
			kind = FailManagerUnavailable
		}
		return InstallOutcome{Status: StatusFailed, Failure: kind, Detail: err.Error()}
	}

	return InstallOutcome{Status: StatusFailed, Failure: FailInternal, Detail: err.Error()}
}

// cleanup removes an entry's temp download directory. Failed downloads
// are kept when the settings ask for them, for diagnosis.
func (e *Engine) cleanup(entryID string, failed bool) {
	if failed && e.cfg.KeepFailedDownloads {
		return
	}
	if err := e.fetcher.Cleanup(entryID); err != nil {
		slog.Warn("temp cleanup failed", "entry", entryID, "error", err)
	}
}
