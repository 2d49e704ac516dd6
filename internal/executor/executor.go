// Package executor holds one install strategy per catalog install type.
// Executors report every failure as a typed error; nothing escapes their
// boundary, so a broken entry can never take the batch down with it.
package executor

import (
	"context"
	"fmt"

	"github.com/exileshud/exiles-installer/internal/catalog"
)

// Kind classifies an execution failure.
type Kind string

const (
	NonZeroExit        Kind = "non_zero_exit"
	ExtractionFailure  Kind = "extraction_failure"
	ManagerUnavailable Kind = "manager_unavailable"
)

// Error is an execution failure with its kind preserved.
type Error struct {
	Kind    Kind
	EntryID string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("install %s: %s: %v", e.EntryID, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is the successful side of an execution.
type Result struct {
	Detail string
	// RequiresBookmark marks web entries: success only means the open
	// request was dispatched, the user still has to act on it.
	RequiresBookmark bool
}

// Executor installs one strategy's entries.
type Executor interface {
	Strategy() catalog.InstallType
	// Exclusive executors cannot run concurrently with each other; the
	// engine serializes them behind a process-wide lock.
	Exclusive() bool
	// Run consumes the fetched artifact path ("" for strategies that
	// fetch nothing) and installs the entry.
	Run(ctx context.Context, entry catalog.Entry, artifactPath string) (Result, error)
}

// Set maps install types to their executors.
type Set struct {
	byType map[catalog.InstallType]Executor
}

// NewSet builds the default executor set. installRoot is where zip
// entries are extracted to.
func NewSet(installRoot string) *Set {
	s := &Set{byType: make(map[catalog.InstallType]Executor)}
	for _, e := range []Executor{
		&processExecutor{strategy: catalog.TypeDirect},
		&processExecutor{strategy: catalog.TypeGitHub},
		&zipExecutor{installRoot: installRoot},
		&wingetExecutor{bin: "winget"},
		&webExecutor{},
	} {
		s.byType[e.Strategy()] = e
	}
	return s
}

// For returns the executor for an install type.
func (s *Set) For(t catalog.InstallType) (Executor, bool) {
	e, ok := s.byType[t]
	return e, ok
}

// Replace swaps in an executor, keyed by its strategy. Used by tests and
// by callers that need a differently configured manager.
func (s *Set) Replace(e Executor) {
	s.byType[e.Strategy()] = e
}
