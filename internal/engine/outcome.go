package engine

import "time"

// Status is the terminal state of one entry in a batch.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// FailureKind preserves why an entry did not succeed.
type FailureKind string

const (
	FailNone               FailureKind = ""
	FailNoMatchingRelease  FailureKind = "no_matching_release"
	FailNoMatchingAsset    FailureKind = "no_matching_asset"
	FailNetwork            FailureKind = "network_failure"
	FailChecksumMismatch   FailureKind = "checksum_mismatch"
	FailTimeout            FailureKind = "timeout"
	FailNonZeroExit        FailureKind = "non_zero_exit"
	FailExtraction         FailureKind = "extraction_failure"
	FailManagerUnavailable FailureKind = "manager_unavailable"
	FailCanceled           FailureKind = "canceled"
	FailInternal           FailureKind = "internal"
)

// Stage is one step of an entry's install pipeline.
type Stage string

const (
	StagePending    Stage = "pending"
	StageResolving  Stage = "resolving"
	StageFetching   Stage = "fetching"
	StageInstalling Stage = "installing"
	StagePostStep   Stage = "post-step"
	StageDone       Stage = "done"
)

// InstallOutcome is the immutable terminal result for one entry.
// Every selected entry produces exactly one, whatever happens.
type InstallOutcome struct {
	EntryID          string
	Status           Status
	Failure          FailureKind
	Detail           string
	Warnings         []string
	RequiresBookmark bool
	Started          time.Time
	Finished         time.Time
}

// BatchSummary aggregates a run's outcomes in original selection order.
type BatchSummary struct {
	RunID     string
	Outcomes  []InstallOutcome
	Succeeded int
	Failed    int
	Skipped   int
	Started   time.Time
	Finished  time.Time
}
