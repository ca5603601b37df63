package transfer

import (
	"context"
	"time"
)

// Status is the terminal outcome category of a transfer job.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrorKind classifies a job-level failure so the orchestrator can decide
// whether the job is worth promoting to the traditional path.
type ErrorKind string

const (
	// ErrKindToolUnavailable means the external copy tool executable could
	// not be found or is not runnable.
	ErrKindToolUnavailable ErrorKind = "TOOL_UNAVAILABLE"

	// ErrKindTimeout means the invocation exceeded its deadline and the
	// process was killed.
	ErrKindTimeout ErrorKind = "TIMEOUT"

	// ErrKindExecution covers non-zero exits, transport errors and any
	// other fault raised while moving bytes.
	ErrKindExecution ErrorKind = "EXECUTION_ERROR"
)

// Job describes one object to move from a source locator to a destination
// locator. A Job is immutable once submitted: it is consumed exactly once by
// exactly one strategy invocation, plus at most one fallback promotion.
type Job struct {
	// ID uniquely identifies the job across the run and in the state store.
	ID string

	// Source and Destination are object-storage locators (s3://bucket/key).
	Source      string
	Destination string

	// SizeHint is the expected object size in bytes, zero when unknown.
	SizeHint int64

	// Priority orders jobs within a batch; higher runs earlier.
	Priority int

	// RequiresStaging forces the traditional download-then-upload path,
	// disqualifying the job from direct sync.
	RequiresStaging bool
}

// Result is the structured outcome of one strategy invocation. Every field
// relevant to the outcome category is set before the Result is returned;
// strategies never let a fault escape instead of producing one.
type Result struct {
	JobID        string
	Status       Status
	StrategyName string

	FilesTransferred      int
	OperationCount        int
	LocalStorageBytesUsed int64
	Duration              time.Duration

	// ErrorKind and ErrMessage are set only when Status is failed.
	ErrorKind  ErrorKind
	ErrMessage string

	// FallbackTriggered on a failed direct-sync result asks the orchestrator
	// to re-route the job to the traditional strategy. On a final result it
	// records that the job went through the fallback lane.
	FallbackTriggered bool

	// Local staging lifecycle flags. Direct sync never stages locally, so it
	// reports cleanup as trivially complete.
	LocalDownloadCompleted bool
	LocalUploadCompleted   bool
	LocalCleanupCompleted  bool
}

// Strategy moves the object described by a Job and reports a fully-populated
// Result. Implementations convert every failure into a failed Result rather
// than returning an error, so the orchestrator's fallback policy can operate
// on data instead of control flow.
type Strategy interface {
	Name() string
	Execute(ctx context.Context, job Job) Result
}
