package engine

import (
	"github.com/franksops/cloudsync/store"
	"github.com/franksops/cloudsync/transfer"
)

// JobTracker persists job lifecycle states so an interrupted or finished
// run can be audited from the state store.
type JobTracker struct {
	store store.Store
}

// NewJobTracker creates a tracker over the given store.
func NewJobTracker(st store.Store) *JobTracker {
	return &JobTracker{store: st}
}

// StartJob records the job as in progress under the strategy it was
// assigned.
func (jt *JobTracker) StartJob(job transfer.Job, strategy string) error {
	return jt.store.SaveJob(&store.JobRecord{
		ID:          job.ID,
		Source:      job.Source,
		Destination: job.Destination,
		State:       store.StateInProgress,
		Strategy:    strategy,
		SizeHint:    job.SizeHint,
	})
}

// RecordResult records the job's final outcome.
func (jt *JobTracker) RecordResult(job transfer.Job, res transfer.Result) error {
	state := store.StateCompleted
	if res.Status == transfer.StatusFailed {
		state = store.StateFailed
	}
	return jt.store.SaveJob(&store.JobRecord{
		ID:                job.ID,
		Source:            job.Source,
		Destination:       job.Destination,
		State:             state,
		Strategy:          res.StrategyName,
		FallbackTriggered: res.FallbackTriggered,
		OperationCount:    res.OperationCount,
		BytesStaged:       res.LocalStorageBytesUsed,
		SizeHint:          job.SizeHint,
		ErrorKind:         string(res.ErrorKind),
		Error:             res.ErrMessage,
	})
}
