package metrics

import (
	"time"

	"github.com/franksops/cloudsync/transfer"
)

// BatchStats carries the exact timing and throughput of one batch.
type BatchStats struct {
	Index          int
	JobCount       int
	StartedAt      time.Time
	EndedAt        time.Time
	FilesPerSecond float64
}

// PerformanceReport is the consolidated outcome of one sync run. It is
// assembled at a single join point after every batch has resolved; nothing
// mutates it concurrently.
type PerformanceReport struct {
	BatchCount          int
	ParallelExecution   bool
	TotalProcessingTime time.Duration
	Batches             []BatchStats
	EfficiencyScore     float64
	Results             []transfer.Result
}

// Completed counts results that finished successfully.
func (r *PerformanceReport) Completed() int {
	return r.countStatus(transfer.StatusCompleted)
}

// Failed counts results that failed under every strategy they were given.
func (r *PerformanceReport) Failed() int {
	return r.countStatus(transfer.StatusFailed)
}

// Fallbacks counts jobs that went through the fallback lane, whatever their
// final status.
func (r *PerformanceReport) Fallbacks() int {
	n := 0
	for _, res := range r.Results {
		if res.FallbackTriggered {
			n++
		}
	}
	return n
}

func (r *PerformanceReport) countStatus(s transfer.Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}
