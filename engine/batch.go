package engine

import (
	"sort"

	"github.com/franksops/cloudsync/transfer"
)

// MaxOptimizedBatches caps how many batches an optimized run is split
// into, whatever the job count. Fewer, larger batches keep per-batch
// coordination overhead bounded while still running concurrently.
const MaxOptimizedBatches = 5

// DefaultBatchSizeLimit chunks unoptimized runs when the caller gives no
// limit of their own.
const DefaultBatchSizeLimit = 100

// Batch is a bounded group of jobs dispatched together under one worker
// ceiling. Batches exist only between partitioning and the aggregation
// join point.
type Batch struct {
	Index       int
	Jobs        []transfer.Job
	Parallelism int
}

// partition splits jobs into batches. With optimization enabled the job
// list is spread across at most MaxOptimizedBatches batches; otherwise it
// is chunked by batchSizeLimit. Jobs are dispatched highest priority first
// within each batch.
func partition(jobs []transfer.Job, batchSizeLimit int, optimized bool) []Batch {
	if len(jobs) == 0 {
		return nil
	}

	ordered := make([]transfer.Job, len(jobs))
	copy(ordered, jobs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	size := batchSizeLimit
	if optimized {
		count := MaxOptimizedBatches
		if len(ordered) < count {
			count = len(ordered)
		}
		// Ceiling division so the last batch absorbs the remainder.
		size = (len(ordered) + count - 1) / count
	} else if size <= 0 {
		size = DefaultBatchSizeLimit
	}

	var batches []Batch
	for start := 0; start < len(ordered); start += size {
		end := start + size
		if end > len(ordered) {
			end = len(ordered)
		}
		batches = append(batches, Batch{
			Index: len(batches),
			Jobs:  ordered[start:end],
		})
	}
	return batches
}
