// Package engine partitions transfer jobs into bounded batches, assigns
// each job a strategy, runs batches with bounded concurrency, applies the
// one-shot fallback policy, and aggregates results into a single report.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/franksops/cloudsync/metrics"
	"github.com/franksops/cloudsync/transfer"
	"github.com/franksops/cloudsync/validate"
)

// DefaultMaxParallel bounds worker counts when the caller configures none.
const DefaultMaxParallel = 4

// Options control one ProcessBatch call.
type Options struct {
	// BatchSizeLimit chunks the job list when optimization is off.
	BatchSizeLimit int

	// OptimizationEnabled caps the batch count at MaxOptimizedBatches and
	// runs batches concurrently.
	OptimizationEnabled bool

	// CollectMetrics adds per-batch timings and an efficiency score to the
	// report.
	CollectMetrics bool
}

// Orchestrator owns strategy selection, batch scheduling, and the fallback
// state machine. Construct one per configuration; it has no global state.
type Orchestrator struct {
	direct      transfer.Strategy
	traditional transfer.Strategy
	tracker     *JobTracker
	observer    func(transfer.Result)
	maxParallel int
	retryCount  int
	log         zerolog.Logger
}

// NewOrchestrator builds an orchestrator over the two strategies.
// maxParallel bounds both concurrent batches and workers within a batch.
func NewOrchestrator(direct, traditional transfer.Strategy, maxParallel int) *Orchestrator {
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}
	return &Orchestrator{
		direct:      direct,
		traditional: traditional,
		maxParallel: maxParallel,
		retryCount:  1,
		log:         zerolog.Nop(),
	}
}

// WithLogger attaches a logger.
func (o *Orchestrator) WithLogger(log zerolog.Logger) *Orchestrator {
	o.log = log
	return o
}

// WithTracker persists job lifecycle states through the tracker.
func (o *Orchestrator) WithTracker(t *JobTracker) *Orchestrator {
	o.tracker = t
	return o
}

// WithObserver registers a callback invoked once per finalized job result,
// from worker goroutines. Observers must be cheap and concurrency-safe.
func (o *Orchestrator) WithObserver(fn func(transfer.Result)) *Orchestrator {
	o.observer = fn
	return o
}

// WithRetryCount bounds the fallback promotion. Anything above one is
// clamped: a job is promoted to the traditional strategy at most once.
func (o *Orchestrator) WithRetryCount(n int) *Orchestrator {
	if n < 0 {
		n = 0
	}
	if n > 1 {
		n = 1
	}
	o.retryCount = n
	return o
}

// DirectSyncEligible is the classification predicate: a job defaults to the
// direct path when both endpoints are well-formed object-storage locators
// and nothing about the job demands local staging.
func (o *Orchestrator) DirectSyncEligible(job transfer.Job) bool {
	if job.RequiresStaging {
		return false
	}
	return validate.Validate(job.Source).IsValid && validate.Validate(job.Destination).IsValid
}

// ProcessBatch runs the whole job list and returns the consolidated report.
// Every submitted job contributes exactly one result; a job failing under
// both strategies is reported failed without disturbing its siblings.
func (o *Orchestrator) ProcessBatch(ctx context.Context, jobs []transfer.Job, opts Options) (*metrics.PerformanceReport, error) {
	start := time.Now()

	batches := partition(jobs, opts.BatchSizeLimit, opts.OptimizationEnabled)
	collector := newResultCollector(len(jobs))
	batchStats := make([]metrics.BatchStats, len(batches))

	g := new(errgroup.Group)
	if opts.OptimizationEnabled {
		g.SetLimit(o.maxParallel)
	} else {
		g.SetLimit(1)
	}

	for i := range batches {
		b := &batches[i]
		b.Parallelism = o.maxParallel
		if len(b.Jobs) < b.Parallelism {
			b.Parallelism = len(b.Jobs)
		}
		g.Go(func() error {
			// Each batch writes only its own stats slot, so the slice
			// needs no lock.
			batchStats[b.Index] = o.runBatch(ctx, b, collector)
			return nil
		})
	}
	// Batch goroutines never return errors; failures are data in results.
	_ = g.Wait()

	// Single aggregation point: every batch has joined before the report
	// is assembled.
	report := &metrics.PerformanceReport{
		BatchCount:          len(batches),
		ParallelExecution:   opts.OptimizationEnabled && len(batches) > 1,
		TotalProcessingTime: time.Since(start),
		Results:             collector.results(),
	}
	if opts.CollectMetrics {
		report.Batches = batchStats
		report.EfficiencyScore = metrics.EfficiencyScore(report.Results)
	}

	o.log.Info().
		Int("jobs", len(jobs)).
		Int("batches", report.BatchCount).
		Int("completed", report.Completed()).
		Int("failed", report.Failed()).
		Dur("elapsed", report.TotalProcessingTime).
		Msg("sync run finished")
	return report, nil
}

// runBatch executes one batch on its own worker pool and reports its
// timings.
func (o *Orchestrator) runBatch(ctx context.Context, b *Batch, collector *resultCollector) metrics.BatchStats {
	started := time.Now()

	ch := make(JobChannel, len(b.Jobs))
	pool := NewWorkerPool(ctx, ch, func(ctx context.Context, job transfer.Job) error {
		res := o.executeJob(ctx, job)
		collector.add(res)
		if o.observer != nil {
			o.observer(res)
		}
		return nil
	})
	pool.SetWorkerCount(b.Parallelism)

	for _, job := range b.Jobs {
		ch <- job
	}
	close(ch)
	pool.Wait()

	ended := time.Now()
	return metrics.BatchStats{
		Index:          b.Index,
		JobCount:       len(b.Jobs),
		StartedAt:      started,
		EndedAt:        ended,
		FilesPerSecond: metrics.Throughput(len(b.Jobs), ended.Sub(started)),
	}
}

// executeJob is the two-phase fallback pipeline: attempt the assigned
// strategy, and on a structured failure that asks for fallback, re-submit
// the job to the traditional strategy exactly once.
func (o *Orchestrator) executeJob(ctx context.Context, job transfer.Job) transfer.Result {
	strat := o.traditional
	if o.DirectSyncEligible(job) {
		strat = o.direct
	}

	if o.tracker != nil {
		if err := o.tracker.StartJob(job, strat.Name()); err != nil {
			o.log.Warn().Str("job", job.ID).Err(err).Msg("could not persist job start")
		}
	}

	res := strat.Execute(ctx, job)
	if res.Status == transfer.StatusFailed && res.FallbackTriggered &&
		strat == o.direct && o.retryCount > 0 {
		o.log.Warn().
			Str("job", job.ID).
			Str("error_kind", string(res.ErrorKind)).
			Msg("promoting job to traditional strategy")
		res = o.traditional.Execute(ctx, job)
		// The final result keeps the promotion on record whatever the
		// second attempt did.
		res.FallbackTriggered = true
	}

	if o.tracker != nil {
		if err := o.tracker.RecordResult(job, res); err != nil {
			o.log.Warn().Str("job", job.ID).Err(err).Msg("could not persist job outcome")
		}
	}
	return res
}

// resultCollector is the one mid-flight accumulator workers share. A single
// mutex serializes every write; reads happen only after all batches join.
type resultCollector struct {
	mu  sync.Mutex
	all []transfer.Result
}

func newResultCollector(capacity int) *resultCollector {
	return &resultCollector{all: make([]transfer.Result, 0, capacity)}
}

func (c *resultCollector) add(r transfer.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.all = append(c.all, r)
}

func (c *resultCollector) results() []transfer.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.all
}
