package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/franksops/cloudsync/transfer"
)

// stubStrategy is a scriptable Strategy that records its invocations.
type stubStrategy struct {
	name    string
	outcome func(job transfer.Job) transfer.Result

	mu       sync.Mutex
	calls    map[string]int
	inFlight int64
	maxSeen  int64
}

func newStubStrategy(name string, outcome func(job transfer.Job) transfer.Result) *stubStrategy {
	return &stubStrategy{name: name, outcome: outcome, calls: make(map[string]int)}
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Execute(ctx context.Context, job transfer.Job) transfer.Result {
	cur := atomic.AddInt64(&s.inFlight, 1)
	for {
		seen := atomic.LoadInt64(&s.maxSeen)
		if cur <= seen || atomic.CompareAndSwapInt64(&s.maxSeen, seen, cur) {
			break
		}
	}
	time.Sleep(time.Millisecond) // hold the slot so overlap is observable
	atomic.AddInt64(&s.inFlight, -1)

	s.mu.Lock()
	s.calls[job.ID]++
	s.mu.Unlock()

	res := s.outcome(job)
	res.JobID = job.ID
	res.StrategyName = s.name
	return res
}

func (s *stubStrategy) callsFor(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[id]
}

func completing(job transfer.Job) transfer.Result {
	return transfer.Result{Status: transfer.StatusCompleted, FilesTransferred: 1, OperationCount: 1}
}

func failingWithFallback(job transfer.Job) transfer.Result {
	return transfer.Result{
		Status:            transfer.StatusFailed,
		ErrorKind:         transfer.ErrKindToolUnavailable,
		ErrMessage:        "copy tool missing",
		FallbackTriggered: true,
	}
}

func failingHard(job transfer.Job) transfer.Result {
	return transfer.Result{
		Status:     transfer.StatusFailed,
		ErrorKind:  transfer.ErrKindExecution,
		ErrMessage: "staged copy failed too",
	}
}

func TestProcessBatch_LargeOptimizedRun(t *testing.T) {
	direct := newStubStrategy("direct_sync", completing)
	traditional := newStubStrategy("traditional", completing)
	o := NewOrchestrator(direct, traditional, 8)

	jobs := makeJobs(500)
	report, err := o.ProcessBatch(context.Background(), jobs, Options{
		BatchSizeLimit:      100,
		OptimizationEnabled: true,
		CollectMetrics:      true,
	})
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	if report.BatchCount > MaxOptimizedBatches {
		t.Errorf("batch count %d exceeds ceiling %d", report.BatchCount, MaxOptimizedBatches)
	}
	if len(report.Results) != 500 {
		t.Fatalf("expected 500 results, got %d", len(report.Results))
	}
	if !report.ParallelExecution {
		t.Error("optimized multi-batch run must report parallel execution")
	}
	if atomic.LoadInt64(&direct.maxSeen) < 2 {
		t.Error("expected concurrent strategy executions during an optimized run")
	}

	// Every job appears exactly once.
	seen := make(map[string]bool, 500)
	for _, res := range report.Results {
		if seen[res.JobID] {
			t.Fatalf("job %s reported twice", res.JobID)
		}
		seen[res.JobID] = true
	}
	for _, job := range jobs {
		if !seen[job.ID] {
			t.Errorf("job %s silently dropped", job.ID)
		}
	}

	if len(report.Batches) != report.BatchCount {
		t.Errorf("expected %d batch stats, got %d", report.BatchCount, len(report.Batches))
	}
	for _, bs := range report.Batches {
		if bs.StartedAt.IsZero() || bs.EndedAt.Before(bs.StartedAt) {
			t.Errorf("batch %d has incoherent timestamps", bs.Index)
		}
		if bs.FilesPerSecond <= 0 {
			t.Errorf("batch %d reported no throughput", bs.Index)
		}
	}
}

func TestProcessBatch_FallbackPromotesExactlyOnce(t *testing.T) {
	direct := newStubStrategy("direct_sync", failingWithFallback)
	traditional := newStubStrategy("traditional", completing)
	o := NewOrchestrator(direct, traditional, 2)

	jobs := makeJobs(4)
	report, err := o.ProcessBatch(context.Background(), jobs, Options{OptimizationEnabled: true})
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	for _, res := range report.Results {
		if res.Status != transfer.StatusCompleted {
			t.Errorf("job %s should have completed via fallback, got %s", res.JobID, res.Status)
		}
		if !res.FallbackTriggered {
			t.Errorf("job %s final result must record the promotion", res.JobID)
		}
		if res.StrategyName != "traditional" {
			t.Errorf("job %s final result should come from traditional, got %s", res.JobID, res.StrategyName)
		}
	}
	for _, job := range jobs {
		if got := direct.callsFor(job.ID); got != 1 {
			t.Errorf("direct strategy ran %d times for %s, want 1", got, job.ID)
		}
		if got := traditional.callsFor(job.ID); got != 1 {
			t.Errorf("traditional strategy ran %d times for %s, want 1", got, job.ID)
		}
	}
}

func TestProcessBatch_DoubleFailureIsFinal(t *testing.T) {
	direct := newStubStrategy("direct_sync", failingWithFallback)
	traditional := newStubStrategy("traditional", failingHard)
	o := NewOrchestrator(direct, traditional, 2)

	jobs := makeJobs(3)
	report, err := o.ProcessBatch(context.Background(), jobs, Options{OptimizationEnabled: true})
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	if len(report.Results) != 3 {
		t.Fatalf("failed jobs must still be reported, got %d results", len(report.Results))
	}
	for _, res := range report.Results {
		if res.Status != transfer.StatusFailed {
			t.Errorf("job %s should be failed, got %s", res.JobID, res.Status)
		}
	}
	for _, job := range jobs {
		total := direct.callsFor(job.ID) + traditional.callsFor(job.ID)
		if total != 2 {
			t.Errorf("job %s executed %d times in total, want exactly 2", job.ID, total)
		}
	}
}

func TestProcessBatch_FailureDoesNotAbortSiblings(t *testing.T) {
	direct := newStubStrategy("direct_sync", func(job transfer.Job) transfer.Result {
		if job.ID == "job-1" {
			return failingWithFallback(job)
		}
		return completing(job)
	})
	traditional := newStubStrategy("traditional", failingHard)
	o := NewOrchestrator(direct, traditional, 2)

	report, err := o.ProcessBatch(context.Background(), makeJobs(5), Options{OptimizationEnabled: true})
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}
	if report.Completed() != 4 || report.Failed() != 1 {
		t.Errorf("expected 4 completed and 1 failed, got %d/%d",
			report.Completed(), report.Failed())
	}
}

func TestProcessBatch_ZeroRetryCountDisablesFallback(t *testing.T) {
	direct := newStubStrategy("direct_sync", failingWithFallback)
	traditional := newStubStrategy("traditional", completing)
	o := NewOrchestrator(direct, traditional, 2).WithRetryCount(0)

	report, err := o.ProcessBatch(context.Background(), makeJobs(2), Options{OptimizationEnabled: true})
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}
	for _, res := range report.Results {
		if res.Status != transfer.StatusFailed {
			t.Errorf("with retry_count=0 jobs must not be promoted, got %s", res.Status)
		}
	}
	for id := range traditional.calls {
		t.Errorf("traditional strategy should never run, but ran for %s", id)
	}
}

func TestDirectSyncEligible(t *testing.T) {
	o := NewOrchestrator(newStubStrategy("direct_sync", completing),
		newStubStrategy("traditional", completing), 1)

	cases := []struct {
		job  transfer.Job
		want bool
	}{
		{transfer.Job{Source: "s3://a/x", Destination: "s3://b/y"}, true},
		{transfer.Job{Source: "s3://a/x", Destination: "s3://b/y", RequiresStaging: true}, false},
		{transfer.Job{Source: "/local/file", Destination: "s3://b/y"}, false},
		{transfer.Job{Source: "s3://a/x", Destination: "gs://b/y"}, false},
	}
	for _, c := range cases {
		if got := o.DirectSyncEligible(c.job); got != c.want {
			t.Errorf("DirectSyncEligible(%q -> %q) = %v, want %v",
				c.job.Source, c.job.Destination, got, c.want)
		}
	}
}

func TestProcessBatch_StagedJobsSkipDirect(t *testing.T) {
	direct := newStubStrategy("direct_sync", completing)
	traditional := newStubStrategy("traditional", completing)
	o := NewOrchestrator(direct, traditional, 2)

	jobs := makeJobs(3)
	for i := range jobs {
		jobs[i].RequiresStaging = true
	}

	if _, err := o.ProcessBatch(context.Background(), jobs, Options{OptimizationEnabled: true}); err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}
	for _, job := range jobs {
		if direct.callsFor(job.ID) != 0 {
			t.Errorf("staged-only job %s reached the direct strategy", job.ID)
		}
		if traditional.callsFor(job.ID) != 1 {
			t.Errorf("staged-only job %s should run traditionally once", job.ID)
		}
	}
}

func TestProcessBatch_ObserverSeesEveryResult(t *testing.T) {
	direct := newStubStrategy("direct_sync", completing)
	traditional := newStubStrategy("traditional", completing)

	var observed int64
	o := NewOrchestrator(direct, traditional, 4).WithObserver(func(transfer.Result) {
		atomic.AddInt64(&observed, 1)
	})

	if _, err := o.ProcessBatch(context.Background(), makeJobs(50), Options{OptimizationEnabled: true}); err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}
	if observed != 50 {
		t.Errorf("observer saw %d results, want 50", observed)
	}
}
