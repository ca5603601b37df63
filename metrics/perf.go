// Package metrics holds the pure performance calculators and the report
// types the orchestrator aggregates into. Everything here is deterministic
// except the memory sampler.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/franksops/cloudsync/transfer"
)

// Strategy names as charged by the operation-count model.
const (
	StrategyDirectSync  = "direct_sync"
	StrategyTraditional = "traditional"
)

// ErrInvalidBaseline is returned when an improvement is computed against a
// non-positive baseline.
var ErrInvalidBaseline = errors.New("baseline must be positive")

// ReductionTarget is the operation-count reduction, in percent, a run is
// expected to hit. The 2n -> n operation model yields 50% algebraically;
// deployments wanting a stricter bar can raise it.
var ReductionTarget = 50.0

// Improvement returns the percentage improvement of optimized over
// baseline: (baseline - optimized) / baseline * 100.
func Improvement(baseline, optimized float64) (float64, error) {
	if baseline <= 0 {
		return 0, fmt.Errorf("cannot compute improvement over baseline %v: %w", baseline, ErrInvalidBaseline)
	}
	return (baseline - optimized) / baseline * 100, nil
}

// OperationCount charges network operations to a strategy for n files:
// direct sync makes one hop per file, traditional makes two (download and
// upload).
func OperationCount(strategy string, n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("file count must be non-negative, got %d", n)
	}
	switch strategy {
	case StrategyDirectSync:
		return n, nil
	case StrategyTraditional:
		return 2 * n, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q", strategy)
	}
}

// OperationReduction returns the percentage of operations saved by the
// direct path relative to the traditional path.
func OperationReduction(traditionalOps, directOps int) (float64, error) {
	if traditionalOps <= 0 {
		return 0, fmt.Errorf("cannot compute reduction over %d traditional operations: %w",
			traditionalOps, ErrInvalidBaseline)
	}
	return float64(traditionalOps-directOps) / float64(traditionalOps) * 100, nil
}

// MeetsReductionTarget reports whether a reduction percentage clears the
// configured target.
func MeetsReductionTarget(reduction float64) bool {
	return reduction >= ReductionTarget
}

// Throughput returns files per second over the given wall-clock duration.
func Throughput(files int, d time.Duration) float64 {
	if d <= 0 || files <= 0 {
		return 0
	}
	return float64(files) / d.Seconds()
}

// EfficiencyScore condenses a result set into a 0-100 score. A job that
// completed on the direct path scores full marks, a job that needed local
// staging scores 70, and a failed job scores nothing.
func EfficiencyScore(results []transfer.Result) float64 {
	if len(results) == 0 {
		return 0
	}

	var sum float64
	for _, r := range results {
		if r.Status != transfer.StatusCompleted {
			continue
		}
		if r.StrategyName == StrategyDirectSync && !r.FallbackTriggered {
			sum += 1.0
		} else {
			sum += 0.7
		}
	}

	score := 100 * sum / float64(len(results))
	if score > 100 {
		score = 100
	}
	return score
}
