// Package syncer is the facade over the transfer core: it validates every
// locator up front, fail-closed, and then hands the job list to the
// orchestrator.
package syncer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/franksops/cloudsync/config"
	"github.com/franksops/cloudsync/engine"
	"github.com/franksops/cloudsync/metrics"
	"github.com/franksops/cloudsync/transfer"
	"github.com/franksops/cloudsync/validate"
)

// Manager coordinates one sync call. Construct it with its collaborators
// rather than reaching for shared state, so tests can substitute fakes.
type Manager struct {
	orch *engine.Orchestrator
	log  zerolog.Logger
}

// NewManager creates a Manager delegating to the given orchestrator.
func NewManager(orch *engine.Orchestrator) *Manager {
	return &Manager{orch: orch, log: zerolog.Nop()}
}

// WithLogger attaches a logger.
func (m *Manager) WithLogger(log zerolog.Logger) *Manager {
	m.log = log
	return m
}

// Sync validates every job's locators before any transfer starts: one
// invalid locator aborts the whole call and nothing is attempted. On
// success it returns the orchestrator's report unchanged.
func (m *Manager) Sync(ctx context.Context, jobs []transfer.Job, cfg config.Config) (*metrics.PerformanceReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration rejected: %w", err)
	}

	for _, job := range jobs {
		if job.Destination == "" {
			return nil, &validate.ValidationError{
				Locator:  job.Destination,
				Problems: []string{fmt.Sprintf("job %s has no destination configured", job.ID)},
			}
		}
		for _, locator := range []string{job.Source, job.Destination} {
			if res := validate.Validate(locator); !res.IsValid {
				return nil, &validate.ValidationError{Locator: locator, Problems: res.Errors}
			}
		}
	}

	m.log.Info().Int("jobs", len(jobs)).Msg("all locators validated, dispatching")
	return m.orch.ProcessBatch(ctx, jobs, engine.Options{
		BatchSizeLimit:      cfg.BatchSizeLimit,
		OptimizationEnabled: cfg.OptimizationEnabled,
		CollectMetrics:      cfg.CollectMetrics,
	})
}
