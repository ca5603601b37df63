package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/franksops/cloudsync/engine"
	"github.com/franksops/cloudsync/logging"
	"github.com/franksops/cloudsync/provider"
	"github.com/franksops/cloudsync/store"
	"github.com/franksops/cloudsync/syncer"
	"github.com/franksops/cloudsync/transfer"
	"github.com/franksops/cloudsync/ui"
)

var (
	runSource   string
	runDest     string
	runManifest string
	runTUI      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Enumerate and transfer objects",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runSource, "source", "", "Source locator (s3://bucket/prefix)")
	f.StringVar(&runDest, "dest", "", "Destination locator (s3://bucket/prefix)")
	f.StringVar(&runManifest, "manifest", "", "YAML manifest of jobs instead of --source/--dest")
	f.BoolVar(&runTUI, "tui", false, "Show interactive progress")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	resolver := provider.NewCachingResolver()

	var jobs []transfer.Job
	var err error
	switch {
	case runManifest != "":
		jobs, err = loadManifest(runManifest)
	case runSource != "" && runDest != "":
		jobs, err = enumerateJobs(ctx, resolver, runSource, runDest)
	default:
		return fmt.Errorf("either --manifest or both --source and --dest are required")
	}
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		log.Info().Msg("nothing to transfer")
		return nil
	}

	direct := transfer.NewDirectSync(cfg.ToolPath, cfg.Timeout).WithLogger(log)
	traditional := transfer.NewTraditional(resolver, cfg.ScratchDir).WithLogger(log)

	orch := engine.NewOrchestrator(direct, traditional, cfg.MaxParallel).
		WithLogger(log).
		WithRetryCount(cfg.RetryCount)

	if cfg.StateDir != "" {
		if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
		st, err := store.NewBoltStore(filepath.Join(cfg.StateDir, "state.db"))
		if err != nil {
			return fmt.Errorf("failed to open state store: %w", err)
		}
		defer st.Close()
		orch = orch.WithTracker(engine.NewJobTracker(st))
	}

	var teaProgram *tea.Program
	if runTUI {
		state := &ui.UIState{
			TotalJobs:  int64(len(jobs)),
			MaxWorkers: cfg.MaxParallel,
			StartedAt:  time.Now(),
			IsRunning:  true,
		}
		orch = orch.WithObserver(func(res transfer.Result) {
			state.RecordResult(res.Status == transfer.StatusCompleted,
				res.FallbackTriggered, res.LocalStorageBytesUsed)
		})

		teaProgram = tea.NewProgram(ui.NewTUIModel(state), tea.WithAltScreen())
		go func() {
			ticker := time.NewTicker(500 * time.Millisecond)
			defer ticker.Stop()
			for range ticker.C {
				teaProgram.Send(ui.TUIUpdateMsg{State: state})
				if state.Done {
					return
				}
			}
		}()
		go func() {
			_, _ = teaProgram.Run()
		}()
		defer func() {
			state.Done = true
			state.IsRunning = false
			teaProgram.Send(ui.TUIUpdateMsg{State: state})
			time.Sleep(200 * time.Millisecond)
			teaProgram.Quit()
		}()
	}

	manager := syncer.NewManager(orch).WithLogger(log)
	report, err := manager.Sync(ctx, jobs, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Sync complete: %d/%d jobs succeeded in %s (%d batches, %d fallbacks, efficiency %.1f)\n",
		report.Completed(), len(report.Results), report.TotalProcessingTime.Round(time.Millisecond),
		report.BatchCount, report.Fallbacks(), report.EfficiencyScore)
	return nil
}

// enumerateJobs expands the source prefix into a job list before any
// transfer starts, so the manager can validate the full list up front.
func enumerateJobs(ctx context.Context, resolver provider.Resolver, source, dest string) ([]transfer.Job, error) {
	ch := make(engine.JobChannel, 1024)
	enum := engine.NewEnumerator(resolver, ch)

	errCh := make(chan error, 1)
	go func() {
		defer close(ch)
		errCh <- enum.Enumerate(ctx, source, dest)
	}()

	var jobs []transfer.Job
	for job := range ch {
		jobs = append(jobs, job)
	}
	if err := <-errCh; err != nil {
		return nil, fmt.Errorf("enumeration failed: %w", err)
	}
	return jobs, nil
}

// manifest is the on-disk YAML job list.
type manifest struct {
	Jobs []manifestJob `yaml:"jobs"`
}

type manifestJob struct {
	Source          string `yaml:"source"`
	Destination     string `yaml:"destination"`
	SizeHint        int64  `yaml:"size_hint"`
	Priority        int    `yaml:"priority"`
	RequiresStaging bool   `yaml:"requires_staging"`
}

func loadManifest(path string) ([]transfer.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	jobs := make([]transfer.Job, 0, len(m.Jobs))
	for _, j := range m.Jobs {
		jobs = append(jobs, transfer.Job{
			ID:              uuid.NewString(),
			Source:          j.Source,
			Destination:     j.Destination,
			SizeHint:        j.SizeHint,
			Priority:        j.Priority,
			RequiresStaging: j.RequiresStaging,
		})
	}
	return jobs, nil
}
