package store

import (
	"path/filepath"
	"testing"
)

func TestBoltStore_SaveAndGetJob(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	store, err := NewBoltStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create BoltStore: %v", err)
	}
	defer store.Close()

	// Initial job
	job := &JobRecord{
		ID:          "job-123",
		Source:      "s3://src/obj.txt",
		Destination: "s3://dst/obj.txt",
		State:       StateInProgress,
		Strategy:    "direct_sync",
		SizeHint:    1024,
	}

	err = store.SaveJob(job)
	if err != nil {
		t.Fatalf("Failed to save job: %v", err)
	}

	// Retrieve job
	retrievedJob, err := store.GetJob("job-123")
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}

	if retrievedJob.ID != job.ID {
		t.Errorf("Expected job ID %s, got %s", job.ID, retrievedJob.ID)
	}
	if retrievedJob.State != job.State {
		t.Errorf("Expected job State %s, got %s", job.State, retrievedJob.State)
	}
	if retrievedJob.Strategy != "direct_sync" {
		t.Errorf("Expected strategy direct_sync, got %s", retrievedJob.Strategy)
	}

	// Update the record with the final outcome
	job.State = StateCompleted
	job.Strategy = "traditional"
	job.FallbackTriggered = true
	job.OperationCount = 2
	job.BytesStaged = 1024
	err = store.SaveJob(job)
	if err != nil {
		t.Fatalf("Failed to update job: %v", err)
	}

	// Retrieve updated job
	retrievedJob, err = store.GetJob("job-123")
	if err != nil {
		t.Fatalf("Failed to get updated job: %v", err)
	}

	if retrievedJob.State != StateCompleted {
		t.Errorf("Expected updated job State %s, got %s", StateCompleted, retrievedJob.State)
	}
	if !retrievedJob.FallbackTriggered {
		t.Error("Expected fallback flag to round-trip")
	}
	if retrievedJob.OperationCount != 2 {
		t.Errorf("Expected 2 operations, got %d", retrievedJob.OperationCount)
	}
	if retrievedJob.BytesStaged != 1024 {
		t.Errorf("Expected 1024 staged bytes, got %d", retrievedJob.BytesStaged)
	}

	// Non-existent job
	_, err = store.GetJob("non-existent")
	if err != ErrJobNotFound {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
}

func TestBoltStore_FailedJobKeepsErrorKind(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test_failed.db")

	store, err := NewBoltStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create BoltStore: %v", err)
	}
	defer store.Close()

	job := &JobRecord{
		ID:          "job-err",
		Source:      "s3://src/obj.txt",
		Destination: "s3://dst/obj.txt",
		State:       StateFailed,
		ErrorKind:   "TIMEOUT",
		Error:       "copy tool exceeded its deadline",
	}
	if err := store.SaveJob(job); err != nil {
		t.Fatalf("Failed to save job: %v", err)
	}

	retrieved, err := store.GetJob("job-err")
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if retrieved.ErrorKind != "TIMEOUT" {
		t.Errorf("Expected error kind TIMEOUT, got %s", retrieved.ErrorKind)
	}
	if retrieved.Error == "" {
		t.Error("Expected the error message to round-trip")
	}
}

func TestBoltStore_Close(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test_close.db")

	store, err := NewBoltStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create BoltStore: %v", err)
	}

	err = store.Close()
	if err != nil {
		t.Errorf("Failed to close BoltStore: %v", err)
	}

	// Try to get a job on closed store
	_, err = store.GetJob("job-123")
	if err == nil {
		t.Error("Expected error when accessing closed store, got nil")
	}
}
