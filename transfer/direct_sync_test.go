package transfer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeFakeTool drops an executable shell script standing in for the
// external copy tool.
func writeFakeTool(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fakecopy")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("failed to write fake tool: %v", err)
	}
	return path
}

func testJob() Job {
	return Job{
		ID:          "job-1",
		Source:      "s3://src-bucket/data/object.bin",
		Destination: "s3://dst-bucket/data/object.bin",
	}
}

func TestDirectSync_Success(t *testing.T) {
	tool := writeFakeTool(t, "exit 0\n")
	s := NewDirectSync(tool, time.Minute)

	res := s.Execute(context.Background(), testJob())

	if res.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", res.Status, res.ErrMessage)
	}
	if res.OperationCount != res.FilesTransferred {
		t.Errorf("direct sync must charge one operation per file: ops=%d files=%d",
			res.OperationCount, res.FilesTransferred)
	}
	if res.LocalStorageBytesUsed != 0 {
		t.Errorf("direct sync must use zero local storage, got %d", res.LocalStorageBytesUsed)
	}
	if !res.LocalCleanupCompleted {
		t.Error("cleanup is trivially complete on the direct path")
	}
	if res.FallbackTriggered {
		t.Error("successful run must not request fallback")
	}
}

func TestDirectSync_ToolUnavailable(t *testing.T) {
	s := NewDirectSync(filepath.Join(t.TempDir(), "no-such-tool"), time.Minute)

	res := s.Execute(context.Background(), testJob())

	if res.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", res.Status)
	}
	if res.ErrorKind != ErrKindToolUnavailable {
		t.Errorf("expected TOOL_UNAVAILABLE, got %s", res.ErrorKind)
	}
	if !res.FallbackTriggered {
		t.Error("missing tool must trigger fallback")
	}
	if res.ErrMessage == "" {
		t.Error("failed result must carry a message")
	}
}

func TestDirectSync_ExecutionError(t *testing.T) {
	tool := writeFakeTool(t, "echo 'bucket not reachable' >&2\nexit 3\n")
	s := NewDirectSync(tool, time.Minute)

	res := s.Execute(context.Background(), testJob())

	if res.ErrorKind != ErrKindExecution {
		t.Errorf("expected EXECUTION_ERROR, got %s", res.ErrorKind)
	}
	if !res.FallbackTriggered {
		t.Error("tool failure must trigger fallback")
	}
}

func TestDirectSync_TimeoutKillsProcess(t *testing.T) {
	tool := writeFakeTool(t, "sleep 30\n")
	s := NewDirectSync(tool, 100*time.Millisecond)

	start := time.Now()
	res := s.Execute(context.Background(), testJob())
	elapsed := time.Since(start)

	if res.ErrorKind != ErrKindTimeout {
		t.Fatalf("expected TIMEOUT, got %s (%s)", res.ErrorKind, res.ErrMessage)
	}
	if !res.FallbackTriggered {
		t.Error("timeout must trigger fallback")
	}
	// The invocation must not linger anywhere near the tool's sleep; the
	// process group has to be dead shortly after the deadline.
	if elapsed > 5*time.Second {
		t.Errorf("timed-out invocation took %s, process was not terminated", elapsed)
	}
}

func TestDirectSync_DefaultTimeout(t *testing.T) {
	s := NewDirectSync("rclone", 0)
	if s.Timeout != DefaultDirectSyncTimeout {
		t.Errorf("expected default timeout %s, got %s", DefaultDirectSyncTimeout, s.Timeout)
	}
}
