package transfer

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// DefaultDirectSyncTimeout bounds a single copy-tool invocation when the
// caller does not configure one.
const DefaultDirectSyncTimeout = 10 * time.Minute

// ensure interface is implemented
var _ Strategy = (*DirectSync)(nil)

// DirectSync moves an object endpoint-to-endpoint by invoking an external
// copy tool (rclone or compatible), using zero local storage. The tool's
// wire protocol is opaque to us: one invocation either moves the whole job
// or fails as a unit.
type DirectSync struct {
	// ToolPath is the copy tool executable, resolved through PATH when not
	// absolute.
	ToolPath string

	// Transfers is passed to the tool as its internal worker count.
	Transfers int

	// Timeout bounds the invocation; on expiry the tool's whole process
	// group is killed.
	Timeout time.Duration

	// ExtraArgs are appended verbatim to every invocation.
	ExtraArgs []string

	log zerolog.Logger
}

// NewDirectSync creates a DirectSync strategy around the given tool.
func NewDirectSync(toolPath string, timeout time.Duration) *DirectSync {
	if timeout <= 0 {
		timeout = DefaultDirectSyncTimeout
	}
	return &DirectSync{
		ToolPath: toolPath,
		Timeout:  timeout,
		log:      zerolog.Nop(),
	}
}

// WithLogger attaches a logger to the strategy.
func (s *DirectSync) WithLogger(log zerolog.Logger) *DirectSync {
	s.log = log
	return s
}

func (s *DirectSync) Name() string { return "direct_sync" }

// Execute runs one copy-tool invocation for the job. All failure modes come
// back as a failed Result with FallbackTriggered set, so the job can be
// promoted to the traditional path exactly once.
func (s *DirectSync) Execute(ctx context.Context, job Job) Result {
	start := time.Now()
	res := Result{
		JobID:        job.ID,
		StrategyName: s.Name(),
		// No local staging on this path, so there is never anything to
		// clean up.
		LocalCleanupCompleted: true,
	}

	tool, err := exec.LookPath(s.ToolPath)
	if err != nil {
		return s.fail(res, start, ErrKindToolUnavailable,
			fmt.Sprintf("copy tool %q is not installed or not executable: %v", s.ToolPath, err))
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	args := []string{"copyto", job.Source, job.Destination}
	if s.Transfers > 0 {
		args = append(args, fmt.Sprintf("--transfers=%d", s.Transfers))
	}
	args = append(args, s.ExtraArgs...)

	cmd := exec.CommandContext(ctx, tool, args...)
	// Run the tool in its own process group so cancellation takes down any
	// children it spawned, not just the tool itself.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = time.Second

	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return s.fail(res, start, ErrKindTimeout,
				fmt.Sprintf("copy tool did not finish %s -> %s within %s and its process group was killed",
					job.Source, job.Destination, s.Timeout))
		}
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			msg = err.Error()
		}
		return s.fail(res, start, ErrKindExecution,
			fmt.Sprintf("copy tool exited with an error: %s", msg))
	}

	res.Status = StatusCompleted
	res.FilesTransferred = 1
	// Direct sync costs one network hop per file moved.
	res.OperationCount = res.FilesTransferred
	res.Duration = time.Since(start)
	return res
}

func (s *DirectSync) fail(res Result, start time.Time, kind ErrorKind, msg string) Result {
	res.Status = StatusFailed
	res.ErrorKind = kind
	res.ErrMessage = msg
	res.FallbackTriggered = true
	res.Duration = time.Since(start)
	s.log.Warn().
		Str("job", res.JobID).
		Str("error_kind", string(kind)).
		Msg("direct sync failed, job eligible for fallback")
	return res
}
