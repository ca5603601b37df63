package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/franksops/cloudsync/provider"
)

// ensure interface is implemented
var _ Strategy = (*Traditional)(nil)

// Traditional moves an object by downloading it into an exclusively-owned
// scratch directory and uploading the staged copy to the destination. The
// scratch directory is removed on every exit path, and no fault escapes
// Execute unconverted: panics inside either transfer leg become failed
// Results.
type Traditional struct {
	resolver    provider.Resolver
	scratchRoot string
	buffers     *BufferPool
	log         zerolog.Logger
}

// NewTraditional creates a Traditional strategy staging under scratchRoot.
// An empty scratchRoot uses the system temp directory.
func NewTraditional(resolver provider.Resolver, scratchRoot string) *Traditional {
	return &Traditional{
		resolver:    resolver,
		scratchRoot: scratchRoot,
		buffers:     NewBufferPool(0),
		log:         zerolog.Nop(),
	}
}

// WithLogger attaches a logger to the strategy.
func (s *Traditional) WithLogger(log zerolog.Logger) *Traditional {
	s.log = log
	return s
}

func (s *Traditional) Name() string { return "traditional" }

// Execute downloads then uploads the job's object through a scratch path.
// The operation count is two (one download, one upload) regardless of how
// far the job gets.
func (s *Traditional) Execute(ctx context.Context, job Job) (res Result) {
	start := time.Now()
	res = Result{
		JobID:        job.ID,
		StrategyName: s.Name(),
		// Download plus upload, charged whether or not both legs run.
		OperationCount: 2,
	}

	defer func() {
		if r := recover(); r != nil {
			res.Status = StatusFailed
			res.ErrorKind = ErrKindExecution
			res.ErrMessage = fmt.Sprintf("unexpected fault during staged transfer: %v", r)
			s.log.Error().Str("job", job.ID).Msg(res.ErrMessage)
		}
		res.Duration = time.Since(start)
	}()

	srcProv, srcPath, err := s.resolver.Resolve(ctx, job.Source)
	if err != nil {
		return s.fail(res, fmt.Sprintf("cannot reach source %q: %v", job.Source, err))
	}
	dstProv, dstPath, err := s.resolver.Resolve(ctx, job.Destination)
	if err != nil {
		return s.fail(res, fmt.Sprintf("cannot reach destination %q: %v", job.Destination, err))
	}

	scratch, err := os.MkdirTemp(s.scratchRoot, "cloudsync-scratch-*")
	if err != nil {
		return s.fail(res, fmt.Sprintf("cannot acquire scratch path: %v", err))
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			s.log.Error().Str("job", job.ID).Str("scratch", scratch).
				Err(rmErr).Msg("failed to remove scratch path")
			return
		}
		res.LocalCleanupCompleted = true
	}()

	staged := filepath.Join(scratch, "object")

	staging, downloadSum, err := s.download(ctx, srcProv, srcPath, staged)
	res.LocalStorageBytesUsed = staging
	if err != nil {
		return s.fail(res, fmt.Sprintf("download failed: %v", err))
	}
	res.LocalDownloadCompleted = true

	uploadSum, err := s.upload(ctx, dstProv, dstPath, staged)
	if err != nil {
		return s.fail(res, fmt.Sprintf("upload failed: %v", err))
	}
	if uploadSum != downloadSum {
		return s.fail(res, fmt.Sprintf(
			"staged copy corrupted: download checksum %x does not match upload checksum %x",
			downloadSum, uploadSum))
	}
	res.LocalUploadCompleted = true

	res.Status = StatusCompleted
	res.FilesTransferred = 1
	return res
}

// download streams the source object into the staged file, returning the
// bytes staged and the CRC64 of the stream.
func (s *Traditional) download(ctx context.Context, src provider.Provider, srcPath, staged string) (int64, uint64, error) {
	reader, err := src.OpenRead(ctx, srcPath)
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	file, err := os.Create(staged)
	if err != nil {
		return 0, 0, err
	}

	cw := NewChecksumWriter(file)
	buf := s.buffers.Get()
	n, copyErr := io.CopyBuffer(cw, reader, *buf)
	s.buffers.Put(buf)

	if closeErr := file.Close(); copyErr == nil {
		copyErr = closeErr
	}
	return n, cw.Checksum(), copyErr
}

// upload streams the staged file to the destination, returning the CRC64 of
// the stream for comparison against the download leg.
func (s *Traditional) upload(ctx context.Context, dst provider.Provider, dstPath, staged string) (uint64, error) {
	file, err := os.Open(staged)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	writer, err := dst.OpenWrite(ctx, dstPath, nil)
	if err != nil {
		return 0, err
	}

	cr := NewChecksumReader(file)
	buf := s.buffers.Get()
	_, copyErr := io.CopyBuffer(writer, cr, *buf)
	s.buffers.Put(buf)

	if copyErr != nil {
		writer.Close()
		return 0, copyErr
	}
	// Close completes the upload on backends that flush on close.
	if err := writer.Close(); err != nil {
		return 0, err
	}
	return cr.Checksum(), nil
}

func (s *Traditional) fail(res Result, msg string) Result {
	res.Status = StatusFailed
	res.ErrorKind = ErrKindExecution
	res.ErrMessage = msg
	return res
}
