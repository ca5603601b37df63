package metrics

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/process"
)

// LeakToleranceBytes is how much the post-workload heap may exceed the
// pre-workload heap, after a forced collection, before the sampler calls
// it a leak. Small residues from runtime bookkeeping stay under this.
const LeakToleranceBytes = 8 * 1024 * 1024

// MemorySample is a before/after view of process memory around a workload.
type MemorySample struct {
	// PeakRSSBytes is the process resident set right after the workload,
	// before the reclamation point.
	PeakRSSBytes uint64

	// HeapBeforeBytes and HeapAfterBytes are live heap sizes at the two
	// forced-GC fences around the workload.
	HeapBeforeBytes uint64
	HeapAfterBytes  uint64

	// LeakDetected is set when the post-run heap exceeds the pre-run heap
	// by more than LeakToleranceBytes despite the forced collection.
	LeakDetected bool

	// GCEffective is set when the forced collection actually shrank the
	// heap relative to its post-workload size.
	GCEffective bool
}

// SampleMemory runs the workload between two forced reclamation points and
// reports what the process memory did.
func SampleMemory(workload func()) MemorySample {
	runtime.GC()
	var before runtime.MemStats
	runtime.ReadMemStats(&before)

	workload()

	var during runtime.MemStats
	runtime.ReadMemStats(&during)
	rss := currentRSS()

	runtime.GC()
	var after runtime.MemStats
	runtime.ReadMemStats(&after)

	return MemorySample{
		PeakRSSBytes:    rss,
		HeapBeforeBytes: before.HeapAlloc,
		HeapAfterBytes:  after.HeapAlloc,
		LeakDetected:    after.HeapAlloc > before.HeapAlloc+LeakToleranceBytes,
		GCEffective:     after.HeapAlloc <= during.HeapAlloc,
	}
}

// currentRSS reads the process resident set size. A zero return means the
// platform would not report it; callers treat that as "unknown", not as an
// error.
func currentRSS() uint64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	info, err := proc.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}
	return info.RSS
}
