package transfer

import (
	"sync"
)

// DefaultBufferSize is the copy buffer size used for staged transfers.
// 1MB keeps syscall counts low without holding much memory per stream.
const DefaultBufferSize = 1 * 1024 * 1024

// BufferPool hands out reusable copy buffers so concurrent staged jobs do
// not churn the garbage collector.
type BufferPool struct {
	pool sync.Pool
}

// NewBufferPool creates a pool of buffers of the given size. A size of
// zero or less falls back to DefaultBufferSize.
func NewBufferPool(size int) *BufferPool {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &BufferPool{
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, size)
				return &b
			},
		},
	}
}

// Get retrieves a buffer. The caller must return it with Put when done.
func (bp *BufferPool) Get() *[]byte {
	return bp.pool.Get().(*[]byte)
}

// Put returns a buffer to the pool. The buffer must not be used after this.
func (bp *BufferPool) Put(b *[]byte) {
	if b != nil {
		bp.pool.Put(b)
	}
}
