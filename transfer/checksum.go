package transfer

import (
	"hash"
	"hash/crc64"
	"io"
)

// The traditional strategy checksums both legs of a staged copy: the
// download leg through a ChecksumWriter, the upload leg through a
// ChecksumReader. Matching sums prove the bytes that left the scratch path
// are the bytes that arrived in it.

// ChecksumWriter computes a CRC64 of everything written through it.
type ChecksumWriter struct {
	w    io.Writer
	hash hash.Hash64
	n    int64
}

// NewChecksumWriter wraps w with CRC64 accounting.
func NewChecksumWriter(w io.Writer) *ChecksumWriter {
	return &ChecksumWriter{
		w:    w,
		hash: crc64.New(crc64.MakeTable(crc64.ISO)),
	}
}

func (cw *ChecksumWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if n > 0 {
		cw.n += int64(n)
		cw.hash.Write(p[:n])
	}
	return n, err
}

// Checksum returns the CRC64 of the bytes written so far.
func (cw *ChecksumWriter) Checksum() uint64 {
	return cw.hash.Sum64()
}

// BytesWritten returns the total bytes written through the wrapper.
func (cw *ChecksumWriter) BytesWritten() int64 {
	return cw.n
}

// ChecksumReader computes a CRC64 of everything read through it.
type ChecksumReader struct {
	r    io.Reader
	hash hash.Hash64
	n    int64
}

// NewChecksumReader wraps r with CRC64 accounting.
func NewChecksumReader(r io.Reader) *ChecksumReader {
	return &ChecksumReader{
		r:    r,
		hash: crc64.New(crc64.MakeTable(crc64.ISO)),
	}
}

func (cr *ChecksumReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.n += int64(n)
		cr.hash.Write(p[:n])
	}
	return n, err
}

// Checksum returns the CRC64 of the bytes read so far.
func (cr *ChecksumReader) Checksum() uint64 {
	return cr.hash.Sum64()
}

// BytesRead returns the total bytes read through the wrapper.
func (cr *ChecksumReader) BytesRead() int64 {
	return cr.n
}
