package transfer

import (
	"bytes"
	"io"
	"testing"
)

func TestChecksumWriter(t *testing.T) {
	data := []byte("staged object payload")

	var buf bytes.Buffer
	cw := NewChecksumWriter(&buf)

	n, err := cw.Write(data)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != len(data) {
		t.Errorf("expected to write %d bytes, got %d", len(data), n)
	}
	if buf.String() != string(data) {
		t.Errorf("expected buffer to contain %q, got %q", data, buf.String())
	}
	if cw.Checksum() == 0 {
		t.Error("expected non-zero checksum")
	}
	if cw.BytesWritten() != int64(len(data)) {
		t.Errorf("expected %d bytes written, got %d", len(data), cw.BytesWritten())
	}
}

func TestChecksumReader(t *testing.T) {
	data := []byte("staged object payload")

	cr := NewChecksumReader(bytes.NewReader(data))

	readData := make([]byte, len(data))
	n, err := cr.Read(readData)
	if err != nil && err != io.EOF {
		t.Fatalf("Read failed: %v", err)
	}
	if n != len(data) {
		t.Errorf("expected to read %d bytes, got %d", len(data), n)
	}
	if !bytes.Equal(readData, data) {
		t.Errorf("expected read data to match %q, got %q", data, readData)
	}
	if cr.BytesRead() != int64(len(data)) {
		t.Errorf("expected %d bytes read, got %d", len(data), cr.BytesRead())
	}
}

// The two legs of a staged copy must agree on the checksum of identical
// bytes; the traditional strategy relies on this to detect corruption.
func TestChecksumLegsAgree(t *testing.T) {
	data := []byte("bytes that travel down and then back up")

	var buf bytes.Buffer
	cw := NewChecksumWriter(&buf)
	if _, err := cw.Write(data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	cr := NewChecksumReader(bytes.NewReader(data))
	if _, err := io.Copy(io.Discard, cr); err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if cw.Checksum() != cr.Checksum() {
		t.Errorf("download leg checksum %x != upload leg checksum %x",
			cw.Checksum(), cr.Checksum())
	}

	// A corrupted staged copy must not agree.
	corrupted := append([]byte{}, data...)
	corrupted[0] ^= 0xFF
	cr2 := NewChecksumReader(bytes.NewReader(corrupted))
	if _, err := io.Copy(io.Discard, cr2); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if cw.Checksum() == cr2.Checksum() {
		t.Error("corrupted bytes produced the same checksum")
	}
}
