package persistence

import (
	"errors"
	"fmt"
	"hash"
	"io"

	ihash "github.com/hupe1980/retrodb/internal/hash"
)

// Checksums use CRC32-Castagnoli. They detect accidental corruption of
// transferred corpus files; they are not a tamper check.

// ErrChecksumMismatch is matched by every *ChecksumMismatchError.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ChecksumWriter wraps an io.Writer and computes a running CRC32C.
type ChecksumWriter struct {
	w    io.Writer
	hash hash.Hash32
	n    int64
}

// NewChecksumWriter creates a new checksumming writer.
func NewChecksumWriter(w io.Writer) *ChecksumWriter {
	return &ChecksumWriter{w: w, hash: ihash.NewCRC32C()}
}

// Write implements io.Writer.
func (cw *ChecksumWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if n > 0 {
		_, _ = cw.hash.Write(p[:n])
		cw.n += int64(n)
	}
	return n, err
}

// Sum returns the checksum of everything written so far.
func (cw *ChecksumWriter) Sum() uint32 { return cw.hash.Sum32() }

// Size returns the number of bytes written so far.
func (cw *ChecksumWriter) Size() int64 { return cw.n }

// ChecksumReader wraps an io.Reader and computes a running CRC32C.
type ChecksumReader struct {
	r    io.Reader
	hash hash.Hash32
	n    int64
}

// NewChecksumReader creates a new checksumming reader.
func NewChecksumReader(r io.Reader) *ChecksumReader {
	return &ChecksumReader{r: r, hash: ihash.NewCRC32C()}
}

// Read implements io.Reader.
func (cr *ChecksumReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		_, _ = cr.hash.Write(p[:n])
		cr.n += int64(n)
	}
	return n, err
}

// Sum returns the checksum of everything read so far.
func (cr *ChecksumReader) Sum() uint32 { return cr.hash.Sum32() }

// Size returns the number of bytes read so far.
func (cr *ChecksumReader) Size() int64 { return cr.n }

// Verify checks the bytes read so far against the expected size and checksum.
func (cr *ChecksumReader) Verify(expectedSize int64, expected uint32) error {
	if cr.n != expectedSize || cr.Sum() != expected {
		return &ChecksumMismatchError{
			Expected:     expected,
			Actual:       cr.Sum(),
			ExpectedSize: expectedSize,
			ActualSize:   cr.n,
		}
	}
	return nil
}

// ChecksumMismatchError is returned when checksum verification fails.
type ChecksumMismatchError struct {
	Expected     uint32
	Actual       uint32
	ExpectedSize int64
	ActualSize   int64
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x (%d bytes), got 0x%08x (%d bytes)",
		e.Expected, e.ExpectedSize, e.Actual, e.ActualSize)
}

func (e *ChecksumMismatchError) Is(target error) bool { return target == ErrChecksumMismatch }
