package persistence

import (
	"encoding/binary"
	"fmt"
	"io"
)

// BinaryWriter writes little-endian header fields and integer arrays.
// The first error sticks; later writes are no-ops and Err reports it.
type BinaryWriter struct {
	w       io.Writer
	buf     [8]byte
	scratch []byte
	n       int64
	err     error
}

// NewBinaryWriter creates a new binary writer.
func NewBinaryWriter(w io.Writer) *BinaryWriter {
	return &BinaryWriter{w: w}
}

func (bw *BinaryWriter) write(p []byte) {
	if bw.err != nil {
		return
	}
	n, err := bw.w.Write(p)
	bw.n += int64(n)
	bw.err = err
}

// WriteMagic writes a file magic followed by the format version.
func (bw *BinaryWriter) WriteMagic(magic [MagicSize]byte) {
	bw.write(magic[:])
	bw.WriteUint64(Version)
}

// WriteUint8 writes a single byte.
func (bw *BinaryWriter) WriteUint8(v uint8) {
	bw.buf[0] = v
	bw.write(bw.buf[:1])
}

// WriteBool writes a boolean as a single 0/1 byte.
func (bw *BinaryWriter) WriteBool(v bool) {
	if v {
		bw.WriteUint8(1)
		return
	}
	bw.WriteUint8(0)
}

// WriteUint64 writes v as 8 little-endian bytes.
func (bw *BinaryWriter) WriteUint64(v uint64) {
	binary.LittleEndian.PutUint64(bw.buf[:], v)
	bw.write(bw.buf[:8])
}

// WriteInt32s writes every value of s as an int32.
func (bw *BinaryWriter) WriteInt32s(s []int32) {
	bw.scratch = bw.scratch[:0]
	for _, v := range s {
		bw.scratch = binary.LittleEndian.AppendUint32(bw.scratch, uint32(v))
	}
	bw.write(bw.scratch)
}

// WriteInt64s writes every value of s as an int64.
func (bw *BinaryWriter) WriteInt64s(s []int64) {
	bw.scratch = bw.scratch[:0]
	for _, v := range s {
		bw.scratch = binary.LittleEndian.AppendUint64(bw.scratch, uint64(v))
	}
	bw.write(bw.scratch)
}

// Write implements io.Writer for raw payloads.
func (bw *BinaryWriter) Write(p []byte) (int, error) {
	bw.write(p)
	if bw.err != nil {
		return 0, bw.err
	}
	return len(p), nil
}

// Written returns the number of bytes accepted by the underlying writer.
func (bw *BinaryWriter) Written() int64 { return bw.n }

// Err returns the first write error.
func (bw *BinaryWriter) Err() error { return bw.err }

// SliceReader provides bounds-checked reads from a byte slice.
// It is used by mmap loaders to decode headers without intermediate allocations.
// Every out-of-bounds read fails with an error matching ErrFormat.
type SliceReader struct {
	b   []byte
	off int
}

// NewSliceReader creates a reader positioned at the start of b.
func NewSliceReader(b []byte) *SliceReader {
	return &SliceReader{b: b}
}

// Offset returns the current read position.
func (r *SliceReader) Offset() int { return r.off }

// Remaining returns the unread tail.
func (r *SliceReader) Remaining() []byte {
	if r.off >= len(r.b) {
		return nil
	}
	return r.b[r.off:]
}

// ReadBytes returns the next n bytes without copying.
func (r *SliceReader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.b) || r.off+n < r.off {
		return nil, fmt.Errorf("%w: truncated read of %d bytes at offset %d (len=%d)", ErrFormat, n, r.off, len(r.b))
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out, nil
}

// ReadMagic checks the magic and version that open every file.
func (r *SliceReader) ReadMagic(magic [MagicSize]byte) error {
	b, err := r.ReadBytes(MagicSize)
	if err != nil {
		return fmt.Errorf("%w: missing magic", ErrFormat)
	}
	if string(b) != string(magic[:]) {
		return fmt.Errorf("%w: bad magic %q", ErrFormat, b)
	}
	v, err := r.ReadUint64()
	if err != nil {
		return err
	}
	if v != Version {
		return fmt.Errorf("%w: unsupported version %d", ErrFormat, v)
	}
	return nil
}

// ReadUint8 reads a single byte.
func (r *SliceReader) ReadUint8() (uint8, error) {
	b, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint64 reads 8 little-endian bytes.
func (r *SliceReader) ReadUint64() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadInt32View returns a zero-copy view over the next n int32 values.
func (r *SliceReader) ReadInt32View(n int) (Int32View, error) {
	if n < 0 || n > len(r.b)/4 {
		return Int32View{}, fmt.Errorf("%w: int32 array of %d elements exceeds file", ErrFormat, n)
	}
	b, err := r.ReadBytes(n * 4)
	if err != nil {
		return Int32View{}, err
	}
	return NewInt32View(b), nil
}

// ReadInt64View returns a zero-copy view over the next n int64 values.
func (r *SliceReader) ReadInt64View(n int) (Int64View, error) {
	if n < 0 || n > len(r.b)/8 {
		return Int64View{}, fmt.Errorf("%w: int64 array of %d elements exceeds file", ErrFormat, n)
	}
	b, err := r.ReadBytes(n * 8)
	if err != nil {
		return Int64View{}, err
	}
	return NewInt64View(b), nil
}
