package index

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/hupe1980/retrodb/internal/fs"
	"github.com/hupe1980/retrodb/persistence"
)

var (
	// ErrClosed is returned when using a Writer or Index after Close.
	ErrClosed = errors.New("index: closed")
	// ErrAlreadyWritten is returned by a second call to Writer.Write.
	ErrAlreadyWritten = errors.New("index: already written")
)

// Writer writes one index file. It is a scoped resource: create it, call
// Write once, and always Close it, typically with defer.
type Writer struct {
	path        string
	dtype       persistence.DType
	retrievalDB bool

	f       fs.File
	buf     *bufio.Writer
	logger  *slog.Logger
	written bool
	closed  bool
}

// NewWriter creates (or truncates) the index file at path.
func NewWriter(path string, dtype persistence.DType, retrievalDB bool, opts ...Option) (*Writer, error) {
	if !dtype.Valid() {
		return nil, fmt.Errorf("index: unsupported dtype %s", dtype)
	}
	o := applyOptions(opts)

	f, err := fs.Create(o.fs, path)
	if err != nil {
		return nil, fmt.Errorf("index: create %s: %w", path, err)
	}

	return &Writer{
		path:        path,
		dtype:       dtype,
		retrievalDB: retrievalDB,
		f:           f,
		buf:         bufio.NewWriterSize(f, 256*1024),
		logger:      o.logger.With("path", path),
	}, nil
}

// Write stores the header and every array derived from the unpadded record
// sizes. It may be called once per Writer.
func (w *Writer) Write(sizes []int, chunkSize int) error {
	if w.closed {
		return ErrClosed
	}
	if w.written {
		return ErrAlreadyWritten
	}
	if chunkSize <= 0 {
		return fmt.Errorf("index: chunk size must be positive, got %d", chunkSize)
	}

	sizes32 := make([]int32, len(sizes))
	for i, s := range sizes {
		if s < 0 || s > math.MaxInt32 {
			return fmt.Errorf("index: record %d has invalid size %d", i, s)
		}
		sizes32[i] = int32(s)
	}
	w.written = true

	layout := ComputeLayout(sizes, chunkSize, w.dtype.ItemSize(), w.retrievalDB)

	bw := persistence.NewBinaryWriter(w.buf)
	bw.WriteMagic(persistence.IndexMagic)
	bw.WriteUint8(uint8(w.dtype))
	bw.WriteBool(w.retrievalDB)
	bw.WriteUint64(uint64(chunkSize))
	bw.WriteUint64(uint64(len(sizes)))
	bw.WriteUint64(uint64(len(layout.ChunkAddress)))
	bw.WriteInt32s(sizes32)
	bw.WriteInt64s(layout.Pointers)
	bw.WriteInt64s(layout.ChunkIDStart)
	bw.WriteInt64s(layout.ChunkAddress)
	if err := bw.Err(); err != nil {
		return fmt.Errorf("index: write %s: %w", w.path, err)
	}

	w.logger.Debug("index written",
		"records", len(sizes),
		"chunks", len(layout.ChunkAddress),
		"chunk_size", chunkSize,
		"dtype", w.dtype.String(),
		"retrieval_db", w.retrievalDB,
	)
	return nil
}

// Close flushes, syncs and closes the file. It is idempotent and always
// releases the file, even when flushing fails.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	if err := w.buf.Flush(); err != nil {
		errs = append(errs, err)
	}
	if err := w.f.Sync(); err != nil {
		errs = append(errs, err)
	}
	if err := w.f.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("index: close %s: %w", w.path, err)
	}
	return nil
}

// WriteFile writes a complete index file in one scope.
func WriteFile(path string, dtype persistence.DType, retrievalDB bool, sizes []int, chunkSize int, opts ...Option) (err error) {
	w, err := NewWriter(path, dtype, retrievalDB, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	return w.Write(sizes, chunkSize)
}
