package knn

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/hupe1980/retrodb/internal/fs"
	"github.com/hupe1980/retrodb/persistence"
)

var (
	// ErrClosed is returned when using a Writer or Index after Close.
	ErrClosed = errors.New("knn: closed")
	// ErrNotContiguous is returned by Merge for shards whose chunk ranges
	// leave a gap or overlap.
	ErrNotContiguous = errors.New("knn: shards are not contiguous")
	// ErrMergeIntoSource is returned by Merge when dst names one of its shards.
	ErrMergeIntoSource = errors.New("knn: merge destination is a source shard")
)

const (
	// endIDOffset is the header position of chunk_end_id, after magic,
	// version, k and chunk_start_id.
	endIDOffset = persistence.MagicSize + 8*3
	// HeaderSize is the number of bytes before the first row.
	HeaderSize = endIDOffset + 8
)

// Writer appends neighbor rows to a table file. It is a scoped resource:
// always Close it, typically with defer. The file is only valid after
// Close has recorded the final chunk id.
type Writer struct {
	path    string
	k       int
	startID int64
	rows    int64

	f      fs.File
	buf    *bufio.Writer
	bw     *persistence.BinaryWriter
	logger *slog.Logger
	closed bool
}

// NewWriter creates (or truncates) the table file at path for rows of k
// neighbors.
func NewWriter(path string, k int, opts ...Option) (*Writer, error) {
	if k <= 0 || k > math.MaxInt32 {
		return nil, fmt.Errorf("knn: k must be in [1, %d], got %d", math.MaxInt32, k)
	}
	o := applyOptions(opts)
	if o.chunkStartID < 0 {
		return nil, fmt.Errorf("knn: negative chunk start id %d", o.chunkStartID)
	}

	f, err := fs.Create(o.fs, path)
	if err != nil {
		return nil, fmt.Errorf("knn: create %s: %w", path, err)
	}

	w := &Writer{
		path:    path,
		k:       k,
		startID: o.chunkStartID,
		f:       f,
		buf:     bufio.NewWriterSize(f, 256*1024),
		logger:  o.logger.With("path", path),
	}
	w.bw = persistence.NewBinaryWriter(w.buf)
	w.bw.WriteMagic(persistence.KNNMagic)
	w.bw.WriteUint64(uint64(k))
	w.bw.WriteUint64(uint64(w.startID))
	w.bw.WriteUint64(uint64(w.startID))
	if err := w.bw.Err(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("knn: write header %s: %w", path, err)
	}
	return w, nil
}

// K returns the row width.
func (w *Writer) K() int { return w.k }

// Len returns the number of rows written so far.
func (w *Writer) Len() int { return int(w.rows) }

// Write appends a batch of rows. Every row must have exactly K columns;
// otherwise a *persistence.ShapeError is returned and nothing from the
// batch is written. Earlier batches are unaffected.
func (w *Writer) Write(rows [][]int64) error {
	if w.closed {
		return ErrClosed
	}
	for i, row := range rows {
		if len(row) != w.k {
			return &persistence.ShapeError{Expected: w.k, Actual: len(row), Row: i}
		}
	}
	for _, row := range rows {
		w.bw.WriteInt64s(row)
	}
	if err := w.bw.Err(); err != nil {
		return fmt.Errorf("knn: write %s: %w", w.path, err)
	}
	w.rows += int64(len(rows))
	w.logger.Debug("knn batch written", "rows", len(rows), "total", w.rows)
	return nil
}

// writeTable appends the rows of t, which must have K columns.
func (w *Writer) writeTable(t Table) error {
	if w.closed {
		return ErrClosed
	}
	if t.K() != w.k {
		return &persistence.ShapeError{Expected: w.k, Actual: t.K()}
	}
	_, _ = w.bw.Write(t.view.Bytes())
	if err := w.bw.Err(); err != nil {
		return fmt.Errorf("knn: write %s: %w", w.path, err)
	}
	w.rows += int64(t.Rows())
	return nil
}

// Close flushes the rows, records the final chunk id in the header, syncs
// and closes the file. It is idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	if err := w.buf.Flush(); err != nil {
		errs = append(errs, err)
	} else if err := w.patchEndID(); err != nil {
		errs = append(errs, err)
	} else if err := w.f.Sync(); err != nil {
		errs = append(errs, err)
	}
	if err := w.f.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("knn: close %s: %w", w.path, err)
	}

	w.logger.Info("knn table written",
		"k", w.k,
		"chunk_start_id", w.startID,
		"chunk_end_id", w.startID+w.rows,
	)
	return nil
}

func (w *Writer) patchEndID() error {
	if _, err := w.f.Seek(endIDOffset, io.SeekStart); err != nil {
		return err
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(w.startID+w.rows))
	if _, err := w.f.Write(b[:]); err != nil {
		return err
	}
	_, err := w.f.Seek(0, io.SeekEnd)
	return err
}

// WriteFile writes a complete table in one scope.
func WriteFile(path string, k int, rows [][]int64, opts ...Option) (err error) {
	w, err := NewWriter(path, k, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	return w.Write(rows)
}
