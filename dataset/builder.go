package dataset

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"unsafe"

	"github.com/hupe1980/retrodb/index"
	"github.com/hupe1980/retrodb/internal/fs"
	"github.com/hupe1980/retrodb/persistence"
)

var (
	// ErrFinalized is returned by Builder methods after Finalize.
	ErrFinalized = errors.New("dataset: builder finalized")
	// ErrClosed is returned by Builder methods after Close.
	ErrClosed = errors.New("dataset: builder closed")
	// ErrIncompatible is returned by MergeFile for datasets with a
	// different dtype, chunk size or retrieval mode.
	ErrIncompatible = errors.New("dataset: incompatible dataset")
)

// Builder appends records to a data file and finally writes its index.
//
// Each AddItem issues a single write. When a write fails the data file is
// truncated back to the last complete record and the builder keeps
// returning that first error.
type Builder[T persistence.Token] struct {
	path        string
	fs          fs.FileSystem
	f           fs.File
	chunkSize   int
	padID       T
	retrievalDB bool
	itemSize    int
	logger      *slog.Logger

	sizes     []int
	offset    int64
	buf       []byte
	err       error
	finalized bool
	closed    bool
}

// NewBuilder creates (or truncates) the data file at dataPath.
func NewBuilder[T persistence.Token](dataPath string, chunkSize int, padID T, retrievalDB bool, opts ...Option) (*Builder[T], error) {
	if chunkSize <= 0 || chunkSize > math.MaxInt32 {
		return nil, fmt.Errorf("dataset: chunk size must be in [1, %d], got %d", math.MaxInt32, chunkSize)
	}
	o := applyOptions(opts)

	f, err := fs.Create(o.fs, dataPath)
	if err != nil {
		return nil, fmt.Errorf("dataset: create %s: %w", dataPath, err)
	}

	var z T
	return &Builder[T]{
		path:        dataPath,
		fs:          o.fs,
		f:           f,
		chunkSize:   chunkSize,
		padID:       padID,
		retrievalDB: retrievalDB,
		itemSize:    int(unsafe.Sizeof(z)),
		logger:      o.logger.With("path", dataPath),
	}, nil
}

func (b *Builder[T]) usable() error {
	switch {
	case b.finalized:
		return ErrFinalized
	case b.closed:
		return ErrClosed
	}
	return b.err
}

// Len returns the number of records added so far.
func (b *Builder[T]) Len() int { return len(b.sizes) }

// Sizes returns a copy of the unpadded record lengths added so far.
func (b *Builder[T]) Sizes() []int {
	out := make([]int, len(b.sizes))
	copy(out, b.sizes)
	return out
}

// AddItem appends one record followed by its padding and, in retrieval
// mode, one extra chunk of padding.
func (b *Builder[T]) AddItem(tokens []T) error {
	if err := b.usable(); err != nil {
		return err
	}
	n := len(tokens)
	if n > math.MaxInt32 {
		return fmt.Errorf("dataset: record %d has %d tokens, limit is %d", len(b.sizes), n, math.MaxInt32)
	}

	b.buf = persistence.AppendTokens(b.buf[:0], tokens)
	b.buf = persistence.AppendRepeated(b.buf, b.padID, index.StoredSize(n, b.chunkSize, b.retrievalDB)-n)

	start := b.offset
	written, err := b.f.Write(b.buf)
	if err == nil && written != len(b.buf) {
		err = io.ErrShortWrite
	}
	b.offset += int64(written)
	if err != nil {
		return b.fail(start, fmt.Errorf("dataset: append record %d to %s: %w", len(b.sizes), b.path, err))
	}

	b.sizes = append(b.sizes, n)
	return nil
}

// fail rolls the data file back to committed and poisons the builder.
func (b *Builder[T]) fail(committed int64, err error) error {
	if b.offset != committed {
		terr := b.fs.Truncate(b.path, committed)
		if terr == nil {
			_, terr = b.f.Seek(committed, io.SeekStart)
		}
		if terr != nil {
			err = errors.Join(err, fmt.Errorf("dataset: roll back %s: %w", b.path, terr))
		} else {
			b.offset = committed
		}
	}
	b.err = err
	b.logger.Error("builder failed", "records", len(b.sizes), "offset", committed, "error", err)
	return err
}

// MergeFile appends every record of the finalized dataset at prefix.
// Its dtype, chunk size and retrieval mode must match the builder's.
func (b *Builder[T]) MergeFile(prefix string) error {
	if err := b.usable(); err != nil {
		return err
	}

	idx, err := index.Open(IndexPath(prefix))
	if err != nil {
		return err
	}
	defer idx.Close()

	if want := persistence.DTypeOf[T](); idx.DType() != want {
		return fmt.Errorf("%w: %s has dtype %s, builder has %s", ErrIncompatible, prefix, idx.DType(), want)
	}
	if idx.ChunkSize() != b.chunkSize {
		return fmt.Errorf("%w: %s has chunk size %d, builder has %d", ErrIncompatible, prefix, idx.ChunkSize(), b.chunkSize)
	}
	if idx.RetrievalDB() != b.retrievalDB {
		return fmt.Errorf("%w: %s has retrieval mode %t, builder has %t", ErrIncompatible, prefix, idx.RetrievalDB(), b.retrievalDB)
	}

	src, err := b.fs.OpenFile(DataPath(prefix), os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("dataset: open %s: %w", DataPath(prefix), err)
	}
	defer src.Close()

	size := idx.DataSize()
	start := b.offset
	copied, err := io.CopyN(b.f, src, size)
	b.offset += copied
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = persistence.NewFormatError(DataPath(prefix),
				fmt.Sprintf("data file has %d bytes, index describes %d", copied, size), nil)
		}
		return b.fail(start, fmt.Errorf("dataset: merge %s into %s: %w", prefix, b.path, err))
	}

	b.sizes = append(b.sizes, idx.Sizes().Ints()...)
	b.logger.Debug("dataset merged", "source", prefix, "records", idx.Len(), "bytes", size)
	return nil
}

// Finalize syncs and closes the data file, then writes the index to
// indexPath. The builder cannot be used afterwards.
func (b *Builder[T]) Finalize(indexPath string) error {
	if err := b.usable(); err != nil {
		return err
	}
	b.finalized = true

	if err := b.f.Sync(); err != nil {
		_ = b.f.Close()
		return fmt.Errorf("dataset: sync %s: %w", b.path, err)
	}
	if err := b.f.Close(); err != nil {
		return fmt.Errorf("dataset: close %s: %w", b.path, err)
	}

	if err := index.WriteFile(indexPath, persistence.DTypeOf[T](), b.retrievalDB, b.sizes, b.chunkSize,
		index.WithFileSystem(b.fs), index.WithLogger(b.logger)); err != nil {
		return err
	}

	b.logger.Info("dataset finalized",
		"index", indexPath,
		"records", len(b.sizes),
		"bytes", b.offset,
		"chunk_size", b.chunkSize,
		"retrieval_db", b.retrievalDB,
	)
	return nil
}

// Close releases the data file without writing an index. It is a no-op
// after Finalize and safe to defer.
func (b *Builder[T]) Close() error {
	if b.finalized || b.closed {
		return nil
	}
	b.closed = true
	if err := b.f.Close(); err != nil {
		return fmt.Errorf("dataset: close %s: %w", b.path, err)
	}
	return nil
}

// Build writes a complete dataset at prefix from records in one scope.
func Build[T persistence.Token](prefix string, records [][]T, chunkSize int, padID T, retrievalDB bool, opts ...Option) (err error) {
	b, err := NewBuilder(DataPath(prefix), chunkSize, padID, retrievalDB, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := b.Close(); err == nil {
			err = cerr
		}
	}()
	for _, rec := range records {
		if err := b.AddItem(rec); err != nil {
			return err
		}
	}
	return b.Finalize(IndexPath(prefix))
}
