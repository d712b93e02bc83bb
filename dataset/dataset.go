package dataset

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/retrodb/index"
	"github.com/hupe1980/retrodb/internal/mmap"
	"github.com/hupe1980/retrodb/persistence"
)

// Dataset is a read-only, memory-mapped chunked token corpus.
// It is safe for concurrent use by multiple goroutines.
type Dataset[T persistence.Token] struct {
	prefix   string
	idx      *index.Index
	data     *mmap.Mapping
	bytes    []byte
	itemSize int
	logger   *slog.Logger
}

// Open maps prefix.idx and prefix.bin. It fails with persistence.ErrFormat
// when the index is invalid or its derived arrays disagree with the record
// sizes, when its dtype is not T, and when the data file is shorter than
// the index describes.
func Open[T persistence.Token](prefix string, opts ...Option) (*Dataset[T], error) {
	o := applyOptions(opts)

	idx, err := index.Open(IndexPath(prefix))
	if err != nil {
		return nil, err
	}
	if want := persistence.DTypeOf[T](); idx.DType() != want {
		_ = idx.Close()
		return nil, persistence.NewFormatError(IndexPath(prefix),
			fmt.Sprintf("dtype %s does not match requested %s", idx.DType(), want), nil)
	}

	// Record and chunk reads slice the data map at the stored offsets, so
	// they must agree with the record sizes before any of them is trusted.
	if err := idx.Verify(); err != nil {
		_ = idx.Close()
		return nil, err
	}
	want := idx.DataSize()

	data, err := mmap.Open(DataPath(prefix))
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("dataset: open %s: %w", DataPath(prefix), err)
	}
	if int64(data.Size()) < want {
		_ = idx.Close()
		_ = data.Close()
		return nil, persistence.NewFormatError(DataPath(prefix),
			fmt.Sprintf("data file has %d bytes, index describes %d", data.Size(), want), nil)
	}

	logger := o.logger.With("prefix", prefix)
	if err := data.Advise(o.advice); err != nil {
		logger.Warn("madvise failed", "pattern", o.advice.String(), "error", err)
	}

	var z T
	ds := &Dataset[T]{
		prefix:   prefix,
		idx:      idx,
		data:     data,
		bytes:    data.Bytes(),
		itemSize: int(unsafe.Sizeof(z)),
		logger:   logger,
	}
	logger.Debug("dataset opened",
		"records", idx.Len(),
		"chunks", idx.NumChunks(),
		"chunk_size", idx.ChunkSize(),
		"dtype", idx.DType().String(),
		"retrieval_db", idx.RetrievalDB(),
	)
	return ds, nil
}

// Exists reports whether both files of the dataset at prefix exist.
func Exists(prefix string) bool {
	for _, p := range []string{IndexPath(prefix), DataPath(prefix)} {
		if fi, err := os.Stat(p); err != nil || fi.IsDir() {
			return false
		}
	}
	return true
}

// Close unmaps both files. Slices returned earlier become invalid.
func (ds *Dataset[T]) Close() error {
	ierr := ds.idx.Close()
	derr := ds.data.Close()
	if ierr != nil {
		return ierr
	}
	return derr
}

// Prefix returns the path prefix the dataset was opened from.
func (ds *Dataset[T]) Prefix() string { return ds.prefix }

// Index returns the underlying chunk index.
func (ds *Dataset[T]) Index() *index.Index { return ds.idx }

// Len returns the number of records.
func (ds *Dataset[T]) Len() int { return ds.idx.Len() }

// Chunks returns the number of addressable chunks.
func (ds *Dataset[T]) Chunks() int { return ds.idx.NumChunks() }

// ChunkSize returns the chunk width in tokens.
func (ds *Dataset[T]) ChunkSize() int { return ds.idx.ChunkSize() }

// RetrievalDB reports whether chunk reads include a lookahead chunk.
func (ds *Dataset[T]) RetrievalDB() bool { return ds.idx.RetrievalDB() }

// DType returns the element type of the data blob.
func (ds *Dataset[T]) DType() persistence.DType { return ds.idx.DType() }

// Sizes returns the unpadded length of every record.
func (ds *Dataset[T]) Sizes() persistence.Int32View { return ds.idx.Sizes() }

func (ds *Dataset[T]) tokens(off int64, n int) []T {
	end := off + int64(n)*int64(ds.itemSize)
	return persistence.CastTokens[T](ds.bytes[off:end:end])
}

// Get returns record i without padding.
func (ds *Dataset[T]) Get(i int) ([]T, error) {
	if err := persistence.CheckIndex("record", i, ds.Len()); err != nil {
		return nil, err
	}
	return ds.tokens(ds.idx.Pointers().At(i), ds.idx.Size(i)), nil
}

// GetRange returns length tokens of record i starting at offset.
// The span must lie within the record's unpadded length.
func (ds *Dataset[T]) GetRange(i, offset, length int) ([]T, error) {
	if err := persistence.CheckIndex("record", i, ds.Len()); err != nil {
		return nil, err
	}
	size := ds.idx.Size(i)
	if err := persistence.CheckRange("token", offset, offset+length, size); err != nil {
		return nil, err
	}
	off := ds.idx.Pointers().At(i) + int64(offset)*int64(ds.itemSize)
	return ds.tokens(off, length), nil
}

// Slice returns records [start, stop), each trimmed like Get.
func (ds *Dataset[T]) Slice(start, stop int) ([][]T, error) {
	if err := persistence.CheckRange("record", start, stop, ds.Len()); err != nil {
		return nil, err
	}
	out := make([][]T, 0, stop-start)
	for i := start; i < stop; i++ {
		rec, err := ds.Get(i)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ChunkID returns the global id of the chunk starting at offset within
// record. The offset must be a multiple of the chunk size and lie inside
// the record's padded length.
func (ds *Dataset[T]) ChunkID(record, offset int) (int, error) {
	if err := persistence.CheckIndex("record", record, ds.Len()); err != nil {
		return 0, err
	}
	cs := ds.ChunkSize()
	if offset%cs != 0 {
		return 0, &persistence.IndexError{
			What:   "offset",
			Index:  offset,
			Reason: fmt.Sprintf("not aligned to chunk size %d", cs),
		}
	}
	if err := persistence.CheckIndex("offset", offset, ds.idx.PaddedSize(record)); err != nil {
		return 0, err
	}
	return int(ds.idx.ChunkIDStart().At(record)) + offset/cs, nil
}

// Chunk returns the window at chunk id: ChunkSize tokens, or twice that in
// retrieval mode. Padding is included.
func (ds *Dataset[T]) Chunk(id int) ([]T, error) {
	if err := persistence.CheckIndex("chunk", id, ds.Chunks()); err != nil {
		return nil, err
	}
	return ds.tokens(ds.idx.ChunkAddress().At(id), ds.idx.WindowSize()), nil
}

// ChunkSlice returns the windows of chunk ids [start, stop).
func (ds *Dataset[T]) ChunkSlice(start, stop int) ([][]T, error) {
	if err := persistence.CheckRange("chunk", start, stop, ds.Chunks()); err != nil {
		return nil, err
	}
	out := make([][]T, 0, stop-start)
	for id := start; id < stop; id++ {
		w, err := ds.Chunk(id)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// ChunkLocation maps a chunk id back to its record and token offset.
func (ds *Dataset[T]) ChunkLocation(id int) (record, offset int, err error) {
	if err := persistence.CheckIndex("chunk", id, ds.Chunks()); err != nil {
		return 0, 0, err
	}
	starts := ds.idx.ChunkIDStart()
	record = sort.Search(starts.Len(), func(i int) bool {
		return starts.At(i) > int64(id)
	}) - 1
	offset = (id - int(starts.At(record))) * ds.ChunkSize()
	return record, offset, nil
}

// RecordChunks returns the ids of every chunk of record i.
func (ds *Dataset[T]) RecordChunks(i int) (*roaring64.Bitmap, error) {
	if err := persistence.CheckIndex("record", i, ds.Len()); err != nil {
		return nil, err
	}
	start := uint64(ds.idx.ChunkIDStart().At(i))
	n := uint64(ds.idx.PaddedSize(i) / ds.ChunkSize())
	bm := roaring64.New()
	if n > 0 {
		bm.AddRange(start, start+n)
	}
	return bm, nil
}
