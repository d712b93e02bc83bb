package index

import (
	"fmt"
	"math"

	"github.com/hupe1980/retrodb/internal/conv"
	"github.com/hupe1980/retrodb/internal/mmap"
	"github.com/hupe1980/retrodb/persistence"
)

// Index is a read-only chunk index. Views returned by its accessors alias
// the mapped file and are valid until Close.
type Index struct {
	path string
	m    *mmap.Mapping

	dtype       persistence.DType
	retrievalDB bool
	chunkSize   int

	sizes        persistence.Int32View
	pointers     persistence.Int64View
	chunkIDStart persistence.Int64View
	chunkAddress persistence.Int64View
}

// Open memory-maps and validates the index file at path.
func Open(path string) (*Index, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}
	idx, err := Parse(m.Bytes())
	if err != nil {
		_ = m.Close()
		return nil, persistence.NewFormatError(path, "", err)
	}
	idx.path = path
	idx.m = m
	return idx, nil
}

// Parse decodes an index held in memory. The returned Index aliases b.
func Parse(b []byte) (*Index, error) {
	r := persistence.NewSliceReader(b)
	if err := r.ReadMagic(persistence.IndexMagic); err != nil {
		return nil, err
	}

	code, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	dtype, err := persistence.ParseDType(code)
	if err != nil {
		return nil, err
	}

	flag, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if flag > 1 {
		return nil, fmt.Errorf("%w: retrieval flag %d", persistence.ErrFormat, flag)
	}

	rawChunkSize, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	chunkSize, err := conv.Uint64ToInt32(rawChunkSize)
	if err != nil || chunkSize == 0 {
		return nil, fmt.Errorf("%w: chunk size %d", persistence.ErrFormat, rawChunkSize)
	}

	n, err := readCount(r)
	if err != nil {
		return nil, err
	}
	chunks, err := readCount(r)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		dtype:       dtype,
		retrievalDB: flag == 1,
		chunkSize:   chunkSize,
	}
	if idx.sizes, err = r.ReadInt32View(n); err != nil {
		return nil, err
	}
	if idx.pointers, err = r.ReadInt64View(n); err != nil {
		return nil, err
	}
	if idx.chunkIDStart, err = r.ReadInt64View(n); err != nil {
		return nil, err
	}
	if idx.chunkAddress, err = r.ReadInt64View(chunks); err != nil {
		return nil, err
	}
	if rest := len(r.Remaining()); rest != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", persistence.ErrFormat, rest)
	}
	return idx, nil
}

func readCount(r *persistence.SliceReader) (int, error) {
	v, err := r.ReadUint64()
	if err != nil {
		return 0, err
	}
	n, err := conv.Uint64ToInt(v)
	if err != nil || v > math.MaxInt32*8 {
		return 0, fmt.Errorf("%w: implausible count %d", persistence.ErrFormat, v)
	}
	return n, nil
}

// Close unmaps the file. Views obtained earlier become invalid.
func (idx *Index) Close() error {
	if idx.m == nil {
		return nil
	}
	return idx.m.Close()
}

// Path returns the file the index was opened from, or "" for Parse.
func (idx *Index) Path() string { return idx.path }

// DType returns the element type of the companion data blob.
func (idx *Index) DType() persistence.DType { return idx.dtype }

// ChunkSize returns the chunk width in elements.
func (idx *Index) ChunkSize() int { return idx.chunkSize }

// RetrievalDB reports whether each record reserves a trailing lookahead chunk.
func (idx *Index) RetrievalDB() bool { return idx.retrievalDB }

// Len returns the number of records.
func (idx *Index) Len() int { return idx.sizes.Len() }

// NumChunks returns the number of addressable chunks.
func (idx *Index) NumChunks() int { return idx.chunkAddress.Len() }

// Sizes returns the unpadded record lengths.
func (idx *Index) Sizes() persistence.Int32View { return idx.sizes }

// Pointers returns the byte offset of every record in the data blob.
func (idx *Index) Pointers() persistence.Int64View { return idx.pointers }

// ChunkIDStart returns the first chunk id of every record.
func (idx *Index) ChunkIDStart() persistence.Int64View { return idx.chunkIDStart }

// ChunkAddress returns the byte offset of every chunk in the data blob.
func (idx *Index) ChunkAddress() persistence.Int64View { return idx.chunkAddress }

// Size returns the unpadded length of record i. It panics if i is out of range.
func (idx *Index) Size(i int) int { return int(idx.sizes.At(i)) }

// PaddedSize returns the chunk-rounded length of record i.
func (idx *Index) PaddedSize(i int) int { return PaddedSize(idx.Size(i), idx.chunkSize) }

// StoredSize returns the number of elements record i occupies in the data blob.
func (idx *Index) StoredSize(i int) int {
	return StoredSize(idx.Size(i), idx.chunkSize, idx.retrievalDB)
}

// DataSize returns the byte length the companion data blob must have.
func (idx *Index) DataSize() int64 {
	n := idx.Len()
	if n == 0 {
		return 0
	}
	return idx.pointers.At(n-1) + int64(idx.StoredSize(n-1))*int64(idx.dtype.ItemSize())
}

// WindowSize returns the number of elements a chunk read returns: one chunk,
// or a chunk plus its lookahead in retrieval mode.
func (idx *Index) WindowSize() int {
	if idx.retrievalDB {
		return 2 * idx.chunkSize
	}
	return idx.chunkSize
}

// Verify recomputes the derived arrays from the record sizes and checks
// that the stored ones match bit for bit.
func (idx *Index) Verify() error {
	sizes := idx.sizes.Ints()
	for i, s := range sizes {
		if s < 0 {
			return idx.verifyErr(fmt.Sprintf("record %d has negative size %d", i, s))
		}
	}
	want := ComputeLayout(sizes, idx.chunkSize, idx.dtype.ItemSize(), idx.retrievalDB)

	if err := compareView("pointers", idx.pointers, want.Pointers); err != nil {
		return idx.verifyErr(err.Error())
	}
	if err := compareView("chunk id start", idx.chunkIDStart, want.ChunkIDStart); err != nil {
		return idx.verifyErr(err.Error())
	}
	if err := compareView("chunk address", idx.chunkAddress, want.ChunkAddress); err != nil {
		return idx.verifyErr(err.Error())
	}
	return nil
}

func (idx *Index) verifyErr(reason string) error {
	return persistence.NewFormatError(idx.path, reason, nil)
}

func compareView(name string, got persistence.Int64View, want []int64) error {
	if got.Len() != len(want) {
		return fmt.Errorf("%s: %d entries stored, %d expected", name, got.Len(), len(want))
	}
	for i, w := range want {
		if g := got.At(i); g != w {
			return fmt.Errorf("%s[%d] = %d, expected %d", name, i, g, w)
		}
	}
	return nil
}
