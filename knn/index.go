package knn

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/retrodb/internal/conv"
	"github.com/hupe1980/retrodb/internal/mmap"
	"github.com/hupe1980/retrodb/persistence"
)

// Index is a read-only, memory-mapped neighbor table.
// It is safe for concurrent use by multiple goroutines.
type Index struct {
	path    string
	m       *mmap.Mapping
	startID int64
	endID   int64
	table   Table
}

// Open memory-maps and validates the table file at path.
func Open(path string) (*Index, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("knn: open %s: %w", path, err)
	}
	// lookups are keyed by chunk id and hit rows in no particular order
	_ = m.Advise(mmap.AccessRandom)
	idx, err := Parse(m.Bytes())
	if err != nil {
		_ = m.Close()
		return nil, persistence.NewFormatError(path, "", err)
	}
	idx.path = path
	idx.m = m
	return idx, nil
}

// Parse decodes a table held in memory. The returned Index aliases b.
func Parse(b []byte) (*Index, error) {
	r := persistence.NewSliceReader(b)
	if err := r.ReadMagic(persistence.KNNMagic); err != nil {
		return nil, err
	}

	rawK, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	k, err := conv.Uint64ToInt32(rawK)
	if err != nil || k == 0 {
		return nil, fmt.Errorf("%w: k %d", persistence.ErrFormat, rawK)
	}
	rawStart, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	rawEnd, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	start, errStart := conv.Uint64ToInt64(rawStart)
	end, errEnd := conv.Uint64ToInt64(rawEnd)
	if errStart != nil || errEnd != nil || end < start {
		return nil, fmt.Errorf("%w: chunk range [%d, %d)", persistence.ErrFormat, rawStart, rawEnd)
	}

	rows := end - start
	if rows > int64(len(b)/8/k) {
		return nil, fmt.Errorf("%w: %d rows of %d neighbors exceed file", persistence.ErrFormat, rows, k)
	}
	view, err := r.ReadInt64View(int(rows) * k)
	if err != nil {
		return nil, err
	}
	if rest := len(r.Remaining()); rest != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes, table was not closed", persistence.ErrFormat, rest)
	}

	return &Index{
		startID: start,
		endID:   end,
		table:   Table{view: view, k: k},
	}, nil
}

// Close unmaps the file. Views obtained earlier become invalid.
func (idx *Index) Close() error {
	if idx.m == nil {
		return nil
	}
	return idx.m.Close()
}

// Path returns the file the table was opened from.
func (idx *Index) Path() string { return idx.path }

// K returns the number of neighbors per chunk.
func (idx *Index) K() int { return idx.table.k }

// Len returns the number of rows.
func (idx *Index) Len() int { return idx.table.Rows() }

// ChunkStartID returns the chunk id of row 0.
func (idx *Index) ChunkStartID() int64 { return idx.startID }

// ChunkEndID returns one past the chunk id of the last row.
func (idx *Index) ChunkEndID() int64 { return idx.endID }

// Map returns the whole table as a zero-copy view.
func (idx *Index) Map() Table { return idx.table }

// Contains reports whether chunkID has a row.
func (idx *Index) Contains(chunkID int64) bool {
	return chunkID >= idx.startID && chunkID < idx.endID
}

func (idx *Index) row(chunkID int64) (Table, error) {
	if !idx.Contains(chunkID) {
		return Table{}, &persistence.IndexError{
			What:   "chunk",
			Index:  int(chunkID),
			Len:    int(idx.endID),
			Reason: fmt.Sprintf("outside [%d, %d)", idx.startID, idx.endID),
		}
	}
	r := int(chunkID - idx.startID)
	return idx.table.Slice(r, r+1), nil
}

// Neighbors returns a copy of the K neighbor ids of chunkID.
func (idx *Index) Neighbors(chunkID int64) ([]int64, error) {
	row, err := idx.row(chunkID)
	if err != nil {
		return nil, err
	}
	return row.view.Copy(), nil
}

// FilteredNeighbors returns the neighbors of chunkID in order, without the
// ids in exclude. A nil exclude set filters nothing.
func (idx *Index) FilteredNeighbors(chunkID int64, exclude *roaring64.Bitmap) ([]int64, error) {
	row, err := idx.row(chunkID)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, row.K())
	for j := range row.K() {
		id := row.At(0, j)
		if exclude != nil && id >= 0 && exclude.Contains(uint64(id)) {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}
