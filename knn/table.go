package knn

import "github.com/hupe1980/retrodb/persistence"

// Table is a zero-copy row-major view of neighbor ids.
type Table struct {
	view persistence.Int64View
	k    int
}

// Rows returns the number of rows.
func (t Table) Rows() int {
	if t.k == 0 {
		return 0
	}
	return t.view.Len() / t.k
}

// K returns the number of columns.
func (t Table) K() int { return t.k }

// At returns column j of row i.
func (t Table) At(i, j int) int64 { return t.view.At(i*t.k + j) }

// Row returns a copy of row i.
func (t Table) Row(i int) []int64 { return t.view.Slice(i*t.k, (i+1)*t.k).Copy() }

// Slice returns rows [lo, hi) without copying.
func (t Table) Slice(lo, hi int) Table {
	return Table{view: t.view.Slice(lo*t.k, hi*t.k), k: t.k}
}

// Copy returns every row as a fresh slice.
func (t Table) Copy() [][]int64 {
	out := make([][]int64, t.Rows())
	for i := range out {
		out[i] = t.Row(i)
	}
	return out
}
