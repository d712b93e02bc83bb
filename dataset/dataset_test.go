package dataset

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/retrodb/index"
	"github.com/hupe1980/retrodb/internal/fs"
	"github.com/hupe1980/retrodb/internal/mmap"
	"github.com/hupe1980/retrodb/persistence"
	"github.com/hupe1980/retrodb/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	chunkSize       = 64
	padID     int64 = 0
)

func sentences() [][]int64 {
	return [][]int64{
		testutil.Arange[int64](0, 200, 2),
		testutil.Arange[int64](1, 500, 2),
	}
}

func buildDataset[T persistence.Token](t *testing.T, records [][]T, cs int, pad T, retrieval bool, opts ...Option) string {
	t.Helper()
	prefix := filepath.Join(t.TempDir(), "corpus")
	require.NoError(t, Build(prefix, records, cs, pad, retrieval, opts...))
	return prefix
}

func openDataset[T persistence.Token](t *testing.T, prefix string, opts ...Option) *Dataset[T] {
	t.Helper()
	ds, err := Open[T](prefix, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

func TestDataset_RoundTrip(t *testing.T) {
	recs := sentences()
	ds := openDataset[int64](t, buildDataset(t, recs, chunkSize, padID, false))

	require.Equal(t, 2, ds.Len())
	assert.Equal(t, 6, ds.Chunks())
	assert.Equal(t, chunkSize, ds.ChunkSize())
	assert.False(t, ds.RetrievalDB())
	assert.Equal(t, persistence.Int64, ds.DType())
	assert.Equal(t, []int{100, 250}, ds.Sizes().Ints())

	for i, want := range recs {
		got, err := ds.Get(i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	all, err := ds.Slice(0, 2)
	require.NoError(t, err)
	assert.Equal(t, recs, all)

	empty, err := ds.Slice(1, 1)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDataset_RandomRoundTrip(t *testing.T) {
	rng := testutil.NewRNG(42)
	recs := testutil.Records[uint16](rng, 64, 0, 300, 50000)
	ds := openDataset[uint16](t, buildDataset(t, recs, 32, uint16(0), true))

	require.Equal(t, len(recs), ds.Len())
	for i, want := range recs {
		got, err := ds.Get(i)
		require.NoError(t, err)
		assert.Equal(t, len(want), len(got))
		if len(want) > 0 {
			assert.Equal(t, want, got)
		}
	}
	require.NoError(t, ds.Index().Verify())
}

func TestDataset_ChunkAddressing(t *testing.T) {
	recs := [][]int64{testutil.Arange[int64](0, 128, 1), testutil.Arange[int64](1000, 1100, 1)}
	ds := openDataset[int64](t, buildDataset(t, recs, chunkSize, int64(-1), false))

	first, err := ds.ChunkID(0, 0)
	require.NoError(t, err)
	second, err := ds.ChunkID(0, chunkSize)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, []int{first, second})

	c0, err := ds.Chunk(first)
	require.NoError(t, err)
	assert.Equal(t, recs[0][:64], c0)

	c1, err := ds.Chunk(second)
	require.NoError(t, err)
	assert.Equal(t, recs[0][64:], c1)

	third, err := ds.ChunkID(1, 64)
	require.NoError(t, err)
	assert.Equal(t, 3, third)

	c3, err := ds.Chunk(third)
	require.NoError(t, err)
	assert.Equal(t, testutil.Concat(recs[1][64:], testutil.Repeat(int64(-1), 28)), c3)
}

func TestDataset_Padding(t *testing.T) {
	recs := sentences()
	prefix := buildDataset(t, recs, chunkSize, int64(7), false)

	raw, err := os.ReadFile(DataPath(prefix))
	require.NoError(t, err)
	assert.Len(t, raw, (128+256)*8)

	tail := persistence.DecodeTokens[int64](nil, raw[100*8:128*8])
	assert.Equal(t, testutil.Repeat(int64(7), 28), tail)

	ds := openDataset[int64](t, prefix)
	rec, err := ds.Get(0)
	require.NoError(t, err)
	assert.Len(t, rec, 100)
}

func TestDataset_RetrievalWindows(t *testing.T) {
	recs := sentences()
	ds := openDataset[int64](t, buildDataset(t, recs, chunkSize, padID, true))

	assert.True(t, ds.RetrievalDB())
	assert.Equal(t, 6, ds.Chunks())
	assert.Equal(t, int64((192+320)*8), ds.Index().DataSize())

	pad := func(n int) []int64 { return testutil.Repeat(padID, n) }

	w0, err := ds.Chunk(0)
	require.NoError(t, err)
	assert.Equal(t, testutil.Concat(recs[0], pad(28)), w0)

	// last chunk of record 0 looks ahead into the reserved block
	w1, err := ds.Chunk(1)
	require.NoError(t, err)
	assert.Len(t, w1, 2*chunkSize)
	assert.Equal(t, testutil.Concat(recs[0][64:], pad(28+64)), w1)

	w2, err := ds.Chunk(2)
	require.NoError(t, err)
	assert.Equal(t, recs[1][:128], w2)

	w5, err := ds.Chunk(5)
	require.NoError(t, err)
	assert.Equal(t, testutil.Concat(recs[1][192:], pad(6+64)), w5)

	id, err := ds.ChunkID(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, id)
}

func TestDataset_ChunkSlice(t *testing.T) {
	for _, retrieval := range []bool{false, true} {
		ds := openDataset[int64](t, buildDataset(t, sentences(), chunkSize, padID, retrieval))

		windows, err := ds.ChunkSlice(0, ds.Chunks())
		require.NoError(t, err)
		require.Len(t, windows, ds.Chunks())
		for id := range ds.Chunks() {
			w, err := ds.Chunk(id)
			require.NoError(t, err)
			assert.Equal(t, w, windows[id])
		}
	}
}

func TestDataset_ChunkLocation(t *testing.T) {
	recs := [][]int32{
		testutil.Arange[int32](0, 10, 1),
		{},
		testutil.Arange[int32](0, 20, 1),
		{},
	}
	ds := openDataset[int32](t, buildDataset(t, recs, 8, int32(0), true))

	require.Equal(t, 5, ds.Chunks())
	want := [][2]int{{0, 0}, {0, 8}, {2, 0}, {2, 8}, {2, 16}}
	for id, loc := range want {
		rec, off, err := ds.ChunkLocation(id)
		require.NoError(t, err)
		assert.Equal(t, loc, [2]int{rec, off}, "chunk %d", id)

		back, err := ds.ChunkID(rec, off)
		require.NoError(t, err)
		assert.Equal(t, id, back)
	}

	_, _, err := ds.ChunkLocation(5)
	assert.ErrorIs(t, err, persistence.ErrIndexOutOfRange)
}

func TestDataset_RecordChunks(t *testing.T) {
	ds := openDataset[int64](t, buildDataset(t, sentences(), chunkSize, padID, false))

	bm, err := ds.RecordChunks(1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3, 4, 5}, bm.ToArray())

	_, err = ds.RecordChunks(2)
	assert.ErrorIs(t, err, persistence.ErrIndexOutOfRange)
}

func TestDataset_GetRange(t *testing.T) {
	recs := sentences()
	ds := openDataset[int64](t, buildDataset(t, recs, chunkSize, padID, false))

	got, err := ds.GetRange(1, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, recs[1][10:15], got)

	got, err = ds.GetRange(0, 100, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ds.GetRange(0, 90, 20)
	assert.ErrorIs(t, err, persistence.ErrIndexOutOfRange)
	_, err = ds.GetRange(0, -1, 2)
	assert.ErrorIs(t, err, persistence.ErrIndexOutOfRange)
}

func TestDataset_Boundaries(t *testing.T) {
	ds := openDataset[int64](t, buildDataset(t, sentences(), chunkSize, padID, false))

	_, err := ds.ChunkID(0, 10)
	assert.ErrorIs(t, err, persistence.ErrIndexOutOfRange)

	var ie *persistence.IndexError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "offset", ie.What)

	_, err = ds.ChunkID(0, 128)
	assert.ErrorIs(t, err, persistence.ErrIndexOutOfRange)
	_, err = ds.ChunkID(2, 0)
	assert.ErrorIs(t, err, persistence.ErrIndexOutOfRange)

	_, err = ds.Get(2)
	assert.ErrorIs(t, err, persistence.ErrIndexOutOfRange)
	_, err = ds.Get(-1)
	assert.ErrorIs(t, err, persistence.ErrIndexOutOfRange)

	_, err = ds.Chunk(6)
	assert.ErrorIs(t, err, persistence.ErrIndexOutOfRange)
	_, err = ds.Slice(1, 3)
	assert.ErrorIs(t, err, persistence.ErrIndexOutOfRange)
	_, err = ds.ChunkSlice(2, 1)
	assert.ErrorIs(t, err, persistence.ErrIndexOutOfRange)
}

func TestDataset_EmptyDataset(t *testing.T) {
	ds := openDataset[int32](t, buildDataset[int32](t, nil, 16, 0, true))

	assert.Equal(t, 0, ds.Len())
	assert.Equal(t, 0, ds.Chunks())
	_, err := ds.Get(0)
	assert.ErrorIs(t, err, persistence.ErrIndexOutOfRange)
}

func TestOpen_Errors(t *testing.T) {
	prefix := buildDataset(t, sentences(), chunkSize, padID, false)

	_, err := Open[int32](prefix)
	assert.ErrorIs(t, err, persistence.ErrFormat)

	require.NoError(t, os.Truncate(DataPath(prefix), 100))
	_, err = Open[int64](prefix)
	assert.ErrorIs(t, err, persistence.ErrFormat)

	_, err = Open[int64](filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestOpen_ShortDataFile(t *testing.T) {
	prefix := buildDataset(t, sentences(), chunkSize, padID, true)
	require.NoError(t, os.Truncate(DataPath(prefix), 8))

	var err error
	require.NotPanics(t, func() { _, err = Open[int64](prefix) })
	var fe *persistence.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, DataPath(prefix), fe.Path)
	assert.Contains(t, err.Error(), "data file has 8 bytes")
}

func TestOpen_CorruptIndexArrays(t *testing.T) {
	const headerSize = 43

	prefix := buildDataset(t, sentences(), chunkSize, padID, false)
	idx, err := index.Open(IndexPath(prefix))
	require.NoError(t, err)
	n, chunks := idx.Len(), idx.NumChunks()
	require.NoError(t, idx.Close())

	pristine, err := os.ReadFile(IndexPath(prefix))
	require.NoError(t, err)

	pointers := headerSize + 4*n
	addresses := pointers + 16*n
	cases := map[string]int{
		"first pointer":      pointers,
		"last chunk address": addresses + 8*(chunks-1),
	}

	for name, off := range cases {
		t.Run(name, func(t *testing.T) {
			raw := append([]byte(nil), pristine...)
			binary.LittleEndian.PutUint64(raw[off:], 1<<40)
			require.NoError(t, os.WriteFile(IndexPath(prefix), raw, 0o644))
			t.Cleanup(func() { _ = os.WriteFile(IndexPath(prefix), pristine, 0o644) })

			var ds *Dataset[int64]
			require.NotPanics(t, func() { ds, err = Open[int64](prefix) })
			assert.ErrorIs(t, err, persistence.ErrFormat)
			assert.Nil(t, ds)
		})
	}
}

func TestOpen_AccessPattern(t *testing.T) {
	prefix := buildDataset(t, sentences(), chunkSize, padID, false)
	ds := openDataset[int64](t, prefix, WithAccessPattern(mmap.AccessSequential))
	assert.Equal(t, prefix, ds.Prefix())
}

func TestExists(t *testing.T) {
	prefix := buildDataset(t, sentences(), chunkSize, padID, false)
	assert.True(t, Exists(prefix))

	require.NoError(t, os.Remove(IndexPath(prefix)))
	assert.False(t, Exists(prefix))
	assert.False(t, Exists(filepath.Join(t.TempDir(), "nothing")))
}

func TestBuilder_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	b, err := NewBuilder(filepath.Join(dir, "x.bin"), chunkSize, padID, false)
	require.NoError(t, err)
	defer b.Close()

	for _, rec := range sentences() {
		require.NoError(t, b.AddItem(rec))
	}
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []int{100, 250}, b.Sizes())

	require.NoError(t, b.Finalize(filepath.Join(dir, "x.idx")))
	assert.ErrorIs(t, b.AddItem([]int64{1}), ErrFinalized)
	assert.ErrorIs(t, b.Finalize(filepath.Join(dir, "x.idx")), ErrFinalized)
	assert.ErrorIs(t, b.MergeFile(filepath.Join(dir, "x")), ErrFinalized)
	require.NoError(t, b.Close())

	ds := openDataset[int64](t, filepath.Join(dir, "x"))
	assert.Equal(t, 2, ds.Len())
}

func TestBuilder_CloseWithoutFinalize(t *testing.T) {
	dir := t.TempDir()
	b, err := NewBuilder(filepath.Join(dir, "x.bin"), 4, int8(0), false)
	require.NoError(t, err)
	require.NoError(t, b.AddItem([]int8{1, 2, 3}))
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	assert.ErrorIs(t, b.AddItem([]int8{1}), ErrClosed)
	assert.False(t, Exists(filepath.Join(dir, "x")))
}

func TestBuilder_InvalidChunkSize(t *testing.T) {
	_, err := NewBuilder(filepath.Join(t.TempDir(), "x.bin"), 0, int32(0), false)
	assert.Error(t, err)
}

func TestBuilder_FaultInjection(t *testing.T) {
	ffs := fs.NewFaultyFS(nil)
	// record 0 stores 128 int64 tokens; fail halfway through record 1
	ffs.AddRule("faulty.bin", fs.Fault{FailAfterBytes: 128*8 + 100})

	path := filepath.Join(t.TempDir(), "faulty.bin")
	b, err := NewBuilder(path, chunkSize, padID, false, WithFileSystem(ffs))
	require.NoError(t, err)
	defer b.Close()

	recs := sentences()
	require.NoError(t, b.AddItem(recs[0]))

	err = b.AddItem(recs[1])
	require.ErrorIs(t, err, fs.ErrInjected)

	fi, statErr := os.Stat(path)
	require.NoError(t, statErr)
	assert.Equal(t, int64(128*8), fi.Size())

	// poisoned
	assert.ErrorIs(t, b.AddItem([]int64{1}), fs.ErrInjected)
	assert.ErrorIs(t, b.Finalize(filepath.Join(t.TempDir(), "faulty.idx")), fs.ErrInjected)
	assert.Equal(t, 1, b.Len())
}

func TestBuilder_FinalizeSyncFailure(t *testing.T) {
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("sync.bin", fs.Fault{FailAfterBytes: -1, FailOnSync: true})

	dir := t.TempDir()
	b, err := NewBuilder(filepath.Join(dir, "sync.bin"), 4, int32(0), false, WithFileSystem(ffs))
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.AddItem([]int32{1, 2}))
	assert.ErrorIs(t, b.Finalize(filepath.Join(dir, "sync.idx")), fs.ErrInjected)
	assert.ErrorIs(t, b.Finalize(filepath.Join(dir, "sync.idx")), ErrFinalized)
}

func TestBuilder_MergeFile(t *testing.T) {
	rng := testutil.NewRNG(11)
	a := testutil.Records[int32](rng, 5, 1, 40, 1000)
	c := testutil.Records[int32](rng, 7, 0, 70, 1000)

	prefixA := buildDataset(t, a, 16, int32(0), true)
	prefixC := buildDataset(t, c, 16, int32(0), true)

	out := filepath.Join(t.TempDir(), "merged")
	b, err := NewBuilder(DataPath(out), 16, int32(0), true)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.MergeFile(prefixA))
	require.NoError(t, b.AddItem([]int32{9, 9, 9}))
	require.NoError(t, b.MergeFile(prefixC))
	require.NoError(t, b.Finalize(IndexPath(out)))

	want := testutil.Concat(a, [][]int32{{9, 9, 9}}, c)
	ds := openDataset[int32](t, out)
	require.Equal(t, len(want), ds.Len())
	for i := range want {
		got, err := ds.Get(i)
		require.NoError(t, err)
		assert.Equal(t, len(want[i]), len(got))
		if len(want[i]) > 0 {
			assert.Equal(t, want[i], got)
		}
	}
	require.NoError(t, ds.Index().Verify())
}

func TestBuilder_MergeIncompatible(t *testing.T) {
	src := buildDataset(t, [][]int32{{1, 2, 3}}, 16, int32(0), false)

	cases := []struct {
		name  string
		build func(path string) error
	}{
		{"chunk size", func(path string) error {
			b, err := NewBuilder(path, 8, int32(0), false)
			require.NoError(t, err)
			defer b.Close()
			return b.MergeFile(src)
		}},
		{"retrieval", func(path string) error {
			b, err := NewBuilder(path, 16, int32(0), true)
			require.NoError(t, err)
			defer b.Close()
			return b.MergeFile(src)
		}},
		{"dtype", func(path string) error {
			b, err := NewBuilder(path, 16, int64(0), false)
			require.NoError(t, err)
			defer b.Close()
			return b.MergeFile(src)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.build(filepath.Join(t.TempDir(), "dst.bin"))
			assert.ErrorIs(t, err, ErrIncompatible)
		})
	}
}
