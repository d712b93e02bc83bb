package retrodb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/retrodb/dataset"
	"github.com/hupe1980/retrodb/knn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type retrievalFixture struct {
	train *dataset.Dataset[uint16]
	db    *dataset.Dataset[uint16]
	nbrs  *knn.Index
	dir   string
}

func newRetrievalFixture(t *testing.T, rows [][]int64) retrievalFixture {
	t.Helper()
	dir := t.TempDir()

	dbPrefix := filepath.Join(dir, "db")
	require.NoError(t, dataset.Build(dbPrefix, [][]uint16{
		{1, 2, 3, 4, 5, 6},
		{7, 8, 9, 10},
	}, 4, 0, true))

	trainPrefix := filepath.Join(dir, "train")
	require.NoError(t, dataset.Build(trainPrefix, [][]uint16{
		{100, 101, 102, 103, 104, 105, 106, 107},
	}, 4, 0, false))

	knnPath := filepath.Join(dir, "train.knn")
	require.NoError(t, knn.WriteFile(knnPath, len(rows[0]), rows))

	db, err := dataset.Open[uint16](dbPrefix)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	train, err := dataset.Open[uint16](trainPrefix)
	require.NoError(t, err)
	t.Cleanup(func() { _ = train.Close() })

	nbrs, err := knn.Open(knnPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = nbrs.Close() })

	return retrievalFixture{train: train, db: db, nbrs: nbrs, dir: dir}
}

var (
	window0 = []uint16{1, 2, 3, 4, 5, 6, 0, 0}
	window1 = []uint16{5, 6, 0, 0, 0, 0, 0, 0}
	window2 = []uint16{7, 8, 9, 10, 0, 0, 0, 0}
)

func TestRetriever_Retrieve(t *testing.T) {
	fx := newRetrievalFixture(t, [][]int64{{2, 0}, {1, -1}})
	metrics := &BasicMetricsCollector{}

	r, err := NewRetriever(fx.train, fx.db, fx.nbrs, WithMetricsCollector(metrics))
	require.NoError(t, err)
	assert.Equal(t, 2, r.K())

	ctx := context.Background()
	got, err := r.Retrieve(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]uint16{window2, window0}, got)

	got, err = r.Retrieve(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, [][]uint16{window1}, got)

	q, err := r.Query(1)
	require.NoError(t, err)
	assert.Equal(t, []uint16{104, 105, 106, 107}, q)

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.RetrieveCount)
	assert.Equal(t, int64(3), stats.RetrieveNeighbors)
	assert.Zero(t, stats.RetrieveErrors)
}

func TestRetriever_Excluding(t *testing.T) {
	fx := newRetrievalFixture(t, [][]int64{{2, 0}, {1, -1}})
	r, err := NewRetriever(fx.train, fx.db, fx.nbrs)
	require.NoError(t, err)

	// exclude every chunk of db record 1
	exclude, err := fx.db.RecordChunks(1)
	require.NoError(t, err)

	got, err := r.RetrieveExcluding(context.Background(), 0, exclude)
	require.NoError(t, err)
	assert.Equal(t, [][]uint16{window0}, got)

	got, err = r.RetrieveExcluding(context.Background(), 0, roaring64.BitmapOf(0, 2))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetriever_RetrieveRecord(t *testing.T) {
	fx := newRetrievalFixture(t, [][]int64{{2, 0}, {1, -1}})
	r, err := NewRetriever(fx.train, fx.db, fx.nbrs)
	require.NoError(t, err)

	got, err := r.RetrieveRecord(context.Background(), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, [][][]uint16{{window2, window0}, {window1}}, got)

	_, err = r.RetrieveRecord(context.Background(), 1, nil)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.RetrieveRecord(ctx, 0, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetriever_Errors(t *testing.T) {
	fx := newRetrievalFixture(t, [][]int64{{2, 9}, {1, -1}})
	metrics := &BasicMetricsCollector{}

	_, err := NewRetriever(fx.train, fx.train, fx.nbrs)
	assert.ErrorIs(t, err, ErrNotRetrievalDB)

	_, err = NewRetriever(nil, fx.db, fx.nbrs)
	assert.Error(t, err)

	r, err := NewRetriever(fx.train, fx.db, fx.nbrs, WithMetricsCollector(metrics))
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), 5)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	// neighbor 9 does not exist in the database
	_, err = r.Retrieve(context.Background(), 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	var ie *IndexError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 9, ie.Index)

	assert.Equal(t, int64(2), metrics.GetStats().RetrieveErrors)
}

func TestRetriever_NeighborRange(t *testing.T) {
	fx := newRetrievalFixture(t, [][]int64{{0}, {1}, {2}})
	_, err := NewRetriever(fx.train, fx.db, fx.nbrs)
	assert.ErrorIs(t, err, ErrNeighborRange)
}
