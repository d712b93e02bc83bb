package retrodb

import (
	"context"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/retrodb/dataset"
	"github.com/hupe1980/retrodb/knn"
	"github.com/hupe1980/retrodb/persistence"
)

// Retriever resolves training chunks to the windows of their nearest
// neighbors in a retrieval database.
//
// The KNN table is indexed by training chunk id and holds retrieval
// database chunk ids. Negative ids mark missing neighbors and are skipped.
// A Retriever is safe for concurrent use; it does not own its inputs.
type Retriever[T persistence.Token] struct {
	train     *dataset.Dataset[T]
	db        *dataset.Dataset[T]
	neighbors *knn.Index
	metrics   MetricsCollector
	logger    *Logger
}

// NewRetriever combines a training dataset, a retrieval database and the
// KNN table between them. The database must have been built in retrieval
// mode and the table must not reference training chunks that do not exist.
func NewRetriever[T persistence.Token](train, db *dataset.Dataset[T], neighbors *knn.Index, opts ...Option) (*Retriever[T], error) {
	if train == nil || db == nil || neighbors == nil {
		return nil, fmt.Errorf("retrodb: retriever needs a training set, a database and a knn table")
	}
	if !db.RetrievalDB() {
		return nil, fmt.Errorf("%w: %s", ErrNotRetrievalDB, db.Prefix())
	}
	if neighbors.ChunkEndID() > int64(train.Chunks()) {
		return nil, fmt.Errorf("%w: rows up to chunk %d, training set has %d chunks",
			ErrNeighborRange, neighbors.ChunkEndID(), train.Chunks())
	}

	o := applyOptions(opts)
	return &Retriever[T]{
		train:     train,
		db:        db,
		neighbors: neighbors,
		metrics:   o.metricsCollector,
		logger:    o.logger.WithK(neighbors.K()),
	}, nil
}

// K returns the number of neighbors per chunk.
func (r *Retriever[T]) K() int { return r.neighbors.K() }

// Query returns the training chunk with id trainChunkID.
func (r *Retriever[T]) Query(trainChunkID int64) ([]T, error) {
	return r.train.Chunk(int(trainChunkID))
}

// Retrieve returns the retrieval windows (chunk plus continuation) of the
// neighbors of trainChunkID, in table order.
func (r *Retriever[T]) Retrieve(ctx context.Context, trainChunkID int64) ([][]T, error) {
	return r.RetrieveExcluding(ctx, trainChunkID, nil)
}

// RetrieveExcluding is Retrieve without the database chunks in exclude.
func (r *Retriever[T]) RetrieveExcluding(ctx context.Context, trainChunkID int64, exclude *roaring64.Bitmap) (windows [][]T, err error) {
	start := time.Now()
	defer func() {
		r.metrics.RecordRetrieve(len(windows), time.Since(start), err)
		r.logger.LogRetrieve(ctx, trainChunkID, len(windows), err)
	}()

	ids, err := r.neighbors.FilteredNeighbors(trainChunkID, exclude)
	if err != nil {
		return nil, err
	}

	windows = make([][]T, 0, len(ids))
	for _, id := range ids {
		if id < 0 {
			continue
		}
		w, err := r.db.Chunk(int(id))
		if err != nil {
			return nil, fmt.Errorf("neighbor of chunk %d: %w", trainChunkID, err)
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// RetrieveRecord returns the neighbor windows of every chunk of training
// record i, one slice per chunk.
func (r *Retriever[T]) RetrieveRecord(ctx context.Context, i int, exclude *roaring64.Bitmap) ([][][]T, error) {
	chunks, err := r.train.RecordChunks(i)
	if err != nil {
		return nil, err
	}

	out := make([][][]T, 0, chunks.GetCardinality())
	it := chunks.Iterator()
	for it.HasNext() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		windows, err := r.RetrieveExcluding(ctx, int64(it.Next()), exclude)
		if err != nil {
			return nil, err
		}
		out = append(out, windows)
	}
	return out, nil
}
