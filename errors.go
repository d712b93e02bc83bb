package retrodb

import (
	"errors"

	"github.com/hupe1980/retrodb/blobstore"
	"github.com/hupe1980/retrodb/dataset"
	"github.com/hupe1980/retrodb/manifest"
	"github.com/hupe1980/retrodb/persistence"
)

var (
	// ErrFormat is matched by every malformed index, data or KNN file.
	ErrFormat = persistence.ErrFormat
	// ErrShape is matched by KNN batches of the wrong width.
	ErrShape = persistence.ErrShape
	// ErrIndexOutOfRange is matched by bad record indices, chunk ids and offsets.
	ErrIndexOutOfRange = persistence.ErrIndexOutOfRange
	// ErrChecksumMismatch is matched by corrupted transfers.
	ErrChecksumMismatch = persistence.ErrChecksumMismatch
	// ErrFinalized is returned by a builder used after Finalize.
	ErrFinalized = dataset.ErrFinalized
	// ErrNotFound is returned when a blob or corpus does not exist.
	ErrNotFound = blobstore.ErrNotFound
	// ErrManifestNotFound is returned by Fetch for unknown corpora.
	ErrManifestNotFound = manifest.ErrNotFound

	// ErrNotRetrievalDB is returned when a retrieval database was built
	// without the lookahead chunk.
	ErrNotRetrievalDB = errors.New("dataset is not a retrieval database")
	// ErrNeighborRange is returned when a KNN table does not fit the
	// datasets it is combined with.
	ErrNeighborRange = errors.New("knn table does not match dataset")
)

type (
	// FormatError describes a malformed file.
	FormatError = persistence.FormatError
	// ShapeError describes a KNN batch of the wrong width.
	ShapeError = persistence.ShapeError
	// IndexError describes an out-of-range access.
	IndexError = persistence.IndexError
	// ChecksumMismatchError describes a corrupted transfer.
	ChecksumMismatchError = persistence.ChecksumMismatchError
)
