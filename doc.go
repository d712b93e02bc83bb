// Package retrodb stores tokenized corpora for retrieval-augmented
// language model training.
//
// A corpus is an indexed dataset: a raw data file of little-endian token
// ids (".bin") and an index (".idx") that addresses every record and every
// fixed-size chunk. Retrieval databases store one extra padding chunk per
// record so each chunk can be read together with its continuation. A KNN
// table (".knn") maps training chunk ids to neighbor chunk ids in a
// retrieval database.
//
// # Building
//
//	err := dataset.Build[uint16]("corpus/wiki", records, 64, 0, true)
//
// # Reading
//
//	db, _ := dataset.Open[uint16]("corpus/wiki")
//	defer db.Close()
//	window, _ := db.Chunk(42) // 2*chunk_size tokens
//
// # Retrieval
//
//	nbrs, _ := knn.Open("corpus/train.knn")
//	r, _ := retrodb.NewRetriever(train, db, nbrs)
//	chunks, _ := r.Retrieve(ctx, 7)
//
// # Distribution
//
// Publish uploads a corpus (compressed, checksummed, in parallel) to any
// blobstore.BlobStore and writes its manifest last. Fetch downloads,
// verifies and installs it locally:
//
//	store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("corpora/"))
//	m, _ := retrodb.Publish(ctx, store, "corpus/wiki", "wiki-v1",
//	    retrodb.WithCompression(compress.Zstd))
//	prefix, _ := retrodb.Fetch(ctx, store, "wiki-v1", "/data")
package retrodb
