// Package knn stores the chunk-id to K nearest neighbor table used for
// retrieval-augmented training.
//
// Row r of a table holds the K neighbor chunk ids of chunk
// ChunkStartID()+r. Tables are written in batches by a Writer and read
// through a memory mapping; shards covering consecutive chunk ranges can
// be concatenated with Merge.
//
// # File layout
//
// All integers are little-endian:
//
//	magic          "KNNRETM\x00\x00"
//	version        uint64 (1)
//	k              uint64
//	chunk_start_id uint64
//	chunk_end_id   uint64 (written on Close)
//	neighbors      int64[(chunk_end_id-chunk_start_id)*k]
//
// # Usage
//
//	w, err := knn.NewWriter("shard0.knn", 8, knn.WithChunkStartID(0))
//	if err != nil { ... }
//	defer w.Close()
//	if err := w.Write(batch); err != nil { ... }
//
//	tbl, err := knn.Open("shard0.knn")
//	if err != nil { ... }
//	defer tbl.Close()
//	ids, _ := tbl.Neighbors(5)
package knn
