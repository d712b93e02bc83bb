// Package dataset provides memory-mapped random access to chunked token
// corpora and the builder that writes them.
//
// A dataset is a pair of files sharing a prefix: prefix.bin holds the
// padded token records back to back, prefix.idx is the chunk index (see
// package index). Records are addressed by position; chunks by a global
// chunk id that runs across all records.
//
// # Building
//
//	b, err := dataset.NewBuilder[int32]("corpus.bin", 64, padID, false)
//	if err != nil { ... }
//	defer b.Close()
//	for _, doc := range docs {
//	    if err := b.AddItem(doc); err != nil { ... }
//	}
//	if err := b.Finalize("corpus.idx"); err != nil { ... }
//
// # Reading
//
//	ds, err := dataset.Open[int32]("corpus")
//	if err != nil { ... }
//	defer ds.Close()
//
//	doc, _ := ds.Get(0)           // unpadded record
//	id, _ := ds.ChunkID(0, 64)    // second chunk of record 0
//	window, _ := ds.Chunk(id)     // chunk (plus lookahead in retrieval mode)
//
// Slices returned by the reader alias the mapping and must not be modified
// or used after Close.
package dataset
