// Package index reads and writes the chunk index (.idx) that describes a
// chunked token data blob (.bin).
//
// For every record the index stores its unpadded length, the byte offset
// of its padded data, and the id of its first chunk; for every chunk it
// stores the byte offset of the chunk's first element. All derived arrays
// come from [ComputeLayout], which is also what the dataset builder uses
// to pad records, so writers and readers agree bit-exactly.
//
// # Padding
//
// A record of n tokens occupies PaddedSize(n) = ceil(n/chunkSize)*chunkSize
// elements and contributes PaddedSize(n)/chunkSize chunk ids. In retrieval
// mode the record is followed by one extra chunk of padding that no chunk
// id points at; it only serves as the lookahead half of the record's last
// chunk window.
//
// # File layout
//
// All integers are little-endian:
//
//	magic        "MMIDRET\x00\x00"
//	version      uint64 (1)
//	dtype        uint8
//	retrieval    uint8
//	chunk_size   uint64
//	records      uint64
//	chunks       uint64
//	sizes        int32[records]
//	pointers     int64[records]
//	chunk_start  int64[records]
//	chunk_addr   int64[chunks]
//
// # Usage
//
//	if err := index.WriteFile("corpus.idx", persistence.Int32, false, sizes, 64); err != nil { ... }
//
//	idx, err := index.Open("corpus.idx")
//	if err != nil { ... }
//	defer idx.Close()
//	first := idx.ChunkIDStart().At(3)
package index
