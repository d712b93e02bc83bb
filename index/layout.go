package index

// PaddedSize returns n rounded up to a whole number of chunks.
func PaddedSize(n, chunkSize int) int {
	return (n + chunkSize - 1) / chunkSize * chunkSize
}

// StoredSize returns the number of elements a record of n tokens occupies
// in the data blob, including the reserved retrieval chunk.
func StoredSize(n, chunkSize int, retrievalDB bool) int {
	s := PaddedSize(n, chunkSize)
	if retrievalDB {
		s += chunkSize
	}
	return s
}

// Layout holds the arrays derived from record sizes.
type Layout struct {
	Pointers     []int64 // byte offset of each record
	ChunkIDStart []int64 // first chunk id of each record
	ChunkAddress []int64 // byte offset of each chunk
	DataSize     int64   // total data blob length in bytes
}

// ComputeLayout derives the record pointers, chunk id starts and chunk
// addresses for records of the given unpadded sizes.
func ComputeLayout(sizes []int, chunkSize, itemSize int, retrievalDB bool) Layout {
	total := 0
	for _, s := range sizes {
		total += PaddedSize(s, chunkSize) / chunkSize
	}

	l := Layout{
		Pointers:     make([]int64, len(sizes)),
		ChunkIDStart: make([]int64, len(sizes)),
		ChunkAddress: make([]int64, 0, total),
	}

	chunkBytes := int64(chunkSize) * int64(itemSize)
	var ptr, chunkID int64
	for i, s := range sizes {
		l.Pointers[i] = ptr
		l.ChunkIDStart[i] = chunkID

		n := PaddedSize(s, chunkSize) / chunkSize
		for j := 0; j < n; j++ {
			l.ChunkAddress = append(l.ChunkAddress, ptr+int64(j)*chunkBytes)
		}
		chunkID += int64(n)
		ptr += int64(StoredSize(s, chunkSize, retrievalDB)) * int64(itemSize)
	}
	l.DataSize = ptr
	return l
}
