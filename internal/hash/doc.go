// Package hash provides hardware-accelerated CRC32-Castagnoli checksums.
//
// Published corpus files carry a CRC32C in their manifest entry; downloads
// are verified against it before a file is moved into place.
//
//	checksum := hash.CRC32C(data)
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	checksum := h.Sum32()
package hash
