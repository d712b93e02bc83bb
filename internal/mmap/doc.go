// Package mmap provides read-only memory-mapped file access for zero-copy I/O.
//
// Token corpora and their chunk indexes are routinely tens of gigabytes.
// Mapping them lets many worker processes share the page cache instead of
// each loading its own copy.
//
// # Usage
//
//	m, err := mmap.Open("corpus.bin")
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()               // whole file, no copy
//	region, _ := m.Region(off, n)   // bounded view
//	_ = m.Advise(mmap.AccessRandom) // chunk lookups are random
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) access hints
//   - Windows: CreateFileMapping/MapViewOfFile (Advise is a no-op)
//
// # Thread Safety
//
// Mapping and Region are safe for concurrent read access. Close is
// idempotent. Callers must not touch slices obtained from Bytes after
// Close returns.
package mmap
