// Package persistence holds the on-disk vocabulary shared by the index,
// dataset and KNN file formats.
//
// All multi-byte values are little-endian. Header fields and the derived
// index arrays are read through zero-copy typed views ([Int32View],
// [Int64View]) because the legacy header layout leaves them unaligned.
// Token data in the data blob is always aligned to its item size, so
// [CastTokens] returns a direct []T view into the mapping on little-endian
// hosts and a decoded copy elsewhere.
//
// Errors follow a small taxonomy that callers test with errors.Is:
//
//   - [ErrFormat]: magic, version, dtype or length checks failed on open
//   - [ErrShape]: a KNN batch row width differs from the declared K
//   - [ErrIndexOutOfRange]: bad record index, chunk id or chunk offset
package persistence
