// Package fs provides filesystem abstractions for testability and fault injection.
//
// The package defines two key interfaces:
//
//   - [File]: an open file with read/write/seek/sync capabilities
//   - [FileSystem]: filesystem operations (open, remove, rename, truncate, ...)
//
// # Implementations
//
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test wrapper that injects write, sync and close failures
//
// Writers in this module (dataset builder, index writer, KNN writer) accept a
// FileSystem so tests can simulate a full disk halfway through a record:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".bin", fs.Fault{FailAfterBytes: 4096})
//	b, _ := dataset.NewBuilder[int32](path, 64, 0, false, dataset.WithFileSystem(ffs))
//
// Memory-mapped readers always use the real filesystem.
package fs
