// Package manifest describes a published corpus.
//
// A manifest records the layout of an indexed dataset (dtype, chunk size,
// retrieval mode, record and chunk counts), the optional KNN table range,
// and one entry per transferred file with its size, CRC32C and
// compression. Publishers write it after every file is in place, so a
// corpus is visible exactly when its manifest is.
package manifest
