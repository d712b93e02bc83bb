// Package testutil provides deterministic token corpora for tests and
// benchmarks.
//
// This package is intended for use in tests only.
//
// # Token Generation
//
//	rng := testutil.NewRNG(seed)
//	docs := testutil.Records[int32](rng, 100, 0, 300, 50000)
//	rows := rng.NeighborRows(150, 8, 1000)
//
// # Fixed Sequences
//
//	testutil.Arange[int64](0, 200, 2) // 0, 2, ..., 198
package testutil
