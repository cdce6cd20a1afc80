// Package testutil provides testing utilities for journals.
//
// This package is intended for use in tests and benchmarks only.
//
// # Random Workloads
//
//	rng := testutil.NewRNG(seed)
//	ops := rng.Workload(1000, 16, 1.2) // 1000 ops over 16 hot-skewed transactions
//
// # Damaging Files
//
//	testutil.TruncateFile(t, path, size) // simulate a crash mid-write
//	testutil.FlipByte(t, path, offset)   // simulate bit rot
package testutil
