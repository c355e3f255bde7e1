// Package testutil provides testing utilities for diaggo.
//
// This package is intended for use in tests only. It provides seeded
// random vectors and couplings and dense reference linear algebra.
//
// # Random Vectors
//
//	rng := testutil.NewRNG(seed)
//	v := rng.Vector(n)          // real, uniform in [-1, 1)
//	c := rng.ComplexVector(n)   // complex, both parts uniform in [-1, 1)
//
// # Dense References
//
//	y := testutil.MatVec(m, nrows, x)          // column-major m
//	d := testutil.MaxAbsDiff(y, applied)
//	ok := testutil.IsHermitian(m, n, 1e-12)
package testutil
