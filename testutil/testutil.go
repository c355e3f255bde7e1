package testutil

import (
	"math/cmplx"
	"math/rand/v2"
	"sync"

	"github.com/hupe1980/diaggo/operator"
)

// Scalar is the element type of vectors and matrices.
type Scalar interface {
	float64 | complex128
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed uint64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed uint64) *RNG {
	r := &RNG{seed: seed}
	r.Reset()
	return r
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewPCG(r.seed, r.seed+1))
}

// Seed returns the initial seed.
func (r *RNG) Seed() uint64 {
	return r.seed
}

// Float64 returns a number uniform in [-1, 1).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return 2*r.rand.Float64() - 1
}

// Vector returns n numbers uniform in [-1, 1).
func (r *RNG) Vector(n int64) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = r.Float64()
	}
	return v
}

// ComplexVector returns n complex numbers with both parts uniform in
// [-1, 1).
func (r *RNG) ComplexVector(n int64) []complex128 {
	v := make([]complex128, n)
	for i := range v {
		v[i] = complex(r.Float64(), r.Float64())
	}
	return v
}

// Couplings adds a random two-site coupling of type typ between every pair
// of sites to ops. With complexPhase set the couplings carry random phases;
// Exchange and hopping terms stay Hermitian for any phase.
func (r *RNG) Couplings(ops *operator.OpSum, typ string, nsites int, complexPhase bool) *operator.OpSum {
	for i := range nsites {
		for j := i + 1; j < nsites; j++ {
			c := complex(r.Float64(), 0)
			if complexPhase {
				c *= cmplx.Exp(complex(0, 3*r.Float64()))
			}
			ops.Add(operator.NewOp(typ, operator.Scalar(c), i, j))
		}
	}
	return ops
}

// MatVec returns m x for the column-major matrix m with nrows rows.
func MatVec[T Scalar](m []T, nrows int64, x []T) []T {
	y := make([]T, nrows)
	for col, xc := range x {
		for row := range y {
			y[row] += m[int64(col)*nrows+int64(row)] * xc
		}
	}
	return y
}

// MaxAbsDiff returns the largest absolute difference of a and b. It panics
// if the lengths differ.
func MaxAbsDiff[T Scalar](a, b []T) float64 {
	if len(a) != len(b) {
		panic("testutil: length mismatch")
	}
	var d float64
	for i := range a {
		d = max(d, abs(a[i]-b[i]))
	}
	return d
}

// IsHermitian reports whether the column-major n x n matrix m equals its
// conjugate transpose within tol.
func IsHermitian[T Scalar](m []T, n int64, tol float64) bool {
	for i := range n {
		for j := range n {
			if abs(m[j*n+i]-conj(m[i*n+j])) > tol {
				return false
			}
		}
	}
	return true
}

// Dot returns the inner product <a, b>, conjugating a.
func Dot[T Scalar](a, b []T) T {
	var s T
	for i := range a {
		s += conj(a[i]) * b[i]
	}
	return s
}

func abs[T Scalar](x T) float64 {
	switch v := any(x).(type) {
	case float64:
		if v < 0 {
			return -v
		}
		return v
	case complex128:
		return cmplx.Abs(v)
	}
	return 0
}

func conj[T Scalar](x T) T {
	if c, ok := any(x).(complex128); ok {
		return any(cmplx.Conj(c)).(T)
	}
	return x
}
