package linalg

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/diaggo/internal/errs"
)

func TestSymTridiagonal_Laplacian(t *testing.T) {
	// 1D Dirichlet Laplacian: 2 - 2cos(k pi / (n+1))
	n := 12
	d := make([]float64, n)
	e := make([]float64, n-1)
	for i := range d {
		d[i] = 2
	}
	for i := range e {
		e[i] = -1
	}
	vals, vecs, err := SymTridiagonal(d, e, true)
	require.NoError(t, err)
	for k := range n {
		want := 2 - 2*math.Cos(float64(k+1)*math.Pi/float64(n+1))
		assert.InDelta(t, want, vals[k], 1e-12)
	}

	// T v = lambda v and unit norm
	for k, v := range vecs {
		var norm float64
		for i := range n {
			tv := d[i] * v[i]
			if i > 0 {
				tv += e[i-1] * v[i-1]
			}
			if i < n-1 {
				tv += e[i] * v[i+1]
			}
			assert.InDelta(t, vals[k]*v[i], tv, 1e-12)
			norm += v[i] * v[i]
		}
		assert.InDelta(t, 1, norm, 1e-12)
	}
}

func TestSymTridiagonal_Edge(t *testing.T) {
	vals, _, err := SymTridiagonal(nil, nil, false)
	require.NoError(t, err)
	assert.Empty(t, vals)

	vals, vecs, err := SymTridiagonal([]float64{3}, []float64{}, true)
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, vals)
	assert.Equal(t, [][]float64{{1}}, vecs)

	_, _, err = SymTridiagonal([]float64{1, 2}, []float64{1, 2}, false)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func randomSymmetric(r *rand.Rand, n int) []float64 {
	a := make([]float64, n*n)
	for j := range n {
		for i := range j + 1 {
			x := r.NormFloat64()
			a[j*n+i] = x
			a[i*n+j] = x
		}
	}
	return a
}

func TestSymEigen_Residual(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	n := 30
	a := randomSymmetric(r, n)
	vals, vecs, err := SymEigen(a, n, true)
	require.NoError(t, err)
	require.Len(t, vals, n)
	for k := 1; k < n; k++ {
		assert.LessOrEqual(t, vals[k-1], vals[k])
	}
	for k, v := range vecs {
		for i := range n {
			var av float64
			for j := range n {
				av += a[j*n+i] * v[j]
			}
			assert.InDelta(t, vals[k]*v[i], av, 1e-10)
		}
	}

	var trace, sum float64
	for i := range n {
		trace += a[i*n+i]
		sum += vals[i]
	}
	assert.InDelta(t, trace, sum, 1e-10)
}

func TestSymEigen_MatchesTridiagonal(t *testing.T) {
	d := []float64{1, -2, 0.5, 3, 0}
	e := []float64{0.3, 1, -0.7, 2}
	n := len(d)
	a := make([]float64, n*n)
	for i := range n {
		a[i*n+i] = d[i]
		if i < n-1 {
			a[i*n+i+1] = e[i]
			a[(i+1)*n+i] = e[i]
		}
	}
	want, _, err := SymTridiagonal(d, e, false)
	require.NoError(t, err)
	got, _, err := SymEigen(a, n, false)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-12)
}

func TestHermitianEigenvalues(t *testing.T) {
	// Pauli y has eigenvalues -1 and 1
	vals, err := HermitianEigenvalues([]complex128{0, 1i, -1i, 0}, 2)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{-1, 1}, vals, 1e-14)

	// diag(1, 2) + off-diagonal (1+i)
	vals, err = HermitianEigenvalues([]complex128{1, 1 - 1i, 1 + 1i, 2}, 2)
	require.NoError(t, err)
	disc := math.Sqrt(0.25 + 2)
	assert.InDeltaSlice(t, []float64{1.5 - disc, 1.5 + disc}, vals, 1e-12)

	_, err = HermitianEigenvalues(make([]complex128, 3), 2)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}
