package lanczos

import (
	"context"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/diaggo/internal/errs"
	"github.com/hupe1980/diaggo/resource"
)

// chain returns the 1D Laplacian on n sites as a multiply.
func chain(n int) MultFunc[float64] {
	return func(_ context.Context, in, out []float64) error {
		for i := range n {
			v := 2 * in[i]
			if i > 0 {
				v -= in[i-1]
			}
			if i < n-1 {
				v -= in[i+1]
			}
			out[i] = v
		}
		return nil
	}
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1 + 0.01*float64(i)
	}
	return v
}

func TestRun_GroundStateOfLaplacian(t *testing.T) {
	n := 60
	res, err := Run(t.Context(), chain(n), ones(n), ConvergedEigenvalues(1, 1e-12))
	require.NoError(t, err)
	assert.Contains(t, []State{Converged, Deflated}, res.Criterion)
	assert.Equal(t, res.Iterations, res.Tmatrix.Size())

	vals, err := res.Tmatrix.Eigenvalues()
	require.NoError(t, err)
	want := 2 - 2*math.Cos(math.Pi/float64(n+1))
	assert.InDelta(t, want, vals[0], 1e-10)
}

func TestRun_DeflatesOnSmallSpace(t *testing.T) {
	n := 5
	res, err := Run(t.Context(), chain(n), ones(n), nil)
	require.NoError(t, err)
	assert.Equal(t, Deflated, res.Criterion)
	assert.LessOrEqual(t, res.Iterations, n)

	vals, err := res.Tmatrix.Eigenvalues()
	require.NoError(t, err)
	for k := range vals {
		want := 2 - 2*math.Cos(float64(k+1)*math.Pi/float64(n+1))
		assert.InDelta(t, want, vals[k], 1e-10)
	}
}

func TestRun_MaxIterations(t *testing.T) {
	res, err := Run(t.Context(), chain(100), ones(100), nil, WithMaxIterations(7))
	require.NoError(t, err)
	assert.Equal(t, MaxIterationsReached, res.Criterion)
	assert.Equal(t, 7, res.Iterations)
	assert.Len(t, res.Tmatrix.Betas, 7)
}

func TestRun_Complex(t *testing.T) {
	// ring with flux: hopping e^{i phi} is Hermitian, spectrum -2cos(2 pi k/n + phi)
	n, phi := 8, 0.3
	hop := cmplx.Exp(complex(0, phi))
	mult := func(_ context.Context, in, out []complex128) error {
		for i := range n {
			out[i] = -hop*in[(i+1)%n] - cmplx.Conj(hop)*in[(i+n-1)%n]
		}
		return nil
	}
	v0 := make([]complex128, n)
	r := rand.New(rand.NewPCG(3, 4))
	for i := range v0 {
		v0[i] = complex(r.NormFloat64(), r.NormFloat64())
	}
	res, err := Run(t.Context(), mult, v0, nil)
	require.NoError(t, err)
	assert.Equal(t, Deflated, res.Criterion)

	vals, err := res.Tmatrix.Eigenvalues()
	require.NoError(t, err)
	lowest := math.Inf(1)
	for k := range n {
		lowest = min(lowest, -2*math.Cos(2*math.Pi*float64(k)/float64(n)-phi))
	}
	assert.InDelta(t, lowest, vals[0], 1e-10)
}

func TestEigenvector_Replay(t *testing.T) {
	n := 60
	mult := chain(n)
	v0 := ones(n)
	res, err := Run(t.Context(), mult, v0, ConvergedResidual(1, 1e-10))
	require.NoError(t, err)
	vals, err := res.Tmatrix.Eigenvalues()
	require.NoError(t, err)

	x, err := Eigenvector(t.Context(), mult, v0, res.Tmatrix, 0)
	require.NoError(t, err)
	ax := make([]float64, n)
	require.NoError(t, mult(t.Context(), x, ax))
	var resid, nrm float64
	for i := range x {
		resid += (ax[i] - vals[0]*x[i]) * (ax[i] - vals[0]*x[i])
		nrm += x[i] * x[i]
	}
	assert.InDelta(t, 1, nrm, 1e-12)
	assert.Less(t, math.Sqrt(resid), 1e-7)

	_, err = Eigenvector(t.Context(), mult, v0, res.Tmatrix, res.Tmatrix.Size())
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestRun_Errors(t *testing.T) {
	_, err := Run(t.Context(), chain(4), make([]float64, 4), nil)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	rc := resource.NewController(resource.Config{MemoryLimitBytes: 64})
	_, err = Run(t.Context(), chain(100), ones(100), nil, WithResources(rc))
	assert.ErrorIs(t, err, errs.ErrAllocationFailure)
	assert.Zero(t, rc.MemoryUsage())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = Run(ctx, chain(4), ones(4), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_ReleasesResources(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
	_, err := Run(t.Context(), chain(50), ones(50), nil, WithResources(rc))
	require.NoError(t, err)
	assert.Zero(t, rc.MemoryUsage())
}

func TestRun_Reduce(t *testing.T) {
	// a reduce that doubles every partial sum scales all norms consistently
	var calls int
	double := func(_ context.Context, x float64) (float64, error) {
		calls++
		return 2 * x, nil
	}
	n := 30
	plain, err := Run(t.Context(), chain(n), ones(n), nil, WithMaxIterations(10))
	require.NoError(t, err)
	red, err := Run(t.Context(), chain(n), ones(n), nil, WithMaxIterations(10), WithReduce(double))
	require.NoError(t, err)
	assert.Positive(t, calls)
	assert.InDeltaSlice(t, plain.Tmatrix.Alphas, red.Tmatrix.Alphas, 1e-12)
}

func TestConvergedEigenvalues(t *testing.T) {
	conv := ConvergedEigenvalues(2, 1e-8)
	assert.False(t, conv(Tmatrix{Alphas: []float64{1}, Betas: []float64{1}}))
	assert.False(t, conv(Tmatrix{Alphas: []float64{1, 2}, Betas: []float64{0.5, 1}}))
	assert.True(t, conv(Tmatrix{Alphas: []float64{1, 2, 10}, Betas: []float64{0.5, 0, 1}}))
}

func TestConvergedResidual(t *testing.T) {
	conv := ConvergedResidual(1, 1e-8)
	// an invariant subspace has no residual
	assert.True(t, conv(Tmatrix{Alphas: []float64{1, 2}, Betas: []float64{0.5, 0}}))
	assert.False(t, conv(Tmatrix{Alphas: []float64{1, 2}, Betas: []float64{0.5, 1}}))
	assert.False(t, ConvergedResidual(3, 1e-8)(Tmatrix{Alphas: []float64{1, 2}, Betas: []float64{0.5, 0}}))

	// a diagonal projection whose lowest Ritz vector is e_0 has a zero last
	// component, whatever the residual norm
	assert.True(t, conv(Tmatrix{Alphas: []float64{-1, 3}, Betas: []float64{0, 1}}))
}

func TestConvergedResidual_Chain(t *testing.T) {
	n := 40
	mult := chain(n)
	byValue, err := Run(t.Context(), mult, ones(n), ConvergedEigenvalues(1, 1e-10))
	require.NoError(t, err)
	byResidual, err := Run(t.Context(), mult, ones(n), ConvergedResidual(1, 1e-10))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, byResidual.Iterations, byValue.Iterations)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "deflated", Deflated.String())
	assert.Equal(t, "maxiterations", MaxIterationsReached.String())
}
