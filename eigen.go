package diaggo

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/hupe1980/diaggo/basis"
	"github.com/hupe1980/diaggo/blobstore"
	"github.com/hupe1980/diaggo/internal/linalg"
	"github.com/hupe1980/diaggo/internal/terms"
	"github.com/hupe1980/diaggo/lanczos"
	"github.com/hupe1980/diaggo/operator"
	"github.com/hupe1980/diaggo/snapshot"
)

// LanczosResult is the outcome of EigvalsLanczos and EigsLanczos.
type LanczosResult struct {
	// Eigenvalues are the lowest converged eigenvalues, ascending.
	Eigenvalues []float64
	Tmatrix     lanczos.Tmatrix
	Criterion   lanczos.State
	Iterations  int
	// Eigenvectors are set by EigsLanczos, one per eigenvalue. Real
	// problems have zero imaginary parts.
	Eigenvectors [][]complex128
}

// EigvalsSym returns all eigenvalues of the Hermitian operator ops on b in
// ascending order by dense diagonalization. It is meant for small bases
// and as a reference for Lanczos.
func EigvalsSym(ctx context.Context, ops *operator.OpSum, b basis.Basis, opts ...Option) ([]float64, error) {
	o := applyOptions(opts)
	ts, err := compile(ops, b)
	if err != nil {
		return nil, err
	}
	if !operator.IsHermitian(ts) {
		return nil, fmt.Errorf("diaggo: dense diagonalization: %w", ErrNotHermitian)
	}
	n := int(b.Size())
	if operator.IsReal(ts) && basis.IsReal(b) {
		m, err := matrix[float64](ctx, ops, b, b, o)
		if err != nil {
			return nil, err
		}
		vals, _, err := linalg.SymEigen(m, n, false)
		return vals, err
	}
	m, err := matrix[complex128](ctx, ops, b, b, o)
	if err != nil {
		return nil, err
	}
	return linalg.HermitianEigenvalues(m, n)
}

// EigvalsLanczos returns the neigvals lowest eigenvalues of the Hermitian
// operator ops on b. Real arithmetic is used whenever the couplings and the
// irrep are real.
func EigvalsLanczos(ctx context.Context, ops *operator.OpSum, b basis.Basis, neigvals int, opts ...Option) (*LanczosResult, error) {
	return eigsLanczos(ctx, ops, b, neigvals, false, applyOptions(opts))
}

// EigsLanczos is EigvalsLanczos that also computes the eigenvectors by
// replaying the recurrence. The run stops once the estimated residual
// norm of every requested Ritz pair is within the precision, not when
// the eigenvalues stop changing.
func EigsLanczos(ctx context.Context, ops *operator.OpSum, b basis.Basis, neigvals int, opts ...Option) (*LanczosResult, error) {
	return eigsLanczos(ctx, ops, b, neigvals, true, applyOptions(opts))
}

func eigsLanczos(ctx context.Context, ops *operator.OpSum, b basis.Basis, neigvals int, vectors bool, o options) (res *LanczosResult, err error) {
	start := time.Now()
	defer func() {
		iterations := 0
		if res != nil {
			iterations = res.Iterations
		}
		o.metricsCollector.RecordLanczos(iterations, time.Since(start), err)
	}()

	if neigvals < 1 {
		return nil, fmt.Errorf("diaggo: %d eigenvalues requested: %w", neigvals, ErrInvalidArgument)
	}
	ts, err := compile(ops, b)
	if err != nil {
		return nil, err
	}
	if !operator.IsHermitian(ts) {
		return nil, fmt.Errorf("diaggo: lanczos: %w", ErrNotHermitian)
	}
	if err := terms.Check(ts, b, b); err != nil {
		return nil, err
	}
	if b.Size() == 0 {
		return nil, fmt.Errorf("diaggo: lanczos on an empty basis: %w", ErrInvalidArgument)
	}
	if operator.IsReal(ts) && basis.IsReal(b) {
		return runLanczos[float64](ctx, ts, b, neigvals, vectors, o)
	}
	return runLanczos[complex128](ctx, ts, b, neigvals, vectors, o)
}

func runLanczos[T Scalar](ctx context.Context, ts []operator.Term, b basis.Basis, neigvals int, vectors bool, o options) (*LanczosResult, error) {
	log := o.logger.WithBasis(b)
	fill := o.fillOptions()
	mult := func(ctx context.Context, in, out []T) error {
		clear(out)
		return terms.Fill(ctx, ts, b, b, terms.NewVectorSink(in, out, o.workers > 1), fill)
	}
	v0 := StartVector[T](b.Size(), o.seed)

	conv := lanczos.ConvergedEigenvalues(neigvals, o.precision)
	if vectors {
		conv = lanczos.ConvergedResidual(neigvals, o.precision)
	}
	converged := func(t lanczos.Tmatrix) bool {
		n := t.Size()
		log.LogLanczosIteration(ctx, n, t.Alphas[n-1], t.Betas[n-1])
		return conv(t)
	}

	run, err := lanczos.Run(ctx, mult, v0, converged, o.lanczosOptions()...)
	if err != nil {
		log.LogLanczosDone(ctx, run.Iterations, run.Criterion.String(), 0, err)
		return nil, translateError(err)
	}
	vals, err := run.Tmatrix.Eigenvalues()
	if err != nil {
		return nil, err
	}
	k := min(neigvals, len(vals))
	res := &LanczosResult{
		Eigenvalues: vals[:k],
		Tmatrix:     run.Tmatrix,
		Criterion:   run.Criterion,
		Iterations:  run.Iterations,
	}
	log.LogLanczosDone(ctx, res.Iterations, res.Criterion.String(), res.Eigenvalues[0], nil)
	if !vectors {
		return res, nil
	}

	indices := make([]int, k)
	for i := range indices {
		indices[i] = i
	}
	vecs, err := lanczos.Eigenvectors(ctx, mult, v0, run.Tmatrix, indices, o.lanczosOptions()...)
	if err != nil {
		return nil, translateError(err)
	}
	res.Eigenvectors = make([][]complex128, k)
	for i, v := range vecs {
		res.Eigenvectors[i] = toComplex(v)
	}
	return res, nil
}

// StartVector returns the random Lanczos start vector of length n for
// seed, uniform in [-0.5, 0.5) per component.
func StartVector[T Scalar](n int64, seed uint64) []T {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	v := make([]T, n)
	switch x := any(v).(type) {
	case []float64:
		for i := range x {
			x[i] = r.Float64() - 0.5
		}
	case []complex128:
		for i := range x {
			x[i] = complex(r.Float64()-0.5, r.Float64()-0.5)
		}
	}
	return v
}

func toComplex[T Scalar](v []T) []complex128 {
	if c, ok := any(v).([]complex128); ok {
		return c
	}
	f := any(v).([]float64)
	c := make([]complex128, len(f))
	for i, x := range f {
		c[i] = complex(x, 0)
	}
	return c
}

// SaveSnapshot stores res for basis b under name. With vector set, the
// first eigenvector is stored as well.
func SaveSnapshot(ctx context.Context, store blobstore.Store, name string, b basis.Basis, res *LanczosResult, vector bool, opts ...Option) error {
	o := applyOptions(opts)
	rec := &snapshot.Record{
		Basis:       basis.Describe(b),
		Tmatrix:     res.Tmatrix,
		Eigenvalues: res.Eigenvalues,
		Criterion:   res.Criterion.String(),
		Iterations:  res.Iterations,
	}
	if vector && len(res.Eigenvectors) > 0 {
		v := res.Eigenvectors[0]
		if basis.IsReal(b) && isReal(v) {
			rec.Vector = make([]float64, len(v))
			for i, c := range v {
				rec.Vector[i] = real(c)
			}
		} else {
			rec.ComplexVector = v
		}
	}
	err := snapshot.Save(ctx, store, name, rec,
		snapshot.WithResources(o.resources), snapshot.WithCompression(o.compression))
	o.logger.LogSnapshot(ctx, name, err)
	return err
}

func isReal(v []complex128) bool {
	for _, c := range v {
		if imag(c) != 0 {
			return false
		}
	}
	return true
}
