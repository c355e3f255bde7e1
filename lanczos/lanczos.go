// Package lanczos implements the Lanczos three-term recurrence for Hermitian
// operators given only as a matrix-vector product.
//
// Run builds the tridiagonal projection while holding three vectors.
// Lanczos vectors are not stored; Eigenvectors recovers Ritz vectors by
// replaying the recurrence from the same start vector.
package lanczos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"unsafe"

	"github.com/hupe1980/diaggo/internal/errs"
	"github.com/hupe1980/diaggo/resource"
)

// Scalar is the vector element type.
type Scalar interface {
	float64 | complex128
}

// MultFunc computes out = A in. out is fully overwritten. For distributed
// vectors it is a collective operation.
type MultFunc[T Scalar] func(ctx context.Context, in, out []T) error

// ConvergedFunc decides after every step whether the run is done.
type ConvergedFunc func(t Tmatrix) bool

// State is the state of a Lanczos run.
type State int

const (
	// Initialized is the state before the first step.
	Initialized State = iota
	// Iterating is the state while steps are running.
	Iterating
	// Converged means the convergence predicate accepted the projection.
	Converged
	// Deflated means a residual norm fell below the deflation tolerance.
	Deflated
	// MaxIterationsReached means the iteration limit stopped the run.
	MaxIterationsReached
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Iterating:
		return "iterating"
	case Converged:
		return "converged"
	case Deflated:
		return "deflated"
	case MaxIterationsReached:
		return "maxiterations"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is the outcome of a run.
type Result struct {
	Tmatrix    Tmatrix
	Criterion  State
	Iterations int
}

// Run performs Lanczos steps from the start vector v0 until converged
// accepts the projection, a residual norm drops below the deflation
// tolerance or the iteration limit is reached. v0 is not modified and need
// not be normalized.
func Run[T Scalar](ctx context.Context, mult MultFunc[T], v0 []T, converged ConvergedFunc, opts ...Option) (res Result, err error) {
	o := applyOptions(opts)
	log := o.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	ws, err := newWorkspace[T](len(v0), 3, o.resources)
	if err != nil {
		return Result{}, err
	}
	defer ws.release()

	res.Criterion = Initialized
	err = recurrence(ctx, mult, v0, ws, o, func(alpha, beta float64) (bool, error) {
		res.Criterion = Iterating
		res.Tmatrix.Alphas = append(res.Tmatrix.Alphas, alpha)
		res.Tmatrix.Betas = append(res.Tmatrix.Betas, beta)
		res.Iterations++
		log.DebugContext(ctx, "lanczos iteration", "iteration", res.Iterations, "alpha", alpha, "beta", beta)

		switch {
		case converged != nil && converged(res.Tmatrix):
			res.Criterion = Converged
		case beta <= o.deflationTol:
			res.Criterion = Deflated
		case res.Iterations >= o.maxIterations:
			res.Criterion = MaxIterationsReached
		default:
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return res, err
	}
	log.InfoContext(ctx, "lanczos done", "iterations", res.Iterations, "criterion", res.Criterion.String())
	return res, nil
}

// Eigenvectors replays the recurrence of a run with projection t from the
// same start vector and returns the normalized Ritz vectors for the given
// eigenvalue indices (0 is the lowest). mult and v0 must be those of the
// original run.
func Eigenvectors[T Scalar](ctx context.Context, mult MultFunc[T], v0 []T, t Tmatrix, indices []int, opts ...Option) ([][]T, error) {
	o := applyOptions(opts)
	_, tvecs, err := t.Eigen()
	if err != nil {
		return nil, err
	}
	for _, k := range indices {
		if k < 0 || k >= len(tvecs) {
			return nil, fmt.Errorf("lanczos: eigenvector %d of a %d-dimensional projection: %w", k, len(tvecs), errs.ErrInvalidArgument)
		}
	}

	ws, err := newWorkspace[T](len(v0), 3+len(indices), o.resources)
	if err != nil {
		return nil, err
	}
	defer ws.release()
	out := ws.vecs[3:]

	step := 0
	err = recurrence(ctx, mult, v0, ws, o, func(float64, float64) (bool, error) {
		return step+1 < t.Size(), nil
	}, func(v []T) {
		for j, k := range indices {
			axpy(fromReal[T](tvecs[k][step]), v, out[j])
		}
		step++
	})
	if err != nil {
		return nil, err
	}

	res := make([][]T, len(indices))
	for j := range out {
		n, err := norm(ctx, out[j], o.reduce)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			scale(fromReal[T](1/n), out[j])
		}
		res[j] = append([]T(nil), out[j]...)
	}
	return res, nil
}

// Eigenvector replays the recurrence for a single Ritz vector.
func Eigenvector[T Scalar](ctx context.Context, mult MultFunc[T], v0 []T, t Tmatrix, index int, opts ...Option) ([]T, error) {
	vs, err := Eigenvectors(ctx, mult, v0, t, []int{index}, opts...)
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

// recurrence runs the three-term recurrence. step receives alpha and the
// new residual norm and reports whether to continue. visit, if given, sees
// every normalized Lanczos vector before it is multiplied.
func recurrence[T Scalar](ctx context.Context, mult MultFunc[T], v0 []T, ws *workspace[T], o options,
	step func(alpha, beta float64) (bool, error), visit ...func(v []T)) error {
	prev, cur, w := ws.vecs[0], ws.vecs[1], ws.vecs[2]
	copy(cur, v0)
	n0, err := norm(ctx, cur, o.reduce)
	if err != nil {
		return err
	}
	if n0 == 0 || math.IsNaN(n0) {
		return fmt.Errorf("lanczos: start vector has norm %v: %w", n0, errs.ErrInvalidArgument)
	}
	scale(fromReal[T](1/n0), cur)

	var beta float64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, f := range visit {
			f(cur)
		}
		if err := mult(ctx, cur, w); err != nil {
			return fmt.Errorf("lanczos: multiply: %w", err)
		}
		alpha, err := dotRe(ctx, cur, w, o.reduce)
		if err != nil {
			return err
		}
		a, b := fromReal[T](alpha), fromReal[T](beta)
		for i := range w {
			w[i] -= a*cur[i] + b*prev[i]
		}
		beta, err = norm(ctx, w, o.reduce)
		if err != nil {
			return err
		}
		more, err := step(alpha, beta)
		if err != nil || !more {
			return err
		}
		if beta == 0 {
			return nil
		}
		inv := fromReal[T](1 / beta)
		for i := range w {
			prev[i] = cur[i]
			cur[i] = w[i] * inv
		}
	}
}

type workspace[T Scalar] struct {
	vecs  [][]T
	bytes int64
	rc    *resource.Controller
}

// newWorkspace allocates k vectors of length n. A failed reservation or
// allocation is reported as ErrAllocationFailure.
func newWorkspace[T Scalar](n, k int, rc *resource.Controller) (ws *workspace[T], err error) {
	var zero T
	bytes := int64(n) * int64(k) * int64(unsafe.Sizeof(zero))
	if err := rc.Reserve(bytes); err != nil {
		if errors.Is(err, resource.ErrMemoryLimitExceeded) {
			return nil, fmt.Errorf("lanczos: %d work vectors of length %d: %w: %w", k, n, errs.ErrAllocationFailure, err)
		}
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			rc.ReleaseMemory(bytes)
			ws, err = nil, fmt.Errorf("lanczos: %d work vectors of length %d: %v: %w", k, n, r, errs.ErrAllocationFailure)
		}
	}()
	ws = &workspace[T]{vecs: make([][]T, k), bytes: bytes, rc: rc}
	for i := range ws.vecs {
		ws.vecs[i] = make([]T, n)
	}
	return ws, nil
}

func (ws *workspace[T]) release() { ws.rc.ReleaseMemory(ws.bytes) }

func reduce(ctx context.Context, x float64, f ReduceFunc) (float64, error) {
	if f == nil {
		return x, nil
	}
	v, err := f(ctx, x)
	if err != nil {
		return 0, fmt.Errorf("lanczos: reduce: %w", err)
	}
	return v, nil
}

// dotRe returns Re <a, b>.
func dotRe[T Scalar](ctx context.Context, a, b []T, f ReduceFunc) (float64, error) {
	var s float64
	switch x := any(a).(type) {
	case []float64:
		y := any(b).([]float64)
		for i := range x {
			s += x[i] * y[i]
		}
	case []complex128:
		y := any(b).([]complex128)
		for i := range x {
			s += real(x[i])*real(y[i]) + imag(x[i])*imag(y[i])
		}
	}
	return reduce(ctx, s, f)
}

func norm[T Scalar](ctx context.Context, a []T, f ReduceFunc) (float64, error) {
	s, err := dotRe(ctx, a, a, f)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(s), nil
}

func fromReal[T Scalar](x float64) T {
	var z T
	switch p := any(&z).(type) {
	case *float64:
		*p = x
	case *complex128:
		*p = complex(x, 0)
	}
	return z
}

func axpy[T Scalar](a T, x, y []T) {
	for i := range x {
		y[i] += a * x[i]
	}
}

func scale[T Scalar](a T, x []T) {
	for i := range x {
		x[i] *= a
	}
}
