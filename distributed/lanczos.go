package distributed

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/hupe1980/diaggo/basis"
	"github.com/hupe1980/diaggo/internal/errs"
	"github.com/hupe1980/diaggo/internal/terms"
	"github.com/hupe1980/diaggo/lanczos"
	"github.com/hupe1980/diaggo/operator"
)

// StartVector returns the local part of a pseudo-random vector whose entry
// for configuration x depends only on x and seed, so the global vector is the
// same for any number of ranks.
func StartVector[T lanczos.Scalar](b *Spinhalf, seed uint64) []T {
	v := make([]T, b.Size())
	for idx, x := range b.All() {
		re := unitFloat(x, seed)
		var z T
		switch p := any(&z).(type) {
		case *float64:
			*p = re
		case *complex128:
			*p = complex(re, unitFloat(x, ^seed))
		}
		v[idx] = z
	}
	return v
}

// unitFloat hashes (x, seed) to [-0.5, 0.5).
func unitFloat(x, seed uint64) float64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], x)
	binary.LittleEndian.PutUint64(buf[8:], seed)
	return float64(xxhash.Sum64(buf[:])>>11)/(1<<53) - 0.5
}

// Mult returns the collective multiply of ts on b for use with lanczos.Run.
func Mult[T lanczos.Scalar](ts []operator.Term, b *Spinhalf) (lanczos.MultFunc[T], error) {
	if err := Check(ts, b); err != nil {
		return nil, err
	}
	var zero T
	if _, ok := any(zero).(float64); ok && !operator.IsReal(ts) {
		return nil, fmt.Errorf("distributed: real vectors with complex operator: %w", errs.ErrComplexCoefficient)
	}
	kernels, err := terms.Compile(ts, basis.ModelSpinhalf)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, in, out []T) error {
		return apply(ctx, kernels, b, in, out)
	}, nil
}

// EigvalsLanczos computes the neigvals lowest eigenvalues of ts on b with a
// collective Lanczos run. Every rank must call it with the same arguments
// and gets the same eigenvalues. Real arithmetic is used for real operators.
func EigvalsLanczos(ctx context.Context, ts []operator.Term, b *Spinhalf, neigvals int, precision float64, seed uint64, opts ...lanczos.Option) ([]float64, lanczos.Result, error) {
	if neigvals < 1 {
		return nil, lanczos.Result{}, fmt.Errorf("distributed: neigvals=%d: %w", neigvals, errs.ErrInvalidArgument)
	}
	if operator.IsReal(ts) {
		return eigvals[float64](ctx, ts, b, neigvals, precision, seed, opts)
	}
	return eigvals[complex128](ctx, ts, b, neigvals, precision, seed, opts)
}

func eigvals[T lanczos.Scalar](ctx context.Context, ts []operator.Term, b *Spinhalf, neigvals int, precision float64, seed uint64, opts []lanczos.Option) ([]float64, lanczos.Result, error) {
	mult, err := Mult[T](ts, b)
	if err != nil {
		return nil, lanczos.Result{}, err
	}
	opts = append(opts[:len(opts):len(opts)], lanczos.WithReduce(b.comm.AllreduceSum))
	res, err := lanczos.Run(ctx, mult, StartVector[T](b, seed), lanczos.ConvergedEigenvalues(neigvals, precision), opts...)
	if err != nil {
		return nil, res, err
	}
	vals, err := res.Tmatrix.Eigenvalues()
	if err != nil {
		return nil, res, err
	}
	return vals[:min(neigvals, len(vals))], res, nil
}
