package distributed

import (
	"context"
	"fmt"

	"github.com/hupe1980/diaggo/basis"
	"github.com/hupe1980/diaggo/comm"
	"github.com/hupe1980/diaggo/internal/errs"
	"github.com/hupe1980/diaggo/internal/terms"
	"github.com/hupe1980/diaggo/lanczos"
	"github.com/hupe1980/diaggo/operator"
)

// Entry is a contribution to a configuration owned by another rank.
type Entry[T lanczos.Scalar] struct {
	State uint64
	Value T
}

// Check validates that ts can be applied to b: only spin-1/2 terms that
// conserve the number of up spins are allowed.
func Check(ts []operator.Term, b *Spinhalf) error {
	if err := operator.CheckModel(ts, basis.ModelSpinhalf); err != nil {
		return err
	}
	d, err := operator.SectorDelta(ts)
	if err != nil {
		return fmt.Errorf("distributed: %w: %w", errs.ErrIncompatibleBasis, err)
	}
	if d.Up != 0 {
		return fmt.Errorf("distributed: operator changes nup by %d: %w", d.Up, errs.ErrIncompatibleBasis)
	}
	for _, t := range ts {
		for _, s := range t.Sites {
			if s >= b.nsites {
				return fmt.Errorf("distributed: site %d on %d sites: %w", s, b.nsites, errs.ErrInvalidArgument)
			}
		}
	}
	return nil
}

// Apply computes out = H in for the rank-local parts of distributed
// vectors. It is collective: every rank must call it.
//
// Terms are applied to local states. Results whose prefix is owned locally
// are accumulated directly; the others are batched per owner and exchanged
// in a single all-to-all.
func Apply[T lanczos.Scalar](ctx context.Context, ts []operator.Term, b *Spinhalf, in, out []T) error {
	if int64(len(in)) != b.Size() || int64(len(out)) != b.Size() {
		return fmt.Errorf("distributed: vectors of length %d and %d on %d local states: %w",
			len(in), len(out), b.Size(), errs.ErrInvalidArgument)
	}
	if err := Check(ts, b); err != nil {
		return err
	}
	if _, ok := any(in).([]float64); ok && !operator.IsReal(ts) {
		return fmt.Errorf("distributed: real vectors with complex operator: %w", errs.ErrComplexCoefficient)
	}
	kernels, err := terms.Compile(ts, basis.ModelSpinhalf)
	if err != nil {
		return err
	}
	return apply(ctx, kernels, b, in, out)
}

func apply[T lanczos.Scalar](ctx context.Context, kernels []terms.Kernel, b *Spinhalf, in, out []T) error {
	clear(out)
	rank := b.comm.Rank()
	send := make([][]Entry[T], b.comm.Size())

	var v T
	emit := func(t basis.State, c complex128) {
		x := convert[T](c) * v
		owner := b.Owner(t.Up >> uint(b.npost))
		if owner == rank {
			out[b.Index(t.Up)] += x
			return
		}
		send[owner] = append(send[owner], Entry[T]{State: t.Up, Value: x})
	}
	for idx, x := range b.All() {
		v = in[idx]
		if v == 0 {
			continue
		}
		s := basis.State{Up: x}
		for _, k := range kernels {
			if k.Diag != nil {
				out[idx] += convert[T](k.Diag(s)) * v
			} else {
				k.Off(s, emit)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	recv, err := comm.Alltoall(ctx, b.comm, send)
	if err != nil {
		return fmt.Errorf("distributed: exchange: %w", err)
	}
	for src, batch := range recv {
		for _, e := range batch {
			j := b.Index(e.State)
			if j == basis.InvalidIndex {
				return fmt.Errorf("distributed: rank %d sent state %#x not owned by rank %d: %w", src, e.State, rank, errs.ErrIncompatibleBasis)
			}
			out[j] += e.Value
		}
	}
	return nil
}

func convert[T lanczos.Scalar](c complex128) T {
	var z T
	switch p := any(&z).(type) {
	case *float64:
		*p = real(c)
	case *complex128:
		*p = c
	}
	return z
}
