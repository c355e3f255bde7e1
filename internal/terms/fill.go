package terms

import (
	"context"
	"fmt"
	"iter"
	"math/cmplx"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/diaggo/basis"
	"github.com/hupe1980/diaggo/internal/errs"
	"github.com/hupe1980/diaggo/operator"
	"github.com/hupe1980/diaggo/resource"
)

// minChunk is the smallest number of input states handed to one worker.
const minChunk = 1024

// Options controls the parallelism of Fill.
type Options struct {
	// Workers is the number of goroutines. Values below 2 fill serially.
	Workers int
	// Resources, if set, gates every chunk on a worker slot.
	Resources *resource.Controller
}

type ranger interface {
	Range(start, end int64) iter.Seq2[int64, basis.State]
}

type normer interface {
	Norm(idx int64) float64
}

type spinLocator interface {
	Locate(x uint64) (int64, int)
	normer
}

type productLocator interface {
	Locate(s basis.State) (int64, int)
	Sign(sym int, s basis.State) float64
	normer
}

// locateFunc maps a raw output configuration to its row and the factor
// sign * conj(chi(sym)) * norm_out. The row is InvalidIndex if the
// configuration is not in the output basis.
type locateFunc func(s basis.State) (int64, complex128)

// Check validates that terms map in to out.
func Check(terms []operator.Term, in, out basis.Basis) error {
	if in.Model() != out.Model() || in.NSites() != out.NSites() {
		return fmt.Errorf("terms: input %s and output %s: %w", basis.String(in), basis.String(out), errs.ErrIncompatibleBasis)
	}
	if err := operator.CheckModel(terms, in.Model()); err != nil {
		return err
	}
	if basis.IsSymmetric(in) != basis.IsSymmetric(out) ||
		!in.Group().Equal(out.Group()) || !in.Irrep().Equal(out.Irrep()) {
		return fmt.Errorf("terms: input and output symmetry differ: %w", errs.ErrIncompatibleBasis)
	}
	if g := in.Group(); g != nil && !operator.IsSymmetric(terms, g) {
		return fmt.Errorf("terms: operator is not invariant under the basis group: %w", errs.ErrSymmetryMismatch)
	}

	qin, qout := in.QuantumNumbers(), out.QuantumNumbers()
	if !qin.Conserved() || !qout.Conserved() {
		if qin.Conserved() != qout.Conserved() {
			return fmt.Errorf("terms: input %s and output %s: %w", qin, qout, errs.ErrIncompatibleBasis)
		}
		return nil
	}
	d, err := operator.SectorDelta(terms)
	if err != nil {
		return fmt.Errorf("terms: %w: %w", errs.ErrIncompatibleBasis, err)
	}
	want := basis.QuantumNumbers{NUp: qin.NUp + d.Up, NDn: qin.NDn + d.Dn}
	if in.Model() == basis.ModelSpinhalf {
		want.NDn = qin.NDn - d.Up
	}
	if len(terms) > 0 && want != qout {
		return fmt.Errorf("terms: operator maps %s to %s, output basis is %s: %w", qin, want, qout, errs.ErrIncompatibleBasis)
	}
	return nil
}

// Fill applies every term to every input state and accumulates the matrix
// elements <out_row|H|in_col> into sink. Input states are split into chunks
// that are processed by up to opt.Workers goroutines.
func Fill(ctx context.Context, terms []operator.Term, in, out basis.Basis, sink Sink, opt Options) error {
	if err := Check(terms, in, out); err != nil {
		return err
	}
	kernels, err := Compile(terms, in.Model())
	if err != nil {
		return err
	}
	var diag []func(basis.State) complex128
	var off []func(basis.State, EmitFunc)
	for _, k := range kernels {
		if k.Diag != nil {
			diag = append(diag, k.Diag)
		} else {
			off = append(off, k.Off)
		}
	}

	src, ok := in.(ranger)
	if !ok {
		return fmt.Errorf("terms: %T cannot be enumerated: %w", in, errs.ErrIncompatibleBasis)
	}
	inNorm, _ := in.(normer)
	locate := locator(out)
	same := in.Equal(out)

	fillRange := func(start, end int64) {
		var (
			col    int64
			invIn  complex128 = 1
			emitTo EmitFunc
		)
		emitTo = func(t basis.State, c complex128) {
			row, f := locate(t)
			if row == basis.InvalidIndex {
				return
			}
			sink.Accumulate(row, col, c*f*invIn)
		}
		for idx, s := range src.Range(start, end) {
			col = idx
			if inNorm != nil {
				invIn = complex(1/inNorm.Norm(idx), 0)
			}
			if len(diag) > 0 {
				var d complex128
				for _, k := range diag {
					d += k(s)
				}
				if d != 0 {
					if same {
						sink.Accumulate(idx, idx, d)
					} else {
						emitTo(s, d)
					}
				}
			}
			for _, k := range off {
				k(s, emitTo)
			}
		}
	}

	size := in.Size()
	workers := opt.Workers
	if workers < 2 || size <= minChunk {
		fillRange(0, size)
		return ctx.Err()
	}

	chunk := max(size/int64(workers*4), minChunk)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := int64(0); start < size; start += chunk {
		end := min(start+chunk, size)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if opt.Resources != nil {
				if err := opt.Resources.AcquireWorker(gctx); err != nil {
					return err
				}
				defer opt.Resources.ReleaseWorker()
			}
			fillRange(start, end)
			return nil
		})
	}
	return g.Wait()
}

func locator(out basis.Basis) locateFunc {
	switch b := out.(type) {
	case *basis.SpinhalfSymmetric:
		chars := conjugates(b)
		return func(s basis.State) (int64, complex128) {
			if s.Dn != 0 {
				return basis.InvalidIndex, 0
			}
			return spinFactor(b, chars, s.Up)
		}
	case *basis.TJSymmetric:
		return productFactor(b, conjugates(b))
	case *basis.ElectronSymmetric:
		return productFactor(b, conjugates(b))
	default:
		return func(s basis.State) (int64, complex128) {
			return out.Index(s), 1
		}
	}
}

func spinFactor(b spinLocator, chars []complex128, x uint64) (int64, complex128) {
	idx, sym := b.Locate(x)
	if idx == basis.InvalidIndex {
		return idx, 0
	}
	return idx, chars[sym] * complex(b.Norm(idx), 0)
}

func productFactor(b productLocator, chars []complex128) locateFunc {
	return func(s basis.State) (int64, complex128) {
		idx, sym := b.Locate(s)
		if idx == basis.InvalidIndex {
			return idx, 0
		}
		return idx, chars[sym] * complex(b.Sign(sym, s)*b.Norm(idx), 0)
	}
}

func conjugates(b basis.Basis) []complex128 {
	chars := b.Irrep().Characters()
	for i, c := range chars {
		chars[i] = cmplx.Conj(c)
	}
	return chars
}
