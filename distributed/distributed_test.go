package distributed

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/diaggo/basis"
	"github.com/hupe1980/diaggo/comm"
	"github.com/hupe1980/diaggo/internal/errs"
	"github.com/hupe1980/diaggo/internal/linalg"
	"github.com/hupe1980/diaggo/internal/terms"
	"github.com/hupe1980/diaggo/operator"
)

func heisenbergRing(t *testing.T, n int) []operator.Term {
	t.Helper()
	s := operator.NewOpSum()
	for i := range n {
		s.Add(operator.NewOp("Heisenberg", operator.Real(1), i, (i+1)%n))
		s.Add(operator.NewOp("Heisenberg", operator.Real(0.3), i, (i+2)%n))
	}
	ts, err := operator.Compile(s, n)
	require.NoError(t, err)
	return ts
}

func TestSpinhalf_PartitionsTheSector(t *testing.T) {
	const nsites, nup = 9, 4
	for _, size := range []int{1, 2, 3, 5} {
		var (
			mu    sync.Mutex
			seen  = map[uint64]int{}
			total int64
		)
		err := comm.Run(t.Context(), size, func(_ context.Context, c comm.Communicator) error {
			b, err := NewSpinhalf(c, nsites, nup)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			total += b.Size()
			for idx, x := range b.All() {
				seen[x]++
				if b.Index(x) != idx || b.State(idx) != x {
					t.Errorf("rank %d: index %d and state %#x disagree", c.Rank(), idx, x)
				}
				if b.Owner(x>>uint(b.npost)) != c.Rank() {
					t.Errorf("rank %d stores foreign state %#x", c.Rank(), x)
				}
			}
			return nil
		})
		require.NoError(t, err)

		serial, err := basis.NewSpinhalf(nsites, nup)
		require.NoError(t, err)
		assert.Equal(t, serial.Size(), total, "size %d", size)
		assert.Len(t, seen, int(serial.Size()))
		for x, n := range seen {
			assert.Equal(t, 1, n, "state %#x", x)
		}
	}
}

func TestSpinhalf_Invalid(t *testing.T) {
	_, err := NewSpinhalf(comm.Self{}, 0, 0)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = NewSpinhalf(comm.Self{}, 4, 5)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	b, err := NewSpinhalf(comm.Self{}, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, basis.InvalidIndex, b.Index(0b0111))
	assert.Equal(t, int64(6), b.Dim())
}

func TestApply_MatchesSerial(t *testing.T) {
	const nsites, nup = 10, 5
	ts := heisenbergRing(t, nsites)

	serial, err := basis.NewSpinhalf(nsites, nup)
	require.NoError(t, err)
	ref := refVector(serial)
	want := make([]float64, serial.Size())
	sink := terms.NewVectorSink(ref, want, false)
	require.NoError(t, terms.Fill(t.Context(), ts, serial, serial, sink, terms.Options{}))

	for _, size := range []int{1, 2, 4} {
		got := make([]float64, serial.Size())
		err := comm.Run(t.Context(), size, func(ctx context.Context, c comm.Communicator) error {
			b, err := NewSpinhalf(c, nsites, nup)
			if err != nil {
				return err
			}
			in := StartVector[float64](b, 7)
			out := make([]float64, b.Size())
			if err := Apply(ctx, ts, b, in, out); err != nil {
				return err
			}
			for idx, x := range b.All() {
				got[serial.Index(basis.State{Up: x})] = out[idx]
			}
			return nil
		})
		require.NoError(t, err)
		assert.InDeltaSlice(t, want, got, 1e-12, "size %d", size)
	}
}

// refVector is the serial counterpart of StartVector with seed 7.
func refVector(b *basis.Spinhalf) []float64 {
	v := make([]float64, b.Size())
	for idx, s := range b.All() {
		v[idx] = unitFloat(s.Up, 7)
	}
	return v
}

func TestApply_Errors(t *testing.T) {
	b, err := NewSpinhalf(comm.Self{}, 4, 2)
	require.NoError(t, err)

	ts, err := operator.Compile(operator.NewOpSum(operator.NewOp("S+", operator.Real(1), 0)), 4)
	require.NoError(t, err)
	v := make([]float64, b.Size())
	assert.ErrorIs(t, Apply(t.Context(), ts, b, v, v), errs.ErrIncompatibleBasis)

	assert.ErrorIs(t, Apply(t.Context(), nil, b, v[:1], v), errs.ErrInvalidArgument)

	ts, err = operator.Compile(operator.NewOpSum(operator.NewOp("Exchange", operator.Scalar(1i), 0, 1)), 4)
	require.NoError(t, err)
	out := make([]float64, b.Size())
	assert.ErrorIs(t, Apply(t.Context(), ts, b, v, out), errs.ErrComplexCoefficient)
}

func TestEigvalsLanczos_MatchesDense(t *testing.T) {
	const nsites, nup = 10, 5
	ts := heisenbergRing(t, nsites)

	serial, err := basis.NewSpinhalf(nsites, nup)
	require.NoError(t, err)
	n := serial.Size()
	dense := make([]float64, n*n)
	require.NoError(t, terms.Fill(t.Context(), ts, serial, serial, terms.NewMatrixSink(n, dense), terms.Options{}))
	exact, _, err := linalg.SymEigen(dense, int(n), false)
	require.NoError(t, err)

	for _, size := range []int{1, 3} {
		vals := make([][]float64, size)
		err := comm.Run(t.Context(), size, func(ctx context.Context, c comm.Communicator) error {
			b, err := NewSpinhalf(c, nsites, nup)
			if err != nil {
				return err
			}
			ev, _, err := EigvalsLanczos(ctx, ts, b, 1, 1e-12, 42)
			vals[c.Rank()] = ev
			return err
		})
		require.NoError(t, err)
		for r := range size {
			require.Len(t, vals[r], 1)
			assert.InDelta(t, exact[0], vals[r][0], 1e-9, "size %d rank %d", size, r)
			assert.Equal(t, vals[0], vals[r])
		}
	}
}

func TestEigvalsLanczos_Complex(t *testing.T) {
	const nsites, nup = 6, 3
	s := operator.NewOpSum()
	for i := range nsites {
		s.Add(operator.NewOp("Exchange", operator.Scalar(complex(0.6, 0.8)), i, (i+1)%nsites))
		s.Add(operator.NewOp("SzSz", operator.Real(1), i, (i+1)%nsites))
	}
	ts, err := operator.Compile(s, nsites)
	require.NoError(t, err)

	serial, err := basis.NewSpinhalf(nsites, nup)
	require.NoError(t, err)
	n := serial.Size()
	dense := make([]complex128, n*n)
	require.NoError(t, terms.Fill(t.Context(), ts, serial, serial, terms.NewMatrixSink(n, dense), terms.Options{}))
	exact, err := linalg.HermitianEigenvalues(dense, int(n))
	require.NoError(t, err)

	var got []float64
	err = comm.Run(t.Context(), 2, func(ctx context.Context, c comm.Communicator) error {
		b, err := NewSpinhalf(c, nsites, nup)
		if err != nil {
			return err
		}
		ev, _, err := EigvalsLanczos(ctx, ts, b, 1, 1e-12, 1)
		if c.Rank() == 0 {
			got = ev
		}
		return err
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, exact[0], got[0], 1e-9)
}
