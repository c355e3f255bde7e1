package terms

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/diaggo/basis"
	"github.com/hupe1980/diaggo/internal/errs"
	"github.com/hupe1980/diaggo/operator"
	"github.com/hupe1980/diaggo/symmetry"
)

func compileOps(t *testing.T, nsites int, ops ...operator.Op) []operator.Term {
	t.Helper()
	terms, err := operator.Compile(operator.NewOpSum(ops...), nsites)
	require.NoError(t, err)
	return terms
}

func denseReal(t *testing.T, terms []operator.Term, in, out basis.Basis) []float64 {
	t.Helper()
	data := make([]float64, in.Size()*out.Size())
	require.NoError(t, Fill(t.Context(), terms, in, out, NewMatrixSink(out.Size(), data), Options{}))
	return data
}

func ring(n int) []operator.Op {
	ops := make([]operator.Op, 0, n)
	for i := range n {
		ops = append(ops, operator.NewOp("Heisenberg", operator.Real(1), i, (i+1)%n))
	}
	return ops
}

func TestFill_TwoSiteHeisenberg(t *testing.T) {
	b, err := basis.NewSpinhalf(2, 1)
	require.NoError(t, err)
	terms := compileOps(t, 2, operator.NewOp("Heisenberg", operator.Real(1), 0, 1))

	m := denseReal(t, terms, b, b)
	assert.InDeltaSlice(t, []float64{-0.25, 0.5, 0.5, -0.25}, m, 1e-15)
}

func TestFill_HopSign(t *testing.T) {
	b, err := basis.NewElectron(3, 2, 0)
	require.NoError(t, err)
	terms := compileOps(t, 3, operator.NewOp("Hopup", operator.Real(1), 0, 2))

	m := denseReal(t, terms, b, b)
	n := b.Size()
	from := b.Index(basis.State{Up: 0b011})
	to := b.Index(basis.State{Up: 0b110})
	// the hopping fermion passes the one on site 1
	assert.InDelta(t, 1.0, m[from*n+to], 1e-15)
	assert.InDelta(t, 1.0, m[to*n+from], 1e-15)

	// 0b101 has both hop sites occupied
	plain := b.Index(basis.State{Up: 0b101})
	for row := range n {
		assert.Zero(t, m[plain*n+row])
	}
}

func TestFill_TJBlocksDoubleOccupancy(t *testing.T) {
	b, err := basis.NewTJ(2, 1, 1)
	require.NoError(t, err)
	terms := compileOps(t, 2, operator.NewOp("Hop", operator.Real(1), 0, 1))

	m := denseReal(t, terms, b, b)
	for _, v := range m {
		assert.Zero(t, v)
	}
}

func TestFill_CreationSign(t *testing.T) {
	in, err := basis.NewElectron(2, 1, 0)
	require.NoError(t, err)
	out, err := basis.NewElectron(2, 1, 1)
	require.NoError(t, err)
	terms := compileOps(t, 2, operator.NewOp("Cdagdn", operator.Real(1), 0))

	m := denseReal(t, terms, in, out)
	col := in.Index(basis.State{Up: 0b10})
	row := out.Index(basis.State{Up: 0b10, Dn: 0b01})
	assert.InDelta(t, -1.0, m[col*out.Size()+row], 1e-15)
}

func TestFill_ElectronExchangeSign(t *testing.T) {
	b, err := basis.NewElectron(2, 1, 1)
	require.NoError(t, err)
	terms := compileOps(t, 2, operator.NewOp("Exchange", operator.Real(1), 0, 1))

	m := denseReal(t, terms, b, b)
	n := b.Size()
	a := b.Index(basis.State{Up: 0b01, Dn: 0b10})
	c := b.Index(basis.State{Up: 0b10, Dn: 0b01})
	assert.InDelta(t, -0.5, m[a*n+c], 1e-15)
	assert.InDelta(t, -0.5, m[c*n+a], 1e-15)
}

func TestFill_MatrixMatchesBuiltin(t *testing.T) {
	b, err := basis.NewSpinhalf(4, basis.Unconserved)
	require.NoError(t, err)
	// Sz Sz + (S+S- + S-S+)/2 on two sites
	heis := operator.RealMatrix([][]float64{
		{0.25, 0, 0, 0},
		{0, -0.25, 0.5, 0},
		{0, 0.5, -0.25, 0},
		{0, 0, 0, 0.25},
	})
	var mops []operator.Op
	for i := range 4 {
		mops = append(mops, operator.NewOp("Matrix", operator.MatrixCoupling(heis), i, (i+1)%4))
	}

	want := denseReal(t, compileOps(t, 4, ring(4)...), b, b)
	got := denseReal(t, compileOps(t, 4, mops...), b, b)
	assert.InDeltaSlice(t, want, got, 1e-14)
}

func TestFill_SymmetricIsHermitian(t *testing.T) {
	g := symmetry.CyclicGroup(6)
	for k := range 6 {
		b, err := basis.NewSpinhalfSymmetric(6, 3, g, symmetry.MomentumRepresentation(6, k))
		require.NoError(t, err)
		terms := compileOps(t, 6, ring(6)...)

		n := b.Size()
		data := make([]complex128, n*n)
		require.NoError(t, Fill(t.Context(), terms, b, b, NewMatrixSink(n, data), Options{}))
		for i := range n {
			for j := range n {
				assert.InDelta(t, 0, cmplx.Abs(data[j*n+i]-cmplx.Conj(data[i*n+j])), 1e-12, "k=%d (%d,%d)", k, i, j)
			}
		}
	}
}

func TestFill_ParallelVectorMatchesSerial(t *testing.T) {
	b, err := basis.NewSpinhalf(14, 7)
	require.NoError(t, err)
	terms := compileOps(t, 14, ring(14)...)

	in := make([]float64, b.Size())
	for i := range in {
		in[i] = float64(i%7) - 3
	}
	serial := make([]float64, b.Size())
	require.NoError(t, Fill(t.Context(), terms, b, b, NewVectorSink(in, serial, false), Options{}))
	parallel := make([]float64, b.Size())
	require.NoError(t, Fill(t.Context(), terms, b, b, NewVectorSink(in, parallel, true), Options{Workers: 4}))
	assert.InDeltaSlice(t, serial, parallel, 1e-12)
}

func TestFill_CountAndCOO(t *testing.T) {
	b, err := basis.NewSpinhalf(4, 2)
	require.NoError(t, err)
	terms := compileOps(t, 4, operator.NewOp("Exchange", operator.Real(1), 0, 1))

	var cnt NnzCountSink
	require.NoError(t, Fill(t.Context(), terms, b, b, &cnt, Options{}))
	// four of the six states have antiparallel spins on sites 0 and 1
	assert.Equal(t, int64(4), cnt.Count())

	coo := NewCOOSink(cnt.Count())
	require.NoError(t, Fill(t.Context(), terms, b, b, coo, Options{}))
	require.Len(t, coo.Vals, 4)
	for k, v := range coo.Vals {
		assert.Equal(t, complex128(0.5), v)
		assert.Equal(t, coo.Rows[k], b.Index(basis.State{Up: b.State(coo.Cols[k]).Up ^ 0b11}))
	}
}

func TestCheck(t *testing.T) {
	s4, err := basis.NewSpinhalf(4, 2)
	require.NoError(t, err)
	s3, err := basis.NewSpinhalf(4, 3)
	require.NoError(t, err)
	tj, err := basis.NewTJ(4, 1, 1)
	require.NoError(t, err)
	sym, err := basis.NewSpinhalfSymmetric(4, 2, symmetry.CyclicGroup(4), symmetry.MomentumRepresentation(4, 0))
	require.NoError(t, err)

	heis := compileOps(t, 4, operator.NewOp("Heisenberg", operator.Real(1), 0, 1))
	raise := compileOps(t, 4, operator.NewOp("S+", operator.Real(1), 0))

	assert.NoError(t, Check(heis, s4, s4))
	assert.NoError(t, Check(raise, s4, s3))
	assert.ErrorIs(t, Check(heis, s4, s3), errs.ErrIncompatibleBasis)
	assert.ErrorIs(t, Check(heis, s4, tj), errs.ErrIncompatibleBasis)
	assert.ErrorIs(t, Check(raise, tj, tj), errs.ErrUnknownOperatorType)
	assert.ErrorIs(t, Check(heis, sym, sym), errs.ErrSymmetryMismatch)
	assert.ErrorIs(t, Check(heis, s4, sym), errs.ErrIncompatibleBasis)
}
