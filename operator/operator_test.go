package operator

import (
	"errors"
	"testing"

	"github.com/hupe1980/diaggo/basis"
	"github.com/hupe1980/diaggo/internal/errs"
	"github.com/hupe1980/diaggo/symmetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func heisenbergChain(n int, periodic bool) *OpSum {
	s := NewOpSum().Set("J", Real(1))
	for i := range n - 1 {
		s.Add(NewOp("Heisenberg", Named("J"), i, i+1))
	}
	if periodic {
		s.Add(NewOp("Heisenberg", Named("J"), n-1, 0))
	}
	return s
}

func TestCompile_Composites(t *testing.T) {
	s := NewOpSum(
		NewOp("Heisenberg", Real(2), 0, 1),
		NewOp("Sy", Real(1), 2),
		NewOp("Hop", Scalar(1+1i), 0, 2),
		NewOp("tJSzSz", Real(4), 1, 2),
	)
	terms, err := Compile(s, 3)
	require.NoError(t, err)
	require.Len(t, terms, 8)

	assert.Equal(t, SzSz, terms[0].Type)
	assert.Equal(t, Exchange, terms[1].Type)
	assert.Equal(t, complex128(2), terms[1].Coeff)
	assert.Equal(t, Splus, terms[2].Type)
	assert.Equal(t, complex(0, -0.5), terms[2].Coeff)
	assert.Equal(t, Sminus, terms[3].Type)
	assert.Equal(t, complex(0, 0.5), terms[3].Coeff)
	assert.Equal(t, Hopup, terms[4].Type)
	assert.Equal(t, Hopdn, terms[5].Type)
	assert.Equal(t, NtotNtot, terms[7].Type)
	assert.Equal(t, complex128(-1), terms[7].Coeff)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		op   Op
		want error
	}{
		{"unknown type", NewOp("Frobnicate", Real(1), 0), errs.ErrUnknownOperatorType},
		{"arity", NewOp("Exchange", Real(1), 0), errs.ErrInvalidOperatorArity},
		{"composite arity", NewOp("Hop", Real(1), 0, 1, 2), errs.ErrInvalidOperatorArity},
		{"repeated site", NewOp("SzSz", Real(1), 1, 1), errs.ErrInvalidOperatorArity},
		{"site range", NewOp("Sz", Real(1), 7), errs.ErrInvalidArgument},
		{"unbound coupling", NewOp("Sz", Named("h"), 0), errs.ErrInvalidArgument},
		{"matrix on scalar type", NewOp("Sz", MatrixCoupling(RealMatrix([][]float64{{1}})), 0), errs.ErrInvalidArgument},
		{"matrix shape", NewOp("Matrix", MatrixCoupling(RealMatrix([][]float64{{1, 0}, {0, 1}})), 0, 1), errs.ErrInvalidArgument},
		{"matrix without sites", NewOp("Matrix", MatrixCoupling(RealMatrix([][]float64{{1}}))), errs.ErrInvalidOperatorArity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(NewOpSum(tt.op), 4)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := Compile(NewOpSum(NewOp("Exchange", Real(1), 0)), 4)
	var arityErr *errs.ArityError
	require.True(t, errors.As(err, &arityErr))
	assert.Equal(t, 2, arityErr.Want)
	assert.Equal(t, 1, arityErr.Got)
}

func TestDelta(t *testing.T) {
	terms, err := Compile(NewOpSum(NewOp("S+", Real(1), 0), NewOp("S+", Real(1), 1)), 2)
	require.NoError(t, err)
	d, err := SectorDelta(terms)
	require.NoError(t, err)
	assert.Equal(t, Delta{Up: 1}, d)

	mixed, err := Compile(NewOpSum(NewOp("Sx", Real(1), 0)), 2)
	require.NoError(t, err)
	_, err = SectorDelta(mixed)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	// |up><dn| on one site raises nup
	raise := NewOp("Matrix", MatrixCoupling(RealMatrix([][]float64{{0, 0}, {1, 0}})), 0)
	terms, err = Compile(NewOpSum(raise), 1)
	require.NoError(t, err)
	d, ok := terms[0].Delta()
	require.True(t, ok)
	assert.Equal(t, Delta{Up: 1}, d)

	fermions, err := Compile(NewOpSum(NewOp("Cdagdn", Real(1), 0)), 1)
	require.NoError(t, err)
	d, err = SectorDelta(fermions)
	require.NoError(t, err)
	assert.Equal(t, Delta{Dn: 1}, d)
}

func TestIsHermitian(t *testing.T) {
	h, err := Compile(heisenbergChain(4, true), 4)
	require.NoError(t, err)
	assert.True(t, IsHermitian(h))
	assert.True(t, IsReal(h))

	cplx, err := Compile(NewOpSum(NewOp("Exchange", Scalar(1i), 0, 1), NewOp("Hop", Scalar(2-1i), 1, 2)), 3)
	require.NoError(t, err)
	assert.True(t, IsHermitian(cplx), "complex exchange and hopping are hermitian by construction")
	assert.False(t, IsReal(cplx))

	notH, err := Compile(NewOpSum(NewOp("S+", Real(1), 0)), 1)
	require.NoError(t, err)
	assert.False(t, IsHermitian(notH))

	pair, err := Compile(NewOpSum(NewOp("S+", Real(1), 0), NewOp("S-", Real(1), 0)), 1)
	require.NoError(t, err)
	assert.True(t, IsHermitian(pair))

	sy, err := Compile(NewOpSum(NewOp("Sy", Real(1), 0)), 1)
	require.NoError(t, err)
	assert.True(t, IsHermitian(sy))

	imagSz, err := Compile(NewOpSum(NewOp("Sz", Scalar(1i), 0)), 1)
	require.NoError(t, err)
	assert.False(t, IsHermitian(imagSz))

	m := &Matrix{Rows: 2, Cols: 2, Data: []complex128{0, 1i, -1i, 0}}
	my, err := Compile(NewOpSum(NewOp("Matrix", MatrixCoupling(m), 0)), 1)
	require.NoError(t, err)
	assert.True(t, IsHermitian(my))
}

func TestIsSymmetric(t *testing.T) {
	g := symmetry.CyclicGroup(4)

	pbc, err := Compile(heisenbergChain(4, true), 4)
	require.NoError(t, err)
	assert.True(t, IsSymmetric(pbc, g))

	obc, err := Compile(heisenbergChain(4, false), 4)
	require.NoError(t, err)
	assert.False(t, IsSymmetric(obc, g))

	// exchange written in both orientations is still translation invariant
	s := NewOpSum()
	for i := range 4 {
		if i%2 == 0 {
			s.Add(NewOp("Exchange", Real(1), i, (i+1)%4))
		} else {
			s.Add(NewOp("Exchange", Real(1), (i+1)%4, i))
		}
	}
	mixed, err := Compile(s, 4)
	require.NoError(t, err)
	assert.True(t, IsSymmetric(mixed, g))

	// a matrix bond on every link, written with reversed site order on one
	sz2 := RealMatrix([][]float64{{0.25, 0, 0, 0}, {0, -0.25, 0, 0}, {0, 0, -0.25, 0}, {0, 0, 0, 0.25}})
	ms := NewOpSum()
	for i := range 4 {
		ms.Add(NewOp("Matrix", MatrixCoupling(sz2), i, (i+1)%4))
	}
	mt, err := Compile(ms, 4)
	require.NoError(t, err)
	assert.True(t, IsSymmetric(mt, g))
}

func TestOutputBasis(t *testing.T) {
	in, err := basis.NewSpinhalf(4, 2)
	require.NoError(t, err)

	raise, err := Compile(NewOpSum(NewOp("S+", Real(1), 0)), 4)
	require.NoError(t, err)
	out, err := OutputBasis(raise, in)
	require.NoError(t, err)
	assert.Equal(t, basis.QuantumNumbers{NUp: 3, NDn: 1}, out.QuantumNumbers())

	h, err := Compile(heisenbergChain(4, false), 4)
	require.NoError(t, err)
	same, err := OutputBasis(h, in)
	require.NoError(t, err)
	assert.True(t, same.Equal(in))

	tj, err := basis.NewTJ(4, 1, 1)
	require.NoError(t, err)
	_, err = OutputBasis(raise, tj)
	assert.ErrorIs(t, err, errs.ErrUnknownOperatorType)

	cdn, err := Compile(NewOpSum(NewOp("Cdn", Real(1), 2)), 4)
	require.NoError(t, err)
	out, err = OutputBasis(cdn, tj)
	require.NoError(t, err)
	assert.Equal(t, basis.QuantumNumbers{NUp: 1, NDn: 0}, out.QuantumNumbers())

	full, err := basis.NewSpinhalf(4, 4)
	require.NoError(t, err)
	_, err = OutputBasis(raise, full)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}
