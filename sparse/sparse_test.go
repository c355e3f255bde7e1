package sparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/diaggo/internal/errs"
)

// 3x3 matrix
//
//	[1 0 2]
//	[0 0 3]
//	[4 5 0]
func sample(zeroBased bool) *COO[float64] {
	m := &COO[float64]{
		NRows: 3, NCols: 3,
		Rows:      []int64{2, 0, 1, 0, 2, 0},
		Cols:      []int64{1, 0, 2, 2, 0, 2},
		Data:      []float64{5, 1, 3, 1.5, 4, 0.5},
		ZeroBased: true,
	}
	return m.WithBase(zeroBased)
}

func TestCOO_ToCSR(t *testing.T) {
	csr, err := sample(true).ToCSR()
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 2, 3, 5}, csr.RowPtr)
	assert.Equal(t, []int64{0, 2, 2, 0, 1}, csr.Cols)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, csr.Data)

	one, err := sample(false).ToCSR()
	require.NoError(t, err)
	assert.False(t, one.ZeroBased)
	assert.Equal(t, []int64{1, 3, 4, 6}, one.RowPtr)
	assert.Equal(t, []int64{1, 3, 3, 1, 2}, one.Cols)
}

func TestCOO_ToCSC(t *testing.T) {
	csc, err := sample(true).ToCSC()
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 2, 3, 5}, csc.ColPtr)
	assert.Equal(t, []int64{0, 2, 2, 0, 1}, csc.Rows)
	assert.Equal(t, []float64{1, 4, 5, 2, 3}, csc.Data)
}

func TestMatVec(t *testing.T) {
	x := []float64{1, 2, 3}
	want := []float64{7, 9, 14}
	for _, zb := range []bool{true, false} {
		csr, err := sample(zb).ToCSR()
		require.NoError(t, err)
		y := make([]float64, 3)
		require.NoError(t, csr.MatVec(x, y))
		assert.Equal(t, want, y)

		csc, err := sample(zb).ToCSC()
		require.NoError(t, err)
		y = make([]float64, 3)
		require.NoError(t, csc.MatVec(x, y))
		assert.Equal(t, want, y)
	}

	csr, err := sample(true).ToCSR()
	require.NoError(t, err)
	assert.ErrorIs(t, csr.MatVec(x[:2], make([]float64, 3)), errs.ErrInvalidArgument)
}

func TestCOO_DropsCancelledEntries(t *testing.T) {
	m := &COO[complex128]{
		NRows: 2, NCols: 2,
		Rows: []int64{0, 0, 1}, Cols: []int64{1, 1, 0},
		Data:      []complex128{1i, -1i, 2},
		ZeroBased: true,
	}
	csr, err := m.ToCSR()
	require.NoError(t, err)
	assert.Equal(t, 1, csr.NNZ())
	assert.Equal(t, []int64{0, 0, 1}, csr.RowPtr)
}

func TestCOO_Validate(t *testing.T) {
	m := &COO[float64]{NRows: 2, NCols: 2, Rows: []int64{2}, Cols: []int64{0}, Data: []float64{1}, ZeroBased: true}
	_, err := m.ToCSR()
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	short := &COO[float64]{NRows: 2, NCols: 2, Rows: []int64{0}, Cols: []int64{0, 1}, Data: []float64{1}, ZeroBased: true}
	assert.ErrorIs(t, short.Validate(), errs.ErrInvalidArgument)
}
