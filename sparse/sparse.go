// Package sparse holds the coordinate, compressed-row and compressed-column
// matrix formats produced by the term-application engine.
//
// Index arrays are zero-based unless ZeroBased is false, in which case every
// stored index is one larger (the Fortran convention). Hermitian marks a
// matrix known to equal its conjugate transpose; the full matrix is always
// stored.
package sparse

import (
	"fmt"
	"slices"

	"github.com/hupe1980/diaggo/internal/errs"
)

// Scalar is the element type of a sparse matrix.
type Scalar interface {
	float64 | complex128
}

// COO is a matrix in coordinate format. Entries may be unsorted and may
// repeat; repeated entries add up.
type COO[T Scalar] struct {
	NRows, NCols int64
	Rows, Cols   []int64
	Data         []T
	ZeroBased    bool
	Hermitian    bool
}

// CSR is a matrix in compressed sparse row format with column indices
// sorted within each row and no duplicates.
type CSR[T Scalar] struct {
	NRows, NCols int64
	RowPtr       []int64
	Cols         []int64
	Data         []T
	ZeroBased    bool
	Hermitian    bool
}

// CSC is a matrix in compressed sparse column format.
type CSC[T Scalar] struct {
	NRows, NCols int64
	ColPtr       []int64
	Rows         []int64
	Data         []T
	ZeroBased    bool
	Hermitian    bool
}

func base(zeroBased bool) int64 {
	if zeroBased {
		return 0
	}
	return 1
}

// NNZ returns the number of stored entries.
func (m *COO[T]) NNZ() int { return len(m.Data) }

// Validate checks array lengths and index ranges.
func (m *COO[T]) Validate() error {
	if len(m.Rows) != len(m.Data) || len(m.Cols) != len(m.Data) {
		return fmt.Errorf("sparse: coo arrays of length %d, %d, %d: %w", len(m.Rows), len(m.Cols), len(m.Data), errs.ErrInvalidArgument)
	}
	b := base(m.ZeroBased)
	for k := range m.Data {
		r, c := m.Rows[k]-b, m.Cols[k]-b
		if r < 0 || r >= m.NRows || c < 0 || c >= m.NCols {
			return fmt.Errorf("sparse: entry %d at (%d, %d) outside %dx%d: %w", k, m.Rows[k], m.Cols[k], m.NRows, m.NCols, errs.ErrInvalidArgument)
		}
	}
	return nil
}

// WithBase returns a copy of m with the requested index base.
func (m *COO[T]) WithBase(zeroBased bool) *COO[T] {
	shift := base(zeroBased) - base(m.ZeroBased)
	out := &COO[T]{
		NRows: m.NRows, NCols: m.NCols,
		Rows: slices.Clone(m.Rows), Cols: slices.Clone(m.Cols), Data: slices.Clone(m.Data),
		ZeroBased: zeroBased, Hermitian: m.Hermitian,
	}
	if shift != 0 {
		for k := range out.Rows {
			out.Rows[k] += shift
			out.Cols[k] += shift
		}
	}
	return out
}

// compress sorts the entries by (major, minor), sums duplicates and drops
// exact zeros. It returns the pointer array over major and the minor
// indices, both zero-based.
func compress[T Scalar](nmajor int64, major, minor []int64, data []T, b int64) ([]int64, []int64, []T) {
	order := make([]int, len(data))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(x, y int) int {
		if major[x] != major[y] {
			return int(major[x] - major[y])
		}
		return int(minor[x] - minor[y])
	})

	ptr := make([]int64, nmajor+1)
	idx := make([]int64, 0, len(data))
	vals := make([]T, 0, len(data))
	for i := 0; i < len(order); {
		k := order[i]
		v := data[k]
		j := i + 1
		for j < len(order) && major[order[j]] == major[k] && minor[order[j]] == minor[k] {
			v += data[order[j]]
			j++
		}
		if v != 0 {
			ptr[major[k]-b+1]++
			idx = append(idx, minor[k]-b)
			vals = append(vals, v)
		}
		i = j
	}
	for r := range nmajor {
		ptr[r+1] += ptr[r]
	}
	return ptr, idx, vals
}

func rebase(xs []int64, b int64) {
	if b == 0 {
		return
	}
	for i := range xs {
		xs[i] += b
	}
}

// ToCSR converts m to CSR, keeping its index base.
func (m *COO[T]) ToCSR() (*CSR[T], error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	b := base(m.ZeroBased)
	ptr, cols, vals := compress(m.NRows, m.Rows, m.Cols, m.Data, b)
	rebase(ptr, b)
	rebase(cols, b)
	return &CSR[T]{NRows: m.NRows, NCols: m.NCols, RowPtr: ptr, Cols: cols, Data: vals, ZeroBased: m.ZeroBased, Hermitian: m.Hermitian}, nil
}

// ToCSC converts m to CSC, keeping its index base.
func (m *COO[T]) ToCSC() (*CSC[T], error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	b := base(m.ZeroBased)
	ptr, rows, vals := compress(m.NCols, m.Cols, m.Rows, m.Data, b)
	rebase(ptr, b)
	rebase(rows, b)
	return &CSC[T]{NRows: m.NRows, NCols: m.NCols, ColPtr: ptr, Rows: rows, Data: vals, ZeroBased: m.ZeroBased, Hermitian: m.Hermitian}, nil
}

// NNZ returns the number of stored entries.
func (m *CSR[T]) NNZ() int { return len(m.Data) }

// MatVec computes y = A x.
func (m *CSR[T]) MatVec(x, y []T) error {
	if int64(len(x)) != m.NCols || int64(len(y)) != m.NRows {
		return fmt.Errorf("sparse: matvec with x of length %d, y of length %d on %dx%d: %w", len(x), len(y), m.NRows, m.NCols, errs.ErrInvalidArgument)
	}
	b := base(m.ZeroBased)
	for r := range m.NRows {
		var acc T
		for k := m.RowPtr[r] - b; k < m.RowPtr[r+1]-b; k++ {
			acc += m.Data[k] * x[m.Cols[k]-b]
		}
		y[r] = acc
	}
	return nil
}

// NNZ returns the number of stored entries.
func (m *CSC[T]) NNZ() int { return len(m.Data) }

// MatVec computes y = A x.
func (m *CSC[T]) MatVec(x, y []T) error {
	if int64(len(x)) != m.NCols || int64(len(y)) != m.NRows {
		return fmt.Errorf("sparse: matvec with x of length %d, y of length %d on %dx%d: %w", len(x), len(y), m.NRows, m.NCols, errs.ErrInvalidArgument)
	}
	clear(y)
	b := base(m.ZeroBased)
	for c := range m.NCols {
		xc := x[c]
		for k := m.ColPtr[c] - b; k < m.ColPtr[c+1]-b; k++ {
			y[m.Rows[k]-b] += m.Data[k] * xc
		}
	}
	return nil
}
