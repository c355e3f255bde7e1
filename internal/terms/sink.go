package terms

import (
	"math"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Scalar is the element type of matrices and vectors.
type Scalar interface {
	float64 | complex128
}

// Sink receives matrix elements: H[row, col] += v. Row indexes the output
// basis, col the input basis. Sinks passed to a parallel Fill must be safe
// for concurrent use; the provided sinks are.
type Sink interface {
	Accumulate(row, col int64, v complex128)
}

// MatrixSink accumulates into a dense column-major matrix.
//
// Parallel fills partition the input states, i.e. the columns, so each
// worker writes a disjoint set of entries and no synchronization is needed.
type MatrixSink[T Scalar] struct {
	nrows int64
	data  []T
	acc   func(i int64, v complex128)
}

// NewMatrixSink wraps data, which must hold nrows*ncols entries.
func NewMatrixSink[T Scalar](nrows int64, data []T) *MatrixSink[T] {
	s := &MatrixSink[T]{nrows: nrows, data: data}
	switch d := any(data).(type) {
	case []float64:
		s.acc = func(i int64, v complex128) { d[i] += real(v) }
	case []complex128:
		s.acc = func(i int64, v complex128) { d[i] += v }
	}
	return s
}

// Accumulate implements Sink.
func (s *MatrixSink[T]) Accumulate(row, col int64, v complex128) {
	s.acc(col*s.nrows+row, v)
}

// Data returns the underlying matrix.
func (s *MatrixSink[T]) Data() []T { return s.data }

// VectorSink accumulates H*in into out. With concurrent set, additions to
// out are atomic compare-and-swap loops, since different input states may
// reach the same output state.
type VectorSink[T Scalar] struct {
	acc func(row, col int64, v complex128)
}

// NewVectorSink creates a sink computing out += H*in.
func NewVectorSink[T Scalar](in, out []T, concurrent bool) *VectorSink[T] {
	s := &VectorSink[T]{}
	switch o := any(out).(type) {
	case []float64:
		x := any(in).([]float64)
		if concurrent {
			s.acc = func(row, col int64, v complex128) { atomicAddFloat64(&o[row], real(v)*x[col]) }
		} else {
			s.acc = func(row, col int64, v complex128) { o[row] += real(v) * x[col] }
		}
	case []complex128:
		x := any(in).([]complex128)
		if concurrent {
			s.acc = func(row, col int64, v complex128) { atomicAddComplex128(&o[row], v*x[col]) }
		} else {
			s.acc = func(row, col int64, v complex128) { o[row] += v * x[col] }
		}
	}
	return s
}

// Accumulate implements Sink.
func (s *VectorSink[T]) Accumulate(row, col int64, v complex128) { s.acc(row, col, v) }

// NnzCountSink counts accumulated elements. Elements hit by several terms
// are counted once per hit, so the count is an upper bound on the number
// of structural non-zeros.
type NnzCountSink struct {
	n atomic.Int64
}

// Accumulate implements Sink.
func (s *NnzCountSink) Accumulate(_, _ int64, v complex128) {
	if v != 0 {
		s.n.Add(1)
	}
}

// Count returns the number of accumulated elements.
func (s *NnzCountSink) Count() int64 { return s.n.Load() }

// COOSink collects elements as coordinate triplets. Duplicates are kept.
type COOSink struct {
	mu   sync.Mutex
	Rows []int64
	Cols []int64
	Vals []complex128
}

// NewCOOSink creates a COOSink with capacity for nnz elements.
func NewCOOSink(nnz int64) *COOSink {
	return &COOSink{
		Rows: make([]int64, 0, nnz),
		Cols: make([]int64, 0, nnz),
		Vals: make([]complex128, 0, nnz),
	}
}

// Accumulate implements Sink.
func (s *COOSink) Accumulate(row, col int64, v complex128) {
	if v == 0 {
		return
	}
	s.mu.Lock()
	s.Rows = append(s.Rows, row)
	s.Cols = append(s.Cols, col)
	s.Vals = append(s.Vals, v)
	s.mu.Unlock()
}

func atomicAddFloat64(p *float64, v float64) {
	u := (*uint64)(unsafe.Pointer(p))
	for {
		old := atomic.LoadUint64(u)
		next := math.Float64bits(math.Float64frombits(old) + v)
		if atomic.CompareAndSwapUint64(u, old, next) {
			return
		}
	}
}

// atomicAddComplex128 adds the two parts independently. Concurrent readers
// may observe a half-updated value; Fill only reads out after all workers
// finish.
func atomicAddComplex128(p *complex128, v complex128) {
	parts := (*[2]float64)(unsafe.Pointer(p))
	atomicAddFloat64(&parts[0], real(v))
	atomicAddFloat64(&parts[1], imag(v))
}
