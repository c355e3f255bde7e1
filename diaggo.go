package diaggo

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"github.com/hupe1980/diaggo/basis"
	"github.com/hupe1980/diaggo/internal/terms"
	"github.com/hupe1980/diaggo/operator"
	"github.com/hupe1980/diaggo/sparse"
)

// Scalar is the element type of matrices and vectors.
type Scalar = terms.Scalar

// NewBasis builds the basis described by d.
func NewBasis(ctx context.Context, d basis.Descriptor, opts ...Option) (basis.Basis, error) {
	o := applyOptions(opts)
	start := time.Now()
	b, err := basis.New(d, o.basisOptions...)
	if err != nil {
		return nil, err
	}
	o.logger.LogBasisBuilt(ctx, b, time.Since(start))
	return b, nil
}

// OutputBasis returns the basis that ops maps states of in to. It is in
// itself for operators that conserve the quantum numbers.
func OutputBasis(ops *operator.OpSum, in basis.Basis, opts ...Option) (basis.Basis, error) {
	o := applyOptions(opts)
	ts, err := compile(ops, in)
	if err != nil {
		return nil, err
	}
	return operator.OutputBasis(ts, in, o.basisOptions...)
}

// Matrix returns the dense matrix of ops from in to out in column-major
// order: element (row, col) is at col*out.Size()+row.
func Matrix(ctx context.Context, ops *operator.OpSum, in, out basis.Basis, opts ...Option) ([]complex128, error) {
	return matrix[complex128](ctx, ops, in, out, applyOptions(opts))
}

// MatrixReal is Matrix for operators and bases with real matrix elements.
// It fails with ErrComplexCoefficient otherwise.
func MatrixReal(ctx context.Context, ops *operator.OpSum, in, out basis.Basis, opts ...Option) ([]float64, error) {
	return matrix[float64](ctx, ops, in, out, applyOptions(opts))
}

// Apply computes vout = H vin. vin is indexed by in, vout by out.
func Apply(ctx context.Context, ops *operator.OpSum, in basis.Basis, vin []complex128, out basis.Basis, vout []complex128, opts ...Option) error {
	return apply(ctx, ops, in, vin, out, vout, applyOptions(opts))
}

// ApplyReal is Apply on real vectors.
func ApplyReal(ctx context.Context, ops *operator.OpSum, in basis.Basis, vin []float64, out basis.Basis, vout []float64, opts ...Option) error {
	return apply(ctx, ops, in, vin, out, vout, applyOptions(opts))
}

// NNZ returns an upper bound on the number of non-zero matrix elements of
// ops from in to out: elements hit by several terms count once per term.
func NNZ(ctx context.Context, ops *operator.OpSum, in, out basis.Basis, opts ...Option) (int64, error) {
	o := applyOptions(opts)
	ts, err := compile(ops, in)
	if err != nil {
		return 0, err
	}
	var sink terms.NnzCountSink
	if err := terms.Fill(ctx, ts, in, out, &sink, o.fillOptions()); err != nil {
		return 0, err
	}
	return sink.Count(), nil
}

// SparseMatrix returns the matrix of ops from in to out in coordinate
// format with zero-based indices. Elements from different terms are
// stored separately and add up.
func SparseMatrix(ctx context.Context, ops *operator.OpSum, in, out basis.Basis, opts ...Option) (*sparse.COO[complex128], error) {
	return sparseMatrix[complex128](ctx, ops, in, out, applyOptions(opts))
}

// SparseMatrixReal is SparseMatrix with real elements.
func SparseMatrixReal(ctx context.Context, ops *operator.OpSum, in, out basis.Basis, opts ...Option) (*sparse.COO[float64], error) {
	return sparseMatrix[float64](ctx, ops, in, out, applyOptions(opts))
}

func compile(ops *operator.OpSum, b basis.Basis) ([]operator.Term, error) {
	if ops == nil || b == nil {
		return nil, fmt.Errorf("diaggo: nil operator or basis: %w", ErrInvalidArgument)
	}
	return operator.Compile(ops, b.NSites())
}

func numOps(ops *operator.OpSum) int {
	if ops == nil {
		return 0
	}
	return ops.Len()
}

func (o options) fillOptions() terms.Options {
	return terms.Options{Workers: o.workers, Resources: o.resources}
}

// checkReal fails if T is float64 but ts or b need complex arithmetic.
func checkReal[T Scalar](ts []operator.Term, b basis.Basis) error {
	var zero T
	if _, ok := any(zero).(float64); !ok {
		return nil
	}
	if !operator.IsReal(ts) {
		return fmt.Errorf("diaggo: real arithmetic with complex couplings: %w", ErrComplexCoefficient)
	}
	if !basis.IsReal(b) {
		return fmt.Errorf("diaggo: real arithmetic with a complex irrep: %w", ErrComplexCoefficient)
	}
	return nil
}

func matrix[T Scalar](ctx context.Context, ops *operator.OpSum, in, out basis.Basis, o options) (data []T, err error) {
	start := time.Now()
	var size int64
	defer func() {
		o.metricsCollector.RecordMatrix(size, time.Since(start), err)
		o.logger.LogApply(ctx, "matrix", numOps(ops), size, err)
	}()

	ts, err := compile(ops, in)
	if err != nil {
		return nil, err
	}
	if err := checkReal[T](ts, in); err != nil {
		return nil, err
	}
	if err := terms.Check(ts, in, out); err != nil {
		return nil, err
	}
	size = in.Size() * out.Size()
	var zero T
	bytes := size * int64(unsafe.Sizeof(zero))
	if err := o.resources.Reserve(bytes); err != nil {
		return nil, translateError(err)
	}
	defer o.resources.ReleaseMemory(bytes)

	data = make([]T, size)
	if err := terms.Fill(ctx, ts, in, out, terms.NewMatrixSink(out.Size(), data), o.fillOptions()); err != nil {
		return nil, err
	}
	return data, nil
}

func apply[T Scalar](ctx context.Context, ops *operator.OpSum, in basis.Basis, vin []T, out basis.Basis, vout []T, o options) (err error) {
	start := time.Now()
	defer func() {
		o.metricsCollector.RecordApply(int64(len(vin)), time.Since(start), err)
		o.logger.LogApply(ctx, "apply", numOps(ops), int64(len(vin)), err)
	}()

	ts, err := compile(ops, in)
	if err != nil {
		return err
	}
	if err := checkReal[T](ts, in); err != nil {
		return err
	}
	if int64(len(vin)) != in.Size() {
		return &ErrDimensionMismatch{Expected: in.Size(), Actual: int64(len(vin))}
	}
	if int64(len(vout)) != out.Size() {
		return &ErrDimensionMismatch{Expected: out.Size(), Actual: int64(len(vout))}
	}
	clear(vout)
	return terms.Fill(ctx, ts, in, out, terms.NewVectorSink(vin, vout, o.workers > 1), o.fillOptions())
}

func sparseMatrix[T Scalar](ctx context.Context, ops *operator.OpSum, in, out basis.Basis, o options) (m *sparse.COO[T], err error) {
	start := time.Now()
	var nnz int64
	defer func() {
		o.metricsCollector.RecordMatrix(nnz, time.Since(start), err)
		o.logger.LogApply(ctx, "sparse matrix", numOps(ops), nnz, err)
	}()

	ts, err := compile(ops, in)
	if err != nil {
		return nil, err
	}
	if err := checkReal[T](ts, in); err != nil {
		return nil, err
	}
	var count terms.NnzCountSink
	if err := terms.Fill(ctx, ts, in, out, &count, o.fillOptions()); err != nil {
		return nil, err
	}
	sink := terms.NewCOOSink(count.Count())
	if err := terms.Fill(ctx, ts, in, out, sink, o.fillOptions()); err != nil {
		return nil, err
	}
	nnz = int64(len(sink.Vals))

	m = &sparse.COO[T]{
		NRows:     out.Size(),
		NCols:     in.Size(),
		Rows:      sink.Rows,
		Cols:      sink.Cols,
		Data:      make([]T, len(sink.Vals)),
		ZeroBased: true,
		Hermitian: in.Equal(out) && operator.IsHermitian(ts),
	}
	for i, v := range sink.Vals {
		m.Data[i] = fromComplex[T](v)
	}
	return m, nil
}

func fromComplex[T Scalar](v complex128) T {
	var zero T
	switch any(zero).(type) {
	case float64:
		return any(real(v)).(T)
	default:
		return any(v).(T)
	}
}
