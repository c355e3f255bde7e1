package diaggo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/diaggo/internal/errs"
	"github.com/hupe1980/diaggo/resource"
)

// Sentinel errors. Match them with errors.Is.
var (
	ErrInvalidArgument      = errs.ErrInvalidArgument
	ErrIncompatibleBasis    = errs.ErrIncompatibleBasis
	ErrUnknownOperatorType  = errs.ErrUnknownOperatorType
	ErrInvalidOperatorArity = errs.ErrInvalidOperatorArity
	ErrAllocationFailure    = errs.ErrAllocationFailure
	ErrSymmetryMismatch     = errs.ErrSymmetryMismatch
	ErrComplexCoefficient   = errs.ErrComplexCoefficient
	ErrNotHermitian         = errs.ErrNotHermitian
	ErrEigenFailed          = errs.ErrEigenFailed
	ErrIncompleteSectors    = errs.ErrIncompleteSectors
)

// ArityError describes an operator with an invalid site list. It unwraps to
// ErrInvalidOperatorArity.
type ArityError = errs.ArityError

// ErrDimensionMismatch indicates a vector whose length differs from the
// size of the basis it is used with.
type ErrDimensionMismatch struct {
	Expected int64
	Actual   int64
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("diaggo: vector length mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return ErrInvalidArgument }

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, resource.ErrMemoryLimitExceeded) && !errors.Is(err, ErrAllocationFailure) {
		return fmt.Errorf("%w: %w", ErrAllocationFailure, err)
	}
	return err
}
