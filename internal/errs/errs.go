// Package errs holds the sentinel errors shared by all diaggo packages.
//
// Every message is prefixed with "diaggo:" so failures are easy to grep.
// Callers match with errors.Is; packages wrap with fmt.Errorf("ctx: %w", ...)
// when context is useful. The root package re-exports every sentinel.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports malformed construction parameters
	// (negative sizes, n_up > nsites, sites out of range, ...).
	ErrInvalidArgument = errors.New("diaggo: invalid argument")

	// ErrIncompatibleBasis reports an input/output basis mismatch in an
	// apply or matrix call.
	ErrIncompatibleBasis = errors.New("diaggo: incompatible basis")

	// ErrUnknownOperatorType reports an operator type that is not defined
	// (at all, or for the model of the basis it is applied to).
	ErrUnknownOperatorType = errors.New("diaggo: unknown operator type")

	// ErrInvalidOperatorArity reports an operator with the wrong number of
	// sites, or repeated sites.
	ErrInvalidOperatorArity = errors.New("diaggo: invalid operator arity")

	// ErrAllocationFailure reports that working buffers could not be sized.
	// It is fatal for the run that hit it.
	ErrAllocationFailure = errors.New("diaggo: allocation failure")

	// ErrSymmetryMismatch reports a group/irrep size mismatch or a group
	// whose site count differs from the basis.
	ErrSymmetryMismatch = errors.New("diaggo: symmetry mismatch")

	// ErrComplexCoefficient reports a real-valued computation requested for
	// an operator or irrep with complex matrix elements.
	ErrComplexCoefficient = errors.New("diaggo: complex coefficient in real computation")

	// ErrNotHermitian reports a non-Hermitian operator passed to a routine
	// that requires one.
	ErrNotHermitian = errors.New("diaggo: operator is not hermitian")

	// ErrEigenFailed reports an eigensolver that did not converge.
	ErrEigenFailed = errors.New("diaggo: eigen decomposition failed")

	// ErrIncompleteSectors reports symmetry sectors whose sizes do not add
	// up to the unreduced Hilbert-space dimension.
	ErrIncompleteSectors = errors.New("diaggo: symmetry sectors do not span the hilbert space")
)

// ArityError describes an operator with an invalid site list.
//
// It unwraps to ErrInvalidOperatorArity.
type ArityError struct {
	Type string
	Want int // -1 means "at least one"
	Got  int
}

func (e *ArityError) Error() string {
	if e.Want < 0 {
		return fmt.Sprintf("diaggo: operator %q needs at least one site, got %d", e.Type, e.Got)
	}
	return fmt.Sprintf("diaggo: operator %q needs %d sites, got %d", e.Type, e.Want, e.Got)
}

func (e *ArityError) Unwrap() error { return ErrInvalidOperatorArity }
