package operator

import (
	"fmt"

	"github.com/hupe1980/diaggo/basis"
	"github.com/hupe1980/diaggo/internal/errs"
)

// OutputBasis returns the basis reached by applying terms to states of in.
// For number-conserving terms this is in itself; otherwise a basis with the
// shifted quantum numbers and the same group and irrep is built.
func OutputBasis(terms []Term, in basis.Basis, opts ...basis.Option) (basis.Basis, error) {
	if err := CheckModel(terms, in.Model()); err != nil {
		return nil, err
	}
	d, err := SectorDelta(terms)
	if err != nil {
		if !in.QuantumNumbers().Conserved() {
			return in, nil
		}
		return nil, err
	}
	q := in.QuantumNumbers()
	if d == (Delta{}) || !q.Conserved() {
		return in, nil
	}
	if basis.IsSymmetric(in) && !IsSymmetric(terms, in.Group()) {
		return nil, fmt.Errorf("operator: sector-changing terms are not symmetric under the basis group: %w", errs.ErrSymmetryMismatch)
	}

	desc := basis.Describe(in)
	desc.NUp = q.NUp + d.Up
	if in.Model() == basis.ModelSpinhalf {
		desc.NDn = in.NSites() - desc.NUp
	} else {
		desc.NDn = q.NDn + d.Dn
	}
	out, err := basis.New(desc, opts...)
	if err != nil {
		return nil, fmt.Errorf("operator: output sector %s: %w", basis.QuantumNumbers{NUp: desc.NUp, NDn: desc.NDn}, err)
	}
	return out, nil
}

// CheckModel fails with ErrUnknownOperatorType if a term is not defined on
// model m.
func CheckModel(terms []Term, m basis.Model) error {
	for _, t := range terms {
		if !t.ValidFor(m) {
			return fmt.Errorf("operator: %s on %s basis: %w", t.Type, m, errs.ErrUnknownOperatorType)
		}
	}
	return nil
}
