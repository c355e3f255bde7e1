package basis

import (
	"fmt"

	"github.com/hupe1980/diaggo/internal/errs"
	"github.com/hupe1980/diaggo/symmetry"
)

// Descriptor is the serializable description of a basis, sufficient to
// rebuild it with New.
type Descriptor struct {
	Model  string `json:"model" yaml:"model"`
	NSites int    `json:"nsites" yaml:"nsites"`
	// NUp and NDn are Unconserved (-1) if not fixed. For spin-1/2 NDn is
	// ignored.
	NUp int `json:"nup" yaml:"nup"`
	NDn int `json:"ndn" yaml:"ndn"`
	// Group lists the permutations; empty for a non-symmetric basis.
	Group [][]int `json:"group,omitempty" yaml:"group,omitempty"`
	// Characters are (real, imag) pairs, one per group element or allowed
	// symmetry.
	Characters [][2]float64 `json:"characters,omitempty" yaml:"characters,omitempty"`
	Allowed    []int        `json:"allowed,omitempty" yaml:"allowed,omitempty"`
}

// Describe returns the descriptor of b.
func Describe(b Basis) Descriptor {
	q := b.QuantumNumbers()
	d := Descriptor{
		Model:  b.Model().String(),
		NSites: b.NSites(),
		NUp:    q.NUp,
		NDn:    q.NDn,
	}
	if g := b.Group(); g != nil {
		for _, p := range g.Permutations() {
			d.Group = append(d.Group, p.Slice())
		}
		for _, c := range b.Irrep().Characters() {
			d.Characters = append(d.Characters, [2]float64{real(c), imag(c)})
		}
	}
	return d
}

// New builds the basis described by d.
func New(d Descriptor, opts ...Option) (Basis, error) {
	model, err := ParseModel(d.Model)
	if err != nil {
		return nil, err
	}

	if len(d.Group) == 0 {
		if len(d.Characters) > 0 {
			return nil, fmt.Errorf("basis: characters without a group: %w", errs.ErrSymmetryMismatch)
		}
		switch model {
		case ModelSpinhalf:
			return NewSpinhalf(d.NSites, d.NUp)
		case ModelTJ:
			return NewTJ(d.NSites, d.NUp, d.NDn)
		default:
			return NewElectron(d.NSites, d.NUp, d.NDn)
		}
	}

	perms := make([]symmetry.Permutation, len(d.Group))
	for i, p := range d.Group {
		if perms[i], err = symmetry.NewPermutation(p); err != nil {
			return nil, err
		}
	}
	group, err := symmetry.NewPermutationGroup(perms)
	if err != nil {
		return nil, err
	}
	chars := make([]complex128, len(d.Characters))
	for i, c := range d.Characters {
		chars[i] = complex(c[0], c[1])
	}
	irrep, err := symmetry.NewRepresentation(chars, d.Allowed...)
	if err != nil {
		return nil, err
	}

	switch model {
	case ModelSpinhalf:
		return NewSpinhalfSymmetric(d.NSites, d.NUp, group, irrep, opts...)
	case ModelTJ:
		return NewTJSymmetric(d.NSites, d.NUp, d.NDn, group, irrep, opts...)
	default:
		return NewElectronSymmetric(d.NSites, d.NUp, d.NDn, group, irrep, opts...)
	}
}
