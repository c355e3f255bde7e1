package symmetry

import (
	"fmt"
	"math"
	"math/cmplx"
	"slices"

	"github.com/hupe1980/diaggo/internal/errs"
)

// CharacterTolerance bounds |chi| - 1 and the homomorphism defect accepted
// for a one-dimensional representation.
const CharacterTolerance = 1e-8

// Representation assigns a complex character to every element of a
// permutation group (a one-dimensional irreducible representation).
//
// If allowed symmetries are given, character i belongs to group element
// allowed[i] and the representation lives on that subgroup.
type Representation struct {
	chars   []complex128
	allowed []int
}

// NewRepresentation validates that every character has modulus one.
func NewRepresentation(chars []complex128, allowed ...int) (*Representation, error) {
	if len(chars) == 0 {
		return nil, fmt.Errorf("representation: no characters: %w", errs.ErrSymmetryMismatch)
	}
	if len(allowed) > 0 && len(allowed) != len(chars) {
		return nil, fmt.Errorf("representation: %d characters for %d allowed symmetries: %w", len(chars), len(allowed), errs.ErrSymmetryMismatch)
	}
	for i, c := range chars {
		if math.Abs(cmplx.Abs(c)-1) > CharacterTolerance {
			return nil, fmt.Errorf("representation: |chi(%d)| = %g, want 1: %w", i, cmplx.Abs(c), errs.ErrSymmetryMismatch)
		}
	}
	return &Representation{chars: slices.Clone(chars), allowed: slices.Clone(allowed)}, nil
}

// MustRepresentation is like NewRepresentation but panics on error.
func MustRepresentation(chars []complex128, allowed ...int) *Representation {
	r, err := NewRepresentation(chars, allowed...)
	if err != nil {
		panic(err)
	}
	return r
}

// TrivialRepresentation returns the representation with all characters 1.
func TrivialRepresentation(size int) *Representation {
	chars := make([]complex128, size)
	for i := range chars {
		chars[i] = 1
	}
	return &Representation{chars: chars}
}

// MomentumRepresentation returns the characters exp(-2 pi i k j / n) of the
// translation group CyclicGroup(n), the irrep with crystal momentum
// 2 pi k / n.
func MomentumRepresentation(n, k int) *Representation {
	chars := make([]complex128, n)
	for j := range n {
		m := (k * j) % n
		switch {
		case m == 0:
			chars[j] = 1
		case 2*m == n:
			chars[j] = -1
		case 4*m == n:
			chars[j] = -1i
		case 4*m == 3*n:
			chars[j] = 1i
		default:
			chars[j] = cmplx.Exp(complex(0, -2*math.Pi*float64(m)/float64(n)))
		}
	}
	return &Representation{chars: chars}
}

// Size returns the number of characters.
func (r *Representation) Size() int { return len(r.chars) }

// Character returns the character of element i.
func (r *Representation) Character(i int) complex128 { return r.chars[i] }

// Characters returns a copy of the characters.
func (r *Representation) Characters() []complex128 { return slices.Clone(r.chars) }

// AllowedSymmetries returns the group indices the characters belong to, or
// nil if they cover the whole group.
func (r *Representation) AllowedSymmetries() []int { return slices.Clone(r.allowed) }

// IsReal reports whether every character is real.
func (r *Representation) IsReal() bool {
	for _, c := range r.chars {
		if math.Abs(imag(c)) > CharacterTolerance {
			return false
		}
	}
	return true
}

// Equal compares characters and allowed symmetries by value.
func (r *Representation) Equal(o *Representation) bool {
	if r == o {
		return true
	}
	if r == nil || o == nil {
		return false
	}
	return slices.Equal(r.chars, o.chars) && slices.Equal(r.allowed, o.allowed)
}

// Resolve checks r against g and returns the group the characters live on:
// g itself, or the subgroup of allowed symmetries. The characters must form
// a homomorphism chi(a*b) = chi(a) chi(b) on that group.
func Resolve(g *PermutationGroup, r *Representation) (*PermutationGroup, *Representation, error) {
	if g == nil || r == nil {
		return nil, nil, fmt.Errorf("representation: group and irrep are both required: %w", errs.ErrSymmetryMismatch)
	}
	eff := g
	if len(r.allowed) > 0 {
		sub, err := g.Subgroup(r.allowed)
		if err != nil {
			return nil, nil, err
		}
		eff = sub
	}
	if eff.Size() != len(r.chars) {
		return nil, nil, fmt.Errorf("representation: %d characters for group of size %d: %w", len(r.chars), eff.Size(), errs.ErrSymmetryMismatch)
	}
	for i := range eff.Size() {
		for j := range eff.Size() {
			want := r.chars[i] * r.chars[j]
			if cmplx.Abs(r.chars[eff.Multiply(i, j)]-want) > CharacterTolerance {
				return nil, nil, fmt.Errorf("representation: chi(%d*%d) != chi(%d)chi(%d): %w", i, j, i, j, errs.ErrSymmetryMismatch)
			}
		}
	}
	return eff, &Representation{chars: r.chars}, nil
}
