package symmetry

import (
	"fmt"
	"math/bits"
	"slices"

	"github.com/hupe1980/diaggo/internal/errs"
)

// Permutation is a bijection on the site indices 0..n-1.
//
// The zero value is the empty permutation on zero sites.
type Permutation struct {
	perm []int
}

// NewPermutation validates p and returns it as a Permutation. The slice is
// copied.
func NewPermutation(p []int) (Permutation, error) {
	if len(p) > 64 {
		return Permutation{}, fmt.Errorf("permutation: %d sites exceed 64: %w", len(p), errs.ErrInvalidArgument)
	}
	var seen uint64
	for i, s := range p {
		if s < 0 || s >= len(p) {
			return Permutation{}, fmt.Errorf("permutation: entry %d maps to %d outside [0, %d): %w", i, s, len(p), errs.ErrInvalidArgument)
		}
		if seen&(1<<uint(s)) != 0 {
			return Permutation{}, fmt.Errorf("permutation: site %d appears twice: %w", s, errs.ErrInvalidArgument)
		}
		seen |= 1 << uint(s)
	}
	return Permutation{perm: slices.Clone(p)}, nil
}

// MustPermutation is like NewPermutation but panics on invalid input.
func MustPermutation(p []int) Permutation {
	perm, err := NewPermutation(p)
	if err != nil {
		panic(err)
	}
	return perm
}

// Identity returns the identity permutation on n sites.
func Identity(n int) Permutation {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return Permutation{perm: p}
}

// Size returns the number of sites.
func (p Permutation) Size() int { return len(p.perm) }

// Apply returns the image of site i.
func (p Permutation) Apply(i int) int { return p.perm[i] }

// Slice returns a copy of the image array.
func (p Permutation) Slice() []int { return slices.Clone(p.perm) }

// Inverse returns p^-1.
func (p Permutation) Inverse() Permutation {
	inv := make([]int, len(p.perm))
	for i, s := range p.perm {
		inv[s] = i
	}
	return Permutation{perm: inv}
}

// Multiply returns the composition p*q, which maps i to p(q(i)).
// Both permutations must act on the same number of sites.
func (p Permutation) Multiply(q Permutation) Permutation {
	r := make([]int, len(q.perm))
	for i, s := range q.perm {
		r[i] = p.perm[s]
	}
	return Permutation{perm: r}
}

// Equal reports whether p and q are the same permutation.
func (p Permutation) Equal(q Permutation) bool { return slices.Equal(p.perm, q.perm) }

// IsIdentity reports whether p fixes every site.
func (p Permutation) IsIdentity() bool {
	for i, s := range p.perm {
		if i != s {
			return false
		}
	}
	return true
}

func (p Permutation) String() string { return fmt.Sprint(p.perm) }

func (p Permutation) key() string {
	b := make([]byte, len(p.perm))
	for i, s := range p.perm {
		b[i] = byte(s)
	}
	return string(b)
}

// ApplyState moves every set bit i of state to position p(i).
func (p Permutation) ApplyState(state uint64) uint64 {
	return applyState(p.perm, state)
}

// FermiSign returns the sign picked up by the fermionic configuration state
// when its creation operators, ordered by site, are relabelled by p and
// reordered by site again. It is the parity of inversions among the images
// of the occupied sites.
func FermiSign(p Permutation, state uint64) float64 {
	_, sign := applyStateSign(p.perm, state)
	return sign
}

func applyState(perm []int, state uint64) uint64 {
	var res uint64
	for m := state; m != 0; m &= m - 1 {
		res |= 1 << uint(perm[bits.TrailingZeros64(m)])
	}
	return res
}

// applyStateSign returns the permuted state together with the fermionic
// reordering sign. Sites are visited in increasing order; every already
// placed image above the current image is one inversion.
func applyStateSign(perm []int, state uint64) (uint64, float64) {
	var res uint64
	parity := 0
	for m := state; m != 0; m &= m - 1 {
		q := uint(perm[bits.TrailingZeros64(m)])
		parity += bits.OnesCount64(res >> q)
		res |= 1 << q
	}
	if parity&1 == 1 {
		return res, -1
	}
	return res, 1
}
