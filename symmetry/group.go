package symmetry

import (
	"fmt"

	"github.com/hupe1980/diaggo/internal/errs"
)

// PermutationGroup is an ordered, immutable list of permutations on the same
// number of sites that contains the identity and is closed under
// multiplication.
type PermutationGroup struct {
	nsites int
	perms  []Permutation
	index  map[string]int
	// mult[i*n+j] is the index of perms[i]*perms[j].
	mult []int
	inv  []int
}

// NewPermutationGroup validates perms and builds the group.
// Complexity: O(n_sym^2 * n_sites).
func NewPermutationGroup(perms []Permutation) (*PermutationGroup, error) {
	if len(perms) == 0 {
		return nil, fmt.Errorf("group: no permutations: %w", errs.ErrSymmetryMismatch)
	}
	nsites := perms[0].Size()
	g := &PermutationGroup{
		nsites: nsites,
		perms:  make([]Permutation, len(perms)),
		index:  make(map[string]int, len(perms)),
	}
	for i, p := range perms {
		if p.Size() != nsites {
			return nil, fmt.Errorf("group: permutation %d acts on %d sites, want %d: %w", i, p.Size(), nsites, errs.ErrSymmetryMismatch)
		}
		k := p.key()
		if _, dup := g.index[k]; dup {
			return nil, fmt.Errorf("group: permutation %d %v is duplicated: %w", i, p, errs.ErrSymmetryMismatch)
		}
		g.index[k] = i
		g.perms[i] = p
	}
	if _, ok := g.index[Identity(nsites).key()]; !ok {
		return nil, fmt.Errorf("group: identity missing: %w", errs.ErrSymmetryMismatch)
	}

	n := len(perms)
	g.mult = make([]int, n*n)
	g.inv = make([]int, n)
	for i, p := range g.perms {
		for j, q := range g.perms {
			k, ok := g.index[p.Multiply(q).key()]
			if !ok {
				return nil, fmt.Errorf("group: product of %d and %d not in group: %w", i, j, errs.ErrSymmetryMismatch)
			}
			g.mult[i*n+j] = k
		}
		g.inv[i] = g.index[p.Inverse().key()]
	}
	return g, nil
}

// MustPermutationGroup is like NewPermutationGroup but panics on error.
func MustPermutationGroup(perms []Permutation) *PermutationGroup {
	g, err := NewPermutationGroup(perms)
	if err != nil {
		panic(err)
	}
	return g
}

// CyclicGroup returns the translation group of a periodic chain with n
// sites. Element j shifts every site by j.
func CyclicGroup(n int) *PermutationGroup {
	perms := make([]Permutation, n)
	for j := range n {
		p := make([]int, n)
		for i := range n {
			p[i] = (i + j) % n
		}
		perms[j] = Permutation{perm: p}
	}
	return MustPermutationGroup(perms)
}

// DihedralGroup returns translations followed by reflections of a periodic
// chain with n sites. Elements 0..n-1 are translations, n..2n-1 are the
// translations composed with the reflection i -> -i. n must be at least 3.
func DihedralGroup(n int) *PermutationGroup {
	perms := make([]Permutation, 0, 2*n)
	for j := range n {
		p := make([]int, n)
		for i := range n {
			p[i] = (i + j) % n
		}
		perms = append(perms, Permutation{perm: p})
	}
	for j := range n {
		p := make([]int, n)
		for i := range n {
			p[i] = ((j-i)%n + n) % n
		}
		perms = append(perms, Permutation{perm: p})
	}
	return MustPermutationGroup(perms)
}

// NSites returns the number of sites the permutations act on.
func (g *PermutationGroup) NSites() int { return g.nsites }

// Size returns the number of group elements.
func (g *PermutationGroup) Size() int { return len(g.perms) }

// At returns element i.
func (g *PermutationGroup) At(i int) Permutation { return g.perms[i] }

// Permutations returns the elements in order.
func (g *PermutationGroup) Permutations() []Permutation {
	out := make([]Permutation, len(g.perms))
	copy(out, g.perms)
	return out
}

// Multiply returns the index of At(i)*At(j).
func (g *PermutationGroup) Multiply(i, j int) int { return g.mult[i*len(g.perms)+j] }

// Inverse returns the index of At(i)^-1.
func (g *PermutationGroup) Inverse(i int) int { return g.inv[i] }

// FermiSign returns the fermionic reordering sign of element sym acting on
// state. See FermiSign.
func (g *PermutationGroup) FermiSign(sym int, state uint64) float64 {
	_, sign := applyStateSign(g.perms[sym].perm, state)
	return sign
}

// IndexOf returns the index of p, or -1 if p is not an element.
func (g *PermutationGroup) IndexOf(p Permutation) int {
	if i, ok := g.index[p.key()]; ok {
		return i
	}
	return -1
}

// Subgroup returns the group formed by the given elements, in that order.
func (g *PermutationGroup) Subgroup(indices []int) (*PermutationGroup, error) {
	perms := make([]Permutation, len(indices))
	for k, i := range indices {
		if i < 0 || i >= len(g.perms) {
			return nil, fmt.Errorf("group: subgroup index %d outside [0, %d): %w", i, len(g.perms), errs.ErrSymmetryMismatch)
		}
		perms[k] = g.perms[i]
	}
	return NewPermutationGroup(perms)
}

// Equal reports whether g and o list the same permutations in the same order.
func (g *PermutationGroup) Equal(o *PermutationGroup) bool {
	if g == o {
		return true
	}
	if g == nil || o == nil || g.nsites != o.nsites || len(g.perms) != len(o.perms) {
		return false
	}
	for i := range g.perms {
		if !g.perms[i].Equal(o.perms[i]) {
			return false
		}
	}
	return true
}
