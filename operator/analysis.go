package operator

import (
	"fmt"
	"math/cmplx"
	"slices"
	"strings"

	"github.com/hupe1980/diaggo/symmetry"
)

// Tolerance is the absolute tolerance used when comparing coefficients in
// IsHermitian and IsSymmetric.
const Tolerance = 1e-12

// IsReal reports whether every coefficient and matrix entry is real.
func IsReal(terms []Term) bool {
	for _, t := range terms {
		if imag(t.Coeff) != 0 {
			return false
		}
		if t.Matrix != nil {
			for _, v := range t.Matrix.Data {
				if imag(v) != 0 {
					return false
				}
			}
		}
	}
	return true
}

// IsHermitian reports whether the sum of terms equals its adjoint.
func IsHermitian(terms []Term) bool {
	c := canonicalize(terms, nil)
	for k, v := range c.scalars {
		adj := c.scalars[c.adjoint[k]]
		if cmplx.Abs(v-cmplx.Conj(adj)) > Tolerance {
			return false
		}
	}
	for _, m := range c.matrices {
		if !matricesClose(m, m.Adjoint()) {
			return false
		}
	}
	return true
}

// IsSymmetric reports whether the sum of terms is invariant under every
// element of g.
func IsSymmetric(terms []Term, g *symmetry.PermutationGroup) bool {
	ref := canonicalize(terms, nil)
	for _, p := range g.Permutations() {
		if p.IsIdentity() {
			continue
		}
		if !ref.equal(canonicalize(terms, p.Slice())) {
			return false
		}
	}
	return true
}

// canonical is a sum of terms as elementary monomials keyed by name and
// sites, with matrices merged per sorted site list.
type canonical struct {
	scalars  map[string]complex128
	adjoint  map[string]string
	matrices map[string]*Matrix
}

func canonicalize(terms []Term, perm []int) canonical {
	c := canonical{
		scalars:  map[string]complex128{},
		adjoint:  map[string]string{},
		matrices: map[string]*Matrix{},
	}
	for _, t := range terms {
		sites := slices.Clone(t.Sites)
		if perm != nil {
			for i, s := range sites {
				sites[i] = perm[s]
			}
		}
		c.add(t, sites)
	}
	return c
}

// put adds coeff to the monomial key whose adjoint is adjKey.
func (c *canonical) put(key, adjKey string, coeff complex128) {
	c.scalars[key] += coeff
	c.adjoint[key] = adjKey
	c.adjoint[adjKey] = key
	c.scalars[adjKey] += 0
}

func (c *canonical) self(name string, coeff complex128, sites ...int) {
	k := monoKey(name, sites)
	c.put(k, k, coeff)
}

// pair adds the monomial a_i b_j (coefficient cij) and a_j b_i
// (coefficient cji); each is the adjoint of the other.
func (c *canonical) pair(name string, cij, cji complex128, i, j int) {
	kij, kji := monoKey(name, []int{i, j}), monoKey(name, []int{j, i})
	c.put(kij, kji, cij)
	c.put(kji, kij, cji)
}

func (c *canonical) add(t Term, s []int) {
	switch t.Type {
	case Id, HubbardU:
		c.self(t.Type.String(), t.Coeff)
	case Sz, Nup, Ndn, Nupdn:
		c.self(t.Type.String(), t.Coeff, s[0])
	case SzSz, NtotNtot:
		c.self(t.Type.String(), t.Coeff, min(s[0], s[1]), max(s[0], s[1]))
	case Exchange:
		c.pair("S+S-", t.Coeff/2, cmplx.Conj(t.Coeff)/2, s[0], s[1])
	case Hopup, Hopdn:
		c.pair("CdagC"+t.Type.String(), -t.Coeff, -cmplx.Conj(t.Coeff), s[0], s[1])
	case Splus:
		c.put(monoKey("S+", s), monoKey("S-", s), t.Coeff)
	case Sminus:
		c.put(monoKey("S-", s), monoKey("S+", s), t.Coeff)
	case Cdagup:
		c.put(monoKey("Cdagup", s), monoKey("Cup", s), t.Coeff)
	case Cup:
		c.put(monoKey("Cup", s), monoKey("Cdagup", s), t.Coeff)
	case Cdagdn:
		c.put(monoKey("Cdagdn", s), monoKey("Cdn", s), t.Coeff)
	case Cdn:
		c.put(monoKey("Cdn", s), monoKey("Cdagdn", s), t.Coeff)
	case MatrixOp:
		sorted, m := sortMatrixSites(s, t.Matrix)
		k := monoKey("Matrix", sorted)
		if acc, ok := c.matrices[k]; ok {
			for i := range acc.Data {
				acc.Data[i] += m.Data[i]
			}
		} else {
			c.matrices[k] = m
		}
	}
}

func monoKey(name string, sites []int) string {
	var sb strings.Builder
	sb.WriteString(name)
	for _, s := range sites {
		fmt.Fprintf(&sb, ":%d", s)
	}
	return sb.String()
}

func (c canonical) equal(o canonical) bool {
	for k, v := range c.scalars {
		if cmplx.Abs(v-o.scalars[k]) > Tolerance {
			return false
		}
	}
	for k, v := range o.scalars {
		if cmplx.Abs(v-c.scalars[k]) > Tolerance {
			return false
		}
	}
	for k, m := range c.matrices {
		om, ok := o.matrices[k]
		if !ok || !matricesClose(m, om) {
			return false
		}
	}
	return len(c.matrices) == len(o.matrices)
}

func matricesClose(a, b *Matrix) bool {
	if a.Rows != b.Rows || a.Cols != b.Cols {
		return false
	}
	for i := range a.Data {
		if cmplx.Abs(a.Data[i]-b.Data[i]) > Tolerance {
			return false
		}
	}
	return true
}

// sortMatrixSites returns the sites in increasing order together with the
// matrix rewritten for that order. The result is always a fresh copy.
func sortMatrixSites(sites []int, m *Matrix) ([]int, *Matrix) {
	k := len(sites)
	order := make([]int, k)
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int { return sites[a] - sites[b] })
	sorted := make([]int, k)
	for p, o := range order {
		sorted[p] = sites[o]
	}
	remap := func(x int) int {
		y := 0
		for p, o := range order {
			y |= ((x >> uint(o)) & 1) << uint(p)
		}
		return y
	}
	out := &Matrix{Rows: m.Rows, Cols: m.Cols, Data: make([]complex128, len(m.Data))}
	for r := range m.Rows {
		for col := range m.Cols {
			out.Data[remap(r)*out.Cols+remap(col)] = m.At(r, col)
		}
	}
	return sorted, out
}
