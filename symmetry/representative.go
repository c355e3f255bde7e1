package symmetry

import (
	"math"
	"math/cmplx"
)

// NormTolerance is the orbit norm below which a configuration does not
// realize an irrep and is dropped from a symmetric basis.
const NormTolerance = 1e-12

// Representative returns the smallest configuration in the orbit of state
// and the first symmetry mapping state onto it.
func Representative(a GroupAction, state uint64) (uint64, int) {
	rep, sym := a.Apply(0, state), 0
	for s := 1; s < a.NSymmetries(); s++ {
		if t := a.Apply(s, state); t < rep {
			rep, sym = t, s
		}
	}
	return rep, sym
}

// RepresentativeSyms returns the smallest configuration in the orbit of
// state and every symmetry mapping state onto it, appended to syms[:0].
// For a representative these are exactly its stabilizer.
func RepresentativeSyms(a GroupAction, state uint64, syms []int) (uint64, []int) {
	rep := a.Apply(0, state)
	syms = append(syms[:0], 0)
	for s := 1; s < a.NSymmetries(); s++ {
		t := a.Apply(s, state)
		switch {
		case t < rep:
			rep = t
			syms = append(syms[:0], s)
		case t == rep:
			syms = append(syms, s)
		}
	}
	return rep, syms
}

// Stabilizer returns the symmetries fixing state.
func Stabilizer(a GroupAction, state uint64) []int {
	var syms []int
	for s := range a.NSymmetries() {
		if a.Apply(s, state) == state {
			syms = append(syms, s)
		}
	}
	return syms
}

// Norm returns sqrt(|sum_{h in Stab(state)} chi(h)|), the orbit norm of
// state in the irrep r. The result is exactly zero if the orbit does not
// realize r.
func Norm(a GroupAction, r *Representation, state uint64) float64 {
	var amp complex128
	for s := range a.NSymmetries() {
		if a.Apply(s, state) == state {
			amp += r.chars[s]
		}
	}
	return normFromAmplitude(amp)
}

// NormFermionic is the orbit norm of the two-species configuration
// (ups, dns), where every stabilizer element contributes its character
// times the fermionic reordering sign of both species. Up operators are
// ordered before down operators.
func NormFermionic(g *PermutationGroup, r *Representation, ups, dns uint64) float64 {
	var amp complex128
	for s, p := range g.perms {
		u, su := applyStateSign(p.perm, ups)
		if u != ups {
			continue
		}
		d, sd := applyStateSign(p.perm, dns)
		if d != dns {
			continue
		}
		amp += r.chars[s] * complex(su*sd, 0)
	}
	return normFromAmplitude(amp)
}

// NormTwoSpecies is the orbit norm of (ups, dns) without fermionic signs.
func NormTwoSpecies(a GroupAction, r *Representation, ups, dns uint64) float64 {
	var amp complex128
	for s := range a.NSymmetries() {
		if a.Apply(s, ups) == ups && a.Apply(s, dns) == dns {
			amp += r.chars[s]
		}
	}
	return normFromAmplitude(amp)
}

// normFromAmplitude maps a character sum over a stabilizer to the orbit
// norm. For a one-dimensional irrep the sum is either zero or the order of
// the stabilizer, so anything below one half is rounding noise.
func normFromAmplitude(amp complex128) float64 {
	a := cmplx.Abs(amp)
	if a < 0.5 {
		return 0
	}
	return math.Sqrt(a)
}
