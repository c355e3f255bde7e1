// Package symmetry provides permutation groups acting on lattice sites,
// their one-dimensional irreducible representations, and the group actions
// used to reduce a Hilbert space to orbit representatives.
//
// Two GroupAction implementations share one contract: Direct permutes bits
// on every call, Lookup answers from per-half translation tables. Both give
// bit-identical results.
//
// A configuration's representative is the smallest element of its orbit.
// Its norm sqrt(|sum_{h in Stab} chi(h)|) is zero when the orbit does not
// realize the irrep; such orbits are excluded from symmetric bases.
package symmetry
