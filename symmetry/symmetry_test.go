package symmetry

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/hupe1980/diaggo/bitops"
	"github.com/hupe1980/diaggo/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermutation(t *testing.T) {
	p, err := NewPermutation([]int{1, 2, 0})
	require.NoError(t, err)
	assert.Equal(t, 3, p.Size())
	assert.Equal(t, 2, p.Apply(1))
	assert.True(t, p.Multiply(p.Inverse()).IsIdentity())
	assert.Equal(t, []int{2, 0, 1}, p.Multiply(p).Slice())
	assert.Equal(t, uint64(0b110), p.ApplyState(0b011))

	_, err = NewPermutation([]int{0, 0, 1})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = NewPermutation([]int{0, 3})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestFermiSign(t *testing.T) {
	swap := MustPermutation([]int{1, 0, 2})
	// c0+ c1+ -> c1+ c0+ = -c0+ c1+
	assert.Equal(t, -1.0, FermiSign(swap, 0b011))
	// a single fermion never picks up a sign
	assert.Equal(t, 1.0, FermiSign(swap, 0b001))
	// c0+ c2+ -> c1+ c2+, no reordering
	assert.Equal(t, 1.0, FermiSign(swap, 0b101))

	// cyclic shift of three fermions on three sites is an even permutation
	cyc := MustPermutation([]int{1, 2, 0})
	assert.Equal(t, 1.0, FermiSign(cyc, 0b111))
	// two fermions on sites 1,2 -> 2,0 needs one swap
	assert.Equal(t, -1.0, FermiSign(cyc, 0b110))
}

func TestFermiSign_Homomorphism(t *testing.T) {
	g := DihedralGroup(6)
	for state := range uint64(1 << 6) {
		for i := range g.Size() {
			for j := range g.Size() {
				pi, pj := g.At(i), g.At(j)
				_, sj := applyStateSign(pj.perm, state)
				mid := pj.ApplyState(state)
				_, si := applyStateSign(pi.perm, mid)
				_, sij := applyStateSign(g.At(g.Multiply(i, j)).perm, state)
				require.Equal(t, sij, si*sj)
			}
		}
	}
}

func TestPermutationGroup(t *testing.T) {
	g := CyclicGroup(5)
	assert.Equal(t, 5, g.Size())
	assert.Equal(t, 5, g.NSites())
	assert.Equal(t, 0, g.Multiply(2, 3))
	assert.Equal(t, 4, g.Inverse(1))
	assert.Equal(t, 3, g.IndexOf(g.At(3)))
	assert.True(t, g.Equal(CyclicGroup(5)))
	assert.False(t, g.Equal(CyclicGroup(4)))

	d := DihedralGroup(4)
	assert.Equal(t, 8, d.Size())

	sub, err := d.Subgroup([]int{0, 2})
	require.NoError(t, err)
	assert.Equal(t, 2, sub.Size())

	_, err = d.Subgroup([]int{0, 1})
	assert.ErrorIs(t, err, errs.ErrSymmetryMismatch, "translation by one alone does not close")
}

func TestPermutationGroup_Invalid(t *testing.T) {
	shift := MustPermutation([]int{1, 2, 0})

	_, err := NewPermutationGroup(nil)
	assert.ErrorIs(t, err, errs.ErrSymmetryMismatch)

	_, err = NewPermutationGroup([]Permutation{shift})
	assert.ErrorIs(t, err, errs.ErrSymmetryMismatch, "identity missing")

	_, err = NewPermutationGroup([]Permutation{Identity(3), shift})
	assert.ErrorIs(t, err, errs.ErrSymmetryMismatch, "not closed")

	_, err = NewPermutationGroup([]Permutation{Identity(3), Identity(4)})
	assert.ErrorIs(t, err, errs.ErrSymmetryMismatch, "size mismatch")
}

func TestRepresentation(t *testing.T) {
	g := CyclicGroup(4)
	for k := range 4 {
		r := MomentumRepresentation(4, k)
		eff, rr, err := Resolve(g, r)
		require.NoError(t, err)
		assert.True(t, eff.Equal(g))
		assert.True(t, rr.Equal(r))
		assert.Equal(t, k == 0 || k == 2, r.IsReal())
	}

	_, err := NewRepresentation([]complex128{1, 2})
	assert.ErrorIs(t, err, errs.ErrSymmetryMismatch)

	_, _, err = Resolve(g, TrivialRepresentation(3))
	assert.ErrorIs(t, err, errs.ErrSymmetryMismatch)

	// not a homomorphism: chi(T)^2 must equal chi(T^2)
	bad := MustRepresentation([]complex128{1, 1i, 1, -1i})
	_, _, err = Resolve(g, bad)
	assert.ErrorIs(t, err, errs.ErrSymmetryMismatch)

	// reflection parity on the subgroup {id, T^2}
	sub := MustRepresentation([]complex128{1, -1}, 0, 2)
	eff, _, err := Resolve(g, sub)
	require.NoError(t, err)
	assert.Equal(t, 2, eff.Size())
}

func TestActions_DirectEqualsLookup(t *testing.T) {
	for _, n := range []int{1, 4, 7, 12} {
		var g *PermutationGroup
		if n >= 3 {
			g = DihedralGroup(n)
		} else {
			g = CyclicGroup(n)
		}
		direct := NewDirect(g)
		lookup := NewLookup(g)
		require.Equal(t, direct.NSymmetries(), lookup.NSymmetries())
		for state := range uint64(1) << uint(n) {
			for sym := range g.Size() {
				require.Equal(t, direct.Apply(sym, state), lookup.Apply(sym, state), "n=%d sym=%d state=%b", n, sym, state)
			}
		}
	}
}

func TestActions_LargeRandom(t *testing.T) {
	g := DihedralGroup(24)
	direct := NewAction(ActionDirect, g)
	lookup := NewAction(ActionLookup, g)
	rng := rand.New(rand.NewPCG(3, 4))
	for range 2000 {
		state := rng.Uint64() & bitops.LowMask(24)
		sym := rng.IntN(g.Size())
		require.Equal(t, direct.Apply(sym, state), lookup.Apply(sym, state))
		assert.Equal(t, bitops.Popcount(state), bitops.Popcount(lookup.Apply(sym, state)))
	}
}

func TestRepresentative(t *testing.T) {
	g := CyclicGroup(6)
	a := NewLookup(g)
	for state := range uint64(1 << 6) {
		rep, syms := RepresentativeSyms(a, state, nil)
		require.NotEmpty(t, syms)
		for s := range g.Size() {
			require.LessOrEqual(t, rep, a.Apply(s, state))
		}
		for _, s := range syms {
			require.Equal(t, rep, a.Apply(s, state))
		}
		r2, sym := Representative(a, state)
		assert.Equal(t, rep, r2)
		assert.Equal(t, syms[0], sym)

		// the stabilizer of the representative fixes it
		for _, s := range Stabilizer(a, rep) {
			assert.Equal(t, rep, a.Apply(s, rep))
		}
	}
}

func TestNorm(t *testing.T) {
	g := CyclicGroup(4)
	a := NewDirect(g)

	// 0101 is fixed by T^0 and T^2
	assert.InDelta(t, 1.4142135623730951, Norm(a, MomentumRepresentation(4, 0), 0b0101), 1e-15)
	assert.Zero(t, Norm(a, MomentumRepresentation(4, 1), 0b0101))
	assert.InDelta(t, 1.4142135623730951, Norm(a, MomentumRepresentation(4, 2), 0b0101), 1e-15)

	// 0011 has a trivial stabilizer and realizes every momentum
	for k := range 4 {
		assert.InDelta(t, 1.0, Norm(a, MomentumRepresentation(4, k), 0b0011), 1e-15)
	}

	// 1111 is fixed by everything
	assert.InDelta(t, 2.0, Norm(a, MomentumRepresentation(4, 0), 0b1111), 1e-15)
	assert.Zero(t, Norm(a, MomentumRepresentation(4, 1), 0b1111))
}

func TestNormFermionic(t *testing.T) {
	g := CyclicGroup(4)
	// two up fermions on sites 0 and 2: T^2 swaps them with sign -1 and
	// chi(T^2) = (-1)^k, so only odd k survive
	for k, want := range []float64{0, math.Sqrt2, 0, math.Sqrt2} {
		assert.InDelta(t, want, NormFermionic(g, MomentumRepresentation(4, k), 0b0101, 0), 1e-12, "k=%d", k)
	}

	// the bosonic norm ignores the sign
	assert.InDelta(t, 1.4142135623730951, NormTwoSpecies(NewDirect(g), MomentumRepresentation(4, 0), 0b0101, 0), 1e-15)
}
