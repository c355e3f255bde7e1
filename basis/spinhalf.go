package basis

import (
	"fmt"
	"iter"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/diaggo/combinatorics"
	"github.com/hupe1980/diaggo/internal/errs"
	"github.com/hupe1980/diaggo/symmetry"
)

// Spinhalf is the basis of n spin-1/2 sites, optionally with fixed number
// of up spins. Basis order is increasing integer value of the configuration.
type Spinhalf struct {
	nsites int
	nup    int
	sector combinatorics.Sector
}

// NewSpinhalf creates a spin-1/2 basis. nup may be Unconserved.
func NewSpinhalf(nsites, nup int) (*Spinhalf, error) {
	if err := validateSpinhalf(nsites, nup); err != nil {
		return nil, err
	}
	sector, err := spinSector(nsites, nup)
	if err != nil {
		return nil, err
	}
	return &Spinhalf{nsites: nsites, nup: nup, sector: sector}, nil
}

func validateSpinhalf(nsites, nup int) error {
	if nsites < 0 || nsites > MaxSpinhalfSites {
		return fmt.Errorf("spinhalf: nsites=%d outside [0, %d]: %w", nsites, MaxSpinhalfSites, errs.ErrInvalidArgument)
	}
	if nup != Unconserved && (nup < 0 || nup > nsites) {
		return fmt.Errorf("spinhalf: nup=%d outside [0, %d]: %w", nup, nsites, errs.ErrInvalidArgument)
	}
	return nil
}

func (*Spinhalf) sealed() {}

// Model implements Basis.
func (*Spinhalf) Model() Model { return ModelSpinhalf }

// NSites implements Basis.
func (b *Spinhalf) NSites() int { return b.nsites }

// QuantumNumbers implements Basis.
func (b *Spinhalf) QuantumNumbers() QuantumNumbers {
	return QuantumNumbers{NUp: b.nup, NDn: downCount(b.nsites, b.nup)}
}

// Size implements Basis.
func (b *Spinhalf) Size() int64 { return b.sector.Size() }

// Dim implements Basis.
func (b *Spinhalf) Dim() int64 { return b.sector.Size() }

// Index implements Basis.
func (b *Spinhalf) Index(s State) int64 {
	if s.Dn != 0 {
		return InvalidIndex
	}
	return b.sector.Index(s.Up)
}

// State implements Basis.
func (b *Spinhalf) State(idx int64) State { return State{Up: b.sector.Nth(idx)} }

// All implements Basis.
func (b *Spinhalf) All() iter.Seq2[int64, State] { return b.Range(0, b.Size()) }

// Range yields (idx, state) for idx in [start, end).
func (b *Spinhalf) Range(start, end int64) iter.Seq2[int64, State] {
	return func(yield func(int64, State) bool) {
		for i, x := range b.sector.Range(start, end) {
			if !yield(i, State{Up: x}) {
				return
			}
		}
	}
}

// Group implements Basis.
func (*Spinhalf) Group() *symmetry.PermutationGroup { return nil }

// Irrep implements Basis.
func (*Spinhalf) Irrep() *symmetry.Representation { return nil }

// Equal implements Basis.
func (b *Spinhalf) Equal(o Basis) bool { return equal(b, o) }

func downCount(nsites, nup int) int {
	if nup == Unconserved {
		return Unconserved
	}
	return nsites - nup
}

// SpinhalfSymmetric is the spin-1/2 basis reduced to the orbit
// representatives of a permutation group that realize a given irrep.
// Basis order is increasing representative value.
type SpinhalfSymmetric struct {
	nsites int
	nup    int
	group  *symmetry.PermutationGroup
	irrep  *symmetry.Representation
	action symmetry.GroupAction
	raw    combinatorics.Sector

	reps  []uint64
	norms []float64

	// per raw configuration: index of its representative (InvalidIndex if
	// the orbit is excluded) and one symmetry mapping it there
	rawIndex []int64
	rawSym   []int32
}

// NewSpinhalfSymmetric creates the symmetry-reduced spin-1/2 basis.
// nup may be Unconserved.
//
// Construction enumerates all raw configurations twice: pass one collects
// representatives with non-zero norm, pass two records for every raw
// configuration its representative index and mapping symmetry.
func NewSpinhalfSymmetric(nsites, nup int, g *symmetry.PermutationGroup, irrep *symmetry.Representation, opts ...Option) (*SpinhalfSymmetric, error) {
	if err := validateSpinhalf(nsites, nup); err != nil {
		return nil, err
	}
	group, irrep, err := resolveSymmetry(nsites, g, irrep)
	if err != nil {
		return nil, err
	}
	raw, err := spinSector(nsites, nup)
	if err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	action := symmetry.NewAction(o.action, group)

	reps := roaring64.New()
	for _, x := range raw.All() {
		rep, _ := symmetry.Representative(action, x)
		if rep != x {
			continue
		}
		if symmetry.Norm(action, irrep, x) > symmetry.NormTolerance {
			reps.Add(x)
		}
	}

	b := &SpinhalfSymmetric{
		nsites:   nsites,
		nup:      nup,
		group:    group,
		irrep:    irrep,
		action:   action,
		raw:      raw,
		reps:     reps.ToArray(),
		rawIndex: make([]int64, raw.Size()),
		rawSym:   make([]int32, raw.Size()),
	}
	b.norms = make([]float64, len(b.reps))
	for i, r := range b.reps {
		b.norms[i] = symmetry.Norm(action, irrep, r)
	}

	for i, x := range raw.All() {
		rep, sym := symmetry.Representative(action, x)
		b.rawSym[i] = int32(sym)
		if reps.Contains(rep) {
			b.rawIndex[i] = int64(reps.Rank(rep)) - 1
		} else {
			b.rawIndex[i] = InvalidIndex
		}
	}
	return b, nil
}

func (*SpinhalfSymmetric) sealed() {}

// Model implements Basis.
func (*SpinhalfSymmetric) Model() Model { return ModelSpinhalf }

// NSites implements Basis.
func (b *SpinhalfSymmetric) NSites() int { return b.nsites }

// QuantumNumbers implements Basis.
func (b *SpinhalfSymmetric) QuantumNumbers() QuantumNumbers {
	return QuantumNumbers{NUp: b.nup, NDn: downCount(b.nsites, b.nup)}
}

// Size implements Basis.
func (b *SpinhalfSymmetric) Size() int64 { return int64(len(b.reps)) }

// Dim implements Basis.
func (b *SpinhalfSymmetric) Dim() int64 { return b.raw.Size() }

// Index implements Basis.
func (b *SpinhalfSymmetric) Index(s State) int64 {
	if s.Dn != 0 {
		return InvalidIndex
	}
	idx, sym := b.Locate(s.Up)
	if idx == InvalidIndex || sym < 0 || b.reps[idx] != s.Up {
		return InvalidIndex
	}
	return idx
}

// Locate returns the index of the representative of the raw configuration
// x and a symmetry mapping x onto it. The index is InvalidIndex if x is
// outside the sector or its orbit does not realize the irrep.
func (b *SpinhalfSymmetric) Locate(x uint64) (int64, int) {
	i := b.raw.Index(x)
	if i == combinatorics.InvalidIndex {
		return InvalidIndex, -1
	}
	return b.rawIndex[i], int(b.rawSym[i])
}

// Representative returns the representative stored at idx.
func (b *SpinhalfSymmetric) Representative(idx int64) uint64 { return b.reps[idx] }

// Norm returns the orbit norm of the representative at idx.
func (b *SpinhalfSymmetric) Norm(idx int64) float64 { return b.norms[idx] }

// Action returns the group action used for representative search.
func (b *SpinhalfSymmetric) Action() symmetry.GroupAction { return b.action }

// State implements Basis.
func (b *SpinhalfSymmetric) State(idx int64) State { return State{Up: b.reps[idx]} }

// All implements Basis.
func (b *SpinhalfSymmetric) All() iter.Seq2[int64, State] { return b.Range(0, b.Size()) }

// Range yields (idx, representative) for idx in [start, end).
func (b *SpinhalfSymmetric) Range(start, end int64) iter.Seq2[int64, State] {
	return func(yield func(int64, State) bool) {
		for i := max(start, 0); i < min(end, b.Size()); i++ {
			if !yield(i, State{Up: b.reps[i]}) {
				return
			}
		}
	}
}

// Group implements Basis.
func (b *SpinhalfSymmetric) Group() *symmetry.PermutationGroup { return b.group }

// Irrep implements Basis.
func (b *SpinhalfSymmetric) Irrep() *symmetry.Representation { return b.irrep }

// Equal implements Basis.
func (b *SpinhalfSymmetric) Equal(o Basis) bool { return equal(b, o) }
