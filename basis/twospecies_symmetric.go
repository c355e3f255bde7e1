package basis

import (
	"iter"
	"slices"
	"sort"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/diaggo/bitops"
	"github.com/hupe1980/diaggo/combinatorics"
	"github.com/hupe1980/diaggo/symmetry"
)

// symmetricProduct is the layout shared by the symmetric tJ and Electron
// bases.
//
// The representative of (ups, dns) is the lexicographically smallest image
// (g(ups), g(dns)) over the group: its up part is the representative r of
// ups, its down part the smallest g(dns) over the symmetries g mapping ups
// to r. States are stored in one block per up representative; inside a
// block the down parts are sorted, so locating a state is a binary search.
type symmetricProduct struct {
	model  Model
	nsites int
	nup    int
	ndn    int
	mask   uint64

	group  *symmetry.PermutationGroup
	irrep  *symmetry.Representation
	action symmetry.GroupAction

	ups combinatorics.Sector
	dns []combinatorics.Sector // as in product, indexed by up count

	upReps []uint64
	// blockOffsets[i] is the index of the first state of up representative i
	blockOffsets []int64
	dnReps       []uint64
	norms        []float64

	// per raw up configuration: its up representative block (InvalidIndex
	// if the block is empty) and the symmetries mapping it there, in CSR
	// layout
	rawBlock    []int64
	rawSymStart []int64
	rawSyms     []int32
	dim         int64
}

func newSymmetricProduct(model Model, nsites, nup, ndn int, g *symmetry.PermutationGroup, irrep *symmetry.Representation, opts []Option) (*symmetricProduct, error) {
	if err := validateTwoSpecies(model, nsites, nup, ndn); err != nil {
		return nil, err
	}
	group, irrep, err := resolveSymmetry(nsites, g, irrep)
	if err != nil {
		return nil, err
	}
	ups, err := spinSector(nsites, nup)
	if err != nil {
		return nil, err
	}
	dns, err := downSectors(model, nsites, nup, ndn)
	if err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	b := &symmetricProduct{
		model:  model,
		nsites: nsites,
		nup:    nup,
		ndn:    ndn,
		mask:   bitops.LowMask(nsites),
		group:  group,
		irrep:  irrep,
		action: symmetry.NewAction(o.action, group),
		ups:    ups,
		dns:    dns,
	}
	// pass 1: distinct up representatives
	candidates := roaring64.New()
	for _, u := range ups.All() {
		rep, _ := symmetry.Representative(b.action, u)
		candidates.Add(rep)
	}

	// pass 2: per up representative, the compatible down representatives
	candBlock := make([]int64, candidates.GetCardinality())
	stab := make([]int, 0, group.Size())
	b.blockOffsets = []int64{0}
	it := candidates.Iterator()
	for c := 0; it.HasNext(); c++ {
		r := it.Next()
		_, stab = symmetry.RepresentativeSyms(b.action, r, stab)
		n := b.appendBlock(r, stab)
		if n == 0 {
			candBlock[c] = InvalidIndex
			continue
		}
		candBlock[c] = int64(len(b.upReps))
		b.upReps = append(b.upReps, r)
		b.blockOffsets = append(b.blockOffsets, int64(len(b.dnReps)))
	}

	// raw up lookup
	b.rawBlock = make([]int64, ups.Size())
	b.rawSymStart = make([]int64, ups.Size()+1)
	syms := make([]int, 0, group.Size())
	for i, u := range ups.All() {
		var rep uint64
		rep, syms = symmetry.RepresentativeSyms(b.action, u, syms)
		b.rawBlock[i] = candBlock[candidates.Rank(rep)-1]
		for _, s := range syms {
			b.rawSyms = append(b.rawSyms, int32(s))
		}
		b.rawSymStart[i+1] = int64(len(b.rawSyms))
		b.dim += dns[bitops.Popcount(u)].Size()
	}
	return b, nil
}

// appendBlock appends the down representatives compatible with the up
// representative r and its stabilizer, and returns how many were added.
func (b *symmetricProduct) appendBlock(r uint64, stab []int) int {
	added := 0
	for _, dnc := range b.dns[bitops.Popcount(r)].All() {
		d := b.expand(r, dnc)
		if !b.isDownRep(d, stab) {
			continue
		}
		norm := b.norm(r, d)
		if norm <= symmetry.NormTolerance {
			continue
		}
		b.dnReps = append(b.dnReps, d)
		b.norms = append(b.norms, norm)
		added++
	}
	return added
}

func (b *symmetricProduct) isDownRep(d uint64, stab []int) bool {
	for _, s := range stab {
		if b.action.Apply(s, d) < d {
			return false
		}
	}
	return true
}

func (b *symmetricProduct) norm(ups, dns uint64) float64 {
	return symmetry.NormFermionic(b.group, b.irrep, ups, dns)
}

func (b *symmetricProduct) expand(ups, dnc uint64) uint64 {
	if b.model == ModelTJ {
		return bitops.Deposit(dnc, ^ups&b.mask)
	}
	return dnc
}

func (b *symmetricProduct) size() int64 { return int64(len(b.dnReps)) }

func (b *symmetricProduct) quantumNumbers() QuantumNumbers {
	return QuantumNumbers{NUp: b.nup, NDn: b.ndn}
}

// Locate returns the index of the representative of the raw configuration
// s and a symmetry mapping s onto it, or InvalidIndex if s is outside the
// sector or its orbit does not realize the irrep.
func (b *symmetricProduct) Locate(s State) (int64, int) {
	iu := b.ups.Index(s.Up)
	if iu == combinatorics.InvalidIndex || s.Dn&^b.mask != 0 {
		return InvalidIndex, -1
	}
	if b.model == ModelTJ && s.Up&s.Dn != 0 {
		return InvalidIndex, -1
	}
	if b.ndn != Unconserved && bitops.Popcount(s.Dn) != b.ndn {
		return InvalidIndex, -1
	}
	blk := b.rawBlock[iu]
	if blk == InvalidIndex {
		return InvalidIndex, -1
	}
	syms := b.rawSyms[b.rawSymStart[iu]:b.rawSymStart[iu+1]]
	dmin, smin := b.action.Apply(int(syms[0]), s.Dn), int(syms[0])
	for _, sym := range syms[1:] {
		if d := b.action.Apply(int(sym), s.Dn); d < dmin {
			dmin, smin = d, int(sym)
		}
	}
	lo, hi := b.blockOffsets[blk], b.blockOffsets[blk+1]
	j, found := slices.BinarySearch(b.dnReps[lo:hi], dmin)
	if !found {
		return InvalidIndex, -1
	}
	return lo + int64(j), smin
}

// Sign returns the fermionic sign of applying symmetry sym to s, with up
// operators ordered before down operators.
func (b *symmetricProduct) Sign(sym int, s State) float64 {
	return b.group.FermiSign(sym, s.Up) * b.group.FermiSign(sym, s.Dn)
}

// Norm returns the orbit norm of the state at idx.
func (b *symmetricProduct) Norm(idx int64) float64 { return b.norms[idx] }

// Action returns the group action used for representative search.
func (b *symmetricProduct) Action() symmetry.GroupAction { return b.action }

// NumUpBlocks returns the number of up representatives.
func (b *symmetricProduct) NumUpBlocks() int64 { return int64(len(b.upReps)) }

// UpBlock returns the up representative of block i and the index range of
// its states.
func (b *symmetricProduct) UpBlock(i int64) (ups uint64, start, end int64) {
	return b.upReps[i], b.blockOffsets[i], b.blockOffsets[i+1]
}

func (b *symmetricProduct) index(s State) int64 {
	idx, _ := b.Locate(s)
	if idx == InvalidIndex {
		return InvalidIndex
	}
	if got := b.state(idx); got != s {
		return InvalidIndex
	}
	return idx
}

func (b *symmetricProduct) state(idx int64) State {
	blk := sort.Search(len(b.upReps), func(i int) bool { return b.blockOffsets[i+1] > idx })
	return State{Up: b.upReps[blk], Dn: b.dnReps[idx]}
}

func (b *symmetricProduct) rangeStates(start, end int64) iter.Seq2[int64, State] {
	return func(yield func(int64, State) bool) {
		start, end = max(start, 0), min(end, b.size())
		if start >= end {
			return
		}
		blk := sort.Search(len(b.upReps), func(i int) bool { return b.blockOffsets[i+1] > start })
		for i := start; i < end; i++ {
			for b.blockOffsets[blk+1] <= i {
				blk++
			}
			if !yield(i, State{Up: b.upReps[blk], Dn: b.dnReps[i]}) {
				return
			}
		}
	}
}

// TJSymmetric is the symmetry-reduced t-J basis.
type TJSymmetric struct {
	*symmetricProduct
}

// NewTJSymmetric creates a symmetry-reduced t-J basis; nup and ndn may both
// be Unconserved.
func NewTJSymmetric(nsites, nup, ndn int, g *symmetry.PermutationGroup, irrep *symmetry.Representation, opts ...Option) (*TJSymmetric, error) {
	p, err := newSymmetricProduct(ModelTJ, nsites, nup, ndn, g, irrep, opts)
	if err != nil {
		return nil, err
	}
	return &TJSymmetric{symmetricProduct: p}, nil
}

func (*TJSymmetric) sealed() {}

// Model implements Basis.
func (*TJSymmetric) Model() Model { return ModelTJ }

// NSites implements Basis.
func (b *TJSymmetric) NSites() int { return b.nsites }

// QuantumNumbers implements Basis.
func (b *TJSymmetric) QuantumNumbers() QuantumNumbers { return b.quantumNumbers() }

// Size implements Basis.
func (b *TJSymmetric) Size() int64 { return b.size() }

// Dim implements Basis.
func (b *TJSymmetric) Dim() int64 { return b.dim }

// Index implements Basis.
func (b *TJSymmetric) Index(s State) int64 { return b.index(s) }

// State implements Basis.
func (b *TJSymmetric) State(idx int64) State { return b.state(idx) }

// All implements Basis.
func (b *TJSymmetric) All() iter.Seq2[int64, State] { return b.rangeStates(0, b.size()) }

// Range yields (idx, state) for idx in [start, end).
func (b *TJSymmetric) Range(start, end int64) iter.Seq2[int64, State] {
	return b.rangeStates(start, end)
}

// Group implements Basis.
func (b *TJSymmetric) Group() *symmetry.PermutationGroup { return b.group }

// Irrep implements Basis.
func (b *TJSymmetric) Irrep() *symmetry.Representation { return b.irrep }

// Equal implements Basis.
func (b *TJSymmetric) Equal(o Basis) bool { return equal(b, o) }

// ElectronSymmetric is the symmetry-reduced electron basis.
type ElectronSymmetric struct {
	*symmetricProduct
}

// NewElectronSymmetric creates a symmetry-reduced electron basis; nup and
// ndn may both be Unconserved.
func NewElectronSymmetric(nsites, nup, ndn int, g *symmetry.PermutationGroup, irrep *symmetry.Representation, opts ...Option) (*ElectronSymmetric, error) {
	p, err := newSymmetricProduct(ModelElectron, nsites, nup, ndn, g, irrep, opts)
	if err != nil {
		return nil, err
	}
	return &ElectronSymmetric{symmetricProduct: p}, nil
}

func (*ElectronSymmetric) sealed() {}

// Model implements Basis.
func (*ElectronSymmetric) Model() Model { return ModelElectron }

// NSites implements Basis.
func (b *ElectronSymmetric) NSites() int { return b.nsites }

// QuantumNumbers implements Basis.
func (b *ElectronSymmetric) QuantumNumbers() QuantumNumbers { return b.quantumNumbers() }

// Size implements Basis.
func (b *ElectronSymmetric) Size() int64 { return b.size() }

// Dim implements Basis.
func (b *ElectronSymmetric) Dim() int64 { return b.dim }

// Index implements Basis.
func (b *ElectronSymmetric) Index(s State) int64 { return b.index(s) }

// State implements Basis.
func (b *ElectronSymmetric) State(idx int64) State { return b.state(idx) }

// All implements Basis.
func (b *ElectronSymmetric) All() iter.Seq2[int64, State] { return b.rangeStates(0, b.size()) }

// Range yields (idx, state) for idx in [start, end).
func (b *ElectronSymmetric) Range(start, end int64) iter.Seq2[int64, State] {
	return b.rangeStates(start, end)
}

// Group implements Basis.
func (b *ElectronSymmetric) Group() *symmetry.PermutationGroup { return b.group }

// Irrep implements Basis.
func (b *ElectronSymmetric) Irrep() *symmetry.Representation { return b.irrep }

// Equal implements Basis.
func (b *ElectronSymmetric) Equal(o Basis) bool { return equal(b, o) }
