package basis

import (
	"fmt"
	"iter"
	"sort"

	"github.com/hupe1980/diaggo/bitops"
	"github.com/hupe1980/diaggo/combinatorics"
	"github.com/hupe1980/diaggo/internal/errs"
	"github.com/hupe1980/diaggo/symmetry"
)

// product is the layout shared by the non-symmetric tJ and Electron bases:
// one contiguous block of down configurations per up configuration, in
// increasing order of the up configuration.
//
// For the tJ model down configurations are stored compressed to the sites
// not occupied by up fermions.
type product struct {
	model  Model
	nsites int
	nup    int
	ndn    int
	mask   uint64

	ups combinatorics.Sector
	// dns[k] is the down sector for up configurations with k set bits.
	dns []combinatorics.Sector
	// offsets[i] is the index of the first state of up block i.
	offsets []int64
}

func validateTwoSpecies(model Model, nsites, nup, ndn int) error {
	if nsites < 0 || nsites > MaxTwoSpeciesSites {
		return fmt.Errorf("%s: nsites=%d outside [0, %d]: %w", model, nsites, MaxTwoSpeciesSites, errs.ErrInvalidArgument)
	}
	if (nup == Unconserved) != (ndn == Unconserved) {
		return fmt.Errorf("%s: nup and ndn must both be conserved or both unconserved: %w", model, errs.ErrInvalidArgument)
	}
	if nup == Unconserved {
		return nil
	}
	if nup < 0 || nup > nsites || ndn < 0 || ndn > nsites {
		return fmt.Errorf("%s: nup=%d, ndn=%d outside [0, %d]: %w", model, nup, ndn, nsites, errs.ErrInvalidArgument)
	}
	if model == ModelTJ && nup+ndn > nsites {
		return fmt.Errorf("%s: nup+ndn=%d exceeds nsites=%d: %w", model, nup+ndn, nsites, errs.ErrInvalidArgument)
	}
	return nil
}

func newProduct(model Model, nsites, nup, ndn int) (*product, error) {
	if err := validateTwoSpecies(model, nsites, nup, ndn); err != nil {
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
	p := &product{
		model:   model,
		nsites:  nsites,
		nup:     nup,
		ndn:     ndn,
		mask:    bitops.LowMask(nsites),
		ups:     ups,
		dns:     dns,
		offsets: make([]int64, ups.Size()+1),
	}
	for i, u := range ups.All() {
		p.offsets[i+1] = p.offsets[i] + dns[bitops.Popcount(u)].Size()
	}
	return p, nil
}

// downSectors returns the down sector for every possible up count; entries
// for impossible counts are nil.
func downSectors(model Model, nsites, nup, ndn int) ([]combinatorics.Sector, error) {
	sectors := make([]combinatorics.Sector, nsites+1)
	for k := range nsites + 1 {
		if nup != Unconserved && k != nup {
			continue
		}
		free := nsites
		if model == ModelTJ {
			free = nsites - k
		}
		s, err := spinSector(free, ndn)
		if err != nil {
			return nil, err
		}
		sectors[k] = s
	}
	return sectors, nil
}

// compress maps dns to the word stored in the down sector of ups.
func (p *product) compress(ups, dns uint64) uint64 {
	if p.model == ModelTJ {
		return bitops.Extract(dns, ^ups&p.mask)
	}
	return dns
}

// expand is the inverse of compress.
func (p *product) expand(ups, dnc uint64) uint64 {
	if p.model == ModelTJ {
		return bitops.Deposit(dnc, ^ups&p.mask)
	}
	return dnc
}

func (p *product) size() int64 { return p.offsets[len(p.offsets)-1] }

func (p *product) quantumNumbers() QuantumNumbers { return QuantumNumbers{NUp: p.nup, NDn: p.ndn} }

func (p *product) index(s State) int64 {
	iu := p.ups.Index(s.Up)
	if iu == combinatorics.InvalidIndex {
		return InvalidIndex
	}
	if p.model == ModelTJ && s.Up&s.Dn != 0 {
		return InvalidIndex
	}
	if s.Dn&^p.mask != 0 {
		return InvalidIndex
	}
	dn := p.dns[bitops.Popcount(s.Up)]
	id := dn.Index(p.compress(s.Up, s.Dn))
	if id == combinatorics.InvalidIndex {
		return InvalidIndex
	}
	return p.offsets[iu] + id
}

func (p *product) state(idx int64) State {
	iu := int64(sort.Search(len(p.offsets)-1, func(i int) bool { return p.offsets[i+1] > idx }))
	ups := p.ups.Nth(iu)
	dnc := p.dns[bitops.Popcount(ups)].Nth(idx - p.offsets[iu])
	return State{Up: ups, Dn: p.expand(ups, dnc)}
}

// blocks yields every up block in [start, end) of up indices.
func (p *product) blocks(start, end int64) iter.Seq2[int64, uint64] {
	return p.ups.Range(start, end)
}

func (p *product) blockStates(iu int64, ups uint64) iter.Seq2[int64, State] {
	return func(yield func(int64, State) bool) {
		off := p.offsets[iu]
		for id, dnc := range p.dns[bitops.Popcount(ups)].All() {
			if !yield(off+id, State{Up: ups, Dn: p.expand(ups, dnc)}) {
				return
			}
		}
	}
}

func (p *product) all() iter.Seq2[int64, State] {
	return func(yield func(int64, State) bool) {
		for iu, ups := range p.ups.All() {
			for i, s := range p.blockStates(iu, ups) {
				if !yield(i, s) {
					return
				}
			}
		}
	}
}

// Range yields (idx, state) for idx in [start, end).
func (p *product) Range(start, end int64) iter.Seq2[int64, State] {
	return func(yield func(int64, State) bool) {
		start, end = max(start, 0), min(end, p.size())
		if start >= end {
			return
		}
		iu := int64(sort.Search(len(p.offsets)-1, func(i int) bool { return p.offsets[i+1] > start }))
		for ; iu < p.ups.Size() && p.offsets[iu] < end; iu++ {
			ups := p.ups.Nth(iu)
			off := p.offsets[iu]
			lo, hi := max(start, off)-off, min(end, p.offsets[iu+1])-off
			for id, dnc := range p.dns[bitops.Popcount(ups)].Range(lo, hi) {
				if !yield(off+id, State{Up: ups, Dn: p.expand(ups, dnc)}) {
					return
				}
			}
		}
	}
}

// NumUpBlocks returns the number of up configurations.
func (p *product) NumUpBlocks() int64 { return p.ups.Size() }

// UpBlocks yields (block index, up configuration) for blocks in [start, end).
func (p *product) UpBlocks(start, end int64) iter.Seq2[int64, uint64] { return p.blocks(start, end) }

// BlockStates yields (idx, state) for every state of up block iu.
func (p *product) BlockStates(iu int64, ups uint64) iter.Seq2[int64, State] {
	return p.blockStates(iu, ups)
}

// TJ is the t-J basis: every site is empty, up or down.
type TJ struct {
	*product
}

// NewTJ creates a t-J basis with nup up and ndn down fermions; both may be
// Unconserved.
func NewTJ(nsites, nup, ndn int) (*TJ, error) {
	p, err := newProduct(ModelTJ, nsites, nup, ndn)
	if err != nil {
		return nil, err
	}
	return &TJ{product: p}, nil
}

func (*TJ) sealed() {}

// Model implements Basis.
func (*TJ) Model() Model { return ModelTJ }

// NSites implements Basis.
func (b *TJ) NSites() int { return b.nsites }

// QuantumNumbers implements Basis.
func (b *TJ) QuantumNumbers() QuantumNumbers { return b.quantumNumbers() }

// Size implements Basis.
func (b *TJ) Size() int64 { return b.size() }

// Dim implements Basis.
func (b *TJ) Dim() int64 { return b.size() }

// Index implements Basis.
func (b *TJ) Index(s State) int64 { return b.index(s) }

// State implements Basis.
func (b *TJ) State(idx int64) State { return b.state(idx) }

// All implements Basis.
func (b *TJ) All() iter.Seq2[int64, State] { return b.all() }

// Group implements Basis.
func (*TJ) Group() *symmetry.PermutationGroup { return nil }

// Irrep implements Basis.
func (*TJ) Irrep() *symmetry.Representation { return nil }

// Equal implements Basis.
func (b *TJ) Equal(o Basis) bool { return equal(b, o) }

// Electron is the Hubbard basis: every site holds up to one up and one
// down fermion.
type Electron struct {
	*product
}

// NewElectron creates an electron basis with nup up and ndn down fermions;
// both may be Unconserved.
func NewElectron(nsites, nup, ndn int) (*Electron, error) {
	p, err := newProduct(ModelElectron, nsites, nup, ndn)
	if err != nil {
		return nil, err
	}
	return &Electron{product: p}, nil
}

func (*Electron) sealed() {}

// Model implements Basis.
func (*Electron) Model() Model { return ModelElectron }

// NSites implements Basis.
func (b *Electron) NSites() int { return b.nsites }

// QuantumNumbers implements Basis.
func (b *Electron) QuantumNumbers() QuantumNumbers { return b.quantumNumbers() }

// Size implements Basis.
func (b *Electron) Size() int64 { return b.size() }

// Dim implements Basis.
func (b *Electron) Dim() int64 { return b.size() }

// Index implements Basis.
func (b *Electron) Index(s State) int64 { return b.index(s) }

// State implements Basis.
func (b *Electron) State(idx int64) State { return b.state(idx) }

// All implements Basis.
func (b *Electron) All() iter.Seq2[int64, State] { return b.all() }

// Group implements Basis.
func (*Electron) Group() *symmetry.PermutationGroup { return nil }

// Irrep implements Basis.
func (*Electron) Irrep() *symmetry.Representation { return nil }

// Equal implements Basis.
func (b *Electron) Equal(o Basis) bool { return equal(b, o) }
