package basis

import (
	"fmt"
	"iter"
	"strings"

	"github.com/hupe1980/diaggo/combinatorics"
	"github.com/hupe1980/diaggo/internal/errs"
	"github.com/hupe1980/diaggo/symmetry"
)

// Unconserved marks a quantum number that is not fixed.
const Unconserved = -1

// InvalidIndex is returned by Index for configurations outside a basis.
const InvalidIndex = combinatorics.InvalidIndex

// MaxSpinhalfSites bounds spin-1/2 bases.
const MaxSpinhalfSites = combinatorics.MaxLinTableSites

// MaxTwoSpeciesSites bounds tJ and Electron bases so that the unreduced
// dimension 4^n fits in an int64.
const MaxTwoSpeciesSites = 31

// Model identifies the local Hilbert space.
type Model int

const (
	// ModelSpinhalf has local states up and down.
	ModelSpinhalf Model = iota
	// ModelTJ has local states empty, up and down (no double occupancy).
	ModelTJ
	// ModelElectron has local states empty, up, down and doubly occupied.
	ModelElectron
)

func (m Model) String() string {
	switch m {
	case ModelSpinhalf:
		return "Spinhalf"
	case ModelTJ:
		return "tJ"
	case ModelElectron:
		return "Electron"
	default:
		return "unknown"
	}
}

// ParseModel parses a model name, case-insensitively.
func ParseModel(s string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spinhalf":
		return ModelSpinhalf, nil
	case "tj":
		return ModelTJ, nil
	case "electron":
		return ModelElectron, nil
	default:
		return 0, fmt.Errorf("basis: unknown model %q: %w", s, errs.ErrInvalidArgument)
	}
}

// Fermionic reports whether the model carries fermionic signs.
func (m Model) Fermionic() bool { return m == ModelTJ || m == ModelElectron }

// State is a configuration. Up holds the up-spin (or occupied-up) bits,
// Dn the down-fermion bits. Spin-1/2 configurations only use Up.
type State struct {
	Up, Dn uint64
}

// QuantumNumbers are the conserved particle numbers of a basis.
// Either field may be Unconserved.
type QuantumNumbers struct {
	NUp, NDn int
}

// Conserved reports whether NUp is fixed.
func (q QuantumNumbers) Conserved() bool { return q.NUp != Unconserved }

func (q QuantumNumbers) String() string {
	f := func(n int) string {
		if n == Unconserved {
			return "*"
		}
		return fmt.Sprint(n)
	}
	return fmt.Sprintf("(nup=%s, ndn=%s)", f(q.NUp), f(q.NDn))
}

// Basis is the sum type over all basis variants: *Spinhalf,
// *SpinhalfSymmetric, *TJ, *TJSymmetric, *Electron and *ElectronSymmetric.
// It is sealed; dispatch happens with a type switch over the variants.
type Basis interface {
	// Model returns the local Hilbert space.
	Model() Model
	// NSites returns the number of lattice sites.
	NSites() int
	// QuantumNumbers returns the conserved particle numbers.
	QuantumNumbers() QuantumNumbers
	// Size returns the number of basis states.
	Size() int64
	// Dim returns the dimension of the quantum-number sector before any
	// symmetry reduction.
	Dim() int64
	// Index returns the position of s, or InvalidIndex if s is not a basis
	// state. For symmetric bases s must be a representative.
	Index(s State) int64
	// State returns the basis state at idx.
	State(idx int64) State
	// All yields (idx, state) in basis order.
	All() iter.Seq2[int64, State]
	// Group returns the symmetry group, or nil.
	Group() *symmetry.PermutationGroup
	// Irrep returns the irreducible representation, or nil.
	Irrep() *symmetry.Representation
	// Equal compares model, sites, quantum numbers, group and irrep by value.
	Equal(o Basis) bool

	sealed()
}

// IsSymmetric reports whether b is a symmetry-reduced variant.
func IsSymmetric(b Basis) bool {
	switch b.(type) {
	case *SpinhalfSymmetric, *TJSymmetric, *ElectronSymmetric:
		return true
	default:
		return false
	}
}

// IsReal reports whether the basis admits real matrix elements for real
// couplings: non-symmetric bases always do, symmetric ones if the irrep is
// real.
func IsReal(b Basis) bool {
	if r := b.Irrep(); r != nil {
		return r.IsReal()
	}
	return true
}

func equal(a, b Basis) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Model() == b.Model() &&
		a.NSites() == b.NSites() &&
		a.QuantumNumbers() == b.QuantumNumbers() &&
		IsSymmetric(a) == IsSymmetric(b) &&
		a.Group().Equal(b.Group()) &&
		a.Irrep().Equal(b.Irrep())
}

// String renders a short description of b.
func String(b Basis) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s(nsites=%d, %s", b.Model(), b.NSites(), b.QuantumNumbers())
	if g := b.Group(); g != nil {
		fmt.Fprintf(&sb, ", nsym=%d", g.Size())
	}
	fmt.Fprintf(&sb, ", size=%d)", b.Size())
	return sb.String()
}

// VerifyCompleteness checks that bases over the same model, sites, quantum
// numbers and group, but distinct irreps, together span the unreduced
// sector: their sizes add up to Dim. It fails with ErrIncompleteSectors
// otherwise, and with ErrIncompatibleBasis if the bases do not share a
// sector.
func VerifyCompleteness(bases []Basis) error {
	if len(bases) == 0 {
		return fmt.Errorf("basis: no sectors given: %w", errs.ErrIncompleteSectors)
	}
	first := bases[0]
	var total int64
	for i, b := range bases {
		if b.Model() != first.Model() || b.NSites() != first.NSites() ||
			b.QuantumNumbers() != first.QuantumNumbers() || !b.Group().Equal(first.Group()) {
			return fmt.Errorf("basis: sector %d (%s) differs from %s: %w", i, String(b), String(first), errs.ErrIncompatibleBasis)
		}
		for j := range i {
			if b.Irrep().Equal(bases[j].Irrep()) {
				return fmt.Errorf("basis: sectors %d and %d share an irrep: %w", j, i, errs.ErrIncompatibleBasis)
			}
		}
		total += b.Size()
	}
	if total != first.Dim() {
		return fmt.Errorf("basis: sector sizes add up to %d, want %d: %w", total, first.Dim(), errs.ErrIncompleteSectors)
	}
	return nil
}

// Option configures basis construction.
type Option func(*options)

type options struct {
	action symmetry.ActionKind
}

// WithGroupAction selects the group action used for representative search.
// Lookup tables are the default.
func WithGroupAction(kind symmetry.ActionKind) Option {
	return func(o *options) {
		o.action = kind
	}
}

func applyOptions(opts []Option) options {
	o := options{action: symmetry.ActionLookup}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// resolveSymmetry validates group and irrep against nsites.
func resolveSymmetry(nsites int, g *symmetry.PermutationGroup, r *symmetry.Representation) (*symmetry.PermutationGroup, *symmetry.Representation, error) {
	if g == nil || r == nil {
		return nil, nil, fmt.Errorf("basis: symmetric basis needs a group and an irrep: %w", errs.ErrSymmetryMismatch)
	}
	if g.NSites() != nsites {
		return nil, nil, fmt.Errorf("basis: group acts on %d sites, basis has %d: %w", g.NSites(), nsites, errs.ErrSymmetryMismatch)
	}
	return symmetry.Resolve(g, r)
}

func spinSector(nsites, nup int) (combinatorics.Sector, error) {
	if nup == Unconserved {
		return combinatorics.NewSubsets(nsites)
	}
	return combinatorics.NewCombinations(nsites, nup)
}
