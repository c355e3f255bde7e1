package operator

import (
	"fmt"
	"math/bits"
	"slices"

	"github.com/hupe1980/diaggo/basis"
	"github.com/hupe1980/diaggo/internal/errs"
)

// Type is a primitive term type after compilation.
type Type int

const (
	// Id is the identity times the coefficient.
	Id Type = iota
	// SzSz is J Sz_i Sz_j.
	SzSz
	// Exchange is J/2 S+_i S-_j + conj(J)/2 S-_i S+_j.
	Exchange
	// Sz is h Sz_i.
	Sz
	// Splus is c S+_i.
	Splus
	// Sminus is c S-_i.
	Sminus
	// MatrixOp is a dense matrix on spin-1/2 sites.
	MatrixOp
	// Hopup is -t c+_{i,up} c_{j,up} - conj(t) c+_{j,up} c_{i,up}.
	Hopup
	// Hopdn is the down-spin counterpart of Hopup.
	Hopdn
	// Nup is c n_{i,up}.
	Nup
	// Ndn is c n_{i,dn}.
	Ndn
	// Nupdn is U n_{i,up} n_{i,dn}.
	Nupdn
	// NtotNtot is V n_i n_j.
	NtotNtot
	// Cdagup creates an up fermion.
	Cdagup
	// Cup annihilates an up fermion.
	Cup
	// Cdagdn creates a down fermion.
	Cdagdn
	// Cdn annihilates a down fermion.
	Cdn
	// HubbardU is U sum_i n_{i,up} n_{i,dn} over all sites.
	HubbardU
)

var typeNames = [...]string{
	Id:       "Id",
	SzSz:     "SzSz",
	Exchange: "Exchange",
	Sz:       "Sz",
	Splus:    "S+",
	Sminus:   "S-",
	MatrixOp: "Matrix",
	Hopup:    "Hopup",
	Hopdn:    "Hopdn",
	Nup:      "Nup",
	Ndn:      "Ndn",
	Nupdn:    "Nupdn",
	NtotNtot: "NtotNtot",
	Cdagup:   "Cdagup",
	Cup:      "Cup",
	Cdagdn:   "Cdagdn",
	Cdn:      "Cdn",
	HubbardU: "HubbardU",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// arity is the number of sites of every primitive type; -1 means one or
// more.
var arity = [...]int{
	Id: 0, SzSz: 2, Exchange: 2, Sz: 1, Splus: 1, Sminus: 1, MatrixOp: -1,
	Hopup: 2, Hopdn: 2, Nup: 1, Ndn: 1, Nupdn: 1, NtotNtot: 2,
	Cdagup: 1, Cup: 1, Cdagdn: 1, Cdn: 1, HubbardU: 0,
}

// composite expands a user-facing type into primitive terms with relative
// weights.
type composite struct {
	arity int
	parts []part
}

type part struct {
	typ    Type
	weight complex128
}

var composites = map[string]composite{
	"Heisenberg": {2, []part{{SzSz, 1}, {Exchange, 1}}},
	"SdotS":      {2, []part{{SzSz, 1}, {Exchange, 1}}},
	"Ising":      {2, []part{{SzSz, 1}}},
	"Sx":         {1, []part{{Splus, 0.5}, {Sminus, 0.5}}},
	"Sy":         {1, []part{{Splus, -0.5i}, {Sminus, 0.5i}}},
	"Hop":        {2, []part{{Hopup, 1}, {Hopdn, 1}}},
	"Ntot":       {1, []part{{Nup, 1}, {Ndn, 1}}},
	"tJSzSz":     {2, []part{{SzSz, 1}, {NtotNtot, -0.25}}},
}

var primitives = func() map[string]Type {
	m := make(map[string]Type, len(typeNames))
	for t, name := range typeNames {
		m[name] = Type(t)
	}
	return m
}()

// LookupType reports whether name is a known operator type, primitive or
// composite.
func LookupType(name string) bool {
	if _, ok := primitives[name]; ok {
		return true
	}
	_, ok := composites[name]
	return ok
}

// Term is a compiled primitive term. Terms are values; the kernels never
// modify them.
type Term struct {
	Type   Type
	Sites  []int
	Coeff  complex128
	Matrix *Matrix
}

func (t Term) String() string {
	if t.Matrix != nil {
		return fmt.Sprintf("%s%v", t.Type, t.Sites)
	}
	return fmt.Sprintf("%s%v(%v)", t.Type, t.Sites, t.Coeff)
}

// ValidFor reports whether the term is defined on the given model.
func (t Term) ValidFor(m basis.Model) bool {
	switch t.Type {
	case Id, SzSz, Exchange, Sz:
		return true
	case Splus, Sminus, MatrixOp:
		return m == basis.ModelSpinhalf
	case Hopup, Hopdn, Nup, Ndn, NtotNtot, Cdagup, Cup, Cdagdn, Cdn:
		return m == basis.ModelTJ || m == basis.ModelElectron
	case Nupdn, HubbardU:
		return m == basis.ModelElectron
	default:
		return false
	}
}

// Compile resolves named couplings, expands composite types and validates
// every operator of s against a lattice of nsites sites.
func Compile(s *OpSum, nsites int) ([]Term, error) {
	terms := make([]Term, 0, s.Len())
	for i, op := range s.ops {
		c := op.Coupling
		if c.IsNamed() {
			bound, ok := s.couplings[c.name]
			if !ok {
				return nil, fmt.Errorf("operator %d (%s): coupling %q is not set: %w", i, op.Type, c.name, errs.ErrInvalidArgument)
			}
			if bound.IsNamed() {
				return nil, fmt.Errorf("operator %d (%s): coupling %q refers to another name: %w", i, op.Type, c.name, errs.ErrInvalidArgument)
			}
			c = bound
		}

		if comp, ok := composites[op.Type]; ok {
			if err := checkSites(op.Type, comp.arity, op.Sites, nsites); err != nil {
				return nil, fmt.Errorf("operator %d: %w", i, err)
			}
			if c.IsMatrix() {
				return nil, fmt.Errorf("operator %d (%s): matrix coupling on scalar type: %w", i, op.Type, errs.ErrInvalidArgument)
			}
			for _, p := range comp.parts {
				terms = append(terms, Term{Type: p.typ, Sites: slices.Clone(op.Sites), Coeff: p.weight * c.value})
			}
			continue
		}

		typ, ok := primitives[op.Type]
		if !ok {
			return nil, fmt.Errorf("operator %d: type %q: %w", i, op.Type, errs.ErrUnknownOperatorType)
		}
		if err := checkSites(op.Type, arity[typ], op.Sites, nsites); err != nil {
			return nil, fmt.Errorf("operator %d: %w", i, err)
		}
		t := Term{Type: typ, Sites: slices.Clone(op.Sites)}
		if typ == MatrixOp {
			if !c.IsMatrix() {
				return nil, fmt.Errorf("operator %d (Matrix): scalar coupling: %w", i, errs.ErrInvalidArgument)
			}
			dim := 1 << uint(len(op.Sites))
			if c.matrix.Rows != dim || c.matrix.Cols != dim {
				return nil, fmt.Errorf("operator %d (Matrix): %dx%d matrix on %d sites, want %dx%d: %w",
					i, c.matrix.Rows, c.matrix.Cols, len(op.Sites), dim, dim, errs.ErrInvalidArgument)
			}
			t.Matrix = c.matrix
			t.Coeff = 1
		} else {
			if c.IsMatrix() {
				return nil, fmt.Errorf("operator %d (%s): matrix coupling on scalar type: %w", i, op.Type, errs.ErrInvalidArgument)
			}
			t.Coeff = c.value
		}
		terms = append(terms, t)
	}
	return terms, nil
}

func checkSites(typ string, want int, sites []int, nsites int) error {
	if (want >= 0 && len(sites) != want) || (want < 0 && len(sites) == 0) {
		return &errs.ArityError{Type: typ, Want: want, Got: len(sites)}
	}
	if want < 0 && len(sites) > 16 {
		return fmt.Errorf("%s: %d sites exceed the matrix limit of 16: %w", typ, len(sites), errs.ErrInvalidOperatorArity)
	}
	var seen uint64
	for _, s := range sites {
		if s < 0 || s >= nsites {
			return fmt.Errorf("%s: site %d outside [0, %d): %w", typ, s, nsites, errs.ErrInvalidArgument)
		}
		if seen&(1<<uint(s)) != 0 {
			return fmt.Errorf("%s: site %d repeated: %w", typ, s, errs.ErrInvalidOperatorArity)
		}
		seen |= 1 << uint(s)
	}
	return nil
}

// Delta is the change of (nup, ndn) caused by a term.
type Delta struct {
	Up, Dn int
}

// Delta returns the quantum-number change of t. For a matrix term ok is
// false if its non-zero entries change the up count by different amounts.
func (t Term) Delta() (d Delta, ok bool) {
	switch t.Type {
	case Splus, Cdagup:
		return Delta{Up: 1}, true
	case Sminus, Cup:
		return Delta{Up: -1}, true
	case Cdagdn:
		return Delta{Dn: 1}, true
	case Cdn:
		return Delta{Dn: -1}, true
	case MatrixOp:
		return matrixDelta(t.Matrix)
	default:
		return Delta{}, true
	}
}

func matrixDelta(m *Matrix) (Delta, bool) {
	first := true
	var d int
	for r := range m.Rows {
		for c := range m.Cols {
			if m.At(r, c) == 0 {
				continue
			}
			dd := bits.OnesCount(uint(r)) - bits.OnesCount(uint(c))
			if first {
				d, first = dd, false
			} else if dd != d {
				return Delta{}, false
			}
		}
	}
	return Delta{Up: d}, true
}

// SectorDelta returns the common quantum-number change of terms. It fails
// with ErrInvalidArgument if the terms connect different sectors.
func SectorDelta(terms []Term) (Delta, error) {
	var d Delta
	for i, t := range terms {
		td, ok := t.Delta()
		if !ok {
			return Delta{}, fmt.Errorf("operator: term %s mixes quantum-number sectors: %w", t, errs.ErrInvalidArgument)
		}
		if i == 0 {
			d = td
		} else if td != d {
			return Delta{}, fmt.Errorf("operator: term %s changes (nup, ndn) by %v, others by %v: %w", t, td, d, errs.ErrInvalidArgument)
		}
	}
	return d, nil
}
