package symmetry

import (
	"fmt"
	"strings"

	"github.com/hupe1980/diaggo/bitops"
)

// GroupAction applies group elements to bit configurations.
//
// Implementations are read-only after construction and safe for concurrent
// use.
type GroupAction interface {
	// NSites returns the number of sites.
	NSites() int
	// NSymmetries returns the number of group elements.
	NSymmetries() int
	// Apply returns the configuration state with every set bit i moved to
	// position g(i), where g is element sym.
	Apply(sym int, state uint64) uint64
}

// ActionKind selects a GroupAction implementation.
type ActionKind int

const (
	// ActionLookup precomputes translation tables for both halves of the
	// configuration.
	ActionLookup ActionKind = iota
	// ActionDirect permutes bits on every call.
	ActionDirect
)

func (k ActionKind) String() string {
	switch k {
	case ActionLookup:
		return "lookup"
	case ActionDirect:
		return "direct"
	default:
		return "unknown"
	}
}

// ParseActionKind parses "lookup" or "direct".
func ParseActionKind(s string) (ActionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lookup", "":
		return ActionLookup, nil
	case "direct":
		return ActionDirect, nil
	default:
		return 0, fmt.Errorf("symmetry: unknown group action %q", s)
	}
}

// NewAction builds the action of the given kind for g.
func NewAction(kind ActionKind, g *PermutationGroup) GroupAction {
	if kind == ActionDirect {
		return NewDirect(g)
	}
	return NewLookup(g)
}

// Direct recomputes the bit permutation on every call, O(n_sites).
type Direct struct {
	nsites int
	perms  [][]int
}

// NewDirect creates a Direct action for g.
func NewDirect(g *PermutationGroup) *Direct {
	perms := make([][]int, g.Size())
	for i, p := range g.perms {
		perms[i] = p.perm
	}
	return &Direct{nsites: g.nsites, perms: perms}
}

// NSites implements GroupAction.
func (d *Direct) NSites() int { return d.nsites }

// NSymmetries implements GroupAction.
func (d *Direct) NSymmetries() int { return len(d.perms) }

// Apply implements GroupAction.
func (d *Direct) Apply(sym int, state uint64) uint64 {
	return applyState(d.perms[sym], state)
}

// Lookup splits a configuration into a postfix of the lowest n/2 bits and a
// prefix of the remaining bits and answers Apply with two table lookups.
// Setup is O(n_sym * 2^(n/2)); memory is n_sym * (2^floor(n/2) +
// 2^ceil(n/2)) words.
type Lookup struct {
	nsites  int
	nsyms   int
	npost   int
	postMsk uint64
	// post[sym<<npost | x] and pre[sym<<npre | x]
	post []uint64
	pre  []uint64
	npre int
}

// NewLookup creates a Lookup action for g.
func NewLookup(g *PermutationGroup) *Lookup {
	n := g.nsites
	npost := n / 2
	npre := n - npost
	l := &Lookup{
		nsites:  n,
		nsyms:   g.Size(),
		npost:   npost,
		npre:    npre,
		postMsk: bitops.LowMask(npost),
		post:    make([]uint64, g.Size()<<uint(npost)),
		pre:     make([]uint64, g.Size()<<uint(npre)),
	}
	for sym, p := range g.perms {
		base := sym << uint(npost)
		for x := range uint64(1) << uint(npost) {
			l.post[base+int(x)] = applyState(p.perm, x)
		}
		base = sym << uint(npre)
		for x := range uint64(1) << uint(npre) {
			l.pre[base+int(x)] = applyState(p.perm, x<<uint(npost))
		}
	}
	return l
}

// NSites implements GroupAction.
func (l *Lookup) NSites() int { return l.nsites }

// NSymmetries implements GroupAction.
func (l *Lookup) NSymmetries() int { return l.nsyms }

// Apply implements GroupAction.
func (l *Lookup) Apply(sym int, state uint64) uint64 {
	return l.pre[sym<<uint(l.npre)|int(state>>uint(l.npost))] |
		l.post[sym<<uint(l.npost)|int(state&l.postMsk)]
}
