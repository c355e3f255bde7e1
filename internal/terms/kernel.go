package terms

import (
	"fmt"
	"math/bits"
	"math/cmplx"

	"github.com/hupe1980/diaggo/basis"
	"github.com/hupe1980/diaggo/bitops"
	"github.com/hupe1980/diaggo/internal/errs"
	"github.com/hupe1980/diaggo/operator"
)

// EmitFunc receives one output configuration of a term and its coefficient,
// fermionic sign included.
type EmitFunc func(out basis.State, coeff complex128)

// Kernel is the action of one term on a single configuration. Exactly one
// of Diag and Off is set.
type Kernel struct {
	Diag func(s basis.State) complex128
	Off  func(s basis.State, emit EmitFunc)
}

// Compile turns terms into kernels for model m.
func Compile(terms []operator.Term, m basis.Model) ([]Kernel, error) {
	ks := make([]Kernel, 0, len(terms))
	for _, t := range terms {
		var (
			k  Kernel
			ok bool
		)
		if m == basis.ModelSpinhalf {
			k, ok = spinKernel(t)
		} else {
			k, ok = fermionKernel(t, m == basis.ModelTJ)
		}
		if !ok {
			return nil, fmt.Errorf("terms: %s on %s basis: %w", t.Type, m, errs.ErrUnknownOperatorType)
		}
		ks = append(ks, k)
	}
	return ks, nil
}

func bit(x uint64, i int) uint64 { return (x >> uint(i)) & 1 }

func parity(n int) float64 {
	if n&1 == 1 {
		return -1
	}
	return 1
}

func spinKernel(t operator.Term) (Kernel, bool) {
	c := t.Coeff
	switch t.Type {
	case operator.Id:
		return Kernel{Diag: func(basis.State) complex128 { return c }}, true

	case operator.SzSz:
		i, j := t.Sites[0], t.Sites[1]
		return Kernel{Diag: func(s basis.State) complex128 {
			if bit(s.Up, i) == bit(s.Up, j) {
				return c / 4
			}
			return -c / 4
		}}, true

	case operator.Sz:
		i := t.Sites[0]
		return Kernel{Diag: func(s basis.State) complex128 {
			if bit(s.Up, i) == 1 {
				return c / 2
			}
			return -c / 2
		}}, true

	case operator.Exchange:
		i, j := t.Sites[0], t.Sites[1]
		mask := uint64(1)<<uint(i) | uint64(1)<<uint(j)
		cij, cji := c/2, cmplx.Conj(c)/2
		return Kernel{Off: func(s basis.State, emit EmitFunc) {
			x := s.Up & mask
			if x == 0 || x == mask {
				return
			}
			if bit(s.Up, i) == 0 {
				emit(basis.State{Up: s.Up ^ mask}, cij)
			} else {
				emit(basis.State{Up: s.Up ^ mask}, cji)
			}
		}}, true

	case operator.Splus:
		m := uint64(1) << uint(t.Sites[0])
		return Kernel{Off: func(s basis.State, emit EmitFunc) {
			if s.Up&m == 0 {
				emit(basis.State{Up: s.Up | m}, c)
			}
		}}, true

	case operator.Sminus:
		m := uint64(1) << uint(t.Sites[0])
		return Kernel{Off: func(s basis.State, emit EmitFunc) {
			if s.Up&m != 0 {
				emit(basis.State{Up: s.Up &^ m}, c)
			}
		}}, true

	case operator.MatrixOp:
		return matrixKernel(t), true
	}
	return Kernel{}, false
}

type entry struct {
	row int
	v   complex128
}

// matrixKernel applies a dense matrix on t.Sites. Local index bit j is the
// state of t.Sites[j].
func matrixKernel(t operator.Term) Kernel {
	sites := t.Sites
	m := t.Matrix
	var mask uint64
	for _, s := range sites {
		mask |= 1 << uint(s)
	}
	cols := make([][]entry, m.Cols)
	for col := range m.Cols {
		for row := range m.Rows {
			if v := m.At(row, col); v != 0 {
				cols[col] = append(cols[col], entry{row, v})
			}
		}
	}
	scatter := func(x int) uint64 {
		var w uint64
		for j, s := range sites {
			w |= uint64((x>>uint(j))&1) << uint(s)
		}
		return w
	}
	return Kernel{Off: func(s basis.State, emit EmitFunc) {
		x := 0
		for j, site := range sites {
			x |= int(bit(s.Up, site)) << uint(j)
		}
		rest := s.Up &^ mask
		for _, e := range cols[x] {
			emit(basis.State{Up: rest | scatter(e.row)}, e.v)
		}
	}}
}

// fermionKernel builds the kernel of t for tJ (tj set) or Electron states.
// Fermion operators are ordered with all up operators before all down
// operators, each species by increasing site.
func fermionKernel(t operator.Term, tj bool) (Kernel, bool) {
	c := t.Coeff
	switch t.Type {
	case operator.Id:
		return Kernel{Diag: func(basis.State) complex128 { return c }}, true

	case operator.Nup:
		i := t.Sites[0]
		return Kernel{Diag: func(s basis.State) complex128 { return c * complex(float64(bit(s.Up, i)), 0) }}, true

	case operator.Ndn:
		i := t.Sites[0]
		return Kernel{Diag: func(s basis.State) complex128 { return c * complex(float64(bit(s.Dn, i)), 0) }}, true

	case operator.Nupdn:
		i := t.Sites[0]
		return Kernel{Diag: func(s basis.State) complex128 {
			return c * complex(float64(bit(s.Up, i)&bit(s.Dn, i)), 0)
		}}, true

	case operator.HubbardU:
		return Kernel{Diag: func(s basis.State) complex128 {
			return c * complex(float64(bits.OnesCount64(s.Up&s.Dn)), 0)
		}}, true

	case operator.NtotNtot:
		i, j := t.Sites[0], t.Sites[1]
		return Kernel{Diag: func(s basis.State) complex128 {
			ni := bit(s.Up, i) + bit(s.Dn, i)
			nj := bit(s.Up, j) + bit(s.Dn, j)
			return c * complex(float64(ni*nj), 0)
		}}, true

	case operator.Sz:
		i := t.Sites[0]
		return Kernel{Diag: func(s basis.State) complex128 {
			return c * complex(float64(int(bit(s.Up, i))-int(bit(s.Dn, i)))/2, 0)
		}}, true

	case operator.SzSz:
		i, j := t.Sites[0], t.Sites[1]
		return Kernel{Diag: func(s basis.State) complex128 {
			si := int(bit(s.Up, i)) - int(bit(s.Dn, i))
			sj := int(bit(s.Up, j)) - int(bit(s.Dn, j))
			return c * complex(float64(si*sj)/4, 0)
		}}, true

	case operator.Exchange:
		return fermionExchange(t), true

	case operator.Hopup:
		return hopKernel(t, false, tj), true

	case operator.Hopdn:
		return hopKernel(t, true, tj), true

	case operator.Cdagup, operator.Cup, operator.Cdagdn, operator.Cdn:
		return ladderKernel(t, tj), true
	}
	return Kernel{}, false
}

// fermionExchange applies J/2 S+_i S-_j + conj(J)/2 S-_i S+_j to singly
// occupied sites. Moving one up and one down fermion past each other picks
// up -(-1)^(fermions strictly between i and j).
func fermionExchange(t operator.Term) Kernel {
	i, j := t.Sites[0], t.Sites[1]
	mask := uint64(1)<<uint(i) | uint64(1)<<uint(j)
	cij, cji := t.Coeff/2, cmplx.Conj(t.Coeff)/2
	return Kernel{Off: func(s basis.State, emit EmitFunc) {
		ui, di, uj, dj := bit(s.Up, i), bit(s.Dn, i), bit(s.Up, j), bit(s.Dn, j)
		var coeff complex128
		switch {
		case di == 1 && ui == 0 && uj == 1 && dj == 0:
			coeff = cij
		case ui == 1 && di == 0 && dj == 1 && uj == 0:
			coeff = cji
		default:
			return
		}
		between := bitops.PopcntBetween(s.Up, i, j) + bitops.PopcntBetween(s.Dn, i, j)
		sign := -parity(between)
		emit(basis.State{Up: s.Up ^ mask, Dn: s.Dn ^ mask}, complex(sign, 0)*coeff)
	}}
}

// hopKernel applies -t c+_i c_j - conj(t) c+_j c_i for one species.
func hopKernel(t operator.Term, dn, tj bool) Kernel {
	i, j := t.Sites[0], t.Sites[1]
	mask := uint64(1)<<uint(i) | uint64(1)<<uint(j)
	tij, tji := -t.Coeff, -cmplx.Conj(t.Coeff)
	return Kernel{Off: func(s basis.State, emit EmitFunc) {
		w, other := s.Up, s.Dn
		if dn {
			w, other = s.Dn, s.Up
		}
		bi, bj := bit(w, i), bit(w, j)
		if bi == bj {
			return
		}
		coeff, target := tij, i
		if bi == 1 {
			coeff, target = tji, j
		}
		if tj && bit(other, target) == 1 {
			return
		}
		if bitops.PopcntBetween(w, i, j)&1 == 1 {
			coeff = -coeff
		}
		out := basis.State{Up: w ^ mask, Dn: other}
		if dn {
			out = basis.State{Up: other, Dn: w ^ mask}
		}
		emit(out, coeff)
	}}
}

// ladderKernel applies a single creation or annihilation operator. Down
// operators pass every up fermion, hence the extra (-1)^nup.
func ladderKernel(t operator.Term, tj bool) Kernel {
	i := t.Sites[0]
	m := uint64(1) << uint(i)
	c := t.Coeff
	create := t.Type == operator.Cdagup || t.Type == operator.Cdagdn
	dn := t.Type == operator.Cdagdn || t.Type == operator.Cdn
	return Kernel{Off: func(s basis.State, emit EmitFunc) {
		w, other := s.Up, s.Dn
		if dn {
			w, other = s.Dn, s.Up
		}
		occupied := w&m != 0
		if create == occupied {
			return
		}
		if create && tj && other&m != 0 {
			return
		}
		n := bitops.PopcntBelow(w, i)
		if dn {
			n += bits.OnesCount64(s.Up)
		}
		coeff := complex(parity(n), 0) * c
		if dn {
			emit(basis.State{Up: s.Up, Dn: w ^ m}, coeff)
		} else {
			emit(basis.State{Up: w ^ m, Dn: s.Dn}, coeff)
		}
	}}
}
