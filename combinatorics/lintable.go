package combinatorics

import (
	"fmt"
	"math/bits"

	"github.com/hupe1980/diaggo/bitops"
	"github.com/hupe1980/diaggo/internal/errs"
)

// MaxLinTableSites bounds n for a LinTable; the two lookup tables hold
// 2^ceil(n/2) and 2^floor(n/2) entries.
const MaxLinTableSites = 48

// LinTable ranks n-bit words with exactly k set bits in O(1).
//
// The rank is the position of the word among all such words sorted by
// integer value (the combinatorial number system): for set-bit positions
// c_1 < c_2 < ... < c_k the rank is sum_i C(c_i, i). The word is split into
// a low half of floor(n/2) bits and a high half; the low table holds the
// partial sum of the low bits and the high table the partial sum of the high
// bits, which only depends on the high bits because k is fixed.
type LinTable struct {
	n, k  int
	nlo   int
	loMsk uint64
	size  int64
	lo    []int64
	hi    []int64
}

// NewLinTable precomputes the rank tables for n-bit words with k set bits.
// Complexity: O(2^(n/2) * n) time, O(2^(n/2)) memory.
func NewLinTable(n, k int) (*LinTable, error) {
	if n < 0 || n > MaxLinTableSites {
		return nil, fmt.Errorf("lintable: n=%d outside [0, %d]: %w", n, MaxLinTableSites, errs.ErrInvalidArgument)
	}
	if k < 0 || k > n {
		return nil, fmt.Errorf("lintable: k=%d outside [0, %d]: %w", k, n, errs.ErrInvalidArgument)
	}

	nlo := n / 2
	nhi := n - nlo
	t := &LinTable{
		n:     n,
		k:     k,
		nlo:   nlo,
		loMsk: bitops.LowMask(nlo),
		size:  Binomial(n, k),
		lo:    make([]int64, 1<<uint(nlo)),
		hi:    make([]int64, 1<<uint(nhi)),
	}

	for lo := range uint64(len(t.lo)) {
		if bitops.Popcount(lo) > k {
			continue
		}
		var idx int64
		i := 0
		for m := lo; m != 0; m &= m - 1 {
			i++
			idx += Binomial(bits.TrailingZeros64(m), i)
		}
		t.lo[lo] = idx
	}

	for hi := range uint64(len(t.hi)) {
		khi := bitops.Popcount(hi)
		kl := k - khi
		if kl < 0 || kl > nlo {
			continue
		}
		var idx int64
		i := kl
		for m := hi; m != 0; m &= m - 1 {
			i++
			idx += Binomial(nlo+bits.TrailingZeros64(m), i)
		}
		t.hi[hi] = idx
	}
	return t, nil
}

// N returns the number of bits.
func (t *LinTable) N() int { return t.n }

// K returns the number of set bits.
func (t *LinTable) K() int { return t.k }

// Size returns C(n, k).
func (t *LinTable) Size() int64 { return t.size }

// Index returns the rank of x. x must have exactly k set bits within
// the low n bits; other inputs give unspecified results.
func (t *LinTable) Index(x uint64) int64 {
	return t.hi[x>>uint(t.nlo)] + t.lo[x&t.loMsk]
}

// NthPattern returns the word of rank i (the inverse of Index).
// i must be in [0, Size()).
func (t *LinTable) NthPattern(i int64) uint64 {
	var x uint64
	c := t.n - 1
	for j := t.k; j >= 1; j-- {
		for Binomial(c, j) > i {
			c--
		}
		x |= uint64(1) << uint(c)
		i -= Binomial(c, j)
		c--
	}
	return x
}
