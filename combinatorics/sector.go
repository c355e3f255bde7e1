package combinatorics

import (
	"fmt"
	"iter"

	"github.com/hupe1980/diaggo/bitops"
	"github.com/hupe1980/diaggo/internal/errs"
)

// InvalidIndex is returned by Sector.Index for words outside the sector.
const InvalidIndex int64 = -1

// Sector is an ordered set of n-bit configurations with O(1) rank and
// unrank. Enumeration order is increasing integer value.
type Sector interface {
	// NSites returns the number of bits n.
	NSites() int
	// Size returns the number of configurations.
	Size() int64
	// Index returns the rank of x, or InvalidIndex if x is not in the sector.
	Index(x uint64) int64
	// Nth returns the configuration of rank i.
	Nth(i int64) uint64
	// Range yields (rank, configuration) for ranks in [start, end).
	Range(start, end int64) iter.Seq2[int64, uint64]
	// All yields every (rank, configuration) pair in order.
	All() iter.Seq2[int64, uint64]
}

// Combinations is the sector of n-bit words with exactly k set bits.
type Combinations struct {
	table *LinTable
	mask  uint64
}

// NewCombinations creates the sector of n-bit words with k set bits.
func NewCombinations(n, k int) (*Combinations, error) {
	t, err := NewLinTable(n, k)
	if err != nil {
		return nil, err
	}
	return &Combinations{table: t, mask: bitops.LowMask(n)}, nil
}

// NSites implements Sector.
func (c *Combinations) NSites() int { return c.table.n }

// K returns the fixed number of set bits.
func (c *Combinations) K() int { return c.table.k }

// Size implements Sector.
func (c *Combinations) Size() int64 { return c.table.size }

// Index implements Sector.
func (c *Combinations) Index(x uint64) int64 {
	if x&^c.mask != 0 || bitops.Popcount(x) != c.table.k {
		return InvalidIndex
	}
	return c.table.Index(x)
}

// Nth implements Sector.
func (c *Combinations) Nth(i int64) uint64 { return c.table.NthPattern(i) }

// Range implements Sector.
func (c *Combinations) Range(start, end int64) iter.Seq2[int64, uint64] {
	return func(yield func(int64, uint64) bool) {
		start, end = clampRange(start, end, c.table.size)
		if start >= end {
			return
		}
		x := c.table.NthPattern(start)
		for i := start; i < end; i++ {
			if !yield(i, x) {
				return
			}
			if i+1 < end {
				x = bitops.NextPattern(x)
			}
		}
	}
}

// All implements Sector.
func (c *Combinations) All() iter.Seq2[int64, uint64] {
	return c.Range(0, c.table.size)
}

// Subsets is the sector of all 2^n words of n bits.
type Subsets struct {
	n int
}

// NewSubsets creates the sector of all n-bit words, n in [0, 63].
func NewSubsets(n int) (*Subsets, error) {
	if n < 0 || n > 63 {
		return nil, fmt.Errorf("subsets: n=%d outside [0, 63]: %w", n, errs.ErrInvalidArgument)
	}
	return &Subsets{n: n}, nil
}

// NSites implements Sector.
func (s *Subsets) NSites() int { return s.n }

// Size implements Sector.
func (s *Subsets) Size() int64 { return int64(1) << uint(s.n) }

// Index implements Sector.
func (s *Subsets) Index(x uint64) int64 {
	if x>>uint(s.n) != 0 {
		return InvalidIndex
	}
	return int64(x)
}

// Nth implements Sector.
func (s *Subsets) Nth(i int64) uint64 { return uint64(i) }

// Range implements Sector.
func (s *Subsets) Range(start, end int64) iter.Seq2[int64, uint64] {
	return func(yield func(int64, uint64) bool) {
		start, end = clampRange(start, end, s.Size())
		for i := start; i < end; i++ {
			if !yield(i, uint64(i)) {
				return
			}
		}
	}
}

// All implements Sector.
func (s *Subsets) All() iter.Seq2[int64, uint64] {
	return s.Range(0, s.Size())
}

func clampRange(start, end, size int64) (int64, int64) {
	return max(start, 0), min(end, size)
}
