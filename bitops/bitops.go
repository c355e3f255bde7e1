package bitops

import "math/bits"

// Word is the set of unsigned integer types used for bit-packed
// configurations.
type Word interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Popcount returns the number of set bits of x.
func Popcount[W Word](x W) int {
	return bits.OnesCount64(uint64(x))
}

// Gbit returns bit i of x (0 or 1).
func Gbit[W Word](x W, i int) W {
	return (x >> uint(i)) & 1
}

// Flip toggles bit i of x.
func Flip[W Word](x W, i int) W {
	return x ^ (W(1) << uint(i))
}

// LowMask returns a mask with the lowest n bits set. n may be 0..64.
func LowMask(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(n)) - 1
}

// BetweenMask returns the mask of bits strictly between positions i and j.
// The order of i and j does not matter.
func BetweenMask(i, j int) uint64 {
	if i > j {
		i, j = j, i
	}
	if j-i <= 1 {
		return 0
	}
	return LowMask(j) &^ LowMask(i+1)
}

// PopcntBetween counts the set bits of x strictly between positions i and j.
// This is the parity source for fermionic hopping signs.
func PopcntBetween(x uint64, i, j int) int {
	return bits.OnesCount64(x & BetweenMask(i, j))
}

// PopcntBelow counts the set bits of x strictly below position i.
func PopcntBelow(x uint64, i int) int {
	return bits.OnesCount64(x & LowMask(i))
}

// NextPattern returns the next larger integer with the same number of set
// bits ("snoob"). v must be non-zero. The caller bounds the enumeration; on
// overflow of the word width the result wraps.
func NextPattern[W Word](v W) W {
	t := v | (v - 1)
	return (t + 1) | (((^t & -^t) - 1) >> uint(bits.TrailingZeros64(uint64(v))+1))
}

// Extract gathers the bits of x selected by mask into the low bits of the
// result (PEXT).
func Extract(x, mask uint64) uint64 {
	return extractFn(x, mask)
}

// Deposit scatters the low bits of x to the positions selected by mask
// (PDEP).
func Deposit(x, mask uint64) uint64 {
	return depositFn(x, mask)
}

func extractGeneric(x, mask uint64) uint64 {
	var res uint64
	var bb uint64 = 1
	for m := mask; m != 0; m &= m - 1 {
		if x&m&-m != 0 {
			res |= bb
		}
		bb <<= 1
	}
	return res
}

func depositGeneric(x, mask uint64) uint64 {
	var res uint64
	var bb uint64 = 1
	for m := mask; m != 0; m &= m - 1 {
		if x&bb != 0 {
			res |= m & -m
		}
		bb <<= 1
	}
	return res
}
