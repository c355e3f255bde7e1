// Package combinatorics provides O(1) rank/unrank of bit patterns.
//
// LinTable ranks the n-bit words with exactly k set bits by integer value
// using two lookup tables of 2^(n/2) entries each. Sector wraps the two
// enumerations a basis needs: Combinations (fixed particle number) and
// Subsets (no conserved quantity).
//
//	t, _ := combinatorics.NewLinTable(10, 4)
//	x := t.NthPattern(17)
//	t.Index(x) // 17
package combinatorics
