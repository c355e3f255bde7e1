package combinatorics

// maxBinomialN bounds the precomputed Pascal triangle.
const maxBinomialN = 64

var binomials [maxBinomialN + 1][maxBinomialN + 1]int64

func init() {
	for n := 0; n <= maxBinomialN; n++ {
		binomials[n][0] = 1
		for k := 1; k <= n; k++ {
			binomials[n][k] = binomials[n-1][k-1] + binomials[n-1][k]
		}
	}
}

// Binomial returns n choose k, or 0 if k is out of [0, n] or n is out of
// [0, 64]. The largest entry, C(64, 32), fits in an int64.
func Binomial(n, k int) int64 {
	if n < 0 || n > maxBinomialN || k < 0 || k > n {
		return 0
	}
	return binomials[n][k]
}
