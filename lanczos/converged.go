package lanczos

import "math"

// ConvergedEigenvalues returns a predicate that accepts the projection once
// its k lowest eigenvalues each changed by at most precision (relative to
// their magnitude, absolute below 1) since the previous step.
//
// The predicate remembers the previous step, so use a fresh one per run.
func ConvergedEigenvalues(k int, precision float64) ConvergedFunc {
	var prev []float64
	return func(t Tmatrix) bool {
		vals, err := t.Eigenvalues()
		if err != nil || len(vals) < k {
			prev = vals
			return false
		}
		cur := vals[:k]
		ok := len(prev) >= k
		if ok {
			for i, v := range cur {
				if math.Abs(v-prev[i]) > precision*max(1, math.Abs(v)) {
					ok = false
					break
				}
			}
		}
		prev = append(prev[:0], cur...)
		return ok
	}
}

// ConvergedAfter returns a predicate that accepts the projection after n
// steps.
func ConvergedAfter(n int) ConvergedFunc {
	return func(t Tmatrix) bool { return t.Size() >= n }
}

// ConvergedResidual returns a predicate that accepts the projection once
// the Ritz pairs of its k lowest eigenvalues have residual norms
// beta_n |s[n-1]| of at most tol (relative to the eigenvalue magnitude,
// absolute below 1). Eigenvalue errors shrink with the square of the
// residual, so ConvergedEigenvalues accepts long before Ritz vectors are
// accurate; use this predicate when eigenvectors are wanted.
func ConvergedResidual(k int, tol float64) ConvergedFunc {
	return func(t Tmatrix) bool {
		n := t.Size()
		if n < k || len(t.Betas) < n {
			return false
		}
		vals, vecs, err := t.Eigen()
		if err != nil {
			return false
		}
		beta := t.Betas[n-1]
		for i := range k {
			if beta*math.Abs(vecs[i][n-1]) > tol*max(1, math.Abs(vals[i])) {
				return false
			}
		}
		return true
	}
}
