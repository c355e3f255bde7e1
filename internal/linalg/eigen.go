// Package linalg holds the small dense eigensolvers used for Lanczos
// tridiagonal matrices and for reference diagonalization of full matrices.
package linalg

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/hupe1980/diaggo/internal/errs"
)

const (
	maxQLIterations = 60
	maxJacobiSweeps = 100
)

// SymTridiagonal returns the eigenvalues of the symmetric tridiagonal matrix
// with diagonal d and off-diagonal e in ascending order. With vectors set it
// also returns the eigenvectors: vecs[k] belongs to vals[k].
//
// len(e) must be len(d)-1 (or 0 for an empty matrix). The implicit QL
// algorithm with Wilkinson-style shifts is used.
func SymTridiagonal(d, e []float64, vectors bool) (vals []float64, vecs [][]float64, err error) {
	n := len(d)
	if n == 0 {
		return nil, nil, nil
	}
	if len(e) != n-1 {
		return nil, nil, fmt.Errorf("linalg: %d off-diagonal entries for dimension %d: %w", len(e), n, errs.ErrInvalidArgument)
	}
	dd := slices.Clone(d)
	ee := make([]float64, n)
	copy(ee, e)

	var z [][]float64
	if vectors {
		z = make([][]float64, n)
		for i := range z {
			z[i] = make([]float64, n)
			z[i][i] = 1
		}
	}

	for l := range n {
		for iter := 0; ; iter++ {
			m := l
			for ; m < n-1; m++ {
				s := math.Abs(dd[m]) + math.Abs(dd[m+1])
				if math.Abs(ee[m]) <= 0x1p-52*s {
					break
				}
			}
			if m == l {
				break
			}
			if iter == maxQLIterations {
				return nil, nil, fmt.Errorf("linalg: tridiagonal QL: no convergence after %d iterations: %w", iter, errs.ErrEigenFailed)
			}
			g := (dd[l+1] - dd[l]) / (2 * ee[l])
			r := math.Hypot(g, 1)
			g = dd[m] - dd[l] + ee[l]/(g+math.Copysign(r, g))
			s, c, p := 1.0, 1.0, 0.0
			underflow := false
			for i := m - 1; i >= l; i-- {
				f := s * ee[i]
				b := c * ee[i]
				r = math.Hypot(f, g)
				ee[i+1] = r
				if r == 0 {
					dd[i+1] -= p
					ee[m] = 0
					underflow = true
					break
				}
				s, c = f/r, g/r
				g = dd[i+1] - p
				r = (dd[i]-g)*s + 2*c*b
				p = s * r
				dd[i+1] = g + p
				g = c*r - b
				if vectors {
					for k := range n {
						f = z[k][i+1]
						z[k][i+1] = s*z[k][i] + c*f
						z[k][i] = c*z[k][i] - s*f
					}
				}
			}
			if underflow {
				continue
			}
			dd[l] -= p
			ee[l] = g
			ee[m] = 0
		}
	}

	order := ascending(dd)
	vals = make([]float64, n)
	for k, o := range order {
		vals[k] = dd[o]
	}
	if vectors {
		vecs = make([][]float64, n)
		for k, o := range order {
			v := make([]float64, n)
			for i := range n {
				v[i] = z[i][o]
			}
			vecs[k] = v
		}
	}
	return vals, vecs, nil
}

// SymEigen diagonalizes the real symmetric n x n matrix a (column-major,
// only read) with cyclic Jacobi rotations. Eigenvalues are ascending; with
// vectors set, vecs[k] belongs to vals[k].
func SymEigen(a []float64, n int, vectors bool) (vals []float64, vecs [][]float64, err error) {
	if len(a) != n*n {
		return nil, nil, fmt.Errorf("linalg: %d entries for a %dx%d matrix: %w", len(a), n, n, errs.ErrInvalidArgument)
	}
	if n == 0 {
		return nil, nil, nil
	}
	w := slices.Clone(a)
	at := func(i, j int) *float64 { return &w[j*n+i] }

	var v []float64
	if vectors {
		v = make([]float64, n*n)
		for i := range n {
			v[i*n+i] = 1
		}
	}

	converged := false
	for sweep := range maxJacobiSweeps {
		var off float64
		for j := range n {
			for i := range j {
				off += *at(i, j) * *at(i, j)
			}
		}
		if off == 0 {
			converged = true
			break
		}
		for p := range n {
			for q := p + 1; q < n; q++ {
				apq := *at(p, q)
				if apq == 0 {
					continue
				}
				app, aqq := *at(p, p), *at(q, q)
				// negligible against both diagonal entries
				if g := 100 * math.Abs(apq); sweep > 3 && math.Abs(app)+g == math.Abs(app) && math.Abs(aqq)+g == math.Abs(aqq) {
					*at(p, q), *at(q, p) = 0, 0
					continue
				}
				theta := (aqq - app) / (2 * apq)
				t := math.Copysign(1/(math.Abs(theta)+math.Sqrt(theta*theta+1)), theta)
				if math.IsInf(theta, 0) {
					t = 0
				}
				c := 1 / math.Sqrt(t*t+1)
				s := t * c

				*at(p, p) = app - t*apq
				*at(q, q) = aqq + t*apq
				*at(p, q), *at(q, p) = 0, 0
				for k := range n {
					if k == p || k == q {
						continue
					}
					akp, akq := *at(k, p), *at(k, q)
					nkp, nkq := c*akp-s*akq, s*akp+c*akq
					*at(k, p), *at(p, k) = nkp, nkp
					*at(k, q), *at(q, k) = nkq, nkq
				}
				if vectors {
					for k := range n {
						vkp, vkq := v[p*n+k], v[q*n+k]
						v[p*n+k] = c*vkp - s*vkq
						v[q*n+k] = s*vkp + c*vkq
					}
				}
			}
		}
	}
	if !converged {
		return nil, nil, fmt.Errorf("linalg: jacobi: no convergence after %d sweeps: %w", maxJacobiSweeps, errs.ErrEigenFailed)
	}

	diag := make([]float64, n)
	for i := range n {
		diag[i] = *at(i, i)
	}
	order := ascending(diag)
	vals = make([]float64, n)
	for k, o := range order {
		vals[k] = diag[o]
	}
	if vectors {
		vecs = make([][]float64, n)
		for k, o := range order {
			vecs[k] = slices.Clone(v[o*n : (o+1)*n])
		}
	}
	return vals, vecs, nil
}

// HermitianEigenvalues returns the ascending eigenvalues of the Hermitian
// n x n matrix h (column-major). H = A + iB is embedded as the real
// symmetric matrix [[A, -B], [B, A]], whose spectrum is that of H with
// every eigenvalue doubled.
func HermitianEigenvalues(h []complex128, n int) ([]float64, error) {
	if len(h) != n*n {
		return nil, fmt.Errorf("linalg: %d entries for a %dx%d matrix: %w", len(h), n, n, errs.ErrInvalidArgument)
	}
	m := 2 * n
	emb := make([]float64, m*m)
	for j := range n {
		for i := range n {
			x := h[j*n+i]
			re, im := real(x), imag(x)
			emb[j*m+i] = re
			emb[(j+n)*m+i+n] = re
			emb[(j+n)*m+i] = -im
			emb[j*m+i+n] = im
		}
	}
	all, _, err := SymEigen(emb, m, false)
	if err != nil {
		return nil, err
	}
	vals := make([]float64, n)
	for k := range n {
		vals[k] = (all[2*k] + all[2*k+1]) / 2
	}
	return vals, nil
}

func ascending(x []float64) []int {
	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return x[order[a]] < x[order[b]] })
	return order
}
