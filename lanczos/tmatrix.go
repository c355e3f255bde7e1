package lanczos

import (
	"slices"

	"github.com/hupe1980/diaggo/internal/linalg"
)

// Tmatrix is the tridiagonal projection built by a Lanczos run. Alphas is
// the diagonal. Betas[i] is the norm of the residual after step i, so the
// off-diagonal of the projection is Betas[:len(Betas)-1].
type Tmatrix struct {
	Alphas []float64 `json:"alphas"`
	Betas  []float64 `json:"betas"`
}

// Size returns the dimension of the projection.
func (t Tmatrix) Size() int { return len(t.Alphas) }

func (t Tmatrix) offDiagonal() []float64 {
	if len(t.Alphas) == 0 {
		return nil
	}
	return t.Betas[:len(t.Alphas)-1]
}

// Eigenvalues returns the eigenvalues of the projection in ascending order.
func (t Tmatrix) Eigenvalues() ([]float64, error) {
	vals, _, err := linalg.SymTridiagonal(t.Alphas, t.offDiagonal(), false)
	return vals, err
}

// Eigen returns the eigenvalues in ascending order and the eigenvectors of
// the projection; vecs[k] belongs to vals[k].
func (t Tmatrix) Eigen() (vals []float64, vecs [][]float64, err error) {
	return linalg.SymTridiagonal(t.Alphas, t.offDiagonal(), true)
}

// Clone returns a deep copy.
func (t Tmatrix) Clone() Tmatrix {
	return Tmatrix{Alphas: slices.Clone(t.Alphas), Betas: slices.Clone(t.Betas)}
}
