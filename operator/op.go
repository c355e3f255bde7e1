package operator

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/hupe1980/diaggo/internal/errs"
)

// Matrix is a dense complex matrix in row-major order acting on the local
// spin-1/2 states of an operator's sites. Local state index bit j is the
// state of Sites[j] (1 = up).
type Matrix struct {
	Rows, Cols int
	Data       []complex128
}

// NewMatrix builds a rows x cols matrix from row-major data.
func NewMatrix(rows, cols int, data []complex128) (*Matrix, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("operator: %d entries for a %dx%d matrix: %w", len(data), rows, cols, errs.ErrInvalidArgument)
	}
	return &Matrix{Rows: rows, Cols: cols, Data: slices.Clone(data)}, nil
}

// RealMatrix builds a matrix from real rows.
func RealMatrix(rows [][]float64) *Matrix {
	m := &Matrix{Rows: len(rows)}
	if len(rows) > 0 {
		m.Cols = len(rows[0])
	}
	m.Data = make([]complex128, 0, m.Rows*m.Cols)
	for _, r := range rows {
		for _, v := range r {
			m.Data = append(m.Data, complex(v, 0))
		}
	}
	return m
}

// At returns entry (i, j).
func (m *Matrix) At(i, j int) complex128 { return m.Data[i*m.Cols+j] }

// Adjoint returns the conjugate transpose.
func (m *Matrix) Adjoint() *Matrix {
	a := &Matrix{Rows: m.Cols, Cols: m.Rows, Data: make([]complex128, len(m.Data))}
	for i := range m.Rows {
		for j := range m.Cols {
			v := m.At(i, j)
			a.Data[j*a.Cols+i] = complex(real(v), -imag(v))
		}
	}
	return a
}

// Coupling is the coefficient of an operator: a scalar, a matrix, or a name
// resolved against the couplings of an OpSum at compile time.
type Coupling struct {
	name   string
	value  complex128
	matrix *Matrix
}

// Scalar returns a complex scalar coupling.
func Scalar(v complex128) Coupling { return Coupling{value: v} }

// Real returns a real scalar coupling.
func Real(v float64) Coupling { return Coupling{value: complex(v, 0)} }

// Named returns a coupling resolved by name when the OpSum is compiled.
func Named(name string) Coupling { return Coupling{name: name} }

// MatrixCoupling returns a matrix coupling.
func MatrixCoupling(m *Matrix) Coupling { return Coupling{matrix: m} }

// Name returns the name of a late-bound coupling, or "".
func (c Coupling) Name() string { return c.name }

// IsNamed reports whether the coupling is late-bound.
func (c Coupling) IsNamed() bool { return c.name != "" }

// IsMatrix reports whether the coupling is a matrix.
func (c Coupling) IsMatrix() bool { return c.matrix != nil }

// Value returns the scalar value.
func (c Coupling) Value() complex128 { return c.value }

// Matrix returns the matrix value, or nil.
func (c Coupling) Matrix() *Matrix { return c.matrix }

func (c Coupling) String() string {
	switch {
	case c.name != "":
		return c.name
	case c.matrix != nil:
		return fmt.Sprintf("matrix(%dx%d)", c.matrix.Rows, c.matrix.Cols)
	case imag(c.value) == 0:
		return fmt.Sprint(real(c.value))
	default:
		return fmt.Sprint(c.value)
	}
}

// Op is a single coupling of a given type acting on sites.
type Op struct {
	Type     string
	Coupling Coupling
	Sites    []int
}

// NewOp creates an operator.
func NewOp(typ string, c Coupling, sites ...int) Op {
	return Op{Type: typ, Coupling: c, Sites: slices.Clone(sites)}
}

func (o Op) String() string {
	return fmt.Sprintf("%s%v[%s]", o.Type, o.Sites, o.Coupling)
}

// OpSum is an ordered list of operators plus named couplings.
type OpSum struct {
	ops       []Op
	couplings map[string]Coupling
}

// NewOpSum creates an OpSum holding ops.
func NewOpSum(ops ...Op) *OpSum {
	return &OpSum{ops: slices.Clone(ops), couplings: map[string]Coupling{}}
}

// Add appends an operator and returns s for chaining.
func (s *OpSum) Add(op Op) *OpSum {
	s.ops = append(s.ops, op)
	return s
}

// Set binds a named coupling.
func (s *OpSum) Set(name string, c Coupling) *OpSum {
	if s.couplings == nil {
		s.couplings = map[string]Coupling{}
	}
	s.couplings[name] = c
	return s
}

// Ops returns the operators in order.
func (s *OpSum) Ops() []Op { return slices.Clone(s.ops) }

// Len returns the number of operators.
func (s *OpSum) Len() int { return len(s.ops) }

// Coupling returns the coupling bound to name.
func (s *OpSum) Coupling(name string) (Coupling, bool) {
	c, ok := s.couplings[name]
	return c, ok
}

// CouplingNames returns the bound coupling names in sorted order.
func (s *OpSum) CouplingNames() []string {
	return slices.Sorted(maps.Keys(s.couplings))
}

func (s *OpSum) String() string {
	parts := make([]string, len(s.ops))
	for i, o := range s.ops {
		parts[i] = o.String()
	}
	return strings.Join(parts, " + ")
}
