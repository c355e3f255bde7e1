package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/diaggo/basis"
	"github.com/hupe1980/diaggo/operator"
	"github.com/hupe1980/diaggo/symmetry"
)

// ModelConfig is the YAML description of a model: the basis and the
// Hamiltonian.
//
//	model: spinhalf
//	nsites: 8
//	nup: 4
//	symmetry:
//	  group: cyclic
//	  momentum: 0
//	couplings:
//	  J: 1.0
//	operators:
//	  - {type: Heisenberg, coupling: J, sites: [0, 1]}
type ModelConfig struct {
	Model  string `yaml:"model"`
	NSites int    `yaml:"nsites"`
	// NUp and NDn default to unconserved.
	NUp *int `yaml:"nup,omitempty"`
	NDn *int `yaml:"ndn,omitempty"`

	Symmetry *SymmetryConfig `yaml:"symmetry,omitempty"`

	Couplings map[string]CouplingValue `yaml:"couplings,omitempty"`
	Operators []OperatorConfig         `yaml:"operators"`
}

// SymmetryConfig selects a symmetry sector. Either Group is "cyclic" with
// a Momentum, or Permutations and Characters are given explicitly.
type SymmetryConfig struct {
	Group        string       `yaml:"group,omitempty"`
	Momentum     int          `yaml:"momentum,omitempty"`
	Permutations [][]int      `yaml:"permutations,omitempty"`
	Characters   [][2]float64 `yaml:"characters,omitempty"`
}

// CouplingValue is a real number or a [re, im] pair.
type CouplingValue complex128

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *CouplingValue) UnmarshalYAML(n *yaml.Node) error {
	var re float64
	if err := n.Decode(&re); err == nil {
		*c = CouplingValue(complex(re, 0))
		return nil
	}
	var pair [2]float64
	if err := n.Decode(&pair); err != nil {
		return fmt.Errorf("line %d: coupling must be a number or [re, im]", n.Line)
	}
	*c = CouplingValue(complex(pair[0], pair[1]))
	return nil
}

// OperatorConfig is one term of the Hamiltonian. Coupling names a coupling
// from the couplings table; otherwise Value is used.
type OperatorConfig struct {
	Type     string         `yaml:"type"`
	Coupling string         `yaml:"coupling,omitempty"`
	Value    *CouplingValue `yaml:"value,omitempty"`
	Sites    []int          `yaml:"sites"`
}

// LoadModel reads a model file.
func LoadModel(path string) (*ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseModel(data)
}

// ParseModel parses a model description.
func ParseModel(data []byte) (*ModelConfig, error) {
	var cfg ModelConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	if cfg.Model == "" {
		cfg.Model = basis.ModelSpinhalf.String()
	}
	if cfg.NSites <= 0 {
		return nil, fmt.Errorf("parse model: nsites must be positive, got %d", cfg.NSites)
	}
	return &cfg, nil
}

// Descriptor returns the basis descriptor of the model.
func (c *ModelConfig) Descriptor() (basis.Descriptor, error) {
	d := basis.Descriptor{
		Model:  c.Model,
		NSites: c.NSites,
		NUp:    basis.Unconserved,
		NDn:    basis.Unconserved,
	}
	if c.NUp != nil {
		d.NUp = *c.NUp
	}
	if c.NDn != nil {
		d.NDn = *c.NDn
	}
	s := c.Symmetry
	if s == nil {
		return d, nil
	}
	switch s.Group {
	case "cyclic", "translation":
		for _, p := range symmetry.CyclicGroup(c.NSites).Permutations() {
			d.Group = append(d.Group, p.Slice())
		}
		for _, ch := range symmetry.MomentumRepresentation(c.NSites, s.Momentum).Characters() {
			d.Characters = append(d.Characters, [2]float64{real(ch), imag(ch)})
		}
	case "":
		if len(s.Permutations) == 0 {
			return d, fmt.Errorf("symmetry: neither group nor permutations given")
		}
		d.Group = s.Permutations
		d.Characters = s.Characters
	default:
		return d, fmt.Errorf("symmetry: unknown group %q", s.Group)
	}
	return d, nil
}

// OpSum returns the Hamiltonian of the model.
func (c *ModelConfig) OpSum() (*operator.OpSum, error) {
	ops := operator.NewOpSum()
	for name, v := range c.Couplings {
		ops.Set(name, operator.Scalar(complex128(v)))
	}
	for i, o := range c.Operators {
		var cp operator.Coupling
		switch {
		case o.Coupling != "":
			cp = operator.Named(o.Coupling)
		case o.Value != nil:
			cp = operator.Scalar(complex128(*o.Value))
		default:
			return nil, fmt.Errorf("operator %d (%s): no coupling or value", i, o.Type)
		}
		ops.Add(operator.NewOp(o.Type, cp, o.Sites...))
	}
	return ops, nil
}

// Distributable reports whether the model can run on a distributed basis:
// spin-1/2 with fixed nup and no symmetry.
func (c *ModelConfig) Distributable() bool {
	m, err := basis.ParseModel(c.Model)
	return err == nil && m == basis.ModelSpinhalf && c.NUp != nil && c.Symmetry == nil
}
