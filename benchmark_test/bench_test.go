package benchmark_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/diaggo"
	"github.com/hupe1980/diaggo/basis"
	"github.com/hupe1980/diaggo/operator"
	"github.com/hupe1980/diaggo/symmetry"
	"github.com/hupe1980/diaggo/testutil"
)

func heisenbergRing(n int) *operator.OpSum {
	ops := operator.NewOpSum()
	for i := range n {
		ops.Add(operator.NewOp("Heisenberg", operator.Named("J1"), i, (i+1)%n))
		ops.Add(operator.NewOp("Heisenberg", operator.Named("J2"), i, (i+2)%n))
	}
	ops.Set("J1", operator.Real(1))
	ops.Set("J2", operator.Real(0.3))
	return ops
}

func BenchmarkBasis_Spinhalf(b *testing.B) {
	for _, n := range []int{16, 20, 24} {
		b.Run(fmt.Sprintf("N=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := basis.NewSpinhalf(n, n/2); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkBasis_SpinhalfSymmetric(b *testing.B) {
	for _, n := range []int{16, 20} {
		g := symmetry.CyclicGroup(n)
		irrep := symmetry.MomentumRepresentation(n, 0)
		b.Run(fmt.Sprintf("N=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := basis.NewSpinhalfSymmetric(n, n/2, g, irrep); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkBasis_Electron(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		if _, err := basis.NewElectron(10, 5, 5); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkApply(b *testing.B) {
	const n = 20
	ctx := context.Background()
	ops := heisenbergRing(n)
	bs, err := basis.NewSpinhalf(n, n/2)
	if err != nil {
		b.Fatal(err)
	}
	rng := testutil.NewRNG(1)
	vin := rng.Vector(bs.Size())
	vout := make([]float64, bs.Size())

	for _, workers := range []int{1, 4} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			b.SetBytes(bs.Size() * 8)
			for b.Loop() {
				if err := diaggo.ApplyReal(ctx, ops, bs, vin, bs, vout, diaggo.WithWorkers(workers)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkApply_Symmetric(b *testing.B) {
	const n = 20
	ctx := context.Background()
	ops := heisenbergRing(n)
	bs, err := basis.NewSpinhalfSymmetric(n, n/2, symmetry.CyclicGroup(n), symmetry.MomentumRepresentation(n, 0))
	if err != nil {
		b.Fatal(err)
	}
	rng := testutil.NewRNG(1)
	vin := rng.Vector(bs.Size())
	vout := make([]float64, bs.Size())

	for b.Loop() {
		if err := diaggo.ApplyReal(ctx, ops, bs, vin, bs, vout, diaggo.WithWorkers(4)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEigvalsLanczos(b *testing.B) {
	const n = 16
	ctx := context.Background()
	ops := heisenbergRing(n)
	bs, err := basis.NewSpinhalf(n, n/2)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	for b.Loop() {
		res, err := diaggo.EigvalsLanczos(ctx, ops, bs, 1, diaggo.WithWorkers(4))
		if err != nil {
			b.Fatal(err)
		}
		b.ReportMetric(float64(res.Iterations), "iterations")
	}
}
