package diaggo_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/diaggo"
	"github.com/hupe1980/diaggo/basis"
	"github.com/hupe1980/diaggo/blobstore"
	"github.com/hupe1980/diaggo/operator"
	"github.com/hupe1980/diaggo/snapshot"
	"github.com/hupe1980/diaggo/symmetry"
)

func ring(n int) *operator.OpSum {
	ops := operator.NewOpSum()
	for i := range n {
		ops.Add(operator.NewOp("Heisenberg", operator.Named("J"), i, (i+1)%n))
	}
	return ops.Set("J", operator.Real(1))
}

// Example_dimer diagonalizes a two-site Heisenberg model.
func Example_dimer() {
	b, err := basis.NewSpinhalf(2, basis.Unconserved)
	if err != nil {
		log.Fatal(err)
	}
	ops := operator.NewOpSum(operator.NewOp("Heisenberg", operator.Real(1), 0, 1))

	vals, err := diaggo.EigvalsSym(context.Background(), ops, b)
	if err != nil {
		log.Fatal(err)
	}
	for _, e := range vals {
		fmt.Printf("%.2f\n", e)
	}
	// Output:
	// -0.75
	// 0.25
	// 0.25
	// 0.25
}

// Example_momentum computes the ground state of a ring in the zero
// momentum sector.
func Example_momentum() {
	const n = 4
	b, err := basis.NewSpinhalfSymmetric(n, n/2, symmetry.CyclicGroup(n), symmetry.MomentumRepresentation(n, 0))
	if err != nil {
		log.Fatal(err)
	}

	res, err := diaggo.EigvalsLanczos(context.Background(), ring(n), b, 1)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("size=%d E0=%.6f\n", b.Size(), res.Eigenvalues[0])
	// Output: size=2 E0=-2.000000
}

// Example_snapshot stores a Lanczos result and reads it back.
func Example_snapshot() {
	ctx := context.Background()
	b, err := basis.NewSpinhalf(4, 2)
	if err != nil {
		log.Fatal(err)
	}
	res, err := diaggo.EigvalsLanczos(ctx, ring(4), b, 1)
	if err != nil {
		log.Fatal(err)
	}

	store := blobstore.NewMemoryStore()
	if err := diaggo.SaveSnapshot(ctx, store, "ring.snap", b, res, false); err != nil {
		log.Fatal(err)
	}
	rec, err := snapshot.Load(ctx, store, "ring.snap")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s nsites=%d nup=%d E0=%.6f\n", rec.Basis.Model, rec.Basis.NSites, rec.Basis.NUp, rec.Eigenvalues[0])
	// Output: Spinhalf nsites=4 nup=2 E0=-2.000000
}
