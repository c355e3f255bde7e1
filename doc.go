// Package diaggo performs exact diagonalization of quantum many-body
// Hamiltonians on spin-1/2, t-J and Hubbard (electron) lattice models.
//
// Basis states are bit-packed configurations, optionally reduced to orbit
// representatives of a lattice symmetry group. Operators are declared as
// sums of typed couplings and applied to dense vectors or turned into
// dense and sparse matrices.
//
// # Quick Start
//
//	b, _ := basis.NewSpinhalf(8, 4)
//	ops := operator.NewOpSum()
//	for i := range 8 {
//	    ops.Add(operator.NewOp("Heisenberg", operator.Named("J"), i, (i+1)%8))
//	}
//	ops.Set("J", operator.Real(1))
//
//	res, _ := diaggo.EigvalsLanczos(ctx, ops, b, 1)
//	fmt.Println(res.Eigenvalues[0])
//
// # Symmetries
//
// A symmetric basis takes a permutation group and an irreducible
// representation; the operator must be invariant under the group:
//
//	g := symmetry.CyclicGroup(8)
//	b, _ := basis.NewSpinhalfSymmetric(8, 4, g, symmetry.MomentumRepresentation(8, 0))
//
// # Observability
//
// Logging goes through an explicit *Logger passed with WithLogger; there is
// no global verbosity. Metrics are reported to a MetricsCollector, see
// package metrics/prom for Prometheus.
//
// # Distributed runs
//
// Package distributed partitions spin-1/2 bases over the ranks of a
// comm.Communicator and runs Lanczos collectively.
package diaggo
