// Package operator turns declarative operator lists into compiled terms.
//
// An OpSum holds operators (type, sites, coupling) and named couplings.
// Compile resolves the names, expands composite types such as Heisenberg
// or Hop into primitive terms and validates arity and sites:
//
//	Heisenberg, SdotS  SzSz + Exchange
//	Ising              SzSz
//	Sx                 (S+ + S-)/2
//	Sy                 (-i S+ + i S-)/2
//	Hop                Hopup + Hopdn
//	Ntot               Nup + Ndn
//	tJSzSz             SzSz - NtotNtot/4
//
// Compiled terms can be analysed for reality, hermiticity, invariance under
// a permutation group and the quantum-number change they cause.
package operator
