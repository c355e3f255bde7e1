// Package basis implements the Hilbert-space bases of spin-1/2, t-J and
// electron models.
//
// Basis is a sealed sum type over six variants:
//
//	*Spinhalf           all or fixed-Sz spin configurations
//	*SpinhalfSymmetric  orbit representatives under a permutation group
//	*TJ, *Electron      products of up and down configurations
//	*TJSymmetric, *ElectronSymmetric
//
// Bases are immutable after construction and safe for concurrent use.
// Configurations are bit words: bit i describes site i. Two-species states
// keep up and down fermions in separate words; for fermionic signs all up
// operators are ordered before all down operators, each species by site.
package basis
