// Package bitops provides the bit-level primitives used by every basis:
// popcounts, masks, the "snoob" successor for fixed-popcount enumeration and
// bit extract/deposit (PEXT/PDEP).
//
// # Kernel Selection
//
// Extract and Deposit use the BMI2 instructions on amd64 when the CPU
// supports them and a portable loop otherwise. The choice is made once at
// package init and can be forced with the DIAGGO_BITOPS environment variable:
//
//	DIAGGO_BITOPS=generic go test ./...
//
// An unavailable override falls back to auto-detection.
package bitops
