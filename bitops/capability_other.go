//go:build !amd64 || noasm

package bitops

import "golang.org/x/sys/cpu"

var (
	bmi2Extract func(x, mask uint64) uint64
	bmi2Deposit func(x, mask uint64) uint64
)

func init() {
	hasPOPCNT = cpu.X86.HasPOPCNT || cpu.ARM64.HasASIMD
	initCapabilities()
}
