//go:build amd64 && !noasm

package bitops

import "golang.org/x/sys/cpu"

//go:noescape
func pextAsm(x, mask uint64) uint64

//go:noescape
func pdepAsm(x, mask uint64) uint64

var (
	bmi2Extract = pextAsm
	bmi2Deposit = pdepAsm
)

func init() {
	hasBMI2 = cpu.X86.HasBMI2
	hasPOPCNT = cpu.X86.HasPOPCNT
	initCapabilities()
}
