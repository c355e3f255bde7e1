package bitops

import (
	"os"
	"strings"
)

// Kernel identifies the implementation behind Extract and Deposit.
type Kernel uint8

const (
	// Generic is the portable loop implementation.
	Generic Kernel = iota
	// BMI2 uses the x86-64 PEXT/PDEP instructions.
	BMI2
)

// String returns the string representation of a Kernel.
func (k Kernel) String() string {
	switch k {
	case Generic:
		return "generic"
	case BMI2:
		return "bmi2"
	default:
		return "unknown"
	}
}

// ParseKernel parses a string into a Kernel value.
func ParseKernel(s string) (Kernel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "generic":
		return Generic, true
	case "bmi2":
		return BMI2, true
	default:
		return Generic, false
	}
}

// Package-level state, set once from platform init.
var (
	activeKernel Kernel
	hasOverride  bool

	// CPU feature flags (set by platform-specific init)
	hasBMI2   bool
	hasPOPCNT bool

	extractFn = extractGeneric
	depositFn = depositGeneric
)

// initCapabilities is called from platform-specific init functions after
// CPU features are detected.
func initCapabilities() {
	if override := os.Getenv("DIAGGO_BITOPS"); override != "" {
		if k, ok := ParseKernel(override); ok {
			hasOverride = true
			if isKernelAvailable(k) {
				useKernel(k)
				return
			}
		}
	}

	if hasBMI2 {
		useKernel(BMI2)
		return
	}
	useKernel(Generic)
}

func isKernelAvailable(k Kernel) bool {
	switch k {
	case Generic:
		return true
	case BMI2:
		return hasBMI2 && bmi2Extract != nil
	default:
		return false
	}
}

func useKernel(k Kernel) {
	activeKernel = k
	switch k {
	case BMI2:
		if bmi2Extract != nil && bmi2Deposit != nil {
			extractFn = bmi2Extract
			depositFn = bmi2Deposit
			return
		}
		activeKernel = Generic
		extractFn = extractGeneric
		depositFn = depositGeneric
	default:
		extractFn = extractGeneric
		depositFn = depositGeneric
	}
}

// ActiveKernel returns the kernel currently backing Extract and Deposit.
func ActiveKernel() Kernel {
	return activeKernel
}

// IsOverridden returns true if DIAGGO_BITOPS was set to a valid kernel.
func IsOverridden() bool {
	return hasOverride
}

// HasBMI2 returns true if the CPU supports PEXT/PDEP.
func HasBMI2() bool {
	return hasBMI2
}

// HasPOPCNT returns true if the CPU has a hardware popcount instruction.
func HasPOPCNT() bool {
	return hasPOPCNT
}
