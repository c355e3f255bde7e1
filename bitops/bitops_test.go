package bitops

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopcountAndBits(t *testing.T) {
	assert.Equal(t, 0, Popcount(uint64(0)))
	assert.Equal(t, 3, Popcount(uint16(0b1011)))
	assert.Equal(t, 64, Popcount(^uint64(0)))

	assert.Equal(t, uint32(1), Gbit(uint32(0b100), 2))
	assert.Equal(t, uint32(0), Gbit(uint32(0b100), 1))
	assert.Equal(t, uint8(0b101), Flip(uint8(0b001), 2))
}

func TestMasks(t *testing.T) {
	assert.Equal(t, uint64(0), LowMask(0))
	assert.Equal(t, uint64(0b111), LowMask(3))
	assert.Equal(t, ^uint64(0), LowMask(64))

	assert.Equal(t, uint64(0b0110), BetweenMask(0, 3))
	assert.Equal(t, uint64(0b0110), BetweenMask(3, 0))
	assert.Equal(t, uint64(0), BetweenMask(2, 3))
	assert.Equal(t, uint64(0), BetweenMask(4, 4))

	assert.Equal(t, 2, PopcntBetween(0b11111, 1, 4))
	assert.Equal(t, 2, PopcntBelow(0b1011, 3))
}

func TestNextPattern(t *testing.T) {
	// all 4-bit words with two bits set, in increasing order
	want := []uint8{0b0011, 0b0101, 0b0110, 0b1001, 0b1010, 0b1100}
	v := want[0]
	for i := 1; i < len(want); i++ {
		v = NextPattern(v)
		assert.Equal(t, want[i], v)
	}
}

func TestNextPattern_StrictlyIncreasing(t *testing.T) {
	v := uint64(0b111)
	count := 1
	for {
		next := NextPattern(v)
		if next >= 1<<10 {
			break
		}
		require.Greater(t, next, v)
		require.Equal(t, 3, Popcount(next))
		v = next
		count++
	}
	assert.Equal(t, 120, count) // C(10,3)
}

func TestExtractDeposit(t *testing.T) {
	assert.Equal(t, uint64(0b101), extractGeneric(0b1_0001, 0b1_0011))
	assert.Equal(t, uint64(0b1_0001), depositGeneric(0b101, 0b1_0011))

	rng := rand.New(rand.NewPCG(1, 2))
	for range 1000 {
		x := rng.Uint64()
		mask := rng.Uint64()
		ext := Extract(x, mask)
		assert.Equal(t, extractGeneric(x, mask), ext)
		assert.Equal(t, Popcount(x&mask), Popcount(ext))
		assert.Equal(t, x&mask, Deposit(ext, mask))
		assert.Equal(t, depositGeneric(ext, mask), Deposit(ext, mask))
	}
}

func TestKernelSelection(t *testing.T) {
	k, ok := ParseKernel(" BMI2 ")
	require.True(t, ok)
	assert.Equal(t, BMI2, k)
	_, ok = ParseKernel("avx9000")
	assert.False(t, ok)

	if HasBMI2() && !IsOverridden() {
		assert.Equal(t, BMI2, ActiveKernel())
	}
	assert.NotEqual(t, "unknown", ActiveKernel().String())
}
