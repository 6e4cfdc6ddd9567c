package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterZeroIsAlwaysZero(t *testing.T) {
	r := &RegisterFile{}
	r.WriteGPR(0, 0xdeadbeef)
	assert.Equal(t, uint32(0), r.ReadGPR(0))
}

func TestRegisterGPRRoundTrip(t *testing.T) {
	r := &RegisterFile{}
	r.WriteGPR(8, 42)
	assert.Equal(t, uint32(42), r.ReadGPR(8))
}

func TestRegisterIndexWrapsMod32(t *testing.T) {
	r := &RegisterFile{}
	r.WriteGPR(40, 7) // 40 & 0x1f == 8
	assert.Equal(t, uint32(7), r.ReadGPR(8))
}

func TestFPUSinglePrecisionRoundTrip(t *testing.T) {
	r := &RegisterFile{}
	r.WriteF32(4, 3.5)
	assert.Equal(t, float32(3.5), r.ReadF32(4))
}

func TestFPUDoublePrecisionRequiresEvenIndex(t *testing.T) {
	r := &RegisterFile{}
	ok := r.WriteF64(3, 1.0)
	assert.False(t, ok)

	ok = r.WriteF64(4, 2.71828)
	assert.True(t, ok)
	v, ok := r.ReadF64(4)
	assert.True(t, ok)
	assert.InDelta(t, 2.71828, v, 0.00001)
}

func TestCP0RegisterRoundTrip(t *testing.T) {
	r := &RegisterFile{}
	assert.True(t, r.WriteCP0(CP0Cause, 13))
	v, ok := r.ReadCP0(CP0Cause)
	assert.True(t, ok)
	assert.Equal(t, uint32(13), v)

	_, ok = r.ReadCP0(99)
	assert.False(t, ok)
}

func TestFCCFlags(t *testing.T) {
	r := &RegisterFile{}
	r.WriteFCC(3, true)
	assert.True(t, r.ReadFCC(3))
	assert.False(t, r.ReadFCC(4))
}
