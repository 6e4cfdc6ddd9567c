package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeOne(t *testing.T, src string, pc uint32) uint32 {
	t.Helper()
	exprs, err := ParseAll([]byte(".text\n" + src + "\n"))
	require.NoError(t, err)
	require.Len(t, exprs, 2)
	proc, err := Encode(exprs[1], pc)
	require.NoError(t, err)
	require.True(t, proc.Resolved)
	return proc.Word
}

func TestEncodeRType(t *testing.T) {
	word := encodeOne(t, "add $t2, $t0, $t1", 0x400000)
	assert.Equal(t, uint32(0), word>>26)
	assert.Equal(t, uint8(8), uint8(word>>21&0x1f))
	assert.Equal(t, uint8(9), uint8(word>>16&0x1f))
	assert.Equal(t, uint8(10), uint8(word>>11&0x1f))
	assert.Equal(t, uint8(0x20), uint8(word&0x3f))
}

func TestEncodeIType(t *testing.T) {
	word := encodeOne(t, "addi $t0, $t1, -1", 0x400000)
	assert.Equal(t, uint8(0x08), uint8(word>>26&0x3f))
	assert.Equal(t, uint16(0xffff), uint16(word&0xffff))
}

func TestEncodeJumpWithLiteralAddress(t *testing.T) {
	word := encodeOne(t, "j 0x00400010", 0x400000)
	assert.Equal(t, uint8(0x02), uint8(word>>26&0x3f))
	assert.Equal(t, uint32(0x00400010>>2), word&0x03ffffff)
}

func TestEncodeBranchOffsetIsRelativeToNextPC(t *testing.T) {
	// target 3 words ahead of pc -> raw offset (diff/4 - 1) == 2
	word := encodeOne(t, "beq $t0, $t1, 0x40000c", 0x400000)
	imm := int16(word & 0xffff)
	assert.Equal(t, int16(2), imm)
}

func TestEncodeUnknownOperatorErrors(t *testing.T) {
	exprs, err := ParseAll([]byte(".text\nfrobnicate $t0\n"))
	require.NoError(t, err)
	_, err = Encode(exprs[1], 0x400000)
	require.Error(t, err)
	ae, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, UnknownOperator, ae.Kind)
}

func TestEncodePseudoInstructionRejected(t *testing.T) {
	exprs, err := ParseAll([]byte(".text\nli $t0, 5\n"))
	require.NoError(t, err)
	_, err = Encode(exprs[1], 0x400000)
	require.Error(t, err)
}

func TestJumpIndexRejectsCrossRegionTarget(t *testing.T) {
	_, err := jumpIndex(0x00400000, 0x20000000, zeroSpan)
	require.Error(t, err)
	ae, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, JumpTooLarge, ae.Kind)
}

func TestBranchOffsetRejectsUnaligned(t *testing.T) {
	_, err := branchOffset(0x00400000, 0x00400001, zeroSpan)
	require.Error(t, err)
}
