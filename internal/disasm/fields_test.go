package disasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldExtractorsOnRTypeWord(t *testing.T) {
	// add $t2, $t0, $t1: opcode=0 rs=8 rt=9 rd=10 shamt=0 fn=0x20
	word := uint32(0)<<26 | uint32(8)<<21 | uint32(9)<<16 | uint32(10)<<11 | uint32(0)<<6 | uint32(0x20)
	assert.Equal(t, uint8(0), Opcode(word))
	assert.Equal(t, uint8(8), Rs(word))
	assert.Equal(t, uint8(9), Rt(word))
	assert.Equal(t, uint8(10), Rd(word))
	assert.Equal(t, uint8(0), Shamt(word))
	assert.Equal(t, uint8(0x20), Fn(word))
}

func TestSignExtendImm16(t *testing.T) {
	word := uint32(0xffff) // all-ones 16-bit immediate
	assert.Equal(t, int32(-1), SignExtendImm16(word))
	assert.Equal(t, uint16(0xffff), Imm16(word))
}

func TestIndex26(t *testing.T) {
	word := uint32(0x02)<<26 | uint32(0x0123456)
	assert.Equal(t, uint32(0x0123456), Index26(word))
}

func TestBranchCcAndCond(t *testing.T) {
	word := uint32(3)<<18 | uint32(1)<<16
	assert.Equal(t, uint8(3), BranchCc(word))
	assert.True(t, BranchCond(word))
}
