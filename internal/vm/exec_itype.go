package vm

import (
	"math"

	"mipsim/internal/asm"
	"mipsim/internal/disasm"
)

// branchTarget inverts the assembler's offset conversion: offset =
// floor((target-pc)/4) - 1, so target = pc + 4*(offset+1).
func branchTarget(pc uint32, word uint32) uint32 {
	off := disasm.SignExtendImm16(word)
	return pc + uint32(4*(off+1))
}

func jumpTarget(pc uint32, word uint32) uint32 {
	idx := disasm.Index26(word)
	return (pc+4)&0xf0000000 | (idx << 2)
}

func (it *Interpreter) execJump(word, pc uint32) (*uint32, *Exception) {
	target := jumpTarget(pc, word)
	if disasm.Opcode(word) == asm.OpJumpAndLink {
		it.Regs.WriteGPR(31, pc+4)
	}
	return &target, nil
}

func (it *Interpreter) execRegimm(word, pc uint32) (*uint32, *Exception) {
	rs := int(disasm.Rs(word))
	rsv := it.Regs.ReadGPR(rs)
	fn := disasm.Rt(word) // REGIMM's selector occupies the rt field

	switch fn {
	case asm.FnBranchLessThanZero:
		if int32(rsv) < 0 {
			t := branchTarget(pc, word)
			return &t, nil
		}
	case asm.FnBranchGreaterEqualZero:
		if int32(rsv) >= 0 {
			t := branchTarget(pc, word)
			return &t, nil
		}
	case asm.FnBranchLessThanZeroLink:
		it.Regs.WriteGPR(31, pc+4)
		if int32(rsv) < 0 {
			t := branchTarget(pc, word)
			return &t, nil
		}
	case asm.FnBranchGreaterEqualZeroLink:
		it.Regs.WriteGPR(31, pc+4)
		if int32(rsv) >= 0 {
			t := branchTarget(pc, word)
			return &t, nil
		}

	case asm.FnTrapGreaterEqualImm:
		if int32(rsv) >= disasm.SignExtendImm16(word) {
			return nil, excTrap()
		}
	case asm.FnTrapGreaterEqualImmU:
		if rsv >= uint32(disasm.SignExtendImm16(word)) {
			return nil, excTrap()
		}
	case asm.FnTrapLessThanImm:
		if int32(rsv) < disasm.SignExtendImm16(word) {
			return nil, excTrap()
		}
	case asm.FnTrapLessThanImmU:
		if rsv < uint32(disasm.SignExtendImm16(word)) {
			return nil, excTrap()
		}
	case asm.FnTrapEqualImm:
		if int32(rsv) == disasm.SignExtendImm16(word) {
			return nil, excTrap()
		}
	case asm.FnTrapNotEqualImm:
		if int32(rsv) != disasm.SignExtendImm16(word) {
			return nil, excTrap()
		}
	default:
		return nil, excReserved()
	}
	return nil, nil
}

// readWordRaw/writeWordRaw compose/decompose a word byte-by-byte with
// byte i always occupying bits [8i:8i+7], independent of the configured
// memory endianness — the convention lwl/lwr/swl/swr are defined against.
func (it *Interpreter) readWordRaw(addr uint32) (uint32, *Exception) {
	var word uint32
	for i := uint32(0); i < 4; i++ {
		b, exc := it.Mem.ReadU8(addr + i)
		if exc != nil {
			return 0, exc
		}
		word |= uint32(b) << (8 * i)
	}
	return word, nil
}

func (it *Interpreter) writeWordRaw(addr, word uint32) *Exception {
	for i := uint32(0); i < 4; i++ {
		if exc := it.Mem.WriteU8(addr+i, byte(word>>(8*i))); exc != nil {
			return exc
		}
	}
	return nil
}

func (it *Interpreter) execDirect(word, pc uint32) (*uint32, *Exception) {
	opcode := disasm.Opcode(word)
	rs := int(disasm.Rs(word))
	rt := int(disasm.Rt(word))
	imm := disasm.SignExtendImm16(word)
	rsv := it.Regs.ReadGPR(rs)
	rtv := it.Regs.ReadGPR(rt)

	switch opcode {
	case asm.OpBranchEqual:
		if rsv == rtv {
			t := branchTarget(pc, word)
			return &t, nil
		}
	case asm.OpBranchNotEqual:
		if rsv != rtv {
			t := branchTarget(pc, word)
			return &t, nil
		}
	case asm.OpBranchLEZero:
		if int32(rsv) <= 0 {
			t := branchTarget(pc, word)
			return &t, nil
		}
	case asm.OpBranchGTZero:
		if int32(rsv) > 0 {
			t := branchTarget(pc, word)
			return &t, nil
		}

	case asm.OpAddImmediate:
		sum, overflow := signedOverflowAdd(int32(rsv), imm)
		if overflow {
			return nil, excOverflow()
		}
		it.Regs.WriteGPR(rt, uint32(sum))
	case asm.OpAddImmediateU:
		it.Regs.WriteGPR(rt, rsv+uint32(imm))
	case asm.OpSetLessThanImm:
		if int32(rsv) < imm {
			it.Regs.WriteGPR(rt, 1)
		} else {
			it.Regs.WriteGPR(rt, 0)
		}
	case asm.OpSetLessThanImmU:
		if rsv < uint32(imm) {
			it.Regs.WriteGPR(rt, 1)
		} else {
			it.Regs.WriteGPR(rt, 0)
		}
	case asm.OpAndImmediate:
		it.Regs.WriteGPR(rt, rsv&uint32(disasm.Imm16(word)))
	case asm.OpOrImmediate:
		it.Regs.WriteGPR(rt, rsv|uint32(disasm.Imm16(word)))
	case asm.OpXorImmediate:
		it.Regs.WriteGPR(rt, rsv^uint32(disasm.Imm16(word)))
	case asm.OpLoadUpperImm:
		it.Regs.WriteGPR(rt, uint32(disasm.Imm16(word))<<16)

	case asm.OpLoadByte:
		v, exc := it.Mem.ReadU8(rsv + uint32(imm))
		if exc != nil {
			return nil, exc
		}
		it.Regs.WriteGPR(rt, uint32(int32(int8(v))))
	case asm.OpLoadByteU:
		v, exc := it.Mem.ReadU8(rsv + uint32(imm))
		if exc != nil {
			return nil, exc
		}
		it.Regs.WriteGPR(rt, uint32(v))
	case asm.OpLoadHalf:
		v, exc := it.Mem.ReadU16(rsv+uint32(imm), true)
		if exc != nil {
			return nil, exc
		}
		it.Regs.WriteGPR(rt, uint32(int32(int16(v))))
	case asm.OpLoadHalfU:
		v, exc := it.Mem.ReadU16(rsv+uint32(imm), true)
		if exc != nil {
			return nil, exc
		}
		it.Regs.WriteGPR(rt, uint32(v))
	case asm.OpLoadWord, asm.OpLoadLinked:
		v, exc := it.Mem.ReadU32(rsv+uint32(imm), true)
		if exc != nil {
			return nil, exc
		}
		it.Regs.WriteGPR(rt, v)
	case asm.OpStoreByte:
		if exc := it.Mem.WriteU8(rsv+uint32(imm), byte(rtv)); exc != nil {
			return nil, exc
		}
	case asm.OpStoreHalf:
		if exc := it.Mem.WriteU16(rsv+uint32(imm), uint16(rtv), true); exc != nil {
			return nil, exc
		}
	case asm.OpStoreWord, asm.OpStoreConditional:
		if exc := it.Mem.WriteU32(rsv+uint32(imm), rtv, true); exc != nil {
			return nil, exc
		}
		if opcode == asm.OpStoreConditional {
			it.Regs.WriteGPR(rt, 1)
		}

	case asm.OpLoadWordLeft:
		addr := rsv + uint32(imm)
		aligned := addr &^ 3
		n := addr & 3
		raw, exc := it.readWordRaw(aligned)
		if exc != nil {
			return nil, exc
		}
		mask := uint32(0xffffffff) << (n * 8)
		it.Regs.WriteGPR(rt, (rtv&^mask)|(raw&mask))
	case asm.OpLoadWordRight:
		addr := rsv + uint32(imm)
		aligned := addr &^ 3
		n := addr & 3
		raw, exc := it.readWordRaw(aligned)
		if exc != nil {
			return nil, exc
		}
		mask := uint32(0xffffffff) >> (8 * (3 - n))
		it.Regs.WriteGPR(rt, (rtv&^mask)|(raw&mask))
	case asm.OpStoreWordLeft:
		addr := rsv + uint32(imm)
		aligned := addr &^ 3
		n := addr & 3
		raw, exc := it.readWordRaw(aligned)
		if exc != nil {
			return nil, exc
		}
		mask := uint32(0xffffffff) << (n * 8)
		if exc := it.writeWordRaw(aligned, (raw&^mask)|(rtv&mask)); exc != nil {
			return nil, exc
		}
	case asm.OpStoreWordRight:
		addr := rsv + uint32(imm)
		aligned := addr &^ 3
		n := addr & 3
		raw, exc := it.readWordRaw(aligned)
		if exc != nil {
			return nil, exc
		}
		mask := uint32(0xffffffff) >> (8 * (3 - n))
		if exc := it.writeWordRaw(aligned, (raw&^mask)|(rtv&mask)); exc != nil {
			return nil, exc
		}

	case asm.OpLoadWordCop1:
		v, exc := it.Mem.ReadU32(rsv+uint32(imm), true)
		if exc != nil {
			return nil, exc
		}
		it.Regs.WriteU32F(rt, v)
	case asm.OpStoreWordCop1:
		if exc := it.Mem.WriteU32(rsv+uint32(imm), it.Regs.ReadU32F(rt), true); exc != nil {
			return nil, exc
		}
	case asm.OpLoadDoubleCop1:
		v, exc := it.Mem.ReadU64(rsv+uint32(imm), true)
		if exc != nil {
			return nil, exc
		}
		if !it.Regs.WriteF64(rt, math.Float64frombits(v)) {
			return nil, excMalformed()
		}
	case asm.OpStoreDoubleCop1:
		f, ok := it.Regs.ReadF64(rt)
		if !ok {
			return nil, excMalformed()
		}
		if exc := it.Mem.WriteU64(rsv+uint32(imm), math.Float64bits(f), true); exc != nil {
			return nil, exc
		}

	default:
		return nil, excReserved()
	}
	return nil, nil
}
