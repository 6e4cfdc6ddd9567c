package vm

import (
	"math/bits"

	"mipsim/internal/asm"
	"mipsim/internal/disasm"
)

func signedOverflowAdd(a, b int32) (int32, bool) {
	sum := a + b
	overflow := (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum > 0)
	return sum, overflow
}

func signedOverflowSub(a, b int32) (int32, bool) {
	diff := a - b
	overflow := (a >= 0 && b < 0 && diff < 0) || (a < 0 && b >= 0 && diff >= 0)
	return diff, overflow
}

func (it *Interpreter) execSpecial(word, pc uint32) (*uint32, *Exception) {
	rs := int(disasm.Rs(word))
	rt := int(disasm.Rt(word))
	rd := int(disasm.Rd(word))
	shamt := uint(disasm.Shamt(word))
	fn := disasm.Fn(word)

	rsv := it.Regs.ReadGPR(rs)
	rtv := it.Regs.ReadGPR(rt)

	switch fn {
	case asm.FnShiftLeftLogical:
		it.Regs.WriteGPR(rd, rtv<<shamt)
	case asm.FnShiftRightLogical:
		it.Regs.WriteGPR(rd, rtv>>shamt)
	case asm.FnShiftRightArithmetic:
		it.Regs.WriteGPR(rd, uint32(int32(rtv)>>shamt))
	case asm.FnShiftLeftLogicalVar:
		it.Regs.WriteGPR(rd, rtv<<(rsv&0x1f))
	case asm.FnShiftRightLogicalVar:
		it.Regs.WriteGPR(rd, rtv>>(rsv&0x1f))
	case asm.FnShiftRightArithmeticVar:
		it.Regs.WriteGPR(rd, uint32(int32(rtv)>>(rsv&0x1f)))

	case asm.FnJumpRegister:
		target := rsv
		return &target, nil
	case asm.FnJumpAndLinkRegister:
		it.Regs.WriteGPR(rd, pc+4)
		target := rsv
		return &target, nil

	case asm.FnMoveZero:
		if rtv == 0 {
			it.Regs.WriteGPR(rd, rsv)
		}
	case asm.FnMoveNotZero:
		if rtv != 0 {
			it.Regs.WriteGPR(rd, rsv)
		}
	case asm.FnMoveConditional:
		cc := (rt >> 2) & 0x7
		tf := rt & 1
		cond := it.Regs.ReadFCC(cc)
		if (tf == 1) == cond {
			it.Regs.WriteGPR(rd, rsv)
		}

	case asm.FnSyscall:
		return nil, it.Services.Dispatch()
	case asm.FnBreak:
		return nil, excBreak()

	case asm.FnMoveFromHigh:
		it.Regs.WriteGPR(rd, it.Regs.ReadHI())
	case asm.FnMoveToHigh:
		it.Regs.WriteHI(rsv)
	case asm.FnMoveFromLow:
		it.Regs.WriteGPR(rd, it.Regs.ReadLO())
	case asm.FnMoveToLow:
		it.Regs.WriteLO(rsv)

	case asm.FnMultiply:
		p := int64(int32(rsv)) * int64(int32(rtv))
		it.Regs.WriteHI(uint32(uint64(p) >> 32))
		it.Regs.WriteLO(uint32(p))
	case asm.FnMultiplyUnsigned:
		p := uint64(rsv) * uint64(rtv)
		it.Regs.WriteHI(uint32(p >> 32))
		it.Regs.WriteLO(uint32(p))
	case asm.FnDivide:
		if rtv == 0 {
			return nil, excDivideByZero()
		}
		a, b := int32(rsv), int32(rtv)
		it.Regs.WriteLO(uint32(a / b))
		it.Regs.WriteHI(uint32(a % b))
	case asm.FnDivideUnsigned:
		if rtv == 0 {
			return nil, excDivideByZero()
		}
		it.Regs.WriteLO(rsv / rtv)
		it.Regs.WriteHI(rsv % rtv)

	case asm.FnAdd:
		sum, overflow := signedOverflowAdd(int32(rsv), int32(rtv))
		if overflow {
			return nil, excOverflow()
		}
		it.Regs.WriteGPR(rd, uint32(sum))
	case asm.FnAddUnsigned:
		it.Regs.WriteGPR(rd, rsv+rtv)
	case asm.FnSubtract:
		diff, overflow := signedOverflowSub(int32(rsv), int32(rtv))
		if overflow {
			return nil, excOverflow()
		}
		it.Regs.WriteGPR(rd, uint32(diff))
	case asm.FnSubtractUnsigned:
		it.Regs.WriteGPR(rd, rsv-rtv)
	case asm.FnAnd:
		it.Regs.WriteGPR(rd, rsv&rtv)
	case asm.FnOr:
		it.Regs.WriteGPR(rd, rsv|rtv)
	case asm.FnXor:
		it.Regs.WriteGPR(rd, rsv^rtv)
	case asm.FnNor:
		it.Regs.WriteGPR(rd, ^(rsv | rtv))
	case asm.FnSetLessThan:
		if int32(rsv) < int32(rtv) {
			it.Regs.WriteGPR(rd, 1)
		} else {
			it.Regs.WriteGPR(rd, 0)
		}
	case asm.FnSetLessThanUnsigned:
		if rsv < rtv {
			it.Regs.WriteGPR(rd, 1)
		} else {
			it.Regs.WriteGPR(rd, 0)
		}

	case asm.FnTrapGreaterEqual:
		if int32(rsv) >= int32(rtv) {
			return nil, excTrap()
		}
	case asm.FnTrapGreaterEqualUnsigned:
		if rsv >= rtv {
			return nil, excTrap()
		}
	case asm.FnTrapLessThan:
		if int32(rsv) < int32(rtv) {
			return nil, excTrap()
		}
	case asm.FnTrapLessThanUnsigned:
		if rsv < rtv {
			return nil, excTrap()
		}
	case asm.FnTrapEqual:
		if rsv == rtv {
			return nil, excTrap()
		}
	case asm.FnTrapNotEqual:
		if rsv != rtv {
			return nil, excTrap()
		}

	default:
		return nil, excReserved()
	}
	return nil, nil
}

func (it *Interpreter) execSpecial2(word, pc uint32) (*uint32, *Exception) {
	rs := int(disasm.Rs(word))
	rt := int(disasm.Rt(word))
	rd := int(disasm.Rd(word))
	fn := disasm.Fn(word)

	rsv := it.Regs.ReadGPR(rs)
	rtv := it.Regs.ReadGPR(rt)

	switch fn {
	case asm.FnMultiplyAdd:
		p := int64(int32(rsv)) * int64(int32(rtv))
		acc := int64(it.Regs.ReadHI())<<32 | int64(it.Regs.ReadLO())
		acc += p
		it.Regs.WriteHI(uint32(uint64(acc) >> 32))
		it.Regs.WriteLO(uint32(acc))
	case asm.FnMultiplyAddUnsigned:
		p := uint64(rsv) * uint64(rtv)
		acc := uint64(it.Regs.ReadHI())<<32 | uint64(it.Regs.ReadLO())
		acc += p
		it.Regs.WriteHI(uint32(acc >> 32))
		it.Regs.WriteLO(uint32(acc))
	case asm.FnMul:
		it.Regs.WriteGPR(rd, uint32(int32(rsv)*int32(rtv)))
	case asm.FnMultiplySubtract:
		p := int64(int32(rsv)) * int64(int32(rtv))
		acc := int64(it.Regs.ReadHI())<<32 | int64(it.Regs.ReadLO())
		acc -= p
		it.Regs.WriteHI(uint32(uint64(acc) >> 32))
		it.Regs.WriteLO(uint32(acc))
	case asm.FnMultiplySubtractUnsigned:
		p := uint64(rsv) * uint64(rtv)
		acc := uint64(it.Regs.ReadHI())<<32 | uint64(it.Regs.ReadLO())
		acc -= p
		it.Regs.WriteHI(uint32(acc >> 32))
		it.Regs.WriteLO(uint32(acc))
	case asm.FnCountLeadingZeroes:
		it.Regs.WriteGPR(rd, uint32(bits.LeadingZeros32(rsv)))
	case asm.FnCountLeadingOnes:
		it.Regs.WriteGPR(rd, uint32(bits.LeadingZeros32(^rsv)))
	default:
		return nil, excReserved()
	}
	return nil, nil
}
