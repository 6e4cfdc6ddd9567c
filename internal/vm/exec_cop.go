package vm

import (
	"math"

	"mipsim/internal/asm"
	"mipsim/internal/disasm"
)

func (it *Interpreter) execCop0(word, pc uint32) (*uint32, *Exception) {
	fn := disasm.Fmt(word) // COP0's selector occupies the rs field
	rt := int(disasm.Rt(word))
	rd := int(disasm.Rd(word))

	switch fn {
	case asm.FnMoveFromCoprocessor0:
		v, ok := it.Regs.ReadCP0(rd)
		if !ok {
			return nil, excReserved()
		}
		it.Regs.WriteGPR(rt, v)
	case asm.FnMoveToCoprocessor0:
		if !it.Regs.WriteCP0(rd, it.Regs.ReadGPR(rt)) {
			return nil, excReserved()
		}
	case 0x10: // CO bit set: eret (fn 0x18) has no runtime semantics beyond recognizing the word, see asm.encodeCop0
		if disasm.Fn(word) != 0x18 {
			return nil, excReserved()
		}
		return nil, nil
	default:
		return nil, excReserved()
	}
	return nil, nil
}

// readCop1 widens fmt's operand (single or double) to a float64 for
// arithmetic; fmt must be asm.FmtSingle or asm.FmtDouble.
func (it *Interpreter) readCop1(fmtVal uint8, reg int) (float64, *Exception) {
	if fmtVal == asm.FmtDouble {
		v, ok := it.Regs.ReadF64(reg)
		if !ok {
			return 0, excMalformed()
		}
		return v, nil
	}
	return float64(it.Regs.ReadF32(reg)), nil
}

func (it *Interpreter) writeCop1(fmtVal uint8, reg int, v float64) *Exception {
	if fmtVal == asm.FmtDouble {
		if !it.Regs.WriteF64(reg, v) {
			return excMalformed()
		}
		return nil
	}
	it.Regs.WriteF32(reg, float32(v))
	return nil
}

func (it *Interpreter) execCop1(word, pc uint32) (*uint32, *Exception) {
	fmtVal := disasm.Fmt(word)

	switch fmtVal {
	case asm.FmtMFC1:
		gpr := int(disasm.Rt(word))
		fpReg := int(disasm.Rd(word))
		it.Regs.WriteGPR(gpr, it.Regs.ReadU32F(fpReg))
		return nil, nil
	case asm.FmtMTC1:
		gpr := int(disasm.Rt(word))
		fpReg := int(disasm.Rd(word))
		it.Regs.WriteU32F(fpReg, it.Regs.ReadGPR(gpr))
		return nil, nil
	case asm.FmtBC1:
		cc := int(disasm.BranchCc(word))
		wantTrue := disasm.BranchCond(word)
		if it.Regs.ReadFCC(cc) == wantTrue {
			t := branchTarget(pc, word)
			return &t, nil
		}
		return nil, nil
	}

	ft := int(disasm.Rt(word))
	fs := int(disasm.Rd(word))
	fdField := disasm.Shamt(word)
	fd := int(fdField)
	fn := disasm.Fn(word)

	switch fn {
	case asm.FnFAdd, asm.FnFSub, asm.FnFMul, asm.FnFDiv:
		a, exc := it.readCop1(fmtVal, fs)
		if exc != nil {
			return nil, exc
		}
		b, exc := it.readCop1(fmtVal, ft)
		if exc != nil {
			return nil, exc
		}
		var r float64
		switch fn {
		case asm.FnFAdd:
			r = a + b
		case asm.FnFSub:
			r = a - b
		case asm.FnFMul:
			r = a * b
		case asm.FnFDiv:
			if b == 0 {
				return nil, excDivideByZero()
			}
			r = a / b
		}
		return nil, it.writeCop1(fmtVal, fd, r)

	case asm.FnFSqrt, asm.FnFAbs, asm.FnFMov, asm.FnFNeg:
		a, exc := it.readCop1(fmtVal, fs)
		if exc != nil {
			return nil, exc
		}
		var r float64
		switch fn {
		case asm.FnFSqrt:
			r = math.Sqrt(a)
		case asm.FnFAbs:
			r = math.Abs(a)
		case asm.FnFMov:
			r = a
		case asm.FnFNeg:
			r = -a
		}
		return nil, it.writeCop1(fmtVal, fd, r)

	case asm.FnFRoundW, asm.FnFTruncW, asm.FnFCeilW, asm.FnFFloorW:
		a, exc := it.readCop1(fmtVal, fs)
		if exc != nil {
			return nil, exc
		}
		var r float64
		switch fn {
		case asm.FnFRoundW:
			r = math.Round(a)
		case asm.FnFTruncW:
			r = math.Trunc(a)
		case asm.FnFCeilW:
			r = math.Ceil(a)
		case asm.FnFFloorW:
			r = math.Floor(a)
		}
		it.Regs.WriteU32F(fd, uint32(int32(r)))
		return nil, nil

	case asm.FnCvtS:
		if fmtVal == asm.FmtWord {
			v := int32(it.Regs.ReadU32F(fs))
			it.Regs.WriteF32(fd, float32(v))
			return nil, nil
		}
		a, exc := it.readCop1(fmtVal, fs)
		if exc != nil {
			return nil, exc
		}
		it.Regs.WriteF32(fd, float32(a))
		return nil, nil

	case asm.FnCvtD:
		if fmtVal == asm.FmtWord {
			v := int32(it.Regs.ReadU32F(fs))
			if !it.Regs.WriteF64(fd, float64(v)) {
				return nil, excMalformed()
			}
			return nil, nil
		}
		a, exc := it.readCop1(fmtVal, fs)
		if exc != nil {
			return nil, exc
		}
		if !it.Regs.WriteF64(fd, a) {
			return nil, excMalformed()
		}
		return nil, nil

	case asm.FnCvtW:
		a, exc := it.readCop1(fmtVal, fs)
		if exc != nil {
			return nil, exc
		}
		it.Regs.WriteU32F(fd, uint32(int32(a)))
		return nil, nil

	case asm.FnCEq, asm.FnCLt, asm.FnCLe:
		a, exc := it.readCop1(fmtVal, fs)
		if exc != nil {
			return nil, exc
		}
		b, exc := it.readCop1(fmtVal, ft)
		if exc != nil {
			return nil, exc
		}
		var result bool
		switch fn {
		case asm.FnCEq:
			result = a == b
		case asm.FnCLt:
			result = a < b
		case asm.FnCLe:
			result = a <= b
		}
		cc := (int(fdField) >> 2) & 0x7
		it.Regs.WriteFCC(cc, result)
		return nil, nil

	default:
		return nil, excReserved()
	}
}
