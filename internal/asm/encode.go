package asm

import (
	"math"

	"mipsim/internal/token"
)

func floatBitsAsInt(f float32) uint32 { return math.Float32bits(f) }

// UnresolvedKind tags the four shapes an instruction can be left in when
// its branch or jump target is a forward label.
type UnresolvedKind int

const (
	UnresolvedJump UnresolvedKind = iota
	UnresolvedRegimmBranch
	UnresolvedBranch
	UnresolvedCop1Branch
)

// Unresolved is a partially encoded instruction awaiting a label address.
type Unresolved struct {
	Kind      UnresolvedKind
	Operator  string
	Operands  []Operand // operands other than the label
	Label     string
	LabelSpan token.Span
	PC        uint32
	InstrSpan token.Span
}

// ProcessedInstruction is the encoder's output: a finished word, or a
// pending fixup.
type ProcessedInstruction struct {
	Resolved bool
	Word     uint32
	Pending  *Unresolved
}

func packR(opcode Opcode, rs, rt, rd, shamt, fn int) uint32 {
	return uint32(opcode)<<26 | uint32(rs&0x1f)<<21 | uint32(rt&0x1f)<<16 |
		uint32(rd&0x1f)<<11 | uint32(shamt&0x1f)<<6 | uint32(fn&0x3f)
}

func packI(opcode Opcode, rs, rt int, imm uint16) uint32 {
	return uint32(opcode)<<26 | uint32(rs&0x1f)<<21 | uint32(rt&0x1f)<<16 | uint32(imm)
}

func packJ(opcode Opcode, index uint32) uint32 {
	return uint32(opcode)<<26 | (index & 0x03ffffff)
}

func packRegimm(rs, fn int, imm uint16) uint32 {
	return uint32(OpRegisterImmediate)<<26 | uint32(rs&0x1f)<<21 | uint32(fn&0x1f)<<16 | uint32(imm)
}

func packCop0(fn, rt, rd int) uint32 {
	return uint32(OpCoprocessor0)<<26 | uint32(fn&0x1f)<<21 | uint32(rt&0x1f)<<16 | uint32(rd&0x1f)<<11
}

func packCop1(fmt, ft, fs, fd, fn int) uint32 {
	return uint32(OpCoprocessor1)<<26 | uint32(fmt&0x1f)<<21 | uint32(ft&0x1f)<<16 |
		uint32(fs&0x1f)<<11 | uint32(fd&0x1f)<<6 | uint32(fn&0x3f)
}

func packCop1Branch(cc int, cond bool, offset uint16) uint32 {
	condBit := uint32(0)
	if cond {
		condBit = 1
	}
	return uint32(OpCoprocessor1)<<26 | uint32(FmtBC1)<<21 | uint32(cc&0x7)<<18 | condBit<<16 | uint32(offset)
}

// branchOffset implements §4.3's "Branch-offset conversion": the raw
// 16-bit field, not the sign-extended value.
func branchOffset(pc, target uint32, span token.Span) (uint16, error) {
	diff := int64(target) - int64(pc)
	if diff%4 != 0 {
		return 0, newError(OffsetTooLarge, span, "branch target is not word-aligned relative to PC")
	}
	off := diff/4 - 1
	if off < -32768 || off > 32767 {
		return 0, newError(OffsetTooLarge, span, "branch target is out of ±128 KiB reach")
	}
	return uint16(int16(off)), nil
}

// jumpIndex implements §4.3's "Jump-index conversion".
func jumpIndex(pc, target uint32, span token.Span) (uint32, error) {
	retAddr := pc + 4
	if retAddr < pc {
		return 0, newError(ProgramCounterOverflow, span, "PC+4 overflowed computing the jump region")
	}
	if (target & 0xf0000000) != (retAddr & 0xf0000000) {
		return 0, newError(JumpTooLarge, span, "jump target is outside the current 256 MiB region")
	}
	return (target & 0x0fffffff) >> 2, nil
}

// Encode maps a parsed ExprInstruction plus the PC it will occupy to a
// ProcessedInstruction, per §4.3.
func Encode(e Expression, pc uint32) (ProcessedInstruction, error) {
	info, ok := lookupMnemonic(e.Operator)
	if !ok {
		if pseudoOperators[e.Operator] {
			return ProcessedInstruction{}, newError(UnknownOperator, e.Span, "pseudo-instructions are not supported: "+e.Operator)
		}
		return ProcessedInstruction{}, newError(UnknownOperator, e.Span, "unknown operator \""+e.Operator+"\"")
	}
	op := info.op
	ops := e.Operands

	switch op.Tag {
	case TagJump, TagJumpAndLink:
		return encodeJump(op, e, pc)
	case TagRegisterImmediate:
		if info.operands == shapeRsOffset {
			return encodeRegimmBranch(op, e, pc)
		}
		w, err := encodeRegimmTrap(op, ops, e.Span)
		return wordOrErr(w, err)
	case TagCoprocessor1RegImm:
		return encodeCop1Branch(op, e, pc)
	case TagDirect:
		switch info.operands {
		case shapeRsRtOffset, shapeRsOffset:
			return encodeIBranch(op, e, pc)
		default:
			w, err := encodeDirect(op, info.operands, ops, e.Span)
			return wordOrErr(w, err)
		}
	case TagSpecial:
		w, err := encodeSpecial(op, e.Operator, info.operands, ops, e.Span)
		return wordOrErr(w, err)
	case TagSpecial2:
		w, err := encodeSpecial2(op, info.operands, ops, e.Span)
		return wordOrErr(w, err)
	case TagCoprocessor0:
		w, err := encodeCop0(op, e.Operator, ops, e.Span)
		return wordOrErr(w, err)
	case TagCoprocessor1:
		w, err := encodeCop1(op, info.operands, ops, e.Span)
		return wordOrErr(w, err)
	default:
		return ProcessedInstruction{}, newError(UnknownOperator, e.Span, "unhandled operator "+e.Operator)
	}
}

func wordOrErr(w uint32, err error) (ProcessedInstruction, error) {
	if err != nil {
		return ProcessedInstruction{}, err
	}
	return ProcessedInstruction{Resolved: true, Word: w}, nil
}

func regOf(o Operand, span token.Span) (int, error) {
	if o.Kind != OperandRegister {
		return 0, newError(UnexpectedToken, o.Span, "expected a register operand")
	}
	return o.Index, nil
}

func intOf(o Operand) (int32, error) {
	if o.Kind != OperandInt {
		return 0, newError(UnexpectedToken, o.Span, "expected an integer operand")
	}
	return o.Value, nil
}

func needOperands(ops []Operand, n int, span token.Span) error {
	if len(ops) != n {
		return newError(UnexpectedToken, span, "wrong number of operands")
	}
	return nil
}

func encodeJump(op Operator, e Expression, pc uint32) (ProcessedInstruction, error) {
	if err := needOperands(e.Operands, 1, e.Span); err != nil {
		return ProcessedInstruction{}, err
	}
	target := e.Operands[0]
	opcode := OpJump
	if op.Tag == TagJumpAndLink {
		opcode = OpJumpAndLink
	}
	if target.Kind == OperandLabel {
		return ProcessedInstruction{Pending: &Unresolved{
			Kind: UnresolvedJump, Operator: e.Operator, Label: target.Label,
			LabelSpan: target.Span, PC: pc, InstrSpan: e.Span,
		}}, nil
	}
	addr, err := intOf(target)
	if err != nil {
		return ProcessedInstruction{}, err
	}
	idx, err := jumpIndex(pc, uint32(addr), target.Span)
	if err != nil {
		return ProcessedInstruction{}, err
	}
	return ProcessedInstruction{Resolved: true, Word: packJ(opcode, idx)}, nil
}

func encodeIBranch(op Operator, e Expression, pc uint32) (ProcessedInstruction, error) {
	ops := e.Operands
	var rs, rt int
	var target Operand
	switch len(ops) {
	case 3:
		var err error
		if rs, err = regOf(ops[0], e.Span); err != nil {
			return ProcessedInstruction{}, err
		}
		if rt, err = regOf(ops[1], e.Span); err != nil {
			return ProcessedInstruction{}, err
		}
		target = ops[2]
	case 2:
		var err error
		if rs, err = regOf(ops[0], e.Span); err != nil {
			return ProcessedInstruction{}, err
		}
		rt = 0
		target = ops[1]
	default:
		return ProcessedInstruction{}, newError(UnexpectedToken, e.Span, "wrong number of operands for branch")
	}

	if target.Kind == OperandLabel {
		return ProcessedInstruction{Pending: &Unresolved{
			Kind: UnresolvedBranch, Operator: e.Operator,
			Operands: []Operand{{Kind: OperandRegister, Index: rs}, {Kind: OperandRegister, Index: rt}},
			Label:     target.Label, LabelSpan: target.Span, PC: pc, InstrSpan: e.Span,
		}}, nil
	}
	addr, err := intOf(target)
	if err != nil {
		return ProcessedInstruction{}, err
	}
	off, err := branchOffset(pc, uint32(addr), target.Span)
	if err != nil {
		return ProcessedInstruction{}, err
	}
	return ProcessedInstruction{Resolved: true, Word: packI(op.Opcode, rs, rt, off)}, nil
}

func encodeRegimmBranch(op Operator, e Expression, pc uint32) (ProcessedInstruction, error) {
	if err := needOperands(e.Operands, 2, e.Span); err != nil {
		return ProcessedInstruction{}, err
	}
	rs, err := regOf(e.Operands[0], e.Span)
	if err != nil {
		return ProcessedInstruction{}, err
	}
	target := e.Operands[1]
	if target.Kind == OperandLabel {
		return ProcessedInstruction{Pending: &Unresolved{
			Kind: UnresolvedRegimmBranch, Operator: e.Operator,
			Operands:  []Operand{{Kind: OperandRegister, Index: rs}},
			Label:     target.Label, LabelSpan: target.Span, PC: pc, InstrSpan: e.Span,
		}}, nil
	}
	addr, err := intOf(target)
	if err != nil {
		return ProcessedInstruction{}, err
	}
	off, err := branchOffset(pc, uint32(addr), target.Span)
	if err != nil {
		return ProcessedInstruction{}, err
	}
	return ProcessedInstruction{Resolved: true, Word: packRegimm(rs, op.Fn, off)}, nil
}

func encodeRegimmTrap(op Operator, ops []Operand, span token.Span) (uint32, error) {
	if err := needOperands(ops, 2, span); err != nil {
		return 0, err
	}
	rs, err := regOf(ops[0], span)
	if err != nil {
		return 0, err
	}
	imm, err := intOf(ops[1])
	if err != nil {
		return 0, err
	}
	return packRegimm(rs, op.Fn, uint16(imm)), nil
}

func encodeCop1Branch(op Operator, e Expression, pc uint32) (ProcessedInstruction, error) {
	ops := e.Operands
	var cc int
	var target Operand
	switch len(ops) {
	case 2:
		v, err := intOf(ops[0])
		if err != nil {
			return ProcessedInstruction{}, err
		}
		cc = int(v)
		target = ops[1]
	case 1:
		cc = 0
		target = ops[0]
	default:
		return ProcessedInstruction{}, newError(UnexpectedToken, e.Span, "wrong number of operands for "+e.Operator)
	}

	if target.Kind == OperandLabel {
		return ProcessedInstruction{Pending: &Unresolved{
			Kind: UnresolvedCop1Branch, Operator: e.Operator,
			Operands:  []Operand{{Kind: OperandInt, Value: int32(cc)}},
			Label:     target.Label, LabelSpan: target.Span, PC: pc, InstrSpan: e.Span,
		}}, nil
	}
	addr, err := intOf(target)
	if err != nil {
		return ProcessedInstruction{}, err
	}
	off, err := branchOffset(pc, uint32(addr), target.Span)
	if err != nil {
		return ProcessedInstruction{}, err
	}
	return ProcessedInstruction{Resolved: true, Word: packCop1Branch(cc, op.Condition, off)}, nil
}

func encodeDirect(op Operator, shape operandShape, ops []Operand, span token.Span) (uint32, error) {
	switch shape {
	case shapeRtRsImm:
		if err := needOperands(ops, 3, span); err != nil {
			return 0, err
		}
		rt, err := regOf(ops[0], span)
		if err != nil {
			return 0, err
		}
		rs, err := regOf(ops[1], span)
		if err != nil {
			return 0, err
		}
		imm, err := intOf(ops[2])
		if err != nil {
			return 0, err
		}
		return packI(op.Opcode, rs, rt, uint16(imm)), nil
	case shapeRtImm:
		if err := needOperands(ops, 2, span); err != nil {
			return 0, err
		}
		rt, err := regOf(ops[0], span)
		if err != nil {
			return 0, err
		}
		imm, err := intOf(ops[1])
		if err != nil {
			return 0, err
		}
		return packI(op.Opcode, 0, rt, uint16(imm)), nil
	case shapeRegOffsetBase:
		if err := needOperands(ops, 2, span); err != nil {
			return 0, err
		}
		rt, err := regOf(ops[0], span)
		if err != nil {
			return 0, err
		}
		mem := ops[1]
		if mem.Kind != OperandIndirect {
			return 0, newError(UnexpectedToken, mem.Span, "expected offset($reg) addressing")
		}
		return packI(op.Opcode, mem.Index, rt, uint16(mem.Value)), nil
	default:
		return 0, newError(UnexpectedToken, span, "unhandled operand shape for direct-opcode instruction")
	}
}

func encodeSpecial(op Operator, mnemonic string, shape operandShape, ops []Operand, span token.Span) (uint32, error) {
	switch shape {
	case shapeRdRsRt:
		if err := needOperands(ops, 3, span); err != nil {
			return 0, err
		}
		rd, err := regOf(ops[0], span)
		if err != nil {
			return 0, err
		}
		rs, err := regOf(ops[1], span)
		if err != nil {
			return 0, err
		}
		rt, err := regOf(ops[2], span)
		if err != nil {
			return 0, err
		}
		return packR(OpSpecial, rs, rt, rd, 0, op.Fn), nil
	case shapeRdRtRs:
		if err := needOperands(ops, 3, span); err != nil {
			return 0, err
		}
		rd, err := regOf(ops[0], span)
		if err != nil {
			return 0, err
		}
		rt, err := regOf(ops[1], span)
		if err != nil {
			return 0, err
		}
		sh, err := intOf(ops[2])
		if err != nil {
			return 0, err
		}
		return packR(OpSpecial, 0, rt, rd, int(sh), op.Fn), nil
	case shapeRdRtRsVar:
		if err := needOperands(ops, 3, span); err != nil {
			return 0, err
		}
		rd, err := regOf(ops[0], span)
		if err != nil {
			return 0, err
		}
		rt, err := regOf(ops[1], span)
		if err != nil {
			return 0, err
		}
		rs, err := regOf(ops[2], span)
		if err != nil {
			return 0, err
		}
		return packR(OpSpecial, rs, rt, rd, 0, op.Fn), nil
	case shapeRsRt:
		if err := needOperands(ops, 2, span); err != nil {
			return 0, err
		}
		rs, err := regOf(ops[0], span)
		if err != nil {
			return 0, err
		}
		rt, err := regOf(ops[1], span)
		if err != nil {
			return 0, err
		}
		return packR(OpSpecial, rs, rt, 0, 0, op.Fn), nil
	case shapeRs:
		if err := needOperands(ops, 1, span); err != nil {
			return 0, err
		}
		rs, err := regOf(ops[0], span)
		if err != nil {
			return 0, err
		}
		return packR(OpSpecial, rs, 0, 0, 0, op.Fn), nil
	case shapeRdOnly:
		if err := needOperands(ops, 1, span); err != nil {
			return 0, err
		}
		rd, err := regOf(ops[0], span)
		if err != nil {
			return 0, err
		}
		return packR(OpSpecial, 0, 0, rd, 0, op.Fn), nil
	case shapeRdRs:
		if err := needOperands(ops, 2, span); err != nil {
			return 0, err
		}
		rd, err := regOf(ops[0], span)
		if err != nil {
			return 0, err
		}
		rs, err := regOf(ops[1], span)
		if err != nil {
			return 0, err
		}
		return packR(OpSpecial, rs, 0, rd, 0, op.Fn), nil
	case shapeMovc:
		if len(ops) != 2 && len(ops) != 3 {
			return 0, newError(UnexpectedToken, span, "expected rd, rs[, cc]")
		}
		rd, err := regOf(ops[0], span)
		if err != nil {
			return 0, err
		}
		rs, err := regOf(ops[1], span)
		if err != nil {
			return 0, err
		}
		cc := int32(0)
		if len(ops) == 3 {
			if cc, err = intOf(ops[2]); err != nil {
				return 0, err
			}
		}
		condBit := 0
		if op.Condition {
			condBit = 1
		}
		rt := (int(cc)&0x7)<<2 | condBit
		return packR(OpSpecial, rs, rt, rd, 0, op.Fn), nil
	case shapeTrapRsRt:
		if err := needOperands(ops, 2, span); err != nil {
			return 0, err
		}
		rs, err := regOf(ops[0], span)
		if err != nil {
			return 0, err
		}
		rt, err := regOf(ops[1], span)
		if err != nil {
			return 0, err
		}
		return packR(OpSpecial, rs, rt, 0, 0, op.Fn), nil
	case shapeNoOperand:
		if err := needOperands(ops, 0, span); err != nil {
			return 0, err
		}
		return packR(OpSpecial, 0, 0, 0, 0, op.Fn), nil
	default:
		return 0, newError(UnexpectedToken, span, "unhandled operand shape for "+mnemonic)
	}
}

func encodeSpecial2(op Operator, shape operandShape, ops []Operand, span token.Span) (uint32, error) {
	switch shape {
	case shapeRsRt:
		if err := needOperands(ops, 2, span); err != nil {
			return 0, err
		}
		rs, err := regOf(ops[0], span)
		if err != nil {
			return 0, err
		}
		rt, err := regOf(ops[1], span)
		if err != nil {
			return 0, err
		}
		return packR(OpSpecial2, rs, rt, 0, 0, op.Fn), nil
	case shapeRdRsRt:
		if err := needOperands(ops, 3, span); err != nil {
			return 0, err
		}
		rd, err := regOf(ops[0], span)
		if err != nil {
			return 0, err
		}
		rs, err := regOf(ops[1], span)
		if err != nil {
			return 0, err
		}
		rt, err := regOf(ops[2], span)
		if err != nil {
			return 0, err
		}
		return packR(OpSpecial2, rs, rt, rd, 0, op.Fn), nil
	case shapeRdRs:
		if err := needOperands(ops, 2, span); err != nil {
			return 0, err
		}
		rd, err := regOf(ops[0], span)
		if err != nil {
			return 0, err
		}
		rs, err := regOf(ops[1], span)
		if err != nil {
			return 0, err
		}
		return packR(OpSpecial2, rs, 0, rd, 0, op.Fn), nil
	default:
		return 0, newError(UnexpectedToken, span, "unhandled operand shape for SPECIAL2 instruction")
	}
}

func encodeCop0(op Operator, mnemonic string, ops []Operand, span token.Span) (uint32, error) {
	if mnemonic == "eret" {
		if err := needOperands(ops, 0, span); err != nil {
			return 0, err
		}
		// eret encoding is an open question (§9): the source writes a
		// placeholder pattern and does not execute it meaningfully. We
		// recognize the mnemonic and emit the standard MIPS32 CO-format
		// ERET word without assigning it runtime semantics beyond that.
		return 0x42000018, nil
	}
	if err := needOperands(ops, 2, span); err != nil {
		return 0, err
	}
	rt, err := regOf(ops[0], span)
	if err != nil {
		return 0, err
	}
	rd, err := regOf(ops[1], span)
	if err != nil {
		return 0, err
	}
	return packCop0(op.Fn, rt, rd), nil
}

func encodeCop1(op Operator, shape operandShape, ops []Operand, span token.Span) (uint32, error) {
	switch shape {
	case shapeFdFsFt:
		if err := needOperands(ops, 3, span); err != nil {
			return 0, err
		}
		fd, err := regOf(ops[0], span)
		if err != nil {
			return 0, err
		}
		fs, err := regOf(ops[1], span)
		if err != nil {
			return 0, err
		}
		ft, err := regOf(ops[2], span)
		if err != nil {
			return 0, err
		}
		return packCop1(op.Fmt, ft, fs, fd, op.Fn), nil
	case shapeFdFs:
		if err := needOperands(ops, 2, span); err != nil {
			return 0, err
		}
		fd, err := regOf(ops[0], span)
		if err != nil {
			return 0, err
		}
		fs, err := regOf(ops[1], span)
		if err != nil {
			return 0, err
		}
		return packCop1(op.Fmt, 0, fs, fd, op.Fn), nil
	case shapeFsFt:
		if len(ops) != 2 && len(ops) != 3 {
			return 0, newError(UnexpectedToken, span, "expected fs, ft[, cc]")
		}
		fs, err := regOf(ops[0], span)
		if err != nil {
			return 0, err
		}
		ft, err := regOf(ops[1], span)
		if err != nil {
			return 0, err
		}
		cc := int32(0)
		if len(ops) == 3 {
			if cc, err = intOf(ops[2]); err != nil {
				return 0, err
			}
		}
		// §4.3: optional cc occupies the three most significant bits of
		// the 11-bit tail below the fn code (the fd field position).
		return packCop1(op.Fmt, ft, fs, (int(cc)&0x7)<<2, op.Fn), nil
	case shapeRtFs:
		if err := needOperands(ops, 2, span); err != nil {
			return 0, err
		}
		rt, err := regOf(ops[0], span)
		if err != nil {
			return 0, err
		}
		fs, err := regOf(ops[1], span)
		if err != nil {
			return 0, err
		}
		return packCop1(op.Fmt, rt, fs, 0, 0), nil
	default:
		return 0, newError(UnexpectedToken, span, "unhandled operand shape for coprocessor-1 instruction")
	}
}
