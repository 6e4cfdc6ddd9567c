package asm

import (
	"encoding/binary"
)

// DriverConfig carries the subset of internal/config.Config the driver
// needs: base addresses for each segment and the byte order multi-byte
// values are written in. cmd/mipsim constructs this from the loaded
// configuration before calling Assemble.
type DriverConfig struct {
	TextBase, KTextBase, ExternBase, DataBase, KDataBase uint32
	LittleEndian                                         bool
}

// Build is the assembler driver's finished output: one byte buffer per
// non-empty segment, ready to be written to disk.
type Build struct {
	Segments map[SegmentName][]byte
}

type driver struct {
	cfg     DriverConfig
	infos   map[SegmentName]*SegmentBuildInfo
	symbols map[string]uint32
	current SegmentName
	pending []*Unresolved
}

// Assemble runs the two-pass driver over a parsed expression stream:
// forward pass emits bytes or 4-byte placeholders, backward pass patches
// placeholders once every label is known.
func Assemble(exprs []Expression, cfg DriverConfig) (*Build, error) {
	d := &driver{
		cfg:     cfg,
		symbols: make(map[string]uint32),
		current: SegText,
		infos: map[SegmentName]*SegmentBuildInfo{
			SegText:   newSegmentBuildInfo(cfg.TextBase),
			SegKText:  newSegmentBuildInfo(cfg.KTextBase),
			SegExtern: newSegmentBuildInfo(cfg.ExternBase),
			SegData:   newSegmentBuildInfo(cfg.DataBase),
			SegKData:  newSegmentBuildInfo(cfg.KDataBase),
		},
	}

	for _, e := range exprs {
		if err := d.step(e); err != nil {
			return nil, err
		}
	}
	if err := d.resolvePending(); err != nil {
		return nil, err
	}

	out := &Build{Segments: make(map[SegmentName][]byte)}
	for name, info := range d.infos {
		if len(info.Bytes) > 0 {
			out.Segments[name] = info.Bytes
		}
	}
	return out, nil
}

func isByteSegment(s SegmentName) bool {
	return s == SegData || s == SegExtern || s == SegKData
}

func isTextSegment(s SegmentName) bool {
	return s == SegText || s == SegKText
}

func (d *driver) step(e Expression) error {
	switch e.Kind {
	case ExprSegmentHeader:
		d.current = e.Segment
		if e.SegmentAddr != nil {
			if err := d.infos[e.Segment].advanceTo(*e.SegmentAddr); err != nil {
				return err
			}
		}
		return nil

	case ExprAlign:
		if !isByteSegment(d.current) {
			return newError(UnsupportedDirective, e.Span, ".align is only valid in data/extern/kdata segments")
		}
		info := d.infos[d.current]
		mult := uint32(1) << e.AlignExponent
		rem := info.Next % mult
		if rem != 0 {
			info.advanceBy(mult - rem)
		}
		return nil

	case ExprSpace:
		if !isByteSegment(d.current) {
			return newError(UnsupportedDirective, e.Span, ".space is only valid in data/extern/kdata segments")
		}
		d.infos[d.current].advanceBy(e.SpaceBytes)
		return nil

	case ExprInclude:
		return newError(UnsupportedDirective, e.Span, ".include is not supported")
	case ExprEqv:
		return newError(UnsupportedDirective, e.Span, ".eqv is not supported")
	case ExprSet:
		return newError(UnsupportedDirective, e.Span, ".set is not supported")
	case ExprGlobal:
		return nil // accepted, currently ignored

	case ExprValueArray:
		return d.stepValueArray(e)

	case ExprStringLiteral:
		return d.stepString(e)

	case ExprLabelDef:
		addr := d.infos[d.current].Next
		if _, exists := d.symbols[e.Ident]; exists {
			return newError(MultipleDefinitions, e.Span, "label \""+e.Ident+"\" is already defined")
		}
		d.symbols[e.Ident] = addr
		return nil

	case ExprInstruction:
		return d.stepInstruction(e)

	default:
		return newError(UnexpectedToken, e.Span, "unrecognized expression")
	}
}

func (d *driver) putU16(b []byte, v uint16) {
	if d.cfg.LittleEndian {
		binary.LittleEndian.PutUint16(b, v)
	} else {
		binary.BigEndian.PutUint16(b, v)
	}
}

func (d *driver) putU32(b []byte, v uint32) {
	if d.cfg.LittleEndian {
		binary.LittleEndian.PutUint32(b, v)
	} else {
		binary.BigEndian.PutUint32(b, v)
	}
}

func (d *driver) putU64(b []byte, v uint64) {
	if d.cfg.LittleEndian {
		binary.LittleEndian.PutUint64(b, v)
	} else {
		binary.BigEndian.PutUint64(b, v)
	}
}

func (d *driver) stepValueArray(e Expression) error {
	if !isByteSegment(d.current) {
		return newError(UnsupportedDirective, e.Span, "value arrays are only valid in data/extern/kdata segments")
	}
	info := d.infos[d.current]
	for _, vs := range e.Values {
		if vs.Value.Kind != OperandInt {
			return newError(WrongType, vs.Span, "expected a numeric literal")
		}
		signed := vs.Value.Value
		raw := uint32(signed)
		switch e.Scalar {
		case ScalarByte:
			if signed < -128 || signed > 255 {
				return newError(ValueOutsideRange, vs.Span, "value does not fit in a byte")
			}
			info.write([]byte{byte(raw)})
		case ScalarHalf:
			if signed < -32768 || signed > 65535 {
				return newError(ValueOutsideRange, vs.Span, "value does not fit in a half word")
			}
			buf := make([]byte, 2)
			d.putU16(buf, uint16(raw))
			info.write(buf)
		case ScalarWord:
			buf := make([]byte, 4)
			d.putU32(buf, raw)
			info.write(buf)
		case ScalarFloat:
			buf := make([]byte, 4)
			d.putU32(buf, raw)
			info.write(buf)
		case ScalarDouble:
			buf := make([]byte, 8)
			if vs.Value.IsFloat {
				d.putU64(buf, vs.Value.DoubleBits)
			} else {
				d.putU64(buf, uint64(int64(signed)))
			}
			info.write(buf)
		default:
			return newError(WrongType, vs.Span, "unknown scalar type")
		}
	}
	return nil
}

func (d *driver) stepString(e Expression) error {
	if !isByteSegment(d.current) {
		return newError(UnsupportedDirective, e.Span, "string literals are only valid in data/extern/kdata segments")
	}
	decoded, err := buildString(e.StringRaw, e.Span)
	if err != nil {
		return err
	}
	if e.StringDirective == "asciiz" {
		decoded = append(decoded, 0)
	}
	d.infos[d.current].write(decoded)
	return nil
}

func (d *driver) stepInstruction(e Expression) error {
	if !isTextSegment(d.current) {
		return newError(UnsupportedDirective, e.Span, "instructions are only valid in text/ktext segments")
	}
	info := d.infos[d.current]
	pc := info.Next

	proc, err := Encode(e, pc)
	if err != nil {
		return err
	}
	if proc.Resolved {
		buf := make([]byte, 4)
		d.putU32(buf, proc.Word)
		info.write(buf)
		return nil
	}

	info.advanceBy(4)
	d.pending = append(d.pending, proc.Pending)
	return nil
}

func (d *driver) resolvePending() error {
	for _, u := range d.pending {
		target, ok := d.symbols[u.Label]
		if !ok {
			return newError(UndefinedSymbol, u.LabelSpan, "undefined label \""+u.Label+"\"")
		}

		textInfo, ktextInfo := d.infos[SegText], d.infos[SegKText]
		if !addrWithin(textInfo, target) && !addrWithin(ktextInfo, target) {
			return newError(WrongSegment, u.LabelSpan, "label \""+u.Label+"\" does not resolve inside text or ktext")
		}

		word, err := resolveUnresolved(u, target)
		if err != nil {
			return err
		}

		var seg *SegmentBuildInfo
		if addrWithin(textInfo, u.PC) {
			seg = textInfo
		} else if addrWithin(ktextInfo, u.PC) {
			seg = ktextInfo
		} else {
			return newError(WrongSegment, u.InstrSpan, "unresolved instruction does not live in text or ktext")
		}

		offset := u.PC - seg.Base
		buf := make([]byte, 4)
		d.putU32(buf, word)
		copy(seg.Bytes[offset:offset+4], buf)
	}
	return nil
}

// addrWithin reports whether addr lies in [base, next); for an empty
// segment (next == base) it is false for every addr.
func addrWithin(s *SegmentBuildInfo, addr uint32) bool {
	return addr >= s.Base && addr < s.Next
}

func resolveUnresolved(u *Unresolved, target uint32) (uint32, error) {
	switch u.Kind {
	case UnresolvedJump:
		info, _ := lookupMnemonic(u.Operator)
		opcode := OpJump
		if info.op.Tag == TagJumpAndLink {
			opcode = OpJumpAndLink
		}
		idx, err := jumpIndex(u.PC, target, u.LabelSpan)
		if err != nil {
			return 0, err
		}
		return packJ(opcode, idx), nil

	case UnresolvedBranch:
		info, _ := lookupMnemonic(u.Operator)
		off, err := branchOffset(u.PC, target, u.LabelSpan)
		if err != nil {
			return 0, err
		}
		rs, rt := 0, 0
		if len(u.Operands) > 0 {
			rs = u.Operands[0].Index
		}
		if len(u.Operands) > 1 {
			rt = u.Operands[1].Index
		}
		return packI(info.op.Opcode, rs, rt, off), nil

	case UnresolvedRegimmBranch:
		info, _ := lookupMnemonic(u.Operator)
		off, err := branchOffset(u.PC, target, u.LabelSpan)
		if err != nil {
			return 0, err
		}
		rs := 0
		if len(u.Operands) > 0 {
			rs = u.Operands[0].Index
		}
		return packRegimm(rs, info.op.Fn, off), nil

	case UnresolvedCop1Branch:
		info, _ := lookupMnemonic(u.Operator)
		off, err := branchOffset(u.PC, target, u.LabelSpan)
		if err != nil {
			return 0, err
		}
		cc := 0
		if len(u.Operands) > 0 {
			cc = int(u.Operands[0].Value)
		}
		return packCop1Branch(cc, info.op.Condition, off), nil

	default:
		return 0, newError(UnexpectedToken, u.InstrSpan, "unknown unresolved-instruction kind")
	}
}
