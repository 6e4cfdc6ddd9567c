package asm

import "mipsim/internal/token"

// OperandKind tags the shape of a parsed Operand.
type OperandKind int

const (
	OperandInt OperandKind = iota
	OperandRegister
	OperandIndirect // offset($reg): Value holds the offset, Index the base register
	OperandLabel
)

// Operand is one argument to an instruction, directive, or value array.
type Operand struct {
	Kind  OperandKind
	Value int32
	Reg   token.RegisterKind
	Index int
	Label string
	Span  token.Span

	// IsFloat and DoubleBits carry a .double value-array element's full
	// 64-bit IEEE754 pattern; Value cannot hold it. Unused elsewhere.
	IsFloat    bool
	DoubleBits uint64
}

// SegmentName names one of the five build-time segments.
type SegmentName int

const (
	SegText SegmentName = iota
	SegKText
	SegExtern
	SegData
	SegKData
)

func (s SegmentName) String() string {
	switch s {
	case SegText:
		return "text"
	case SegKText:
		return "ktext"
	case SegExtern:
		return "extern"
	case SegData:
		return "data"
	case SegKData:
		return "kdata"
	default:
		return "?segment?"
	}
}

// ScalarType is the element type of a value-array directive.
type ScalarType int

const (
	ScalarByte ScalarType = iota
	ScalarHalf
	ScalarWord
	ScalarFloat
	ScalarDouble
)

// ExprKind discriminates the Expression sum type.
type ExprKind int

const (
	ExprSegmentHeader ExprKind = iota
	ExprAlign
	ExprSpace
	ExprInclude
	ExprEqv
	ExprSet
	ExprGlobal
	ExprValueArray
	ExprStringLiteral
	ExprLabelDef
	ExprInstruction
)

// ValueAndSpan pairs a parsed scalar operand with the span it came from,
// so the driver can report "wrong type" against the exact token.
type ValueAndSpan struct {
	Value Operand
	Span  token.Span
}

// Expression is one parsed logical line.
type Expression struct {
	Kind ExprKind
	Span token.Span

	// ExprSegmentHeader
	Segment       SegmentName
	SegmentAddr   *uint32

	// ExprAlign
	AlignExponent uint8

	// ExprSpace
	SpaceBytes uint32

	// ExprInclude
	IncludePath string

	// ExprEqv
	EqvName string
	EqvBody *Expression

	// ExprSet / label-like single-identifier forms
	Ident string

	// ExprGlobal
	GlobalNames []string

	// ExprValueArray
	Scalar ScalarType
	Values []ValueAndSpan

	// ExprStringLiteral
	StringDirective string // "ascii" or "asciiz"
	StringRaw       string

	// ExprLabelDef: Ident holds the label name

	// ExprInstruction
	Operator string
	Operands []Operand
}
