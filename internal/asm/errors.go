package asm

import (
	"fmt"

	"github.com/pkg/errors"
	"mipsim/internal/token"
)

// ErrorKind tags the fatal build-time diagnostics a source file can
// produce, per the rich-error error plane.
type ErrorKind int

const (
	UnknownOperator ErrorKind = iota
	UnknownDirective
	UnexpectedToken
	PrematureEof
	ValueOutsideRange
	WrongType
	WrongSegment
	MultipleDefinitions
	UndefinedSymbol
	OffsetTooLarge
	JumpTooLarge
	ProgramCounterOverflow
	JumpBehind
	UnsupportedDirective
	InvalidEscapeSequence
	UnterminatedStringLiteral
	InvalidUtf8
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownOperator:
		return "unknown operator"
	case UnknownDirective:
		return "unknown directive"
	case UnexpectedToken:
		return "unexpected token"
	case PrematureEof:
		return "premature end of file"
	case ValueOutsideRange:
		return "value outside range"
	case WrongType:
		return "wrong type"
	case WrongSegment:
		return "wrong segment"
	case MultipleDefinitions:
		return "multiple definitions"
	case UndefinedSymbol:
		return "undefined symbol"
	case OffsetTooLarge:
		return "offset too large"
	case JumpTooLarge:
		return "jump too large"
	case ProgramCounterOverflow:
		return "program counter overflow"
	case JumpBehind:
		return "segment cursor moved backward"
	case UnsupportedDirective:
		return "unsupported directive"
	case InvalidEscapeSequence:
		return "invalid escape sequence"
	case UnterminatedStringLiteral:
		return "unterminated string literal"
	case InvalidUtf8:
		return "invalid UTF-8"
	default:
		return "build error"
	}
}

// Error is a rich, span-carrying build-time diagnostic. It satisfies the
// error interface directly; a lower-level cause (a strconv failure, say)
// is attached with wrapError rather than re-derived.
type Error struct {
	Kind         ErrorKind
	Primary      token.Span
	Secondary    *token.Span
	Help         string
	Note         string
	cause        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s at %d..%d", e.Kind, e.Primary.Start, e.Primary.End)
	if e.Help != "" {
		msg += ": " + e.Help
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// newError builds a bare Error at a single span.
func newError(kind ErrorKind, span token.Span, help string) *Error {
	return &Error{Kind: kind, Primary: span, Help: help}
}

// wrapError attaches a lower-level cause without losing the rich payload.
func wrapError(kind ErrorKind, span token.Span, help string, cause error) *Error {
	return &Error{Kind: kind, Primary: span, Help: help, cause: errors.WithStack(cause)}
}

func withNote(e *Error, note string) *Error {
	e.Note = note
	return e
}

func withSecondary(e *Error, span token.Span) *Error {
	e.Secondary = &span
	return e
}
