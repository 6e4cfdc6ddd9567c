package token

import (
	"strconv"
	"strings"
)

// cpuRegisterNames is indexed by register number; ABI names follow the
// standard MIPS o32 convention ($zero, $at, $v0-$v1, $a0-$a3, $t0-$t9,
// $s0-$s7, $k0-$k1, $gp, $sp, $fp, $ra).
var cpuRegisterNames = [32]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

var cpuRegisterIndex = func() map[string]int {
	m := make(map[string]int, len(cpuRegisterNames))
	for i, name := range cpuRegisterNames {
		m[name] = i
	}
	return m
}()

var cp0RegisterIndex = map[string]int{
	"vaddr":  0,
	"status": 1,
	"cause":  2,
	"epc":    3,
}

// escapeIntroducer is the byte that starts an escape inside a string
// literal; the lexer passes it and the byte after it through unchanged.
// Interpretation is deferred to the string escape builder (internal/asm),
// the lexer only needs to know where the string literal ends.
const escapeIntroducer = '\\'

// Lexer is a streaming tokenizer over raw source bytes.
type Lexer struct {
	src []byte
	pos int
}

// New returns a Lexer positioned at the start of src.
func New(src []byte) *Lexer {
	return &Lexer{src: src}
}

func (l *Lexer) peekByte() (byte, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *Lexer) byteAt(offset int) (byte, bool) {
	p := l.pos + offset
	if p >= len(l.src) {
		return 0, false
	}
	return l.src[p], true
}

func isHSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\r' }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentCont(b byte) bool {
	return isIdentStart(b) || isDigit(b) || b == '.'
}

// skipTrivia advances past horizontal whitespace and '#'-to-end-of-line
// comments, collapsing nothing by itself; newline collapsing happens in
// Next.
func (l *Lexer) skipTrivia() {
	for {
		b, ok := l.peekByte()
		if !ok {
			return
		}
		if isHSpace(b) {
			l.pos++
			continue
		}
		if b == '#' {
			for {
				b, ok := l.peekByte()
				if !ok || b == '\n' {
					break
				}
				l.pos++
			}
			continue
		}
		return
	}
}

// Next returns the next token. Adjacent newlines collapse into one
// Newline token. At end of input it returns an EOF token forever.
func (l *Lexer) Next() Token {
	l.skipTrivia()

	start := l.pos
	b, ok := l.peekByte()
	if !ok {
		return Token{Kind: EOF, Span: Span{Start: start, End: start}}
	}

	switch {
	case b == '\n':
		for {
			l.skipNewlineRun()
			l.skipTrivia()
			nb, ok := l.peekByte()
			if !ok || nb != '\n' {
				break
			}
		}
		return Token{Kind: Newline, Span: Span{Start: start, End: l.pos}}
	case b == ',':
		l.pos++
		return Token{Kind: Comma, Span: Span{Start: start, End: l.pos}}
	case b == ':':
		l.pos++
		return Token{Kind: Colon, Span: Span{Start: start, End: l.pos}}
	case b == '(':
		l.pos++
		return Token{Kind: LParen, Span: Span{Start: start, End: l.pos}}
	case b == ')':
		l.pos++
		return Token{Kind: RParen, Span: Span{Start: start, End: l.pos}}
	case b == '.':
		return l.lexDirective(start)
	case b == '$':
		return l.lexRegister(start)
	case b == '"':
		return l.lexString(start)
	case isDigit(b) || ((b == '-' || b == '+') && l.nextIsDigit()):
		return l.lexNumber(start)
	case isIdentStart(b):
		return l.lexIdentifier(start)
	default:
		l.pos++
		return Token{Kind: Error, ErrKind: ErrUnexpectedByte, Span: Span{Start: start, End: l.pos}}
	}
}

func (l *Lexer) skipNewlineRun() {
	for {
		b, ok := l.peekByte()
		if !ok || b != '\n' {
			return
		}
		l.pos++
	}
}

func (l *Lexer) nextIsDigit() bool {
	b, ok := l.byteAt(1)
	return ok && isDigit(b)
}

func (l *Lexer) lexDirective(start int) Token {
	l.pos++ // consume '.'
	nameStart := l.pos
	for {
		b, ok := l.peekByte()
		if !ok || !isIdentCont(b) {
			break
		}
		l.pos++
	}
	name := string(l.src[nameStart:l.pos])
	return Token{Kind: Directive, Text: name, Span: Span{Start: start, End: l.pos}}
}

func (l *Lexer) lexIdentifier(start int) Token {
	for {
		b, ok := l.peekByte()
		if !ok || !isIdentCont(b) {
			break
		}
		l.pos++
	}
	return Token{Kind: Identifier, Text: string(l.src[start:l.pos]), Span: Span{Start: start, End: l.pos}}
}

func (l *Lexer) lexRegister(start int) Token {
	l.pos++ // consume '$'
	nameStart := l.pos
	for {
		b, ok := l.peekByte()
		if !ok || !(isIdentCont(b)) {
			break
		}
		l.pos++
	}
	name := string(l.src[nameStart:l.pos])
	span := Span{Start: start, End: l.pos}

	if idx, ok := cpuRegisterIndex[name]; ok {
		return Token{Kind: Register, RegKind: RegCPU, RegIndex: idx, RegName: name, Span: span}
	}
	if idx, ok := cp0RegisterIndex[name]; ok {
		return Token{Kind: Register, RegKind: RegCP0, RegIndex: idx, RegName: name, Span: span}
	}
	if strings.HasPrefix(name, "f") {
		if n, err := strconv.Atoi(name[1:]); err == nil && n >= 0 && n <= 31 {
			return Token{Kind: Register, RegKind: RegFPU, RegIndex: n, RegName: name, Span: span}
		}
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 0 && n <= 31 {
		return Token{Kind: Register, RegKind: RegCPU, RegIndex: n, RegName: cpuRegisterNames[n], Span: span}
	}

	return Token{Kind: Error, ErrKind: ErrUnknownRegister, Text: name, Span: span}
}

func (l *Lexer) lexString(start int) Token {
	l.pos++ // consume opening quote
	var sb strings.Builder
	for {
		b, ok := l.peekByte()
		if !ok {
			return Token{Kind: Error, ErrKind: ErrUnterminatedString, Span: Span{Start: start, End: l.pos}}
		}
		if b == '"' {
			l.pos++
			return Token{Kind: StringLiteral, StringValue: sb.String(), Span: Span{Start: start, End: l.pos}}
		}
		if b == escapeIntroducer {
			sb.WriteByte(b)
			l.pos++
			nb, ok := l.peekByte()
			if !ok {
				return Token{Kind: Error, ErrKind: ErrUnterminatedString, Span: Span{Start: start, End: l.pos}}
			}
			sb.WriteByte(nb)
			l.pos++
			continue
		}
		sb.WriteByte(b)
		l.pos++
	}
}

func (l *Lexer) lexNumber(start int) Token {
	neg := false
	if b, _ := l.peekByte(); b == '-' || b == '+' {
		neg = b == '-'
		l.pos++
	}

	digitsStart := l.pos
	base := 10
	if b, ok := l.peekByte(); ok && b == '0' {
		if nb, ok := l.byteAt(1); ok && (nb == 'x' || nb == 'X') {
			base = 16
			l.pos += 2
			digitsStart = l.pos
		} else if ok && (nb == 'o' || nb == 'O') {
			base = 8
			l.pos += 2
			digitsStart = l.pos
		}
	}

	isFloat := false
	for {
		b, ok := l.peekByte()
		if !ok {
			break
		}
		if base == 10 && b == '.' {
			if nb, ok2 := l.byteAt(1); ok2 && isDigit(nb) {
				isFloat = true
				l.pos++
				continue
			}
			break
		}
		if base == 10 && (b == 'e' || b == 'E') {
			isFloat = true
			l.pos++
			if nb, ok2 := l.peekByte(); ok2 && (nb == '+' || nb == '-') {
				l.pos++
			}
			continue
		}
		if isHexDigit(b, base) {
			l.pos++
			continue
		}
		break
	}

	text := string(l.src[digitsStart:l.pos])
	span := Span{Start: start, End: l.pos}

	if isFloat {
		full := string(l.src[start:l.pos])
		f, err := strconv.ParseFloat(full, 32)
		if err != nil {
			return Token{Kind: Error, ErrKind: ErrMalformedNumber, Span: span}
		}
		return Token{Kind: FloatLiteral, FloatValue: float32(f), Span: span}
	}

	if text == "" {
		return Token{Kind: Error, ErrKind: ErrMalformedNumber, Span: span}
	}

	v, err := strconv.ParseUint(text, base, 64)
	if err != nil {
		return Token{Kind: Error, ErrKind: ErrIntOverflow, Span: span}
	}
	if neg {
		signed := -int64(v)
		if signed < int64(int32min) || signed > int64(int32max) {
			return Token{Kind: Error, ErrKind: ErrIntOverflow, Span: span}
		}
		return Token{Kind: IntLiteral, IntValue: uint32(int32(signed)), Span: span}
	}
	if v > uint64(uint32max) {
		return Token{Kind: Error, ErrKind: ErrIntOverflow, Span: span}
	}
	return Token{Kind: IntLiteral, IntValue: uint32(v), Span: span}
}

const (
	int32min  = -2147483648
	int32max  = 2147483647
	uint32max = 4294967295
)

func isHexDigit(b byte, base int) bool {
	switch base {
	case 16:
		return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
	case 8:
		return b >= '0' && b <= '7'
	default:
		return isDigit(b)
	}
}
