package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allTokens(src string) []Token {
	l := New([]byte(src))
	var toks []Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks
		}
	}
}

func TestLexIdentifiersAndDirectives(t *testing.T) {
	toks := allTokens(".text\nmain:\n\tadd $t0, $t1, $t2")

	require.GreaterOrEqual(t, len(toks), 6)
	assert.Equal(t, Directive, toks[0].Kind)
	assert.Equal(t, "text", toks[0].Text)

	assert.Equal(t, Newline, toks[1].Kind)
	assert.Equal(t, Identifier, toks[2].Kind)
	assert.Equal(t, "main", toks[2].Text)
	assert.Equal(t, Colon, toks[3].Kind)
}

func TestLexRegisterNamesAndNumbers(t *testing.T) {
	toks := allTokens("$t0 $31 $f12 $status")
	require.Len(t, toks, 5) // 4 registers + EOF

	assert.Equal(t, Register, toks[0].Kind)
	assert.Equal(t, RegCPU, toks[0].RegKind)
	assert.Equal(t, 8, toks[0].RegIndex)

	assert.Equal(t, Register, toks[1].Kind)
	assert.Equal(t, RegCPU, toks[1].RegKind)
	assert.Equal(t, 31, toks[1].RegIndex)
	assert.Equal(t, "ra", toks[1].RegName)

	assert.Equal(t, Register, toks[2].Kind)
	assert.Equal(t, RegFPU, toks[2].RegKind)
	assert.Equal(t, 12, toks[2].RegIndex)

	assert.Equal(t, Register, toks[3].Kind)
	assert.Equal(t, RegCP0, toks[3].RegKind)
	assert.Equal(t, 1, toks[3].RegIndex)
}

func TestLexUnknownRegisterIsError(t *testing.T) {
	toks := allTokens("$bogus")
	require.Len(t, toks, 2)
	assert.Equal(t, Error, toks[0].Kind)
	assert.Equal(t, ErrUnknownRegister, toks[0].ErrKind)
}

func TestLexIntegerLiteralBases(t *testing.T) {
	toks := allTokens("10 0x1F 0o17 -5")
	require.Len(t, toks, 5)
	assert.Equal(t, uint32(10), toks[0].IntValue)
	assert.Equal(t, uint32(0x1F), toks[1].IntValue)
	assert.Equal(t, uint32(0o17), toks[2].IntValue)
	assert.Equal(t, uint32(0xFFFFFFFB), toks[3].IntValue) // -5 as uint32
}

func TestLexIntegerOverflow(t *testing.T) {
	toks := allTokens("0xFFFFFFFFFF")
	require.Len(t, toks, 2)
	assert.Equal(t, Error, toks[0].Kind)
	assert.Equal(t, ErrIntOverflow, toks[0].ErrKind)
}

func TestLexFloatLiteral(t *testing.T) {
	toks := allTokens("3.14 2e3")
	require.Len(t, toks, 3)
	assert.Equal(t, FloatLiteral, toks[0].Kind)
	assert.InDelta(t, 3.14, toks[0].FloatValue, 0.001)
	assert.Equal(t, FloatLiteral, toks[1].Kind)
	assert.InDelta(t, 2000.0, toks[1].FloatValue, 0.001)
}

func TestLexStringEscapesPassthrough(t *testing.T) {
	toks := allTokens(`"hello\nworld\""`)
	require.Len(t, toks, 2)
	assert.Equal(t, StringLiteral, toks[0].Kind)
	assert.Equal(t, `hello\nworld\"`, toks[0].StringValue)
}

func TestLexUnterminatedString(t *testing.T) {
	toks := allTokens(`"no closing quote`)
	require.Len(t, toks, 2)
	assert.Equal(t, Error, toks[0].Kind)
	assert.Equal(t, ErrUnterminatedString, toks[0].ErrKind)
}

func TestLexCommentsAreSkipped(t *testing.T) {
	toks := allTokens("add $t0, $t1, $t2 # a comment\nsub $t0, $t1, $t2")
	// should not see any Error tokens from the comment text
	for _, tok := range toks {
		assert.NotEqual(t, Error, tok.Kind)
	}
}

func TestLexAdjacentNewlinesCollapse(t *testing.T) {
	toks := allTokens("add\n\n\n\nsub")
	require.Len(t, toks, 4) // add, newline, sub, EOF
	assert.Equal(t, Newline, toks[1].Kind)
}

func TestSpanJoin(t *testing.T) {
	a := Span{Start: 5, End: 10}
	b := Span{Start: 2, End: 7}
	got := Join(a, b)
	assert.Equal(t, Span{Start: 2, End: 10}, got)
}
