package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDriverConfig() DriverConfig {
	return DriverConfig{
		TextBase:     0x00400000,
		KTextBase:    0x80000000,
		ExternBase:   0x10000000,
		DataBase:     0x10010000,
		KDataBase:    0x90000000,
		LittleEndian: true,
	}
}

func TestAssembleSimpleTextSegment(t *testing.T) {
	exprs, err := ParseAll([]byte(".text\nadd $t0, $t1, $t2\n"))
	require.NoError(t, err)

	build, err := Assemble(exprs, testDriverConfig())
	require.NoError(t, err)
	require.Contains(t, build.Segments, SegText)
	assert.Len(t, build.Segments[SegText], 4)
}

func TestAssembleDataSegmentWordLayout(t *testing.T) {
	exprs, err := ParseAll([]byte(".data\n.word 0x11223344\n"))
	require.NoError(t, err)

	build, err := Assemble(exprs, testDriverConfig())
	require.NoError(t, err)
	require.Contains(t, build.Segments, SegData)
	// little endian: low byte first
	assert.Equal(t, []byte{0x44, 0x33, 0x22, 0x11}, build.Segments[SegData])
}

func TestAssembleForwardLabelResolvesOnSecondPass(t *testing.T) {
	src := `.text
	beq $t0, $t1, done
	add $t0, $t0, $t0
done:
	add $t1, $t1, $t1
`
	exprs, err := ParseAll([]byte(src))
	require.NoError(t, err)

	build, err := Assemble(exprs, testDriverConfig())
	require.NoError(t, err)
	require.Contains(t, build.Segments, SegText)
	assert.Len(t, build.Segments[SegText], 12)
}

func TestAssembleUndefinedSymbolFails(t *testing.T) {
	exprs, err := ParseAll([]byte(".text\nbeq $t0, $t1, nowhere\n"))
	require.NoError(t, err)

	_, err = Assemble(exprs, testDriverConfig())
	require.Error(t, err)
	ae, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, UndefinedSymbol, ae.Kind)
}

func TestAssembleMultipleDefinitionsFails(t *testing.T) {
	src := ".text\nfoo:\n\tadd $t0,$t0,$t0\nfoo:\n\tadd $t0,$t0,$t0\n"
	exprs, err := ParseAll([]byte(src))
	require.NoError(t, err)

	_, err = Assemble(exprs, testDriverConfig())
	require.Error(t, err)
	ae, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, MultipleDefinitions, ae.Kind)
}

func TestAssembleInstructionOutsideTextSegmentFails(t *testing.T) {
	exprs, err := ParseAll([]byte(".data\nadd $t0, $t1, $t2\n"))
	require.NoError(t, err)

	_, err = Assemble(exprs, testDriverConfig())
	require.Error(t, err)
}

func TestAssembleAlignDirective(t *testing.T) {
	exprs, err := ParseAll([]byte(".data\n.byte 1\n.align 2\n.word 1\n"))
	require.NoError(t, err)

	build, err := Assemble(exprs, testDriverConfig())
	require.NoError(t, err)
	// 1 byte, padded to 4-byte alignment, then a word
	assert.Len(t, build.Segments[SegData], 8)
}

func TestAssembleBigEndianWordLayout(t *testing.T) {
	exprs, err := ParseAll([]byte(".data\n.word 0x11223344\n"))
	require.NoError(t, err)

	cfg := testDriverConfig()
	cfg.LittleEndian = false
	build, err := Assemble(exprs, cfg)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x44}, build.Segments[SegData])
}
