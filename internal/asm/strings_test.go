package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStringSimpleEscapes(t *testing.T) {
	out, err := buildString(`hello\n\tworld\\`, zeroSpan)
	require.NoError(t, err)
	assert.Equal(t, "hello\n\tworld\\", string(out))
}

func TestBuildStringHexEscape(t *testing.T) {
	out, err := buildString(`\x41\x42`, zeroSpan)
	require.NoError(t, err)
	assert.Equal(t, "AB", string(out))
}

func TestBuildStringOctalEscape(t *testing.T) {
	out, err := buildString(`\101\102`, zeroSpan)
	require.NoError(t, err)
	assert.Equal(t, "AB", string(out))
}

func TestBuildStringUnicodeEscape(t *testing.T) {
	out, err := buildString(`\u0041`, zeroSpan)
	require.NoError(t, err)
	assert.Equal(t, "A", string(out))
}

func TestBuildStringTrailingBackslashErrors(t *testing.T) {
	_, err := buildString(`abc\`, zeroSpan)
	require.Error(t, err)
}

func TestBuildStringUnrecognizedEscapeErrors(t *testing.T) {
	_, err := buildString(`\q`, zeroSpan)
	require.Error(t, err)
	ae, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, InvalidEscapeSequence, ae.Kind)
}

func TestSegmentBuildInfoAdvanceAndWrite(t *testing.T) {
	info := newSegmentBuildInfo(0x1000)
	info.write([]byte{1, 2, 3})
	assert.Equal(t, uint32(0x1003), info.Next)

	require.NoError(t, info.advanceTo(0x1008))
	assert.Len(t, info.Bytes, 8)
	assert.True(t, info.contains(0x1003))
	assert.False(t, info.contains(0x1008))
}

func TestSegmentBuildInfoRejectsBackwardMove(t *testing.T) {
	info := newSegmentBuildInfo(0x1000)
	info.write([]byte{1, 2, 3, 4})
	err := info.advanceTo(0x1000)
	require.Error(t, err)
}
