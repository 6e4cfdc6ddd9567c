package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mipsim/internal/asm"
)

func TestConfiguredExceptionHandlerAbsorbsFault(t *testing.T) {
	src := `.ktext
handler:
	addi $v0, $zero, 10
	syscall
.text
	lw $t0, 1($zero)
`
	exprs, err := asm.ParseAll([]byte(src))
	require.NoError(t, err)

	cfg := asm.DriverConfig{
		TextBase:     0x00400000,
		KTextBase:    0x80000000,
		ExternBase:   0x10000000,
		DataBase:     0x10010000,
		KDataBase:    0x90000000,
		LittleEndian: true,
	}
	build, err := asm.Assemble(exprs, cfg)
	require.NoError(t, err)

	mem := NewMemory(testMemoryLayout())
	for name, bs := range build.Segments {
		mem.LoadSegment(name.String(), bs)
	}
	handlerAddr := uint32(0x80000000)
	mem.ExceptionHandler = &handlerAddr

	var stdout bytes.Buffer
	it := NewInterpreter(mem, strings.NewReader(""), &stdout, &stdout)

	faultingPC := it.PC
	exc := it.Run()

	require.Nil(t, exc, "a configured handler must absorb the fault rather than propagate it")
	assert.True(t, it.Exited())
	assert.Equal(t, int32(0), it.ExitCode())
	assert.Equal(t, uint32(1), it.Regs.Vaddr)
	assert.NotZero(t, it.Regs.Status&0x2)
	wantCause := (&Exception{Kind: ExcInvalidLoad}).CauseCode()
	assert.Equal(t, wantCause<<2, it.Regs.Cause&(0x1f<<2))
	assert.Equal(t, faultingPC, it.Regs.Epc)
}

func TestUnconfiguredExceptionHandlerPropagatesFault(t *testing.T) {
	src := `.text
	lw $t0, 1($zero)
`
	exprs, err := asm.ParseAll([]byte(src))
	require.NoError(t, err)

	cfg := asm.DriverConfig{
		TextBase:     0x00400000,
		KTextBase:    0x80000000,
		ExternBase:   0x10000000,
		DataBase:     0x10010000,
		KDataBase:    0x90000000,
		LittleEndian: true,
	}
	build, err := asm.Assemble(exprs, cfg)
	require.NoError(t, err)

	mem := NewMemory(testMemoryLayout())
	for name, bs := range build.Segments {
		mem.LoadSegment(name.String(), bs)
	}

	var stdout bytes.Buffer
	it := NewInterpreter(mem, strings.NewReader(""), &stdout, &stdout)
	exc := it.Run()
	require.NotNil(t, exc)
	assert.Equal(t, ExcInvalidLoad, exc.Kind)
}
