package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mipsim/internal/asm"
)

func assembleAndRun(t *testing.T, source string, stdin string) (*Interpreter, *Exception, string) {
	t.Helper()
	exprs, err := asm.ParseAll([]byte(source))
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
	it := NewInterpreter(mem, strings.NewReader(stdin), &stdout, &stdout)
	exc := it.Run()
	return it, exc, stdout.String()
}

func TestInterpreterAddAndExit(t *testing.T) {
	src := `.text
	addi $t0, $zero, 5
	addi $t1, $zero, 7
	add $t2, $t0, $t1
	addi $v0, $zero, 10
	syscall
`
	it, exc, _ := assembleAndRun(t, src, "")
	require.Nil(t, exc)
	assert.True(t, it.Exited())
	assert.Equal(t, uint32(12), it.Regs.ReadGPR(10)) // $t2
	assert.Equal(t, int32(0), it.ExitCode())
}

func TestInterpreterPrintIntSyscall(t *testing.T) {
	src := `.text
	addi $a0, $zero, 42
	addi $v0, $zero, 1
	syscall
	addi $v0, $zero, 10
	syscall
`
	_, exc, out := assembleAndRun(t, src, "")
	require.Nil(t, exc)
	assert.Equal(t, "42", out)
}

func TestInterpreterPrintStringSyscall(t *testing.T) {
	src := `.data
msg:	.asciiz "hi"
.text
	lui $a0, 0x1001
	ori $a0, $a0, 0x0000
	addi $v0, $zero, 4
	syscall
	addi $v0, $zero, 10
	syscall
`
	_, exc, out := assembleAndRun(t, src, "")
	require.Nil(t, exc)
	assert.Equal(t, "hi", out)
}

func TestInterpreterDivideByZeroFaults(t *testing.T) {
	src := `.text
	addi $t0, $zero, 1
	addi $t1, $zero, 0
	div $t0, $t1
	mflo $t2
`
	_, exc, _ := assembleAndRun(t, src, "")
	require.NotNil(t, exc)
	assert.Equal(t, ExcDivideByZero, exc.Kind)
}

func TestInterpreterBranchTaken(t *testing.T) {
	src := `.text
	addi $t0, $zero, 1
	addi $t1, $zero, 1
	beq $t0, $t1, target
	addi $t2, $zero, 999
target:
	addi $t3, $zero, 123
	addi $v0, $zero, 10
	syscall
`
	it, exc, _ := assembleAndRun(t, src, "")
	require.Nil(t, exc)
	assert.Equal(t, uint32(0), it.Regs.ReadGPR(10)) // $t2 untouched
	assert.Equal(t, uint32(123), it.Regs.ReadGPR(11)) // $t3
}

func TestInterpreterWalkOffEndOfTextExitsZero(t *testing.T) {
	src := `.text
	addi $t0, $zero, 1
`
	it, exc, _ := assembleAndRun(t, src, "")
	require.Nil(t, exc)
	assert.True(t, it.Exited())
	assert.Equal(t, int32(0), it.ExitCode())
}

func TestInterpreterUnalignedLoadFaults(t *testing.T) {
	src := `.text
	addi $t0, $zero, 1
	lw $t1, 0($t0)
`
	_, exc, _ := assembleAndRun(t, src, "")
	require.NotNil(t, exc)
	assert.Equal(t, ExcInvalidLoad, exc.Kind)
}
