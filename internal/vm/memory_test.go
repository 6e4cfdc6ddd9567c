package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMemoryLayout() MemoryLayout {
	return MemoryLayout{
		TextBase:     0x00400000,
		KTextBase:    0x80000000,
		ExternBase:   0x10000000,
		ExternSize:   0x100,
		DataBase:     0x10010000,
		DataSize:     0x1000,
		HeapSize:     0x1000,
		StackBase:    0x7ffffffc,
		StackSize:    0x1000,
		KDataBase:    0x90000000,
		KDataSize:    0x100,
		MMIOBase:     0xffff0000,
		MMIOSize:     0x100,
		LittleEndian: true,
	}
}

func TestMemoryReadWriteU32RoundTrip(t *testing.T) {
	m := NewMemory(testMemoryLayout())
	exc := m.WriteU32(m.Data.Base, 0xdeadbeef, true)
	require.Nil(t, exc)

	got, exc := m.ReadU32(m.Data.Base, true)
	require.Nil(t, exc)
	assert.Equal(t, uint32(0xdeadbeef), got)
}

func TestMemoryWriteU32UnalignedFails(t *testing.T) {
	m := NewMemory(testMemoryLayout())
	exc := m.WriteU32(m.Data.Base+1, 1, true)
	require.NotNil(t, exc)
	assert.Equal(t, ExcInvalidStore, exc.Kind)
}

func TestMemoryReadU16Endianness(t *testing.T) {
	layout := testMemoryLayout()
	layout.LittleEndian = false
	m := NewMemory(layout)
	require.Nil(t, m.WriteU16(m.Data.Base, 0x1234, true))

	b0, _ := m.ReadU8(m.Data.Base)
	b1, _ := m.ReadU8(m.Data.Base + 1)
	assert.Equal(t, byte(0x12), b0)
	assert.Equal(t, byte(0x34), b1)
}

func TestMemoryTextRegionIsNotWritableByDefault(t *testing.T) {
	m := NewMemory(testMemoryLayout())
	m.Text.Words = []uint32{0x00000000}
	exc := m.WriteU8(m.Text.Base, 0xff)
	require.NotNil(t, exc)
	assert.Equal(t, ExcInvalidStore, exc.Kind)
}

func TestMemoryTextRegionWritableWhenSelfModifyingCodeEnabled(t *testing.T) {
	m := NewMemory(testMemoryLayout())
	m.SelfModifyingCode = true
	m.Text.Words = []uint32{0x00000000}
	exc := m.WriteU8(m.Text.Base, 0xff)
	require.Nil(t, exc)
	word, exc := m.FetchInstruction(m.Text.Base)
	require.Nil(t, exc)
	assert.Equal(t, uint32(0xff), word)
}

func TestMemoryOutOfRangeLoadFaults(t *testing.T) {
	m := NewMemory(testMemoryLayout())
	_, exc := m.ReadU8(0x00000001)
	require.NotNil(t, exc)
	assert.Equal(t, ExcInvalidLoad, exc.Kind)
}

func TestSbrkGrowsHeapAndReportsFailure(t *testing.T) {
	m := NewMemory(testMemoryLayout())
	addr, exc := m.Sbrk(16, false)
	require.Nil(t, exc)
	assert.Equal(t, m.Heap.Base, addr)
	assert.Equal(t, m.Heap.Base+16, m.HeapNext())

	// exhaust the rest of the heap, then ask for more than remains
	_, exc = m.Sbrk(int32(m.HeapFreeBytes()), false)
	require.Nil(t, exc)
	assert.Equal(t, uint32(0), m.HeapFreeBytes())
	addr, exc = m.Sbrk(16, false)
	require.Nil(t, exc)
	assert.Equal(t, uint32(0), addr)
}

func TestSbrkShrinkRequiresFreeableHeapAllocations(t *testing.T) {
	m := NewMemory(testMemoryLayout())
	_, exc := m.Sbrk(16, false)
	require.Nil(t, exc)

	_, exc = m.Sbrk(-8, false)
	require.NotNil(t, exc)
	assert.Equal(t, ExcSyscallFailure, exc.Kind)
	assert.Equal(t, HeapFreeDisabled, exc.SyscallSubkind)

	_, exc = m.Sbrk(-8, true)
	require.Nil(t, exc)
}

func TestPastTextEnd(t *testing.T) {
	m := NewMemory(testMemoryLayout())
	m.Text.Words = []uint32{0, 0}
	assert.False(t, m.PastTextEnd(m.Text.Base))
	assert.True(t, m.PastTextEnd(m.Text.Base+8))
}
