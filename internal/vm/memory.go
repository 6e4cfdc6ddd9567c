package vm

import "encoding/binary"

// WordRegion is a vector of 32-bit words covering a contiguous address
// range (the text/ktext segments).
type WordRegion struct {
	Base  uint32
	Words []uint32
}

func (w *WordRegion) size() uint32 { return uint32(len(w.Words)) * 4 }
func (w *WordRegion) end() uint32  { return w.Base + w.size() }
func (w *WordRegion) contains(addr uint32) bool {
	return len(w.Words) > 0 && addr >= w.Base && addr < w.end()
}

// ByteRegion is a byte-addressable vector covering a contiguous address
// range (extern/data/heap/stack/kdata/mmio).
type ByteRegion struct {
	Base  uint32
	Bytes []byte
}

func (b *ByteRegion) size() uint32 { return uint32(len(b.Bytes)) }
func (b *ByteRegion) end() uint32  { return b.Base + b.size() }
func (b *ByteRegion) contains(addr uint32) bool {
	return len(b.Bytes) > 0 && addr >= b.Base && addr < b.end()
}

// Memory is the segmented simulated address space: two word regions for
// code and six byte regions for data, plus heap bookkeeping and the
// endianness/self-modifying-code policy instructions consult.
type Memory struct {
	Text, KText                                    *WordRegion
	Extern, Data, Heap, Stack, KData, MMIO          *ByteRegion
	LittleEndian                                    bool
	SelfModifyingCode                               bool
	ExceptionHandler                                *uint32

	heapNext      uint32
	heapFreeBytes uint32
}

// NewMemory builds an empty Memory with the given base addresses and
// sizes; byte regions are zero-filled to their configured size up front
// so heap/stack addressing is well defined from the start.
func NewMemory(cfg MemoryLayout) *Memory {
	m := &Memory{
		Text:         &WordRegion{Base: cfg.TextBase},
		KText:        &WordRegion{Base: cfg.KTextBase},
		Extern:       &ByteRegion{Base: cfg.ExternBase, Bytes: make([]byte, cfg.ExternSize)},
		Data:         &ByteRegion{Base: cfg.DataBase, Bytes: make([]byte, cfg.DataSize)},
		Heap:         &ByteRegion{Base: cfg.DataBase + cfg.DataSize, Bytes: make([]byte, cfg.HeapSize)},
		Stack:        &ByteRegion{Base: cfg.StackBase - cfg.StackSize + 1, Bytes: make([]byte, cfg.StackSize)},
		KData:        &ByteRegion{Base: cfg.KDataBase, Bytes: make([]byte, cfg.KDataSize)},
		MMIO:         &ByteRegion{Base: cfg.MMIOBase, Bytes: make([]byte, cfg.MMIOSize)},
		LittleEndian: cfg.LittleEndian,
	}
	m.heapNext = m.Heap.Base
	m.heapFreeBytes = cfg.HeapSize
	return m
}

// MemoryLayout is the subset of internal/config.Config the memory model
// needs to lay out its regions.
type MemoryLayout struct {
	TextBase, KTextBase                     uint32
	ExternBase, ExternSize                  uint32
	DataBase, DataSize                      uint32
	HeapSize                                uint32
	StackBase, StackSize                    uint32
	KDataBase, KDataSize                    uint32
	MMIOBase, MMIOSize                      uint32
	LittleEndian                            bool
}

// LoadSegment copies a raw byte buffer (as produced by the assembler
// driver and written to disk) into the region it names, decoding text
// segments into words.
func (m *Memory) LoadSegment(name string, data []byte) {
	switch name {
	case "text":
		m.Text.Words = bytesToWords(data, m.LittleEndian)
	case "ktext":
		m.KText.Words = bytesToWords(data, m.LittleEndian)
	case "extern":
		copy(m.Extern.Bytes, data)
	case "data":
		copy(m.Data.Bytes, data)
	case "kdata":
		copy(m.KData.Bytes, data)
	}
}

func bytesToWords(data []byte, little bool) []uint32 {
	n := (len(data) + 3) / 4
	words := make([]uint32, n)
	for i := 0; i < n; i++ {
		var chunk [4]byte
		copy(chunk[:], data[i*4:])
		if little {
			words[i] = binary.LittleEndian.Uint32(chunk[:])
		} else {
			words[i] = binary.BigEndian.Uint32(chunk[:])
		}
	}
	return words
}

// InitialPC returns the start of the text region.
func (m *Memory) InitialPC() uint32 { return m.Text.Base }

// PastTextEnd reports whether pc has walked off the end of every
// populated text region.
func (m *Memory) PastTextEnd(pc uint32) bool {
	if m.Text.contains(pc) || m.KText.contains(pc) {
		return false
	}
	return true
}

// FetchInstruction reads the word at pc from whichever text region
// contains it.
func (m *Memory) FetchInstruction(pc uint32) (uint32, *Exception) {
	if pc%4 != 0 {
		return 0, excInvalidLoad(pc)
	}
	if m.Text.contains(pc) {
		return m.Text.Words[(pc-m.Text.Base)/4], nil
	}
	if m.KText.contains(pc) {
		return m.KText.Words[(pc-m.KText.Base)/4], nil
	}
	return 0, excInvalidLoad(pc)
}

func (m *Memory) byteRegions() []*ByteRegion {
	return []*ByteRegion{m.Extern, m.Data, m.Heap, m.Stack, m.KData, m.MMIO}
}

func (m *Memory) findByteRegion(addr uint32) *ByteRegion {
	for _, r := range m.byteRegions() {
		if r.contains(addr) {
			return r
		}
	}
	return nil
}

func (m *Memory) order() binary.ByteOrder {
	if m.LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func (m *Memory) isTextAddr(addr uint32) bool {
	return m.Text.contains(addr) || m.KText.contains(addr)
}

// ReadU8 reads one byte at addr.
func (m *Memory) ReadU8(addr uint32) (uint8, *Exception) {
	if m.isTextAddr(addr) {
		word, exc := m.FetchInstruction(addr - addr%4)
		if exc != nil {
			return 0, exc
		}
		buf := make([]byte, 4)
		m.order().PutUint32(buf, word)
		return buf[addr%4], nil
	}
	r := m.findByteRegion(addr)
	if r == nil {
		return 0, excInvalidLoad(addr)
	}
	return r.Bytes[addr-r.Base], nil
}

// WriteU8 writes one byte at addr.
func (m *Memory) WriteU8(addr uint32, v uint8) *Exception {
	if m.isTextAddr(addr) {
		if !m.SelfModifyingCode {
			return excInvalidStore(addr)
		}
		return m.writeTextByte(addr, v)
	}
	r := m.findByteRegion(addr)
	if r == nil {
		return excInvalidStore(addr)
	}
	r.Bytes[addr-r.Base] = v
	return nil
}

func (m *Memory) writeTextByte(addr uint32, v uint8) *Exception {
	wordAddr := addr - addr%4
	word, exc := m.FetchInstruction(wordAddr)
	if exc != nil {
		return exc
	}
	buf := make([]byte, 4)
	m.order().PutUint32(buf, word)
	buf[addr%4] = v
	nw := m.order().Uint32(buf)
	if m.Text.contains(wordAddr) {
		m.Text.Words[(wordAddr-m.Text.Base)/4] = nw
	} else {
		m.KText.Words[(wordAddr-m.KText.Base)/4] = nw
	}
	return nil
}

// ReadU16 reads a half word at addr; align, when true, rejects odd
// addresses with InvalidLoad.
func (m *Memory) ReadU16(addr uint32, align bool) (uint16, *Exception) {
	if align && addr%2 != 0 {
		return 0, excInvalidLoad(addr)
	}
	lo, exc := m.ReadU8(addr)
	if exc != nil {
		return 0, exc
	}
	hi, exc := m.ReadU8(addr + 1)
	if exc != nil {
		return 0, exc
	}
	return m.order().Uint16([]byte{lo, hi}), nil
}

// WriteU16 writes a half word at addr.
func (m *Memory) WriteU16(addr uint32, v uint16, align bool) *Exception {
	if align && addr%2 != 0 {
		return excInvalidStore(addr)
	}
	buf := make([]byte, 2)
	m.order().PutUint16(buf, v)
	if exc := m.WriteU8(addr, buf[0]); exc != nil {
		return exc
	}
	return m.WriteU8(addr+1, buf[1])
}

// ReadU32 reads a word at addr.
func (m *Memory) ReadU32(addr uint32, align bool) (uint32, *Exception) {
	if align && addr%4 != 0 {
		return 0, excInvalidLoad(addr)
	}
	if m.isTextAddr(addr) {
		return m.FetchInstruction(addr)
	}
	buf := make([]byte, 4)
	for i := 0; i < 4; i++ {
		b, exc := m.ReadU8(addr + uint32(i))
		if exc != nil {
			return 0, exc
		}
		buf[i] = b
	}
	return m.order().Uint32(buf), nil
}

// WriteU32 writes a word at addr.
func (m *Memory) WriteU32(addr uint32, v uint32, align bool) *Exception {
	if align && addr%4 != 0 {
		return excInvalidStore(addr)
	}
	buf := make([]byte, 4)
	m.order().PutUint32(buf, v)
	for i := 0; i < 4; i++ {
		if exc := m.WriteU8(addr+uint32(i), buf[i]); exc != nil {
			return exc
		}
	}
	return nil
}

// ReadU64 reads a double word at addr (used by ldc1).
func (m *Memory) ReadU64(addr uint32, align bool) (uint64, *Exception) {
	if align && addr%8 != 0 {
		return 0, excInvalidLoad(addr)
	}
	lo, exc := m.ReadU32(addr, false)
	if exc != nil {
		return 0, exc
	}
	hi, exc := m.ReadU32(addr+4, false)
	if exc != nil {
		return 0, exc
	}
	if m.LittleEndian {
		return uint64(lo) | uint64(hi)<<32, nil
	}
	return uint64(hi) | uint64(lo)<<32, nil
}

// WriteU64 writes a double word at addr (used by sdc1).
func (m *Memory) WriteU64(addr uint32, v uint64, align bool) *Exception {
	if align && addr%8 != 0 {
		return excInvalidStore(addr)
	}
	lo, hi := uint32(v), uint32(v>>32)
	if !m.LittleEndian {
		lo, hi = hi, lo
	}
	if exc := m.WriteU32(addr, lo, false); exc != nil {
		return exc
	}
	return m.WriteU32(addr+4, hi, false)
}

// HeapNext returns the next-available heap address.
func (m *Memory) HeapNext() uint32 { return m.heapNext }

// HeapFreeBytes returns the number of bytes remaining in the heap.
func (m *Memory) HeapFreeBytes() uint32 { return m.heapFreeBytes }

// Sbrk implements §4.7's heap allocator semantics and returns the
// allocated address (0 on failure to grow).
func (m *Memory) Sbrk(n int32, freeableHeapAllocations bool) (uint32, *Exception) {
	abs := n
	if abs < 0 {
		abs = -abs
	}
	rounded := (uint32(abs) + 3) &^ 3

	if n >= 0 {
		if rounded > m.heapFreeBytes {
			return 0, nil
		}
		addr := m.heapNext
		m.heapNext += rounded
		m.heapFreeBytes -= rounded
		return addr, nil
	}

	if !freeableHeapAllocations {
		return 0, excSyscall(HeapFreeDisabled, 0)
	}
	used := m.heapNext - m.Heap.Base
	shrink := rounded
	if shrink > used {
		shrink = used
	}
	m.heapNext -= shrink
	m.heapFreeBytes += shrink
	return m.heapNext, nil
}
