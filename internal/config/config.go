// Package config loads the TOML machine description that drives the
// assembler's segment bases and the interpreter's memory layout.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"mipsim/internal/asm"
	"mipsim/internal/vm"
)

// MemoryMap mirrors the [memory_map] table: base addresses and sizes for
// every segment the assembler and interpreter share.
type MemoryMap struct {
	TextBase   uint32 `toml:"text_base"`
	ExternBase uint32 `toml:"extern_base"`
	ExternSize uint32 `toml:"extern_size"`
	DataBase   uint32 `toml:"data_base"`
	DataSize   uint32 `toml:"data_size"`
	HeapSize   uint32 `toml:"heap_size"`
	StackBase  uint32 `toml:"stack_base"`
	StackSize  uint32 `toml:"stack_size"`
	KTextBase  uint32 `toml:"ktext_base"`
	KDataBase  uint32 `toml:"kdata_base"`
	KDataSize  uint32 `toml:"kdata_size"`
	MMIOBase   uint32 `toml:"mmio_base"`
	MMIOSize   uint32 `toml:"mmio_size"`
}

// Features mirrors the [features] table. DelaySlot is always false: the
// interpreter never implements a branch-delay slot, but the field stays
// here so a config author asking for one gets a loud rejection in
// cmd/mipsim rather than a silently ignored setting.
type Features struct {
	SelfModifyingCode       bool `toml:"self_modifying_code"`
	FreeableHeapAllocations bool `toml:"freeable_heap_allocations"`
	DelaySlot               bool `toml:"delay_slot"`
}

// Endianness mirrors the [endianness] table.
type Endianness struct {
	Little bool `toml:"little"`
}

// Config is the full decoded machine description.
type Config struct {
	MemoryMap               MemoryMap  `toml:"memory_map"`
	Features                Features   `toml:"features"`
	Endianness              Endianness `toml:"endianness"`
	ExceptionHandlerAddress *uint32    `toml:"exception_handler_address"`
}

// Default returns the MARS/SPIM-compatible configuration `run`/`assemble`
// fall back to when no --config file is given.
func Default() Config {
	return Config{
		MemoryMap: MemoryMap{
			TextBase:   0x00400000,
			ExternBase: 0x10000000,
			ExternSize: 0x00010000,
			DataBase:   0x10010000,
			DataSize:   0x00020000,
			HeapSize:   0x00010000,
			StackBase:  0x7FFFEFFC,
			StackSize:  0x00010000,
			KTextBase:  0x80000000,
			KDataBase:  0x90000000,
			KDataSize:  0x00010000,
			MMIOBase:   0xFFFF0000,
			MMIOSize:   0x00001000,
		},
		Features: Features{
			SelfModifyingCode:       false,
			FreeableHeapAllocations: true,
			DelaySlot:               false,
		},
		Endianness: Endianness{Little: true},
	}
}

// Load decodes the TOML file at path. A missing file is not an error:
// the caller gets Default() back. Unknown keys are rejected so a typo in
// the config can't silently fall back to a default the author didn't
// intend.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, err
	}

	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg)
	if err != nil {
		return Config{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown configuration key %q", undecoded[0].String())
	}
	return cfg, nil
}

// MemoryLayout converts the decoded memory map into the shape
// vm.NewMemory consumes.
func (c Config) MemoryLayout() vm.MemoryLayout {
	return vm.MemoryLayout{
		TextBase:     c.MemoryMap.TextBase,
		KTextBase:    c.MemoryMap.KTextBase,
		ExternBase:   c.MemoryMap.ExternBase,
		ExternSize:   c.MemoryMap.ExternSize,
		DataBase:     c.MemoryMap.DataBase,
		DataSize:     c.MemoryMap.DataSize,
		HeapSize:     c.MemoryMap.HeapSize,
		StackBase:    c.MemoryMap.StackBase,
		StackSize:    c.MemoryMap.StackSize,
		KDataBase:    c.MemoryMap.KDataBase,
		KDataSize:    c.MemoryMap.KDataSize,
		MMIOBase:     c.MemoryMap.MMIOBase,
		MMIOSize:     c.MemoryMap.MMIOSize,
		LittleEndian: c.Endianness.Little,
	}
}

// DriverConfig converts the decoded memory map into the shape
// asm.Assemble consumes.
func (c Config) DriverConfig() asm.DriverConfig {
	return asm.DriverConfig{
		TextBase:     c.MemoryMap.TextBase,
		KTextBase:    c.MemoryMap.KTextBase,
		ExternBase:   c.MemoryMap.ExternBase,
		DataBase:     c.MemoryMap.DataBase,
		KDataBase:    c.MemoryMap.KDataBase,
		LittleEndian: c.Endianness.Little,
	}
}
