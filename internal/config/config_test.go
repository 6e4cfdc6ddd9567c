package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesMemoryMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mipsim.toml")
	doc := `
[memory_map]
text_base = 0x00400000
extern_base = 0x10000000
extern_size = 0x1000
data_base = 0x10010000
data_size = 0x1000
heap_size = 0x1000
stack_base = 0x7fffeffc
stack_size = 0x1000
ktext_base = 0x80000000
kdata_base = 0x90000000
kdata_size = 0x1000
mmio_base = 0xffff0000
mmio_size = 0x1000

[features]
self_modifying_code = true
freeable_heap_allocations = false

[endianness]
little = false
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1000), cfg.MemoryMap.ExternSize)
	assert.True(t, cfg.Features.SelfModifyingCode)
	assert.False(t, cfg.Features.FreeableHeapAllocations)
	assert.False(t, cfg.Endianness.Little)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mipsim.toml")
	doc := "[memory_map]\nbogus_field = 1\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestMemoryLayoutConversion(t *testing.T) {
	cfg := Default()
	layout := cfg.MemoryLayout()
	assert.Equal(t, cfg.MemoryMap.TextBase, layout.TextBase)
	assert.Equal(t, cfg.Endianness.Little, layout.LittleEndian)
}

func TestDriverConfigConversion(t *testing.T) {
	cfg := Default()
	drv := cfg.DriverConfig()
	assert.Equal(t, cfg.MemoryMap.DataBase, drv.DataBase)
	assert.Equal(t, cfg.Endianness.Little, drv.LittleEndian)
}
