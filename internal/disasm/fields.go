// Package disasm exposes the pure bit-field extractors a disassembler
// needs. Only the extractors are in scope; the disassemble command in
// cmd/mipsim prints the raw fields they return and does not render
// mnemonics or operands.
package disasm

// Opcode returns the 6 most significant bits of a machine word.
func Opcode(word uint32) uint8 { return uint8(word >> 26 & 0x3f) }

// Rs returns the 5-bit rs field (bits 25..21).
func Rs(word uint32) uint8 { return uint8(word >> 21 & 0x1f) }

// Rt returns the 5-bit rt field (bits 20..16).
func Rt(word uint32) uint8 { return uint8(word >> 16 & 0x1f) }

// Rd returns the 5-bit rd field (bits 15..11).
func Rd(word uint32) uint8 { return uint8(word >> 11 & 0x1f) }

// Shamt returns the 5-bit shift-amount field (bits 10..6).
func Shamt(word uint32) uint8 { return uint8(word >> 6 & 0x1f) }

// Fn returns the 6-bit function code (bits 5..0).
func Fn(word uint32) uint8 { return uint8(word & 0x3f) }

// Imm16 returns the raw (not sign-extended) 16-bit immediate field.
func Imm16(word uint32) uint16 { return uint16(word & 0xffff) }

// SignExtendImm16 sign-extends the 16-bit immediate field to 32 bits.
func SignExtendImm16(word uint32) int32 { return int32(int16(word & 0xffff)) }

// Index26 returns the 26-bit jump-target index field.
func Index26(word uint32) uint32 { return word & 0x03ffffff }

// Fmt returns the 5-bit coprocessor-1 format field (bits 25..21); this is
// the same bit range as Rs, given a separate name for COP1 words.
func Fmt(word uint32) uint8 { return Rs(word) }

// Cc returns the 3-bit FPU condition-flag index from a compare
// instruction: the top three bits of its fd slot (bits 10..8).
func Cc(word uint32) uint8 { return uint8(word >> 8 & 0x7) }

// BranchCc returns the 3-bit cc field from a COP1 FPU-branch word (bits
// 20..18).
func BranchCc(word uint32) uint8 { return uint8(word >> 18 & 0x7) }

// BranchCond returns the condition-polarity bit (bit 16) of a COP1
// FPU-branch word.
func BranchCond(word uint32) bool { return word>>16&0x1 != 0 }
