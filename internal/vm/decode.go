package vm

import "mipsim/internal/disasm"

// execute decodes one fetched word and dispatches it to the handler for
// its format. It returns an explicit next-PC override for taken
// branches/jumps (nil meaning "fall through to pc+4").
func (it *Interpreter) execute(word uint32, pc uint32) (*uint32, *Exception) {
	switch disasm.Opcode(word) {
	case 0x00:
		return it.execSpecial(word, pc)
	case 0x1c:
		return it.execSpecial2(word, pc)
	case 0x01:
		return it.execRegimm(word, pc)
	case 0x02, 0x03:
		return it.execJump(word, pc)
	case 0x10:
		return it.execCop0(word, pc)
	case 0x11:
		return it.execCop1(word, pc)
	default:
		return it.execDirect(word, pc)
	}
}
