package vm

import (
	"io"
)

// Interpreter ties together memory, registers, and the syscall service
// table into one steppable machine. Branches and jumps update PC
// directly; the branch-offset encoding already accounts for the absence
// of a delay slot, so Step never executes one.
type Interpreter struct {
	Mem      *Memory
	Regs     RegisterFile
	PC       uint32
	Services *ServiceTable

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	FreeableHeapAllocations bool

	exited   bool
	exitCode int32
}

// NewInterpreter builds an Interpreter whose PC starts at the memory's
// initial text address.
func NewInterpreter(mem *Memory, stdin io.Reader, stdout, stderr io.Writer) *Interpreter {
	it := &Interpreter{
		Mem:    mem,
		PC:     mem.InitialPC(),
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	}
	it.Services = newServiceTable(it)
	return it
}

// Exited reports whether the program has called the exit service.
func (it *Interpreter) Exited() bool { return it.exited }

// ExitCode returns the code passed to exit/exit2, or 0 if the program
// has not exited.
func (it *Interpreter) ExitCode() int32 { return it.exitCode }

func (it *Interpreter) setExit(code int32) {
	it.exited = true
	it.exitCode = code
}

// Step executes exactly one instruction, returning a non-nil Exception
// if the instruction faulted (after any configured handler redirect).
func (it *Interpreter) Step() *Exception {
	if it.exited {
		return nil
	}
	pc := it.PC
	word, exc := it.Mem.FetchInstruction(pc)
	if exc != nil {
		return it.raise(exc, pc)
	}

	next := pc + 4
	newPC, exc := it.execute(word, pc)
	if exc != nil {
		return it.raise(exc, pc)
	}
	if newPC != nil {
		next = *newPC
	}
	it.PC = next
	return nil
}

// raise routes a fault to the configured exception handler, if any;
// otherwise it is returned to the caller and the machine halts.
func (it *Interpreter) raise(exc *Exception, pc uint32) *Exception {
	if it.Mem.ExceptionHandler == nil {
		return exc
	}
	it.Regs.Vaddr = exc.Address
	it.Regs.Status |= 0x2
	it.Regs.Cause = (it.Regs.Cause &^ (0x1f << 2)) | (exc.CauseCode() << 2)
	it.Regs.Epc = pc
	it.PC = *it.Mem.ExceptionHandler
	return nil
}

// Run steps until the program exits, faults, or walks off the end of
// every text region.
func (it *Interpreter) Run() *Exception {
	for !it.exited {
		if it.Mem.PastTextEnd(it.PC) {
			it.setExit(0)
			return nil
		}
		if exc := it.Step(); exc != nil {
			return exc
		}
	}
	return nil
}

// Bootstrap writes argv onto the stack per the host-interop calling
// convention: $a0 = argc, $a1 = pointer to a NUL-terminated argv array
// of pointers, each pointing at a NUL-terminated string stored above the
// array (at a higher address).
func (it *Interpreter) Bootstrap(args []string) *Exception {
	sp := it.Mem.Stack.end()
	strAddrs := make([]uint32, len(args))

	for i := len(args) - 1; i >= 0; i-- {
		s := args[i]
		sp -= uint32(len(s)) + 1
		sp &^= 0x3
		for j := 0; j < len(s); j++ {
			if exc := it.Mem.WriteU8(sp+uint32(j), s[j]); exc != nil {
				return exc
			}
		}
		if exc := it.Mem.WriteU8(sp+uint32(len(s)), 0); exc != nil {
			return exc
		}
		strAddrs[i] = sp
	}

	sp &^= 0x3
	sp -= uint32(len(strAddrs)+1) * 4
	argvBase := sp
	for i, addr := range strAddrs {
		if exc := it.Mem.WriteU32(argvBase+uint32(i)*4, addr, true); exc != nil {
			return exc
		}
	}
	if exc := it.Mem.WriteU32(argvBase+uint32(len(strAddrs))*4, 0, true); exc != nil {
		return exc
	}

	sp -= 4
	sp &^= 0x7

	it.Regs.WriteGPR(29, sp) // $sp
	it.Regs.WriteGPR(4, uint32(len(args)))
	it.Regs.WriteGPR(5, argvBase)
	return nil
}
