package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mipsim/internal/config"
	"mipsim/internal/disasm"
	"mipsim/internal/vm"
)

var debugRun bool

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <directory> [argv...]",
		Short: "Load assembled segments and run the interpreter",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(args[0], args[1:])
		},
	}
	cmd.Flags().BoolVar(&debugRun, "debug", false, "enable single-step mode with breakpoints")
	return cmd
}

var segmentFiles = []string{"text", "ktext", "extern", "data", "kdata"}

func runRun(dir string, argv []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Features.DelaySlot {
		return fmt.Errorf("delay_slot is not supported by this interpreter")
	}

	mem := vm.NewMemory(cfg.MemoryLayout())
	mem.SelfModifyingCode = cfg.Features.SelfModifyingCode
	mem.ExceptionHandler = cfg.ExceptionHandlerAddress

	for _, name := range segmentFiles {
		path := filepath.Join(dir, name+".bin")
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("reading %s: %w", path, err)
		}
		mem.LoadSegment(name, data)
	}

	it := vm.NewInterpreter(mem, os.Stdin, os.Stdout, os.Stderr)
	it.FreeableHeapAllocations = cfg.Features.FreeableHeapAllocations

	if exc := it.Bootstrap(argv); exc != nil {
		return fmt.Errorf("bootstrapping argv: %s", exc)
	}

	if debugRun {
		return runDebugLoop(it)
	}

	if exc := it.Run(); exc != nil {
		printRuntimeException(it, exc)
		os.Exit(1)
	}
	os.Exit(int(it.ExitCode()))
	return nil
}

// printRuntimeException renders an unhandled fault the way the teacher's
// getDefaultRecoverFuncForVM renders a segfault: exception name plus the
// failing instruction's address and its opcode/rs/rt/rd/fn fields.
func printRuntimeException(it *vm.Interpreter, exc *vm.Exception) {
	word, _ := it.Mem.FetchInstruction(it.PC)
	fmt.Fprintf(os.Stderr, "%s at instruction 0x%08x: opcode=0x%02x rs=%d rt=%d rd=%d fn=0x%02x\n",
		exc, it.PC, disasm.Opcode(word), disasm.Rs(word), disasm.Rt(word), disasm.Rd(word), disasm.Fn(word))
}

// runDebugLoop mirrors the teacher's execProgramDebugMode: step, run, and
// breakpoints, with breakpoints set on text addresses rather than line
// numbers.
func runDebugLoop(it *vm.Interpreter) error {
	fmt.Println("Commands: n/next, r/run, b/break <address (hex or decimal)>")
	reader := bufio.NewReader(os.Stdin)
	breakpoints := make(map[uint32]struct{})
	waitForInput := true

	printState := func() {
		word, _ := it.Mem.FetchInstruction(it.PC)
		fmt.Printf("-> pc=0x%08x word=0x%08x\n", it.PC, word)
		if debugRun && verbose {
			log.WithFields(logrus.Fields{"pc": it.PC}).Debug("step")
		}
	}

	for !it.Exited() {
		if _, ok := breakpoints[it.PC]; ok && !waitForInput {
			fmt.Println("breakpoint")
			printState()
			waitForInput = true
		}

		if waitForInput {
			fmt.Print("-> ")
			line, _ := reader.ReadString('\n')
			line = strings.ToLower(strings.TrimSpace(line))
			switch {
			case line == "n" || line == "next":
				if exc := it.Step(); exc != nil {
					printRuntimeException(it, exc)
					return nil
				}
				printState()
			case line == "r" || line == "run":
				waitForInput = false
			case strings.HasPrefix(line, "b"):
				addrStr := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "break"), "b"))
				addr, err := parseAddress(addrStr)
				if err != nil {
					fmt.Println("unknown address:", err)
					continue
				}
				if _, ok := breakpoints[addr]; ok {
					delete(breakpoints, addr)
				} else {
					breakpoints[addr] = struct{}{}
				}
			}
			continue
		}

		if exc := it.Step(); exc != nil {
			printRuntimeException(it, exc)
			return nil
		}
	}
	return nil
}

func parseAddress(s string) (uint32, error) {
	base := 10
	if strings.HasPrefix(s, "0x") {
		s = s[2:]
		base = 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
