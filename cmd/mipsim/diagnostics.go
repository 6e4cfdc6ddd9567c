package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"mipsim/internal/asm"
)

// lineCol finds the 1-based line/column and the full source line
// containing a byte offset.
func lineCol(src []byte, offset int) (line, col int, text string) {
	line = 1
	lineStart := 0
	for i := 0; i < offset && i < len(src); i++ {
		if src[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	lineEnd := lineStart
	for lineEnd < len(src) && src[lineEnd] != '\n' {
		lineEnd++
	}
	col = offset - lineStart + 1
	return line, col, string(src[lineStart:lineEnd])
}

func caretUnderline(col, width int) string {
	if width < 1 {
		width = 1
	}
	return strings.Repeat(" ", col-1) + strings.Repeat("^", width)
}

// printAssembleError renders a rich asm.Error the way the teacher's crash
// path renders a segfault, extended with the offending source line and a
// caret span underneath it.
func printAssembleError(src []byte, err error) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed, color.Bold)
	dim := color.New(color.Faint)

	ae, ok := err.(*asm.Error)
	if !ok {
		red.Fprintln(os.Stderr, "error:", err)
		return
	}

	line, col, text := lineCol(src, ae.Primary.Start)
	width := ae.Primary.End - ae.Primary.Start
	red.Fprintf(os.Stderr, "error: %s\n", ae.Kind)
	bold.Fprintf(os.Stderr, "  --> line %d, column %d\n", line, col)
	fmt.Fprintf(os.Stderr, "  %s\n", text)
	red.Fprintf(os.Stderr, "  %s\n", caretUnderline(col, width))
	if ae.Help != "" {
		dim.Fprintf(os.Stderr, "  help: %s\n", ae.Help)
	}
	if ae.Note != "" {
		dim.Fprintf(os.Stderr, "  note: %s\n", ae.Note)
	}
	if ae.Secondary != nil {
		sline, scol, stext := lineCol(src, ae.Secondary.Start)
		dim.Fprintf(os.Stderr, "  --> also line %d, column %d\n  %s\n", sline, scol, stext)
	}
}
