package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mipsim/internal/asm"
	"mipsim/internal/config"
)

func newAssembleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assemble <source> [output-directory]",
		Short: "Assemble a source file into segment files",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssemble(args)
		},
	}
}

func runAssemble(args []string) error {
	sourcePath := args[0]
	outDir := args[1:]

	src, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", sourcePath, err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Features.DelaySlot {
		return fmt.Errorf("delay_slot is not supported by this assembler")
	}

	exprs, err := asm.ParseAll(src)
	if err != nil {
		printAssembleError(src, err)
		return fmt.Errorf("assembly failed")
	}

	build, err := asm.Assemble(exprs, cfg.DriverConfig())
	if err != nil {
		printAssembleError(src, err)
		return fmt.Errorf("assembly failed")
	}

	dir := defaultOutputDir(sourcePath)
	if len(outDir) > 0 {
		dir = outDir[0]
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	for name, bytes := range build.Segments {
		path := filepath.Join(dir, name.String()+".bin")
		if err := os.WriteFile(path, bytes, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.WithFields(logrus.Fields{"segment": name.String(), "bytes": len(bytes)}).Debug("wrote segment")
	}
	return nil
}

// defaultOutputDir names the output directory after the source file,
// mirroring the `a.out`-style convention: strip the extension.
func defaultOutputDir(sourcePath string) string {
	base := filepath.Base(sourcePath)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + ".out"
}
