package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	log        = logrus.New()
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mipsim",
		Short:         "Assembler and interpreter for a MIPS32 subset",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "mipsim.toml", "path to a TOML machine configuration")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log per-segment/per-step detail")

	root.AddCommand(newAssembleCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newDisassembleCmd())
	return root
}
