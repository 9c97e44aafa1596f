// Command disassemble reconstructs control flow graphs, call sites, call
// graphs and loop nesting forests from machine code.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"tlog.app/go/tlog"

	"disassemble/internal/backend"
	"disassemble/internal/config"
)

var (
	configPath string
	archFlag   string
	verbose    bool

	conf *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "disassemble",
	Short: "disassemble - program structure reconstruction",
	Long: `disassemble decodes machine code and reconstructs its structure.

Commands:
  cfg         Control flow graph of each function
  calls       Call sites of each function
  loops       Loop nesting forest of each function
  callgraph   Call graph of the whole input
  dump        Disassembly listing

Input is an ELF file (--elf, optionally narrowed with --func) or a raw
code blob (--raw with --base and --arch).`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default ./"+config.FileName+" when present)")
	pf.StringVar(&archFlag, "arch", "", fmt.Sprintf("architecture %v; overrides ELF detection", backend.Arches()))
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	addInputFlags(pf)

	rootCmd.AddCommand(cfgCmd)
	rootCmd.AddCommand(callsCmd)
	rootCmd.AddCommand(loopsCmd)
	rootCmd.AddCommand(callgraphCmd)
	rootCmd.AddCommand(dumpCmd)
}

func loadConfig(cmd *cobra.Command, args []string) (err error) {
	if configPath != "" {
		conf, err = config.LoadFromFile(configPath)
	} else {
		conf, err = config.Load()
	}
	if err != nil {
		return err
	}

	if archFlag != "" {
		conf.Arch = archFlag
	}
	if cmd.Flags().Changed("verbose") {
		conf.Verbose = verbose
	}
	if err := conf.Validate(); err != nil {
		return err
	}

	if conf.Verbose {
		tlog.SetVerbosity("*")
	}
	return nil
}

func main() {
	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
