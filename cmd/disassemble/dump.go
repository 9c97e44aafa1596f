package main

import (
	"strings"

	"github.com/spf13/cobra"
	"tlog.app/go/tlog"

	"disassemble/internal/output"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the disassembly of each function",
	Long: `Print the disassembly of each function. Call and jump targets that
start a known function are annotated with its name. With an output
directory set, one asm/<func>.txt file is written per function.`,
	RunE: runDump,
}

func runDump(cmd *cobra.Command, args []string) error {
	a, err := analyze(cmd.Context())
	if err != nil {
		return err
	}

	if dir := conf.Output.Dir; dir != "" {
		for _, fn := range a.mod.Functions {
			if err := output.WriteASM(dir, safeName(fn.Name()), fn.Insts, a.resolver); err != nil {
				return err
			}
		}
		tlog.Printw("wrote asm", "dir", dir, "funcs", len(a.mod.Functions))
		return nil
	}

	var b strings.Builder
	for _, fn := range a.mod.Functions {
		b.WriteString(fn.Name())
		b.WriteString(":\n")
		b.WriteString(output.FormatASM(fn.Insts, a.resolver))
		b.WriteByte('\n')
	}
	return emit("dump", b.String())
}
