package main

import (
	"github.com/spf13/cobra"

	"disassemble/internal/output"
	"disassemble/internal/render"
)

var cfgCmd = &cobra.Command{
	Use:   "cfg",
	Short: "Build the control flow graph of each function",
	Long: `Build the control flow graph of each function and report its blocks,
edges, call sites and loops. With render.dot set, a themed Graphviz file is
written per function.`,
	RunE: runCFG,
}

func runCFG(cmd *cobra.Command, args []string) error {
	a, err := analyze(cmd.Context())
	if err != nil {
		return err
	}

	reports := make([]output.Report, 0, len(a.results))
	for _, r := range a.results {
		reports = append(reports, output.NewReport(r.Function, a.resolver))

		if conf.Render.DOT {
			dot := render.CFGDOT(r.Function.Name(), r.Function.CFG, r.Loops, render.NASA)
			if err := writeDOT(r.Function.Name(), dot); err != nil {
				return err
			}
		}
	}

	return emit("cfg", reports)
}
