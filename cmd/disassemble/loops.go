package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"disassemble/internal/output"
)

var loopsCmd = &cobra.Command{
	Use:   "loops",
	Short: "Compute the loop nesting forest of each function",
	Long: `Compute the loop nesting forest of each function. Text output is an
indented tree where the header of each loop is marked with '*'.`,
	RunE: runLoops,
}

// funcLoops is the loops command record for one function.
type funcLoops struct {
	Function    string              `json:"function" yaml:"function" msgpack:"function"`
	Loops       []output.LoopRecord `json:"loops" yaml:"loops" msgpack:"loops"`
	Unreachable []int               `json:"unreachable,omitempty" yaml:"unreachable,omitempty" msgpack:"unreachable,omitempty"`
}

func runLoops(cmd *cobra.Command, args []string) error {
	a, err := analyze(cmd.Context())
	if err != nil {
		return err
	}

	if conf.Output.Format == output.FormatText {
		var b strings.Builder
		for _, r := range a.results {
			fmt.Fprintf(&b, "%s:\n", r.Function.Name())
			if err := r.Loops.Dump(&b, r.Function.CFG); err != nil {
				return err
			}
		}
		return emit("loops", b.String())
	}

	out := make([]funcLoops, 0, len(a.results))
	for _, r := range a.results {
		fl := funcLoops{
			Function: r.Function.Name(),
			Loops:    output.LoopRecords(r.Loops),
		}
		for _, id := range r.Loops.Unreachable {
			fl.Unreachable = append(fl.Unreachable, int(id))
		}
		out = append(out, fl)
	}
	return emit("loops", out)
}
