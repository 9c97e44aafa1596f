package main

import (
	"github.com/spf13/cobra"

	"disassemble/internal/output"
)

var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "List the call sites of each function",
	RunE:  runCalls,
}

// funcCalls is the calls command record for one function.
type funcCalls struct {
	Function  string                  `json:"function" yaml:"function" msgpack:"function"`
	CallSites []output.CallSiteRecord `json:"call_sites" yaml:"call_sites" msgpack:"call_sites"`
}

func runCalls(cmd *cobra.Command, args []string) error {
	a, err := analyze(cmd.Context())
	if err != nil {
		return err
	}

	if conf.Output.Format == output.FormatText {
		reports := make([]output.Report, 0, len(a.results))
		for _, r := range a.results {
			reports = append(reports, output.Report{
				Function:  output.NewFuncRecord(r.Function),
				CallSites: output.CallSiteRecords(r.Function, a.resolver),
			})
		}
		return emit("calls", reports)
	}

	out := make([]funcCalls, 0, len(a.results))
	for _, r := range a.results {
		out = append(out, funcCalls{
			Function:  r.Function.Name(),
			CallSites: output.CallSiteRecords(r.Function, a.resolver),
		})
	}
	return emit("calls", out)
}
