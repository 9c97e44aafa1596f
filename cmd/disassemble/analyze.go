package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"disassemble/internal/output"
	"disassemble/pkg/insn"
	"disassemble/pkg/program"
)

// analyzed is a loaded input after module analysis.
type analyzed struct {
	in       *input
	mod      *program.Module
	results  []program.Analysis
	resolver output.Resolver
}

func analyze(ctx context.Context) (*analyzed, error) {
	in, err := loadInput()
	if err != nil {
		return nil, err
	}

	mod, results, err := program.Analyze(ctx, in.Name, in.Funcs, conf.Workers, conf.CFGOptions()...)
	if err != nil {
		return nil, errors.Wrap(err, "analyze %s", in.Name)
	}

	var blocks, edges, nloops int
	for _, r := range results {
		blocks += r.Function.CFG.NodeCount()
		edges += r.Function.CFG.EdgeCount()
		nloops += r.Loops.Count()
	}
	tlog.Printw("analyzed", "module", mod.Name, "funcs", len(mod.Functions), "blocks", blocks, "edges", edges, "loops", nloops)

	return &analyzed{
		in:       in,
		mod:      mod,
		results:  results,
		resolver: moduleResolver(mod),
	}, nil
}

// moduleResolver names addresses that start a function of m.
func moduleResolver(m *program.Module) output.Resolver {
	return func(a insn.Address) (string, bool) {
		fn, ok := m.Lookup(a)
		if !ok {
			return "", false
		}
		return fn.Name(), true
	}
}

// emit writes v to stdout, or to <dir>/<name>.<ext> when an output
// directory is configured.
func emit(name string, v any) error {
	if conf.Output.Dir == "" {
		return output.Encode(os.Stdout, conf.Output.Format, v)
	}
	path, err := output.WriteFile(conf.Output.Dir, name, conf.Output.Format, v)
	if err != nil {
		return err
	}
	tlog.Printw("wrote", "path", path)
	return nil
}

// writeDOT writes a Graphviz file when rendering is enabled. Without an
// output directory DOT goes to the current directory.
func writeDOT(name, dot string) error {
	if !conf.Render.DOT {
		return nil
	}
	dir := conf.Output.Dir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, "dot", safeName(name)+".dot")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "mkdir dot")
	}
	if err := os.WriteFile(path, []byte(dot), 0o644); err != nil {
		return errors.Wrap(err, "write dot")
	}
	tlog.V("render").Printw("wrote dot", "path", path)
	return nil
}

// safeName makes a symbol usable as a file name.
func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '<', '>', '|', '?', '*', '"', ' ':
			return '_'
		}
		return r
	}, s)
}
