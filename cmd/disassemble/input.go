package main

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/pflag"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"disassemble/internal/backend"
	"disassemble/internal/elfx"
	"disassemble/pkg/insn"
	"disassemble/pkg/program"
)

var (
	elfPath  string
	funcName string
	rawPath  string
	rawBase  string
	rawName  string
)

var (
	ErrNoInput  = errors.New("one of --elf or --raw is required")
	ErrNoArch   = errors.New("--arch is required for raw input")
	ErrNoFuncs  = errors.New("no functions selected")
	ErrBadInput = errors.New("--elf and --raw are mutually exclusive")
)

func addInputFlags(fs *pflag.FlagSet) {
	fs.StringVar(&elfPath, "elf", "", "ELF file to analyze")
	fs.StringVar(&funcName, "func", "", "analyze only this ELF function")
	fs.StringVar(&rawPath, "raw", "", "raw code blob to analyze as one function")
	fs.StringVar(&rawBase, "base", "0", "load address of the raw blob")
	fs.StringVar(&rawName, "name", "", "function name for the raw blob")
}

// input is the decoded program handed to the analyses.
type input struct {
	Name  string
	Arch  backend.Arch
	Funcs []program.FuncSource
}

func loadInput() (*input, error) {
	switch {
	case elfPath != "" && rawPath != "":
		return nil, ErrBadInput
	case elfPath != "":
		return loadELF(elfPath)
	case rawPath != "":
		return loadRaw(rawPath)
	}
	return nil, ErrNoInput
}

func loadELF(path string) (*input, error) {
	ef, err := elfx.Open(path)
	if err != nil {
		return nil, err
	}
	defer ef.Close()

	arch := ef.Arch()
	if a, ok := conf.Architecture(); ok {
		arch = a
	}

	syms, err := ef.FuncSymbols()
	if err != nil {
		return nil, err
	}

	in := &input{Name: filepath.Base(path), Arch: arch}
	for _, sym := range syms {
		if funcName != "" && sym.Name != funcName {
			continue
		}
		code, err := ef.FuncBytes(sym)
		if err != nil {
			tlog.Printw("skip function", "name", sym.Name, "addr", sym.Addr, "err", err)
			continue
		}
		insts, err := backend.Decode(arch, code, sym.Addr, conf.MaxInsts)
		if err != nil {
			return nil, errors.Wrap(err, "decode %s", sym.DisplayName())
		}
		in.Funcs = append(in.Funcs, program.FuncSource{Symbol: sym, Insts: insts})
	}
	if len(in.Funcs) == 0 {
		if funcName != "" {
			return nil, errors.Wrap(elfx.ErrNoSymbol, "%s", funcName)
		}
		return nil, ErrNoFuncs
	}

	tlog.Printw("loaded elf", "path", path, "arch", arch, "funcs", len(in.Funcs), "symbols", len(syms))
	return in, nil
}

func loadRaw(path string) (*input, error) {
	arch, ok := conf.Architecture()
	if !ok {
		return nil, ErrNoArch
	}
	base, err := strconv.ParseUint(rawBase, 0, 64)
	if err != nil {
		return nil, errors.Wrap(err, "parse --base")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read raw")
	}

	insts, err := backend.Decode(arch, data, insn.Address(base), conf.MaxInsts)
	if err != nil {
		return nil, errors.Wrap(err, "decode %s", path)
	}

	sym := insn.Symbol{Addr: insn.Address(base), Name: rawName, Size: uint64(len(data))}
	tlog.Printw("loaded raw", "path", path, "arch", arch, "base", sym.Addr, "insts", len(insts))
	return &input{
		Name:  filepath.Base(path),
		Arch:  arch,
		Funcs: []program.FuncSource{{Symbol: sym, Insts: insts}},
	}, nil
}
