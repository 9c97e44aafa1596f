// Package backend selects an instruction decoder by architecture.
package backend

import (
	"tlog.app/go/errors"

	"disassemble/internal/backend/amd64"
	"disassemble/internal/backend/arm64"
	"disassemble/internal/backend/bpf"
	"disassemble/pkg/insn"
)

// Arch names an instruction set.
type Arch string

// Supported architectures.
const (
	ArchARM64 Arch = "arm64"
	ArchAMD64 Arch = "amd64"
	ArchBPF   Arch = "bpf"
)

var ErrUnsupportedArch = errors.New("backend: unsupported architecture")

// Arches lists the supported architectures.
func Arches() []Arch { return []Arch{ArchARM64, ArchAMD64, ArchBPF} }

// ParseArch validates s. The aliases aarch64 and x86_64 are accepted.
func ParseArch(s string) (Arch, error) {
	switch s {
	case "arm64", "aarch64":
		return ArchARM64, nil
	case "amd64", "x86_64", "x86-64":
		return ArchAMD64, nil
	case "bpf", "ebpf":
		return ArchBPF, nil
	}
	return "", errors.Wrap(ErrUnsupportedArch, "%q", s)
}

// Decode decodes code loaded at base. maxInsts bounds the number of
// instructions; 0 means no limit. eBPF addresses are slot indices relative
// to code and ignore base.
func Decode(arch Arch, code []byte, base insn.Address, maxInsts int) ([]insn.Instruction, error) {
	switch arch {
	case ArchARM64:
		return arm64.Instructions(code, arm64.Options{BaseAddr: uint64(base), MaxSteps: maxInsts}), nil
	case ArchAMD64:
		return amd64.Instructions(code, amd64.Options{BaseAddr: uint64(base), MaxSteps: maxInsts}), nil
	case ArchBPF:
		insts, err := bpf.Instructions(code)
		if err != nil {
			return nil, err
		}
		if maxInsts > 0 && len(insts) > maxInsts {
			insts = insts[:maxInsts]
		}
		return insts, nil
	}
	return nil, errors.Wrap(ErrUnsupportedArch, "%q", arch)
}
