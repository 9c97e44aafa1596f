package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tlog.app/go/errors"

	"disassemble/pkg/insn"
)

// FormatASM renders instructions as stable text, one per line:
// <addr>  <hex bytes>  <disasm>  ; <comment>
// The bytes column is present for backends that keep encodings. lookup
// names call and jump targets; it may be nil.
func FormatASM(insts []insn.Instruction, lookup Resolver) string {
	var b strings.Builder
	for _, in := range insts {
		fmt.Fprintf(&b, "0x%08x  ", uint64(in.Address()))
		if enc, ok := in.(insn.Encoder); ok {
			fmt.Fprintf(&b, "% x  ", enc.Bytes())
		}
		b.WriteString(insn.Text(in))
		if lookup != nil {
			if t, ok := in.TargetAddress(); ok {
				if name, ok := lookup(t); ok {
					fmt.Fprintf(&b, "  ; <%s>", name)
				}
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteASM writes disassembled instructions to asm/<name>.txt.
// name may contain path separators for directory grouping.
func WriteASM(dir, name string, insts []insn.Instruction, lookup Resolver) error {
	path := filepath.Join(dir, "asm", name+".txt")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "output: mkdir asm")
	}
	return os.WriteFile(path, []byte(FormatASM(insts, lookup)), 0o644)
}
