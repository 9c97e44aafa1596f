// Package output encodes analysis records and writes them to files.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
)

// Format is an output encoding.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
)

var ErrFormat = errors.New("output: unknown format")

// ParseFormat validates s. The empty string selects text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML, FormatMsgpack:
		return f, nil
	}
	return "", errors.Wrap(ErrFormat, "%q", s)
}

// Ext returns the file extension of f.
func (f Format) Ext() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	case FormatMsgpack:
		return ".msgpack"
	}
	return ".txt"
}

// Encode writes v to w. The text format accepts Report, []Report,
// []CallEdgeRecord, fmt.Stringer and string values.
func Encode(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "output: encode json")
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "output: encode yaml")
		}
		if err := enc.Close(); err != nil {
			return errors.Wrap(err, "output: encode yaml")
		}
	case FormatMsgpack:
		if err := msgpack.NewEncoder(w).Encode(v); err != nil {
			return errors.Wrap(err, "output: encode msgpack")
		}
	case FormatText, "":
		return writeText(w, v)
	default:
		return errors.Wrap(ErrFormat, "%q", f)
	}
	return nil
}

// WriteFile encodes v to dir/name with the extension of f and returns the
// path written.
func WriteFile(dir, name string, f Format, v any) (string, error) {
	path := filepath.Join(dir, name+f.Ext())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrap(err, "output: mkdir")
	}

	file, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "output: create %s", path)
	}
	defer file.Close()

	if err := Encode(file, f, v); err != nil {
		return "", err
	}
	return path, file.Close()
}

func writeText(w io.Writer, v any) error {
	var b strings.Builder
	switch v := v.(type) {
	case Report:
		textReport(&b, v)
	case []Report:
		for i, r := range v {
			if i > 0 {
				b.WriteByte('\n')
			}
			textReport(&b, r)
		}
	case []CallEdgeRecord:
		for _, e := range v {
			fmt.Fprintf(&b, "%s -> %s\n", e.Caller, e.Callee)
		}
	case string:
		b.WriteString(v)
	case fmt.Stringer:
		b.WriteString(v.String())
	default:
		return errors.New("output: no text form for %T", v)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func textReport(b *strings.Builder, r Report) {
	fn := r.Function
	fmt.Fprintf(b, "%s @ %s: %d insts, %d blocks, %d edges, %d loops, %d calls\n",
		fn.Name, fn.PC, fn.Insts, fn.Blocks, fn.Edges, fn.Loops, fn.Calls)

	for _, blk := range r.Blocks {
		fmt.Fprintf(b, "  %s", blk.Name)
		if blk.Entry {
			b.WriteString(" (entry)")
		}
		if blk.Exit {
			b.WriteString(" (exit)")
		}
		b.WriteString(":\n")
		for _, in := range blk.Insts {
			fmt.Fprintf(b, "    %s\n", in)
		}
	}
	for _, e := range r.Edges {
		fmt.Fprintf(b, "  bb%d -> bb%d [%s]\n", e.From, e.To, e.Type)
	}
	for _, cs := range r.CallSites {
		target := cs.Kind
		switch {
		case cs.Callee != "":
			target = cs.Callee
		case cs.Target != "":
			target = cs.Target
		}
		fmt.Fprintf(b, "  call %s -> %s\n", cs.PC, target)
	}
	for _, l := range r.Loops {
		fmt.Fprintf(b, "  loop-%d header bb%d nest %d depth %d", l.ID, l.Header, l.Nesting, l.Depth)
		if !l.Reducible {
			b.WriteString(" irreducible")
		}
		b.WriteByte('\n')
	}
}
