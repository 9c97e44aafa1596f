// Package elfx provides ELF loading helpers for code analysis: architecture
// detection, PT_LOAD segments as memory and sized function symbols.
package elfx

import (
	"debug/elf"
	"io"
	"os"
	"sort"

	"tlog.app/go/errors"

	"disassemble/internal/backend"
	"disassemble/internal/memory"
	"disassemble/pkg/insn"
)

var (
	ErrNotELF       = errors.New("elfx: not an ELF file")
	ErrUnsupported  = errors.New("elfx: unsupported machine")
	ErrNoSymbol     = errors.New("elfx: symbol not found")
	ErrNoSection    = errors.New("elfx: section not found")
	ErrNoSegment    = errors.New("elfx: no PT_LOAD segment covers address")
	ErrSymbolNoSize = errors.New("elfx: symbol has zero size")
)

// File wraps a debug/elf.File with convenience methods for code analysis.
type File struct {
	ELF  *elf.File
	raw  io.ReaderAt
	size int64
	arch backend.Arch
	mem  *memory.Memory
}

// Open opens an ELF file and checks that its machine has a backend.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "elfx: open")
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "elfx: stat")
	}

	ef, err := elf.NewFile(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(ErrNotELF, "%v", err)
	}

	arch, ok := machineArch(ef.Machine)
	if !ok {
		ef.Close()
		f.Close()
		return nil, errors.Wrap(ErrUnsupported, "%v", ef.Machine)
	}

	return &File{ELF: ef, raw: f, size: info.Size(), arch: arch}, nil
}

func machineArch(m elf.Machine) (backend.Arch, bool) {
	switch m {
	case elf.EM_AARCH64:
		return backend.ArchARM64, true
	case elf.EM_X86_64:
		return backend.ArchAMD64, true
	case elf.EM_BPF:
		return backend.ArchBPF, true
	}
	return "", false
}

// Close releases resources.
func (f *File) Close() error {
	err := f.ELF.Close()
	if c, ok := f.raw.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Arch returns the backend matching the ELF machine.
func (f *File) Arch() backend.Arch { return f.arch }

// Section returns the contents and load address of the named section.
func (f *File) Section(name string) (data []byte, addr uint64, err error) {
	s := f.ELF.Section(name)
	if s == nil {
		return nil, 0, errors.Wrap(ErrNoSection, "%s", name)
	}
	data, err = s.Data()
	if err != nil {
		return nil, 0, errors.Wrap(err, "elfx: read %s", name)
	}
	return data, s.Addr, nil
}

// FuncSymbols returns the sized STT_FUNC symbols sorted by address. The
// static symbol table is preferred; stripped files fall back to dynsym.
func (f *File) FuncSymbols() ([]insn.Symbol, error) {
	syms, err := f.ELF.Symbols()
	if err != nil || len(syms) == 0 {
		syms, err = f.ELF.DynamicSymbols()
		if err != nil {
			return nil, errors.Wrap(err, "elfx: symbols")
		}
	}

	seen := make(map[uint64]bool)
	var out []insn.Symbol
	for _, s := range syms {
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC || s.Size == 0 {
			continue
		}
		if seen[s.Value] {
			continue
		}
		seen[s.Value] = true
		out = append(out, insn.Symbol{Addr: insn.Address(s.Value), Name: s.Name, Size: s.Size})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out, nil
}

// Symbol looks up a function symbol by exact name.
func (f *File) Symbol(name string) (insn.Symbol, error) {
	syms, err := f.FuncSymbols()
	if err != nil {
		return insn.Symbol{}, err
	}
	for _, s := range syms {
		if s.Name == name {
			if s.Size == 0 {
				return s, errors.Wrap(ErrSymbolNoSize, "%s", name)
			}
			return s, nil
		}
	}
	return insn.Symbol{}, errors.Wrap(ErrNoSymbol, "%s", name)
}

// VAToFileOffset converts a virtual address to a file offset using PT_LOAD segments.
func (f *File) VAToFileOffset(va uint64) (uint64, error) {
	for _, p := range f.ELF.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		if va >= p.Vaddr && va < p.Vaddr+p.Filesz {
			offset := va - p.Vaddr + p.Off
			if offset >= uint64(f.size) {
				return 0, errors.New("elfx: VA 0x%x maps to offset 0x%x beyond file size 0x%x", va, offset, f.size)
			}
			return offset, nil
		}
	}
	return 0, errors.Wrap(ErrNoSegment, "VA 0x%x", va)
}

// ReadBytesAtVA reads n bytes starting at the given virtual address.
func (f *File) ReadBytesAtVA(va uint64, n int) ([]byte, error) {
	off, err := f.VAToFileOffset(va)
	if err != nil {
		return nil, err
	}
	// Clamp to file size.
	avail := f.size - int64(off)
	if avail <= 0 {
		return nil, errors.New("elfx: offset 0x%x at or past end of file", off)
	}
	if int64(n) > avail {
		n = int(avail)
	}
	buf := make([]byte, n)
	_, err = f.raw.ReadAt(buf, int64(off))
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "elfx: read at 0x%x", off)
	}
	return buf, nil
}

// SegmentInfo describes a PT_LOAD segment.
type SegmentInfo struct {
	Vaddr  uint64
	Memsz  uint64
	Filesz uint64
	Offset uint64
	Flags  elf.ProgFlag
}

// LoadSegments returns all PT_LOAD segments.
func (f *File) LoadSegments() []SegmentInfo {
	var segs []SegmentInfo
	for _, p := range f.ELF.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		segs = append(segs, SegmentInfo{
			Vaddr:  p.Vaddr,
			Memsz:  p.Memsz,
			Filesz: p.Filesz,
			Offset: p.Off,
			Flags:  p.Flags,
		})
	}
	return segs
}

// Memory maps the file-backed part of every PT_LOAD segment.
func (f *File) Memory() (*memory.Memory, error) {
	if f.mem != nil {
		return f.mem, nil
	}
	m := &memory.Memory{}
	for _, s := range f.LoadSegments() {
		if s.Filesz == 0 {
			continue
		}
		if err := m.Add(&fileSegment{f: f, info: s}); err != nil {
			return nil, err
		}
	}
	if len(m.Segments()) == 0 {
		return nil, ErrNoSegment
	}
	f.mem = m
	return m, nil
}

// FuncBytes returns the code of sym. Loaded images are read through
// Memory; relocatable objects, whose symbol values are section offsets,
// are read from the symbol's section.
func (f *File) FuncBytes(sym insn.Symbol) ([]byte, error) {
	if len(f.LoadSegments()) > 0 {
		m, err := f.Memory()
		if err != nil {
			return nil, err
		}
		return m.ReadBytes(sym.Addr, sym.Size)
	}

	syms, err := f.ELF.Symbols()
	if err != nil {
		return nil, errors.Wrap(err, "elfx: symbols")
	}
	for _, s := range syms {
		if s.Name != sym.Name || s.Value != uint64(sym.Addr) || s.Section >= elf.SectionIndex(len(f.ELF.Sections)) {
			continue
		}
		data, _, err := f.Section(f.ELF.Sections[s.Section].Name)
		if err != nil {
			return nil, errors.Wrap(err, "elfx: section of %s", sym.Name)
		}
		if s.Value+s.Size > uint64(len(data)) {
			return nil, errors.New("elfx: %s overruns its section", sym.Name)
		}
		return data[s.Value : s.Value+s.Size], nil
	}
	return nil, errors.Wrap(ErrNoSymbol, "%s", sym.Name)
}

// fileSegment reads a PT_LOAD segment lazily from the file.
type fileSegment struct {
	f    *File
	info SegmentInfo
}

func (s *fileSegment) Range() insn.Range {
	start := insn.Address(s.info.Vaddr)
	return insn.Range{Start: start, End: start.Add(s.info.Filesz)}
}

func (s *fileSegment) ReadBytes(addr insn.Address, n uint64) ([]byte, error) {
	buf, err := s.f.ReadBytesAtVA(uint64(addr), int(n))
	if err != nil {
		return nil, err
	}
	if uint64(len(buf)) < n {
		return nil, errors.New("elfx: short read at %v: %d of %d bytes", addr, len(buf), n)
	}
	return buf, nil
}
