// Package insn defines the instruction capability every backend implements
// and the address type the graph builders key on.
package insn

import "fmt"

// Address is a location in a flat, ordered address space. Its meaning is
// backend defined: a virtual address, a file offset or a bytecode index.
type Address uint64

func (a Address) String() string {
	return fmt.Sprintf("0x%x", uint64(a))
}

// Less reports whether a comes before b.
func (a Address) Less(b Address) bool { return a < b }

// Add returns a advanced by n units.
func (a Address) Add(n uint64) Address {
	return a + Address(n)
}

// Range is a half-open address interval [Start, End).
type Range struct {
	Start Address
	End   Address
}

// Contains reports whether a lies inside r.
func (r Range) Contains(a Address) bool {
	return a >= r.Start && a < r.End
}

// ContainsSpan reports whether [a, a+n) lies inside r.
func (r Range) ContainsSpan(a Address, n uint64) bool {
	if !r.Contains(a) {
		return false
	}
	return uint64(r.End-a) >= n
}

// Len returns the number of addresses covered by r.
func (r Range) Len() uint64 {
	if r.End <= r.Start {
		return 0
	}
	return uint64(r.End - r.Start)
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start, r.End)
}

// Symbol is a named address, typically a function entry point.
type Symbol struct {
	Addr Address
	Name string
	Size uint64
}

// DisplayName returns the symbol name, or a sub_<hex> placeholder when the
// symbol is anonymous.
func (s Symbol) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return Placeholder(s.Addr)
}

// Placeholder returns the sub_<hex> name used for unnamed code addresses.
func Placeholder(a Address) string {
	return fmt.Sprintf("sub_%x", uint64(a))
}
