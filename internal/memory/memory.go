// Package memory provides a byte-addressable view over loaded segments.
package memory

import (
	"sort"

	"tlog.app/go/errors"

	"disassemble/pkg/insn"
)

var (
	ErrNoSegment = errors.New("memory: no segment covers range")
	ErrOverlap   = errors.New("memory: segment overlaps an existing one")
)

// Segment is a contiguous, readable address range.
type Segment interface {
	Range() insn.Range
	// ReadBytes returns n bytes starting at addr. Callers check containment
	// first; implementations may assume [addr, addr+n) lies in Range.
	ReadBytes(addr insn.Address, n uint64) ([]byte, error)
}

// Memory is a set of non-overlapping segments sorted by start address.
type Memory struct {
	segments []Segment
}

// New returns a Memory holding segs.
func New(segs ...Segment) (*Memory, error) {
	m := &Memory{}
	for _, s := range segs {
		if err := m.Add(s); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add inserts s, keeping segments sorted.
func (m *Memory) Add(s Segment) error {
	r := s.Range()
	i := sort.Search(len(m.segments), func(i int) bool {
		return m.segments[i].Range().Start >= r.Start
	})
	if i > 0 && m.segments[i-1].Range().End > r.Start {
		return errors.Wrap(ErrOverlap, "%v", r)
	}
	if i < len(m.segments) && m.segments[i].Range().Start < r.End {
		return errors.Wrap(ErrOverlap, "%v", r)
	}
	m.segments = append(m.segments, nil)
	copy(m.segments[i+1:], m.segments[i:])
	m.segments[i] = s
	return nil
}

// Segments returns the segments in address order.
func (m *Memory) Segments() []Segment { return m.segments }

// Segment returns the segment containing addr.
func (m *Memory) Segment(addr insn.Address) (Segment, bool) {
	i := sort.Search(len(m.segments), func(i int) bool {
		return m.segments[i].Range().End > addr
	})
	if i < len(m.segments) && m.segments[i].Range().Contains(addr) {
		return m.segments[i], true
	}
	return nil, false
}

// ReadBytes reads n bytes at addr from the single segment that covers the
// whole request.
func (m *Memory) ReadBytes(addr insn.Address, n uint64) ([]byte, error) {
	s, ok := m.Segment(addr)
	if !ok || !s.Range().ContainsSpan(addr, n) {
		return nil, errors.Wrap(ErrNoSegment, "%v+%d", addr, n)
	}
	return s.ReadBytes(addr, n)
}
