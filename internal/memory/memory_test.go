package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"disassemble/pkg/insn"
)

func TestReadBytes(t *testing.T) {
	m, err := New(
		&Bytes{Base: 0x2000, Data: []byte{5, 6, 7, 8}},
		&Bytes{Base: 0x1000, Data: []byte{1, 2, 3, 4}},
	)
	require.NoError(t, err)
	require.Len(t, m.Segments(), 2)
	assert.Equal(t, uint64(0x1000), uint64(m.Segments()[0].Range().Start))

	b, err := m.ReadBytes(0x1001, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3}, b)

	b, err = m.ReadBytes(0x2000, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 6, 7, 8}, b)
}

func TestReadBytesNoSegment(t *testing.T) {
	m, err := New(&Bytes{Base: 0x1000, Data: []byte{1, 2, 3, 4}})
	require.NoError(t, err)

	_, err = m.ReadBytes(0x3000, 1)
	assert.ErrorIs(t, err, ErrNoSegment)

	// Crossing the end of the segment.
	_, err = m.ReadBytes(0x1002, 4)
	assert.ErrorIs(t, err, ErrNoSegment)
}

func TestAddOverlap(t *testing.T) {
	m, err := New(&Bytes{Base: 0x1000, Data: make([]byte, 0x10)})
	require.NoError(t, err)
	err = m.Add(&Bytes{Base: 0x1008, Data: make([]byte, 0x10)})
	assert.ErrorIs(t, err, ErrOverlap)
	err = m.Add(&Bytes{Base: 0xff8, Data: make([]byte, 0x10)})
	assert.ErrorIs(t, err, ErrOverlap)
	assert.NoError(t, m.Add(&Bytes{Base: 0x1010, Data: make([]byte, 4)}))
}

func TestSegmentLookup(t *testing.T) {
	m, err := New(&Bytes{Base: 0x1000, Data: make([]byte, 0x10)})
	require.NoError(t, err)
	_, ok := m.Segment(0x100f)
	assert.True(t, ok)
	_, ok = m.Segment(0x1010)
	assert.False(t, ok)
}

// Bytes is an in-memory segment.
type Bytes struct {
	Base insn.Address
	Data []byte
}

func (b *Bytes) Range() insn.Range {
	return insn.Range{Start: b.Base, End: b.Base.Add(uint64(len(b.Data)))}
}

func (b *Bytes) ReadBytes(addr insn.Address, n uint64) ([]byte, error) {
	if !b.Range().ContainsSpan(addr, n) {
		return nil, errors.Wrap(ErrNoSegment, "%v+%d", addr, n)
	}
	off := uint64(addr - b.Base)
	return b.Data[off : off+n], nil
}
