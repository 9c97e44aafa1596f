// Package cfg reconstructs per-function control flow graphs from a flat,
// layout-ordered instruction stream.
package cfg

import (
	"fmt"

	"disassemble/pkg/insn"
)

// BlockID identifies a basic block within one Graph.
type BlockID int

// EdgeID identifies an edge within one Graph.
type EdgeID int

// NoBlock is returned by lookups that find nothing.
const NoBlock BlockID = -1

// EdgeType says when control flows along an edge.
type EdgeType uint8

const (
	// Unconditional edges are always taken.
	Unconditional EdgeType = iota
	// ConditionalTaken edges are followed when a conditional branch is taken.
	ConditionalTaken
	// ConditionalFallthrough edges are followed when a conditional branch
	// falls through to the next instruction.
	ConditionalFallthrough
)

func (t EdgeType) String() string {
	switch t {
	case Unconditional:
		return "unconditional"
	case ConditionalTaken:
		return "taken"
	case ConditionalFallthrough:
		return "fallthrough"
	}
	return fmt.Sprintf("EdgeType(%d)", uint8(t))
}

// Cond returns the short branch label used in graph output:
// "" = unconditional, "T" = taken, "F" = fallthrough.
func (t EdgeType) Cond() string {
	switch t {
	case ConditionalTaken:
		return "T"
	case ConditionalFallthrough:
		return "F"
	}
	return ""
}

// BasicBlock is a maximal run of instructions with a single entry and a
// single exit.
type BasicBlock struct {
	ID   BlockID
	Name string       // optional
	Addr insn.Address // address of the leader
	// Insts holds indices into Graph.Insts in program order.
	Insts []int
	In    []EdgeID
	Out   []EdgeID
	// IsExit marks the synthetic exit block added by CallExitSentinel.
	IsExit bool
}

// Label returns the block name, or bb<id> when the block is unnamed.
func (b *BasicBlock) Label() string {
	if b.Name != "" {
		return b.Name
	}
	return fmt.Sprintf("bb%d", b.ID)
}

// Len returns the number of instructions in the block.
func (b *BasicBlock) Len() int { return len(b.Insts) }

// Edge is a directed control-flow transfer between two blocks.
type Edge struct {
	ID   EdgeID
	From BlockID
	To   BlockID
	Type EdgeType
}
