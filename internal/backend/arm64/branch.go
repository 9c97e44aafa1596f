package arm64

// ARM64 control transfer detection from raw 32-bit encoding.
// These functions classify basic-block terminators and extract targets.

// Kind is the control transfer class of a branch.
type Kind uint8

const (
	KindJump Kind = iota
	KindCall
	KindRet
)

// BranchInfo describes a decoded control transfer.
type BranchInfo struct {
	Kind     Kind
	Target   uint64 // absolute target address (0 if indirect or RET)
	Cond     bool   // true if conditional (has fallthrough)
	Indirect bool   // true for BR/BLR
}

// DecodeBranch attempts to decode a branch, call or return from raw
// encoding at the given PC. Returns nil for any other instruction.
func DecodeBranch(raw uint32, pc uint64) *BranchInfo {
	switch raw & 0xFFFFFC1F {
	case 0xD65F0000: // RET Xn
		return &BranchInfo{Kind: KindRet}
	case 0xD61F0000: // BR Xn
		return &BranchInfo{Kind: KindJump, Indirect: true}
	case 0xD63F0000: // BLR Xn
		return &BranchInfo{Kind: KindCall, Indirect: true}
	}

	switch raw & 0xFC000000 {
	case 0x14000000: // B imm26
		return &BranchInfo{Kind: KindJump, Target: pcrel(pc, raw&0x03FFFFFF, 26)}
	case 0x94000000: // BL imm26
		return &BranchInfo{Kind: KindCall, Target: pcrel(pc, raw&0x03FFFFFF, 26)}
	}

	// B.cond: 01010100 imm19 0 cond
	if raw&0xFF000010 == 0x54000000 {
		return &BranchInfo{Kind: KindJump, Target: pcrel(pc, (raw>>5)&0x7FFFF, 19), Cond: true}
	}

	switch raw & 0x7F000000 {
	case 0x34000000, 0x35000000: // CBZ, CBNZ: 0 sf 11010x imm19 Rt
		return &BranchInfo{Kind: KindJump, Target: pcrel(pc, (raw>>5)&0x7FFFF, 19), Cond: true}
	case 0x36000000, 0x37000000: // TBZ, TBNZ: 0 b5 11011x b40 imm14 Rt
		return &BranchInfo{Kind: KindJump, Target: pcrel(pc, (raw>>5)&0x3FFF, 14), Cond: true}
	}

	return nil
}

func pcrel(pc uint64, imm uint32, bits int) uint64 {
	offset := int64(signExtend(imm, bits)) * 4
	return uint64(int64(pc) + offset)
}

// signExtend sign-extends a value from the given bit width to int32.
func signExtend(val uint32, bits int) int32 {
	sign := uint32(1) << (bits - 1)
	mask := sign - 1
	if val&sign != 0 {
		return int32(val | ^mask) // negative
	}
	return int32(val & mask)
}
