package arm64

import "testing"

func TestDecodeBranch(t *testing.T) {
	tests := []struct {
		name string
		raw  uint32
		pc   uint64
		want BranchInfo
	}{
		{"ret", 0xD65F03C0, 0x1000, BranchInfo{Kind: KindRet}},
		{"br x16", 0xD61F0200, 0x1000, BranchInfo{Kind: KindJump, Indirect: true}},
		{"blr x8", 0xD63F0100, 0x1000, BranchInfo{Kind: KindCall, Indirect: true}},
		{"b +0x100", 0x14000040, 0x1000, BranchInfo{Kind: KindJump, Target: 0x1100}},
		{"b -0x10", 0x17FFFFFC, 0x1000, BranchInfo{Kind: KindJump, Target: 0x0FF0}},
		{"bl +0x100", 0x94000040, 0x1000, BranchInfo{Kind: KindCall, Target: 0x1100}},
		{"b.eq +0x20", 0x54000100, 0x2000, BranchInfo{Kind: KindJump, Target: 0x2020, Cond: true}},
		{"cbz x0 +0x40", 0xB4000200, 0x3000, BranchInfo{Kind: KindJump, Target: 0x3040, Cond: true}},
		{"cbnz w1 -4", 0x35FFFFE1, 0x3000, BranchInfo{Kind: KindJump, Target: 0x2FFC, Cond: true}},
		{"tbz w0 +0x10", 0x36000080, 0x4000, BranchInfo{Kind: KindJump, Target: 0x4010, Cond: true}},
		{"tbnz w0 -8", 0x3707FFC0, 0x4000, BranchInfo{Kind: KindJump, Target: 0x3FF8, Cond: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bi := DecodeBranch(tt.raw, tt.pc)
			if bi == nil {
				t.Fatalf("DecodeBranch(0x%08x) = nil", tt.raw)
			}
			if *bi != tt.want {
				t.Errorf("DecodeBranch(0x%08x) = %+v, want %+v", tt.raw, *bi, tt.want)
			}
		})
	}
}

func TestDecodeBranch_NotBranch(t *testing.T) {
	for _, raw := range []uint32{
		0xD503201F, // nop
		0x91000400, // add x0, x0, #1
		0xAA0103E0, // mov x0, x1
	} {
		if bi := DecodeBranch(raw, 0); bi != nil {
			t.Errorf("DecodeBranch(0x%08x) = %+v, want nil", raw, *bi)
		}
	}
}
