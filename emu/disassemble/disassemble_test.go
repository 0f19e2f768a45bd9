package disassemble

import (
	"strings"
	"testing"
)

func TestDisassembleRType(t *testing.T) {
	// ADDU $t0, $t1, $t2 -> rs=t1(9), rt=t2(10), rd=t0(8), fn=0x21
	word := uint32(0x00)<<26 | uint32(9)<<21 | uint32(10)<<16 | uint32(8)<<11 | uint32(0x21)
	got := Disassemble(0x80001000, word)
	if !strings.HasPrefix(got, "addu") {
		t.Fatalf("Disassemble = %q, want addu prefix", got)
	}
}

func TestDisassembleImmediate(t *testing.T) {
	// LUI $t0, 0xDEAD -> op=0x0F, rt=t0(8), imm=0xDEAD
	word := uint32(0x0F)<<26 | uint32(8)<<16 | uint32(0xDEAD)
	got := Disassemble(0x80001000, word)
	if !strings.HasPrefix(got, "lui") || !strings.Contains(got, "0xdead") {
		t.Fatalf("Disassemble = %q, want lui ... 0xdead", got)
	}
}

func TestDisassembleJump(t *testing.T) {
	word := uint32(0x02)<<26 | ((uint32(0x80002000) >> 2) & 0x03FFFFFF)
	got := Disassemble(0x80001000, word)
	if !strings.HasPrefix(got, "j") || !strings.Contains(got, "0x80002000") {
		t.Fatalf("Disassemble = %q, want j 0x80002000", got)
	}
}

func TestDisassembleCOP2Move(t *testing.T) {
	// CTC2 $t0, $31 -> op=0x12, rs=0x06 (CT), rt=t0(8), rd=31
	word := uint32(0x12)<<26 | uint32(0x06)<<21 | uint32(8)<<16 | uint32(31)<<11
	got := Disassemble(0x80001000, word)
	if !strings.HasPrefix(got, "ctc2") {
		t.Fatalf("Disassemble = %q, want ctc2 prefix", got)
	}
}

func TestDisassembleUnknownFallsBackToHex(t *testing.T) {
	got := Disassemble(0x80001000, 0xFFFFFFFF)
	if !strings.Contains(got, "0xffffffff") {
		t.Fatalf("Disassemble = %q, want a hex fallback", got)
	}
}
