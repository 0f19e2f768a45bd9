package dynarec

import "testing"

// TestLUIORIConstantFold covers spec section 8 scenario 1: LUI+ORI building
// a 32-bit immediate folds to a compile-time-known value.
func TestLUIORIConstantFold(t *testing.T) {
	e := newTestEngine(t)
	const base = 0x80001000

	writeProgram(e, base, []uint32{
		encodeI(0x0F, 0, 8, 0xDEAD), // LUI $t0, 0xDEAD
		encodeI(0x0D, 8, 8, 0xBEEF), // ORI $t0, $t0, 0xBEEF
		encodeJ(opJ, base+8),        // J self
		nop,                         // delay slot
	})

	b := e.compileBlock(base)
	e.run(b)

	if got := e.cpu.GPR[8]; got != 0xDEADBEEF {
		t.Fatalf("GPR[8] = %#x, want 0xdeadbeef", got)
	}
}

// TestDivideByZeroSigned covers spec section 8 scenario 6: DIV by zero with
// a non-negative dividend leaves LO = 0xFFFFFFFF, HI = dividend.
func TestDivideByZeroSigned(t *testing.T) {
	e := newTestEngine(t)
	const base = 0x80001100

	writeProgram(e, base, []uint32{
		encodeR(2, 0, 0, 0, fnDIV), // DIV $v0, $zero
		encodeJ(opJ, base+4),
		nop,
	})

	e.cpu.GPR[2] = 0x10
	b := e.compileBlock(base)
	e.run(b)

	if e.cpu.LO != 0xFFFFFFFF {
		t.Fatalf("LO = %#x, want 0xffffffff", e.cpu.LO)
	}
	if e.cpu.HI != 0x10 {
		t.Fatalf("HI = %#x, want 0x10", e.cpu.HI)
	}
}

// TestDivideByZeroNegative covers the negative-dividend half of the same
// documented quirk: LO = 1, HI = dividend.
func TestDivideByZeroNegative(t *testing.T) {
	e := newTestEngine(t)
	const base = 0x80001200

	writeProgram(e, base, []uint32{
		encodeR(2, 0, 0, 0, fnDIV),
		encodeJ(opJ, base+4),
		nop,
	})

	e.cpu.GPR[2] = 0xFFFFFFF0 // -16
	b := e.compileBlock(base)
	e.run(b)

	if e.cpu.LO != 1 {
		t.Fatalf("LO = %#x, want 1", e.cpu.LO)
	}
	if e.cpu.HI != 0xFFFFFFF0 {
		t.Fatalf("HI = %#x, want 0xfffffff0", e.cpu.HI)
	}
}

// TestSMCRecompile covers spec section 8 scenario 5: writing into a RAM
// page bumps its generation counter, so the next lookup finds the cached
// block stale and recompiles rather than running stale code.
func TestSMCRecompile(t *testing.T) {
	e := newTestEngine(t)
	const base = 0x80002000

	writeProgram(e, base, []uint32{
		nop,
		encodeJ(opJ, base+4),
		nop,
	})

	first := e.resolve(base)
	if first == nil {
		t.Fatal("resolve returned nil on first compile")
	}

	// Modify a different word in the same 4 KiB page.
	e.mem.Write32(base+16, 0x12345678)

	second := e.resolve(base)
	if second == nil {
		t.Fatal("resolve returned nil on recompile")
	}
	if second == first {
		t.Fatal("expected a fresh Block after page modification, got the stale one back")
	}
}

// TestPatchSiteResolvesOnLaterCompile covers spec section 3's patch-site
// list: a J target that doesn't exist yet is recorded and filled in once
// that address is compiled.
func TestPatchSiteResolvesOnLaterCompile(t *testing.T) {
	e := newTestEngine(t)
	const from = 0x80003000
	const to = 0x80003100

	writeProgram(e, from, []uint32{
		nop,
		encodeJ(opJ, to),
		nop,
	})
	writeProgram(e, to, []uint32{
		nop,
		encodeJ(opJ, to),
		nop,
	})

	b1 := e.compileBlock(from)
	if b1.links[0] == nil || b1.links[0].block != nil {
		t.Fatalf("expected an unresolved patch site before %#x is compiled", to)
	}

	b2 := e.compileBlock(to)
	if b1.links[0].block != b2 {
		t.Fatalf("patch site did not resolve to the later-compiled block")
	}
}

// TestDirectLinkFastPath covers spec section 4.4.3: once lastBlock's links
// point at a still-fresh target, directLink finds it without touching the
// hash or the L1/L2 cache at all.
func TestDirectLinkFastPath(t *testing.T) {
	e := newTestEngine(t)
	const from = 0x80004000
	const to = 0x80004100

	writeProgram(e, from, []uint32{
		nop,
		encodeJ(opJ, to),
		nop,
	})
	writeProgram(e, to, []uint32{
		nop,
		encodeJ(opJ, to),
		nop,
	})

	b1 := e.compileBlock(from)
	b2 := e.compileBlock(to)
	e.lastBlock = b1

	if got := e.directLink(to); got != b2 {
		t.Fatalf("directLink(%#x) = %v, want %v", to, got, b2)
	}
	if got := e.directLink(to + 0x1000); got != nil {
		t.Fatalf("directLink matched an address with no recorded link")
	}
}

// TestIdleLoopFlag covers the BlockEntry.idle_loop classification (spec
// section 3): a tight branch-to-self with no other guest instruction is
// flagged idle.
func TestIdleLoopFlag(t *testing.T) {
	e := newTestEngine(t)
	const base = 0x80005000

	writeProgram(e, base, []uint32{
		encodeJ(opJ, base),
		nop,
	})

	b := e.compileBlock(base)
	if !b.IdleLoop {
		t.Fatal("expected a branch-to-self block to be flagged idle")
	}
}

// TestCOP2ControlMove covers the CFC2/CTC2 half of the GTE pass-through
// (spec section 1's "GTE treated as an opaque helper"): control-register
// moves must actually transfer data, not just the MFC2/MTC2 data-register
// pair.
func TestCOP2ControlMove(t *testing.T) {
	e := newTestEngine(t)
	const base = 0x80006000
	const rt, rd = 8, 31

	ctc2 := (uint32(opCOP2) << 26) | (uint32(cop2CT) << 21) | (uint32(rt) << 16) | (uint32(rd) << 11)
	writeProgram(e, base, []uint32{
		ctc2,
		encodeJ(opJ, base+4),
		nop,
	})

	e.cpu.GPR[rt] = 0xABCD
	b := e.compileBlock(base)
	e.run(b)

	if got := e.cpu.COP2Ctrl[rd]; got != 0xABCD {
		t.Fatalf("COP2Ctrl[%d] = %#x, want 0xabcd", rd, got)
	}
}
