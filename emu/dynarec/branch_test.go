package dynarec

import (
	"testing"

	"github.com/rcornwell/psxcore/emu/cpu"
)

// TestSyscallInDelaySlotTrapsAsSyscall covers the delay-slot classification
// in emitBranchOrJump: SYSCALL/BREAK placed in a delay slot must still raise
// their own trap rather than being misclassified as the architecturally
// undefined "branch in a delay slot" case and emitted as a reserved
// instruction.
func TestSyscallInDelaySlotTrapsAsSyscall(t *testing.T) {
	e := newTestEngine(t)
	const base = 0x80030000

	writeProgram(e, base, []uint32{
		encodeJ(opJ, base),             // J self
		encodeR(0, 0, 0, 0, fnSYSCALL), // delay slot: SYSCALL
	})

	b := e.compileBlock(base)
	e.run(b)

	got := (e.cpu.COP0[cpu.Cop0Cause] >> 2) & 0x1F
	if got != cpu.ExcSys {
		t.Fatalf("exception code = %d, want ExcSys (%d)", got, cpu.ExcSys)
	}
}

// TestBreakInDelaySlotTrapsAsBreak is the BREAK counterpart.
func TestBreakInDelaySlotTrapsAsBreak(t *testing.T) {
	e := newTestEngine(t)
	const base = 0x80030100

	writeProgram(e, base, []uint32{
		encodeJ(opJ, base),
		encodeR(0, 0, 0, 0, fnBREAK),
	})

	b := e.compileBlock(base)
	e.run(b)

	got := (e.cpu.COP0[cpu.Cop0Cause] >> 2) & 0x1F
	if got != cpu.ExcBp {
		t.Fatalf("exception code = %d, want ExcBp (%d)", got, cpu.ExcBp)
	}
}

// TestActualBranchInDelaySlotTrapsReserved keeps the architecturally
// undefined branch-in-delay-slot case trapping as a reserved instruction,
// confirming the narrower isTrap check didn't widen isBranchOrJump's other
// callers.
func TestActualBranchInDelaySlotTrapsReserved(t *testing.T) {
	e := newTestEngine(t)
	const base = 0x80030200

	writeProgram(e, base, []uint32{
		encodeJ(opJ, base),
		encodeJ(opJ, base), // delay slot: another J, architecturally undefined
	})

	b := e.compileBlock(base)
	e.run(b)

	got := (e.cpu.COP0[cpu.Cop0Cause] >> 2) & 0x1F
	if got != cpu.ExcRI {
		t.Fatalf("exception code = %d, want ExcRI (%d)", got, cpu.ExcRI)
	}
}
