package dynarec

import (
	"testing"

	"github.com/rcornwell/psxcore/emu/cpu"
	"github.com/rcornwell/psxcore/emu/irq"
	"github.com/rcornwell/psxcore/emu/memory"
	"github.com/rcornwell/psxcore/emu/scheduler"
)

// newTestEngine builds a fully wired Engine against fresh component state,
// mirroring the init order in spec section 9.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	m := memory.New()
	ic := irq.New()
	s := scheduler.New()
	c := cpu.New()
	e, err := New(m, s, ic, c)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func encodeI(op, rs, rt uint32, imm uint16) uint32 {
	return (op << 26) | (rs << 21) | (rt << 16) | uint32(imm)
}

func encodeR(rs, rt, rd, sa, fn uint32) uint32 {
	return (rs << 21) | (rt << 16) | (rd << 11) | (sa << 6) | fn
}

func encodeJ(op, target uint32) uint32 {
	return (op << 26) | ((target >> 2) & 0x03FFFFFF)
}

const nop = uint32(0)

// writeProgram stores word-aligned instructions starting at base (a KSEG0
// address) through ordinary store path, so SMC page-gen bookkeeping behaves
// exactly as it would for guest-written code.
func writeProgram(e *Engine, base uint32, words []uint32) {
	for i, w := range words {
		e.mem.Write32(base+uint32(i*4), w)
	}
}
