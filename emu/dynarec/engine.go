/*
   Engine: execution loop entry point for the dynarec (spec section 4.4.7
   dispatch trampolines, section 4.5, section 5, section 7).

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

// Package dynarec is the dynamic recompiler described in spec section 4.4:
// a two-level block cache with self-modifying-code detection, an
// indirect-jump hash cache, direct-link patch sites and a constant-folding
// compiler, wired to a single-threaded execution loop (spec section 4.5,
// section 5).
//
// Go cannot portably emit or execute host R5900 machine code, so a
// Block's "native" representation here is a sequence of Go closures
// (threaded code) rather than assembled bytes; every cache structure,
// algorithm and invariant spec.md names is otherwise implemented as
// written. See DESIGN.md for the rationale.
package dynarec

import (
	"fmt"
	"log/slog"

	"github.com/rcornwell/psxcore/emu/cpu"
	"github.com/rcornwell/psxcore/emu/irq"
	"github.com/rcornwell/psxcore/emu/memory"
	"github.com/rcornwell/psxcore/emu/scheduler"
)

// MaxCycleBudget caps how far a single block entry can run ahead of the
// next scheduler deadline, bounding worst-case dispatch latency.
const MaxCycleBudget = 1 << 20

// Engine owns the pinned CPU/memory state plus every dynarec data
// structure and runs the execution loop from spec section 4.5.
type Engine struct {
	cpu   *cpu.State
	mem   *memory.Memory
	sched *scheduler.Scheduler
	irqc  *irq.Controller

	cache   *cache
	hash    *indirectHash
	codebuf *codeBuffer

	globalCycles uint64
	lastBlock    *Block // for direct-link resolution (spec section 4.4.3)
}

// New builds an Engine from its already-constructed dependencies,
// following the initialization order in spec section 9: memory →
// interrupts → scheduler → CPU → peripherals → dynarec.
func New(m *memory.Memory, s *scheduler.Scheduler, ic *irq.Controller, c *cpu.State) (*Engine, error) {
	cb, err := newCodeBuffer()
	if err != nil {
		return nil, err
	}
	return &Engine{
		cpu:     c,
		mem:     m,
		sched:   s,
		irqc:    ic,
		cache:   newCache(),
		hash:    &indirectHash{},
		codebuf: cb,
	}, nil
}

// Close releases the code buffer's mapped memory.
func (e *Engine) Close() error {
	return e.codebuf.close()
}

// GlobalCycles returns the monotonic guest-cycle counter the execution
// loop advances (spec section 4.2, section 4.5).
func (e *Engine) GlobalCycles() uint64 { return e.globalCycles }

// CPU/Memory expose the pinned state for tooling (debugger, EXE loader).
func (e *Engine) CPU() *cpu.State      { return e.cpu }
func (e *Engine) Memory() *memory.Memory { return e.mem }

// directLink implements the J/JAL/branch-tail fast path from spec section
// 4.4.3/section 4.4.7: if the previously executed block recorded a
// resolved, still-fresh link whose target is pc, skip straight to it
// without consulting the indirect hash or the L1/L2 cache at all.
func (e *Engine) directLink(pc uint32) *Block {
	if e.lastBlock == nil {
		return nil
	}
	gen := e.mem.PageGen(pc & pageAddrMask)
	for _, ln := range e.lastBlock.links {
		if ln != nil && ln.target == pc && ln.block != nil && ln.block.pageGen == gen {
			return ln.block
		}
	}
	return nil
}

// resolve returns a fresh, installed block for pc, compiling (or
// recompiling, on a page-gen mismatch) as needed. It also installs the
// block into the indirect-jump hash on every hit, per spec section 4.4:
// "installed ... in the indirect-jump hash on every successful lookup."
func (e *Engine) resolve(pc uint32) *Block {
	phys := pc & pageAddrMask
	gen := e.mem.PageGen(phys)

	// Inline hash probe first (spec section 4.4.3): cheaper than the
	// full L1/L2 walk on the common case of a hot loop re-entering the
	// same indirect target. A page-gen mismatch here is just a miss —
	// the hash is a cache, not authoritative (spec section 9).
	if blk := e.hash.lookup(pc); blk != nil && blk.pageGen == gen {
		return blk
	}

	blk, fresh, ok := e.cache.lookup(phys, gen)
	if !ok {
		// Outside RAM/BIOS: nothing to cache against; compile a
		// throwaway block each time (rare — scratchpad code, if any).
		return e.compileThrowaway(pc)
	}
	if blk == nil || !fresh {
		if blk != nil && !fresh && debugEnabled {
			slog.Debug("dynarec: stale block recompiled", "pc", pc, "snapshot", blk.pageGen, "current", gen)
		}
		blk = e.compileBlock(pc)
	}
	e.hash.install(pc, blk)
	return blk
}

// compileThrowaway handles the pathological case of executing code outside
// RAM/BIOS (e.g. scratchpad): still produced by the same compiler, just
// never cached since there is no L1/L2 slot to own it.
func (e *Engine) compileThrowaway(pc uint32) *Block {
	c := &compiler{eng: e, startPC: pc, pc: pc}
	c.constants.reset()
	for {
		word, fetchFault := c.fetch(c.pc)
		if fetchFault {
			cpc, delaySlot := c.pc, c.inDelaySlot
			c.emit(0, func(x *execContext) {
				raiseHelper(x, cpc, uint32(cpu.ExcAdEL), cpc, true, delaySlot)
			})
			break
		}
		i := decode(word)
		if isTrap(i) {
			c.emitTrap(i)
			break
		}
		if isBranchOrJump(i) {
			c.emitBranchOrJump(i)
			break
		}
		c.emitOrdinary(i)
		c.guestCnt++
		c.pc += 4
		if c.guestCnt >= maxBlockInstructions {
			c.emitForcedEnd()
			break
		}
	}
	return &Block{PsxPC: pc, code: c.code, costs: c.costs, GuestCount: c.guestCnt, NativeCount: len(c.code), CycleCost: c.cycleCost}
}

// emitToCodeBuffer reserves and commits nativeCount words of code-buffer
// space for a just-compiled block, exercising the begin_emit/end_emit W^X
// toggle from spec section 4.4.7/section 9. Exhaustion triggers the same
// whole-arena reset as block-pool exhaustion (spec section 5, section 7
// item 2); it is not fatal.
func (e *Engine) emitToCodeBuffer(nativeCount int) {
	if err := e.codebuf.beginEmit(); err != nil {
		panic(err.Error())
	}
	offset, ok := e.codebuf.reserve(nativeCount)
	if !ok {
		panic(exhaustionPanic)
	}
	if err := e.codebuf.endEmit(offset, e.codebuf.cursor); err != nil {
		panic(err.Error())
	}
}

const exhaustionPanic = "dynarec: block pool exhausted without a cache reset"

// run executes one compiled block to completion or to a mid-block abort
// (an overflow trap in compile.go's emitRegArith/emitImmArith, an
// unaligned load/store fault in branch.go's emitLoad/emitStore, etc.) and
// returns the cycles actually charged. Each closure's weight (b.costs) is
// only added once that closure has run, so instructions compiled after
// the aborting one — which never execute — are never charged (spec
// section 4.5's elapsed = initial_cycles_left - cycles_left accounting
// only ever reflects work actually done).
func (e *Engine) run(b *Block) int {
	ctx := &execContext{eng: e}
	elapsed := 0
	for idx, o := range b.code {
		o(ctx)
		elapsed += b.costs[idx]
		if e.cpu.BlockAborted {
			return elapsed
		}
	}
	return elapsed
}

// Step runs the execution loop described in spec section 4.5 for one
// iteration: resolve the block at cpu.PC, compute a cycle budget from the
// scheduler's earliest deadline, run it, advance global_cycles, dispatch
// scheduler events, and deliver a pending interrupt if one is unmasked.
func (e *Engine) Step() {
	defer e.recoverExhaustion()

	pc := e.cpu.PC
	b := e.directLink(pc)
	if b == nil {
		b = e.resolve(pc)
	}

	deadline := e.sched.Earliest()
	budget := MaxCycleBudget
	if deadline != scheduler.Never {
		if d := deadline - e.globalCycles; d < uint64(budget) {
			budget = int(d)
		}
	}
	if budget < 1 {
		budget = 1
	}
	e.cpu.CyclesLeft = int64(budget)
	e.cpu.InitialCyclesLeft = e.cpu.CyclesLeft

	elapsed := e.run(b)
	e.lastBlock = b

	e.globalCycles += uint64(elapsed)
	e.cpu.CyclesLeft = e.cpu.InitialCyclesLeft - int64(elapsed)

	e.irqc.PollDelayed(e.globalCycles)
	e.sched.Dispatch(e.globalCycles)
	e.cpu.IStat = e.irqc.IStat()
	e.cpu.IMask = e.irqc.IMask()

	if e.irqc.Pending() != 0 && e.cpu.InterruptsEnabled() {
		e.cpu.CurrentPC = e.cpu.PC
		e.cpu.Raise(cpu.ExcInt, 0, false, false)
	}

	if e.cpu.BlockAborted {
		e.cpu.BlockAborted = false
	}
}

// recoverExhaustion implements spec section 7 item 2: a block-pool
// exhaustion panic is recovered by flushing the entire JIT state and
// letting the next Step recompile from scratch. Any other panic is an
// unrelated bug and must propagate.
func (e *Engine) recoverExhaustion() {
	r := recover()
	if r == nil {
		return
	}
	msg, ok := r.(string)
	if !ok || msg != exhaustionPanic {
		panic(r)
	}
	slog.Warn("dynarec: recovering from block pool exhaustion", "global_cycles", e.globalCycles)
	e.cache.reset()
	e.hash.reset()
	e.codebuf.reset()
	e.lastBlock = nil
}

// debugEnabled gates the package's Debug-level logging, set by Debug.
var debugEnabled bool

// Debug enables verbose logging for this package (block compiles,
// recompiles, code-buffer commits). The only option this component
// exposes is "DEBUG".
func Debug(option string) error {
	if option != "DEBUG" {
		return fmt.Errorf("dynarec: unknown debug option %q", option)
	}
	debugEnabled = true
	return nil
}

// Run advances the execution loop until shuttingDown reports true, per
// spec section 5's single-threaded cooperative model: nothing here spawns
// a goroutine or crosses the JIT boundary with a channel.
func (e *Engine) Run(shuttingDown func() bool) {
	for !shuttingDown() {
		e.Step()
	}
}
