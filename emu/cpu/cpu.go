/*
   CPU: MIPS R3000A architectural state and exception delivery.

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

// Package cpu holds the single pinned instance of R3000A guest state the
// dynarec compiles fixed struct-offset accesses against (spec section 3).
package cpu

import (
	"fmt"
	"log/slog"
)

// COP0 register indices that carry meaning on the R3000A (spec section 3);
// the rest of the 32-entry array exists only so generated MTC0/MFC0 code
// can address any register number without a bounds check.
const (
	Cop0BadVAddr = 8
	Cop0SR       = 12
	Cop0Cause    = 13
	Cop0EPC      = 14
	Cop0PRID     = 15
)

// SR bits the core interprets directly.
const (
	srIEc   = 1 << 0  // current interrupt enable
	srKUc   = 1 << 1  // current kernel/user mode
	srIsc   = 1 << 16 // cache isolation
	srBEV   = 1 << 22 // bootstrap exception vectors
	modeMask = 0x3F   // SR[5:0], the KU/IE history stack
)

// CAUSE.ExcCode values used by this core.
const (
	ExcInt   = 0  // Interrupt
	ExcAdEL  = 4  // Address error, load/fetch
	ExcAdES  = 5  // Address error, store
	ExcSys   = 8  // Syscall
	ExcBp    = 9  // Breakpoint
	ExcRI    = 10 // Reserved instruction
	ExcCpU   = 11 // Coprocessor unusable
	ExcOv    = 12 // Arithmetic overflow
)

const (
	vectorNormal = 0x80000080
	vectorBEV    = 0xBFC00180
)

// State is the pinned guest CPU state described in spec section 3. Every
// field here is read and written directly by dynarec-generated code via
// fixed struct offsets, so fields are never reordered casually once the
// compiler depends on them.
type State struct {
	GPR [32]uint32

	PC        uint32 // next instruction to fetch
	CurrentPC uint32 // address of the instruction being executed, for EPC

	HI, LO uint32

	COP0     [32]uint32
	COP2Data [32]uint32 // GTE data registers, opaque to the dynarec
	COP2Ctrl [32]uint32 // GTE control registers, opaque to the dynarec

	// Load-delay slot: LoadDelayReg == 0 means empty (GPR 0 can never be
	// a load-delay target, so 0 doubles as "no pending writeback").
	LoadDelayReg uint8
	LoadDelayVal uint32

	IStat uint16 // 11-bit interrupt status, mirrors irq.Controller
	IMask uint16 // 11-bit interrupt mask, mirrors irq.Controller

	// BlockAborted is polled by generated code at safe points; an
	// exception helper sets it to force a mid-block exit (spec section
	// 3, 4.4.6, 9).
	BlockAborted bool

	CyclesLeft        int64
	InitialCyclesLeft int64
}

// New returns a CPU state at its post-reset values. COP0.PRID and SR.BEV
// mirror what the real R3000A exposes at reset so BIOS code that probes
// them behaves normally.
func New() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset restores post-reset architectural state.
func (s *State) Reset() {
	*s = State{}
	s.PC = vectorBEV
	s.COP0[Cop0SR] = srBEV
	s.COP0[Cop0PRID] = 0x00000002
}

// SetGPR writes a general register, dropping writes to GPR 0 (spec
// section 3 invariant, spec section 8 testable property).
func (s *State) SetGPR(reg uint8, val uint32) {
	if reg == 0 {
		return
	}
	s.GPR[reg] = val
}

// FlushLoadDelay commits any pending load-delay writeback. Generated code
// calls this once per instruction boundary, before decoding the next
// instruction's register reads, per spec section 4.1 rule 6 and section 9.
func (s *State) FlushLoadDelay() {
	if s.LoadDelayReg == 0 {
		return
	}
	s.GPR[s.LoadDelayReg] = s.LoadDelayVal
	s.LoadDelayReg = 0
}

// SetLoadDelay schedules a deferred writeback for the *next* instruction
// boundary, per the R3000A load-delay-slot quirk (spec section 4.1 rule 6,
// GLOSSARY). Loads to GPR 0 are dropped immediately, matching SetGPR.
func (s *State) SetLoadDelay(reg uint8, val uint32) {
	s.FlushLoadDelay()
	if reg == 0 {
		return
	}
	s.LoadDelayReg = reg
	s.LoadDelayVal = val
}

// IsolateCache reports whether SR bit 16 (cache isolation) is set.
func (s *State) IsolateCache() bool {
	return s.COP0[Cop0SR]&srIsc != 0
}

// InterruptsEnabled reports SR.IEc (bit 0 of the current mode stack).
func (s *State) InterruptsEnabled() bool {
	return s.COP0[Cop0SR]&srIEc != 0
}

// Raise delivers a guest exception: it writes EPC, BADVADDR (for address
// errors) and CAUSE, pushes the SR mode stack, redirects PC to the
// bootstrap or normal vector depending on SR.BEV, and sets BlockAborted so
// JIT-generated code exits at its next poll (spec section 3, section 7
// item 1, section 9).
//
// inDelaySlot sets CAUSE.BD and points EPC at the branch (CurrentPC - 4)
// rather than at the faulting delay-slot instruction itself.
func (s *State) Raise(excCode uint32, badVAddr uint32, hasBadVAddr bool, inDelaySlot bool) {
	s.COP0[Cop0EPC] = s.CurrentPC
	if inDelaySlot {
		s.COP0[Cop0EPC] -= 4
	}
	if hasBadVAddr {
		s.COP0[Cop0BadVAddr] = badVAddr
	}

	cause := s.COP0[Cop0Cause]
	cause &^= 0x7C
	cause |= (excCode << 2) & 0x7C
	if inDelaySlot {
		cause |= 1 << 31
	} else {
		cause &^= 1 << 31
	}
	s.COP0[Cop0Cause] = cause

	sr := s.COP0[Cop0SR]
	sr = (sr &^ modeMask) | ((sr << 2) & modeMask)
	s.COP0[Cop0SR] = sr

	if sr&srBEV != 0 {
		s.PC = vectorBEV
	} else {
		s.PC = vectorNormal
	}
	s.BlockAborted = true

	if debugEnabled {
		slog.Debug("cpu: exception raised", "exccode", excCode, "epc", s.COP0[Cop0EPC], "pc", s.PC)
	}
}

// debugEnabled gates the package's Debug-level logging, set by Debug.
var debugEnabled bool

// Debug enables verbose logging for this package. The only option this
// component exposes is "DEBUG", matching the teacher's per-subsystem
// binary debug flags (e.g. its own cpu.Debug).
func Debug(option string) error {
	if option != "DEBUG" {
		return fmt.Errorf("cpu: unknown debug option %q", option)
	}
	debugEnabled = true
	return nil
}

// ReturnFromException pops the SR mode stack (RFE instruction semantics):
// the previous (KUp/IEp) pair is shifted back down into current, and the
// old (KUo/IEo) pair is left untouched. Per spec section 8's push/pop
// invariant, a Raise followed by an RFE must restore SR's mode stack to
// its pre-exception value.
func (s *State) ReturnFromException() {
	sr := s.COP0[Cop0SR]
	sr = (sr &^ 0xF) | ((sr >> 2) & 0xF)
	s.COP0[Cop0SR] = sr
}
