/*
   Compile: block compiler (spec section 4.4.1, 4.4.3, 4.4.4, 4.4.6).

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

package dynarec

import (
	"log/slog"

	"github.com/rcornwell/psxcore/emu/cpu"
	"github.com/rcornwell/psxcore/emu/memory"
)

// maxBlockInstructions is the forced block-end cap (spec section 4.4.1
// step 5).
const maxBlockInstructions = 256

// compiler accumulates one block's closures and compile-time bookkeeping.
type compiler struct {
	eng     *Engine
	startPC uint32
	pc      uint32

	inDelaySlot bool // true only while emitting the instruction right after a branch

	code      []op
	costs     []int // per-closure cycle weight, parallel to code (spec section 4.5)
	constants constState
	cycleCost int
	guestCnt  int
	links     []*link // at most 2, in emission order
}

// emit appends a compiled guest instruction's closure together with the
// scheduler-cycle weight it earns. The weight is only charged to
// globalCycles/CyclesLeft once the closure actually runs (see run in
// engine.go), so a mid-block abort never over-counts the instructions
// after the one that aborted.
func (c *compiler) emit(cost int, fn op) {
	c.cycleCost += cost
	c.code = append(c.code, fn)
	c.costs = append(c.costs, cost)
}

// compileBlock walks guest instructions starting at startPC and produces a
// fully linked Block (spec section 4.4.1).
func (e *Engine) compileBlock(startPC uint32) *Block {
	c := &compiler{eng: e, startPC: startPC, pc: startPC}
	c.constants.reset()

	for {
		word, fetchFault := c.fetch(c.pc)
		if fetchFault {
			pc, delaySlot := c.pc, c.inDelaySlot
			c.emit(0, func(x *execContext) {
				raiseHelper(x, pc, uint32(cpu.ExcAdEL), pc, true, delaySlot)
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

	e.emitToCodeBuffer(len(c.code))

	b := e.cache.alloc()
	b.PsxPC = startPC
	b.code = c.code
	b.costs = c.costs
	b.GuestCount = c.guestCnt
	b.NativeCount = len(c.code)
	b.CycleCost = c.cycleCost
	b.pageGen = e.mem.PageGen(startPC & pageAddrMask)
	b.IdleLoop = c.guestCnt <= idleLoopMaxInstructions && len(c.links) == 1 && c.links[0].target == startPC
	for i, ln := range c.links {
		b.links[i] = ln
	}

	e.cache.install(startPC&pageAddrMask, b)
	if debugEnabled {
		slog.Debug("dynarec: block compiled", "pc", startPC, "guest_instructions", b.GuestCount, "native_ops", b.NativeCount, "idle", b.IdleLoop)
	}
	return b
}

const pageAddrMask = 0x1FFFFFFF // compiled-from addresses are always RAM/BIOS phys

// fetch reads one guest instruction word through the normal memory path
// (spec section 4.4.1 step 1 implicitly requires reading guest code). A
// fetch from an unaligned PC reports a fault, mirroring spec section 4.1
// rule 3 applied to instruction fetch.
func (c *compiler) fetch(pc uint32) (uint32, bool) {
	v, fault := c.eng.mem.Read32(pc)
	return v, fault != memory.NoFault
}

// addLink records a static successor target and a patch site for it.
func (c *compiler) addLink(target uint32) *link {
	ln := &link{target: target}
	if blk, fresh, ok := c.eng.cache.lookup(target&pageAddrMask, c.eng.mem.PageGen(target&pageAddrMask)); ok && blk != nil && fresh {
		ln.block = blk
	} else {
		c.eng.cache.recordPatchSite(target, ln)
	}
	c.links = append(c.links, ln)
	return ln
}

// --- ordinary (non-terminal) instructions ---

func (c *compiler) emitOrdinary(i inst) {
	switch i.op {
	case opSPECIAL:
		c.emitSpecial(i)
	case opADDI:
		c.emitImmArith(i, true)
	case opADDIU:
		c.emitImmArith(i, false)
	case opSLTI:
		c.emitSetLessImm(i, true)
	case opSLTIU:
		c.emitSetLessImm(i, false)
	case opANDI:
		c.emitImmLogic(i, func(a, b uint32) uint32 { return a & b }, uint32(i.imm))
	case opORI:
		c.emitImmLogic(i, func(a, b uint32) uint32 { return a | b }, uint32(i.imm))
	case opXORI:
		c.emitImmLogic(i, func(a, b uint32) uint32 { return a ^ b }, uint32(i.imm))
	case opLUI:
		c.emitLUI(i)
	case opCOP0:
		c.emitCOP0(i)
	case opCOP2:
		c.emitCOP2Opaque(i)
	case opLB, opLH, opLW, opLBU, opLHU, opLWL, opLWR:
		c.emitLoad(i)
	case opSB, opSH, opSW, opSWL, opSWR:
		c.emitStore(i)
	case opLWC2, opSWC2:
		c.emitCOP2MemOpaque(i)
	default:
		c.emitReservedInstruction(i)
	}
}

func (c *compiler) emitSpecial(i inst) {
	switch i.function {
	case fnSLL:
		c.emitShiftImm(i, func(v uint32, sa uint8) uint32 { return v << sa })
	case fnSRL:
		c.emitShiftImm(i, func(v uint32, sa uint8) uint32 { return v >> sa })
	case fnSRA:
		c.emitShiftImm(i, func(v uint32, sa uint8) uint32 { return uint32(int32(v) >> sa) })
	case fnSLLV:
		c.emitShiftReg(i, func(v uint32, sa uint8) uint32 { return v << sa })
	case fnSRLV:
		c.emitShiftReg(i, func(v uint32, sa uint8) uint32 { return v >> sa })
	case fnSRAV:
		c.emitShiftReg(i, func(v uint32, sa uint8) uint32 { return uint32(int32(v) >> sa) })
	case fnMFHI:
		c.emitMoveFrom(i.rd, func(s *cpu.State) uint32 { return s.HI })
	case fnMFLO:
		c.emitMoveFrom(i.rd, func(s *cpu.State) uint32 { return s.LO })
	case fnMTHI:
		c.emitMoveTo(i.rs, func(s *cpu.State, v uint32) { s.HI = v })
	case fnMTLO:
		c.emitMoveTo(i.rs, func(s *cpu.State, v uint32) { s.LO = v })
	case fnMULT:
		c.emitMulDiv(i, mulSigned)
	case fnMULTU:
		c.emitMulDiv(i, mulUnsigned)
	case fnDIV:
		c.emitMulDiv(i, divSigned)
	case fnDIVU:
		c.emitMulDiv(i, divUnsigned)
	case fnADD:
		c.emitRegArith(i, true)
	case fnADDU:
		c.emitRegArith(i, false)
	case fnSUB:
		c.emitRegSub(i, true)
	case fnSUBU:
		c.emitRegSub(i, false)
	case fnAND:
		c.emitRegLogic(i, func(a, b uint32) uint32 { return a & b })
	case fnOR:
		c.emitRegLogic(i, func(a, b uint32) uint32 { return a | b })
	case fnXOR:
		c.emitRegLogic(i, func(a, b uint32) uint32 { return a ^ b })
	case fnNOR:
		c.emitRegLogic(i, func(a, b uint32) uint32 { return ^(a | b) })
	case fnSLT:
		c.emitSetLessReg(i, true)
	case fnSLTU:
		c.emitSetLessReg(i, false)
	default:
		c.emitReservedInstruction(i)
	}
}

// --- constant-folded immediate family (spec section 4.4.2, section 8 scenario 1) ---

func (c *compiler) emitLUI(i inst) {
	rt, imm := i.rt, i.imm
	result := uint32(imm) << 16
	c.constants.set(rt, result)
	c.emit(weightALU, func(x *execContext) {
		x.eng.cpu.SetGPR(rt, result)
		x.eng.cpu.FlushLoadDelay()
	})
}

func (c *compiler) emitImmLogic(i inst, fn func(a, b uint32) uint32, imm uint32) {
	rs, rt := i.rs, i.rt
	if v, ok := c.constants.get(rs); ok {
		result := fn(v, imm)
		c.constants.set(rt, result)
		c.emit(weightALU, func(x *execContext) {
			x.eng.cpu.SetGPR(rt, result)
			x.eng.cpu.FlushLoadDelay()
		})
		return
	}
	c.constants.clobber(rt)
	c.emit(weightALU, func(x *execContext) {
		s := x.eng.cpu
		s.SetGPR(rt, fn(s.GPR[rs], imm))
		s.FlushLoadDelay()
	})
}

func (c *compiler) emitImmArith(i inst, checkOverflow bool) {
	rs, rt, simm, pc := i.rs, i.rt, i.simm, c.pc
	c.constants.clobber(rt)
	delaySlot := c.inDelaySlot
	c.emit(weightALU, func(x *execContext) {
		s := x.eng.cpu
		a := s.GPR[rs]
		sum := a + uint32(simm)
		if checkOverflow && overflowsAdd(a, uint32(simm), sum) {
			raiseHelper(x, pc, cpu.ExcOv, 0, false, delaySlot)
			return
		}
		s.SetGPR(rt, sum)
		s.FlushLoadDelay()
	})
}

func (c *compiler) emitSetLessImm(i inst, signed bool) {
	rs, rt, simm := i.rs, i.rt, i.simm
	c.constants.clobber(rt)
	c.emit(weightALU, func(x *execContext) {
		s := x.eng.cpu
		var less bool
		if signed {
			less = int32(s.GPR[rs]) < simm
		} else {
			less = s.GPR[rs] < uint32(simm)
		}
		if less {
			s.SetGPR(rt, 1)
		} else {
			s.SetGPR(rt, 0)
		}
		s.FlushLoadDelay()
	})
}

// --- register-register ALU ---

func (c *compiler) emitRegArith(i inst, checkOverflow bool) {
	rs, rt, rd, pc := i.rs, i.rt, i.rd, c.pc
	c.constants.clobber(rd)
	delaySlot := c.inDelaySlot
	c.emit(weightALU, func(x *execContext) {
		s := x.eng.cpu
		a, b := s.GPR[rs], s.GPR[rt]
		sum := a + b
		if checkOverflow && overflowsAdd(a, b, sum) {
			raiseHelper(x, pc, cpu.ExcOv, 0, false, delaySlot)
			return
		}
		s.SetGPR(rd, sum)
		s.FlushLoadDelay()
	})
}

func (c *compiler) emitRegSub(i inst, checkOverflow bool) {
	rs, rt, rd, pc := i.rs, i.rt, i.rd, c.pc
	c.constants.clobber(rd)
	delaySlot := c.inDelaySlot
	c.emit(weightALU, func(x *execContext) {
		s := x.eng.cpu
		a, b := s.GPR[rs], s.GPR[rt]
		diff := a - b
		if checkOverflow && overflowsSub(a, b, diff) {
			raiseHelper(x, pc, cpu.ExcOv, 0, false, delaySlot)
			return
		}
		s.SetGPR(rd, diff)
		s.FlushLoadDelay()
	})
}

func (c *compiler) emitRegLogic(i inst, fn func(a, b uint32) uint32) {
	rs, rt, rd := i.rs, i.rt, i.rd
	c.constants.clobber(rd)
	c.emit(weightALU, func(x *execContext) {
		s := x.eng.cpu
		s.SetGPR(rd, fn(s.GPR[rs], s.GPR[rt]))
		s.FlushLoadDelay()
	})
}

func (c *compiler) emitSetLessReg(i inst, signed bool) {
	rs, rt, rd := i.rs, i.rt, i.rd
	c.constants.clobber(rd)
	c.emit(weightALU, func(x *execContext) {
		s := x.eng.cpu
		var less bool
		if signed {
			less = int32(s.GPR[rs]) < int32(s.GPR[rt])
		} else {
			less = s.GPR[rs] < s.GPR[rt]
		}
		if less {
			s.SetGPR(rd, 1)
		} else {
			s.SetGPR(rd, 0)
		}
		s.FlushLoadDelay()
	})
}

func (c *compiler) emitShiftImm(i inst, fn func(v uint32, sa uint8) uint32) {
	rt, rd, sa := i.rt, i.rd, i.sa
	c.constants.clobber(rd)
	c.emit(weightShift, func(x *execContext) {
		s := x.eng.cpu
		s.SetGPR(rd, fn(s.GPR[rt], sa))
		s.FlushLoadDelay()
	})
}

func (c *compiler) emitShiftReg(i inst, fn func(v uint32, sa uint8) uint32) {
	rs, rt, rd := i.rs, i.rt, i.rd
	c.constants.clobber(rd)
	c.emit(weightShift, func(x *execContext) {
		s := x.eng.cpu
		s.SetGPR(rd, fn(s.GPR[rt], uint8(s.GPR[rs]&0x1F)))
		s.FlushLoadDelay()
	})
}

func (c *compiler) emitMoveFrom(rd uint8, fn func(s *cpu.State) uint32) {
	c.constants.clobber(rd)
	c.emit(weightALU, func(x *execContext) {
		s := x.eng.cpu
		s.SetGPR(rd, fn(s))
		s.FlushLoadDelay()
	})
}

func (c *compiler) emitMoveTo(rs uint8, fn func(s *cpu.State, v uint32)) {
	c.emit(weightALU, func(x *execContext) {
		s := x.eng.cpu
		fn(s, s.GPR[rs])
		s.FlushLoadDelay()
	})
}

type mulDivKind int

const (
	mulSigned mulDivKind = iota
	mulUnsigned
	divSigned
	divUnsigned
)

// emitMulDiv implements MULT/MULTU/DIV/DIVU, including the R3000A's
// documented divide-by-zero result (spec section 8 scenario 6).
func (c *compiler) emitMulDiv(i inst, kind mulDivKind) {
	rs, rt := i.rs, i.rt
	c.emit(weightMulDiv, func(x *execContext) {
		s := x.eng.cpu
		a, b := s.GPR[rs], s.GPR[rt]
		switch kind {
		case mulSigned:
			p := int64(int32(a)) * int64(int32(b))
			s.LO, s.HI = uint32(p), uint32(p>>32)
		case mulUnsigned:
			p := uint64(a) * uint64(b)
			s.LO, s.HI = uint32(p), uint32(p>>32)
		case divSigned:
			if b == 0 {
				s.HI = a
				if int32(a) >= 0 {
					s.LO = 0xFFFFFFFF
				} else {
					s.LO = 1
				}
			} else if a == 0x80000000 && b == 0xFFFFFFFF {
				s.LO, s.HI = 0x80000000, 0
			} else {
				s.LO = uint32(int32(a) / int32(b))
				s.HI = uint32(int32(a) % int32(b))
			}
		case divUnsigned:
			if b == 0 {
				s.LO, s.HI = 0xFFFFFFFF, a
			} else {
				s.LO, s.HI = a/b, a%b
			}
		}
		s.FlushLoadDelay()
	})
}

// --- COP0 / COP2 ---

func (c *compiler) emitCOP0(i inst) {
	switch {
	case i.rs == cop0MF:
		rt, rd := i.rt, i.rd
		c.constants.clobber(rt)
		c.emit(weightHelper, func(x *execContext) {
			s := x.eng.cpu
			s.SetGPR(rt, s.COP0[rd])
			s.FlushLoadDelay()
		})
	case i.rs == cop0MT:
		rt, rd := i.rt, i.rd
		c.emit(weightHelper, func(x *execContext) {
			s := x.eng.cpu
			v := s.GPR[rt]
			s.COP0[rd] = v
			if rd == cpu.Cop0SR {
				x.eng.mem.SetIsolate(s.IsolateCache())
			}
			s.FlushLoadDelay()
		})
	case i.function == cop0RFE:
		c.emit(weightHelper, func(x *execContext) {
			x.eng.cpu.ReturnFromException()
			x.eng.cpu.FlushLoadDelay()
		})
	default:
		c.emitReservedInstruction(i)
	}
}

// emitCOP2Opaque passes MFC2/MTC2/CFC2/CTC2 and GTE opcodes through
// untouched, per spec section 1's "GTE treated as an opaque helper".
func (c *compiler) emitCOP2Opaque(i inst) {
	rt, rd := i.rt, i.rd
	isMove := i.rs == cop2MF || i.rs == cop2CF || i.rs == cop2MT || i.rs == cop2CT
	toGTE := i.rs == cop2MT || i.rs == cop2CT
	ctrl := i.rs == cop2CF || i.rs == cop2CT
	if isMove && !toGTE {
		c.constants.clobber(rt)
	}
	c.emit(weightHelper, func(x *execContext) {
		s := x.eng.cpu
		if isMove {
			if toGTE {
				if ctrl {
					s.COP2Ctrl[rd] = s.GPR[rt]
				} else {
					s.COP2Data[rd] = s.GPR[rt]
				}
			} else {
				if ctrl {
					s.SetGPR(rt, s.COP2Ctrl[rd])
				} else {
					s.SetGPR(rt, s.COP2Data[rd])
				}
			}
		}
		s.FlushLoadDelay()
	})
}

func (c *compiler) emitCOP2MemOpaque(i inst) {
	rs, rt, simm, isLoad := i.rs, i.rt, i.simm, i.op == opLWC2
	pc := c.pc
	c.emit(weightLoad, func(x *execContext) {
		s := x.eng.cpu
		addr := s.GPR[rs] + uint32(simm)
		if isLoad {
			v, fault := x.eng.mem.Read32(addr)
			if fault != 0 {
				raiseHelper(x, pc, uint32(cpu.ExcAdEL), addr, true, false)
				return
			}
			s.COP2Data[rt] = v
		} else {
			if fault := x.eng.mem.Write32(addr, s.COP2Data[rt]); fault != 0 {
				raiseHelper(x, pc, uint32(cpu.ExcAdES), addr, true, false)
				return
			}
		}
		s.FlushLoadDelay()
	})
}

func (c *compiler) emitReservedInstruction(i inst) {
	delaySlot, pc := c.inDelaySlot, c.pc
	c.emit(weightHelper, func(x *execContext) {
		raiseHelper(x, pc, cpu.ExcRI, 0, false, delaySlot)
	})
}

func (c *compiler) emitTrap(i inst) {
	c.guestCnt++
	code := uint32(cpu.ExcSys)
	if i.function == fnBREAK {
		code = uint32(cpu.ExcBp)
	}
	pc := c.pc
	c.emit(weightHelper, func(x *execContext) {
		raiseHelper(x, pc, code, 0, false, false)
	})
}

func overflowsAdd(a, b, sum uint32) bool {
	return (a^sum)&(b^sum)&0x80000000 != 0
}

func overflowsSub(a, b, diff uint32) bool {
	return (a^b)&(a^diff)&0x80000000 != 0
}

// raiseHelper implements the exception-helper compilation described in
// spec section 4.4.6: write CPU state, redirect PC, and let BlockAborted
// stop the block's remaining closures from running.
func raiseHelper(x *execContext, pc uint32, excCode uint32, badVAddr uint32, hasBadVAddr bool, inDelaySlot bool) {
	x.eng.cpu.CurrentPC = pc
	x.eng.cpu.Raise(excCode, badVAddr, hasBadVAddr, inDelaySlot)
}
