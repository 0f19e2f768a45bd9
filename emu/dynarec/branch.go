/*
   Branch: branch/jump tail emission and block-ending memory ops
   (spec section 4.4.1 steps 2-3, section 4.4.3, section 4.4.4).

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

import "github.com/rcornwell/psxcore/emu/cpu"

// emitBranchOrJump handles every block-ending branch/jump kind (spec
// section 4.4.1 steps 2-3, section 4.4.3): the branch/jump instruction's
// own closure runs first and captures whatever the tail needs (condition,
// indirect target, link-register write); the delay-slot instruction's
// closure runs next, using pre-branch register values; the tail closure
// then commits PC.
func (c *compiler) emitBranchOrJump(i inst) {
	branchPC := c.pc
	delaySlotPC := c.pc + 4

	taken := new(bool)
	target := new(uint32)

	// tailCost carries the weight of cases that don't append their own
	// closure (opJ has nothing to evaluate at run time), so it still gets
	// charged via the tail closure appended below.
	tailCost := 0

	switch i.op {
	case opJ:
		*taken = true
		*target = jumpTarget(delaySlotPC, i.target)
		tailCost = weightJump
	case opJAL:
		*taken = true
		*target = jumpTarget(delaySlotPC, i.target)
		c.emit(weightJump, func(x *execContext) {
			x.eng.cpu.SetGPR(31, delaySlotPC+4)
		})
	case opBEQ, opBNE, opBLEZ, opBGTZ:
		rs, rt, simm := i.rs, i.rt, i.simm
		op := i.op
		*target = uint32(int32(delaySlotPC) + (simm << 2))
		c.emit(weightBranch, func(x *execContext) {
			s := x.eng.cpu
			a, b := s.GPR[rs], s.GPR[rt]
			switch op {
			case opBEQ:
				*taken = a == b
			case opBNE:
				*taken = a != b
			case opBLEZ:
				*taken = int32(a) <= 0
			case opBGTZ:
				*taken = int32(a) > 0
			}
		})
	case opREGIMM:
		rs, simm := i.rs, i.simm
		link := i.rt == rtBLTZAL || i.rt == rtBGEZAL
		ge := i.rt == rtBGEZ || i.rt == rtBGEZAL
		*target = uint32(int32(delaySlotPC) + (simm << 2))
		c.emit(weightBranch, func(x *execContext) {
			s := x.eng.cpu
			v := int32(s.GPR[rs])
			if ge {
				*taken = v >= 0
			} else {
				*taken = v < 0
			}
			if link {
				s.SetGPR(31, delaySlotPC+4)
			}
		})
	case opSPECIAL:
		rs := i.rs
		if i.function == fnJALR {
			rd := i.rd
			c.emit(weightJump, func(x *execContext) {
				s := x.eng.cpu
				*target = s.GPR[rs]
				*taken = true
				s.SetGPR(rd, delaySlotPC+4)
			})
		} else { // fnJR
			c.emit(weightJump, func(x *execContext) {
				*target = x.eng.cpu.GPR[rs]
				*taken = true
			})
		}
	}

	// Delay slot instruction: decode and emit before the branch resolves,
	// per spec section 4.4.1 step 3.
	c.pc = delaySlotPC
	c.inDelaySlot = true
	word, fetchFault := c.fetch(c.pc)
	if fetchFault {
		pc := c.pc
		c.emit(0, func(x *execContext) {
			raiseHelper(x, pc, uint32(cpu.ExcAdEL), pc, true, true)
		})
	} else {
		di := decode(word)
		switch {
		case isTrap(di):
			c.emitTrap(di)
		case isBranchOrJump(di):
			// A branch in a delay slot is architecturally undefined; this
			// core treats it as a reserved-instruction trap rather than
			// guessing at undefined hardware behavior.
			c.emitReservedInstruction(di)
		default:
			c.emitOrdinary(di)
		}
	}
	c.inDelaySlot = false
	c.guestCnt += 2

	indirect := i.op == opSPECIAL && (i.function == fnJR || i.function == fnJALR)
	fallThrough := branchPC + 8

	c.emit(tailCost, func(x *execContext) {
		if x.eng.cpu.BlockAborted {
			return
		}
		if *taken {
			x.eng.cpu.PC = *target
		} else {
			x.eng.cpu.PC = fallThrough
		}
	})

	if indirect {
		return // resolved only through the indirect-jump hash at run time
	}
	// Every non-indirect form has a statically known *target (branch
	// displacements and J/JAL's field are both compile-time constants);
	// conditional forms additionally have a fall-through successor. Both
	// get patch sites, per spec section 4.4.3's "both paths use the same
	// link/patch mechanism."
	c.addLink(*target)
	if i.op != opJ && i.op != opJAL {
		c.addLink(fallThrough)
	}
}

// emitForcedEnd closes a block hitting the 256-instruction cap (spec
// section 4.4.1 step 5) with an implicit link to the next instruction.
func (c *compiler) emitForcedEnd() {
	target := c.pc
	c.emit(0, func(x *execContext) {
		x.eng.cpu.PC = target
	})
	c.addLink(target)
}

func (c *compiler) emitLoad(i inst) {
	rs, rt, simm, pc, delaySlot := i.rs, i.rt, i.simm, c.pc, c.inDelaySlot
	c.constants.clobber(rt)
	op := i.op
	c.emit(weightLoad, func(x *execContext) {
		s, m := x.eng.cpu, x.eng.mem
		addr := s.GPR[rs] + uint32(simm)
		var val uint32
		var fault uint32 = 0
		switch op {
		case opLB:
			v, ff := m.Read8(addr)
			val = uint32(int32(int8(v)))
			fault = uint32(ff)
		case opLBU:
			v, ff := m.Read8(addr)
			val = uint32(v)
			fault = uint32(ff)
		case opLH:
			v, ff := m.Read16(addr)
			val = uint32(int32(int16(v)))
			fault = uint32(ff)
		case opLHU:
			v, ff := m.Read16(addr)
			val = uint32(v)
			fault = uint32(ff)
		case opLW:
			v, ff := m.Read32(addr)
			val = v
			fault = uint32(ff)
		case opLWL:
			val = loadLeft(m, addr, s.GPR[rt])
		case opLWR:
			val = loadRight(m, addr, s.GPR[rt])
		}
		if fault != 0 {
			raiseHelper(x, pc, uint32(cpu.ExcAdEL), addr, true, delaySlot)
			return
		}
		s.SetLoadDelay(rt, val)
	})
}

func (c *compiler) emitStore(i inst) {
	rs, rt, simm, pc, delaySlot := i.rs, i.rt, i.simm, c.pc, c.inDelaySlot
	op := i.op
	c.emit(weightStore, func(x *execContext) {
		s, m := x.eng.cpu, x.eng.mem
		addr := s.GPR[rs] + uint32(simm)
		v := s.GPR[rt]
		var fault uint32 = 0
		switch op {
		case opSB:
			fault = uint32(m.Write8(addr, uint8(v)))
		case opSH:
			fault = uint32(m.Write16(addr, uint16(v)))
		case opSW:
			fault = uint32(m.Write32(addr, v))
		case opSWL:
			storeLeft(m, addr, v)
		case opSWR:
			storeRight(m, addr, v)
		}
		if fault != 0 {
			raiseHelper(x, pc, uint32(cpu.ExcAdES), addr, true, delaySlot)
			return
		}
		s.FlushLoadDelay()
	})
}
