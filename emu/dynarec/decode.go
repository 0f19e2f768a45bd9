/*
   Decode: R3000A instruction field extraction.

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

// Primary opcode field (bits 31:26).
const (
	opSPECIAL = 0x00
	opREGIMM  = 0x01
	opJ       = 0x02
	opJAL     = 0x03
	opBEQ     = 0x04
	opBNE     = 0x05
	opBLEZ    = 0x06
	opBGTZ    = 0x07
	opADDI    = 0x08
	opADDIU   = 0x09
	opSLTI    = 0x0A
	opSLTIU   = 0x0B
	opANDI    = 0x0C
	opORI     = 0x0D
	opXORI    = 0x0E
	opLUI     = 0x0F
	opCOP0    = 0x10
	opCOP2    = 0x12
	opLB      = 0x20
	opLH      = 0x21
	opLWL     = 0x22
	opLW      = 0x23
	opLBU     = 0x24
	opLHU     = 0x25
	opLWR     = 0x26
	opSB      = 0x28
	opSH      = 0x29
	opSWL     = 0x2A
	opSW      = 0x2B
	opSWR     = 0x2E
	opLWC2    = 0x32
	opSWC2    = 0x3A
)

// SPECIAL function field (bits 5:0), when opcode == opSPECIAL.
const (
	fnSLL     = 0x00
	fnSRL     = 0x02
	fnSRA     = 0x03
	fnSLLV    = 0x04
	fnSRLV    = 0x06
	fnSRAV    = 0x07
	fnJR      = 0x08
	fnJALR    = 0x09
	fnSYSCALL = 0x0C
	fnBREAK   = 0x0D
	fnMFHI    = 0x10
	fnMTHI    = 0x11
	fnMFLO    = 0x12
	fnMTLO    = 0x13
	fnMULT    = 0x18
	fnMULTU   = 0x19
	fnDIV     = 0x1A
	fnDIVU    = 0x1B
	fnADD     = 0x20
	fnADDU    = 0x21
	fnSUB     = 0x22
	fnSUBU    = 0x23
	fnAND     = 0x24
	fnOR      = 0x25
	fnXOR     = 0x26
	fnNOR     = 0x27
	fnSLT     = 0x2A
	fnSLTU    = 0x2B
)

// REGIMM rt field (bits 20:16), when opcode == opREGIMM.
const (
	rtBLTZ   = 0x00
	rtBGEZ   = 0x01
	rtBLTZAL = 0x10
	rtBGEZAL = 0x11
)

// COP0 rs field, when opcode == opCOP0.
const (
	cop0MF  = 0x00
	cop0MT  = 0x04
	cop0RFE = 0x10 // RFE: function field 0x10 (full word 0x42000010)
)

// COP2 (GTE) rs field, when opcode == opCOP2 and rs < 0x10. rs >= 0x10
// instead selects a GTE arithmetic command, encoded entirely in the
// function field.
const (
	cop2MF = 0x00
	cop2CF = 0x02
	cop2MT = 0x04
	cop2CT = 0x06
)

// inst is a decoded R3000A instruction word (spec section 4.4.1 step 1).
type inst struct {
	raw      uint32
	op       uint8
	rs       uint8
	rt       uint8
	rd       uint8
	sa       uint8
	function uint8
	imm      uint16 // zero-extended immediate
	simm     int32  // sign-extended immediate
	target   uint32 // 26-bit jump target field, pre-shift
}

func decode(word uint32) inst {
	i := inst{raw: word}
	i.op = uint8(word >> 26)
	i.rs = uint8((word >> 21) & 0x1F)
	i.rt = uint8((word >> 16) & 0x1F)
	i.rd = uint8((word >> 11) & 0x1F)
	i.sa = uint8((word >> 6) & 0x1F)
	i.function = uint8(word & 0x3F)
	i.imm = uint16(word & 0xFFFF)
	i.simm = int32(int16(i.imm))
	i.target = word & 0x03FFFFFF
	return i
}

// jumpTarget computes J/JAL's absolute target: the top 4 bits of the
// delay-slot's address, concatenated with the 26-bit field shifted left 2.
func jumpTarget(delaySlotPC uint32, target uint32) uint32 {
	return (delaySlotPC & 0xF0000000) | (target << 2)
}

// isBranchOrJump reports whether i ends a basic block (spec section 4.4.1
// step 2): any branch, any jump, or SYSCALL/BREAK which always traps.
func isBranchOrJump(i inst) bool {
	switch i.op {
	case opJ, opJAL, opBEQ, opBNE, opBLEZ, opBGTZ, opREGIMM:
		return true
	case opSPECIAL:
		switch i.function {
		case fnJR, fnJALR, fnSYSCALL, fnBREAK:
			return true
		}
	}
	return false
}

// isTrap reports whether i is SYSCALL or BREAK. Unlike isBranchOrJump,
// this is narrow on purpose: a SYSCALL/BREAK found in a delay slot still
// traps normally and must not be mistaken for an (undefined) branch in a
// delay slot.
func isTrap(i inst) bool {
	return i.op == opSPECIAL && (i.function == fnSYSCALL || i.function == fnBREAK)
}
