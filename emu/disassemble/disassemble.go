/*
   MIPS R3000A Disassembler

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

// Package disassemble is a small table-driven mnemonic formatter for
// R3000A instructions (supplemented feature: the dynarec's compile
// failures and --debug=dynarec tracing want a human-readable line, not
// just a hex dump). It has no dependency on emu/dynarec's internal decode
// tables; field extraction is reimplemented directly off the instruction
// word, the same way the teacher's own disassembler re-derives fields from
// raw bytes rather than sharing the CPU's private opcode tables.
package disassemble

import "fmt"

const (
	tyR = 1 + iota // rs, rt, rd
	tyShift        // rt, rd, sa
	tyI            // rs, rt, imm
	tyBranch       // rs, rt, offset
	tyLoadStore    // rt, offset(rs)
	tyJump         // target
	tyNone         // no operands (SYSCALL, BREAK, RFE, NOP)
	tyCop          // rt, rd (MFC0/MTC0/MFC2/...)
)

type opcode struct {
	name string
	kind int
}

var regNames = [32]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

var specialTable = map[uint32]opcode{
	0x00: {"sll", tyShift},
	0x02: {"srl", tyShift},
	0x03: {"sra", tyShift},
	0x04: {"sllv", tyR},
	0x06: {"srlv", tyR},
	0x07: {"srav", tyR},
	0x08: {"jr", tyR},
	0x09: {"jalr", tyR},
	0x0C: {"syscall", tyNone},
	0x0D: {"break", tyNone},
	0x10: {"mfhi", tyR},
	0x11: {"mthi", tyR},
	0x12: {"mflo", tyR},
	0x13: {"mtlo", tyR},
	0x18: {"mult", tyR},
	0x19: {"multu", tyR},
	0x1A: {"div", tyR},
	0x1B: {"divu", tyR},
	0x20: {"add", tyR},
	0x21: {"addu", tyR},
	0x22: {"sub", tyR},
	0x23: {"subu", tyR},
	0x24: {"and", tyR},
	0x25: {"or", tyR},
	0x26: {"xor", tyR},
	0x27: {"nor", tyR},
	0x2A: {"slt", tyR},
	0x2B: {"sltu", tyR},
}

var regimmTable = map[uint32]opcode{
	0x00: {"bltz", tyBranch},
	0x01: {"bgez", tyBranch},
	0x10: {"bltzal", tyBranch},
	0x11: {"bgezal", tyBranch},
}

var opcodeTable = map[uint32]opcode{
	0x00: {"special", tyNone}, // dispatched via specialTable
	0x01: {"regimm", tyNone},  // dispatched via regimmTable
	0x02: {"j", tyJump},
	0x03: {"jal", tyJump},
	0x04: {"beq", tyBranch},
	0x05: {"bne", tyBranch},
	0x06: {"blez", tyBranch},
	0x07: {"bgtz", tyBranch},
	0x08: {"addi", tyI},
	0x09: {"addiu", tyI},
	0x0A: {"slti", tyI},
	0x0B: {"sltiu", tyI},
	0x0C: {"andi", tyI},
	0x0D: {"ori", tyI},
	0x0E: {"xori", tyI},
	0x0F: {"lui", tyI},
	0x10: {"cop0", tyCop},
	0x12: {"cop2", tyCop},
	0x20: {"lb", tyLoadStore},
	0x21: {"lh", tyLoadStore},
	0x22: {"lwl", tyLoadStore},
	0x23: {"lw", tyLoadStore},
	0x24: {"lbu", tyLoadStore},
	0x25: {"lhu", tyLoadStore},
	0x26: {"lwr", tyLoadStore},
	0x28: {"sb", tyLoadStore},
	0x29: {"sh", tyLoadStore},
	0x2A: {"swl", tyLoadStore},
	0x2B: {"sw", tyLoadStore},
	0x2E: {"swr", tyLoadStore},
	0x32: {"lwc2", tyLoadStore},
	0x3A: {"swc2", tyLoadStore},
}

func reg(n uint32) string {
	if n < 32 {
		return "$" + regNames[n]
	}
	return fmt.Sprintf("$%d", n)
}

// Disassemble formats word, fetched from pc, as a single mnemonic line.
// Unrecognized encodings fall back to a raw hex dump rather than an error,
// since a disassembler is a debug aid and must never itself fault.
func Disassemble(pc uint32, word uint32) string {
	op := word >> 26
	rs := (word >> 21) & 0x1F
	rt := (word >> 16) & 0x1F
	rd := (word >> 11) & 0x1F
	sa := (word >> 6) & 0x1F
	fn := word & 0x3F
	imm := word & 0xFFFF
	simm := int32(int16(imm))
	target := word & 0x03FFFFFF

	switch op {
	case 0x00:
		oc, ok := specialTable[fn]
		if !ok {
			return undefined(pc, word)
		}
		return formatOp(oc, rs, rt, rd, sa, uint32(simm), target, pc)
	case 0x01:
		oc, ok := regimmTable[rt]
		if !ok {
			return undefined(pc, word)
		}
		return formatOp(oc, rs, rt, rd, sa, uint32(simm), target, pc)
	default:
		oc, ok := opcodeTable[op]
		if !ok {
			return undefined(pc, word)
		}
		return formatOp(oc, rs, rt, rd, sa, imm, target, pc)
	}
}

func formatOp(oc opcode, rs, rt, rd, sa, imm, target, pc uint32) string {
	switch oc.kind {
	case tyNone:
		return oc.name
	case tyR:
		return fmt.Sprintf("%-8s%s, %s, %s", oc.name, reg(rd), reg(rs), reg(rt))
	case tyShift:
		return fmt.Sprintf("%-8s%s, %s, %d", oc.name, reg(rd), reg(rt), sa)
	case tyI:
		return fmt.Sprintf("%-8s%s, %s, %#x", oc.name, reg(rt), reg(rs), imm)
	case tyBranch:
		branchPC := pc + 4 + uint32(int32ShiftLeft2(imm))
		return fmt.Sprintf("%-8s%s, %s, %#x", oc.name, reg(rs), reg(rt), branchPC)
	case tyLoadStore:
		return fmt.Sprintf("%-8s%s, %#x(%s)", oc.name, reg(rt), int16(imm), reg(rs))
	case tyJump:
		jumpPC := (pc+4)&0xF0000000 | (target << 2)
		return fmt.Sprintf("%-8s%#x", oc.name, jumpPC)
	case tyCop:
		return fmt.Sprintf("%-8s%s, $%d", copMove(oc.name, rs), reg(rt), rd)
	default:
		return oc.name
	}
}

func int32ShiftLeft2(imm uint32) int32 {
	return int32(int16(imm)) << 2
}

// copMove names the COP0/COP2 move forms by rs field (move-group only;
// GTE arithmetic and privileged COP0 ops outside this set print generically
// since this core treats them opaquely, per spec section 1).
func copMove(copName string, rs uint32) string {
	prefix := "c0"
	if copName == "cop2" {
		prefix = "c2"
	}
	switch rs {
	case 0x00:
		return "mf" + prefix
	case 0x02:
		return "cf" + prefix
	case 0x04:
		return "mt" + prefix
	case 0x06:
		return "ct" + prefix
	default:
		return copName
	}
}

func undefined(pc uint32, word uint32) string {
	return fmt.Sprintf(".word   %#08x", word)
}
