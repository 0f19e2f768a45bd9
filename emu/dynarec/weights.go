/*
   Weights: per-opcode cycle cost table.

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

// Weighted cycle costs, per spec section 4.4.1: "each opcode contributes a
// small integer; loads/stores cost more than register ops". These follow
// the published R3000A timings loosely rather than claiming bit-exactness
// (spec section 1 Non-goals only excludes bit-exact SPU/GTE, but there is no
// public per-opcode PSX timing table this core needs to match exactly).
const (
	weightALU    = 1 // register-register and immediate ALU ops
	weightShift  = 1
	weightMulDiv = 7 // MULT/MULTU/DIV/DIVU: the R3000A's multiply unit is multi-cycle
	weightLoad   = 4 // LB/LH/LW/LBU/LHU and the unaligned LWL/LWR variants
	weightStore  = 4
	weightBranch = 2
	weightJump   = 2
	weightHelper = 3 // COP0 MF/MT, RFE, SYSCALL/BREAK dispatch
)

// idleLoopMaxInstructions is the largest guest-instruction count (jump plus
// delay slot) at which a block is flagged idle (spec section 3's
// BlockEntry.idle_loop field): the block must also have exactly one static
// successor, its own start, as in `loop: J loop ; NOP`. A conditional branch
// to self such as `BEQ $zero,$zero,loop` also records a fall-through
// successor, so such a block is not flagged.
const idleLoopMaxInstructions = 2
