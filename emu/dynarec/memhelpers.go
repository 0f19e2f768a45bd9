/*
   Memhelpers: LWL/LWR/SWL/SWR unaligned-access helpers (spec section
   4.4.4: "LWL/LWR/SWL/SWR delegate to helpers (misaligned and rare)").

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

import "github.com/rcornwell/psxcore/emu/memory"

// These never fault: the aligned word they actually touch (addr &^ 3) is
// always a valid 4-byte access regardless of addr's own alignment.

func loadLeft(m *memory.Memory, addr uint32, rtOld uint32) uint32 {
	aligned := addr &^ 3
	shift := (addr & 3) * 8
	word, _ := m.Read32(aligned)
	mask := uint32(0x00FFFFFF) >> shift
	return (rtOld & mask) | (word << (24 - shift))
}

func loadRight(m *memory.Memory, addr uint32, rtOld uint32) uint32 {
	aligned := addr &^ 3
	shift := (addr & 3) * 8
	word, _ := m.Read32(aligned)
	mask := uint32(0xFFFFFF00) << (24 - shift)
	return (rtOld & mask) | (word >> shift)
}

func storeLeft(m *memory.Memory, addr uint32, rt uint32) {
	aligned := addr &^ 3
	shift := (addr & 3) * 8
	word, _ := m.Read32(aligned)
	mask := uint32(0xFFFFFF00) << shift
	merged := (word & mask) | (rt >> (24 - shift))
	_ = m.Write32(aligned, merged)
}

func storeRight(m *memory.Memory, addr uint32, rt uint32) {
	aligned := addr &^ 3
	shift := (addr & 3) * 8
	word, _ := m.Read32(aligned)
	mask := uint32(0x00FFFFFF) >> (24 - shift)
	merged := (word & mask) | (rt << shift)
	_ = m.Write32(aligned, merged)
}
