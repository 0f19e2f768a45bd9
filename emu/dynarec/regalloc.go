/*
   Regalloc: compile-time constant tracking (spec section 4.4.2).

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

// constState is the per-guest-register shadow recording whether a
// register's value is known at compile time (spec section 4.4.2). Real
// native codegen would use this to pin host registers and lazily
// materialize dirty constants before a call-out or block exit; this
// closure-based core uses it purely to fold immediate chains like
// LUI+ORI into a single emitted closure (spec section 8 scenario 1),
// skipping the two separate runtime writes.
type constState struct {
	known [32]bool
	value [32]uint32
}

func (c *constState) get(reg uint8) (uint32, bool) {
	if reg == 0 {
		return 0, true
	}
	return c.value[reg], c.known[reg]
}

func (c *constState) set(reg uint8, v uint32) {
	if reg == 0 {
		return
	}
	c.known[reg] = true
	c.value[reg] = v
}

// clobber marks reg as no longer compile-time known, e.g. because it was
// loaded from memory or computed from a non-constant input.
func (c *constState) clobber(reg uint8) {
	if reg == 0 {
		return
	}
	c.known[reg] = false
}

// reset clears all tracked constants; called at the start of every block,
// since a register's compile-time value from one block says nothing about
// its runtime value the next time that guest PC is reached.
func (c *constState) reset() {
	*c = constState{}
}
