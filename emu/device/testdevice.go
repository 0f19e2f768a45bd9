/*
   TestDevice: mock peripheral used by package tests.

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

package device

// TestDevice is a minimal register-file peripheral honoring the HW
// contract, adapted from the teacher's unit-test controller pattern: a
// handful of addressable registers a test can poke and inspect, plus a
// counter of how many times each width was touched. It has no PSX
// semantics of its own; it exists so emu/memory, emu/scheduler and emu/irq
// can be exercised end to end without a real GPU/SPU/CD-ROM model.
type TestDevice struct {
	Base uint32
	Regs [16]uint32

	Reads  int
	Writes int
}

// NewTestDevice returns a device whose registers start at base.
func NewTestDevice(base uint32) *TestDevice {
	return &TestDevice{Base: base}
}

func (d *TestDevice) slot(phys uint32) int {
	idx := int((phys - d.Base) / 4)
	if idx < 0 || idx >= len(d.Regs) {
		return -1
	}
	return idx
}

func (d *TestDevice) ReadHW(phys uint32) uint32 {
	d.Reads++
	if i := d.slot(phys); i >= 0 {
		return d.Regs[i]
	}
	return 0
}

func (d *TestDevice) WriteHW(phys uint32, data uint32, width int) {
	d.Writes++
	i := d.slot(phys)
	if i < 0 {
		return
	}
	switch width {
	case 1:
		d.Regs[i] = (d.Regs[i] &^ 0xFF) | (data & 0xFF)
	case 2:
		d.Regs[i] = (d.Regs[i] &^ 0xFFFF) | (data & 0xFFFF)
	default:
		d.Regs[i] = data
	}
}
