/*
   Device: peripheral contract for out-of-scope collaborators.

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

// Package device defines the narrow contract peripheral models (GPU, SPU,
// CD-ROM, controller, DMA channels) use to plug into the core described in
// spec section 1. Those peripherals are out of scope for this repository;
// this package only fixes the shape they are referenced by.
package device

// HW is the read_hw/write_hw contract from spec section 6. The core's
// memory package calls into an installed HW for the I/O window
// (0x1F801000-0x1F802FFF).
//
// The other half of the contract — "may call schedule(id, deadline, cb)
// and signal_interrupt(line)" — is not expressed as an interface here: per
// spec section 9, peripherals hold direct references to the emulator's
// *scheduler.Scheduler and *irq.Controller instances rather than going
// through an indirection, the same way the core's own packages do.
type HW interface {
	ReadHW(phys uint32) uint32
	WriteHW(phys uint32, data uint32, width int)
}
