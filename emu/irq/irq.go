/*
   IRQ: PSX interrupt controller (I_STAT/I_MASK).

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

package irq

import (
	"fmt"
	"log/slog"
)

// Lines are the 11 IRQ lines described in spec section 6.
const (
	VBlank = iota
	GPU
	CDROM
	DMA
	Timer0
	Timer1
	Timer2
	SIO
	SPU
	PIO
	ControllerExt
	NumLines

	mask11 = 0x7FF
)

// Controller holds the 11-bit I_STAT/I_MASK pair plus per-source delayed
// assertion deadlines used by SIO and the GPU's IRQ1 FIFO path (spec
// section 4.3).
type Controller struct {
	iStat uint16
	iMask uint16

	// delayDeadline[line] is the absolute guest cycle at which a delayed
	// Signal fires; it is meaningful only while delayPending[line] is set
	// and keeps its last value after the assertion fires.
	delayDeadline [NumLines]uint64
	delayPending  [NumLines]bool
}

// New returns a controller with both registers clear.
func New() *Controller {
	return &Controller{}
}

// Signal sets the I_STAT bit for line immediately (spec section 4.3).
func (c *Controller) Signal(line int) {
	if debugEnabled {
		slog.Debug("irq: line signaled", "line", line)
	}
	c.iStat |= 1 << uint(line)
}

// ScheduleSignal arms a delayed assertion for line at absCycle. The line is
// asserted by the first PollDelayed call whose currentCycle has reached
// absCycle, which avoids the ack-race the SIO and GPU IRQ1 paths need
// (spec section 4.3).
func (c *Controller) ScheduleSignal(line int, absCycle uint64) {
	c.delayDeadline[line] = absCycle
	c.delayPending[line] = true
}

// PollDelayed checks whether any armed delayed assertion's deadline has
// passed as of currentCycle and, if so, fires it and clears the arming.
func (c *Controller) PollDelayed(currentCycle uint64) {
	for line := 0; line < NumLines; line++ {
		if c.delayPending[line] && c.delayDeadline[line] <= currentCycle {
			c.delayPending[line] = false
			c.Signal(line)
		}
	}
}

// Ack implements the write-to-clear semantics of an I_STAT write: I_STAT is
// ANDed with value, so every bit that is 0 in value is cleared and every bit
// that is 1 is left as it was (spec section 4.3).
func (c *Controller) Ack(value uint16) {
	c.iStat &= value
}

// SetMask replaces I_MASK, clamped to the 11 defined lines.
func (c *Controller) SetMask(value uint16) {
	c.iMask = value & mask11
}

// IStat/IMask are raw register reads for MFC0-style status probes and for
// mirroring into cpu.State.IStat/IMask.
func (c *Controller) IStat() uint16 { return c.iStat & mask11 }
func (c *Controller) IMask() uint16 { return c.iMask }

// Pending reports the masked interrupt vector the execution loop tests at
// every scheduler dispatch and block boundary (spec section 4.3, 4.5).
func (c *Controller) Pending() uint16 {
	return c.iStat & c.iMask & mask11
}

// debugEnabled gates the package's Debug-level logging, set by Debug.
var debugEnabled bool

// Debug enables verbose logging for this package. The only option this
// component exposes is "DEBUG".
func Debug(option string) error {
	if option != "DEBUG" {
		return fmt.Errorf("irq: unknown debug option %q", option)
	}
	debugEnabled = true
	return nil
}
