/*
   Timing: PSX clock and video timing constants.

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

// Package timing exposes the clock and video-timing facts spec section 6
// names as things the out-of-scope GPU/timer peripherals need from the
// core, as a small constants package rather than leaving them implicit in
// scattered magic numbers (supplemented feature).
package timing

// CPUFrequencyHz is the R3000A's fixed clock rate.
const CPUFrequencyHz = 33_868_800

// NTSC/PAL scanline and frame geometry, in CPU cycles per scanline and
// scanlines per frame, per spec section 6.
const (
	NTSCCyclesPerScanline = 2173
	NTSCScanlinesPerFrame = 263

	PALCyclesPerScanline = 2168
	PALScanlinesPerFrame = 314
)

// DotclockNumerator indexes the dotclock numerator table for the GPU's
// 256/320/368/512/640-wide display modes; the denominator is always 11
// (spec section 6).
var DotclockNumerator = map[int]int{
	256: 70,
	320: 56,
	368: 49,
	512: 35,
	640: 28,
}

// DotclockDenominator is the fixed denominator paired with
// DotclockNumerator (spec section 6: "(70,56,49,35,28)/11").
const DotclockDenominator = 11

// FrameCycles returns the total CPU cycles in one video frame for the
// given scanline/frame geometry (NTSC or PAL).
func FrameCycles(cyclesPerScanline, scanlinesPerFrame int) int {
	return cyclesPerScanline * scanlinesPerFrame
}
