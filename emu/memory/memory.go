/*
   Memory: PSX guest address space.

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

package memory

import (
	"fmt"
	"log/slog"
)

// Sizes of the guest regions, per spec section 2/3.
const (
	RAMSize   = 2 * 1024 * 1024 // 2 MiB main RAM
	BIOSSize  = 512 * 1024      // 512 KiB BIOS ROM
	ScratSize = 1024            // 1 KiB scratchpad

	BIOSBase  = 0x1FC00000
	BIOSEnd   = BIOSBase + 0x80000
	ScratBase = 0x1F800000
	ScratEnd  = ScratBase + 0x400
	IOBase    = 0x1F801000
	IOEnd     = 0x1F803000
	CacheCtrl = 0x1FFE0130
	PhysMask  = 0x1FFFFFFF

	pageShift = 16
	pageCount = 1 << (32 - pageShift)
	pageSize  = 4096
	ramPages  = RAMSize / pageSize
)

// Fault mirrors the alignment exceptions memory can raise, so that memory
// does not need to import cpu.
type Fault int

const (
	NoFault   Fault = iota
	FaultAdEL       // load address error
	FaultAdES       // store address error
)

// IOReader/IOWriter let out-of-scope peripherals plug into the I/O window
// described in spec section 6 (read_hw/write_hw contract).
type IOReader func(phys uint32) uint32
type IOWriter func(phys uint32, data uint32, width int)

// Memory models the flat PSX address space: RAM, BIOS, scratchpad and the
// I/O window, plus the 64 KiB-granularity lookup table the dynarec's
// generated fast path reads through (spec section 4.4.4).
type Memory struct {
	ram   [RAMSize]byte
	bios  [BIOSSize]byte
	scrat [ScratSize]byte

	// lut holds a direct slice into ram/bios for segments that are a
	// contiguous fast-path window; nil means "go through the slow path".
	lut [pageCount][]byte

	// pageGen is the SMC generation counter, one per 4 KiB RAM page.
	pageGen [ramPages]uint8

	isolate bool // SR bit 16 mirror, set by cpu on SR writes

	ioRead  IOReader
	ioWrite IOWriter
}

// New builds a Memory instance and installs the fast-path lookup table for
// the RAM and BIOS windows, aliased across the kuseg/kseg0/kseg1 segments as
// required by the segment-aliasing invariant in spec section 8.
func New() *Memory {
	m := &Memory{}
	m.buildLUT()
	return m
}

// SetIO installs the out-of-scope peripheral read/write contract.
func (m *Memory) SetIO(r IOReader, w IOWriter) {
	m.ioRead = r
	m.ioWrite = w
}

// SetIsolate mirrors SR bit 16 (cache isolation) from the CPU.
func (m *Memory) SetIsolate(on bool) {
	m.isolate = on
}

func (m *Memory) buildLUT() {
	install := func(base uint32) {
		for _, prefix := range [3]uint32{0x00000000, 0x80000000, 0xA0000000} {
			addr := prefix + base
			page := addr >> pageShift
			if base < RAMSize {
				lo := base &^ 0xFFFF
				m.lut[page] = m.ram[lo : lo+0x10000]
			} else {
				off := base - BIOSBase
				lo := off &^ 0xFFFF
				m.lut[page] = m.bios[lo : lo+0x10000]
			}
		}
	}
	for base := uint32(0); base < RAMSize; base += 0x10000 {
		install(base)
	}
	for base := uint32(BIOSBase); base < BIOSEnd; base += 0x10000 {
		install(base)
	}
}

// LUTEntry returns the fast-path host slice for the 64 KiB segment
// containing phys, or nil if the caller must fall through to the slow path.
// This is the table the dynarec's generated memory-op fast path consults
// (spec section 4.4.4 steps 2-3).
func (m *Memory) LUTEntry(phys uint32) []byte {
	return m.lut[(phys&PhysMask)>>pageShift]
}

func classify(phys uint32) string {
	switch {
	case phys < RAMSize:
		return "ram"
	case phys >= BIOSBase && phys < BIOSEnd:
		return "bios"
	case phys >= ScratBase && phys < ScratEnd:
		return "scratch"
	case phys >= IOBase && phys < IOEnd:
		return "io"
	case phys == CacheCtrl:
		return "cachectl"
	default:
		return "unmapped"
	}
}

// PageGen returns the SMC generation counter for the 4 KiB RAM page
// containing phys. Callers outside RAM get 0 (never stale).
func (m *Memory) PageGen(phys uint32) uint8 {
	if phys >= RAMSize {
		return 0
	}
	return m.pageGen[phys/pageSize]
}

func (m *Memory) bumpPageGen(phys uint32) {
	if phys >= RAMSize {
		return
	}
	m.pageGen[phys/pageSize]++ // wraps 255->0: dynarec treats any change as stale
}

// segStrip masks off the segment bits, per spec section 4.1 rule 1.
func segStrip(addr uint32) uint32 {
	return addr & PhysMask
}

// writeDroppedBySegment implements the cache-isolation rule (spec 4.1 rule
// 4): while SR bit 16 is set, writes to anything other than kseg1
// (0xA0000000-0xBFFFFFFF) are silently dropped.
func (m *Memory) writeDroppedBySegment(addr uint32) bool {
	if !m.isolate {
		return false
	}
	return addr&0xE0000000 != 0xA0000000
}

// Read8/16/32 and Write8/16/32 implement spec section 4.1.
//
// Alignment faults are reported via the Fault return so cpu can raise
// AdEL/AdES with BADVADDR set, without memory importing cpu.

func (m *Memory) Read8(addr uint32) (uint8, Fault) {
	phys := segStrip(addr)
	if buf := m.LUTEntry(phys); buf != nil {
		return buf[phys&0xFFFF], NoFault
	}
	return uint8(m.slowRead(phys, 1)), NoFault
}

func (m *Memory) Read16(addr uint32) (uint16, Fault) {
	if addr&1 != 0 {
		return 0, FaultAdEL
	}
	phys := segStrip(addr)
	if buf := m.LUTEntry(phys); buf != nil {
		off := phys & 0xFFFF
		return uint16(buf[off]) | uint16(buf[off+1])<<8, NoFault
	}
	return uint16(m.slowRead(phys, 2)), NoFault
}

func (m *Memory) Read32(addr uint32) (uint32, Fault) {
	if addr&3 != 0 {
		return 0, FaultAdEL
	}
	phys := segStrip(addr)
	if buf := m.LUTEntry(phys); buf != nil {
		off := phys & 0xFFFF
		return uint32(buf[off]) | uint32(buf[off+1])<<8 |
			uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24, NoFault
	}
	return m.slowRead(phys, 4), NoFault
}

func (m *Memory) Write8(addr uint32, data uint8) Fault {
	phys := segStrip(addr)
	if m.writeDroppedBySegment(addr) {
		return NoFault
	}
	if buf := m.LUTEntry(phys); buf != nil {
		if phys >= BIOSBase && phys < BIOSEnd {
			return NoFault // BIOS is read-only
		}
		buf[phys&0xFFFF] = data
		m.bumpPageGen(phys)
		return NoFault
	}
	m.slowWrite(phys, uint32(data), 1)
	return NoFault
}

func (m *Memory) Write16(addr uint32, data uint16) Fault {
	if addr&1 != 0 {
		return FaultAdES
	}
	phys := segStrip(addr)
	if m.writeDroppedBySegment(addr) {
		return NoFault
	}
	if buf := m.LUTEntry(phys); buf != nil {
		if phys >= BIOSBase && phys < BIOSEnd {
			return NoFault
		}
		off := phys & 0xFFFF
		buf[off] = byte(data)
		buf[off+1] = byte(data >> 8)
		m.bumpPageGen(phys)
		return NoFault
	}
	m.slowWrite(phys, uint32(data), 2)
	return NoFault
}

func (m *Memory) Write32(addr uint32, data uint32) Fault {
	if addr&3 != 0 {
		return FaultAdES
	}
	phys := segStrip(addr)
	if m.writeDroppedBySegment(addr) {
		return NoFault
	}
	if buf := m.LUTEntry(phys); buf != nil {
		if phys >= BIOSBase && phys < BIOSEnd {
			return NoFault
		}
		off := phys & 0xFFFF
		buf[off] = byte(data)
		buf[off+1] = byte(data >> 8)
		buf[off+2] = byte(data >> 16)
		buf[off+3] = byte(data >> 24)
		m.bumpPageGen(phys)
		return NoFault
	}
	m.slowWrite(phys, data, 4)
	return NoFault
}

// slowRead/slowWrite handle scratchpad, I/O window, cache-control scratch
// and unmapped regions (spec section 4.1 rules 2/5 and section 7 item 3).
func (m *Memory) slowRead(phys uint32, width int) uint32 {
	switch classify(phys) {
	case "scratch":
		off := phys - ScratBase
		return readWidth(m.scrat[off:], width)
	case "io":
		if m.ioRead != nil {
			return m.ioRead(phys)
		}
		return 0
	case "cachectl":
		return 0
	default:
		if debugEnabled {
			slog.Debug("memory: read from unmapped region", "phys", phys)
		}
		return 0
	}
}

func (m *Memory) slowWrite(phys uint32, data uint32, width int) {
	switch classify(phys) {
	case "scratch":
		off := phys - ScratBase
		writeWidth(m.scrat[off:], data, width)
	case "io":
		if m.ioWrite != nil {
			m.ioWrite(phys, data, width)
		}
	case "cachectl":
		// Accepted and ignored: cache-control scratch register.
	default:
		if debugEnabled {
			slog.Debug("memory: write to unmapped region dropped", "phys", phys)
		}
	}
}

// debugEnabled gates the package's Debug-level logging, set by Debug.
var debugEnabled bool

// Debug enables verbose logging for this package. The only option this
// component exposes is "DEBUG" (spec's ambient stack keeps per-component
// flags binary, matching the teacher's cpu.Debug/tape.Debug pattern).
func Debug(option string) error {
	if option != "DEBUG" {
		return fmt.Errorf("memory: unknown debug option %q", option)
	}
	debugEnabled = true
	return nil
}

func readWidth(buf []byte, width int) uint32 {
	switch width {
	case 1:
		return uint32(buf[0])
	case 2:
		return uint32(buf[0]) | uint32(buf[1])<<8
	default:
		return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
	}
}

func writeWidth(buf []byte, data uint32, width int) {
	buf[0] = byte(data)
	if width >= 2 {
		buf[1] = byte(data >> 8)
	}
	if width >= 4 {
		buf[2] = byte(data >> 16)
		buf[3] = byte(data >> 24)
	}
}

// LoadBIOS copies a raw BIOS image into the ROM window.
func (m *Memory) LoadBIOS(data []byte) {
	copy(m.bios[:], data)
}

// RAM/BIOS/Scratch return direct slices for tooling (EXE loader, debugger).
func (m *Memory) RAM() []byte     { return m.ram[:] }
func (m *Memory) BIOS() []byte    { return m.bios[:] }
func (m *Memory) Scratch() []byte { return m.scrat[:] }
