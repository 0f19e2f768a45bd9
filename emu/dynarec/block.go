/*
   Block: two-level JIT block cache (spec section 3, section 4.4).

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

import (
	"log/slog"

	"github.com/rcornwell/psxcore/emu/memory"
)

const (
	l2PageSlots  = 1024 // one per 4-byte instruction slot in a 4 KiB page
	ramL1Entries = memory.RAMSize / 4096
	biosL1Pages  = memory.BIOSSize / 4096

	blockPoolCapacity = 32768
)

// op is one compiled guest instruction's worth of generated behavior. The
// dynarec's "native code" is a sequence of these closures rather than real
// R5900 machine bytes (see DESIGN.md: Go cannot portably emit or execute
// host machine code, so a block's native representation is threaded code —
// every other data structure and algorithm in this package is unchanged).
type op func(c *execContext)

// link is a patch site: a recorded direct-jump target that is resolved to
// a concrete *Block once that guest address is compiled (spec section 3
// "patch site list", section 4.4.3, section 4.4.7).
type link struct {
	target uint32
	block  *Block
}

// Block is the spec's BlockEntry (section 3), adapted: "native" is a
// closure chain instead of a code-buffer offset, and "native instruction
// count" is len(code).
type Block struct {
	PsxPC uint32
	code  []op
	costs []int // per-closure cycle weight, parallel to code

	GuestCount  int
	NativeCount int
	CycleCost   int // static total of costs; only an estimate once a block can abort mid-way
	IdleLoop    bool

	pageGen uint8 // snapshot at compile time (spec section 4.4.5)

	// Static successors known at compile time: conditional branches record
	// both the taken and fall-through targets; J/JAL record one; JR/JALR
	// record none (resolved only through the indirect-jump hash).
	links [2]*link

	next *Block // collision-chain pointer (spec section 3); see cache.install
}

// execContext is the per-step interpretation context threaded through a
// block's closures.
type execContext struct {
	eng *Engine
}

// cache is the two-level L1/L2 block cache (spec section 3).
type cache struct {
	l1RAM  [ramL1Entries]*[l2PageSlots]*Block
	l1BIOS [biosL1Pages]*[l2PageSlots]*Block

	pool    []Block
	poolPos int

	// patchSites maps a not-yet-compiled guest target PC to the links
	// waiting to be resolved once that address compiles (spec section 3).
	patchSites map[uint32][]*link
}

func newCache() *cache {
	return &cache{
		pool:       make([]Block, blockPoolCapacity),
		patchSites: make(map[uint32][]*link),
	}
}

// reset discards every compiled block, per the cache-exhaustion recovery
// path in spec section 7 item 2 and the buffer-exhaustion note in section 5.
func (c *cache) reset() {
	for i := range c.l1RAM {
		c.l1RAM[i] = nil
	}
	for i := range c.l1BIOS {
		c.l1BIOS[i] = nil
	}
	c.poolPos = 0
	for k := range c.patchSites {
		delete(c.patchSites, k)
	}
	slog.Warn("dynarec: block cache reset")
}

// l2For returns the L2 table covering phys's 4 KiB page, allocating it
// lazily on first touch (spec section 3). ok is false for addresses outside
// RAM or BIOS (the only two regions blocks are compiled from), and also,
// when alloc is false, for a RAM/BIOS page whose table is not allocated yet.
func (c *cache) l2For(phys uint32, alloc bool) (*[l2PageSlots]*Block, bool) {
	switch {
	case phys < memory.RAMSize:
		page := phys / 4096
		if c.l1RAM[page] == nil {
			if !alloc {
				return nil, false
			}
			c.l1RAM[page] = &[l2PageSlots]*Block{}
		}
		return c.l1RAM[page], true
	case phys >= memory.BIOSBase && phys < memory.BIOSEnd:
		page := (phys - memory.BIOSBase) / 4096
		if c.l1BIOS[page] == nil {
			if !alloc {
				return nil, false
			}
			c.l1BIOS[page] = &[l2PageSlots]*Block{}
		}
		return c.l1BIOS[page], true
	default:
		return nil, false
	}
}

func slotIndex(phys uint32) int {
	return int((phys & 0xFFF) >> 2)
}

// lookup returns the cached block for phys and whether it is still fresh
// against currentGen (spec section 4.4.5). A nil block with ok==true means
// "page has no compiled block yet"; ok==false means phys is not RAM/BIOS.
func (c *cache) lookup(phys uint32, currentGen uint8) (blk *Block, fresh bool, ok bool) {
	l2, ok := c.l2For(phys, false)
	if !ok {
		if phys < memory.RAMSize || (phys >= memory.BIOSBase && phys < memory.BIOSEnd) {
			return nil, false, true // page not touched yet
		}
		return nil, false, false
	}
	blk = l2[slotIndex(phys)]
	if blk == nil {
		return nil, false, true
	}
	return blk, blk.pageGen == currentGen, true
}

// alloc reserves a Block from the fixed pool (spec section 3: "~32768
// entries; the pool is reset on cache flush").
func (c *cache) alloc() *Block {
	if c.poolPos >= len(c.pool) {
		panic(exhaustionPanic)
	}
	b := &c.pool[c.poolPos]
	c.poolPos++
	*b = Block{}
	return b
}

// install places a freshly compiled block into its L2 slot, chaining the
// block it replaces (if any) as the collision-chain predecessor, and
// resolves any patch sites waiting on this guest PC.
func (c *cache) install(phys uint32, b *Block) {
	l2, ok := c.l2For(phys, true)
	if !ok {
		return
	}
	idx := slotIndex(phys)
	b.next = l2[idx]
	l2[idx] = b

	if sites, pending := c.patchSites[b.PsxPC]; pending {
		for _, ln := range sites {
			ln.block = b
		}
		delete(c.patchSites, b.PsxPC)
	}
}

// recordPatchSite registers ln as unresolved until target is compiled.
func (c *cache) recordPatchSite(target uint32, ln *link) {
	c.patchSites[target] = append(c.patchSites[target], ln)
}
