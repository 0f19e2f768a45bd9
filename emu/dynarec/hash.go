/*
   Hash: indirect-jump hash cache (spec section 3, section 4.4.3).

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

const (
	hashSets = 4096
	hashWays = 2
	hashMask = hashSets - 1
)

type hashWay struct {
	valid bool
	pc    uint32
	blk   *Block
}

// indirectHash is the 4096 x 2-way set-associative cache mapping guest PC
// to a compiled Block, populated by Engine.resolve on every lookup and
// probed first by Engine.resolve before the L1/L2 cache (spec section 3,
// section 4.4.3). It
// is a cache, not authoritative state: staleness is fine because a miss (or
// a page-gen mismatch on the hit) falls back to the real block cache (spec
// section 9).
type indirectHash struct {
	sets [hashSets][hashWays]hashWay
}

func hashOf(pc uint32) uint32 {
	return ((pc >> 12) ^ pc) & hashMask
}

// lookup returns the cached block for pc, or nil on a miss.
func (h *indirectHash) lookup(pc uint32) *Block {
	set := &h.sets[hashOf(pc)]
	for i := range set {
		if set[i].valid && set[i].pc == pc {
			return set[i].blk
		}
	}
	return nil
}

// install populates the cache for pc, evicting way 0 in favor of way 1 on a
// second distinct PC hashing to the same set (simple 2-way LRU-ish policy:
// shift way 1 -> way 0, insert new entry at way 1).
func (h *indirectHash) install(pc uint32, b *Block) {
	set := &h.sets[hashOf(pc)]
	for i := range set {
		if set[i].valid && set[i].pc == pc {
			set[i].blk = b
			return
		}
	}
	set[0] = set[1]
	set[1] = hashWay{valid: true, pc: pc, blk: b}
}

// reset clears every entry, used on cache-exhaustion recovery (spec
// section 5, section 7 item 2).
func (h *indirectHash) reset() {
	for i := range h.sets {
		h.sets[i] = [hashWays]hashWay{}
	}
}
