/*
   Codebuf: JIT code-buffer arena (spec section 3, section 4.4.7, section 9).

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
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"
)

// CodeBufferSize is the 4 MiB append-only arena from spec section 4.4.
const CodeBufferSize = 4 * 1024 * 1024

// wordsPerNativeInstruction is an accounting placeholder standing in for
// "how many host code-buffer bytes one generated closure would occupy" —
// this core never emits real R5900 bytes into the arena (see DESIGN.md),
// but still reserves and W^X-toggles real mmap'd pages so the
// begin_emit/end_emit permission and I-cache-invalidation contract in spec
// section 4.4.7 and section 9 has a concrete, honest home.
const wordsPerNativeInstruction = 4

// codeBuffer is the mapped, flushable arena described in spec section 4.4
// and owned per spec section 9 ("JIT code buffer ownership: modeled as a
// singleton region owned by the emulator instance").
type codeBuffer struct {
	mem      []byte
	cursor   int
	emitting bool
}

func newCodeBuffer() (*codeBuffer, error) {
	mem, err := unix.Mmap(-1, 0, CodeBufferSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("dynarec: mmap code buffer: %w", err)
	}
	return &codeBuffer{mem: mem}, nil
}

// beginEmit toggles the arena writable, per spec section 4.4.7/section 9.
func (b *codeBuffer) beginEmit() error {
	if b.emitting {
		return nil
	}
	if err := unix.Mprotect(b.mem, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("dynarec: mprotect RW: %w", err)
	}
	b.emitting = true
	return nil
}

// reserve accounts nativeWords worth of space for a freshly compiled
// block, returning its starting offset. It never fails with an error;
// exhaustion is reported via ok==false so the caller can trigger the cache
// reset described in spec section 5/section 7 item 2.
func (b *codeBuffer) reserve(nativeWords int) (offset int, ok bool) {
	n := nativeWords * wordsPerNativeInstruction
	if b.cursor+n > len(b.mem) {
		return 0, false
	}
	offset = b.cursor
	for i := offset; i < offset+n; i++ {
		b.mem[i] = 0 // placeholder bytes; real bytes are never emitted here
	}
	b.cursor += n
	return offset, true
}

// endEmit toggles the arena back to executable and invalidates the host
// I-cache for the freshly written range (spec section 4.4.7: "After writing
// new code, the implementation must invalidate the host I-cache for the
// affected range before the first execution"). On this core's
// threaded-code model there is no real I-cache to flush — the hook is kept
// so the contract is visible and so a future platform-specific
// implementation has exactly one place to add it.
func (b *codeBuffer) endEmit(from, to int) error {
	if !b.emitting {
		return nil
	}
	if err := unix.Mprotect(b.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("dynarec: mprotect RX: %w", err)
	}
	b.emitting = false
	if debugEnabled {
		slog.Debug("dynarec: code buffer range committed", "from", from, "to", to)
	}
	return nil
}

// reset reclaims the whole arena (spec section 5: "on exhaustion, the
// buffer is reset, both L2 tables are freed, the indirect-jump hash is
// zeroed, and the block pool index is reset").
func (b *codeBuffer) reset() {
	b.cursor = 0
}

func (b *codeBuffer) close() error {
	return unix.Munmap(b.mem)
}
