package memory

/*
 * Memory tests.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

import "testing"

// Round-trip: writing a byte to RAM and reading it back yields the same
// byte regardless of segment prefix (spec section 8).
func TestSegmentAliasing(t *testing.T) {
	m := New()
	if f := m.Write8(0x00001234, 0x42); f != NoFault {
		t.Fatalf("unexpected fault %v", f)
	}
	for _, addr := range []uint32{0x00001234, 0x80001234, 0xA0001234} {
		v, f := m.Read8(addr)
		if f != NoFault {
			t.Fatalf("addr %#x: unexpected fault", addr)
		}
		if v != 0x42 {
			t.Fatalf("addr %#x: got %#x, want 0x42", addr, v)
		}
	}
}

func TestCacheIsolationDropsWrite(t *testing.T) {
	m := New()
	m.SetIsolate(true)
	if f := m.Write8(0x80000000, 0x55); f != NoFault {
		t.Fatalf("unexpected fault %v", f)
	}
	m.SetIsolate(false)
	v, _ := m.Read8(0x00000000)
	if v != 0 {
		t.Fatalf("write should have been dropped, got %#x", v)
	}
}

func TestCacheIsolationAllowsKseg1(t *testing.T) {
	m := New()
	m.SetIsolate(true)
	if f := m.Write8(0xA0000010, 0x7A); f != NoFault {
		t.Fatalf("unexpected fault %v", f)
	}
	v, _ := m.Read8(0x00000010)
	if v != 0x7A {
		t.Fatalf("kseg1 write should not be dropped, got %#x", v)
	}
}

func TestUnalignedAccessFaults(t *testing.T) {
	m := New()
	if _, f := m.Read32(0x00000003); f != FaultAdEL {
		t.Fatalf("expected AdEL, got %v", f)
	}
	if f := m.Write16(0x00000001, 0); f != FaultAdES {
		t.Fatalf("expected AdES, got %v", f)
	}
}

func TestBIOSReadOnly(t *testing.T) {
	m := New()
	m.LoadBIOS([]byte{0x11, 0x22, 0x33, 0x44})
	v, _ := m.Read32(BIOSBase)
	if v != 0x44332211 {
		t.Fatalf("got %#x", v)
	}
	_ = m.Write32(BIOSBase, 0xDEADBEEF)
	v, _ = m.Read32(BIOSBase)
	if v != 0x44332211 {
		t.Fatalf("BIOS write should be ignored, got %#x", v)
	}
}

func TestPageGenerationBumpsOnWrite(t *testing.T) {
	m := New()
	before := m.PageGen(0x1000)
	_ = m.Write32(0x1000, 1)
	after := m.PageGen(0x1000)
	if after == before {
		t.Fatalf("page generation did not advance")
	}
}

func TestScratchpadAndUnmapped(t *testing.T) {
	m := New()
	if f := m.Write32(ScratBase, 0xCAFEBABE); f != NoFault {
		t.Fatalf("unexpected fault %v", f)
	}
	v, _ := m.Read32(ScratBase)
	if v != 0xCAFEBABE {
		t.Fatalf("got %#x", v)
	}
	// Unmapped region returns 0 on read, silently drops writes.
	_ = m.Write32(0x1F803500, 0x11223344)
	v, _ = m.Read32(0x1F803500)
	if v != 0 {
		t.Fatalf("unmapped read should be 0, got %#x", v)
	}
}

func TestIOContractWidth(t *testing.T) {
	m := New()
	var gotAddr uint32
	var gotData uint32
	var gotWidth int
	m.SetIO(func(phys uint32) uint32 {
		gotAddr = phys
		return 0x1234
	}, func(phys uint32, data uint32, width int) {
		gotAddr, gotData, gotWidth = phys, data, width
	})
	_ = m.Write16(IOBase, 0x55)
	if gotAddr != IOBase || gotData != 0x55 || gotWidth != 2 {
		t.Fatalf("got addr=%#x data=%#x width=%d", gotAddr, gotData, gotWidth)
	}
	v, _ := m.Read32(IOBase)
	if v != 0x1234 {
		t.Fatalf("got %#x", v)
	}
}
