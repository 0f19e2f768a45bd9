package device

import "testing"

func TestTestDeviceWidths(t *testing.T) {
	d := NewTestDevice(0x1F801040)
	d.WriteHW(0x1F801040, 0xAABBCCDD, 4)
	if v := d.ReadHW(0x1F801040); v != 0xAABBCCDD {
		t.Fatalf("got %#x", v)
	}
	d.WriteHW(0x1F801040, 0x55, 1)
	if v := d.ReadHW(0x1F801040); v != 0xAABBCC55 {
		t.Fatalf("got %#x", v)
	}
	if d.Reads != 2 || d.Writes != 2 {
		t.Fatalf("reads=%d writes=%d", d.Reads, d.Writes)
	}
}

func TestTestDeviceOutOfRange(t *testing.T) {
	d := NewTestDevice(0x1F801040)
	if v := d.ReadHW(0x1F802000); v != 0 {
		t.Fatalf("out of range read should be 0, got %#x", v)
	}
}
