package irq

import "testing"

func TestSignalAndMask(t *testing.T) {
	c := New()
	c.Signal(VBlank)
	c.Signal(CDROM)
	if c.Pending() != 0 {
		t.Fatalf("mask is zero, nothing should be pending")
	}
	c.SetMask(1 << VBlank)
	if c.Pending() != 1<<VBlank {
		t.Fatalf("got %#x, want bit %d set", c.Pending(), VBlank)
	}
}

func TestAckIsWriteToClear(t *testing.T) {
	c := New()
	c.Signal(VBlank)
	c.Signal(CDROM)
	c.Ack(^uint16(1 << VBlank)) // a 0 bit clears: clears only VBLANK
	if c.IStat()&(1<<CDROM) == 0 {
		t.Fatalf("CDROM bit should remain set")
	}
	if c.IStat()&(1<<VBlank) != 0 {
		t.Fatalf("VBLANK bit should have been cleared")
	}
}

func TestMaskClampedTo11Bits(t *testing.T) {
	c := New()
	c.SetMask(0xFFFF)
	if c.IMask() != 0x7FF {
		t.Fatalf("IMask = %#x, want 0x7FF", c.IMask())
	}
}

func TestDelayedAssertion(t *testing.T) {
	c := New()
	c.SetMask(1 << SIO)
	c.ScheduleSignal(SIO, 1000)
	c.PollDelayed(999)
	if c.Pending() != 0 {
		t.Fatalf("delayed interrupt fired too early")
	}
	c.PollDelayed(1000)
	if c.Pending() != 1<<SIO {
		t.Fatalf("delayed interrupt did not fire at deadline")
	}
}
