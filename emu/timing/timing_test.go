package timing

import "testing"

func TestFrameCycles(t *testing.T) {
	ntsc := FrameCycles(NTSCCyclesPerScanline, NTSCScanlinesPerFrame)
	if want := NTSCCyclesPerScanline * NTSCScanlinesPerFrame; ntsc != want {
		t.Errorf("FrameCycles(NTSC) = %d, want %d", ntsc, want)
	}

	pal := FrameCycles(PALCyclesPerScanline, PALScanlinesPerFrame)
	if want := PALCyclesPerScanline * PALScanlinesPerFrame; pal != want {
		t.Errorf("FrameCycles(PAL) = %d, want %d", pal, want)
	}
}

func TestDotclockNumeratorCoversStandardWidths(t *testing.T) {
	for _, width := range []int{256, 320, 368, 512, 640} {
		if _, ok := DotclockNumerator[width]; !ok {
			t.Errorf("DotclockNumerator missing entry for width %d", width)
		}
	}
}
