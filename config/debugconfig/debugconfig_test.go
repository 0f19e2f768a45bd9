package debugconfig

import "testing"

func TestApplyKnownComponents(t *testing.T) {
	if err := Apply([]string{"memory", "scheduler", "irq", "cpu", "dynarec"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
}

func TestApplyUnknownComponent(t *testing.T) {
	if err := Apply([]string{"gpu"}); err == nil {
		t.Fatal("expected an error for an unrecognized component name")
	}
}
