package fatal

import (
	"fmt"
	"testing"
)

func TestCatchConvertsViolation(t *testing.T) {
	err := Catch(func() {
		Check(1+1 == 3, "arithmetic is broken: %d", 2)
	})
	if err == nil {
		t.Fatalf("expected violation")
	}
	if !IsViolation(err) {
		t.Fatalf("expected *Violation, got %T", err)
	}
	if got, want := err.Error(), "invariant violation: arithmetic is broken: 2"; got != want {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestCatchPassesThroughSuccess(t *testing.T) {
	if err := Catch(func() { Check(true, "never") }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCatchRepanicsForeignValues(t *testing.T) {
	defer func() {
		if r := recover(); r != "boom" {
			t.Fatalf("expected foreign panic to propagate, got %v", r)
		}
	}()
	_ = Catch(func() { panic("boom") })
	t.Fatalf("unreachable")
}

func TestIsViolationWrapped(t *testing.T) {
	err := fmt.Errorf("phase failed: %w", &Violation{Msg: "x"})
	if !IsViolation(err) {
		t.Fatalf("wrapped violation not detected")
	}
}
