package bpf

import (
	"errors"
	"testing"
)

func TestAllMapsAndProgramsNonEmpty(t *testing.T) {
	if len(AllMaps()) == 0 {
		t.Error("AllMaps() is empty")
	}
	if len(AllPrograms()) == 0 {
		t.Error("AllPrograms() is empty")
	}
}

func TestAllMapsCoversHookPairs(t *testing.T) {
	want := []string{FileOpenAllowed, FileOpenDenied, MountAllowed, MountDenied, BindAllowed, BindDenied}
	names := map[string]bool{}
	for _, n := range AllMaps() {
		names[n] = true
	}
	for _, w := range want {
		if !names[w] {
			t.Errorf("AllMaps() missing %q", w)
		}
	}
}

func TestEnvironmentErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	ee := &EnvironmentError{Check: "lsm", Err: inner}
	if errors.Unwrap(ee) != inner {
		t.Error("Unwrap did not return the wrapped error")
	}
	if ee.Error() == "" {
		t.Error("Error() returned empty string")
	}
}
