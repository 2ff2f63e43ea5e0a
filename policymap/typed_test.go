package policymap

import (
	"testing"

	"github.com/sentrywall/sentrywall/wire"
)

func TestMapPutGetDelete(t *testing.T) {
	opener := NewMemoryOpener()
	m, err := Open[wire.PathSet](opener, "file_open_denied")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	if _, ok, err := m.Get(42); err != nil || ok {
		t.Fatalf("Get on empty map: ok=%v err=%v", ok, err)
	}

	var ps wire.PathSet
	ps.Inodes[1] = 1234
	if err := m.Put(42, ps); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := m.Get(42)
	if err != nil || !ok {
		t.Fatalf("Get after Put: ok=%v err=%v", ok, err)
	}
	if got != ps {
		t.Errorf("Get returned %+v, want %+v", got, ps)
	}

	if err := m.Delete(42); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := m.Get(42); ok {
		t.Error("Get after Delete still reports present")
	}
}

func TestMapIter(t *testing.T) {
	opener := NewMemoryOpener()
	m, err := Open[wire.BoolFlag](opener, "mount_denied")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	for _, key := range []uint64{wire.WildcardSubject, 7, 9} {
		if err := m.Put(key, wire.BoolFlag{}); err != nil {
			t.Fatalf("Put(%d): %v", key, err)
		}
	}
	entries, err := m.Iter()
	if err != nil {
		t.Fatalf("Iter: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Iter returned %d entries, want 3", len(entries))
	}
}

func TestMemoryOpenerRebindsSameName(t *testing.T) {
	opener := NewMemoryOpener()
	a, _ := Open[wire.BoolFlag](opener, "setuid_allowed")
	a.Put(7, wire.BoolFlag{})

	b, err := Open[wire.BoolFlag](opener, "setuid_allowed")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok, _ := b.Get(7); !ok {
		t.Error("re-opening the same name should see prior writes (pin semantics)")
	}
}
