package wire

import "testing"

func TestReadWriteRoundTrip(t *testing.T) {
	want := FileOpenAlert{Pid: 42, ImageInode: 7, TargetInode: 99}
	buf, err := Write(want)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read[FileOpenAlert](buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != want {
		t.Errorf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestReadShortBuffer(t *testing.T) {
	if _, err := Read[FileOpenAlert]([]byte{1, 2, 3}); err == nil {
		t.Error("expected error on short buffer, got nil")
	}
}

func TestPathSetWildcard(t *testing.T) {
	w := WildcardPathSet()
	if !w.IsWildcard() {
		t.Error("WildcardPathSet() is not seen as wildcard")
	}
	if !w.Contains(12345) {
		t.Error("wildcard set must contain every inode")
	}
}

func TestPathSetMembership(t *testing.T) {
	p := ExplicitPathSet()
	p.Inodes[1] = 10
	p.Inodes[2] = 20
	for _, in := range []uint64{10, 20} {
		if !p.Contains(in) {
			t.Errorf("Contains(%d) = false, want true", in)
		}
	}
	if p.Contains(30) {
		t.Error("Contains(30) = true, want false")
	}
	// last slot is reserved and must never be consulted
	p.Inodes[PathSetSize-1] = 99
	if p.Contains(99) {
		t.Error("reserved slot must not be consulted for membership")
	}
}

func TestPortSetWildcardAndMembership(t *testing.T) {
	w := WildcardPortSet()
	if !w.IsWildcard() || !w.Contains(8000) {
		t.Error("wildcard port set must match every port")
	}
	p := ExplicitPortSet()
	p.Ports[1] = 8000
	if !p.Contains(8000) {
		t.Error("expected 8000 to be a member")
	}
	if p.Contains(8001) {
		t.Error("8001 should not be a member")
	}
}

func TestIPv6SetWildcardAndMembership(t *testing.T) {
	w := WildcardIPv6Set()
	addr := [16]byte{0x20, 0x01}
	if !w.IsWildcard() || !w.Contains(addr) {
		t.Error("wildcard IPv6 set must match every address")
	}
	s := ExplicitIPv6Set()
	s.Addrs[1] = addr
	if !s.Contains(addr) {
		t.Error("expected address to be a member")
	}
	other := [16]byte{0x20, 0x02}
	if s.Contains(other) {
		t.Error("unrelated address must not match")
	}
}
