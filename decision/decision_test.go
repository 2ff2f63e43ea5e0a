package decision

import (
	"testing"

	"github.com/sentrywall/sentrywall/policymap"
	"github.com/sentrywall/sentrywall/wire"
)

func boolTables(t *testing.T) BoolTables {
	t.Helper()
	opener := policymap.NewMemoryOpener()
	allowed, err := policymap.Open[wire.BoolFlag](opener, "t_allowed")
	if err != nil {
		t.Fatal(err)
	}
	denied, err := policymap.Open[wire.BoolFlag](opener, "t_denied")
	if err != nil {
		t.Fatal(err)
	}
	return BoolTables{Allowed: allowed, Denied: denied}
}

func portTables(t *testing.T) PortTables {
	t.Helper()
	opener := policymap.NewMemoryOpener()
	allowed, _ := policymap.Open[wire.PortSet](opener, "bind_allowed")
	denied, _ := policymap.Open[wire.PortSet](opener, "bind_denied")
	return PortTables{Allowed: allowed, Denied: denied}
}

func fileOpenTables(t *testing.T) FileOpenTables {
	t.Helper()
	opener := policymap.NewMemoryOpener()
	allowed, _ := policymap.Open[wire.PathSet](opener, "file_open_allowed")
	denied, _ := policymap.Open[wire.PathSet](opener, "file_open_denied")
	return FileOpenTables{Allowed: allowed, Denied: denied}
}

func ipv4Tables(t *testing.T) IPv4Tables {
	t.Helper()
	opener := policymap.NewMemoryOpener()
	allowed, _ := policymap.Open[wire.IPv4Set](opener, "connect4_allowed")
	denied, _ := policymap.Open[wire.IPv4Set](opener, "connect4_denied")
	return IPv4Tables{Allowed: allowed, Denied: denied}
}

// ∀ subject, hook: with no policy installed, the engine returns ALLOW
// and emits no alert (spec.md §8).
func TestUngovernedAllowsWithNoAlert(t *testing.T) {
	bt := boolTables(t)
	verdict, alerted, governed, err := EvaluateMount(bt, 42)
	if err != nil {
		t.Fatalf("EvaluateMount: %v", err)
	}
	if governed {
		t.Error("expected ungoverned hook")
	}
	if verdict != Allow || alerted {
		t.Errorf("got verdict=%v alerted=%v, want allow/false", verdict, alerted)
	}
}

// ∀ subject, hook: ALLOW=All, DENY=All produces DENY with alert
// (contradiction rule).
func TestContradictionDenies(t *testing.T) {
	bt := boolTables(t)
	bt.Allowed.Put(wire.WildcardSubject, wire.BoolFlag{})
	bt.Denied.Put(wire.WildcardSubject, wire.BoolFlag{})

	verdict, alerted, governed, err := EvaluateSetuid(bt, 42)
	if err != nil {
		t.Fatalf("EvaluateSetuid: %v", err)
	}
	if !governed || verdict != Deny || !alerted {
		t.Errorf("got verdict=%v alerted=%v governed=%v, want deny/true/true", verdict, alerted, governed)
	}
}

// wildcard ALLOW=All, wildcard DENY=∅ allows everything.
func TestWildcardAllowOnly(t *testing.T) {
	bt := boolTables(t)
	bt.Allowed.Put(wire.WildcardSubject, wire.BoolFlag{})

	verdict, alerted, governed, err := EvaluateMount(bt, 7)
	if err != nil {
		t.Fatal(err)
	}
	if !governed || verdict != Allow || alerted {
		t.Errorf("got verdict=%v alerted=%v governed=%v, want allow/false/true", verdict, alerted, governed)
	}
}

// wildcard DENY=All, wildcard ALLOW=∅ denies everything.
func TestWildcardDenyOnly(t *testing.T) {
	bt := boolTables(t)
	bt.Denied.Put(wire.WildcardSubject, wire.BoolFlag{})

	verdict, alerted, governed, err := EvaluateMount(bt, 7)
	if err != nil {
		t.Fatal(err)
	}
	if !governed || verdict != Deny || !alerted {
		t.Errorf("got verdict=%v alerted=%v governed=%v, want deny/true/true", verdict, alerted, governed)
	}
}

// Scenario 2 from spec.md §8: deny setuid except for one binary.
func TestSetuidDenyExceptOneSubject(t *testing.T) {
	bt := boolTables(t)
	bt.Denied.Put(wire.WildcardSubject, wire.BoolFlag{}) // All => allow=false
	const sudoInode = 555
	bt.Allowed.Put(sudoInode, wire.BoolFlag{}) // sudo => allow=true

	verdict, _, _, err := EvaluateSetuid(bt, sudoInode)
	if err != nil {
		t.Fatal(err)
	}
	if verdict != Allow {
		t.Errorf("sudo verdict = %v, want allow", verdict)
	}

	const otherInode = 556
	verdict, alerted, _, err := EvaluateSetuid(bt, otherInode)
	if err != nil {
		t.Fatal(err)
	}
	if verdict != Deny || !alerted {
		t.Errorf("other binary verdict = %v alerted=%v, want deny/true", verdict, alerted)
	}
}

// Scenario 1 from spec.md §8: deny bind on port 8000 for all.
func TestSocketBindDenyPort(t *testing.T) {
	pt := portTables(t)
	pt.Allowed.Put(wire.WildcardSubject, wire.WildcardPortSet())
	deny := wire.ExplicitPortSet()
	deny.Ports[1] = 8000
	pt.Denied.Put(wire.WildcardSubject, deny)

	verdict, alerted, _, err := EvaluateSocketBind(pt, 1, 8000)
	if err != nil {
		t.Fatal(err)
	}
	if verdict != Deny || !alerted {
		t.Errorf("port 8000 verdict=%v alerted=%v, want deny/true", verdict, alerted)
	}

	verdict, alerted, _, err = EvaluateSocketBind(pt, 1, 8001)
	if err != nil {
		t.Fatal(err)
	}
	if verdict != Allow || alerted {
		t.Errorf("port 8001 verdict=%v alerted=%v, want allow/false", verdict, alerted)
	}
}

// Port 0 always allows without consulting tables, even under a
// deny-everything allowlist.
func TestSocketBindPortZeroAlwaysAllows(t *testing.T) {
	pt := portTables(t)
	pt.Denied.Put(wire.WildcardSubject, wire.WildcardPortSet())

	verdict, alerted, governed, err := EvaluateSocketBind(pt, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if verdict != Allow || alerted || governed {
		t.Errorf("port 0 verdict=%v alerted=%v governed=%v, want allow/false/false", verdict, alerted, governed)
	}
}

// Scenario 3 from spec.md §8: deny file-open under /tmp/test for all,
// path-containment extension.
func TestFileOpenPathContainment(t *testing.T) {
	ft := fileOpenTables(t)
	ft.Allowed.Put(wire.WildcardSubject, wire.WildcardPathSet())
	deny := wire.ExplicitPathSet()
	const testDirInode = 100
	deny.Inodes[1] = testDirInode
	ft.Denied.Put(wire.WildcardSubject, deny)

	// Target inode 400 sits three levels below the denied directory:
	// ancestors 300, 200, then 100 (the denied directory).
	parents := map[uint64]uint64{
		400: 300,
		300: 200,
		200: testDirInode,
		100: 0, // the walk stops here: no parent
	}
	lookup := ParentLookupFunc(func(inode uint64) (uint64, bool) {
		p, ok := parents[inode]
		return p, ok && p != 0
	})

	verdict, alerted, _, err := EvaluateFileOpen(ft, lookup, 1, 400)
	if err != nil {
		t.Fatal(err)
	}
	if verdict != Deny || !alerted {
		t.Errorf("nested path verdict=%v alerted=%v, want deny/true", verdict, alerted)
	}

	// Unrelated path allows.
	verdict, alerted, _, err = EvaluateFileOpen(ft, ParentLookupFunc(func(uint64) (uint64, bool) { return 0, false }), 1, 999)
	if err != nil {
		t.Fatal(err)
	}
	if verdict != Allow || alerted {
		t.Errorf("unrelated path verdict=%v alerted=%v, want allow/false", verdict, alerted)
	}
}

// Directory walk terminates at MaxPathDepth even with a cyclic parent
// graph.
func TestWalkAncestorsBoundedAgainstCycle(t *testing.T) {
	lookup := ParentLookupFunc(func(inode uint64) (uint64, bool) {
		return inode + 1, true // never terminates on its own
	})
	got := WalkAncestors(lookup, 1)
	if len(got) != MaxPathDepth {
		t.Errorf("WalkAncestors returned %d entries, want %d", len(got), MaxPathDepth)
	}
}

func TestWalkAncestorsSelfLoop(t *testing.T) {
	lookup := ParentLookupFunc(func(inode uint64) (uint64, bool) {
		return inode, true // parent == self
	})
	got := WalkAncestors(lookup, 5)
	if len(got) != 0 {
		t.Errorf("WalkAncestors on self-loop returned %d entries, want 0", len(got))
	}
}

// Scenario 4 from spec.md §8: deny connect to a specific IPv4 address.
func TestSocketConnect4Deny(t *testing.T) {
	it := ipv4Tables(t)
	it.Allowed.Put(wire.WildcardSubject, wire.WildcardIPv4Set())
	deny := wire.ExplicitIPv4Set()
	target := uint32(127<<24 | 1<<16 | 2<<8 | 3)
	deny.Addrs[1] = target
	it.Denied.Put(wire.WildcardSubject, deny)

	verdict, alerted, _, err := EvaluateSocketConnect4(it, 1, target)
	if err != nil {
		t.Fatal(err)
	}
	if verdict != Deny || !alerted {
		t.Errorf("verdict=%v alerted=%v, want deny/true", verdict, alerted)
	}

	other := uint32(127<<24 | 1<<16 | 2<<8 | 4)
	verdict, alerted, _, err = EvaluateSocketConnect4(it, 1, other)
	if err != nil {
		t.Fatal(err)
	}
	if verdict != Allow || alerted {
		t.Errorf("other address verdict=%v alerted=%v, want allow/false", verdict, alerted)
	}
}

// Scenario 5 from spec.md §8: contradiction on bind is deny except
// port 0's unconditional early exit.
func TestSocketBindContradictionExceptPortZero(t *testing.T) {
	pt := portTables(t)
	pt.Allowed.Put(wire.WildcardSubject, wire.WildcardPortSet())
	pt.Denied.Put(wire.WildcardSubject, wire.WildcardPortSet())

	verdict, alerted, _, err := EvaluateSocketBind(pt, 1, 80)
	if err != nil {
		t.Fatal(err)
	}
	if verdict != Deny || !alerted {
		t.Errorf("port 80 verdict=%v alerted=%v, want deny/true", verdict, alerted)
	}

	verdict, alerted, governed, err := EvaluateSocketBind(pt, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if verdict != Allow || alerted || governed {
		t.Errorf("port 0 verdict=%v alerted=%v governed=%v, want allow/false/false", verdict, alerted, governed)
	}
}

func TestEvaluateExecZeroArgsDenied(t *testing.T) {
	if v, alerted := EvaluateExec(0); v != Deny || !alerted {
		t.Errorf("argc=0: verdict=%v alerted=%v, want deny/true", v, alerted)
	}
	if v, alerted := EvaluateExec(1); v != Allow || alerted {
		t.Errorf("argc=1: verdict=%v alerted=%v, want allow/false", v, alerted)
	}
}

// Idempotence: repeated installs are equivalent to a single install.
func TestIdempotentInstall(t *testing.T) {
	bt := boolTables(t)
	for i := 0; i < 3; i++ {
		bt.Denied.Put(wire.WildcardSubject, wire.BoolFlag{})
	}
	verdict, _, _, err := EvaluateMount(bt, 9)
	if err != nil {
		t.Fatal(err)
	}
	if verdict != Deny {
		t.Errorf("verdict=%v, want deny", verdict)
	}
}
