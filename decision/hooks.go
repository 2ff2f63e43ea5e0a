package decision

import (
	"github.com/sentrywall/sentrywall/policymap"
	"github.com/sentrywall/sentrywall/wire"
)

// FileOpenTables are the ALLOWED/DENIED path-set tables for the
// file-open hook.
type FileOpenTables struct {
	Allowed *policymap.Map[wire.PathSet]
	Denied  *policymap.Map[wire.PathSet]
}

// EvaluateFileOpen runs the file-open hook algorithm, including the
// path-containment extension (spec.md §4.4 Step D): the target inode
// and every ancestor directory inode (bounded by MaxPathDepth) are
// each tested for set membership, and a hit on any of them is a hit
// for the whole path.
func EvaluateFileOpen(t FileOpenTables, lookup ParentLookup, imageInode, targetInode uint64) (verdict Verdict, alerted bool, governed bool, err error) {
	candidates := append([]uint64{targetInode}, WalkAncestors(lookup, targetInode)...)
	member := func(ps wire.PathSet) bool {
		for _, c := range candidates {
			if ps.Contains(c) {
				return true
			}
		}
		return false
	}
	return evaluateCore(t.Allowed, t.Denied, imageInode, member)
}

// BoolTables are the ALLOWED/DENIED presence-flag tables shared by the
// mount family and setuid hooks.
type BoolTables struct {
	Allowed *policymap.Map[wire.BoolFlag]
	Denied  *policymap.Map[wire.BoolFlag]
}

func evaluateBoolHook(t BoolTables, imageInode uint64) (Verdict, bool, bool, error) {
	never := func(wire.BoolFlag) bool { return false }
	return evaluateCore(t.Allowed, t.Denied, imageInode, never)
}

// EvaluateMount runs the mount/remount/unmount hook algorithm. The
// three operations share one governed surface per spec.md §4.2.
func EvaluateMount(t BoolTables, imageInode uint64) (Verdict, bool, bool, error) {
	return evaluateBoolHook(t, imageInode)
}

// EvaluateSetuid runs the credential-change (setuid) hook algorithm.
func EvaluateSetuid(t BoolTables, imageInode uint64) (Verdict, bool, bool, error) {
	return evaluateBoolHook(t, imageInode)
}

// PortTables are the ALLOWED/DENIED port-set tables for socket-bind.
type PortTables struct {
	Allowed *policymap.Map[wire.PortSet]
	Denied  *policymap.Map[wire.PortSet]
}

// EvaluateSocketBind runs the socket-bind hook algorithm. Port 0
// (OS-assigned) always allows without consulting the tables (spec.md
// §4.4 Step E / §4.4 tie-breaks).
func EvaluateSocketBind(t PortTables, imageInode uint64, port uint16) (verdict Verdict, alerted bool, governed bool, err error) {
	if port == 0 {
		return Allow, false, false, nil
	}
	member := func(ps wire.PortSet) bool { return ps.Contains(port) }
	return evaluateCore(t.Allowed, t.Denied, imageInode, member)
}

// IPv4Tables are the ALLOWED/DENIED IPv4-set tables for socket-connect.
type IPv4Tables struct {
	Allowed *policymap.Map[wire.IPv4Set]
	Denied  *policymap.Map[wire.IPv4Set]
}

// EvaluateSocketConnect4 runs the socket-connect hook algorithm for an
// IPv4 destination.
func EvaluateSocketConnect4(t IPv4Tables, imageInode uint64, addr uint32) (verdict Verdict, alerted bool, governed bool, err error) {
	member := func(s wire.IPv4Set) bool { return s.Contains(addr) }
	return evaluateCore(t.Allowed, t.Denied, imageInode, member)
}

// IPv6Tables are the ALLOWED/DENIED IPv6-set tables for socket-connect.
type IPv6Tables struct {
	Allowed *policymap.Map[wire.IPv6Set]
	Denied  *policymap.Map[wire.IPv6Set]
}

// EvaluateSocketConnect6 runs the socket-connect hook algorithm for an
// IPv6 destination.
func EvaluateSocketConnect6(t IPv6Tables, imageInode uint64, addr [16]byte) (verdict Verdict, alerted bool, governed bool, err error) {
	member := func(s wire.IPv6Set) bool { return s.Contains(addr) }
	return evaluateCore(t.Allowed, t.Denied, imageInode, member)
}

// EvaluateExec runs the program-exec check. It has no policy surface
// (spec.md §4.7 "ProgramExec: no policy surface") — it is governed
// entirely by the built-in hardening rule in spec.md §4.4 Step E: deny
// execution with zero arguments.
func EvaluateExec(argc int) (verdict Verdict, alerted bool) {
	if argc == 0 {
		return Deny, true
	}
	return Allow, false
}
