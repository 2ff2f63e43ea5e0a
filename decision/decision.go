// Package decision implements C4: the algorithm every governed LSM
// hook runs, spec.md §4.4 Steps A–F, as a single generic core shared
// by every hook kind.
//
// The real enforcement point for this algorithm is a BPF LSM program
// (out of scope for this repository — see SPEC_FULL.md §3, "the
// kernel side"). This package is the byte-for-byte-faithful Go
// carrier of the same algorithm: every invariant in spec.md §8 is
// tested directly against it, and controller.Manager can run it as a
// software-only engine when no BPF-LSM-capable kernel is available.
package decision

import (
	"fmt"

	"github.com/sentrywall/sentrywall/policymap"
	"github.com/sentrywall/sentrywall/wire"
)

// Verdict is the engine's decision: Allow or Deny. Code converts it to
// the value returned to the kernel (0, or negative EPERM-equivalent per
// spec.md §4.4 "Return contract").
type Verdict int

const (
	Allow Verdict = iota
	Deny
)

func (v Verdict) String() string {
	if v == Deny {
		return "deny"
	}
	return "allow"
}

// Code returns the value the hook returns to the kernel: 0 for allow,
// -1 (EPERM) for deny.
func (v Verdict) Code() int32 {
	if v == Deny {
		return -1
	}
	return 0
}

// Mode is the effective governance mode for one hook, determined
// dynamically per event from the wildcard entries (spec.md §4.4 Step B).
type Mode int

const (
	// Denylist: everything allowed by default, denials carved out.
	Denylist Mode = iota
	// Allowlist: everything denied by default, allowances carved out.
	Allowlist
)

func (m Mode) String() string {
	if m == Allowlist {
		return "allowlist"
	}
	return "denylist"
}

// SetValue is satisfied by every policy value type that carries a
// slot-0 wildcard sentinel: wire.PathSet, wire.PortSet, wire.IPv4Set,
// wire.IPv6Set and wire.BoolFlag (whose "wildcard" is simply its
// presence — see wire.BoolFlag.IsWildcard).
type SetValue interface {
	wire.PlainOldData
	IsWildcard() bool
}

// evaluateCore runs spec.md §4.4 Steps B and C for one hook against
// one pair of tables. member decides set membership for the
// hook-specific argument; callers close over their own argument value
// (or, for file-open, a whole candidate list — see EvaluateFileOpen).
//
// governed reports whether the hook was governed at all (spec Step B
// "Otherwise, the hook is not governed: return ALLOW").
func evaluateCore[V SetValue](allowed, denied *policymap.Map[V], imageInode uint64, member func(V) bool) (verdict Verdict, alerted bool, governed bool, err error) {
	allowedWild, okAW, err := allowed.Get(wire.WildcardSubject)
	if err != nil {
		return Allow, false, false, fmt.Errorf("decision: read allowed wildcard: %w", err)
	}
	deniedWild, okDW, err := denied.Get(wire.WildcardSubject)
	if err != nil {
		return Allow, false, false, fmt.Errorf("decision: read denied wildcard: %w", err)
	}

	var mode Mode
	switch {
	case okAW && allowedWild.IsWildcard():
		mode = Denylist
	case okDW && deniedWild.IsWildcard():
		mode = Allowlist
	default:
		return Allow, false, false, nil
	}

	var opposing *policymap.Map[V]
	var wildOpposing V
	var okWildOpposing bool
	fixed := Deny
	if mode == Allowlist {
		opposing, wildOpposing, okWildOpposing = allowed, allowedWild, okAW
		fixed = Allow
	} else {
		opposing, wildOpposing, okWildOpposing = denied, deniedWild, okDW
	}

	if okWildOpposing && (wildOpposing.IsWildcard() || member(wildOpposing)) {
		return fixed, fixed == Deny, true, nil
	}

	subjVal, okSubj, err := opposing.Get(imageInode)
	if err != nil {
		return Allow, false, false, fmt.Errorf("decision: read subject entry: %w", err)
	}
	if okSubj && (subjVal.IsWildcard() || member(subjVal)) {
		return fixed, fixed == Deny, true, nil
	}

	if mode == Denylist {
		return Allow, false, true, nil
	}
	return Deny, true, true, nil
}
