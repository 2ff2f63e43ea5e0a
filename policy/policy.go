// Package policy implements C7: the high-level policy model exposed
// to callers of the controller, and its bidirectional translation to
// and from the wire records policy maps actually store.
//
// A single tagged struct (Policy) stands in for the "dynamic dispatch
// over policy kinds" spec.md §9 flags as duplicated in the source: one
// Hook tag plus the handful of per-kind fields relevant to it, rather
// than five unrelated types and a type switch at every call site.
package policy

import "github.com/sentrywall/sentrywall/hook"

// Subject identifies who a policy governs: either a concrete
// executable path, or the wildcard meaning every executable.
type Subject struct {
	Path string
}

// All is the wildcard subject.
func All() Subject { return Subject{} }

// ForPath names a concrete executable by path.
func ForPath(path string) Subject { return Subject{Path: path} }

// IsAll reports whether s is the wildcard subject.
func (s Subject) IsAll() bool { return s.Path == "" }

func (s Subject) String() string {
	if s.IsAll() {
		return "all"
	}
	return s.Path
}

// PathSpec is a file-open allow/deny set: either "all paths" or an
// explicit list.
type PathSpec struct {
	All   bool
	Paths []string
}

// PortSpec is a socket-bind allow/deny set.
type PortSpec struct {
	All   bool
	Ports []uint16
}

// AddrSpec is a socket-connect allow/deny set. Addrs holds textual
// IPv4 or IPv6 addresses (dotted-quad or colon-hex); the split between
// families happens at wire translation time.
type AddrSpec struct {
	All   bool
	Addrs []string
}

// Policy is one high-level policy statement about one subject at one
// hook. Only the fields relevant to Hook are meaningful:
//
//   - FileOpen:      AllowPaths, DenyPaths
//   - SocketBind:    AllowPorts, DenyPorts
//   - SocketConnect: AllowAddrs, DenyAddrs
//   - Mount, Setuid: Allow
//
// ProgramExec never appears here: per spec.md §4.7 it has no policy
// surface.
type Policy struct {
	Subject Subject
	Hook    hook.Kind

	AllowPaths, DenyPaths PathSpec
	AllowPorts, DenyPorts PortSpec
	AllowAddrs, DenyAddrs AddrSpec
	Allow                 bool
}

// NewFileOpen builds a file-open policy. If only one of allow/deny is
// meaningful to the caller, pass the zero PathSpec for the other side
// (spec.md §4.6 "If only one is provided by the caller, derive the
// other as empty").
func NewFileOpen(subj Subject, allow, deny PathSpec) Policy {
	return Policy{Subject: subj, Hook: hook.FileOpen, AllowPaths: allow, DenyPaths: deny}
}

// NewSocketBind builds a socket-bind policy.
func NewSocketBind(subj Subject, allow, deny PortSpec) Policy {
	return Policy{Subject: subj, Hook: hook.SocketBind, AllowPorts: allow, DenyPorts: deny}
}

// NewSocketConnect builds a socket-connect policy.
func NewSocketConnect(subj Subject, allow, deny AddrSpec) Policy {
	return Policy{Subject: subj, Hook: hook.SocketConnect, AllowAddrs: allow, DenyAddrs: deny}
}

// NewMount builds a mount/remount/unmount policy.
func NewMount(subj Subject, allow bool) Policy {
	return Policy{Subject: subj, Hook: hook.Mount, Allow: allow}
}

// NewSetuid builds a credential-change (setuid) policy.
func NewSetuid(subj Subject, allow bool) Policy {
	return Policy{Subject: subj, Hook: hook.Setuid, Allow: allow}
}

// Equal reports whether two policies are equal up to subject-path
// resolution ambiguity (spec.md §8 "Round-trip" and §9 "Inode identity
// is not a stable subject identity"): subjects are compared as stored,
// not re-resolved against the filesystem.
func (p Policy) Equal(o Policy) bool {
	if p.Subject != o.Subject || p.Hook != o.Hook || p.Allow != o.Allow {
		return false
	}
	return pathSpecEqual(p.AllowPaths, o.AllowPaths) &&
		pathSpecEqual(p.DenyPaths, o.DenyPaths) &&
		portSpecEqual(p.AllowPorts, o.AllowPorts) &&
		portSpecEqual(p.DenyPorts, o.DenyPorts) &&
		addrSpecEqual(p.AllowAddrs, o.AllowAddrs) &&
		addrSpecEqual(p.DenyAddrs, o.DenyAddrs)
}

func pathSpecEqual(a, b PathSpec) bool {
	if a.All != b.All || len(a.Paths) != len(b.Paths) {
		return false
	}
	return stringSetEqual(a.Paths, b.Paths)
}

func portSpecEqual(a, b PortSpec) bool {
	if a.All != b.All || len(a.Ports) != len(b.Ports) {
		return false
	}
	seen := make(map[uint16]bool, len(a.Ports))
	for _, p := range a.Ports {
		seen[p] = true
	}
	for _, p := range b.Ports {
		if !seen[p] {
			return false
		}
	}
	return true
}

func addrSpecEqual(a, b AddrSpec) bool {
	if a.All != b.All || len(a.Addrs) != len(b.Addrs) {
		return false
	}
	return stringSetEqual(a.Addrs, b.Addrs)
}

func stringSetEqual(a, b []string) bool {
	seen := make(map[string]bool, len(a))
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			return false
		}
	}
	return true
}
