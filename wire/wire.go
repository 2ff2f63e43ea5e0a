// Package wire defines the fixed-layout, pointer-free records shared
// between the BPF LSM programs and sentrywall's user-space process:
// alert payloads and policy map values.
//
// Every type here has a single canonical byte layout, identical on
// both sides of the kernel boundary: same field order, same explicit
// padding, little-endian. None of them contain a pointer, a slice
// header, or any other indirect reference — they are safe to read out
// of an unaligned buffer handed back by a BPF ring or map lookup by
// copying the bytes, never by reinterpreting the buffer in place.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// WildcardSubject is the reserved policy-map key meaning "every
// executable". Real filesystems never hand out inode 0 to a regular
// file, so overloading it as the wildcard subject is safe in practice.
const WildcardSubject uint64 = 0

// Bounded set sizes. The spec allows implementations to raise N above
// its minimum of 4 as long as the on-wire layout matches the loaded
// BPF object; 8 gives headroom for realistic per-subject policies
// while keeping each value well under a cache line times two.
const (
	PathSetSize = 8
	PortSetSize = 8
	IPSetSize   = 4
)

// PlainOldData marks a type as safe to decode from or encode to a raw
// byte buffer via Read/Write. It carries no behavior; it exists so the
// compiler rejects accidental use of Read/Write on a type that was
// never audited for pointer-free, fixed-size layout.
type PlainOldData interface {
	plainOldData()
}

// ---- Alert payloads (spec §3) ----

// ExecAlert is emitted on a denied program-exec check.
type ExecAlert struct {
	Pid        uint32
	_          uint32
	ImageInode uint64
}

func (ExecAlert) plainOldData() {}

// FileOpenAlert is emitted on a denied file open.
type FileOpenAlert struct {
	Pid         uint32
	_           uint32
	ImageInode  uint64
	TargetInode uint64
}

func (FileOpenAlert) plainOldData() {}

// CredAlert is emitted on a denied credential change (setuid).
type CredAlert struct {
	Pid        uint32
	_          uint32
	ImageInode uint64
	OldUID     uint32
	OldGID     uint32
	NewUID     uint32
	NewGID     uint32
}

func (CredAlert) plainOldData() {}

// MountAlert is emitted on a denied mount, remount or unmount.
type MountAlert struct {
	Pid        uint32
	_          uint32
	ImageInode uint64
}

func (MountAlert) plainOldData() {}

// BindAlert is emitted on a denied socket bind.
type BindAlert struct {
	Pid        uint32
	_          uint32
	ImageInode uint64
	Port       uint16
	_          [6]byte
}

func (BindAlert) plainOldData() {}

// ConnectAlert is emitted on a denied socket connect. Exactly one of
// AddrV4 / AddrV6 is meaningful; Family records which.
type ConnectAlert struct {
	Pid        uint32
	_          uint32
	ImageInode uint64
	AddrV4     uint32
	_          uint32
	AddrV6     [16]byte
	Port       uint16
	Family     uint8
	_          [5]byte
}

// Address family tags used by ConnectAlert.Family.
const (
	FamilyIPv4 uint8 = 4
	FamilyIPv6 uint8 = 6
)

func (ConnectAlert) plainOldData() {}

// ---- Policy values (spec §3) ----

// PathSet is a file-open policy value: a bounded set of path inodes.
// A zero in slot 0 means "wildcard: all paths".
type PathSet struct {
	Inodes [PathSetSize]uint64
}

func (PathSet) plainOldData() {}

// WildcardPathSet returns the sentinel "all paths" value.
func WildcardPathSet() PathSet {
	return PathSet{}
}

// explicitMarker occupies slot 0 of an explicit, non-wildcard set.
// Real members only ever populate indices [1, N-1) (Contains never
// reads slot 0), so any nonzero slot-0 content is available as a pure
// "this is not the wildcard sentinel" flag — including for a set whose
// explicit membership list happens to be empty.
const explicitMarker uint64 = ^uint64(0)

// ExplicitPathSet returns a non-wildcard PathSet ready to have up to
// PathSetSize-2 inodes written into slots [1, PathSetSize-1).
func ExplicitPathSet() PathSet {
	var p PathSet
	p.Inodes[0] = explicitMarker
	return p
}

// IsWildcard reports whether this set is the "all paths" sentinel.
func (p PathSet) IsWildcard() bool { return p.Inodes[0] == 0 }

// Contains reports whether inode is a member, honoring the wildcard
// and the slot-(N-1) safety reservation (spec §4.4 tie-breaks): only
// indices [1, PathSetSize-1) hold real entries, slot 0 is the wildcard
// sentinel or explicit marker, and the last slot is reserved.
func (p PathSet) Contains(inode uint64) bool {
	if p.IsWildcard() {
		return true
	}
	for i := 1; i < PathSetSize-1; i++ {
		if p.Inodes[i] != 0 && p.Inodes[i] == inode {
			return true
		}
	}
	return false
}

// PortSet is a socket-bind policy value: a bounded set of ports. Zero
// in slot 0 means wildcard.
type PortSet struct {
	Ports [PortSetSize]uint16
	_     [16]byte // pad the value to a round 32 bytes (PathSet is 64)
}

func (PortSet) plainOldData() {}

func WildcardPortSet() PortSet { return PortSet{} }

const explicitPortMarker uint16 = ^uint16(0)

// ExplicitPortSet returns a non-wildcard PortSet ready to have up to
// PortSetSize-2 ports written into slots [1, PortSetSize-1).
func ExplicitPortSet() PortSet {
	var p PortSet
	p.Ports[0] = explicitPortMarker
	return p
}

func (p PortSet) IsWildcard() bool { return p.Ports[0] == 0 }

func (p PortSet) Contains(port uint16) bool {
	if p.IsWildcard() {
		return true
	}
	for i := 1; i < PortSetSize-1; i++ {
		if p.Ports[i] != 0 && p.Ports[i] == port {
			return true
		}
	}
	return false
}

// IPv4Set is a socket-connect policy value for the IPv4 family.
// An all-zero slot 0 means wildcard.
type IPv4Set struct {
	Addrs [IPSetSize]uint32
}

func (IPv4Set) plainOldData() {}

func WildcardIPv4Set() IPv4Set { return IPv4Set{} }

const explicitIPv4Marker uint32 = ^uint32(0)

// ExplicitIPv4Set returns a non-wildcard IPv4Set ready to have up to
// IPSetSize-2 addresses written into slots [1, IPSetSize-1).
func ExplicitIPv4Set() IPv4Set {
	var s IPv4Set
	s.Addrs[0] = explicitIPv4Marker
	return s
}

func (s IPv4Set) IsWildcard() bool { return s.Addrs[0] == 0 }

func (s IPv4Set) Contains(addr uint32) bool {
	if s.IsWildcard() {
		return true
	}
	for i := 1; i < IPSetSize-1; i++ {
		if s.Addrs[i] != 0 && s.Addrs[i] == addr {
			return true
		}
	}
	return false
}

// IPv6Set is a socket-connect policy value for the IPv6 family.
// An all-zero slot 0 means wildcard.
type IPv6Set struct {
	Addrs [IPSetSize][16]byte
}

func (IPv6Set) plainOldData() {}

func WildcardIPv6Set() IPv6Set { return IPv6Set{} }

var explicitIPv6Marker = [16]byte{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

// ExplicitIPv6Set returns a non-wildcard IPv6Set ready to have up to
// IPSetSize-2 addresses written into slots [1, IPSetSize-1).
func ExplicitIPv6Set() IPv6Set {
	var s IPv6Set
	s.Addrs[0] = explicitIPv6Marker
	return s
}

func (s IPv6Set) IsWildcard() bool { return s.Addrs[0] == [16]byte{} }

func (s IPv6Set) Contains(addr [16]byte) bool {
	if s.IsWildcard() {
		return true
	}
	zero := [16]byte{}
	for i := 1; i < IPSetSize-1; i++ {
		if s.Addrs[i] != zero && s.Addrs[i] == addr {
			return true
		}
	}
	return false
}

// BoolFlag is a presence-only policy value for Mount and Setuid: the
// key's presence in a map is the value, this byte is pure padding so
// the value still satisfies the fixed-size record contract.
type BoolFlag struct {
	_ uint8
}

func (BoolFlag) plainOldData() {}

// IsWildcard always reports true: for a presence-only value, being
// stored at all *is* being the sentinel "all" value (spec §4.4 Step B
// describes the ALLOWED/DENIED wildcard check only in terms of key
// presence for boolean hooks).
func (BoolFlag) IsWildcard() bool { return true }

// Read decodes a PlainOldData value from buf, which must hold at
// least binary.Size(T) bytes. It never retains a reference into buf.
func Read[T PlainOldData](buf []byte) (T, error) {
	var v T
	if len(buf) < binary.Size(v) {
		return v, fmt.Errorf("wire: short buffer for %T: have %d want %d", v, len(buf), binary.Size(v))
	}
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &v); err != nil {
		return v, fmt.Errorf("wire: decode %T: %w", v, err)
	}
	return v, nil
}

// Write encodes a PlainOldData value to its canonical byte layout.
func Write[T PlainOldData](v T) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(binary.Size(v))
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		return nil, fmt.Errorf("wire: encode %T: %w", v, err)
	}
	return buf.Bytes(), nil
}
