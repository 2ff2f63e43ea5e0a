package policy

import (
	"fmt"
	"net"

	"github.com/sentrywall/sentrywall/subject"
	"github.com/sentrywall/sentrywall/wire"
)

// Translator converts between the high-level Policy model and the
// wire records policy maps store, resolving subject paths to inodes
// along the way (spec.md §4.7 "Translation to wire records").
type Translator struct {
	Resolver *subject.Resolver
}

// NewTranslator returns a Translator backed by r.
func NewTranslator(r *subject.Resolver) *Translator {
	return &Translator{Resolver: r}
}

// SubjectKey resolves s to its policy-map key.
func (t *Translator) SubjectKey(s Subject) (uint64, error) {
	if s.IsAll() {
		return subject.All, nil
	}
	return t.Resolver.ResolvePath(s.Path)
}

// PathsToWire converts a PathSpec to a wire.PathSet. "All" becomes the
// sentinel array; otherwise each path is resolved to an inode.
func (t *Translator) PathsToWire(spec PathSpec) (wire.PathSet, error) {
	if spec.All {
		return wire.WildcardPathSet(), nil
	}
	if len(spec.Paths) > wire.PathSetSize-2 {
		return wire.PathSet{}, fmt.Errorf("policy: %d paths exceeds capacity %d", len(spec.Paths), wire.PathSetSize-2)
	}
	ps := wire.ExplicitPathSet()
	for i, p := range spec.Paths {
		inode, err := t.Resolver.ResolvePath(p)
		if err != nil {
			return wire.PathSet{}, fmt.Errorf("policy: resolve %q: %w", p, err)
		}
		ps.Inodes[i+1] = inode
	}
	return ps, nil
}

// PathsFromWire reconstructs a PathSpec from a decoded wire.PathSet.
func (t *Translator) PathsFromWire(ps wire.PathSet) PathSpec {
	if ps.IsWildcard() {
		return PathSpec{All: true}
	}
	var spec PathSpec
	for i := 1; i < wire.PathSetSize-1; i++ {
		if ps.Inodes[i] == 0 {
			continue
		}
		spec.Paths = append(spec.Paths, t.Resolver.ResolveInode(ps.Inodes[i]))
	}
	return spec
}

// PortsToWire converts a PortSpec to a wire.PortSet.
func PortsToWire(spec PortSpec) (wire.PortSet, error) {
	if spec.All {
		return wire.WildcardPortSet(), nil
	}
	if len(spec.Ports) > wire.PortSetSize-2 {
		return wire.PortSet{}, fmt.Errorf("policy: %d ports exceeds capacity %d", len(spec.Ports), wire.PortSetSize-2)
	}
	s := wire.ExplicitPortSet()
	for i, p := range spec.Ports {
		s.Ports[i+1] = p
	}
	return s, nil
}

// PortsFromWire reconstructs a PortSpec from a decoded wire.PortSet.
func PortsFromWire(s wire.PortSet) PortSpec {
	if s.IsWildcard() {
		return PortSpec{All: true}
	}
	var spec PortSpec
	for i := 1; i < wire.PortSetSize-1; i++ {
		if s.Ports[i] != 0 {
			spec.Ports = append(spec.Ports, s.Ports[i])
		}
	}
	return spec
}

// AddrsToWire splits an AddrSpec's textual addresses by family and
// converts each to its wire set. "All" produces both sentinel sets
// (spec.md §4.7 "'All' produces both sentinel arrays").
func AddrsToWire(spec AddrSpec) (wire.IPv4Set, wire.IPv6Set, error) {
	if spec.All {
		return wire.WildcardIPv4Set(), wire.WildcardIPv6Set(), nil
	}
	v4 := wire.ExplicitIPv4Set()
	v6 := wire.ExplicitIPv6Set()
	v4i, v6i := 1, 1
	for _, a := range spec.Addrs {
		ip := net.ParseIP(a)
		if ip == nil {
			return wire.IPv4Set{}, wire.IPv6Set{}, fmt.Errorf("policy: invalid address %q", a)
		}
		if v4addr := ip.To4(); v4addr != nil {
			if v4i > wire.IPSetSize-2 {
				return wire.IPv4Set{}, wire.IPv6Set{}, fmt.Errorf("policy: too many IPv4 addresses, capacity %d", wire.IPSetSize-2)
			}
			v4.Addrs[v4i] = be32(v4addr)
			v4i++
			continue
		}
		if v6i > wire.IPSetSize-2 {
			return wire.IPv4Set{}, wire.IPv6Set{}, fmt.Errorf("policy: too many IPv6 addresses, capacity %d", wire.IPSetSize-2)
		}
		var b [16]byte
		copy(b[:], ip.To16())
		v6.Addrs[v6i] = b
		v6i++
	}
	return v4, v6, nil
}

// AddrsFromWire merges a decoded IPv4Set/IPv6Set pair back into one
// AddrSpec.
func AddrsFromWire(v4 wire.IPv4Set, v6 wire.IPv6Set) AddrSpec {
	if v4.IsWildcard() && v6.IsWildcard() {
		return AddrSpec{All: true}
	}
	var spec AddrSpec
	for i := 1; i < wire.IPSetSize-1; i++ {
		if v4.Addrs[i] != 0 {
			spec.Addrs = append(spec.Addrs, ip4String(v4.Addrs[i]))
		}
	}
	zero := [16]byte{}
	for i := 1; i < wire.IPSetSize-1; i++ {
		if v6.Addrs[i] != zero {
			spec.Addrs = append(spec.Addrs, net.IP(v6.Addrs[i][:]).String())
		}
	}
	return spec
}

func be32(ip net.IP) uint32 {
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

func ip4String(v uint32) string {
	return net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v)).String()
}
