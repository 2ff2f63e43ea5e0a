package policy

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sentrywall/sentrywall/hook"
)

// Document is the human-readable form required by spec.md §4.7: a
// list of policy entries that round-trips subject, hook kind, and
// allow/deny sets in a stable textual shape.
type Document struct {
	Policies []Entry `yaml:"policies"`
}

// Entry is one policy's textual representation. Only the fields
// relevant to Hook are populated on output, and only they are read on
// input; see Policy for the same convention on the typed side.
type Entry struct {
	Subject string `yaml:"subject"`
	Hook    string `yaml:"hook"`

	Allow *Set `yaml:"allow,omitempty"`
	Deny  *Set `yaml:"deny,omitempty"`

	AllowBool *bool `yaml:"allow_bool,omitempty"`
}

// Set is the textual form of a PathSpec, PortSpec or AddrSpec — the
// field populated depends on the entry's Hook.
type Set struct {
	All   bool     `yaml:"all,omitempty"`
	Paths []string `yaml:"paths,omitempty"`
	Ports []int    `yaml:"ports,omitempty"`
	Addrs []string `yaml:"addrs,omitempty"`
}

// ParseYAML decodes a policy document from YAML text.
func ParseYAML(data []byte) ([]Policy, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("policy: parse yaml: %w", err)
	}
	policies := make([]Policy, 0, len(doc.Policies))
	for i, e := range doc.Policies {
		p, err := entryToPolicy(e)
		if err != nil {
			return nil, fmt.Errorf("policy: entry %d: %w", i, err)
		}
		policies = append(policies, p)
	}
	return policies, nil
}

// MarshalYAML encodes a list of policies as a YAML document.
func MarshalYAML(policies []Policy) ([]byte, error) {
	doc := Document{Policies: make([]Entry, 0, len(policies))}
	for _, p := range policies {
		e, err := policyToEntry(p)
		if err != nil {
			return nil, err
		}
		doc.Policies = append(doc.Policies, e)
	}
	return yaml.Marshal(doc)
}

func entryToPolicy(e Entry) (Policy, error) {
	subj := Subject{}
	if e.Subject != "" && e.Subject != "all" {
		subj = ForPath(e.Subject)
	}

	switch e.Hook {
	case hook.FileOpen.String():
		return NewFileOpen(subj, setToPathSpec(e.Allow), setToPathSpec(e.Deny)), nil
	case hook.SocketBind.String():
		allow, err := setToPortSpec(e.Allow)
		if err != nil {
			return Policy{}, err
		}
		deny, err := setToPortSpec(e.Deny)
		if err != nil {
			return Policy{}, err
		}
		return NewSocketBind(subj, allow, deny), nil
	case hook.SocketConnect.String():
		return NewSocketConnect(subj, setToAddrSpec(e.Allow), setToAddrSpec(e.Deny)), nil
	case hook.Mount.String():
		return NewMount(subj, boolOf(e.AllowBool)), nil
	case hook.Setuid.String():
		return NewSetuid(subj, boolOf(e.AllowBool)), nil
	default:
		return Policy{}, fmt.Errorf("unknown hook %q", e.Hook)
	}
}

func policyToEntry(p Policy) (Entry, error) {
	e := Entry{Subject: p.Subject.String(), Hook: p.Hook.String()}
	switch p.Hook {
	case hook.FileOpen:
		e.Allow = pathSpecToSet(p.AllowPaths)
		e.Deny = pathSpecToSet(p.DenyPaths)
	case hook.SocketBind:
		e.Allow = portSpecToSet(p.AllowPorts)
		e.Deny = portSpecToSet(p.DenyPorts)
	case hook.SocketConnect:
		e.Allow = addrSpecToSet(p.AllowAddrs)
		e.Deny = addrSpecToSet(p.DenyAddrs)
	case hook.Mount, hook.Setuid:
		allow := p.Allow
		e.AllowBool = &allow
	default:
		return Entry{}, fmt.Errorf("policy: hook %v has no textual form", p.Hook)
	}
	return e, nil
}

func boolOf(b *bool) bool {
	return b != nil && *b
}

func setToPathSpec(s *Set) PathSpec {
	if s == nil {
		return PathSpec{}
	}
	return PathSpec{All: s.All, Paths: s.Paths}
}

func pathSpecToSet(s PathSpec) *Set {
	return &Set{All: s.All, Paths: s.Paths}
}

func setToPortSpec(s *Set) (PortSpec, error) {
	if s == nil {
		return PortSpec{}, nil
	}
	spec := PortSpec{All: s.All}
	for _, p := range s.Ports {
		if p < 0 || p > 0xffff {
			return PortSpec{}, fmt.Errorf("port %d out of range", p)
		}
		spec.Ports = append(spec.Ports, uint16(p))
	}
	return spec, nil
}

func portSpecToSet(s PortSpec) *Set {
	out := &Set{All: s.All}
	for _, p := range s.Ports {
		out.Ports = append(out.Ports, int(p))
	}
	return out
}

func setToAddrSpec(s *Set) AddrSpec {
	if s == nil {
		return AddrSpec{}
	}
	return AddrSpec{All: s.All, Addrs: s.Addrs}
}

func addrSpecToSet(s AddrSpec) *Set {
	return &Set{All: s.All, Addrs: s.Addrs}
}
