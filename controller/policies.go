package controller

import (
	"fmt"

	"github.com/sentrywall/sentrywall/decision"
	"github.com/sentrywall/sentrywall/hook"
	"github.com/sentrywall/sentrywall/policy"
	"github.com/sentrywall/sentrywall/wire"
)

// AddPolicy translates p to wire records and writes them into the
// table pair for p.Hook, keyed by p.Subject. Both records are built
// before either is written, then the ALLOWED entry and the DENIED
// entry are written as separate map updates: the pair is not updated
// atomically, and if the second write fails the first stays in place.
func (m *Manager) AddPolicy(p policy.Policy) error {
	key, err := m.translator.SubjectKey(p.Subject)
	if err != nil {
		return fmt.Errorf("controller: add policy: %w", err)
	}
	switch p.Hook {
	case hook.FileOpen:
		return m.addFileOpen(key, p)
	case hook.SocketBind:
		return m.addSocketBind(key, p)
	case hook.SocketConnect:
		return m.addSocketConnect(key, p)
	case hook.Mount:
		return m.addBool(m.tables.Mount, key, p.Allow)
	case hook.Setuid:
		return m.addBool(m.tables.Setuid, key, p.Allow)
	default:
		return fmt.Errorf("controller: hook %v has no policy surface", p.Hook)
	}
}

func (m *Manager) addFileOpen(key uint64, p policy.Policy) error {
	allow, err := m.translator.PathsToWire(p.AllowPaths)
	if err != nil {
		return err
	}
	deny, err := m.translator.PathsToWire(p.DenyPaths)
	if err != nil {
		return err
	}
	if err := m.tables.FileOpen.Allowed.Put(key, allow); err != nil {
		return fmt.Errorf("controller: write file-open allowed: %w", err)
	}
	if err := m.tables.FileOpen.Denied.Put(key, deny); err != nil {
		return fmt.Errorf("controller: write file-open denied: %w", err)
	}
	return nil
}

func (m *Manager) addSocketBind(key uint64, p policy.Policy) error {
	allow, err := policy.PortsToWire(p.AllowPorts)
	if err != nil {
		return err
	}
	deny, err := policy.PortsToWire(p.DenyPorts)
	if err != nil {
		return err
	}
	if err := m.tables.Bind.Allowed.Put(key, allow); err != nil {
		return fmt.Errorf("controller: write socket-bind allowed: %w", err)
	}
	if err := m.tables.Bind.Denied.Put(key, deny); err != nil {
		return fmt.Errorf("controller: write socket-bind denied: %w", err)
	}
	return nil
}

func (m *Manager) addSocketConnect(key uint64, p policy.Policy) error {
	allowV4, allowV6, err := policy.AddrsToWire(p.AllowAddrs)
	if err != nil {
		return err
	}
	denyV4, denyV6, err := policy.AddrsToWire(p.DenyAddrs)
	if err != nil {
		return err
	}
	if err := m.tables.Connect4.Allowed.Put(key, allowV4); err != nil {
		return fmt.Errorf("controller: write connect4 allowed: %w", err)
	}
	if err := m.tables.Connect4.Denied.Put(key, denyV4); err != nil {
		return fmt.Errorf("controller: write connect4 denied: %w", err)
	}
	if err := m.tables.Connect6.Allowed.Put(key, allowV6); err != nil {
		return fmt.Errorf("controller: write connect6 allowed: %w", err)
	}
	if err := m.tables.Connect6.Denied.Put(key, denyV6); err != nil {
		return fmt.Errorf("controller: write connect6 denied: %w", err)
	}
	return nil
}

// addBool writes (or clears) a presence-only policy: a subject is
// moved entirely into the allowed or denied table, never left in both,
// since a single Policy carries only one Allow bool.
func (m *Manager) addBool(t decision.BoolTables, key uint64, allow bool) error {
	if allow {
		if err := t.Allowed.Put(key, wire.BoolFlag{}); err != nil {
			return fmt.Errorf("controller: write allowed flag: %w", err)
		}
		return t.Denied.Delete(key)
	}
	if err := t.Denied.Put(key, wire.BoolFlag{}); err != nil {
		return fmt.Errorf("controller: write denied flag: %w", err)
	}
	return t.Allowed.Delete(key)
}

// ListPolicies reconstructs every policy currently stored, across all
// governed hooks, reversing AddPolicy's translation (spec.md §8
// "Round-trip").
func (m *Manager) ListPolicies() ([]policy.Policy, error) {
	var all []policy.Policy

	fo, err := m.listFileOpen()
	if err != nil {
		return nil, err
	}
	all = append(all, fo...)

	sb, err := m.listSocketBind()
	if err != nil {
		return nil, err
	}
	all = append(all, sb...)

	sc, err := m.listSocketConnect()
	if err != nil {
		return nil, err
	}
	all = append(all, sc...)

	mnt, err := m.listBoolHook(hook.Mount, m.tables.Mount)
	if err != nil {
		return nil, err
	}
	all = append(all, mnt...)

	su, err := m.listBoolHook(hook.Setuid, m.tables.Setuid)
	if err != nil {
		return nil, err
	}
	all = append(all, su...)

	return all, nil
}

func (m *Manager) listFileOpen() ([]policy.Policy, error) {
	allowed, err := m.tables.FileOpen.Allowed.Iter()
	if err != nil {
		return nil, fmt.Errorf("controller: list file-open allowed: %w", err)
	}
	denied, err := m.tables.FileOpen.Denied.Iter()
	if err != nil {
		return nil, fmt.Errorf("controller: list file-open denied: %w", err)
	}
	allowMap := valueMap(allowed)
	denyMap := valueMap(denied)

	var policies []policy.Policy
	for _, key := range unionAll(keysOf(allowed), keysOf(denied)) {
		var allow, deny policy.PathSpec
		if v, ok := allowMap[key]; ok {
			allow = m.translator.PathsFromWire(v)
		}
		if v, ok := denyMap[key]; ok {
			deny = m.translator.PathsFromWire(v)
		}
		policies = append(policies, policy.NewFileOpen(m.subjectFromKey(key), allow, deny))
	}
	return policies, nil
}

func (m *Manager) listSocketBind() ([]policy.Policy, error) {
	allowed, err := m.tables.Bind.Allowed.Iter()
	if err != nil {
		return nil, fmt.Errorf("controller: list socket-bind allowed: %w", err)
	}
	denied, err := m.tables.Bind.Denied.Iter()
	if err != nil {
		return nil, fmt.Errorf("controller: list socket-bind denied: %w", err)
	}
	allowMap := valueMap(allowed)
	denyMap := valueMap(denied)

	var policies []policy.Policy
	for _, key := range unionAll(keysOf(allowed), keysOf(denied)) {
		var allow, deny policy.PortSpec
		if v, ok := allowMap[key]; ok {
			allow = policy.PortsFromWire(v)
		}
		if v, ok := denyMap[key]; ok {
			deny = policy.PortsFromWire(v)
		}
		policies = append(policies, policy.NewSocketBind(m.subjectFromKey(key), allow, deny))
	}
	return policies, nil
}

func (m *Manager) listSocketConnect() ([]policy.Policy, error) {
	allowed4, err := m.tables.Connect4.Allowed.Iter()
	if err != nil {
		return nil, fmt.Errorf("controller: list connect4 allowed: %w", err)
	}
	denied4, err := m.tables.Connect4.Denied.Iter()
	if err != nil {
		return nil, fmt.Errorf("controller: list connect4 denied: %w", err)
	}
	allowed6, err := m.tables.Connect6.Allowed.Iter()
	if err != nil {
		return nil, fmt.Errorf("controller: list connect6 allowed: %w", err)
	}
	denied6, err := m.tables.Connect6.Denied.Iter()
	if err != nil {
		return nil, fmt.Errorf("controller: list connect6 denied: %w", err)
	}

	a4, d4 := valueMap(allowed4), valueMap(denied4)
	a6, d6 := valueMap(allowed6), valueMap(denied6)

	var policies []policy.Policy
	for _, key := range unionAll(keysOf(allowed4), keysOf(denied4), keysOf(allowed6), keysOf(denied6)) {
		av4, av4ok := a4[key]
		dv4, dv4ok := d4[key]
		av6, av6ok := a6[key]
		dv6, dv6ok := d6[key]

		var allow, deny policy.AddrSpec
		if av4ok || av6ok {
			allow = policy.AddrsFromWire(av4, av6)
		}
		if dv4ok || dv6ok {
			deny = policy.AddrsFromWire(dv4, dv6)
		}
		policies = append(policies, policy.NewSocketConnect(m.subjectFromKey(key), allow, deny))
	}
	return policies, nil
}

func (m *Manager) listBoolHook(hk hook.Kind, t decision.BoolTables) ([]policy.Policy, error) {
	allowed, err := t.Allowed.Iter()
	if err != nil {
		return nil, fmt.Errorf("controller: list %v allowed: %w", hk, err)
	}
	denied, err := t.Denied.Iter()
	if err != nil {
		return nil, fmt.Errorf("controller: list %v denied: %w", hk, err)
	}
	allowMap := valueMap(allowed)

	var policies []policy.Policy
	for _, key := range unionAll(keysOf(allowed), keysOf(denied)) {
		_, allow := allowMap[key]
		subj := m.subjectFromKey(key)
		switch hk {
		case hook.Mount:
			policies = append(policies, policy.NewMount(subj, allow))
		case hook.Setuid:
			policies = append(policies, policy.NewSetuid(subj, allow))
		}
	}
	return policies, nil
}
