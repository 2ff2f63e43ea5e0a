package policymap

import (
	"fmt"

	"github.com/sentrywall/sentrywall/wire"
)

// Map is the typed façade over a raw Table: every caller outside this
// package works in terms of a concrete wire.PlainOldData value type,
// never raw bytes.
type Map[V wire.PlainOldData] struct {
	name  string
	table Table
}

// Open binds Map to the table named name, opening it (and, for a BPF
// backend, re-binding to its pin) via opener.
func Open[V wire.PlainOldData](opener Opener, name string) (*Map[V], error) {
	t, err := opener.OpenPinned(name)
	if err != nil {
		return nil, err
	}
	return &Map[V]{name: name, table: t}, nil
}

func (m *Map[V]) Name() string { return m.name }

func (m *Map[V]) Put(key uint64, value V) error {
	buf, err := wire.Write(value)
	if err != nil {
		return fmt.Errorf("policymap: %s: %w", m.name, err)
	}
	return m.table.Put(key, buf)
}

func (m *Map[V]) Get(key uint64) (V, bool, error) {
	var zero V
	buf, ok, err := m.table.Get(key)
	if err != nil || !ok {
		return zero, ok, err
	}
	v, err := wire.Read[V](buf)
	if err != nil {
		return zero, false, fmt.Errorf("policymap: %s: %w", m.name, err)
	}
	return v, true, nil
}

func (m *Map[V]) Delete(key uint64) error {
	return m.table.Delete(key)
}

// TypedEntry is one decoded (key, value) pair from Iter.
type TypedEntry[V wire.PlainOldData] struct {
	Key   uint64
	Value V
}

func (m *Map[V]) Iter() ([]TypedEntry[V], error) {
	raw, err := m.table.Iter()
	if err != nil {
		return nil, err
	}
	out := make([]TypedEntry[V], 0, len(raw))
	for _, e := range raw {
		v, err := wire.Read[V](e.Value)
		if err != nil {
			return nil, fmt.Errorf("policymap: %s: decode key %d: %w", m.name, e.Key, err)
		}
		out = append(out, TypedEntry[V]{Key: e.Key, Value: v})
	}
	return out, nil
}

func (m *Map[V]) Close() error { return m.table.Close() }
