package policymap

import (
	"fmt"
	"path/filepath"

	"github.com/cilium/ebpf"
)

// BPFTable backs Table with a real, pinned BPF map. Its lifetime is
// independent of this process: once pinned under a bpffs directory,
// the map survives controller restart (spec §3 "Lifecycle").
type BPFTable struct {
	m *ebpf.Map
}

// BPFOpener opens pinned BPF maps rooted at Dir, sentrywall's pin
// directory (spec §6 "Persisted state").
type BPFOpener struct {
	Dir string
}

var _ Opener = BPFOpener{}

// OpenPinned re-opens (or, if absent, leaves for the caller to create
// via the loaded collection) the map pinned at Dir/name.
func (o BPFOpener) OpenPinned(name string) (Table, error) {
	m, err := ebpf.LoadPinnedMap(filepath.Join(o.Dir, name), nil)
	if err != nil {
		return nil, fmt.Errorf("policymap: open pinned map %q: %w", name, err)
	}
	return &BPFTable{m: m}, nil
}

// WrapPinned adopts an already-open map (e.g. one just pinned for the
// first time while loading the collection) as a Table.
func WrapPinned(m *ebpf.Map) Table {
	return &BPFTable{m: m}
}

func (t *BPFTable) Put(key uint64, value []byte) error {
	if err := t.m.Put(key, value); err != nil {
		return fmt.Errorf("policymap: put key %d: %w", key, err)
	}
	return nil
}

func (t *BPFTable) Get(key uint64) ([]byte, bool, error) {
	var value []byte
	err := t.m.Lookup(key, &value)
	if err != nil {
		if err == ebpf.ErrKeyNotExist {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("policymap: get key %d: %w", key, err)
	}
	return value, true, nil
}

func (t *BPFTable) Delete(key uint64) error {
	if err := t.m.Delete(key); err != nil {
		if err == ebpf.ErrKeyNotExist {
			return nil
		}
		return fmt.Errorf("policymap: delete key %d: %w", key, err)
	}
	return nil
}

func (t *BPFTable) Iter() ([]Entry, error) {
	var (
		entries []Entry
		key     uint64
		value   []byte
	)
	it := t.m.Iterate()
	for it.Next(&key, &value) {
		cp := make([]byte, len(value))
		copy(cp, value)
		entries = append(entries, Entry{Key: key, Value: cp})
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("policymap: iterate: %w", err)
	}
	return entries, nil
}

func (t *BPFTable) Close() error {
	return t.m.Close()
}
