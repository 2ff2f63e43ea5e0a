package policymap

import "sync"

// Memory is an in-process Table backend used by tests and by the
// software decision engine (SPEC_FULL.md §3). It satisfies the same
// Table contract a pinned BPF map does, so decision and controller
// code never need to know which backend they are driving.
type Memory struct {
	mu      sync.RWMutex
	entries map[uint64][]byte
}

// NewMemory returns an empty in-memory table.
func NewMemory() *Memory {
	return &Memory{entries: make(map[uint64][]byte)}
}

// MemoryOpener vends a fresh Memory table per name, remembering tables
// across repeated opens of the same name within one process — the
// in-memory analogue of re-binding to an already-pinned map.
type MemoryOpener struct {
	mu     sync.Mutex
	tables map[string]*Memory
}

// NewMemoryOpener returns an Opener suitable for tests and for running
// the software engine without a real BPF object loaded.
func NewMemoryOpener() *MemoryOpener {
	return &MemoryOpener{tables: make(map[string]*Memory)}
}

var _ Opener = (*MemoryOpener)(nil)

func (o *MemoryOpener) OpenPinned(name string) (Table, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if t, ok := o.tables[name]; ok {
		return t, nil
	}
	t := NewMemory()
	o.tables[name] = t
	return t, nil
}

func (t *Memory) Put(key uint64, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	t.entries[key] = cp
	return nil
}

func (t *Memory) Get(key uint64) ([]byte, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (t *Memory) Delete(key uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
	return nil
}

func (t *Memory) Iter() ([]Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entries := make([]Entry, 0, len(t.entries))
	for k, v := range t.entries {
		cp := make([]byte, len(v))
		copy(cp, v)
		entries = append(entries, Entry{Key: k, Value: cp})
	}
	return entries, nil
}

func (t *Memory) Close() error { return nil }
