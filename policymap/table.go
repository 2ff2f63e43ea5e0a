// Package policymap implements C2: named, pinned key→value tables
// shared between the BPF LSM programs and the user-space controller.
//
// Tables are keyed by a 64-bit image inode (wire.WildcardSubject for
// "every executable") and store fixed-layout wire.PlainOldData
// values. The raw byte-level contract (Table) is implemented twice:
// once against a real pinned BPF map (BPFTable) for production use,
// and once in-memory (Memory) for tests and for the software decision
// engine — both satisfy the same interface, the way the teacher's
// fs.InodeEmbedder is implemented by both real and fake file systems
// in its own tests.
package policymap

import "io"

// Entry is one (key, value) pair returned while iterating a table.
type Entry struct {
	Key   uint64
	Value []byte
}

// Table is the raw byte-level contract every policy map backend
// implements. Callers almost never use it directly — see Map[V] for
// the typed wrapper used throughout the rest of sentrywall.
type Table interface {
	io.Closer

	// Put upserts value under key.
	Put(key uint64, value []byte) error

	// Get performs a point lookup. ok is false if key is absent.
	Get(key uint64) (value []byte, ok bool, err error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key uint64) error

	// Iter returns every (key, value) pair currently stored. Order is
	// unspecified.
	Iter() ([]Entry, error)
}

// Opener opens a named, pinned table. Implementations differ in where
// "pinned" means: under a bpffs directory for BPFTable, or simply
// "kept alive in process memory" for Memory.
type Opener interface {
	OpenPinned(name string) (Table, error)
}
