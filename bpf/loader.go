package bpf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
)

// Object is a loaded, not-yet-attached collection. The compiled artifact
// is treated as an opaque blob (spec.md §1 Non-goals): this package
// never inspects or generates its bytecode, only binds to it by the
// names in names.go.
type Object struct {
	coll *ebpf.Collection
}

// Load reads a compiled BPF object from objPath and verifies it exposes
// every map and program this package names. The caller owns the
// returned Object and must Close it once maps are pinned and programs
// attached (or on any error path before that).
func Load(objPath string) (*Object, error) {
	spec, err := ebpf.LoadCollectionSpec(objPath)
	if err != nil {
		return nil, fmt.Errorf("bpf: load collection spec %s: %w", objPath, err)
	}

	for _, name := range AllMaps() {
		if spec.Maps[name] == nil {
			return nil, fmt.Errorf("bpf: object %s missing map %q", objPath, name)
		}
	}
	for _, name := range AllPrograms() {
		if spec.Programs[name] == nil {
			return nil, fmt.Errorf("bpf: object %s missing program %q", objPath, name)
		}
	}

	coll, err := ebpf.NewCollection(spec)
	if err != nil {
		return nil, fmt.Errorf("bpf: instantiate collection %s: %w", objPath, err)
	}
	return &Object{coll: coll}, nil
}

// Close releases the in-kernel resources for every map and program that
// were not pinned or attached. Pinned maps and attached links outlive
// this call by design (spec.md §3 "Lifecycle").
func (o *Object) Close() {
	o.coll.Close()
}

// Map returns the named map from the loaded collection.
func (o *Object) Map(name string) (*ebpf.Map, error) {
	m, ok := o.coll.Maps[name]
	if !ok {
		return nil, fmt.Errorf("bpf: no such map %q", name)
	}
	return m, nil
}

// Program returns the named program from the loaded collection.
func (o *Object) Program(name string) (*ebpf.Program, error) {
	p, ok := o.coll.Programs[name]
	if !ok {
		return nil, fmt.Errorf("bpf: no such program %q", name)
	}
	return p, nil
}

// PinMaps pins every named map under pinDir, skipping maps already
// pinned there from a previous run (ebpf.ErrAlreadyPinned-like
// idempotence, matching spec.md §3's "maps are pinned" lifecycle: a
// restarted controller re-attaches to existing state rather than
// resetting it).
func (o *Object) PinMaps(pinDir string) error {
	if err := os.MkdirAll(pinDir, 0755); err != nil {
		return fmt.Errorf("bpf: create pin dir %s: %w", pinDir, err)
	}
	for _, name := range AllMaps() {
		m, err := o.Map(name)
		if err != nil {
			return err
		}
		path := filepath.Join(pinDir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := m.Pin(path); err != nil {
			return fmt.Errorf("bpf: pin map %q: %w", name, err)
		}
	}
	return nil
}

// AttachedProgram is a live LSM attachment the caller must Close to
// detach.
type AttachedProgram struct {
	Name string
	Link link.Link
}

// Close detaches the program.
func (a *AttachedProgram) Close() error {
	return a.Link.Close()
}

// AttachProgram attaches the single named program to its LSM hook.
func (o *Object) AttachProgram(name string) (*AttachedProgram, error) {
	prog, err := o.Program(name)
	if err != nil {
		return nil, err
	}
	l, err := link.AttachLSM(link.LSMOptions{Program: prog})
	if err != nil {
		return nil, fmt.Errorf("bpf: attach lsm %q: %w", name, err)
	}
	return &AttachedProgram{Name: name, Link: l}, nil
}

// AttachAll attaches every program named by AllPrograms() to its LSM
// hook and returns the live links. On any failure, links already
// attached are closed before the error is returned, so callers never
// have to unwind a partial attachment themselves.
func (o *Object) AttachAll() ([]*AttachedProgram, error) {
	attached := make([]*AttachedProgram, 0, len(AllPrograms()))
	for _, name := range AllPrograms() {
		a, err := o.AttachProgram(name)
		if err != nil {
			closeAll(attached)
			return nil, err
		}
		attached = append(attached, a)
	}
	return attached, nil
}

func closeAll(attached []*AttachedProgram) {
	for _, a := range attached {
		a.Close()
	}
}

// OpenPinnedMap binds to a map already pinned under pinDir by a prior
// run, without going through Load/AttachAll again (spec.md §3:
// programs stay attached and maps stay pinned independent of the
// controller process's lifetime).
func OpenPinnedMap(pinDir, name string) (*ebpf.Map, error) {
	m, err := ebpf.LoadPinnedMap(filepath.Join(pinDir, name), nil)
	if err != nil {
		return nil, fmt.Errorf("bpf: load pinned map %q: %w", name, err)
	}
	return m, nil
}
