// Package controller implements C6: the policy controller that loads
// the BPF object, owns the policy maps, translates the high-level
// policy model to and from wire records, and streams alerts.
//
// A Manager works identically whether it is bound to real pinned BPF
// maps or to the in-memory software engine described in
// SPEC_FULL.md §3 — both are policymap.Opener implementations, and
// Manager itself never branches on which one it was given.
package controller

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/sentrywall/sentrywall/alertring"
	"github.com/sentrywall/sentrywall/bpf"
	"github.com/sentrywall/sentrywall/hook"
	"github.com/sentrywall/sentrywall/policy"
	"github.com/sentrywall/sentrywall/policymap"
	"github.com/sentrywall/sentrywall/subject"
)

// Manager is the single entry point owning every hook's policy tables,
// the subject resolver, and (in hardware mode) the loaded BPF object
// and its attached programs.
type Manager struct {
	pinDir     string
	opener     policymap.Opener
	tables     *Tables
	resolver   *subject.Resolver
	translator *policy.Translator
	logger     *zap.Logger

	object   *bpf.Object
	attached []*bpf.AttachedProgram

	alertMu        sync.Mutex
	softwareAlerts map[hook.Kind]chan alertring.Alert
}

// New returns a Manager bound to real pinned BPF maps under pinDir,
// after verifying the host environment (spec.md §6 preconditions: LSM
// backend, BTF availability, pin directory on a bpffs mount). It does
// not itself load or attach anything — call AttachAll for a first-time
// setup, or ManageAll to bind to state a prior process already
// attached and pinned.
func New(pinDir string, logger *zap.Logger) (*Manager, error) {
	if err := bpf.CheckEnvironment(pinDir); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	resolver := subject.New()
	return &Manager{
		pinDir:         pinDir,
		opener:         policymap.BPFOpener{Dir: pinDir},
		resolver:       resolver,
		translator:     policy.NewTranslator(resolver),
		logger:         logger.With(zap.String("component", "controller")),
		softwareAlerts: make(map[hook.Kind]chan alertring.Alert),
	}, nil
}

// NewSoftware returns a Manager backed entirely by in-memory tables
// and the decision package's reference engine, for use where no
// BPF-LSM-capable kernel is available (CI, containers, `simulate`).
// No environment checks are run.
func NewSoftware(logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	resolver := subject.New()
	opener := policymap.NewMemoryOpener()
	tables, err := openTables(opener)
	if err != nil {
		return nil, err
	}
	return &Manager{
		opener:         opener,
		tables:         tables,
		resolver:       resolver,
		translator:     policy.NewTranslator(resolver),
		logger:         logger.With(zap.String("component", "controller"), zap.String("engine", "software")),
		softwareAlerts: make(map[hook.Kind]chan alertring.Alert),
	}, nil
}

// Load reads the compiled BPF object at objPath and pins its maps
// under the Manager's pin directory, without attaching any program.
// AttachAll calls it itself; the per-hook Attach<Hook> methods do not,
// so a caller attaching hooks one at a time calls Load first.
func (m *Manager) Load(objPath string) error {
	if m.object != nil {
		return fmt.Errorf("controller: object already loaded")
	}
	obj, err := bpf.Load(objPath)
	if err != nil {
		return err
	}
	if err := obj.PinMaps(m.pinDir); err != nil {
		obj.Close()
		return err
	}
	m.object = obj
	return nil
}

// AttachAll loads the compiled BPF object at objPath, attaches every
// program named by bpf.AllPrograms to its LSM hook, and binds the
// Manager's tables to the freshly pinned maps. This is the first-time
// setup path; a restarted controller should call ManageAll instead.
//
// It is equivalent to calling Load followed by Attach<Hook> for every
// hook.Kind, which is how the original attach_all assembles its
// per-hook handles (ebpfguard manager.rs).
func (m *Manager) AttachAll(objPath string) error {
	if err := m.Load(objPath); err != nil {
		return err
	}
	for _, hk := range hook.All() {
		h, err := m.attachHook(hk)
		if err != nil {
			closeAttached(m.attached)
			m.attached = nil
			m.object.Close()
			m.object = nil
			return err
		}
		m.attached = append(m.attached, h.attached...)
	}
	m.logger.Info("attached all programs", zap.Int("programs", len(m.attached)))
	return nil
}

// ManageAll binds the Manager's tables to maps a prior process already
// pinned and attached, without loading an object or attaching
// anything itself (spec.md §3 "Policy maps are pinned: they outlive
// the user-space process").
func (m *Manager) ManageAll() error {
	tables, err := openTables(m.opener)
	if err != nil {
		return err
	}
	m.tables = tables
	return nil
}

// ensureTables opens the Manager's tables on first use, so that a
// per-hook Manage<Hook>/Attach<Hook> call works whether or not
// ManageAll/AttachAll has already bound them.
func (m *Manager) ensureTables() error {
	if m.tables != nil {
		return nil
	}
	tables, err := openTables(m.opener)
	if err != nil {
		return err
	}
	m.tables = tables
	return nil
}

// progNamesFor lists the LSM programs one hook attaches. Every hook is
// one program except Mount, which covers sb_mount, sb_remount and
// sb_umount sharing a single policy table pair (hook.Mount).
func progNamesFor(hk hook.Kind) []string {
	switch hk {
	case hook.Exec:
		return []string{bpf.ProgExec}
	case hook.FileOpen:
		return []string{bpf.ProgFileOpen}
	case hook.Setuid:
		return []string{bpf.ProgSetuid}
	case hook.Mount:
		return []string{bpf.ProgSBMount, bpf.ProgSBRemount, bpf.ProgSBUmount}
	case hook.SocketBind:
		return []string{bpf.ProgSocketBind}
	case hook.SocketConnect:
		return []string{bpf.ProgSocketConnect}
	default:
		return nil
	}
}

// ManageHook returns a handle bound to hk's already-attached programs
// and policy tables, without attaching anything itself (the manage_X
// half of ebpfguard manager.rs's attach_X/manage_X pair). It works in
// both hardware and software mode.
func (m *Manager) ManageHook(hk hook.Kind) (*Hook, error) {
	if err := m.ensureTables(); err != nil {
		return nil, err
	}
	return &Hook{kind: hk, m: m}, nil
}

// attachHook loads hk's program(s) from the already-Loaded object and
// returns a handle owning those attachments. The Manager must have
// had Load called first.
func (m *Manager) attachHook(hk hook.Kind) (*Hook, error) {
	if m.object == nil {
		return nil, fmt.Errorf("controller: attach %v: no object loaded, call Load first", hk)
	}
	h, err := m.ManageHook(hk)
	if err != nil {
		return nil, err
	}
	attached := make([]*bpf.AttachedProgram, 0, len(progNamesFor(hk)))
	for _, name := range progNamesFor(hk) {
		a, err := m.object.AttachProgram(name)
		if err != nil {
			closeAttached(attached)
			return nil, fmt.Errorf("controller: attach %v: %w", hk, err)
		}
		attached = append(attached, a)
	}
	h.attached = attached
	return h, nil
}

// AttachExec attaches the exec hook's program from the object already
// loaded by Load, returning a handle scoped to hook.Exec. It fails if
// no object has been loaded.
func (m *Manager) AttachExec() (*Hook, error) { return m.attachHook(hook.Exec) }

// AttachFileOpen attaches the file-open program and returns a handle
// scoped to hook.FileOpen.
func (m *Manager) AttachFileOpen() (*Hook, error) { return m.attachHook(hook.FileOpen) }

// AttachSetuid attaches the task_fix_setuid program and returns a
// handle scoped to hook.Setuid.
func (m *Manager) AttachSetuid() (*Hook, error) { return m.attachHook(hook.Setuid) }

// AttachMount attaches all three mount/remount/umount programs and
// returns one handle scoped to hook.Mount, since they share a single
// policy table pair.
func (m *Manager) AttachMount() (*Hook, error) { return m.attachHook(hook.Mount) }

// AttachSocketBind attaches the socket_bind program and returns a
// handle scoped to hook.SocketBind.
func (m *Manager) AttachSocketBind() (*Hook, error) { return m.attachHook(hook.SocketBind) }

// AttachSocketConnect attaches the socket_connect program and returns
// a handle scoped to hook.SocketConnect.
func (m *Manager) AttachSocketConnect() (*Hook, error) { return m.attachHook(hook.SocketConnect) }

// ManageExec returns a handle bound to the exec hook's already
// attached program and alert ring, without attaching anything.
func (m *Manager) ManageExec() (*Hook, error) { return m.ManageHook(hook.Exec) }

// ManageFileOpen returns a handle bound to the file-open hook's
// already attached program and policy tables.
func (m *Manager) ManageFileOpen() (*Hook, error) { return m.ManageHook(hook.FileOpen) }

// ManageSetuid returns a handle bound to the setuid hook's already
// attached program and policy tables.
func (m *Manager) ManageSetuid() (*Hook, error) { return m.ManageHook(hook.Setuid) }

// ManageMount returns a handle bound to the mount hook's already
// attached programs and policy tables.
func (m *Manager) ManageMount() (*Hook, error) { return m.ManageHook(hook.Mount) }

// ManageSocketBind returns a handle bound to the socket-bind hook's
// already attached program and policy tables.
func (m *Manager) ManageSocketBind() (*Hook, error) { return m.ManageHook(hook.SocketBind) }

// ManageSocketConnect returns a handle bound to the socket-connect
// hook's already attached program and policy tables.
func (m *Manager) ManageSocketConnect() (*Hook, error) { return m.ManageHook(hook.SocketConnect) }

// Close detaches every attached program and releases the loaded
// object and open tables. Pinned maps are left in place.
func (m *Manager) Close() error {
	closeAttached(m.attached)
	if m.object != nil {
		m.object.Close()
	}
	if m.tables != nil {
		return m.tables.Close()
	}
	return nil
}

func closeAttached(attached []*bpf.AttachedProgram) {
	for _, a := range attached {
		a.Close()
	}
}

// Resolver exposes the Manager's subject resolver, e.g. for a CLI that
// needs to print human-readable subjects for raw alert inodes.
func (m *Manager) Resolver() *subject.Resolver { return m.resolver }

func (m *Manager) subjectFromKey(key uint64) policy.Subject {
	if key == subject.All {
		return policy.All()
	}
	return policy.ForPath(m.resolver.ResolveInode(key))
}

func unionAll(keySets ...[]uint64) []uint64 {
	seen := make(map[uint64]bool)
	var out []uint64
	for _, ks := range keySets {
		for _, k := range ks {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

func keysOf[V any](entries []policymap.TypedEntry[V]) []uint64 {
	out := make([]uint64, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}

func valueMap[V any](entries []policymap.TypedEntry[V]) map[uint64]V {
	m := make(map[uint64]V, len(entries))
	for _, e := range entries {
		m[e.Key] = e.Value
	}
	return m
}
