package controller

import (
	"fmt"

	"github.com/sentrywall/sentrywall/bpf"
	"github.com/sentrywall/sentrywall/decision"
	"github.com/sentrywall/sentrywall/policymap"
	"github.com/sentrywall/sentrywall/wire"
)

// Tables bundles the ALLOWED/DENIED table pairs for every governed
// hook. They are opened through one policymap.Opener, so a Manager
// never has to know whether it is driving real pinned BPF maps or the
// in-memory software engine.
type Tables struct {
	FileOpen decision.FileOpenTables
	Mount    decision.BoolTables
	Setuid   decision.BoolTables
	Bind     decision.PortTables
	Connect4 decision.IPv4Tables
	Connect6 decision.IPv6Tables
}

func openTable[V wire.PlainOldData](opener policymap.Opener, name string) (*policymap.Map[V], error) {
	m, err := policymap.Open[V](opener, name)
	if err != nil {
		return nil, fmt.Errorf("controller: open table %q: %w", name, err)
	}
	return m, nil
}

func openTables(opener policymap.Opener) (*Tables, error) {
	fileOpenAllowed, err := openTable[wire.PathSet](opener, bpf.FileOpenAllowed)
	if err != nil {
		return nil, err
	}
	fileOpenDenied, err := openTable[wire.PathSet](opener, bpf.FileOpenDenied)
	if err != nil {
		return nil, err
	}
	mountAllowed, err := openTable[wire.BoolFlag](opener, bpf.MountAllowed)
	if err != nil {
		return nil, err
	}
	mountDenied, err := openTable[wire.BoolFlag](opener, bpf.MountDenied)
	if err != nil {
		return nil, err
	}
	setuidAllowed, err := openTable[wire.BoolFlag](opener, bpf.SetuidAllowed)
	if err != nil {
		return nil, err
	}
	setuidDenied, err := openTable[wire.BoolFlag](opener, bpf.SetuidDenied)
	if err != nil {
		return nil, err
	}
	bindAllowed, err := openTable[wire.PortSet](opener, bpf.BindAllowed)
	if err != nil {
		return nil, err
	}
	bindDenied, err := openTable[wire.PortSet](opener, bpf.BindDenied)
	if err != nil {
		return nil, err
	}
	connect4Allowed, err := openTable[wire.IPv4Set](opener, bpf.Connect4Allowed)
	if err != nil {
		return nil, err
	}
	connect4Denied, err := openTable[wire.IPv4Set](opener, bpf.Connect4Denied)
	if err != nil {
		return nil, err
	}
	connect6Allowed, err := openTable[wire.IPv6Set](opener, bpf.Connect6Allowed)
	if err != nil {
		return nil, err
	}
	connect6Denied, err := openTable[wire.IPv6Set](opener, bpf.Connect6Denied)
	if err != nil {
		return nil, err
	}

	return &Tables{
		FileOpen: decision.FileOpenTables{Allowed: fileOpenAllowed, Denied: fileOpenDenied},
		Mount:    decision.BoolTables{Allowed: mountAllowed, Denied: mountDenied},
		Setuid:   decision.BoolTables{Allowed: setuidAllowed, Denied: setuidDenied},
		Bind:     decision.PortTables{Allowed: bindAllowed, Denied: bindDenied},
		Connect4: decision.IPv4Tables{Allowed: connect4Allowed, Denied: connect4Denied},
		Connect6: decision.IPv6Tables{Allowed: connect6Allowed, Denied: connect6Denied},
	}, nil
}

// Close releases every underlying table. For the BPF backend this
// closes the map file descriptors (the pin itself, and the programs
// attached to it, are unaffected); for the in-memory backend it is a
// no-op.
func (t *Tables) Close() error {
	closers := []interface{ Close() error }{
		t.FileOpen.Allowed, t.FileOpen.Denied,
		t.Mount.Allowed, t.Mount.Denied,
		t.Setuid.Allowed, t.Setuid.Denied,
		t.Bind.Allowed, t.Bind.Denied,
		t.Connect4.Allowed, t.Connect4.Denied,
		t.Connect6.Allowed, t.Connect6.Denied,
	}
	var first error
	for _, c := range closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
