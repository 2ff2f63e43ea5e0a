package controller

import (
	"context"

	"github.com/sentrywall/sentrywall/alertring"
	"github.com/sentrywall/sentrywall/decision"
	"github.com/sentrywall/sentrywall/hook"
)

// EvaluateExec runs the program-exec rule for a process about to exec
// imageInode with argc arguments. It has no policy surface (spec.md
// §4.7): the zero-argument hardening rule is the entire decision.
func (m *Manager) EvaluateExec(ctx context.Context, imageInode uint64, argc int) decision.Verdict {
	verdict, alerted := decision.EvaluateExec(argc)
	if alerted {
		m.emit(ctx, hook.Exec, alertring.Alert{
			Hook: hook.Exec, ImageInode: imageInode, Subject: m.resolver.ResolveInode(imageInode),
		})
	}
	return verdict
}

// EvaluateFileOpen runs the file-open hook's decision algorithm,
// including the path-containment walk over target's ancestor
// directories, and emits a software-engine alert on denial.
func (m *Manager) EvaluateFileOpen(ctx context.Context, lookup decision.ParentLookup, imageInode, targetInode uint64) (decision.Verdict, error) {
	verdict, alerted, _, err := decision.EvaluateFileOpen(m.tables.FileOpen, lookup, imageInode, targetInode)
	if err != nil {
		return decision.Allow, err
	}
	if alerted {
		m.emit(ctx, hook.FileOpen, alertring.Alert{
			Hook: hook.FileOpen, ImageInode: imageInode, Subject: m.resolver.ResolveInode(imageInode),
			TargetInode: targetInode, TargetSubject: m.resolver.ResolveInode(targetInode),
		})
	}
	return verdict, nil
}

// EvaluateMount runs the mount/remount/unmount hook's decision
// algorithm.
func (m *Manager) EvaluateMount(ctx context.Context, imageInode uint64) (decision.Verdict, error) {
	verdict, alerted, _, err := decision.EvaluateMount(m.tables.Mount, imageInode)
	if err != nil {
		return decision.Allow, err
	}
	if alerted {
		m.emit(ctx, hook.Mount, alertring.Alert{Hook: hook.Mount, ImageInode: imageInode, Subject: m.resolver.ResolveInode(imageInode)})
	}
	return verdict, nil
}

// EvaluateSetuid runs the credential-change hook's decision algorithm.
func (m *Manager) EvaluateSetuid(ctx context.Context, imageInode uint64, oldUID, oldGID, newUID, newGID uint32) (decision.Verdict, error) {
	verdict, alerted, _, err := decision.EvaluateSetuid(m.tables.Setuid, imageInode)
	if err != nil {
		return decision.Allow, err
	}
	if alerted {
		m.emit(ctx, hook.Setuid, alertring.Alert{
			Hook: hook.Setuid, ImageInode: imageInode, Subject: m.resolver.ResolveInode(imageInode),
			OldUID: oldUID, OldGID: oldGID, NewUID: newUID, NewGID: newGID,
		})
	}
	return verdict, nil
}

// EvaluateSocketBind runs the socket-bind hook's decision algorithm.
func (m *Manager) EvaluateSocketBind(ctx context.Context, imageInode uint64, port uint16) (decision.Verdict, error) {
	verdict, alerted, _, err := decision.EvaluateSocketBind(m.tables.Bind, imageInode, port)
	if err != nil {
		return decision.Allow, err
	}
	if alerted {
		m.emit(ctx, hook.SocketBind, alertring.Alert{Hook: hook.SocketBind, ImageInode: imageInode, Subject: m.resolver.ResolveInode(imageInode), Port: port})
	}
	return verdict, nil
}

// EvaluateSocketConnect4 runs the socket-connect hook's decision
// algorithm for an IPv4 destination.
func (m *Manager) EvaluateSocketConnect4(ctx context.Context, imageInode uint64, addr uint32, port uint16) (decision.Verdict, error) {
	verdict, alerted, _, err := decision.EvaluateSocketConnect4(m.tables.Connect4, imageInode, addr)
	if err != nil {
		return decision.Allow, err
	}
	if alerted {
		m.emit(ctx, hook.SocketConnect, alertring.Alert{
			Hook: hook.SocketConnect, ImageInode: imageInode, Subject: m.resolver.ResolveInode(imageInode),
			Port: port, AddrV4: addr, Family: 4,
		})
	}
	return verdict, nil
}

// EvaluateSocketConnect6 runs the socket-connect hook's decision
// algorithm for an IPv6 destination.
func (m *Manager) EvaluateSocketConnect6(ctx context.Context, imageInode uint64, addr [16]byte, port uint16) (decision.Verdict, error) {
	verdict, alerted, _, err := decision.EvaluateSocketConnect6(m.tables.Connect6, imageInode, addr)
	if err != nil {
		return decision.Allow, err
	}
	if alerted {
		m.emit(ctx, hook.SocketConnect, alertring.Alert{
			Hook: hook.SocketConnect, ImageInode: imageInode, Subject: m.resolver.ResolveInode(imageInode),
			Port: port, AddrV6: addr, Family: 6,
		})
	}
	return verdict, nil
}

// emit delivers a software-engine alert to whatever SoftwareAlerts
// channel is open for hk, blocking only until ctx is cancelled
// (cooperative backpressure, matching alertring.Fanin's production
// behavior).
func (m *Manager) emit(ctx context.Context, hk hook.Kind, a alertring.Alert) {
	ch := m.softwareAlertChan(hk)
	select {
	case ch <- a:
	case <-ctx.Done():
	}
}
