package controller

import (
	"context"
	"fmt"

	"github.com/sentrywall/sentrywall/alertring"
	"github.com/sentrywall/sentrywall/bpf"
	"github.com/sentrywall/sentrywall/hook"
)

// Alerts returns the merged alert stream for hk. In hardware mode it
// opens a perf reader over hk's ring map and drains it through
// alertring.Fanin; in software mode (or while no object is loaded) it
// returns the channel EvaluateXxx delivers software-engine alerts to.
// perCPUBuf is only meaningful in hardware mode; pass 0 for the
// kernel's default.
func (m *Manager) Alerts(ctx context.Context, hk hook.Kind, perCPUBuf int) (<-chan alertring.Alert, error) {
	if m.object == nil {
		return m.SoftwareAlerts(hk), nil
	}
	ringName, decode, err := alertRingFor(hk)
	if err != nil {
		return nil, err
	}
	ringMap, err := m.object.Map(ringName)
	if err != nil {
		return nil, err
	}
	src, err := alertring.OpenPerfSource(ringMap, perCPUBuf)
	if err != nil {
		return nil, err
	}
	fanin := alertring.New(hk, []alertring.CPUSource{src}, decode, m.resolver)
	return fanin.Start(ctx), nil
}

// SoftwareAlerts returns the channel software-engine evaluations for hk
// deliver to, creating it on first use.
func (m *Manager) SoftwareAlerts(hk hook.Kind) <-chan alertring.Alert {
	return m.softwareAlertChan(hk)
}

func (m *Manager) softwareAlertChan(hk hook.Kind) chan alertring.Alert {
	m.alertMu.Lock()
	defer m.alertMu.Unlock()
	ch, ok := m.softwareAlerts[hk]
	if !ok {
		ch = make(chan alertring.Alert, alertring.DefaultBufSize)
		m.softwareAlerts[hk] = ch
	}
	return ch
}

func alertRingFor(hk hook.Kind) (string, alertring.DecodeFunc, error) {
	switch hk {
	case hook.Exec:
		return bpf.ExecAlerts, alertring.DecodeExec, nil
	case hook.FileOpen:
		return bpf.FileOpenAlerts, alertring.DecodeFileOpen, nil
	case hook.Setuid:
		return bpf.SetuidAlerts, alertring.DecodeCred, nil
	case hook.Mount:
		return bpf.MountAlerts, alertring.DecodeMount, nil
	case hook.SocketBind:
		return bpf.BindAlerts, alertring.DecodeBind, nil
	case hook.SocketConnect:
		return bpf.ConnectAlerts, alertring.DecodeConnect, nil
	default:
		return "", nil, fmt.Errorf("controller: hook %v has no alert ring", hk)
	}
}
