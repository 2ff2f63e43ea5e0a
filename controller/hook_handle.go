package controller

import (
	"context"
	"fmt"

	"github.com/sentrywall/sentrywall/alertring"
	"github.com/sentrywall/sentrywall/bpf"
	"github.com/sentrywall/sentrywall/hook"
	"github.com/sentrywall/sentrywall/policy"
)

// Hook is a handle to one governed hook's policy surface and, in
// hardware mode, its attached program(s). Manager.Attach<Hook> returns
// one that owns an attachment; Manager.Manage<Hook> returns one bound
// to state a prior process already attached.
type Hook struct {
	kind     hook.Kind
	m        *Manager
	attached []*bpf.AttachedProgram
}

// Kind reports which LSM hook this handle governs.
func (h *Hook) Kind() hook.Kind { return h.kind }

// AddPolicy installs p, which must target this handle's hook.
func (h *Hook) AddPolicy(p policy.Policy) error {
	if p.Hook != h.kind {
		return fmt.Errorf("controller: policy for hook %v does not match handle for %v", p.Hook, h.kind)
	}
	return h.m.AddPolicy(p)
}

// ListPolicies returns every policy currently stored for this handle's
// hook.
func (h *Hook) ListPolicies() ([]policy.Policy, error) {
	all, err := h.m.ListPolicies()
	if err != nil {
		return nil, err
	}
	var out []policy.Policy
	for _, p := range all {
		if p.Hook == h.kind {
			out = append(out, p)
		}
	}
	return out, nil
}

// Alerts returns this handle's hook's alert stream.
func (h *Hook) Alerts(ctx context.Context, perCPUBuf int) (<-chan alertring.Alert, error) {
	return h.m.Alerts(ctx, h.kind, perCPUBuf)
}

// Close detaches the program(s) this handle attached. A handle
// returned by Manage<Hook> owns no attachment and Close is a no-op.
func (h *Hook) Close() error {
	for _, a := range h.attached {
		if err := a.Close(); err != nil {
			return err
		}
	}
	return nil
}
