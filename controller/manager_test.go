package controller

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sentrywall/sentrywall/decision"
	"github.com/sentrywall/sentrywall/hook"
	"github.com/sentrywall/sentrywall/policy"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewSoftware(nil)
	if err != nil {
		t.Fatalf("NewSoftware: %v", err)
	}
	return m
}

func writeTempFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAddAndListFileOpenPolicy(t *testing.T) {
	m := newTestManager(t)
	dir := t.TempDir()
	app := writeTempFile(t, dir, "app")
	secret := writeTempFile(t, dir, "shadow")

	p := policy.NewFileOpen(policy.ForPath(app), policy.PathSpec{Paths: []string{app}}, policy.PathSpec{Paths: []string{secret}})
	if err := m.AddPolicy(p); err != nil {
		t.Fatalf("AddPolicy: %v", err)
	}

	got, err := m.ListPolicies()
	if err != nil {
		t.Fatalf("ListPolicies: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d policies, want 1", len(got))
	}
	if !got[0].Equal(p) {
		t.Errorf("got %+v, want %+v", got[0], p)
	}
}

func TestAddAndListMountPolicy(t *testing.T) {
	m := newTestManager(t)
	p := policy.NewMount(policy.All(), false)
	if err := m.AddPolicy(p); err != nil {
		t.Fatalf("AddPolicy: %v", err)
	}
	got, err := m.ListPolicies()
	if err != nil {
		t.Fatalf("ListPolicies: %v", err)
	}
	if len(got) != 1 || got[0].Hook != hook.Mount || got[0].Allow {
		t.Errorf("got %+v, want deny-all mount policy", got)
	}
}

func TestAddBoolPolicyMovesSubjectBetweenTables(t *testing.T) {
	m := newTestManager(t)
	subj := policy.ForPath(writeTempFile(t, t.TempDir(), "sudo"))

	if err := m.AddPolicy(policy.NewSetuid(subj, true)); err != nil {
		t.Fatalf("AddPolicy allow: %v", err)
	}
	if err := m.AddPolicy(policy.NewSetuid(subj, false)); err != nil {
		t.Fatalf("AddPolicy deny: %v", err)
	}

	got, err := m.ListPolicies()
	if err != nil {
		t.Fatalf("ListPolicies: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d policies, want 1 (subject should not be in both tables)", len(got))
	}
	if got[0].Allow {
		t.Error("expected the later deny to have replaced the earlier allow")
	}
}

func TestEvaluateSocketBindDeniesGovernedPort(t *testing.T) {
	m := newTestManager(t)
	subj := policy.ForPath(writeTempFile(t, t.TempDir(), "listener"))

	if err := m.AddPolicy(policy.NewSocketBind(subj, policy.PortSpec{}, policy.PortSpec{Ports: []uint16{8080}})); err != nil {
		t.Fatalf("AddPolicy: %v", err)
	}
	// Denylist mode requires a wildcard allow entry (spec.md §4.4 Step B).
	if err := m.AddPolicy(policy.NewSocketBind(policy.All(), policy.PortSpec{All: true}, policy.PortSpec{})); err != nil {
		t.Fatalf("AddPolicy wildcard: %v", err)
	}

	imageInode, err := m.Resolver().ResolvePath(subj.Path)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	verdict, err := m.EvaluateSocketBind(ctx, imageInode, 8080)
	if err != nil {
		t.Fatalf("EvaluateSocketBind: %v", err)
	}
	if verdict != decision.Deny {
		t.Errorf("verdict = %v, want deny", verdict)
	}

	select {
	case a := <-m.SoftwareAlerts(hook.SocketBind):
		if a.Port != 8080 || a.ImageInode != imageInode {
			t.Errorf("unexpected alert %+v", a)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an alert on denial")
	}
}

func TestManageFileOpenHandleScopesAddAndListPolicy(t *testing.T) {
	m := newTestManager(t)
	dir := t.TempDir()
	app := writeTempFile(t, dir, "app")
	secret := writeTempFile(t, dir, "shadow")

	h, err := m.ManageFileOpen()
	if err != nil {
		t.Fatalf("ManageFileOpen: %v", err)
	}
	if h.Kind() != hook.FileOpen {
		t.Fatalf("Kind() = %v, want FileOpen", h.Kind())
	}

	p := policy.NewFileOpen(policy.ForPath(app), policy.PathSpec{Paths: []string{app}}, policy.PathSpec{Paths: []string{secret}})
	if err := h.AddPolicy(p); err != nil {
		t.Fatalf("Hook.AddPolicy: %v", err)
	}
	if err := m.AddPolicy(policy.NewMount(policy.All(), false)); err != nil {
		t.Fatalf("AddPolicy: %v", err)
	}

	got, err := h.ListPolicies()
	if err != nil {
		t.Fatalf("Hook.ListPolicies: %v", err)
	}
	if len(got) != 1 || got[0].Hook != hook.FileOpen {
		t.Errorf("Hook.ListPolicies scoped to file_open = %+v, want exactly the one file_open policy", got)
	}
}

func TestHookAddPolicyRejectsMismatchedHook(t *testing.T) {
	m := newTestManager(t)
	h, err := m.ManageSetuid()
	if err != nil {
		t.Fatalf("ManageSetuid: %v", err)
	}
	if err := h.AddPolicy(policy.NewMount(policy.All(), true)); err == nil {
		t.Error("expected an error installing a mount policy through the setuid handle")
	}
}

func TestAttachHookWithoutLoadFails(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.AttachFileOpen(); err == nil {
		t.Error("expected AttachFileOpen to fail before Load has run")
	}
}

func TestEvaluateFileOpenWalksAncestors(t *testing.T) {
	m := newTestManager(t)
	dir := t.TempDir()
	secretDir := filepath.Join(dir, "secret")
	if err := os.Mkdir(secretDir, 0o755); err != nil {
		t.Fatal(err)
	}
	leaf := filepath.Join(secretDir, "leaf.txt")
	if err := os.WriteFile(leaf, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	reader := filepath.Join(dir, "reader")
	if err := os.WriteFile(reader, []byte("x"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := m.AddPolicy(policy.NewFileOpen(policy.All(), policy.PathSpec{All: true}, policy.PathSpec{Paths: []string{secretDir}})); err != nil {
		t.Fatalf("AddPolicy: %v", err)
	}

	imageInode, err := m.Resolver().ResolvePath(reader)
	if err != nil {
		t.Fatal(err)
	}
	targetInode, err := m.Resolver().ResolvePath(leaf)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	verdict, err := m.EvaluateFileOpen(ctx, FSParentLookup{Resolver: m.Resolver()}, imageInode, targetInode)
	if err != nil {
		t.Fatalf("EvaluateFileOpen: %v", err)
	}
	if verdict != decision.Deny {
		t.Errorf("verdict = %v, want deny (leaf is inside denied directory)", verdict)
	}
}
