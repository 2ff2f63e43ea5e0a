// Package bpf names the maps and programs the prebuilt BPF LSM object
// must expose (spec.md §6 "Wire-level boundary"). Building that object
// — the kernel-struct field access helpers and the BTF-driven binding
// generator that would normally accompany it — is out of scope per
// spec.md §1; this package only carries the names both sides bind by,
// and the loader that turns the opaque blob into attached programs and
// pinned maps.
package bpf

// Map names, one pair (plus one ring) per governed hook (spec.md §4.2).
const (
	FileOpenAllowed = "file_open_allowed"
	FileOpenDenied  = "file_open_denied"
	FileOpenAlerts  = "file_open_alerts"

	MountAllowed = "mount_allowed"
	MountDenied  = "mount_denied"
	MountAlerts  = "mount_alerts"

	BindAllowed = "bind_allowed"
	BindDenied  = "bind_denied"
	BindAlerts  = "bind_alerts"

	Connect4Allowed = "connect4_allowed"
	Connect4Denied  = "connect4_denied"
	Connect6Allowed = "connect6_allowed"
	Connect6Denied  = "connect6_denied"
	ConnectAlerts   = "connect_alerts"

	SetuidAllowed = "setuid_allowed"
	SetuidDenied  = "setuid_denied"
	SetuidAlerts  = "setuid_alerts"

	ExecAlerts = "exec_alerts"
)

// Program names. Mount/remount/unmount are three distinct LSM
// attachment points sharing one pair of policy maps (spec.md §4.2).
const (
	ProgExec          = "bprm_check_security"
	ProgFileOpen      = "file_open"
	ProgSetuid        = "task_fix_setuid"
	ProgSBMount       = "sb_mount"
	ProgSBRemount     = "sb_remount"
	ProgSBUmount      = "sb_umount"
	ProgSocketBind    = "socket_bind"
	ProgSocketConnect = "socket_connect"
)

// AllPrograms lists every program name the object must expose.
func AllPrograms() []string {
	return []string{
		ProgExec, ProgFileOpen, ProgSetuid,
		ProgSBMount, ProgSBRemount, ProgSBUmount,
		ProgSocketBind, ProgSocketConnect,
	}
}

// AllMaps lists every map name the object must expose.
func AllMaps() []string {
	return []string{
		FileOpenAllowed, FileOpenDenied, FileOpenAlerts,
		MountAllowed, MountDenied, MountAlerts,
		BindAllowed, BindDenied, BindAlerts,
		Connect4Allowed, Connect4Denied, Connect6Allowed, Connect6Denied, ConnectAlerts,
		SetuidAllowed, SetuidDenied, SetuidAlerts,
		ExecAlerts,
	}
}

// DefaultPinDir is where pinned maps live unless the caller overrides
// it (spec.md §6 "Persisted state").
const DefaultPinDir = "/sys/fs/bpf/sentrywall"
