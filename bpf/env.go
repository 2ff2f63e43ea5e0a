package bpf

import (
	"fmt"
	"os"
	"strings"

	"github.com/moby/sys/mountinfo"
)

// lsmListPath is the standard OS location listing active security
// modules (spec.md §6 "A host kernel with programmable-LSM support
// enabled; detection reads the known OS text file exposing active
// security modules and checks for the expected token").
const lsmListPath = "/sys/kernel/security/lsm"

// btfPath is the standard OS location of the running kernel's BTF,
// used to resolve field offsets at program load time (spec.md §6).
const btfPath = "/sys/kernel/btf/vmlinux"

// bpfLSMToken is the name the "bpf" LSM registers itself under in
// lsmListPath's comma-separated list.
const bpfLSMToken = "bpf"

// EnvironmentError reports a failed precondition check (spec.md §7
// "Environment: ... Fatal at init").
type EnvironmentError struct {
	Check string
	Err   error
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("bpf: environment check %q failed: %v", e.Check, e.Err)
}

func (e *EnvironmentError) Unwrap() error { return e.Err }

// CheckLSMEnabled verifies the running kernel has the programmable BPF
// LSM backend active.
func CheckLSMEnabled() error {
	data, err := os.ReadFile(lsmListPath)
	if err != nil {
		return &EnvironmentError{Check: "lsm", Err: fmt.Errorf("read %s: %w", lsmListPath, err)}
	}
	for _, tok := range strings.Split(strings.TrimSpace(string(data)), ",") {
		if tok == bpfLSMToken {
			return nil
		}
	}
	return &EnvironmentError{Check: "lsm", Err: fmt.Errorf("%q not present in %s (got %q)", bpfLSMToken, lsmListPath, data)}
}

// CheckBTFAvailable verifies a type-info source is readable, needed to
// resolve field offsets when the object is loaded.
func CheckBTFAvailable() error {
	if _, err := os.Stat(btfPath); err != nil {
		return &EnvironmentError{Check: "btf", Err: fmt.Errorf("stat %s: %w", btfPath, err)}
	}
	return nil
}

// CheckPinDirMounted verifies pinDir sits on a bpffs mount, so pins
// placed there are process-independent (spec.md §3 "Lifecycle":
// "Policy maps are pinned: they outlive the user-space process").
// Filesystem mounting of the pseudo-filesystem itself is assumed
// already done by the host (spec.md §1 Non-goals); this only verifies
// that assumption held.
func CheckPinDirMounted(pinDir string) error {
	// pinDir is commonly a subdirectory of the bpffs mount point rather
	// than the mount point itself, so every mount is scanned for a
	// "bpf"-type filesystem whose target prefixes pinDir, rather than
	// looking pinDir up as an exact mount entry.
	mounts, err := mountinfo.GetMounts()
	if err != nil {
		return &EnvironmentError{Check: "pin-dir", Err: err}
	}
	for _, m := range mounts {
		if m.FSType == "bpf" && strings.HasPrefix(pinDir, m.Mountpoint) {
			return nil
		}
	}
	return &EnvironmentError{Check: "pin-dir", Err: fmt.Errorf("%s is not on a bpffs mount", pinDir)}
}

// CheckEnvironment runs every precondition check, matching spec.md §6
// "Preconditions (detected and surfaced as init failures)".
func CheckEnvironment(pinDir string) error {
	if err := CheckLSMEnabled(); err != nil {
		return err
	}
	if err := CheckBTFAvailable(); err != nil {
		return err
	}
	return CheckPinDirMounted(pinDir)
}
