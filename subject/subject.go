// Package subject implements C3: the bidirectional mapping between an
// executable's path and the inode identifier the kernel side compares
// against. The kernel never resolves paths — that only ever happens
// here, in user space.
package subject

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/sentrywall/sentrywall/wire"
)

// All is the wildcard subject: "applies to every executable".
const All = wire.WildcardSubject

// Resolver holds the inode→path mapping in process memory only and is
// never persisted. It is filled by ResolvePath and Remember; it is not
// rebuilt from the policy maps on restart, so inodes registered by an
// earlier process resolve to the numeric fallback (see ResolveInode)
// until their paths are resolved again.
//
// Concurrent callers share one Resolver guarded by a single mutex,
// matching the teacher's nodefs.Inode convention of one mutex per
// shared mutable structure, never held across a suspension point.
type Resolver struct {
	mu      sync.Mutex
	byInode map[uint64]string
}

// New returns an empty resolver.
func New() *Resolver {
	return &Resolver{byInode: make(map[uint64]string)}
}

// ResolvePath returns the inode for a concrete executable path,
// obtained from the filesystem, and remembers the binding for later
// ResolveInode calls. The wildcard path "" resolves to All without
// touching the filesystem.
//
// ResolvePath is idempotent for a stable file: stat-ing the same path
// repeatedly yields the same inode as long as the file is not replaced.
func (r *Resolver) ResolvePath(path string) (uint64, error) {
	if path == "" {
		return All, nil
	}
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, fmt.Errorf("subject: resolve %q: %w", path, err)
	}
	inode := uint64(st.Ino)
	if inode == All {
		// Asserted per spec §9 "map key 0 is overloaded": no real file
		// should ever present as inode 0.
		return 0, fmt.Errorf("subject: %q resolved to reserved inode 0", path)
	}
	r.mu.Lock()
	r.byInode[inode] = path
	r.mu.Unlock()
	return inode, nil
}

// ResolveInode returns the best-known path for an inode: the
// wildcard subject for All, the last path registered for this inode
// if one was, or a numeric fallback ("#<inode>") if the inode was
// never seen by this process.
//
// This is best-effort, not authoritative: a file can be replaced,
// causing the kernel to reuse its old inode number for a different
// file, after which the remembered path is stale until the subject is
// re-registered (spec §9 "Inode identity is not a stable subject
// identity").
func (r *Resolver) ResolveInode(inode uint64) string {
	if inode == All {
		return ""
	}
	r.mu.Lock()
	path, ok := r.byInode[inode]
	r.mu.Unlock()
	if !ok {
		return fmt.Sprintf("#%d", inode)
	}
	return path
}

// Remember records an (inode, path) binding learned from elsewhere
// without re-statting the filesystem.
func (r *Resolver) Remember(inode uint64, path string) {
	if inode == All {
		return
	}
	r.mu.Lock()
	r.byInode[inode] = path
	r.mu.Unlock()
}

// statSelf is used by callers that need "the inode of this very
// process' own image" for tests and examples, mirroring how the
// kernel side obtains the current task's executable inode.
func statSelf() (uint64, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("subject: resolve self: %w", err)
	}
	var st unix.Stat_t
	if err := unix.Stat(exe, &st); err != nil {
		return 0, fmt.Errorf("subject: stat self: %w", err)
	}
	return uint64(st.Ino), nil
}

// Self returns the image inode of the currently running process.
func Self() (uint64, error) {
	return statSelf()
}
