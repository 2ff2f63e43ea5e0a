package controller

import (
	"path/filepath"
	"strings"

	"github.com/sentrywall/sentrywall/decision"
	"github.com/sentrywall/sentrywall/subject"
)

// FSParentLookup answers decision.ParentLookup by resolving an inode's
// best-known path through Resolver and stat-ing its parent directory.
// It is the user-space stand-in for the dentry walk a real BPF LSM
// program performs natively against the kernel's own directory cache;
// the software engine and simulate command use it in place of that.
type FSParentLookup struct {
	Resolver *subject.Resolver
}

var _ decision.ParentLookup = FSParentLookup{}

// ParentInode resolves inode's parent by resolving its path and
// stat-ing the containing directory. It reports !ok for an unknown
// inode, the filesystem root, or a path the resolver has never seen.
func (f FSParentLookup) ParentInode(inode uint64) (uint64, bool) {
	path := f.Resolver.ResolveInode(inode)
	if path == "" || strings.HasPrefix(path, "#") {
		return 0, false
	}
	parent := filepath.Dir(path)
	if parent == path {
		return 0, false
	}
	parentInode, err := f.Resolver.ResolvePath(parent)
	if err != nil {
		return 0, false
	}
	return parentInode, true
}
