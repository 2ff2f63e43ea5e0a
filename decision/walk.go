package decision

// MaxPathDepth bounds the directory-ancestry walk performed for
// file-open's path-containment extension (spec.md §4.4 Step D), so the
// walk is statically known to terminate.
const MaxPathDepth = 16

// ParentLookup resolves the parent directory inode of a given inode.
// ok is false at the filesystem root or when the parent is unknown.
//
// Implementations must be cheap and non-blocking enough to run on
// every file-open decision; in production this is backed by the same
// dentry-walk the kernel program performs natively, modeled here for
// the software engine and for tests.
type ParentLookup interface {
	ParentInode(inode uint64) (parent uint64, ok bool)
}

// ParentLookupFunc adapts a function to ParentLookup.
type ParentLookupFunc func(inode uint64) (uint64, bool)

func (f ParentLookupFunc) ParentInode(inode uint64) (uint64, bool) {
	return f(inode)
}

// WalkAncestors returns up to MaxPathDepth ancestor directory inodes of
// start, closest-first. The walk stops on a null parent, a self-loop
// (parent == current, guarding against a cyclic directory graph) or
// after MaxPathDepth steps (spec.md §4.4 Step D, §8 boundary property).
func WalkAncestors(lookup ParentLookup, start uint64) []uint64 {
	ancestors := make([]uint64, 0, MaxPathDepth)
	cur := start
	for i := 0; i < MaxPathDepth; i++ {
		parent, ok := lookup.ParentInode(cur)
		if !ok || parent == 0 || parent == cur {
			break
		}
		ancestors = append(ancestors, parent)
		cur = parent
	}
	return ancestors
}
