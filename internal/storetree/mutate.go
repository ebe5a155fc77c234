package storetree

import "strings"

// ApplyRename moves the node at oldPath (entry preferred, as Find) to newPath
// after `pass mv` succeeded. Missing intermediate categories are created and
// categories left empty are pruned. The node keeps its ID.
func (t *Tree) ApplyRename(oldPath, newPath string) error {
	n, ok := t.Find(oldPath)
	if !ok || n.IsRoot() {
		return inconsistent("rename: %q not in tree", oldPath)
	}
	return t.rename(n, newPath)
}

// ApplyCategoryRename is ApplyRename for a category that shares its name with
// an entry.
func (t *Tree) ApplyCategoryRename(oldPath, newPath string) error {
	n, ok := t.FindCategory(oldPath)
	if !ok || n.IsRoot() {
		return inconsistent("rename: category %q not in tree", oldPath)
	}
	return t.rename(n, newPath)
}

func (t *Tree) rename(n *Node, newPath string) error {
	segs, err := cleanSegments(newPath)
	if err != nil || len(segs) == 0 {
		return inconsistent("rename: invalid target %q", newPath)
	}
	target := strings.Join(segs, "/")
	if target == n.path {
		return nil
	}
	if n.kind == KindCategory && strings.HasPrefix(target+"/", n.path+"/") {
		return inconsistent("rename: %q into itself", n.path)
	}
	if n.kind == KindEntry {
		if _, exists := t.FindEntry(target); exists {
			return inconsistent("rename: target %q exists", target)
		}
		if _, exists := t.FindCategory(target); exists {
			return inconsistent("rename: target %q is a category", target)
		}
	} else if _, exists := t.FindCategory(target); exists {
		return inconsistent("rename: target %q exists", target)
	}

	oldParent := n.parent
	t.detach(n)
	parent := t.ensureCategory(segs[:len(segs)-1], true)
	n.name = segs[len(segs)-1]
	t.attach(parent, n, true)
	t.prune(oldParent)
	return nil
}

// ApplyRemoval drops the node at path (entry preferred) after `pass rm`
// succeeded, pruning categories left empty.
func (t *Tree) ApplyRemoval(path string) error {
	n, ok := t.Find(path)
	if !ok || n.IsRoot() {
		return inconsistent("remove: %q not in tree", path)
	}
	t.remove(n)
	return nil
}

// ApplyCategoryRemoval removes a whole category subtree.
func (t *Tree) ApplyCategoryRemoval(path string) error {
	n, ok := t.FindCategory(path)
	if !ok || n.IsRoot() {
		return inconsistent("remove: category %q not in tree", path)
	}
	t.remove(n)
	return nil
}

func (t *Tree) remove(n *Node) {
	parent := n.parent
	t.detach(n)
	t.prune(parent)
}

// ApplyInsert records a new entry created by `pass insert` / `pass generate`.
// Inserting an existing entry is a no-op.
func (t *Tree) ApplyInsert(path string) error {
	segs, err := cleanSegments(path)
	if err != nil || len(segs) == 0 {
		return inconsistent("insert: invalid path %q", path)
	}
	parent := t.ensureCategory(segs[:len(segs)-1], true)
	name := segs[len(segs)-1]
	if _, exists := parent.entries[name]; exists {
		return nil
	}
	t.attach(parent, t.newNode(KindEntry, name, parent), true)
	return nil
}

// prune detaches empty categories from n upwards, stopping at the root.
func (t *Tree) prune(n *Node) {
	for n != nil && !n.IsRoot() && len(n.children) == 0 {
		p := n.parent
		t.detach(n)
		n = p
	}
}
