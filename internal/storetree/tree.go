// Package storetree holds the in-memory index of a password store: categories
// (directories) and entries (encrypted secret files), mirrored from a
// directory listing without touching any secret content.
package storetree

import (
	"sort"
	"strings"
)

type Kind int

const (
	KindCategory Kind = iota
	KindEntry
)

func (k Kind) String() string {
	if k == KindEntry {
		return "entry"
	}
	return "category"
}

// Node is either a category or an entry. Parent is a back reference only; the
// Tree owns every node.
type Node struct {
	id     uint64
	kind   Kind
	name   string
	path   string
	parent *Node

	// Category-only fields. children keeps insertion (lexical) order; the two
	// maps give O(1) lookup per path segment. An entry and a category may share
	// a name ("email.gpg" next to "email/"), hence separate maps.
	children []*Node
	dirs     map[string]*Node
	entries  map[string]*Node
}

func (n *Node) ID() uint64 { return n.id }
func (n *Node) Kind() Kind { return n.kind }
func (n *Node) Name() string { return n.name }
func (n *Node) Path() string { return n.path }
func (n *Node) Parent() *Node { return n.parent }
func (n *Node) IsEntry() bool { return n.kind == KindEntry }
func (n *Node) IsRoot() bool { return n.parent == nil }
func (n *Node) IsCategory() bool { return n.kind == KindCategory }

// Children returns a copy of the category's children in insertion order.
func (n *Node) Children() []*Node {
	if n == nil || n.kind != KindCategory {
		return nil
	}
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// EntryCount counts entries below n (n itself when n is an entry).
func (n *Node) EntryCount() int {
	if n == nil {
		return 0
	}
	if n.kind == KindEntry {
		return 1
	}
	total := 0
	for _, ch := range n.children {
		total += ch.EntryCount()
	}
	return total
}

type Tree struct {
	root   *Node
	nextID uint64
}

func newTree() *Tree {
	t := &Tree{}
	t.root = t.newNode(KindCategory, "", nil)
	return t
}

func (t *Tree) newNode(kind Kind, name string, parent *Node) *Node {
	t.nextID++
	n := &Node{id: t.nextID, kind: kind, name: name, parent: parent}
	if parent != nil {
		n.path = joinPath(parent.path, name)
	}
	if kind == KindCategory {
		n.dirs = map[string]*Node{}
		n.entries = map[string]*Node{}
	}
	return n
}

func (t *Tree) Root() *Node { return t.root }

// Find resolves a relative path. An entry wins over a category of the same
// name; use FindEntry/FindCategory to disambiguate. The empty path is the root.
func (t *Tree) Find(path string) (*Node, bool) {
	if n, ok := t.FindEntry(path); ok {
		return n, true
	}
	return t.FindCategory(path)
}

func (t *Tree) FindEntry(path string) (*Node, bool) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, false
	}
	parent, ok := t.walk(segs[:len(segs)-1])
	if !ok {
		return nil, false
	}
	n, ok := parent.entries[segs[len(segs)-1]]
	return n, ok
}

func (t *Tree) FindCategory(path string) (*Node, bool) {
	return t.walk(splitPath(path))
}

func (t *Tree) walk(segs []string) (*Node, bool) {
	cur := t.root
	for _, s := range segs {
		next, ok := cur.dirs[s]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Children returns the ordered children of a category, or nil for entries.
func (t *Tree) Children(category *Node) []*Node {
	return category.Children()
}

// Entries returns every entry in depth-first insertion order.
func (t *Tree) Entries() []*Node {
	var out []*Node
	var visit func(n *Node)
	visit = func(n *Node) {
		for _, ch := range n.children {
			if ch.kind == KindEntry {
				out = append(out, ch)
				continue
			}
			visit(ch)
		}
	}
	visit(t.root)
	return out
}

// Len is the number of entries in the tree.
func (t *Tree) Len() int { return t.root.EntryCount() }

// attach inserts child into parent. With sorted=true the child goes to its
// lexical position (used by patches); otherwise it is appended (used while
// building, where the listing order already is lexical).
func (t *Tree) attach(parent, child *Node, sorted bool) {
	child.parent = parent
	child.path = joinPath(parent.path, child.name)
	if child.kind == KindCategory {
		parent.dirs[child.name] = child
		reparent(child)
	} else {
		parent.entries[child.name] = child
	}
	if !sorted {
		parent.children = append(parent.children, child)
		return
	}
	key := sortKey(child)
	idx := sort.Search(len(parent.children), func(i int) bool {
		return sortKey(parent.children[i]) > key
	})
	parent.children = append(parent.children, nil)
	copy(parent.children[idx+1:], parent.children[idx:])
	parent.children[idx] = child
}

func (t *Tree) detach(n *Node) {
	p := n.parent
	if p == nil {
		return
	}
	if n.kind == KindCategory {
		delete(p.dirs, n.name)
	} else {
		delete(p.entries, n.name)
	}
	for i, ch := range p.children {
		if ch == n {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// ensureCategory walks segs from the root creating missing categories.
func (t *Tree) ensureCategory(segs []string, sorted bool) *Node {
	cur := t.root
	for _, s := range segs {
		next, ok := cur.dirs[s]
		if !ok {
			next = t.newNode(KindCategory, s, cur)
			t.attach(cur, next, sorted)
		}
		cur = next
	}
	return cur
}

// reparent recomputes descendant paths after a category moved.
func reparent(n *Node) {
	for _, ch := range n.children {
		ch.path = joinPath(n.path, ch.name)
		if ch.kind == KindCategory {
			reparent(ch)
		}
	}
}

// sortKey orders the way a directory listing of the store does: by file name,
// where entries carry their extension.
func sortKey(n *Node) string {
	if n.kind == KindEntry {
		return n.name + Extension
	}
	return n.name
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

func splitPath(path string) []string {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// ParentPath returns the parent of a '/'-joined path ("" for top-level paths).
func ParentPath(path string) string {
	path = strings.Trim(path, "/")
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

// BaseName returns the last segment of a '/'-joined path.
func BaseName(path string) string {
	path = strings.Trim(path, "/")
	return path[strings.LastIndex(path, "/")+1:]
}
