package storetree

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// Extension is the secret-file extension used by pass.
const Extension = ".gpg"

// Item is one row of a recursive directory listing, relative to the store
// root. File paths keep their extension.
type Item struct {
	Path  string
	IsDir bool
}

// Lister produces the recursive listing of a store root.
type Lister interface {
	List(ctx context.Context, root string) ([]Item, error)
}

// Build lists root and constructs a tree from the result.
func Build(ctx context.Context, l Lister, root string) (*Tree, error) {
	items, err := l.List(ctx, root)
	if err != nil {
		var se *ScanError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, &ScanError{Root: root, Err: err}
	}
	t, err := FromListing(items)
	if err != nil {
		var se *ScanError
		if errors.As(err, &se) {
			se.Root = root
		}
		return nil, err
	}
	return t, nil
}

// FromListing builds a tree from a listing. Items are attached in the order
// given, so a lexically sorted listing yields lexically ordered children.
// Directories implied by a file path but absent from the listing are created.
func FromListing(items []Item) (*Tree, error) {
	t := newTree()
	for _, it := range items {
		segs, err := cleanSegments(it.Path)
		if err != nil {
			return nil, &ScanError{Err: err}
		}
		if len(segs) == 0 {
			continue
		}
		if it.IsDir {
			t.ensureCategory(segs, false)
			continue
		}
		name := segs[len(segs)-1]
		if !strings.HasSuffix(name, Extension) || name == Extension {
			continue
		}
		name = strings.TrimSuffix(name, Extension)
		parent := t.ensureCategory(segs[:len(segs)-1], false)
		if _, dup := parent.entries[name]; dup {
			continue
		}
		t.attach(parent, t.newNode(KindEntry, name, parent), false)
	}
	return t, nil
}

func cleanSegments(path string) ([]string, error) {
	path = strings.ReplaceAll(path, "\\", "/")
	if strings.HasPrefix(path, "/") {
		return nil, errors.Errorf("absolute path in listing: %q", path)
	}
	path = strings.TrimSuffix(path, "/")
	if path == "" || path == "." {
		return nil, nil
	}
	segs := strings.Split(path, "/")
	for _, s := range segs {
		switch s {
		case "", ".", "..":
			return nil, errors.Errorf("invalid path segment in listing: %q", path)
		}
	}
	return segs, nil
}
