// Package storefs lists a password store directory for storetree.
package storefs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"pass-tui/internal/storetree"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Always skipped: pass metadata and the store's own git repository.
var builtinIgnores = []string{".git", ".gpg-id", ".extensions"}

type Lister struct {
	// Ignore holds doublestar patterns matched against store-relative,
	// '/'-separated paths (e.g. "archive/**", "**/*.old.gpg").
	Ignore []string
	Log    *zap.Logger
}

// List walks root in lexical order and returns every directory plus every
// secret file.
func (l Lister) List(ctx context.Context, root string) ([]storetree.Item, error) {
	root = filepath.Clean(root)
	st, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(storetree.ErrStoreUnreadable, err.Error())
	}
	if !st.IsDir() {
		return nil, errors.Wrapf(storetree.ErrStoreUnreadable, "%s is not a directory", root)
	}

	for _, p := range l.Ignore {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid ignore pattern %q", p)
		}
	}

	var items []storetree.Item
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return errors.Wrap(storetree.ErrStoreUnreadable, err.Error())
			}
			// Unreadable subdirectories are skipped rather than failing the scan.
			l.logger().Debug("skip unreadable path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if l.ignored(d.Name(), rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			items = append(items, storetree.Item{Path: rel, IsDir: true})
			return nil
		}
		if d.Type().IsRegular() && strings.HasSuffix(d.Name(), storetree.Extension) {
			items = append(items, storetree.Item{Path: rel})
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	l.logger().Debug("store listed", zap.String("root", root), zap.Int("items", len(items)))
	return items, nil
}

func (l Lister) ignored(name, rel string) bool {
	for _, b := range builtinIgnores {
		if name == b {
			return true
		}
	}
	for _, p := range l.Ignore {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func (l Lister) logger() *zap.Logger {
	if l.Log == nil {
		return zap.NewNop()
	}
	return l.Log
}
