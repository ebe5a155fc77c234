package storetree

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrStoreUnreadable is returned by listers when the store root is missing
	// or cannot be read.
	ErrStoreUnreadable = errors.New("password store unreadable")

	// ErrInconsistent means an optimistic patch could not be applied; the
	// caller should rebuild the tree from a fresh scan.
	ErrInconsistent = errors.New("tree out of sync with store")
)

// ScanError wraps any failure to build a tree from the store.
type ScanError struct {
	Root string
	Err  error
}

func (e *ScanError) Error() string {
	if e.Root == "" {
		return fmt.Sprintf("scan store: %v", e.Err)
	}
	return fmt.Sprintf("scan store %s: %v", e.Root, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

func inconsistent(format string, args ...any) error {
	return errors.Wrapf(ErrInconsistent, format, args...)
}
