package cli

import (
	"fmt"

	"github.com/pkg/errors"
)

var errNotTerminal = errors.New("the browser needs an interactive terminal; use `pass-tui ls` or `pass-tui find` from scripts")

type notFoundError struct {
	kind string
	path string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.path)
}

func errNotFound(kind, path string) error {
	return notFoundError{kind: kind, path: path}
}

type noMatchError struct {
	query string
}

func (e noMatchError) Error() string {
	return fmt.Sprintf("no entry matches %q", e.query)
}
