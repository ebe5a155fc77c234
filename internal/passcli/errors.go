package passcli

import "fmt"

// InvocationError means pass could not be started at all (missing binary,
// not executable). It is an environment problem, not a store problem.
type InvocationError struct {
	Bin string
	Err error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("cannot run %s: %v", e.Bin, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }
