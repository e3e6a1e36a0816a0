package registry

import (
	"errors"
	"fmt"
)

// Caller errors. Both are returned wrapped with the offending identity so
// errors.Is works on the sentinel.
var (
	ErrUnknownIdentity   = errors.New("unknown identity")
	ErrDuplicateIdentity = errors.New("duplicate identity")
)

// SpawnError wraps a pty/exec failure for one start attempt. The attempt
// fails; nothing is registered as live.
type SpawnError struct {
	ID  string
	Err error
}

func (e *SpawnError) Error() string { return fmt.Sprintf("spawn %s: %v", e.ID, e.Err) }
func (e *SpawnError) Unwrap() error { return e.Err }

// PersistenceError wraps a store load/save failure. It is logged and the
// registry degrades to in-memory operation; it never crashes the daemon.
type PersistenceError struct {
	Op  string // "load" or "save"
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persist (%s): %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }
