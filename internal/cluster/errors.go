// Copyright Contributors to the SeaClaw Platform project

package cluster

import (
	"errors"
	"fmt"
)

// Sentinel errors every facade verb normalizes to. Callers decide policy;
// the facade never retries.
var (
	// ErrAlreadyExists reports a name collision in the cluster.
	ErrAlreadyExists = errors.New("object already exists")
	// ErrNotFound reports a missing object.
	ErrNotFound = errors.New("object not found")
	// ErrUnavailable reports that no cluster configuration could be
	// resolved at startup (standalone mode).
	ErrUnavailable = errors.New("cluster not available")
)

// TransientError carries the API server's reason for any failure that is
// neither a name collision nor a missing object.
type TransientError struct {
	Reason string
	Err    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("cluster request failed: %s", e.Reason)
}

func (e *TransientError) Unwrap() error { return e.Err }
