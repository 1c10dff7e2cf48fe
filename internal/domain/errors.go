package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCredentials = errors.New("credentials not available")
	ErrMissingLocalFile   = errors.New("local file not found")
	ErrArtifactExists     = errors.New("artifact already exists")
	ErrInvalidTarget      = errors.New("invalid backup target")
)

// ExternalToolError reports a dump or archive tool that exited non-zero.
type ExternalToolError struct {
	Tool   string
	Output string
	Err    error
}

func (e *ExternalToolError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s failed: %v, output: %s", e.Tool, e.Err, e.Output)
	}
	return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

// RemoteServiceError wraps any transport failure returned by the object store.
type RemoteServiceError struct {
	Op  string
	Key string
	Err error
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }
