package runner

import "fmt"

// SpawnError is returned when the child process could not be started.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("executing %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ExitCode implements the exit-code contract used by cmd/eo.
func (e *SpawnError) ExitCode() int { return 1 }

// PipeError is returned when a stdout or stderr pipe could not be created.
type PipeError struct {
	Stream string // "stdout" or "stderr"
	Err    error
}

func (e *PipeError) Error() string {
	return fmt.Sprintf("creating %s pipe: %v", e.Stream, e.Err)
}

func (e *PipeError) Unwrap() error { return e.Err }

func (e *PipeError) ExitCode() int { return 1 }

// ReadError is returned when draining a child's output stream fails.
// The child has been reaped by the time it is returned.
type ReadError struct {
	Stream string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading child's %s: %v", e.Stream, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

func (e *ReadError) ExitCode() int { return 1 }
