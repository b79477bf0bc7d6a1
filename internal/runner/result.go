package runner

import "time"

// Result holds the outcome of a command execution.
//
// Exactly one of Exited, Signaled and Stopped describes how the child
// left the running state, following POSIX wait-status semantics.
type Result struct {
	RunID    string        // unique identifier for this run
	Argv     []string      // the command that was run
	Duration time.Duration // wall time from spawn to reap

	Exited     bool // child terminated normally
	ExitStatus int  // exit code, valid when Exited
	Signaled   bool // child was terminated by a signal
	TermSignal int  // terminating signal, valid when Signaled
	CoreDumped bool // a core file was produced
	Stopped    bool // child is stopped (only with job control)
	StopSignal int  // signal that stopped the child
	Continued  bool // child was resumed by SIGCONT

	Stdout          []byte // captured stdout (may be truncated)
	Stderr          []byte // captured stderr (may be truncated)
	StdoutTruncated bool   // true if stdout exceeded the size cap
	StderrTruncated bool   // true if stderr exceeded the size cap
}

// Success reports whether the child exited normally with status 0.
func (r *Result) Success() bool {
	return r.Exited && r.ExitStatus == 0
}

// Truncated reports whether either captured stream hit the size cap.
func (r *Result) Truncated() bool {
	return r.StdoutTruncated || r.StderrTruncated
}

// Code folds the wait status into a single shell-style exit code:
// the exit status for a normal exit, 128+signal for a signaled child.
func (r *Result) Code() int {
	switch {
	case r.Exited:
		return r.ExitStatus
	case r.Signaled:
		return 128 + r.TermSignal
	case r.Stopped:
		return 128 + r.StopSignal
	}
	return 1
}
