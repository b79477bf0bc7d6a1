//go:build !linux && !darwin

package runner

import "os"

// decodeStatus falls back to the portable view of the exit status.
func decodeStatus(ps *os.ProcessState, res *Result) {
	res.Exited = ps.Exited()
	res.ExitStatus = ps.ExitCode()
	if !res.Exited {
		// Killed by something the portable API cannot name.
		res.Signaled = true
	}
}
