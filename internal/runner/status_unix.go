//go:build linux || darwin

package runner

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// decodeStatus copies the raw wait status of a reaped child into res.
func decodeStatus(ps *os.ProcessState, res *Result) {
	ws, ok := ps.Sys().(syscall.WaitStatus)
	if !ok {
		res.Exited = ps.Exited()
		res.ExitStatus = ps.ExitCode()
		return
	}

	st := unix.WaitStatus(ws)
	res.Exited = st.Exited()
	if res.Exited {
		res.ExitStatus = st.ExitStatus()
	}
	res.Signaled = st.Signaled()
	if res.Signaled {
		res.TermSignal = int(st.Signal())
		res.CoreDumped = st.CoreDump()
	}
	res.Stopped = st.Stopped()
	if res.Stopped {
		res.StopSignal = int(st.StopSignal())
	}
	res.Continued = st.Continued()
}
