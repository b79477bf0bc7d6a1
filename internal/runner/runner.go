// Package runner spawns child processes, captures their output within a
// size bound, and decodes their wait status.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Runner executes commands within a workspace boundary.
type Runner struct {
	Workspace string
	Timeout   time.Duration // 0 disables the timeout
	MaxOutput int           // bytes kept per captured stream

	// WaitDelay bounds how long output is still collected after the
	// child is reaped. A descendant that inherited the output pipes can
	// otherwise hold Run open for as long as it lives.
	WaitDelay time.Duration

	// Stdout and Stderr receive the child's output when it is not
	// captured. They default to the process's own stdout and stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// Options control a single Run.
type Options struct {
	// Capture redirects stdout and stderr into the Result. When false
	// the child writes straight to the runner's Stdout and Stderr.
	Capture bool
	// Dir is resolved relative to the workspace and must stay inside it.
	Dir string
	// Stdin is handed to the child. nil means the null device.
	Stdin io.Reader
}

// Run executes argv and blocks until the child has been reaped. The
// first element is the executable (resolved via PATH when it has no
// slash), the rest are its arguments.
//
// A non-zero exit or a terminating signal is not an error: it is
// reported through the Result. Errors are reserved for failures to set
// up, spawn or drain the child.
func (r *Runner) Run(ctx context.Context, argv []string, opts Options) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	dir, err := r.resolveDir(opts.Dir)
	if err != nil {
		return nil, err
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdin = opts.Stdin
	cmd.WaitDelay = r.waitDelay()

	res := &Result{
		RunID: uuid.New().String(),
		Argv:  append([]string(nil), argv...),
	}

	if !opts.Capture {
		cmd.Stdout = r.stdout()
		cmd.Stderr = r.stderr()

		start := time.Now()
		if err := cmd.Start(); err != nil {
			return nil, &SpawnError{Path: argv[0], Err: err}
		}
		if err := r.wait(cmd, argv[0]); err != nil {
			return nil, err
		}
		res.Duration = time.Since(start)
		decodeStatus(cmd.ProcessState, res)
		return res, nil
	}

	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, &PipeError{Stream: "stdout", Err: err}
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		closeAll(outR, outW)
		return nil, &PipeError{Stream: "stderr", Err: err}
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	start := time.Now()
	if err := cmd.Start(); err != nil {
		closeAll(outR, outW, errR, errW)
		return nil, &SpawnError{Path: argv[0], Err: err}
	}

	// The child holds its own copies of the write ends; closing ours
	// lets the drains see EOF once the child exits.
	closeAll(outW, errW)

	maxOutput := r.maxOutput()
	var stdout, stderr bytes.Buffer
	outLW := &limitWriter{buf: &stdout, limit: maxOutput}
	errLW := &limitWriter{buf: &stderr, limit: maxOutput}

	var g errgroup.Group
	g.Go(func() error { return drain("stdout", outLW, outR) })
	g.Go(func() error { return drain("stderr", errLW, errR) })

	waitErr := r.wait(cmd, argv[0])
	res.Duration = time.Since(start)

	readErr := r.awaitDrains(ctx, &g, outR, errR)
	closeAll(outR, errR)

	if waitErr != nil {
		return nil, waitErr
	}
	if readErr != nil {
		return nil, readErr
	}

	decodeStatus(cmd.ProcessState, res)
	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()
	res.StdoutTruncated = outLW.truncated
	res.StderrTruncated = errLW.truncated
	return res, nil
}

// wait reaps the child. An *exec.ExitError only carries the wait status
// and is not treated as a failure.
func (r *Runner) wait(cmd *exec.Cmd, name string) error {
	err := cmd.Wait()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) || errors.Is(err, exec.ErrWaitDelay) {
		return nil
	}
	if cmd.ProcessState != nil {
		// Reaped, but copying to a non-file writer failed.
		return &ReadError{Stream: "output", Err: err}
	}
	return fmt.Errorf("waiting for %s: %w", name, err)
}

// awaitDrains waits for both drains once the child is reaped. A
// descendant may still hold the write ends, so after WaitDelay (or at
// once when ctx is done) the read ends are closed and whatever was read
// so far is kept.
func (r *Runner) awaitDrains(ctx context.Context, g *errgroup.Group, readEnds ...*os.File) error {
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	if ctx.Err() == nil {
		timer := time.NewTimer(r.waitDelay())
		defer timer.Stop()
		select {
		case err := <-done:
			return err
		case <-timer.C:
		case <-ctx.Done():
		}
	}
	closeAll(readEnds...)
	<-done
	return nil
}

func drain(stream string, w io.Writer, r io.Reader) error {
	if _, err := io.Copy(w, r); err != nil {
		return &ReadError{Stream: stream, Err: err}
	}
	return nil
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}

// DefaultMaxOutput is used when MaxOutput is not set.
const DefaultMaxOutput = 1 << 20 // 1 MB

// DefaultWaitDelay is used when WaitDelay is not set.
const DefaultWaitDelay = time.Second

func (r *Runner) waitDelay() time.Duration {
	if r.WaitDelay > 0 {
		return r.WaitDelay
	}
	return DefaultWaitDelay
}

func (r *Runner) maxOutput() int {
	if r.MaxOutput > 0 {
		return r.MaxOutput
	}
	return DefaultMaxOutput
}

// resolveDir resolves cwd relative to the workspace and validates it
// is within the workspace boundary.
func (r *Runner) resolveDir(cwd string) (string, error) {
	if cwd == "" {
		return r.Workspace, nil
	}

	var dir string
	if filepath.IsAbs(cwd) || r.Workspace == "" {
		dir = filepath.Clean(cwd)
	} else {
		dir = filepath.Clean(filepath.Join(r.Workspace, cwd))
	}
	if r.Workspace == "" {
		return dir, nil
	}

	// Ensure dir is within workspace.
	rel, err := filepath.Rel(r.Workspace, dir)
	if err != nil {
		return "", fmt.Errorf("resolving cwd: %w", err)
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("cwd %q is outside workspace %q", cwd, r.Workspace)
	}
	return dir, nil
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf       *bytes.Buffer
	limit     int
	truncated bool
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		if len(p) > 0 {
			w.truncated = true
		}
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// so the child never blocks on a full pipe.
		w.buf.Write(p[:remaining])
		w.truncated = true
		return len(p), nil
	}
	return w.buf.Write(p)
}
