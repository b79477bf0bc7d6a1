package workflow

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/nelson137/dot/internal/runner"
)

// LanguageError is returned when no backend matches the source file.
type LanguageError struct {
	Source   string
	Language string // the forced name, empty when the extension decided
}

func (e *LanguageError) Error() string {
	if e.Language != "" {
		return fmt.Sprintf("language not recognized: %s", e.Language)
	}
	return fmt.Sprintf("could not determine language of file: %s", e.Source)
}

func (e *LanguageError) ExitCode() int { return 1 }

// InterruptedError is returned when the run is cancelled while waiting
// on the user, typically by SIGINT.
type InterruptedError struct {
	Err error
}

func (e *InterruptedError) Error() string { return "interrupted" }

func (e *InterruptedError) Unwrap() error { return e.Err }

// ExitCode follows the shell convention for SIGINT.
func (e *InterruptedError) ExitCode() int { return 130 }

// CompileError is returned when a toolchain command does not exit
// cleanly. It carries the command's captured stderr.
type CompileError struct {
	Step   string
	Argv   []string
	Result *runner.Result
}

func (e *CompileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed: ", e.Step)
	if e.Result.Signaled {
		fmt.Fprintf(&b, "%s killed by signal %d", e.Argv[0], e.Result.TermSignal)
	} else {
		fmt.Fprintf(&b, "%s exited with status %d", e.Argv[0], e.Result.ExitStatus)
	}
	if stderr := strings.TrimSpace(string(e.Result.Stderr)); stderr != "" {
		b.WriteString(":\n")
		b.WriteString(stderr)
	}
	return b.String()
}

// ExitCode is the compiler's exit status, or 1 when it did not exit
// with a usable one.
func (e *CompileError) ExitCode() int {
	if e.Result.Exited && e.Result.ExitStatus != 0 {
		return e.Result.ExitStatus
	}
	return 1
}

// RemoveError is returned when the binary cannot be deleted.
type RemoveError struct {
	Path string
	Err  error
}

func (e *RemoveError) Error() string {
	return fmt.Sprintf("could not remove %s: %v", e.Path, e.Err)
}

func (e *RemoveError) Unwrap() error { return e.Err }

func (e *RemoveError) ExitCode() int { return 1 }

// toolInfo holds install hints for a toolchain executable.
type toolInfo struct {
	Package string // distribution package that ships it
	Note    string
}

// knownTools maps executable base names to their install hints.
var knownTools = map[string]toolInfo{
	"nasm":       {Package: "nasm"},
	"ld":         {Package: "binutils"},
	"gcc":        {Package: "gcc"},
	"cc":         {Package: "gcc"},
	"g++":        {Package: "g++"},
	"c++":        {Package: "g++"},
	"clang":      {Package: "clang"},
	"clang++":    {Package: "clang"},
	"pkg-config": {Package: "pkg-config", Note: "the C backend also needs the python3 development files (python3-dev)"},
}

// ToolUnavailableError is returned when a toolchain executable cannot be
// started because it is not installed.
type ToolUnavailableError struct {
	Path string
	Err  error
	Info *toolInfo
}

func newToolUnavailableError(path string, err error) *ToolUnavailableError {
	e := &ToolUnavailableError{Path: path, Err: err}
	if info, ok := knownTools[filepath.Base(path)]; ok {
		e.Info = &info
	}
	return e
}

func (e *ToolUnavailableError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is required but not installed.", e.Path)
	if e.Info == nil {
		return b.String()
	}
	fmt.Fprintf(&b, "\n\nInstall the %q package, or point eo at another executable in %s.", e.Info.Package, ".eo.yaml")
	if e.Info.Note != "" {
		fmt.Fprintf(&b, "\nNote: %s.", e.Info.Note)
	}
	return b.String()
}

func (e *ToolUnavailableError) Unwrap() error { return e.Err }

func (e *ToolUnavailableError) ExitCode() int { return 1 }

// toolError turns a spawn failure of a missing executable into a
// ToolUnavailableError and leaves other errors alone.
func toolError(err error) error {
	var spawnErr *runner.SpawnError
	if !errors.As(err, &spawnErr) {
		return err
	}
	if errors.Is(spawnErr.Err, exec.ErrNotFound) || errors.Is(spawnErr.Err, fs.ErrNotExist) {
		return newToolUnavailableError(spawnErr.Path, err)
	}
	return err
}
