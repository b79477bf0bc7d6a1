package toolchain

import (
	"context"
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/nelson137/dot/internal/lang"
	"github.com/nelson137/dot/internal/runner"
)

// Asm assembles with nasm and links with ld.
type Asm struct {
	Nasm   string
	Format string
	Args   []string
	Ld     string
}

func (b *Asm) Language() lang.Language { return lang.Assembly }

func (b *Asm) Plan(_ context.Context, _ bool, a Artifacts) ([]Command, error) {
	nasm := []string{b.Nasm, "-f", b.Format}
	nasm = append(nasm, b.Args...)
	nasm = append(nasm, a.Source, "-o", a.Object)

	return []Command{
		{Step: StepAssemble, Argv: nasm},
		{Step: StepLink, Argv: []string{b.Ld, a.Object, "-o", a.Binary}},
	}, nil
}

// C compiles with a C compiler, adding the flags reported by pkg-config
// for Packages.
type C struct {
	CC        string
	Args      []string
	Libs      []string
	PkgConfig string
	Packages  []string
	Runner    CommandRunner
}

func (b *C) Language() lang.Language { return lang.C }

func (b *C) Plan(ctx context.Context, dryRun bool, a Artifacts) ([]Command, error) {
	argv := []string{b.CC}
	argv = append(argv, b.Args...)
	argv = append(argv, a.Source, "-o", a.Binary)
	argv = append(argv, b.Libs...)

	if len(b.Packages) == 0 {
		return []Command{{Step: StepCompile, Argv: argv}}, nil
	}

	query := b.queryArgv()
	if dryRun {
		// The query only reads, but a dry run must not depend on the
		// toolchain being installed. Show it instead.
		argv = append(argv, "$("+strings.Join(query, " ")+")")
		return []Command{
			{Step: StepQuery, Argv: query},
			{Step: StepCompile, Argv: argv},
		}, nil
	}

	flags, err := b.queryFlags(ctx, query)
	if err != nil {
		return nil, err
	}
	argv = append(argv, flags...)
	return []Command{{Step: StepCompile, Argv: argv}}, nil
}

func (b *C) queryArgv() []string {
	argv := []string{b.PkgConfig, "--cflags", "--libs"}
	return append(argv, b.Packages...)
}

// queryFlags runs pkg-config and splits its output with shell quoting
// rules, which is how pkg-config escapes flags containing spaces.
func (b *C) queryFlags(ctx context.Context, query []string) ([]string, error) {
	res, err := b.Runner.Run(ctx, query, runner.Options{Capture: true})
	if err != nil {
		return nil, fmt.Errorf("querying flags for %s: %w", strings.Join(b.Packages, " "), err)
	}
	if !res.Success() {
		return nil, &QueryError{Argv: query, Packages: b.Packages, Result: res}
	}
	return SplitFlags(string(res.Stdout))
}

// SplitFlags splits a pkg-config style flag line into arguments. One
// trailing newline is dropped first.
func SplitFlags(out string) ([]string, error) {
	out = strings.TrimSuffix(out, "\n")
	flags, err := shellwords.Parse(out)
	if err != nil {
		return nil, fmt.Errorf("splitting flags %q: %w", out, err)
	}
	return flags, nil
}

// Cpp compiles with a C++ compiler.
type Cpp struct {
	CXX  string
	Args []string
	Libs []string
}

func (b *Cpp) Language() lang.Language { return lang.Cpp }

func (b *Cpp) Plan(_ context.Context, _ bool, a Artifacts) ([]Command, error) {
	argv := []string{b.CXX}
	argv = append(argv, b.Args...)
	argv = append(argv, a.Source, "-o", a.Binary)
	argv = append(argv, b.Libs...)
	return []Command{{Step: StepCompile, Argv: argv}}, nil
}

// QueryError is returned when the flag query does not exit cleanly.
type QueryError struct {
	Argv     []string
	Packages []string
	Result   *runner.Result
}

func (e *QueryError) Error() string {
	msg := fmt.Sprintf("could not get flags for %s", strings.Join(e.Packages, " "))
	if e.Result.Signaled {
		msg += fmt.Sprintf(" (%s killed by signal %d)", e.Argv[0], e.Result.TermSignal)
	} else {
		msg += fmt.Sprintf(" (%s exited with status %d)", e.Argv[0], e.Result.ExitStatus)
	}
	if stderr := strings.TrimSpace(string(e.Result.Stderr)); stderr != "" {
		msg += ":\n" + stderr
	}
	return msg
}

// ExitCode returns the query's own status, or 1 when it has none.
func (e *QueryError) ExitCode() int {
	if e.Result.Exited && e.Result.ExitStatus != 0 {
		return e.Result.ExitStatus
	}
	return 1
}
