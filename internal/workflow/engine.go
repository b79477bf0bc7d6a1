// Package workflow drives a single eo run: it resolves the language,
// names the artifacts, confirms overwrites, then compiles, executes and
// removes as requested. It is consumed by both the CLI and the MCP
// server.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nelson137/dot/internal/cmdline"
	"github.com/nelson137/dot/internal/config"
	"github.com/nelson137/dot/internal/lang"
	"github.com/nelson137/dot/internal/metrics"
	"github.com/nelson137/dot/internal/report"
	"github.com/nelson137/dot/internal/runner"
	"github.com/nelson137/dot/internal/toolchain"
)

// Step names recorded for the non-toolchain phases of a run.
const (
	StepExecute = "execute"
	StepRemove  = "remove"
)

// Engine holds shared dependencies for every run.
type Engine struct {
	Config   *config.Config
	Runner   toolchain.CommandRunner
	Backends *toolchain.Registry
	Prompter Prompter

	Stdin  io.Reader // handed to the executed program
	Stdout io.Writer // dry-run lines and the program's stdout
	Stderr io.Writer // diagnostics and the program's stderr

	Log     *log.Logger      // state trace; nil discards
	Store   report.Store     // nil disables run records
	Metrics metrics.Recorder // nil means metrics.Nop
}

// Outcome is the result of a run.
type Outcome struct {
	Status   report.Status
	ExitCode int
	Record   *report.RunResult
}

// Artifacts names the build outputs for source. The binary is the
// source name plus suffix; the object file, used only for assembly, is
// the binary name plus ".o".
func Artifacts(source, suffix string, l lang.Language) toolchain.Artifacts {
	a := toolchain.Artifacts{Source: source, Binary: source + suffix}
	if l == lang.Assembly {
		a.Object = a.Binary + ".o"
	}
	return a
}

// run carries the state of one invocation through the phases.
type run struct {
	inv      *cmdline.Invocation
	language lang.Language
	backend  toolchain.Backend
	files    toolchain.Artifacts
	rec      *report.RunResult
}

// Run executes inv. A cancelled run and a program that exits non-zero
// are not errors; both are reported through the Outcome. On error the
// returned Outcome is still non-nil. It holds the partial record unless
// inv failed validation, in which case nothing is recorded.
func (e *Engine) Run(ctx context.Context, inv *cmdline.Invocation) (*Outcome, error) {
	if inv.Help {
		fmt.Fprint(e.stdout(), cmdline.Usage)
		return &Outcome{Status: report.Done}, nil
	}
	if err := inv.Validate(); err != nil {
		return &Outcome{Status: report.Failed, ExitCode: exitCode(err)}, err
	}

	r := &run{
		inv: inv,
		rec: &report.RunResult{
			ID:        uuid.New().String(),
			StartedAt: time.Now().UTC(),
			Source:    inv.Source,
			Commands:  inv.Commands.String(),
			DryRun:    inv.DryRun,
		},
	}

	status, code, err := e.run(ctx, r)
	if err != nil {
		status = report.Failed
		code = exitCode(err)
		r.rec.Error = err.Error()
	}
	r.rec.Status = status
	r.rec.ExitCode = code
	e.finish(r)

	return &Outcome{Status: status, ExitCode: code, Record: r.rec}, err
}

func (e *Engine) run(ctx context.Context, r *run) (report.Status, int, error) {
	e.tracef("resolving language of %s", r.inv.Source)
	if err := e.resolveLanguage(r); err != nil {
		return "", 0, err
	}
	r.rec.Language = r.language.String()

	r.files = Artifacts(r.inv.Source, e.Config.ArtifactSuffix(), r.language)
	r.rec.Binary = r.files.Binary
	r.rec.Object = r.files.Object
	e.tracef("language %s, binary %s", r.language, r.files.Binary)

	if !r.inv.DryRun {
		ok, err := e.confirmOverwrites(ctx, r)
		if err != nil {
			return "", 0, err
		}
		if !ok {
			e.tracef("overwrite declined, cancelling")
			return report.Cancelled, 0, nil
		}
	}

	if err := e.compile(ctx, r); err != nil {
		return "", 0, err
	}

	code := 0
	if r.inv.Commands.Has(cmdline.Execute) {
		var err error
		if code, err = e.execute(ctx, r); err != nil {
			return "", 0, err
		}
	}

	if r.inv.Commands.Has(cmdline.Remove) {
		if err := e.remove(r); err != nil {
			return "", 0, err
		}
	}
	return report.Done, code, nil
}

func (e *Engine) resolveLanguage(r *run) error {
	explicit := ""
	if r.inv.LanguageSet {
		explicit = r.inv.Language
	}
	r.language = lang.Resolve(explicit, r.inv.Source)
	if r.language == lang.Unknown {
		return &LanguageError{Source: r.inv.Source, Language: explicit}
	}
	b, ok := e.Backends.For(r.language)
	if !ok {
		return &LanguageError{Source: r.inv.Source, Language: r.language.String()}
	}
	r.backend = b
	return nil
}

// confirmOverwrites asks before replacing an existing binary or object
// file. It reports false when any answer is not a yes.
func (e *Engine) confirmOverwrites(ctx context.Context, r *run) (bool, error) {
	for _, path := range []string{r.files.Binary, r.files.Object} {
		if path == "" || !exists(path) {
			continue
		}
		if e.Prompter == nil {
			return false, nil
		}
		ok, err := e.Prompter.Confirm(ctx, fmt.Sprintf("File exists: %s. Overwrite?", path))
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (e *Engine) compile(ctx context.Context, r *run) error {
	e.tracef("planning %s build", r.language)
	start := time.Now()
	plan, err := r.backend.Plan(ctx, r.inv.DryRun, r.files)
	if err != nil {
		var qe *toolchain.QueryError
		if errors.As(err, &qe) {
			e.record(r, toolchain.StepQuery, qe.Argv, qe.Result, time.Since(start))
		}
		return toolError(err)
	}

	for _, c := range plan {
		if r.inv.DryRun {
			fmt.Fprintln(e.stdout(), c.String())
			continue
		}
		e.tracef("%s: %s", c.Step, c)
		res, err := e.Runner.Run(ctx, c.Argv, runner.Options{Capture: true})
		if err != nil {
			e.observe(r, c.Step, "error", 0)
			return toolError(err)
		}
		e.record(r, c.Step, c.Argv, res, res.Duration)
		e.warnTruncated(c.Step, res)
		if !res.Success() {
			return &CompileError{Step: c.Step, Argv: c.Argv, Result: res}
		}
		// Warnings from a successful build still belong to the user.
		_, _ = e.stderr().Write(res.Stderr)
	}
	return nil
}

// programPath returns the path used to run the binary. A bare name is
// prefixed with ./ so it is not looked up on PATH.
func programPath(binary string) string {
	if strings.ContainsRune(binary, os.PathSeparator) {
		return binary
	}
	return "." + string(os.PathSeparator) + binary
}

func (e *Engine) execute(ctx context.Context, r *run) (int, error) {
	argv := append([]string{programPath(r.files.Binary)}, r.inv.Passthrough...)
	if r.inv.DryRun {
		fmt.Fprintln(e.stdout(), strings.Join(argv, " "))
		return 0, nil
	}

	e.tracef("execute: %s", strings.Join(argv, " "))
	res, err := e.Runner.Run(ctx, argv, runner.Options{Capture: true, Stdin: e.Stdin})
	if err != nil {
		e.observe(r, StepExecute, "error", 0)
		return 0, err
	}
	e.record(r, StepExecute, argv, res, res.Duration)
	_, _ = e.stdout().Write(res.Stdout)
	_, _ = e.stderr().Write(res.Stderr)
	e.warnTruncated(StepExecute, res)

	if res.Signaled {
		e.tracef("program killed by signal %d", res.TermSignal)
	}
	return res.Code(), nil
}

func (e *Engine) remove(r *run) error {
	if r.files.Object != "" {
		if r.inv.DryRun {
			fmt.Fprintln(e.stdout(), "rm", r.files.Object)
		} else if err := os.Remove(r.files.Object); err != nil {
			fmt.Fprintf(e.stderr(), "eo: could not remove object file %s: %v\n", r.files.Object, err)
			e.observe(r, StepRemove, "error", 0)
		}
	}

	if r.inv.DryRun {
		fmt.Fprintln(e.stdout(), "rm", r.files.Binary)
		return nil
	}
	e.tracef("remove: %s", r.files.Binary)
	start := time.Now()
	err := os.Remove(r.files.Binary)
	step := report.StepRecord{
		Name:       StepRemove,
		Argv:       []string{"rm", r.files.Binary},
		DurationMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		step.ExitCode = 1
		step.Stderr = err.Error()
		r.rec.Steps = append(r.rec.Steps, step)
		e.observe(r, StepRemove, "error", time.Since(start))
		return &RemoveError{Path: r.files.Binary, Err: err}
	}
	r.rec.Steps = append(r.rec.Steps, step)
	e.observe(r, StepRemove, "ok", time.Since(start))
	return nil
}

// record appends a step to the run record and reports it to metrics.
func (e *Engine) record(r *run, step string, argv []string, res *runner.Result, d time.Duration) {
	rec := report.StepRecord{
		Name:       step,
		Argv:       argv,
		ExitCode:   res.ExitStatus,
		Stderr:     string(res.Stderr),
		Truncated:  res.Truncated(),
		DurationMS: d.Milliseconds(),
	}
	if res.Signaled {
		rec.Signal = res.TermSignal
	}
	r.rec.Steps = append(r.rec.Steps, rec)

	status := "ok"
	if !res.Success() {
		status = "failed"
	}
	e.observe(r, step, status, d)
}

func (e *Engine) observe(r *run, step, status string, d time.Duration) {
	e.metrics().ObserveStep(r.language.String(), step, status, d)
}

func (e *Engine) warnTruncated(step string, res *runner.Result) {
	if res.StdoutTruncated {
		fmt.Fprintf(e.stderr(), "eo: warning: %s stdout truncated at %d bytes\n", step, len(res.Stdout))
	}
	if res.StderrTruncated {
		fmt.Fprintf(e.stderr(), "eo: warning: %s stderr truncated at %d bytes\n", step, len(res.Stderr))
	}
}

// finish persists the record and reports the run to metrics. Dry runs
// leave no trace.
func (e *Engine) finish(r *run) {
	if r.inv.DryRun {
		return
	}
	e.metrics().ObserveRun(r.language.String(), string(r.rec.Status))
	if e.Store == nil {
		return
	}
	if err := e.Store.Save(r.rec); err != nil {
		fmt.Fprintf(e.stderr(), "eo: warning: recording run %s: %v\n", r.rec.ID, err)
	}
}

func (e *Engine) tracef(format string, args ...any) {
	if e.Log != nil {
		e.Log.Printf(format, args...)
	}
}

func (e *Engine) metrics() metrics.Recorder {
	if e.Metrics != nil {
		return e.Metrics
	}
	return metrics.Nop()
}

func (e *Engine) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

func (e *Engine) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// exitCode extracts the exit code carried by err, defaulting to 1.
func exitCode(err error) int {
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}
