// Package toolchain builds the compiler and linker command lines for
// each supported language.
package toolchain

import (
	"context"
	"strings"

	"github.com/nelson137/dot/internal/config"
	"github.com/nelson137/dot/internal/lang"
	"github.com/nelson137/dot/internal/runner"
)

// Step names used in plans and run records.
const (
	StepQuery    = "query"
	StepAssemble = "assemble"
	StepLink     = "link"
	StepCompile  = "compile"
)

// Command is one external invocation in a build plan.
type Command struct {
	Step string
	Argv []string
}

// String renders the command as a single space-joined line.
func (c Command) String() string {
	return strings.Join(c.Argv, " ")
}

// Artifacts names the files a build reads and writes.
type Artifacts struct {
	Source string
	Binary string
	Object string // assembly only
}

// CommandRunner executes commands.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, opts runner.Options) (*runner.Result, error)
}

// Backend produces the ordered commands that turn a source file into a
// binary. Backends never run the build themselves; some run read-only
// queries to fill in flags.
type Backend interface {
	Language() lang.Language
	Plan(ctx context.Context, dryRun bool, a Artifacts) ([]Command, error)
}

// Registry maps languages to their backends.
type Registry struct {
	backends map[lang.Language]Backend
}

// NewRegistry wires the default backends from configuration.
func NewRegistry(cfg *config.Config, r CommandRunner) *Registry {
	return NewRegistryOf(
		&Asm{
			Nasm:   cfg.Nasm(),
			Format: cfg.AsmFormat(),
			Args:   cfg.Asm.Args,
			Ld:     cfg.Ld(),
		},
		&C{
			CC:        cfg.CC(),
			Args:      cfg.CArgs(),
			Libs:      cfg.CLibs(),
			PkgConfig: cfg.PkgConfig(),
			Packages:  cfg.CPackages(),
			Runner:    r,
		},
		&Cpp{
			CXX:  cfg.CXX(),
			Args: cfg.CppArgs(),
			Libs: cfg.CppLibs(),
		},
	)
}

// NewRegistryOf builds a registry from explicit backends.
func NewRegistryOf(backends ...Backend) *Registry {
	reg := &Registry{backends: make(map[lang.Language]Backend, len(backends))}
	for _, b := range backends {
		reg.backends[b.Language()] = b
	}
	return reg
}

// For returns the backend for l.
func (r *Registry) For(l lang.Language) (Backend, bool) {
	b, ok := r.backends[l]
	return b, ok
}

// Executables returns the tool paths each backend invokes, keyed by
// language. Used for diagnostics.
func (r *Registry) Executables() map[lang.Language][]string {
	out := make(map[lang.Language][]string, len(r.backends))
	for l, b := range r.backends {
		switch b := b.(type) {
		case *Asm:
			out[l] = []string{b.Nasm, b.Ld}
		case *C:
			out[l] = []string{b.CC, b.PkgConfig}
		case *Cpp:
			out[l] = []string{b.CXX}
		}
	}
	return out
}
