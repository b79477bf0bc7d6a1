// Command eo compiles a single assembly, C or C++ source file, then
// optionally runs the result and removes the build artifacts.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/nelson137/dot"
	"github.com/nelson137/dot/internal/cmdline"
	"github.com/nelson137/dot/internal/config"
	"github.com/nelson137/dot/internal/report"
	"github.com/nelson137/dot/internal/runner"
	"github.com/nelson137/dot/internal/toolchain"
	"github.com/nelson137/dot/internal/workflow"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("eo: ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var code int
	root := newRootCmd(&code)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "eo: %v\n", err)
		var argErr *cmdline.ArgumentError
		if errors.As(err, &argErr) {
			fmt.Fprint(stderr, "\n"+cmdline.Usage)
		}
		return exitCode(err)
	}
	return code
}

// exitCode extracts the exit code carried by err, defaulting to 1.
func exitCode(err error) int {
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

func newRootCmd(code *int) *cobra.Command {
	root := &cobra.Command{
		Use:   "eo [options] [--] <file> [-x|--args ARGS...]",
		Short: "Compile, run and clean up a single source file",
		// eo's own option grammar (compound short flags, the -x
		// pass-through) is handled by cmdline.Parse.
		DisableFlagParsing: true,
		Args:               cobra.ArbitraryArgs,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := runBuild(cmd.Context(), args, cmd.OutOrStdout(), cmd.ErrOrStderr())
			*code = c
			return err
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newMCPCmd(), newHistoryCmd(), newVersionCmd())
	return root
}

// --- build ---

func runBuild(ctx context.Context, args []string, stdout, stderr io.Writer) (int, error) {
	inv, err := cmdline.Parse(args)
	if err != nil {
		return 1, err
	}

	workspace, err := os.Getwd()
	if err != nil {
		return 1, fmt.Errorf("determining workspace: %w", err)
	}
	loaded, err := config.Load(workspace)
	if err != nil {
		return 1, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	trace := log.New(io.Discard, "eo: ", 0)
	if inv.Verbose {
		trace.SetOutput(stderr)
		if loaded.Path != "" {
			trace.Printf("using config %s", loaded.Path)
		}
	}

	store, closeStore, err := openHistory(cfg)
	if err != nil {
		return 1, err
	}
	defer closeStore()

	r := &runner.Runner{
		Workspace: workspace,
		Timeout:   cfg.Timeout(),
		MaxOutput: cfg.MaxOutputBytes(),
		Stdout:    stdout,
		Stderr:    stderr,
	}
	eng := &workflow.Engine{
		Config:   cfg,
		Runner:   r,
		Backends: toolchain.NewRegistry(cfg, r),
		Prompter: &workflow.LinePrompter{In: os.Stdin, Out: stderr},
		Stdin:    os.Stdin,
		Stdout:   stdout,
		Stderr:   stderr,
		Log:      trace,
	}
	if store != nil {
		eng.Store = store
	}

	out, err := eng.Run(ctx, inv)
	if err != nil {
		return out.ExitCode, err
	}
	if out.Status == report.Cancelled {
		trace.Printf("cancelled")
	}
	return out.ExitCode, nil
}

// openHistory opens the run history database when one is configured.
// It returns a nil store when history is disabled.
func openHistory(cfg *config.Config) (*report.LRUStore, func(), error) {
	path := cfg.HistoryPath()
	if path == "" {
		return nil, func() {}, nil
	}
	db, err := report.OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	return report.NewLRUStore(cfg.HistoryCacheSize(), db), func() { _ = db.Close() }, nil
}

// --- version ---

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), dot.Version)
		},
	}
}
