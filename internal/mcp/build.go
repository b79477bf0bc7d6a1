package mcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nelson137/dot/internal/cmdline"
	"github.com/nelson137/dot/internal/report"
	"github.com/nelson137/dot/internal/workflow"
)

type buildParams struct {
	File      string   `json:"file" jsonschema:"source file, absolute or relative to the workspace"`
	Language  string   `json:"language,omitempty" jsonschema:"force the language (asm, c, cpp) instead of using the file extension"`
	Execute   bool     `json:"execute,omitempty" jsonschema:"run the compiled program"`
	Remove    bool     `json:"remove,omitempty" jsonschema:"delete the binary (and object file) afterwards"`
	DryRun    bool     `json:"dry_run,omitempty" jsonschema:"print the commands instead of running them"`
	Overwrite bool     `json:"overwrite,omitempty" jsonschema:"replace existing artifacts without asking. Default: false."`
	Args      []string `json:"args,omitempty" jsonschema:"arguments passed verbatim to the program"`
	Stdin     string   `json:"stdin,omitempty" jsonschema:"text fed to the program's standard input"`
}

func (h *handler) buildHandler(ctx context.Context, req *mcp.CallToolRequest, params buildParams) (*mcp.CallToolResult, any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	source, err := h.resolveSource(params.File)
	if err != nil {
		return errorResult(err.Error())
	}

	inv := &cmdline.Invocation{
		Commands:       cmdline.Compile,
		DryRun:         params.DryRun,
		Language:       params.Language,
		LanguageSet:    params.Language != "",
		Source:         source,
		Passthrough:    params.Args,
		PassthroughSet: len(params.Args) > 0,
	}
	if params.Execute {
		inv.Commands |= cmdline.Execute
	}
	if params.Remove {
		inv.Commands |= cmdline.Remove
	}

	var stdout, stderr bytes.Buffer
	e := *h.engine
	e.Stdout = &stdout
	e.Stderr = &stderr
	e.Stdin = strings.NewReader(params.Stdin)
	e.Prompter = workflow.Answer(params.Overwrite)

	out, err := e.Run(ctx, inv)
	if err != nil {
		return errorResult(formatBuildError(out, err, stderr.String()))
	}
	return textResult(formatBuild(out, stdout.String(), stderr.String()))
}

// resolveSource makes file absolute and keeps it inside the workspace.
func (h *handler) resolveSource(file string) (string, error) {
	if file == "" {
		return "", fmt.Errorf("file is required")
	}
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(h.workspace, path)
	}
	path = filepath.Clean(path)
	if h.workspace == "" {
		return path, nil
	}
	rel, err := filepath.Rel(h.workspace, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("file %q is outside workspace %q", file, h.workspace)
	}
	return path, nil
}

func formatBuild(out *workflow.Outcome, stdout, stderr string) string {
	var b strings.Builder
	rec := out.Record

	switch {
	case rec.DryRun:
		fmt.Fprintf(&b, "Dry run (%s, %s)\n\n", rec.Language, rec.Commands)
		fmt.Fprint(&b, stdout)
		return b.String()
	case out.Status == report.Cancelled:
		fmt.Fprintf(&b, "Status: cancelled\n\n")
		fmt.Fprintf(&b, "%s already exists. Call eo_build again with overwrite=true to replace it.\n", rec.Binary)
		return b.String()
	}

	fmt.Fprintf(&b, "Status: %s (exit %d)\n", out.Status, out.ExitCode)
	fmt.Fprintf(&b, "Run: %s\n", rec.ID)
	fmt.Fprintf(&b, "Binary: %s\n", rec.Binary)
	if stdout != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Stdout:")
		fmt.Fprint(&b, indent(stdout))
	}
	if stderr != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Stderr:")
		fmt.Fprint(&b, indent(stderr))
	}
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Inspect with eo_inspect(run_id=%q).\n", rec.ID)
	return b.String()
}

func formatBuildError(out *workflow.Outcome, err error, stderr string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Status: failed (exit %d)\n", out.ExitCode)
	if out.Record != nil && out.Record.ID != "" && !out.Record.DryRun {
		fmt.Fprintf(&b, "Run: %s\n", out.Record.ID)
	}
	fmt.Fprintln(&b)

	var ce *workflow.CompileError
	if errors.As(err, &ce) {
		d := ce.Diagnostics()
		if len(d.Issues) > 0 {
			fmt.Fprintf(&b, "%s failed: ", ce.Step)
			fmt.Fprint(&b, d.String())
			return b.String()
		}
	}
	fmt.Fprintln(&b, err.Error())
	if stderr != "" {
		fmt.Fprintln(&b)
		fmt.Fprint(&b, indent(stderr))
	}
	return b.String()
}

func indent(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimRight(s, "\n"), "\n") {
		fmt.Fprintf(&b, "    %s\n", line)
	}
	return b.String()
}
