// Package mcp provides the eo MCP server, registering the build tools
// and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nelson137/dot"
	"github.com/nelson137/dot/internal/config"
	"github.com/nelson137/dot/internal/metrics"
	"github.com/nelson137/dot/internal/report"
	"github.com/nelson137/dot/internal/runner"
	"github.com/nelson137/dot/internal/toolchain"
	"github.com/nelson137/dot/internal/workflow"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	// mu serializes builds: every call changes artifacts in the workspace.
	mu        sync.Mutex
	engine    *workflow.Engine
	runner    *runner.Runner
	store     report.Store
	workspace string
}

// NewServer creates an MCP server with all eo tools registered. A nil
// rec discards metrics.
func NewServer(cfg *config.Config, r *runner.Runner, store report.Store, rec metrics.Recorder) *mcp.Server {
	if rec == nil {
		rec = metrics.Nop()
	}
	h := &handler{
		engine: &workflow.Engine{
			Config:   cfg,
			Runner:   r,
			Backends: toolchain.NewRegistry(cfg, r),
			Prompter: workflow.Answer(false),
			Store:    store,
			Metrics:  rec,
		},
		runner:    r,
		store:     store,
		workspace: r.Workspace,
	}

	opts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "eo", Version: dot.Version}, opts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "eo_build",
		Description: `Compile a single assembly, C or C++ source file, optionally run it and remove the artifacts.

The language comes from the file extension (.s/.asm, .c, .cpp) unless language is given.
Existing artifacts are only replaced when overwrite=true. Set dry_run=true to see the
commands without running anything. The result carries a run ID for eo_inspect.`,
	}, h.buildHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "eo_inspect",
		Description: "Show the recorded steps of an eo_build run: every command, its exit status and its stderr. Without run_id, list the most recent runs.",
	}, h.inspectHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "eo_languages",
		Description: "List the supported languages, the names accepted for each, and the toolchain executables they use.",
	}, h.languagesHandler)

	return s
}

// updateWorkspaceFromRoots queries the client for MCP roots and points
// the runner and engine at the first file root.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil || len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	workspace := u.Path

	loaded, err := config.Load(workspace)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.workspace = workspace
	h.runner.Workspace = workspace
	h.runner.Timeout = loaded.Config.Timeout()
	h.runner.MaxOutput = loaded.Config.MaxOutputBytes()

	h.engine.Config = loaded.Config
	h.engine.Backends = toolchain.NewRegistry(loaded.Config, h.runner)
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
