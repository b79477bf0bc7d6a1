package mcp

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nelson137/dot/internal/lang"
)

type languagesParams struct{}

func (h *handler) languagesHandler(ctx context.Context, req *mcp.CallToolRequest, _ languagesParams) (*mcp.CallToolResult, any, error) {
	h.mu.Lock()
	exes := h.engine.Backends.Executables()
	suffix := h.engine.Config.ArtifactSuffix()
	workspace := h.workspace
	h.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Workspace: %s\n", workspace)
	fmt.Fprintf(&b, "Binary suffix: %s\n", suffix)
	fmt.Fprintln(&b)

	for _, l := range lang.Known() {
		fmt.Fprintf(&b, "%s (%s)\n", l, strings.Join(lang.Synonyms(l), ", "))
		for _, exe := range exes[l] {
			state := "found"
			if _, err := exec.LookPath(exe); err != nil {
				state = "not installed"
			}
			fmt.Fprintf(&b, "  %s: %s\n", exe, state)
		}
	}
	return textResult(b.String())
}
