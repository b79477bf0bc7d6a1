package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nelson137/dot/internal/report"
)

type inspectParams struct {
	RunID string `json:"run_id,omitempty" jsonschema:"the run ID from an eo_build result; omit to list recent runs"`
	Step  string `json:"step,omitempty" jsonschema:"limit the output to one step: query, assemble, link, compile, execute or remove"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if h.store == nil {
		return errorResult("run history is disabled")
	}
	if params.RunID == "" {
		return h.listRuns()
	}

	result, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	if params.Step == "" {
		return textResult(report.Format(result))
	}
	step := result.Step(params.Step)
	if step == nil {
		return textResult(fmt.Sprintf("No %s step in run %s (%s).", params.Step, params.RunID, result.Commands))
	}
	return textResult(formatStep(params.RunID, step))
}

// recentRuns is how many runs eo_inspect lists without a run_id.
const recentRuns = 20

func (h *handler) listRuns() (*mcp.CallToolResult, any, error) {
	l, ok := h.store.(report.Lister)
	if !ok {
		return errorResult("run_id is required: this store cannot list runs")
	}
	runs, err := l.List(recentRuns)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to list runs: %v", err))
	}
	if len(runs) == 0 {
		return textResult("No runs recorded.")
	}
	var b strings.Builder
	for _, r := range runs {
		fmt.Fprintln(&b, r.Summary())
	}
	return textResult(b.String())
}

func formatStep(runID string, s *report.StepRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\n", runID)
	fmt.Fprintf(&b, "Step: %s\n", s.Name)
	fmt.Fprintf(&b, "Command: %s\n", strings.Join(s.Argv, " "))
	if s.Signal != 0 {
		fmt.Fprintf(&b, "Result: killed by signal %d\n", s.Signal)
	} else {
		fmt.Fprintf(&b, "Result: exit %d\n", s.ExitCode)
	}
	fmt.Fprintf(&b, "Duration: %dms\n", s.DurationMS)
	if s.Stderr != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Stderr:")
		fmt.Fprint(&b, indent(s.Stderr))
	}
	if s.Truncated {
		fmt.Fprintln(&b, "(output truncated)")
	}
	return b.String()
}
