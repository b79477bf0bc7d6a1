// Package report provides persistence and retrieval of eo run records.
// A record describes one build: the language, the artifacts, every
// external command that ran and how it ended.
package report

import (
	"fmt"
	"strings"
	"time"
)

// Status is the final outcome of a run.
type Status string

const (
	// Done means every selected step ran.
	Done Status = "done"
	// Cancelled means the user declined to overwrite an artifact.
	Cancelled Status = "cancelled"
	// Failed means a step aborted the run.
	Failed Status = "failed"
)

// Store persists and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
}

// Lister is implemented by stores that can enumerate recent runs.
type Lister interface {
	List(limit int) ([]*RunResult, error)
}

// RunResult holds the structured record of one eo run.
type RunResult struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`

	Source   string `json:"source"`
	Language string `json:"language"`
	Binary   string `json:"binary"`
	Object   string `json:"object,omitempty"`
	Commands string `json:"commands"` // e.g. "compile+execute"
	DryRun   bool   `json:"dry_run,omitempty"`

	Status   Status `json:"status"`
	ExitCode int    `json:"exit_code"`
	Error    string `json:"error,omitempty"`

	Steps []StepRecord `json:"steps,omitempty"`
}

// StepRecord describes one external command of a run.
type StepRecord struct {
	Name       string   `json:"name"` // query, assemble, link, compile, execute, remove
	Argv       []string `json:"argv"`
	ExitCode   int      `json:"exit_code"`
	Signal     int      `json:"signal,omitempty"`
	Stderr     string   `json:"stderr,omitempty"`
	Truncated  bool     `json:"truncated,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

// Step returns the first step with the given name, or nil.
func (r *RunResult) Step(name string) *StepRecord {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i]
		}
	}
	return nil
}

// Summary renders a one-line description of the run.
func (r *RunResult) Summary() string {
	return fmt.Sprintf("%s  %s  %-9s exit=%d  %s (%s)",
		r.ID, r.StartedAt.Format(time.RFC3339), r.Status, r.ExitCode, r.Source, r.Language)
}

// Format renders the full record for terminal or tool output.
func Format(r *RunResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s\n", r.ID)
	fmt.Fprintf(&b, "Started: %s\n", r.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Source: %s (%s)\n", r.Source, r.Language)
	if r.Binary != "" {
		fmt.Fprintf(&b, "Binary: %s\n", r.Binary)
	}
	if r.Object != "" {
		fmt.Fprintf(&b, "Object: %s\n", r.Object)
	}
	fmt.Fprintf(&b, "Commands: %s\n", r.Commands)
	fmt.Fprintf(&b, "Status: %s (exit %d)\n", r.Status, r.ExitCode)
	if r.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", r.Error)
	}

	if len(r.Steps) > 0 {
		fmt.Fprintln(&b)
		for _, s := range r.Steps {
			state := fmt.Sprintf("exit %d", s.ExitCode)
			if s.Signal != 0 {
				state = fmt.Sprintf("signal %d", s.Signal)
			}
			fmt.Fprintf(&b, "  %-9s %-8s %5dms  %s\n", s.Name, state, s.DurationMS, strings.Join(s.Argv, " "))
			if s.Stderr != "" {
				for _, line := range strings.Split(strings.TrimRight(s.Stderr, "\n"), "\n") {
					fmt.Fprintf(&b, "            | %s\n", line)
				}
			}
			if s.Truncated {
				fmt.Fprintf(&b, "            | (output truncated)\n")
			}
		}
	}

	return b.String()
}
