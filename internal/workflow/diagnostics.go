package workflow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Diagnostics holds the findings parsed from a toolchain's stderr.
type Diagnostics struct {
	Issues []Diagnostic
}

// Diagnostic is one compiler or assembler message tied to a location.
type Diagnostic struct {
	File     string
	Line     int
	Column   int // 0 when the tool does not report one (nasm)
	Severity string
	Message  string
}

func (d Diagnostic) String() string {
	if d.Column > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Column, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s:%d: %s: %s", d.File, d.Line, d.Severity, d.Message)
}

// Errors counts the issues with error severity.
func (s *Diagnostics) Errors() int {
	n := 0
	for _, d := range s.Issues {
		if d.Severity == "error" || d.Severity == "fatal error" {
			n++
		}
	}
	return n
}

func (s *Diagnostics) String() string {
	var b strings.Builder

	if len(s.Issues) == 0 {
		fmt.Fprintln(&b, "No diagnostics.")
		return b.String()
	}
	fmt.Fprintf(&b, "%d diagnostics (%d errors)\n", len(s.Issues), s.Errors())
	for _, d := range s.Issues {
		fmt.Fprintln(&b, d.String())
	}
	return b.String()
}

// gcc and clang print file:line:col: severity: message; nasm leaves out
// the column.
var diagnosticLine = regexp.MustCompile(`^(.+?):(\d+):(?:(\d+):)?\s*(fatal error|error|warning|note):\s*(.*)$`)

// ParseDiagnostics extracts located messages from toolchain stderr.
// Lines that do not look like diagnostics (source excerpts, carets,
// "In function" headers) are skipped.
func ParseDiagnostics(stderr []byte) *Diagnostics {
	s := &Diagnostics{}
	for _, line := range strings.Split(string(stderr), "\n") {
		m := diagnosticLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		lineNo, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		s.Issues = append(s.Issues, Diagnostic{
			File:     m[1],
			Line:     lineNo,
			Column:   col,
			Severity: m[4],
			Message:  m[5],
		})
	}
	return s
}

// Diagnostics parses the captured stderr of the failed command.
func (e *CompileError) Diagnostics() *Diagnostics {
	return ParseDiagnostics(e.Result.Stderr)
}
