package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prompter asks the user a yes/no question. A prompt abandoned because
// ctx is done returns an *InterruptedError.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// LinePrompter writes the question to Out and reads one line from In.
// Only "y" (any case, surrounding space ignored) is a yes. EOF is a no.
//
// In is read one byte at a time so nothing past the answer is consumed;
// the rest of the input belongs to the executed program.
type LinePrompter struct {
	In  io.Reader
	Out io.Writer
}

func (p *LinePrompter) Confirm(ctx context.Context, question string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, &InterruptedError{Err: err}
	}
	fmt.Fprintf(p.Out, "%s [y/N] ", question)

	type answer struct {
		yes bool
		err error
	}
	// The read cannot be interrupted; on cancel it is left behind and
	// the process is expected to exit.
	done := make(chan answer, 1)
	go func() {
		yes, err := p.readAnswer()
		done <- answer{yes, err}
	}()

	select {
	case a := <-done:
		return a.yes, a.err
	case <-ctx.Done():
		fmt.Fprintln(p.Out)
		return false, &InterruptedError{Err: ctx.Err()}
	}
}

func (p *LinePrompter) readAnswer() (bool, error) {
	var line strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := p.In.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				break
			}
			line.WriteByte(buf[0])
		}
		if errors.Is(err, io.EOF) {
			if line.Len() == 0 {
				fmt.Fprintln(p.Out)
			}
			break
		}
		if err != nil {
			return false, fmt.Errorf("reading answer: %w", err)
		}
	}
	return strings.ToLower(strings.TrimSpace(line.String())) == "y", nil
}

// Answer is a Prompter that always gives the same reply. It serves
// non-interactive callers such as the MCP server.
type Answer bool

func (a Answer) Confirm(context.Context, string) (bool, error) { return bool(a), nil }
