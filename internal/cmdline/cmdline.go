// Package cmdline turns raw eo arguments into an Invocation.
//
// Parsing happens in two passes. Expand rewrites compound short flags
// such as -cer into -c -e -r. Parse then scans the expanded tokens,
// honoring "--" (no more options) and -x/--args (forward everything
// that follows to the built program).
package cmdline

import (
	"fmt"
	"strings"
)

// Command is a set of actions selected on the command line.
type Command uint8

const (
	Compile Command = 1 << iota
	Execute
	Remove
)

// Has reports whether all bits of c2 are set in c.
func (c Command) Has(c2 Command) bool { return c&c2 == c2 }

func (c Command) String() string {
	var parts []string
	if c.Has(Compile) {
		parts = append(parts, "compile")
	}
	if c.Has(Execute) {
		parts = append(parts, "execute")
	}
	if c.Has(Remove) {
		parts = append(parts, "remove")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// Invocation is the parsed intent of a single eo run.
type Invocation struct {
	Commands Command
	DryRun   bool
	Help     bool
	Verbose  bool

	Language    string // forced language, valid when LanguageSet
	LanguageSet bool

	Source string

	// Passthrough holds the arguments for the built program. It is only
	// meaningful when PassthroughSet is true, which distinguishes a
	// bare -x from no -x at all.
	Passthrough    []string
	PassthroughSet bool
}

// Validate checks the cross-option rules that can only be applied after
// the whole command line has been scanned. Help requests skip them.
func (inv *Invocation) Validate() error {
	if inv.Help {
		return nil
	}
	if inv.Source == "" {
		return &ArgumentError{Msg: "no source file given"}
	}
	if inv.Commands == 0 {
		return &ArgumentError{Msg: "no commands were given"}
	}
	if !inv.Commands.Has(Compile) {
		return &ArgumentError{Msg: "program requires compilation (-c)"}
	}
	return nil
}

// ArgumentError reports a malformed command line.
type ArgumentError struct {
	Msg   string
	Token string // offending token, if any
}

func (e *ArgumentError) Error() string {
	if e.Token == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Msg, e.Token)
}

// ExitCode implements the exit-code contract used by cmd/eo.
func (e *ArgumentError) ExitCode() int { return 1 }

const (
	endOfOptions = "--"
	argsShort    = "-x"
	argsLong     = "--args"
)

// Expand returns a copy of args with every compound short flag split
// into single-letter flags, in order. Long flags, positionals, "-" and
// two-character flags are copied unchanged. Nothing after "--" or after
// the pass-through flag is inspected.
func Expand(args []string) []string {
	out := make([]string, 0, len(args))
	for i, tok := range args {
		if tok == endOfOptions || tok == argsShort || tok == argsLong {
			return append(out, args[i:]...)
		}
		if !isCompound(tok) {
			out = append(out, tok)
			continue
		}
		for _, r := range tok[1:] {
			out = append(out, "-"+string(r))
		}
		if strings.ContainsRune(tok[1:], 'x') {
			return append(out, args[i+1:]...)
		}
	}
	return out
}

func isCompound(tok string) bool {
	return len(tok) > 2 && tok[0] == '-' && tok[1] != '-' && !strings.ContainsRune(tok, '=')
}

// Parse expands and scans args. It does not call Validate.
func Parse(args []string) (*Invocation, error) {
	toks := Expand(args)
	inv := &Invocation{}
	optionsDone := false

	for i := 0; i < len(toks); i++ {
		tok := toks[i]

		if tok == argsShort || tok == argsLong {
			inv.PassthroughSet = true
			inv.Passthrough = append([]string{}, toks[i+1:]...)
			return inv, nil
		}

		if optionsDone || !isFlag(tok) {
			if inv.Source != "" {
				return nil, &ArgumentError{Msg: "too many source files", Token: tok}
			}
			inv.Source = tok
			continue
		}

		name, value, hasValue := strings.Cut(tok, "=")
		switch name {
		case endOfOptions:
			optionsDone = true
			continue
		case "-h", "--help":
			inv.Help = true
		case "-c", "--compile":
			inv.Commands |= Compile
		case "-e", "--execute":
			inv.Commands |= Execute
		case "-r", "--remove":
			inv.Commands |= Remove
		case "--dry-run":
			inv.DryRun = true
		case "-v", "--verbose":
			inv.Verbose = true
		case "-l", "--language":
			if !hasValue {
				if i+1 >= len(toks) {
					return nil, &ArgumentError{Msg: "option requires a value", Token: name}
				}
				i++
				value = toks[i]
			}
			if value == "" {
				return nil, &ArgumentError{Msg: "language cannot be empty string"}
			}
			inv.Language = value
			inv.LanguageSet = true
			continue
		default:
			return nil, unknownOption(name)
		}
		if hasValue {
			return nil, &ArgumentError{Msg: "option takes no value", Token: tok}
		}
	}

	return inv, nil
}

func isFlag(tok string) bool {
	return len(tok) > 1 && tok[0] == '-'
}

func unknownOption(tok string) error {
	if strings.HasPrefix(tok, "--") {
		return &ArgumentError{Msg: "unknown long option", Token: tok}
	}
	return &ArgumentError{Msg: "unknown short option", Token: tok}
}

// Usage is the help text printed for -h and argument errors.
const Usage = `Usage: eo [options] [--] <file> [-x|--args ARGS...]

Compile a single assembly, C or C++ source file, then optionally run it
and remove the build artifacts.

Options:
  -c, --compile          compile the source file (required)
  -e, --execute          run the compiled program
  -r, --remove           remove the build artifacts afterwards
  -l, --language LANG    force the language (asm, c, cpp)
      --dry-run          print the commands instead of running them
  -v, --verbose          log each step
  -h, --help             show this help
  -x, --args ARGS...     pass all remaining arguments to the program

Short options may be combined: -cer is the same as -c -e -r.

Commands:
  eo mcp         start the MCP server
  eo history     list recorded runs
  eo version     print the version
`
