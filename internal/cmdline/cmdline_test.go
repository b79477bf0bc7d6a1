package cmdline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"compound", []string{"-cer", "a.c"}, []string{"-c", "-e", "-r", "a.c"}},
		{"single flags untouched", []string{"-c", "-e"}, []string{"-c", "-e"}},
		{"long flags untouched", []string{"--dry-run", "-ce", "--compile"}, []string{"--dry-run", "-c", "-e", "--compile"}},
		{"positional between", []string{"-ce", "a.c", "-rv"}, []string{"-c", "-e", "a.c", "-r", "-v"}},
		{"lone dash", []string{"-", "-ce"}, []string{"-", "-c", "-e"}},
		{"stops at double dash", []string{"-ce", "--", "-abc"}, []string{"-c", "-e", "--", "-abc"}},
		{"stops at args flag", []string{"-c", "a.c", "-x", "-abc", "--def"}, []string{"-c", "a.c", "-x", "-abc", "--def"}},
		{"stops at long args flag", []string{"--args", "-abc"}, []string{"--args", "-abc"}},
		{"stops after compound args flag", []string{"-cx", "-abc"}, []string{"-c", "-x", "-abc"}},
		{"key value untouched", []string{"-l=cpp"}, []string{"-l=cpp"}},
		{"empty", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expand(tt.in))
		})
	}
}

func TestExpand_DoesNotAliasInput(t *testing.T) {
	in := []string{"-ce", "a.c"}
	out := Expand(in)
	out[0] = "changed"
	assert.Equal(t, []string{"-ce", "a.c"}, in)
}

func TestParse_Commands(t *testing.T) {
	inv, err := Parse([]string{"-cer", "--dry-run", "hello.c"})
	require.NoError(t, err)

	assert.True(t, inv.Commands.Has(Compile|Execute|Remove))
	assert.True(t, inv.DryRun)
	assert.Equal(t, "hello.c", inv.Source)
	assert.False(t, inv.PassthroughSet)
	assert.Nil(t, inv.Passthrough)
	assert.NoError(t, inv.Validate())
}

func TestParse_LongForms(t *testing.T) {
	inv, err := Parse([]string{"--compile", "--execute", "--language", "CPP", "main.cc"})
	require.NoError(t, err)

	assert.Equal(t, Compile|Execute, inv.Commands)
	assert.True(t, inv.LanguageSet)
	assert.Equal(t, "CPP", inv.Language)
	assert.Equal(t, "main.cc", inv.Source)
}

func TestParse_LanguageEquals(t *testing.T) {
	inv, err := Parse([]string{"-c", "--language=asm", "prog"})
	require.NoError(t, err)
	assert.Equal(t, "asm", inv.Language)
}

func TestParse_LanguageInCompound(t *testing.T) {
	inv, err := Parse([]string{"-cl", "c", "prog"})
	require.NoError(t, err)
	assert.Equal(t, Compile, inv.Commands)
	assert.Equal(t, "c", inv.Language)
	assert.Equal(t, "prog", inv.Source)
}

func TestParse_Passthrough(t *testing.T) {
	inv, err := Parse([]string{"-ce", "hello.c", "-x", "-c", "--help", "plain", "--"})
	require.NoError(t, err)

	assert.True(t, inv.PassthroughSet)
	assert.Equal(t, []string{"-c", "--help", "plain", "--"}, inv.Passthrough)
	assert.False(t, inv.Help)
}

func TestParse_PassthroughEmpty(t *testing.T) {
	inv, err := Parse([]string{"-c", "hello.c", "--args"})
	require.NoError(t, err)

	assert.True(t, inv.PassthroughSet)
	assert.NotNil(t, inv.Passthrough)
	assert.Empty(t, inv.Passthrough)
}

// Every token after the pass-through flag is forwarded verbatim, whatever
// it looks like.
func TestParse_PassthroughVerbatimAtEveryPosition(t *testing.T) {
	tail := []string{"-abc", "--", "x.c", "-x", "--args", "-l"}
	for i := 0; i <= len(tail); i++ {
		args := append([]string{"-c", "main.c", "-x"}, tail[:i]...)
		inv, err := Parse(args)
		require.NoError(t, err, "args %v", args)
		assert.Equal(t, append([]string{}, tail[:i]...), inv.Passthrough, "args %v", args)
	}
}

func TestParse_DoubleDash(t *testing.T) {
	inv, err := Parse([]string{"-c", "--", "-weird-name.c"})
	require.NoError(t, err)
	assert.Equal(t, "-weird-name.c", inv.Source)
}

func TestParse_DoubleDashKeepsArgsSentinel(t *testing.T) {
	inv, err := Parse([]string{"-c", "--", "a.c", "-x", "1"})
	require.NoError(t, err)
	assert.Equal(t, "a.c", inv.Source)
	assert.Equal(t, []string{"1"}, inv.Passthrough)
}

func TestParse_DoubleDashStillOneSource(t *testing.T) {
	_, err := Parse([]string{"-c", "--", "a.c", "-e"})
	var argErr *ArgumentError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "too many source files", argErr.Msg)
	assert.Equal(t, "-e", argErr.Token)
}

func TestParse_TooManySources(t *testing.T) {
	_, err := Parse([]string{"-c", "a.c", "b.c"})
	var argErr *ArgumentError
	require.True(t, errors.As(err, &argErr))
	assert.Contains(t, err.Error(), "too many source files")
	assert.Equal(t, 1, argErr.ExitCode())
}

func TestParse_UnknownOptions(t *testing.T) {
	_, err := Parse([]string{"--bogus", "a.c"})
	require.Error(t, err)
	assert.Equal(t, "unknown long option: --bogus", err.Error())

	_, err = Parse([]string{"-cq", "a.c"})
	require.Error(t, err)
	assert.Equal(t, "unknown short option: -q", err.Error())
}

func TestParse_LanguageErrors(t *testing.T) {
	_, err := Parse([]string{"-c", "a.c", "-l"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a value")

	_, err = Parse([]string{"-c", "-l", "", "a.c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "language cannot be empty")
}

func TestParse_FlagWithUnexpectedValue(t *testing.T) {
	_, err := Parse([]string{"--compile=yes", "a.c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "takes no value")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"no source", []string{"-c"}, "no source file given"},
		{"no commands", []string{"a.c"}, "no commands were given"},
		{"no compile", []string{"-e", "a.c"}, "program requires compilation (-c)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := Parse(tt.args)
			require.NoError(t, err)
			err = inv.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestValidate_HelpSkipsChecks(t *testing.T) {
	inv, err := Parse([]string{"-h"})
	require.NoError(t, err)
	assert.True(t, inv.Help)
	assert.NoError(t, inv.Validate())
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "none", Command(0).String())
	assert.Equal(t, "compile+remove", (Compile | Remove).String())
}
