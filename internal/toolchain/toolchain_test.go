package toolchain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nelson137/dot/internal/config"
	"github.com/nelson137/dot/internal/lang"
	"github.com/nelson137/dot/internal/runner"
)

// fakeRunner answers every Run with a fixed result and records argv.
type fakeRunner struct {
	result *runner.Result
	err    error
	calls  [][]string
}

func (f *fakeRunner) Run(_ context.Context, argv []string, _ runner.Options) (*runner.Result, error) {
	f.calls = append(f.calls, argv)
	return f.result, f.err
}

var artifacts = Artifacts{Source: "hello.s", Binary: "hello.s.bin", Object: "hello.s.bin.o"}

func TestAsmPlan(t *testing.T) {
	b := &Asm{Nasm: "/usr/bin/nasm", Format: "elf64", Ld: "/usr/bin/ld"}
	plan, err := b.Plan(context.Background(), false, artifacts)
	require.NoError(t, err)
	require.Len(t, plan, 2)

	assert.Equal(t, StepAssemble, plan[0].Step)
	assert.Equal(t, "/usr/bin/nasm -f elf64 hello.s -o hello.s.bin.o", plan[0].String())
	assert.Equal(t, StepLink, plan[1].Step)
	assert.Equal(t, "/usr/bin/ld hello.s.bin.o -o hello.s.bin", plan[1].String())
}

func TestCppPlan(t *testing.T) {
	b := &Cpp{CXX: "/usr/bin/g++", Args: config.DefaultCppArgs}
	plan, err := b.Plan(context.Background(), false, Artifacts{Source: "a.cpp", Binary: "a.cpp.bin"})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, []string{"/usr/bin/g++", "-std=c++11", "-O3", "-Wall", "-Werror", "a.cpp", "-o", "a.cpp.bin"}, plan[0].Argv)
}

func newC(r CommandRunner) *C {
	return &C{
		CC:        "/usr/bin/gcc",
		Args:      config.DefaultCArgs,
		Libs:      config.DefaultCLibs,
		PkgConfig: "/usr/bin/pkg-config",
		Packages:  []string{"python3"},
		Runner:    r,
	}
}

func TestCPlan_AppendsQueryFlags(t *testing.T) {
	fr := &fakeRunner{result: &runner.Result{
		Exited: true,
		Stdout: []byte("-I/usr/include/python3.12 -lpython3.12\n"),
	}}
	plan, err := newC(fr).Plan(context.Background(), false, Artifacts{Source: "a.c", Binary: "a.c.bin"})
	require.NoError(t, err)
	require.Len(t, plan, 1)

	assert.Equal(t, []string{
		"/usr/bin/gcc", "-std=c11", "-O3", "-Wall", "-Werror",
		"a.c", "-o", "a.c.bin",
		"-lm", "-ljson-c", "-lmylib",
		"-I/usr/include/python3.12", "-lpython3.12",
	}, plan[0].Argv)

	require.Len(t, fr.calls, 1)
	assert.Equal(t, []string{"/usr/bin/pkg-config", "--cflags", "--libs", "python3"}, fr.calls[0])
}

func TestCPlan_DryRunDoesNotQuery(t *testing.T) {
	fr := &fakeRunner{}
	plan, err := newC(fr).Plan(context.Background(), true, Artifacts{Source: "a.c", Binary: "a.c.bin"})
	require.NoError(t, err)
	require.Len(t, plan, 2)

	assert.Empty(t, fr.calls)
	assert.Equal(t, StepQuery, plan[0].Step)
	assert.Equal(t, "/usr/bin/pkg-config --cflags --libs python3", plan[0].String())
	assert.Equal(t, StepCompile, plan[1].Step)
	assert.Equal(t, "$(/usr/bin/pkg-config --cflags --libs python3)", plan[1].Argv[len(plan[1].Argv)-1])
}

func TestCPlan_NoPackages(t *testing.T) {
	fr := &fakeRunner{}
	c := newC(fr)
	c.Packages = nil
	plan, err := c.Plan(context.Background(), false, Artifacts{Source: "a.c", Binary: "a.c.bin"})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Empty(t, fr.calls)
}

func TestCPlan_QueryFails(t *testing.T) {
	fr := &fakeRunner{result: &runner.Result{
		Exited:     true,
		ExitStatus: 1,
		Stderr:     []byte("Package python3 was not found\n"),
	}}
	_, err := newC(fr).Plan(context.Background(), false, Artifacts{Source: "a.c", Binary: "a.c.bin"})

	var qe *QueryError
	require.True(t, errors.As(err, &qe), "error = %v", err)
	assert.Contains(t, err.Error(), "could not get flags for python3")
	assert.Contains(t, err.Error(), "Package python3 was not found")
	assert.Equal(t, 1, qe.ExitCode())
}

func TestCPlan_QuerySignaled(t *testing.T) {
	fr := &fakeRunner{result: &runner.Result{Signaled: true, TermSignal: 9}}
	_, err := newC(fr).Plan(context.Background(), false, Artifacts{Source: "a.c", Binary: "a.c.bin"})

	var qe *QueryError
	require.True(t, errors.As(err, &qe))
	assert.Contains(t, err.Error(), "killed by signal 9")
	assert.Equal(t, 1, qe.ExitCode())
}

func TestCPlan_QuerySpawnError(t *testing.T) {
	fr := &fakeRunner{err: &runner.SpawnError{Path: "/usr/bin/pkg-config", Err: errors.New("no such file")}}
	_, err := newC(fr).Plan(context.Background(), false, Artifacts{Source: "a.c", Binary: "a.c.bin"})

	var se *runner.SpawnError
	assert.True(t, errors.As(err, &se))
}

func TestSplitFlags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"-I/a -lb\n", []string{"-I/a", "-lb"}},
		{"-I/a  -lb", []string{"-I/a", "-lb"}},
		{`-I/path\ with\ space -lx`, []string{"-I/path with space", "-lx"}},
		{`-DNAME="a b"`, []string{"-DNAME=a b"}},
		{"\n", []string{}},
	}
	for _, tt := range tests {
		got, err := SplitFlags(tt.in)
		require.NoError(t, err, tt.in)
		assert.ElementsMatch(t, tt.want, got, tt.in)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(&config.Config{}, &fakeRunner{})
	for _, l := range lang.Known() {
		b, ok := reg.For(l)
		require.True(t, ok, l.String())
		assert.Equal(t, l, b.Language())
	}
	_, ok := reg.For(lang.Unknown)
	assert.False(t, ok)

	exes := reg.Executables()
	assert.Equal(t, []string{config.DefaultCXX}, exes[lang.Cpp])
}
