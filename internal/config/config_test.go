package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_FromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "version: 1\ntimeout: 10m\nsuffix: .eo\n")

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Path != filepath.Join(dir, FileName) {
		t.Errorf("Path = %q, want %q", res.Path, filepath.Join(dir, FileName))
	}
	if res.Config.Version != 1 {
		t.Errorf("Config.Version = %d, want 1", res.Config.Version)
	}
	if got := res.Config.Timeout(); got != 10*time.Minute {
		t.Errorf("Timeout() = %v, want 10m", got)
	}
	if got := res.Config.ArtifactSuffix(); got != ".eo" {
		t.Errorf("ArtifactSuffix() = %q, want .eo", got)
	}
}

func TestLoad_FromSubdirectory(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "version: 2\n")

	sub := filepath.Join(root, "src", "asm")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Load(sub)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Config.Version != 2 {
		t.Errorf("Config.Version = %d, want 2", res.Config.Version)
	}
}

func TestLoad_NoFile(t *testing.T) {
	dir := t.TempDir()

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Path != "" {
		t.Errorf("Path = %q, want empty", res.Path)
	}
	if res.Config.RawTimeout != "" {
		t.Errorf("expected default config, got RawTimeout = %q", res.Config.RawTimeout)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "toolchain: [not, a, map\n")

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestLoad_InvalidTimeout(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "timeout: soon\n")

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for invalid timeout")
	}
}

func TestDefaults(t *testing.T) {
	c := &Config{}
	if c.Timeout() != DefaultTimeout {
		t.Errorf("Timeout() = %v, want %v", c.Timeout(), DefaultTimeout)
	}
	if c.MaxOutputBytes() != DefaultMaxOutput {
		t.Errorf("MaxOutputBytes() = %d, want %d", c.MaxOutputBytes(), DefaultMaxOutput)
	}
	if c.ArtifactSuffix() != DefaultSuffix {
		t.Errorf("ArtifactSuffix() = %q, want %q", c.ArtifactSuffix(), DefaultSuffix)
	}
	if c.CC() != DefaultCC || c.CXX() != DefaultCXX || c.Nasm() != DefaultNasm || c.Ld() != DefaultLd {
		t.Errorf("toolchain defaults = %s %s %s %s", c.CC(), c.CXX(), c.Nasm(), c.Ld())
	}
	if c.PkgConfig() != DefaultPkgConfig {
		t.Errorf("PkgConfig() = %q, want %q", c.PkgConfig(), DefaultPkgConfig)
	}
	if !reflect.DeepEqual(c.CPackages(), []string{"python3"}) {
		t.Errorf("CPackages() = %v, want [python3]", c.CPackages())
	}
	if c.HistoryPath() != "" {
		t.Errorf("HistoryPath() = %q, want empty", c.HistoryPath())
	}
	if c.HistoryCacheSize() != 5 {
		t.Errorf("HistoryCacheSize() = %d, want 5", c.HistoryCacheSize())
	}
}

func TestToolchainFromFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
toolchain:
  cc: /opt/gcc/bin/gcc
  nasm: /opt/nasm
c:
  args: [-std=c17, -O0]
  libs: []
  packages: []
asm:
  format: elf32
`)
	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c := res.Config
	if c.CC() != "/opt/gcc/bin/gcc" {
		t.Errorf("CC() = %q", c.CC())
	}
	if c.Nasm() != "/opt/nasm" {
		t.Errorf("Nasm() = %q", c.Nasm())
	}
	if !reflect.DeepEqual(c.CArgs(), []string{"-std=c17", "-O0"}) {
		t.Errorf("CArgs() = %v", c.CArgs())
	}
	// An empty libs list falls back to the defaults; an empty packages
	// list turns the query off.
	if !reflect.DeepEqual(c.CLibs(), DefaultCLibs) {
		t.Errorf("CLibs() = %v, want %v", c.CLibs(), DefaultCLibs)
	}
	if len(c.CPackages()) != 0 {
		t.Errorf("CPackages() = %v, want empty", c.CPackages())
	}
	if c.AsmFormat() != "elf32" {
		t.Errorf("AsmFormat() = %q, want elf32", c.AsmFormat())
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("EO_CC", "/env/cc")
	t.Setenv("EO_SUFFIX", ".out")
	t.Setenv("EO_TIMEOUT", "3s")
	t.Setenv("EO_MAX_OUTPUT", "2048")
	t.Setenv("EO_HISTORY", "/tmp/eo-history.db")

	c := &Config{Suffix: ".eo", RawTimeout: "1m", RawMaxOutput: 10}
	c.Toolchain.CC = "/file/cc"

	if c.CC() != "/env/cc" {
		t.Errorf("CC() = %q, want /env/cc", c.CC())
	}
	if c.ArtifactSuffix() != ".out" {
		t.Errorf("ArtifactSuffix() = %q, want .out", c.ArtifactSuffix())
	}
	if c.Timeout() != 3*time.Second {
		t.Errorf("Timeout() = %v, want 3s", c.Timeout())
	}
	if c.MaxOutputBytes() != 2048 {
		t.Errorf("MaxOutputBytes() = %d, want 2048", c.MaxOutputBytes())
	}
	if c.HistoryPath() != "/tmp/eo-history.db" {
		t.Errorf("HistoryPath() = %q", c.HistoryPath())
	}
}
