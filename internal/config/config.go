// Package config loads the optional .eo.yaml file and applies
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file.
const FileName = ".eo.yaml"

// Default values for runner and artifact configuration.
const (
	DefaultTimeout   = time.Duration(0) // no timeout
	DefaultMaxOutput = 1 << 20          // 1 MB
	DefaultSuffix    = ".bin"
)

// Config holds the parsed .eo.yaml configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int             `yaml:"version"`
	Suffix       string          `yaml:"suffix"`     // appended to the source name
	RawTimeout   string          `yaml:"timeout"`    // e.g. "5m", "30s"
	RawMaxOutput int             `yaml:"max_output"` // bytes per stream
	Toolchain    ToolchainConfig `yaml:"toolchain"`
	Asm          AsmConfig       `yaml:"asm"`
	C            CConfig         `yaml:"c"`
	Cpp          CppConfig       `yaml:"cpp"`
	History      HistoryConfig   `yaml:"history"`
}

// ToolchainConfig holds the paths of the external executables.
type ToolchainConfig struct {
	Nasm      string `yaml:"nasm"`
	Ld        string `yaml:"ld"`
	CC        string `yaml:"cc"`
	CXX       string `yaml:"cxx"`
	PkgConfig string `yaml:"pkg_config"`
}

// AsmConfig controls how assembly sources are assembled and linked.
type AsmConfig struct {
	Format string   `yaml:"format"` // nasm output format (default: elf64)
	Args   []string `yaml:"args"`   // extra nasm flags
}

// CConfig controls how C sources are compiled.
type CConfig struct {
	Args     []string `yaml:"args"`     // replaces the default -std/-O/-W flags
	Libs     []string `yaml:"libs"`     // replaces the default -l flags
	Packages []string `yaml:"packages"` // pkg-config packages; empty list disables the query
}

// CppConfig controls how C++ sources are compiled.
type CppConfig struct {
	Args []string `yaml:"args"`
	Libs []string `yaml:"libs"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Path      string `yaml:"path"`       // SQLite file; empty disables history
	CacheSize int    `yaml:"cache_size"` // in-memory LRU entries (default: 5)
}

// Timeout returns the configured timeout or the default.
func (c *Config) Timeout() time.Duration {
	raw := env.Str("EO_TIMEOUT", c.RawTimeout)
	if raw != "" {
		d, err := time.ParseDuration(raw)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if n := env.Int("EO_MAX_OUTPUT", 0); n > 0 {
		return n
	}
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// ArtifactSuffix returns the suffix appended to the source name to form
// the binary name.
func (c *Config) ArtifactSuffix() string {
	return env.Str("EO_SUFFIX", or(c.Suffix, DefaultSuffix))
}

// HistoryPath returns the history database path, or "" when disabled.
func (c *Config) HistoryPath() string {
	return env.Str("EO_HISTORY", c.History.Path)
}

// HistoryCacheSize returns the LRU size for run records.
func (c *Config) HistoryCacheSize() int {
	if c.History.CacheSize > 0 {
		return c.History.CacheSize
	}
	return 5
}

// Default toolchain paths, matching a stock Linux install.
const (
	DefaultNasm      = "/usr/bin/nasm"
	DefaultLd        = "/usr/bin/ld"
	DefaultCC        = "/usr/bin/gcc"
	DefaultCXX       = "/usr/bin/g++"
	DefaultPkgConfig = "/usr/bin/pkg-config"
)

// Nasm returns the assembler path.
func (c *Config) Nasm() string { return env.Str("EO_NASM", or(c.Toolchain.Nasm, DefaultNasm)) }

// Ld returns the linker path.
func (c *Config) Ld() string { return env.Str("EO_LD", or(c.Toolchain.Ld, DefaultLd)) }

// CC returns the C compiler path.
func (c *Config) CC() string { return env.Str("EO_CC", or(c.Toolchain.CC, DefaultCC)) }

// CXX returns the C++ compiler path.
func (c *Config) CXX() string { return env.Str("EO_CXX", or(c.Toolchain.CXX, DefaultCXX)) }

// PkgConfig returns the package-configuration query tool path.
func (c *Config) PkgConfig() string {
	return env.Str("EO_PKG_CONFIG", or(c.Toolchain.PkgConfig, DefaultPkgConfig))
}

// DefaultAsmFormat is the nasm output format.
const DefaultAsmFormat = "elf64"

// AsmFormat returns the configured nasm output format.
func (c *Config) AsmFormat() string { return or(c.Asm.Format, DefaultAsmFormat) }

// Default compiler flags.
var (
	DefaultCArgs     = []string{"-std=c11", "-O3", "-Wall", "-Werror"}
	DefaultCLibs     = []string{"-lm", "-ljson-c", "-lmylib"}
	DefaultCPackages = []string{"python3"}
	DefaultCppArgs   = []string{"-std=c++11", "-O3", "-Wall", "-Werror"}
)

// CArgs returns the C base flags, falling back to defaults.
func (c *Config) CArgs() []string { return orSlice(c.C.Args, DefaultCArgs) }

// CLibs returns the C link flags, falling back to defaults.
func (c *Config) CLibs() []string { return orSlice(c.C.Libs, DefaultCLibs) }

// CPackages returns the pkg-config packages queried for C builds. An
// explicit empty list in the file disables the query.
func (c *Config) CPackages() []string {
	if c.C.Packages != nil {
		return c.C.Packages
	}
	return DefaultCPackages
}

// CppArgs returns the C++ base flags, falling back to defaults.
func (c *Config) CppArgs() []string { return orSlice(c.Cpp.Args, DefaultCppArgs) }

// CppLibs returns the C++ link flags. There are none by default.
func (c *Config) CppLibs() []string { return c.Cpp.Libs }

func or(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func orSlice(v, def []string) []string {
	if len(v) > 0 {
		return v
	}
	return def
}

// LoadResult holds the parsed config and where it came from.
type LoadResult struct {
	Config *Config
	Path   string // file that was read; empty when defaults are used
}

// Load reads the .eo.yaml file from dir or the nearest parent that has
// one. If no file exists, a default Config is returned.
func Load(dir string) (*LoadResult, error) {
	path, err := findConfig(dir)
	if err != nil {
		return &LoadResult{Config: &Config{}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &LoadResult{Config: cfg, Path: path}, nil
}

func (c *Config) validate() error {
	if c.RawTimeout != "" {
		if _, err := time.ParseDuration(c.RawTimeout); err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
	}
	if c.RawMaxOutput < 0 {
		return fmt.Errorf("max_output: must not be negative, got %d", c.RawMaxOutput)
	}
	return nil
}

// findConfig walks upward from dir looking for a directory containing
// the configuration file.
func findConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", FileName)
		}
		dir = parent
	}
}
