package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"sigil/internal/trace"
)

// ConfigFileName is looked up from the working directory upwards.
const ConfigFileName = "sigil.toml"

// Config is the content of sigil.toml. Zero values mean "use the default".
type Config struct {
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
	Trace       TraceConfig       `toml:"trace"`
	Resolve     ResolveConfig     `toml:"resolve"`
}

type DiagnosticsConfig struct {
	Max    int    `toml:"max"`
	Format string `toml:"format"` // pretty, json or sarif
}

type TraceConfig struct {
	Level  string `toml:"level"`
	Mode   string `toml:"mode"`
	Output string `toml:"output"`
}

type ResolveConfig struct {
	// PreallocateNames sizes the name table before loading.
	PreallocateNames int `toml:"preallocate_names"`
	// StdlibPayload lists hierarchy documents loaded as payload files
	// ahead of user input. Relative paths are taken from the config file.
	StdlibPayload []string `toml:"stdlib_payload"`
}

// DefaultConfig returns the settings used without a sigil.toml.
func DefaultConfig() Config {
	return Config{
		Diagnostics: DiagnosticsConfig{Max: 100, Format: "pretty"},
		Trace:       TraceConfig{Level: "off", Mode: "ring"},
	}
}

// FindConfig walks up from startDir looking for sigil.toml.
func FindConfig(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadConfig decodes path over the defaults and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	base := filepath.Dir(path)
	for i, p := range cfg.Resolve.StdlibPayload {
		if !filepath.IsAbs(p) {
			cfg.Resolve.StdlibPayload[i] = filepath.Join(base, filepath.FromSlash(p))
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Diagnostics.Format) {
	case "pretty", "json", "sarif":
	default:
		return fmt.Errorf("[diagnostics].format must be pretty, json or sarif, got %q", c.Diagnostics.Format)
	}
	if c.Diagnostics.Max < 0 {
		return fmt.Errorf("[diagnostics].max must not be negative")
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return fmt.Errorf("[trace].level: %w", err)
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		return fmt.Errorf("[trace].mode: %w", err)
	}
	if n := c.Resolve.PreallocateNames; n < 0 || n > 1<<24 {
		return fmt.Errorf("[resolve].preallocate_names must be between 0 and %d, got %d", 1<<24, n)
	}
	return nil
}

// DiscoverConfig loads sigil.toml found from startDir, or the defaults.
// The returned path is empty when no file was found.
func DiscoverConfig(startDir string) (Config, string, error) {
	path, ok, err := FindConfig(startDir)
	if err != nil {
		return Config{}, "", err
	}
	if !ok {
		return DefaultConfig(), "", nil
	}
	cfg, err := LoadConfig(path)
	return cfg, path, err
}
