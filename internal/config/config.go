package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abramin/launchargs/internal/model"
)

// FileName is the configuration file looked up when no path is given.
const FileName = "launchargs.yaml"

// Config represents the launchargs configuration.
type Config struct {
	Project  string        `yaml:"project"`
	TestKind string        `yaml:"test_kind"`
	Filters  FiltersConfig `yaml:"filters"`
	Source   SourceConfig  `yaml:"source"`
	Runner   RunnerConfig  `yaml:"runner"`
	Remote   RemoteConfig  `yaml:"remote"`
	Server   ServerConfig  `yaml:"server"`
	History  HistoryConfig `yaml:"history"`
	Log      LogConfig     `yaml:"log"`
}

// FiltersConfig holds tag filter expressions; a leading '!' excludes.
type FiltersConfig struct {
	Tags []string `yaml:"tags"`
}

// SourceConfig locates the Java sources used to resolve type names.
type SourceConfig struct {
	Dir         string   `yaml:"dir"`
	Roots       []string `yaml:"roots"`
	ExcludeDirs []string `yaml:"exclude_dirs"`
}

// RunnerConfig holds the configurable runner flags.
type RunnerConfig struct {
	Port      int      `yaml:"port"`
	ExtraArgs []string `yaml:"extra_args"`
}

// RemoteConfig points at a resolution service. An empty endpoint resolves
// locally.
type RemoteConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ServerConfig configures `launchargs serve`.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// HistoryConfig configures the resolution history database.
type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	enabled := true
	return &Config{
		Source: SourceConfig{
			Dir:         ".",
			Roots:       []string{"src/test/java", "src/main/java"},
			ExcludeDirs: []string{"target", "build", "out", "node_modules"},
		},
		Remote: RemoteConfig{
			Timeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		History: HistoryConfig{
			Enabled: &enabled,
			Dir:     ".launchargs",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from file, falling back to defaults, then applies
// environment overrides. If configPath is empty, it looks for launchargs.yaml
// in the current directory. Values set in the file replace defaults.
func Load(configPath string) (*Config, error) {
	cfg, err := loadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(configPath string) (*Config, error) {
	defaults := Default()

	if configPath == "" {
		configPath = FileName
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaults, nil
		}
		return nil, err
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configPath, err)
	}

	defaults.Merge(&fileCfg)
	return defaults, nil
}

// Merge combines another config into this one, with other taking precedence.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Project != "" {
		c.Project = other.Project
	}
	if other.TestKind != "" {
		c.TestKind = other.TestKind
	}
	if len(other.Filters.Tags) > 0 {
		c.Filters.Tags = other.Filters.Tags
	}
	if other.Source.Dir != "" {
		c.Source.Dir = other.Source.Dir
	}
	if len(other.Source.Roots) > 0 {
		c.Source.Roots = other.Source.Roots
	}
	if len(other.Source.ExcludeDirs) > 0 {
		c.Source.ExcludeDirs = other.Source.ExcludeDirs
	}
	if other.Runner.Port != 0 {
		c.Runner.Port = other.Runner.Port
	}
	if len(other.Runner.ExtraArgs) > 0 {
		c.Runner.ExtraArgs = other.Runner.ExtraArgs
	}
	if other.Remote.Endpoint != "" {
		c.Remote.Endpoint = other.Remote.Endpoint
	}
	if other.Remote.Timeout != 0 {
		c.Remote.Timeout = other.Remote.Timeout
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.History.Enabled != nil {
		c.History.Enabled = other.History.Enabled
	}
	if other.History.Dir != "" {
		c.History.Dir = other.History.Dir
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Development {
		c.Log.Development = true
	}
}

// Environment variables that override file values.
const (
	EnvRemoteEndpoint = "LAUNCHARGS_REMOTE_ENDPOINT"
	EnvProject        = "LAUNCHARGS_PROJECT"
	EnvTestKind       = "LAUNCHARGS_TEST_KIND"
	EnvLogLevel       = "LAUNCHARGS_LOG_LEVEL"
)

// ApplyEnv applies non-empty environment overrides read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	overrides := []struct {
		key  string
		dest *string
	}{
		{EnvRemoteEndpoint, &c.Remote.Endpoint},
		{EnvProject, &c.Project},
		{EnvTestKind, &c.TestKind},
		{EnvLogLevel, &c.Log.Level},
	}
	for _, o := range overrides {
		if v := getenv(o.key); v != "" {
			*o.dest = v
		}
	}
}

// Validate checks values that would otherwise fail later.
func (c *Config) Validate() error {
	if _, err := c.Kind(); err != nil {
		return fmt.Errorf("test_kind: %w", err)
	}
	if c.Runner.Port < 0 || c.Runner.Port > 65535 {
		return fmt.Errorf("runner.port %d out of range", c.Runner.Port)
	}
	if c.Remote.Timeout < 0 {
		return fmt.Errorf("remote.timeout must not be negative")
	}
	return nil
}

// Kind returns the configured test kind. "junit" selects JUnit 5; an unset
// kind disables tag filtering.
func (c *Config) Kind() (model.TestKind, error) {
	return model.ParseTestKind(c.TestKind)
}

// HistoryEnabled reports whether resolutions are recorded.
func (c *Config) HistoryEnabled() bool {
	return c.History.Enabled == nil || *c.History.Enabled
}

// HistoryDir returns the history directory, resolved against the source dir
// when relative.
func (c *Config) HistoryDir() string {
	if filepath.IsAbs(c.History.Dir) {
		return c.History.Dir
	}
	return filepath.Join(c.Source.Dir, c.History.Dir)
}

// IsExcludedDir checks if a directory is skipped when searching for sources.
func (c *Config) IsExcludedDir(dir string) bool {
	base := filepath.Base(dir)
	for _, excluded := range c.Source.ExcludeDirs {
		if base == excluded {
			return true
		}
	}
	return false
}
