package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abramin/launchargs/internal/model"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvRemoteEndpoint, EnvProject, EnvTestKind, EnvLogLevel} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ".", cfg.Source.Dir)
	assert.NotEmpty(t, cfg.Source.Roots)
	assert.NotEmpty(t, cfg.Source.ExcludeDirs)
	assert.Equal(t, 30*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.HistoryEnabled())
	assert.Equal(t, "info", cfg.Log.Level)

	kind, err := cfg.Kind()
	require.NoError(t, err)
	assert.Equal(t, model.KindNone, kind)
}

func TestLoadNonExistent(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, Default().Source.Roots, cfg.Source.Roots)
}

func TestLoadFromFile(t *testing.T) {
	content := `
project: junit
test_kind: junit
filters:
  tags: ["foo", "!bar"]
source:
  dir: /work/junit
  roots: [src/test/java]
runner:
  port: 5005
  extra_args: ["-keepalive"]
remote:
  endpoint: http://localhost:9090
  timeout: 5s
history:
  enabled: false
log:
  level: debug
`
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))

	cfg, err := Load(filepath.Join(dir, FileName))
	require.NoError(t, err)

	assert.Equal(t, "junit", cfg.Project)
	assert.Equal(t, []string{"foo", "!bar"}, cfg.Filters.Tags)
	assert.Equal(t, "/work/junit", cfg.Source.Dir)
	assert.Equal(t, []string{"src/test/java"}, cfg.Source.Roots)
	assert.Equal(t, 5005, cfg.Runner.Port)
	assert.Equal(t, []string{"-keepalive"}, cfg.Runner.ExtraArgs)
	assert.Equal(t, "http://localhost:9090", cfg.Remote.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.Remote.Timeout)
	assert.False(t, cfg.HistoryEnabled())
	assert.Equal(t, "debug", cfg.Log.Level)

	// unset in the file, kept from defaults
	assert.Equal(t, Default().Source.ExcludeDirs, cfg.Source.ExcludeDirs)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, filepath.Join("/work/junit", ".launchargs"), cfg.HistoryDir())

	kind, err := cfg.Kind()
	require.NoError(t, err)
	assert.Equal(t, model.KindJUnit5, kind)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "project: [unclosed"},
		{"unknown kind", "test_kind: spock"},
		{"port out of range", "runner:\n  port: 70000"},
	}

	clearEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("project: junit\ntest_kind: junit4\n"), 0644))

	t.Setenv(EnvProject, "other")
	t.Setenv(EnvTestKind, "testng")
	t.Setenv(EnvRemoteEndpoint, "http://resolver:8080")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "other", cfg.Project)
	assert.Equal(t, "testng", cfg.TestKind)
	assert.Equal(t, "http://resolver:8080", cfg.Remote.Endpoint)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestApplyEnvIgnoresEmpty(t *testing.T) {
	cfg := Default()
	cfg.Project = "junit"
	cfg.ApplyEnv(func(string) string { return "" })
	assert.Equal(t, "junit", cfg.Project)
}

func TestMergeNil(t *testing.T) {
	cfg := Default()
	cfg.Merge(nil)
	assert.Equal(t, Default(), cfg)
}

func TestIsExcludedDir(t *testing.T) {
	cfg := Default()

	tests := []struct {
		dir      string
		excluded bool
	}{
		{"target", true},
		{"/path/to/build", true},
		{"src", false},
		{"/path/to/src/test/java", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.excluded, cfg.IsExcludedDir(tt.dir), tt.dir)
	}
}
