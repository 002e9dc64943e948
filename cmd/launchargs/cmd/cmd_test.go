package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abramin/launchargs/internal/config"
	"github.com/abramin/launchargs/internal/model"
	"github.com/abramin/launchargs/internal/store"
)

const handle = `=junit/src\/test\/java=/optional=/true=/=/maven.pomderived=/true=/=/test=/true=/<junit5{ParameterizedAnnotationTest.java[ParameterizedAnnotationTest~canRunWithComment~QString;~QBoolean;`

// run executes the root command against a config in a fresh project dir.
func run(t *testing.T, configYAML string, args ...string) (string, string, error) {
	t.Helper()
	return runIn(t, t.TempDir(), configYAML, args...)
}

// runIn executes the root command against a config whose source dir is dir.
func runIn(t *testing.T, dir, configYAML string, args ...string) (string, string, error) {
	t.Helper()
	for _, key := range []string{"LAUNCHARGS_REMOTE_ENDPOINT", "LAUNCHARGS_PROJECT", "LAUNCHARGS_TEST_KIND", "LAUNCHARGS_LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfgPath := filepath.Join(dir, "launchargs.yaml")
	configYAML = "source:\n  dir: " + dir + "\n" + configYAML
	require.NoError(t, os.WriteFile(cfgPath, []byte(configYAML), 0644))

	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			if _, ok := f.Value.(pflag.SliceValue); !ok {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	}

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := rootCmd.Execute()
	return stdout.String(), dir, err
}

func TestDecodeCommand(t *testing.T) {
	out, _, err := run(t, "", "decode", handle)
	require.NoError(t, err)
	assert.Equal(t, "junit5.ParameterizedAnnotationTest:canRunWithComment(java.lang.String,java.lang.Boolean)\n", out)

	out, _, err = run(t, "", "decode", "--level", "class", "--json", handle)
	require.NoError(t, err)
	var selectors []string
	require.NoError(t, json.Unmarshal([]byte(out), &selectors))
	assert.Equal(t, []string{"junit5.ParameterizedAnnotationTest"}, selectors)
}

func TestDecodeCommandMalformed(t *testing.T) {
	_, _, err := run(t, "", "decode", `=junit<junit5{FooTest.java`)
	assert.Error(t, err)
}

func TestTagsCommand(t *testing.T) {
	out, _, err := run(t, "test_kind: junit\nfilters:\n  tags: [foo, \"!bar\"]\n", "tags")
	require.NoError(t, err)
	assert.Equal(t, "--include-tag\nfoo\n--exclude-tag\nbar\n", out)

	out, _, err = run(t, "", "tags", "--kind", "testng", "foo")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestResolveCommandRecordsHistory(t *testing.T) {
	out, dir, err := run(t, "project: junit\ntest_kind: junit\nfilters:\n  tags: [fast]\n", "resolve", "--json", handle)
	require.NoError(t, err)

	var args model.LaunchArguments
	require.NoError(t, json.Unmarshal([]byte(out), &args))
	assert.Equal(t, "junit", args.ProjectName)
	n := len(args.ProgramArguments)
	require.GreaterOrEqual(t, n, 4)
	assert.Equal(t, []string{"--include-tag", "fast", "-test"}, args.ProgramArguments[n-4:n-1])
	assert.True(t, strings.HasPrefix(args.ProgramArguments[n-1], "junit5.ParameterizedAnnotationTest:canRunWithComment("))

	st, err := store.Open(filepath.Join(dir, store.DefaultDir))
	require.NoError(t, err)
	defer st.Close()
	entries, err := st.Recent(testContext(t), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{handle}, entries[0].TestNames)
}

func TestResolveCommandRequiresKind(t *testing.T) {
	_, _, err := run(t, "history:\n  enabled: false\n", "resolve", handle)
	assert.Error(t, err)
}

func TestHistoryClear(t *testing.T) {
	dir := t.TempDir()
	config := "project: junit\ntest_kind: junit\n"
	_, _, err := runIn(t, dir, config, "resolve", handle)
	require.NoError(t, err)

	out, _, err := runIn(t, dir, config, "history", "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared history")

	st, err := store.Open(filepath.Join(dir, store.DefaultDir))
	require.NoError(t, err)
	defer st.Close()
	stats, err := st.GetStats(testContext(t))
	require.NoError(t, err)
	assert.Zero(t, stats.ResolutionCount)
}

func TestDecodeHonoursExcludeDirs(t *testing.T) {
	dir := t.TempDir()
	for path, content := range map[string]string{
		"legacy/FooTest.java":  "package stale;",
		"modules/FooTest.java": "package com.acme;",
	} {
		full := filepath.Join(dir, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	defaultPackage := `=junit/missing<{FooTest.java[FooTest`

	out, _, err := runIn(t, dir, "", "decode", "--level", "class", defaultPackage)
	require.NoError(t, err)
	assert.Equal(t, "stale.FooTest\n", out)

	out, _, err = runIn(t, dir, "  exclude_dirs: [legacy]\n", "decode", "--level", "class", defaultPackage)
	require.NoError(t, err)
	assert.Equal(t, "com.acme.FooTest\n", out)
}

func TestServePortDefaultsToConfig(t *testing.T) {
	assert.Equal(t, "0", serveCmd.Flags().Lookup("port").DefValue)

	cfg := config.Default()
	assert.Equal(t, cfg.Server.Port, listenPort(cfg, 0))
	assert.Equal(t, 9191, listenPort(cfg, 9191))

	cfg.Server.Port = 7070
	assert.Equal(t, 7070, listenPort(cfg, 0))
}

// testContext returns a context cancelled when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
