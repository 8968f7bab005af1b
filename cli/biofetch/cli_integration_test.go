//go:build integration

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/biofetch/test/testutil"
)

// writeTestConfig writes a config pointing at a per-test cache directory and
// returns its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := "settings:\n  cache_dir: " + filepath.Join(dir, "cache") + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	return configPath
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newRootCmd()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	output, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, output, "biofetch version")
}

func TestCacheDirCommand(t *testing.T) {
	configPath := writeTestConfig(t)
	output, err := runCommand(t, "--config", configPath, "cache", "dir")
	require.NoError(t, err)
	assert.Contains(t, output, "cache")
}

func TestFetchCommand(t *testing.T) {
	fixtures := t.TempDir()
	testutil.WriteFixture(t, fixtures, "data.txt", []byte("integration payload"))
	server := testutil.NewFileServer(t, fixtures)

	configPath := writeTestConfig(t)
	outFile := filepath.Join(t.TempDir(), "out.txt")

	_, err := runCommand(t, "--config", configPath,
		"fetch", server.URL+"/data.txt", "--out", outFile)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, "integration payload", string(data))
}

func TestFetchCommandDryRun(t *testing.T) {
	configPath := writeTestConfig(t)

	output, err := runCommand(t, "--config", configPath,
		"fetch", "https://example.org/resource.txt", "--dry-run")
	require.NoError(t, err)
	assert.NotEmpty(t, output)
}

func TestCacheInfoCommand(t *testing.T) {
	configPath := writeTestConfig(t)
	output, err := runCommand(t, "--config", configPath, "cache", "info")
	require.NoError(t, err)
	assert.Contains(t, output, "Cache Directory:")
}

func TestConfigShowCommand(t *testing.T) {
	configPath := writeTestConfig(t)
	output, err := runCommand(t, "--config", configPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, output, "cache_dir")
	assert.Contains(t, output, "log_level")
}
