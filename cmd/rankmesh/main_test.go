package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gomlx/rankmesh/pkg/core/distributed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runApp runs the CLI with the given arguments, with colors disabled and an empty config file.
func runApp(t *testing.T, args ...string) (stdout string, err error) {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, nil, 0o644))
	return runAppWithConfig(t, configFile, args...)
}

func runAppWithConfig(t *testing.T, configFile string, args ...string) (stdout string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	fullArgs := append([]string{"rankmesh", "--no-color", "--config", configFile}, args...)
	err = newApp(&out, &errOut).Run(context.Background(), fullArgs)
	return out.String(), err
}

func TestGroupsCommand(t *testing.T) {
	out, err := runApp(t, "groups", "--format", "json", "dp")
	require.NoError(t, err)
	var got groupsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 8, got.WorldSize)
	assert.Equal(t, "tp-cp-dp-pp", got.Order)
	assert.Equal(t, [][]int{{0, 2}, {1, 3}, {4, 6}, {5, 7}}, got.Groups)

	out, err = runApp(t, "groups", "--format", "hlo", "--rank-offset", "8", "tp")
	require.NoError(t, err)
	assert.Equal(t, "replica_groups = dense<[[8, 9], [10, 11], [12, 13], [14, 15]]> : tensor<4x2xi64>\n", out)

	out, err = runApp(t, "groups", "--tp", "2", "--ep", "2", "--dp", "4", "--pp", "1",
		"--order", "tp-ep-dp", "--independent-ep", "ep")
	require.NoError(t, err)
	assert.Contains(t, out, "Ranks (ep)")
	assert.Contains(t, out, "0, 2")
	assert.Contains(t, out, "5, 7")
}

func TestGroupsCommandErrors(t *testing.T) {
	_, err := runApp(t, "groups")
	require.ErrorContains(t, err, "missing DIMS")

	_, err = runApp(t, "groups", "ep")
	require.ErrorIs(t, err, distributed.ErrQuery)

	_, err = runApp(t, "groups", "--order", "tp-dp", "tp")
	require.ErrorIs(t, err, distributed.ErrMissingDimension)

	_, err = runApp(t, "groups", "--format", "yaml", "tp")
	require.ErrorContains(t, err, "unknown format")
}

func TestInfoCommand(t *testing.T) {
	out, err := runApp(t, "info", "--tp", "8", "--dp", "256", "--pp", "1", "--order", "tp-dp")
	require.NoError(t, err)
	assert.Contains(t, out, "2,048")
	assert.Contains(t, out, "Group Stride")
	assert.Contains(t, out, "tp-dp-pp-ep-cp")
}

func TestGridCommand(t *testing.T) {
	out, err := runApp(t, "grid", "--columns", "4", "pp")
	require.NoError(t, err)
	assert.Contains(t, out, "Rank 7")
	assert.Contains(t, out, "Group 3")
}

func TestSweepCommand(t *testing.T) {
	out, err := runApp(t, "sweep", "--tp", "2", "--ep", "2", "--dp", "4", "--pp", "1", "--parallelism", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "4 valid orders, 2 invalid orders")
}

func TestVersionCommand(t *testing.T) {
	out, err := runApp(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version:")
}

func TestConfigDefaults(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(`
tp: 4
pp: 1
order: tp-dp
format: json
presets:
  moe:
    ep: 2
    dp: 4
    order: tp-ep-dp
    independent_ep: true
`), 0o644))

	out, err := runAppWithConfig(t, configFile, "groups", "tp")
	require.NoError(t, err)
	var got groupsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 8, got.WorldSize)
	assert.Equal(t, [][]int{{0, 1, 2, 3}, {4, 5, 6, 7}}, got.Groups)

	// Flags take precedence over the config file.
	out, err = runAppWithConfig(t, configFile, "groups", "--tp", "2", "tp")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 4, got.WorldSize)

	// Preset fields take precedence over the top-level ones.
	out, err = runAppWithConfig(t, configFile, "groups", "--preset", "moe", "ep")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 16, got.WorldSize)
	assert.Equal(t, "tp-ep-dp-pp-cp", got.Order)

	_, err = runAppWithConfig(t, configFile, "groups", "--preset", "dense", "tp")
	require.ErrorContains(t, err, `preset "dense" not found`)

	_, err = runAppWithConfig(t, filepath.Join(t.TempDir(), "missing.yaml"), "groups", "tp")
	require.ErrorContains(t, err, "not found")
}
