package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Nil(t, cfg.TP)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tp: 8
rank_offset: 64
server_address: 0.0.0.0:9000
max_world_size: 4096
presets:
  big:
    dp: 128
    order: tp-cp-dp-pp
`), 0o644))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.TP)
	assert.Equal(t, int64(8), *cfg.TP)
	assert.Nil(t, cfg.DP)
	assert.Equal(t, int64(64), *cfg.RankOffset)
	assert.Equal(t, "0.0.0.0:9000", cfg.ServerAddress)
	assert.Equal(t, int64(4096), cfg.MaxWorldSize)

	tc, err := cfg.Topology("big")
	require.NoError(t, err)
	assert.Equal(t, int64(8), *tc.TP)
	assert.Equal(t, int64(128), *tc.DP)
	assert.Equal(t, "tp-cp-dp-pp", *tc.Order)

	tc, err = cfg.Topology("")
	require.NoError(t, err)
	assert.Nil(t, tc.Order)

	require.NoError(t, os.WriteFile(path, []byte("tp: [1, 2\n"), 0o644))
	_, err = LoadConfig(path)
	require.ErrorContains(t, err, "parsing config file")
}
