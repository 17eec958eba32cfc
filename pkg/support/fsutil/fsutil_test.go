package fsutil

import (
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	exists, err := FileExists(path)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, os.WriteFile(path, []byte("tp: 2\n"), 0o644))
	exists, err = FileExists(path)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReplaceTildeInPath(t *testing.T) {
	got, err := ReplaceTildeInPath("/etc/rankmesh.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/rankmesh.yaml", got)

	usr, err := user.Current()
	if err != nil {
		t.Skipf("no current user: %v", err)
	}
	got, err = ReplaceTildeInPath("~/rankmesh/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(usr.HomeDir, "rankmesh/config.yaml"), got)

	got, err = ReplaceTildeInPath("~")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(usr.HomeDir), got)
}
