package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestIsEmpty(t *testing.T) {
	dir := t.TempDir()

	empty, err := IsEmpty(dir)
	require.NoError(t, err)
	require.True(t, empty)

	err = os.WriteFile(filepath.Join(dir, "PG_VERSION"), []byte("12"), 0600)
	require.NoError(t, err)

	empty, err = IsEmpty(dir)
	require.NoError(t, err)
	require.False(t, empty)

	_, err = IsEmpty(filepath.Join(dir, "does-not-exist"))
	require.Error(t, err)
}

func TestRemoveContents(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "base", "pg_wal"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "postgresql.conf"), []byte("# config"), 0600))

	err := RemoveContents(dir)
	require.NoError(t, err)

	empty, err := IsEmpty(dir)
	require.NoError(t, err)
	require.True(t, empty)

	// the directory itself has to survive
	_, err = os.Stat(dir)
	require.NoError(t, err)
}

func TestCopy(t *testing.T) {
	fs := afero.NewMemMapFs()

	err := afero.WriteFile(fs, "src", []byte("content"), 0600)
	require.NoError(t, err)

	err = Copy(fs, "src", "dst")
	require.NoError(t, err)

	content, err := afero.ReadFile(fs, "dst")
	require.NoError(t, err)
	require.Equal(t, []byte("content"), content)

	err = Copy(fs, "missing", "dst")
	require.Error(t, err)
}
