package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.yaml")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	require.NoError(t, persist(path, []byte("new")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "original permissions carry over")

	_, err = os.Stat(path + backupSuffix)
	assert.True(t, os.IsNotExist(err), "backup is removed after a clean write")
}

func TestPersistRestoresOnWriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.yaml")
	require.NoError(t, os.WriteFile(path, []byte("precious"), 0o644))

	boom := errors.New("disk full")
	err := persistWith(path, []byte("partial"), func(string, []byte, os.FileMode) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, readErr := os.ReadFile(path)
	require.NoError(t, readErr, "original must never be left missing")
	assert.Equal(t, "precious", string(got), "original must never be left truncated")

	_, statErr := os.Stat(path + backupSuffix)
	assert.True(t, os.IsNotExist(statErr), "backup is consumed by the restore")
}

func TestPersistMissingTarget(t *testing.T) {
	err := persist(filepath.Join(t.TempDir(), "absent.yaml"), []byte("x"))
	assert.Error(t, err)
}
