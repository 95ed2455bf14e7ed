package guard

import (
	"os"
	"path/filepath"
	"testing"

	pperrors "github.com/filegirl/filegirl/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestMirror_InitialBackup(t *testing.T) {
	tmp := t.TempDir()
	protected := filepath.Join(tmp, "www", "html")
	backupRoot := filepath.Join(tmp, "backup")

	makeTree(t, protected, map[string]string{
		"index.html":   "home",
		"css/site.css": "body{}",
	})

	m := NewMirror(zaptest.NewLogger(t))
	require.NoError(t, m.InitialBackup(protected, backupRoot))

	assert.Equal(t, "home", readFile(t, filepath.Join(backupRoot, "html", "index.html")))
	assert.Equal(t, "body{}", readFile(t, filepath.Join(backupRoot, "html", "css", "site.css")))

	t.Run("overwrites an existing backup", func(t *testing.T) {
		makeTree(t, protected, map[string]string{"index.html": "home v2"})
		require.NoError(t, m.InitialBackup(protected, backupRoot))
		assert.Equal(t, "home v2", readFile(t, filepath.Join(backupRoot, "html", "index.html")))
	})

	t.Run("missing source fails", func(t *testing.T) {
		err := m.InitialBackup(filepath.Join(tmp, "missing"), backupRoot)
		require.Error(t, err)
		assert.True(t, pperrors.IsIOError(err))
	})

	t.Run("overlapping destination is refused", func(t *testing.T) {
		for name, root := range map[string]string{
			"parent":      filepath.Dir(protected),
			"inside":      filepath.Join(protected, "css"),
			"own subtree": filepath.Join(protected, "html"),
		} {
			err := m.InitialBackup(protected, root)
			require.Error(t, err, name)
			assert.True(t, pperrors.IsIOError(err), name)
		}
		assert.Equal(t, "home v2", readFile(t, filepath.Join(protected, "index.html")))
		assert.NoDirExists(t, filepath.Join(protected, "html"))
	})
}

func TestMirror_Restore(t *testing.T) {
	tmp := t.TempDir()
	protected := filepath.Join(tmp, "p")
	backupRoot := filepath.Join(tmp, "backup")

	makeTree(t, protected, map[string]string{
		"a.txt":     "original",
		"sub/b.txt": "nested",
	})

	m := NewMirror(zaptest.NewLogger(t))
	require.NoError(t, m.InitialBackup(protected, backupRoot))

	t.Run("file over tampered content", func(t *testing.T) {
		makeTree(t, protected, map[string]string{"a.txt": "defaced"})

		require.NoError(t, m.Restore(filepath.Join(backupRoot, "p", "a.txt"), protected))
		assert.Equal(t, "original", readFile(t, filepath.Join(protected, "a.txt")))
		assert.Equal(t, "original", readFile(t, filepath.Join(backupRoot, "p", "a.txt")), "backup must stay pristine")
	})

	t.Run("deleted directory", func(t *testing.T) {
		require.NoError(t, os.RemoveAll(filepath.Join(protected, "sub")))

		require.NoError(t, m.Restore(filepath.Join(backupRoot, "p", "sub"), protected))
		assert.Equal(t, "nested", readFile(t, filepath.Join(protected, "sub", "b.txt")))
	})

	t.Run("directory that still holds extra content", func(t *testing.T) {
		makeTree(t, protected, map[string]string{
			"sub/b.txt":    "defaced",
			"sub/evil.php": "<?php",
		})

		require.NoError(t, m.Restore(filepath.Join(backupRoot, "p", "sub"), protected))
		assert.Equal(t, "nested", readFile(t, filepath.Join(protected, "sub", "b.txt")))
		assert.NoFileExists(t, filepath.Join(backupRoot, "p", "sub", "evil.php"))
	})

	t.Run("deleted root", func(t *testing.T) {
		require.NoError(t, os.RemoveAll(protected))

		require.NoError(t, m.Restore(filepath.Join(backupRoot, "p"), tmp))
		assert.Equal(t, "original", readFile(t, filepath.Join(protected, "a.txt")))
		assert.Equal(t, "nested", readFile(t, filepath.Join(protected, "sub", "b.txt")))
	})

	t.Run("missing backup fails", func(t *testing.T) {
		err := m.Restore(filepath.Join(backupRoot, "p", "never.txt"), protected)
		require.Error(t, err)
		assert.True(t, pperrors.IsIOError(err))
	})
}

func TestMirror_Quarantine(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "shell.php")
	require.NoError(t, os.WriteFile(src, []byte("<?php evil();"), 0644))

	m := NewMirror(zaptest.NewLogger(t))
	dest := filepath.Join(tmp, "quarantine", "incident-1")
	require.NoError(t, m.Quarantine(src, dest))

	assert.Equal(t, "<?php evil();", readFile(t, filepath.Join(dest, "shell.php")))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestMirror_Delete(t *testing.T) {
	tmp := t.TempDir()
	makeTree(t, tmp, map[string]string{
		"file.txt":       "x",
		"dir/nested.txt": "y",
	})

	m := NewMirror(zaptest.NewLogger(t))
	require.NoError(t, m.Delete(
		filepath.Join(tmp, "file.txt"),
		filepath.Join(tmp, "dir"),
		filepath.Join(tmp, "already-gone"),
	))

	_, err := os.Stat(filepath.Join(tmp, "file.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(tmp, "dir"))
	assert.True(t, os.IsNotExist(err))
}

func TestMirror_EnsureRoot(t *testing.T) {
	tmp := t.TempDir()
	m := NewMirror(zaptest.NewLogger(t))

	root := filepath.Join(tmp, "a", "b", "backup")
	require.NoError(t, m.EnsureRoot(root))
	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	blocker := filepath.Join(tmp, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	err = m.EnsureRoot(filepath.Join(blocker, "backup"))
	require.Error(t, err)
	assert.True(t, pperrors.IsIOError(err))
}
