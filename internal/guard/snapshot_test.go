package guard

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTree creates files (relative path -> content) under root
func makeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestBuildSnapshot_MatchesIndependentWalk(t *testing.T) {
	root := filepath.Join(t.TempDir(), "html")
	makeTree(t, root, map[string]string{
		"index.html":       "<html/>",
		"css/site.css":     "body{}",
		"js/app.js":        "alert(1)",
		"img/icons/a.svg":  "<svg/>",
		"img/icons/b.svg":  "<svg/>",
		"docs/readme.txt":  "docs",
		"docs/empty/.keep": "",
	})
	require.NoError(t, os.Mkdir(filepath.Join(root, "empty"), 0755))

	h, err := NewHasher(HashSHA256)
	require.NoError(t, err)

	snap := BuildSnapshot(root, h)

	expected := make(map[string]Entry)
	require.NoError(t, filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		require.NoError(t, err)
		if d.IsDir() {
			expected[path] = Dir()
			return nil
		}
		hash, ok := h.Fingerprint(path)
		require.True(t, ok)
		expected[path] = File(hash)
		return nil
	}))

	assert.Equal(t, expected, snap.entries)
	assert.Equal(t, root, snap.Root())

	rootEntry, ok := snap.Lookup(root)
	require.True(t, ok)
	assert.True(t, rootEntry.IsDir)

	fileEntry, ok := snap.Lookup(filepath.Join(root, "css", "site.css"))
	require.True(t, ok)
	assert.False(t, fileEntry.IsDir)
	assert.NotEmpty(t, fileEntry.Hash)
}

func TestBuildSnapshot_Idempotent(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]string{"a.txt": "a", "sub/b.txt": "b"})

	h, err := NewHasher(HashMD5)
	require.NoError(t, err)

	assert.Equal(t, BuildSnapshot(root, h).entries, BuildSnapshot(root, h).entries)
}

func TestBuildSnapshot_MissingRoot(t *testing.T) {
	h, err := NewHasher(HashSHA256)
	require.NoError(t, err)

	snap := BuildSnapshot(filepath.Join(t.TempDir(), "missing"), h)
	assert.Equal(t, 0, snap.Len())
}

func TestBuildSnapshot_SkipsUnreadableFiles(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read everything")
	}

	root := t.TempDir()
	makeTree(t, root, map[string]string{"ok.txt": "ok", "secret.txt": "secret"})
	secret := filepath.Join(root, "secret.txt")
	require.NoError(t, os.Chmod(secret, 0000))
	defer os.Chmod(secret, 0644)

	h, err := NewHasher(HashSHA256)
	require.NoError(t, err)
	snap := BuildSnapshot(root, h)

	_, ok := snap.Lookup(secret)
	assert.False(t, ok)
	_, ok = snap.Lookup(filepath.Join(root, "ok.txt"))
	assert.True(t, ok)
}

func TestSnapshot_Refresh(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, "p")
	backup := filepath.Join(tmp, "backup", "p")
	makeTree(t, root, map[string]string{"a.txt": "old"})
	makeTree(t, backup, map[string]string{"a.txt": "old"})

	h, err := NewHasher(HashSHA256)
	require.NoError(t, err)
	snap := BuildSnapshot(root, h)
	before, _ := snap.Lookup(filepath.Join(root, "a.txt"))

	t.Run("takes entries from the backup copy", func(t *testing.T) {
		makeTree(t, backup, map[string]string{"a.txt": "new"})
		makeTree(t, root, map[string]string{"a.txt": "tampered"})
		snap.Refresh(filepath.Join(root, "a.txt"), filepath.Join(backup, "a.txt"), h)

		after, ok := snap.Lookup(filepath.Join(root, "a.txt"))
		require.True(t, ok)
		assert.NotEqual(t, before.Hash, after.Hash)

		want, _ := h.Fingerprint(filepath.Join(backup, "a.txt"))
		assert.Equal(t, want, after.Hash)
	})

	t.Run("adds restored subtree without live extras", func(t *testing.T) {
		makeTree(t, backup, map[string]string{"sub/c.txt": "c"})
		makeTree(t, root, map[string]string{"sub/c.txt": "c", "sub/evil.php": "x"})
		snap.Refresh(filepath.Join(root, "sub"), filepath.Join(backup, "sub"), h)

		entry, ok := snap.Lookup(filepath.Join(root, "sub"))
		require.True(t, ok)
		assert.True(t, entry.IsDir)
		_, ok = snap.Lookup(filepath.Join(root, "sub", "c.txt"))
		assert.True(t, ok)
		_, ok = snap.Lookup(filepath.Join(root, "sub", "evil.php"))
		assert.False(t, ok)
	})

	t.Run("keeps entries when the backup copy is missing", func(t *testing.T) {
		snap.Refresh(filepath.Join(root, "a.txt"), filepath.Join(backup, "gone.txt"), h)

		_, ok := snap.Lookup(filepath.Join(root, "a.txt"))
		assert.True(t, ok)
	})
}

func TestSnapshot_Contains(t *testing.T) {
	snap := NewSnapshot("/var/www/html/", nil)

	assert.True(t, snap.Contains("/var/www/html"))
	assert.True(t, snap.Contains("/var/www/html/index.html"))
	assert.False(t, snap.Contains("/var/www/html2/index.html"))
	assert.False(t, snap.Contains("/var/www"))
}
