package guard

import (
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/filegirl/filegirl/internal/core/interfaces"
)

// Entry is one snapshot record. A directory has IsDir set and no hash.
type Entry struct {
	Hash  string
	IsDir bool
}

// File returns a file entry with the given fingerprint
func File(hash string) Entry {
	return Entry{Hash: hash}
}

// Dir returns a directory entry
func Dir() Entry {
	return Entry{IsDir: true}
}

// Snapshot is the trusted baseline of one protected directory: absolute
// path to fingerprint, or a directory marker. It is safe for concurrent use.
type Snapshot struct {
	root    string
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewSnapshot wraps an existing entry map
func NewSnapshot(root string, entries map[string]Entry) *Snapshot {
	if entries == nil {
		entries = make(map[string]Entry)
	}
	return &Snapshot{root: filepath.Clean(root), entries: entries}
}

// BuildSnapshot walks root recursively and records every entry below it,
// root included. Entries that cannot be read are skipped.
func BuildSnapshot(root string, fp interfaces.Fingerprinter) *Snapshot {
	root = filepath.Clean(root)
	return NewSnapshot(root, walkEntries(root, fp))
}

func walkEntries(root string, fp interfaces.Fingerprinter) map[string]Entry {
	entries := make(map[string]Entry)

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are simply absent
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			entries[path] = Dir()
			return nil
		}

		if hash, ok := fp.Fingerprint(path); ok {
			entries[path] = File(hash)
		}
		return nil
	})

	return entries
}

// Root returns the protected directory the snapshot describes
func (s *Snapshot) Root() string {
	return s.root
}

// Lookup returns the entry for path
func (s *Snapshot) Lookup(path string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[path]
	return e, ok
}

// Len returns the number of entries
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Refresh records the entries of source, the backup copy of path, under
// path (and, for a directory, everything below it). The live tree is never
// read, so content written around a restore cannot become trusted. Paths
// missing from source keep their previous entries.
func (s *Snapshot) Refresh(path, source string, fp interfaces.Fingerprinter) {
	fresh := walkEntries(source, fp)
	if len(fresh) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range fresh {
		rel, err := filepath.Rel(source, k)
		if err != nil {
			continue
		}
		s.entries[filepath.Join(path, rel)] = v
	}
}

// Contains reports whether path lies at or under the snapshot root
func (s *Snapshot) Contains(path string) bool {
	return within(s.root, path)
}

func within(root, path string) bool {
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}
