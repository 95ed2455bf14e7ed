package guard

import (
	"path/filepath"
	"sort"
	"sync"
)

// Store holds one snapshot per protected directory. The store lock only
// guards the directory index; each snapshot carries its own lock, so
// sessions for different directories never contend after setup.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
}

// NewStore creates an empty snapshot store
func NewStore() *Store {
	return &Store{snapshots: make(map[string]*Snapshot)}
}

// Put stores the snapshot for dir, replacing any previous one
func (s *Store) Put(dir string, snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[filepath.Clean(dir)] = snap
}

// Get returns the snapshot for dir
func (s *Store) Get(dir string) (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[filepath.Clean(dir)]
	return snap, ok
}

// Dirs returns the protected directories in sorted order
func (s *Store) Dirs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dirs := make([]string, 0, len(s.snapshots))
	for dir := range s.snapshots {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}
