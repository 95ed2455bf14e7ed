package guard

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/filegirl/filegirl/internal/core/interfaces"
	"github.com/filegirl/filegirl/pkg/models"
	"github.com/stretchr/testify/mock"
)

// Mock implementations for testing
type MockMirror struct {
	mock.Mock
	handled atomic.Int32
}

// callCount is safe to poll while a session is running
func (m *MockMirror) callCount() int {
	return int(m.handled.Load())
}

func (m *MockMirror) InitialBackup(protectedDir, backupRoot string) error {
	args := m.Called(protectedDir, backupRoot)
	m.handled.Add(1)
	return args.Error(0)
}

func (m *MockMirror) Restore(backupPath, destDir string) error {
	args := m.Called(backupPath, destDir)
	m.handled.Add(1)
	return args.Error(0)
}

func (m *MockMirror) Quarantine(sourcePath, destDir string) error {
	args := m.Called(sourcePath, destDir)
	m.handled.Add(1)
	return args.Error(0)
}

func (m *MockMirror) Delete(paths ...string) error {
	args := m.Called(paths)
	m.handled.Add(1)
	return args.Error(0)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, incident *models.Incident) error {
	args := m.Called(ctx, incident)
	return args.Error(0)
}

// fakeHasher returns fixed fingerprints per path
type fakeHasher map[string]string

func (f fakeHasher) Fingerprint(path string) (string, bool) {
	h, ok := f[path]
	return h, ok
}

// fakeSource is an EventSource driven by the test
type fakeSource struct {
	events   chan interfaces.ChangeEvent
	errs     chan error
	startErr error

	mu       sync.Mutex
	added    []string
	stopped  bool
	stopOnce sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		events: make(chan interfaces.ChangeEvent, 16),
		errs:   make(chan error, 1),
	}
}

func (f *fakeSource) Start(ctx context.Context, root string) error {
	return f.startErr
}

func (f *fakeSource) Stop() error {
	f.stopOnce.Do(func() {
		f.mu.Lock()
		f.stopped = true
		f.mu.Unlock()
	})
	return nil
}

func (f *fakeSource) AddPath(dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, dir)
	return nil
}

func (f *fakeSource) Events() <-chan interfaces.ChangeEvent {
	return f.events
}

func (f *fakeSource) Errors() <-chan error {
	return f.errs
}

func (f *fakeSource) addedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.added...)
}

func (f *fakeSource) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}
