package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/filegirl/filegirl/internal/core/interfaces"
	pperrors "github.com/filegirl/filegirl/pkg/errors"
	"github.com/filegirl/filegirl/pkg/logger"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// GuardWatcher implements the EventSource interface using fsnotify.
// fsnotify is not recursive, so every directory under the root is added
// explicitly, including directories that appear later.
type GuardWatcher struct {
	watcher    *fsnotify.Watcher
	root       string
	paths      map[string]bool // directories being watched
	pathsMu    sync.RWMutex
	eventsChan chan interfaces.ChangeEvent
	errorsChan chan error
	stopChan   chan struct{}
	logger     *zap.Logger
	wg         sync.WaitGroup
	isRunning  bool
	isStopped  bool
	runningMu  sync.Mutex
}

// NewGuardWatcher creates a new file watcher instance
func NewGuardWatcher(log *zap.Logger) (*GuardWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, pperrors.NewWatchSetupError("failed to create fsnotify watcher", err)
	}

	if log == nil {
		log = logger.Get()
	}

	return &GuardWatcher{
		watcher:    w,
		paths:      make(map[string]bool),
		eventsChan: make(chan interfaces.ChangeEvent, 256),
		errorsChan: make(chan error, 16),
		stopChan:   make(chan struct{}),
		logger:     log.With(zap.String("component", "watcher")),
	}, nil
}

// Start attaches the watch to root recursively and begins delivering events
func (gw *GuardWatcher) Start(ctx context.Context, root string) error {
	gw.runningMu.Lock()
	defer gw.runningMu.Unlock()

	if gw.isRunning {
		return fmt.Errorf("watcher is already running")
	}
	if gw.isStopped {
		return fmt.Errorf("watcher has been stopped")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return pperrors.NewWatchSetupError("failed to get absolute path", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return pperrors.NewWatchSetupError("path does not exist", err).WithContext("path", absRoot)
	}
	if !info.IsDir() {
		return pperrors.NewWatchSetupError(fmt.Sprintf("path is not a directory: %s", absRoot), nil)
	}

	gw.root = absRoot

	gw.pathsMu.Lock()
	err = gw.fileGirlAddRecursive(absRoot)
	gw.pathsMu.Unlock()
	if err != nil {
		return pperrors.NewWatchSetupError("failed to watch directory tree", err).WithContext("path", absRoot)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	gw.wg.Add(1)
	go gw.fileGirlMonitor(ctx)

	gw.isRunning = true
	gw.logger.Info("File watcher started",
		zap.String("root", absRoot),
		zap.Int("directories", len(gw.GetWatchedPaths())),
	)

	return nil
}

// Stop stops the file watcher and closes its channels
func (gw *GuardWatcher) Stop() error {
	gw.runningMu.Lock()
	defer gw.runningMu.Unlock()

	if gw.isStopped {
		return nil
	}
	gw.isStopped = true

	close(gw.stopChan)
	gw.wg.Wait()

	err := gw.watcher.Close()

	close(gw.eventsChan)
	close(gw.errorsChan)

	gw.isRunning = false
	gw.logger.Info("File watcher stopped", zap.String("root", gw.root))

	return err
}

// Events returns the channel for receiving change events
func (gw *GuardWatcher) Events() <-chan interfaces.ChangeEvent {
	return gw.eventsChan
}

// Errors returns the channel for receiving errors
func (gw *GuardWatcher) Errors() <-chan error {
	return gw.errorsChan
}

// AddPath watches dir and every directory below it. Already watched
// directories are skipped.
func (gw *GuardWatcher) AddPath(dir string) error {
	gw.pathsMu.Lock()
	defer gw.pathsMu.Unlock()
	return gw.fileGirlAddRecursive(dir)
}

// GetWatchedPaths returns a list of all watched directories
func (gw *GuardWatcher) GetWatchedPaths() []string {
	gw.pathsMu.RLock()
	defer gw.pathsMu.RUnlock()

	paths := make([]string, 0, len(gw.paths))
	for path := range gw.paths {
		paths = append(paths, path)
	}
	return paths
}

// fileGirlMonitor is the main monitoring goroutine
func (gw *GuardWatcher) fileGirlMonitor(ctx context.Context) {
	defer gw.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-gw.stopChan:
			return
		case event, ok := <-gw.watcher.Events:
			if !ok {
				return
			}
			if !gw.fileGirlHandleEvent(ctx, event) {
				return
			}
		case err, ok := <-gw.watcher.Errors:
			if !ok {
				return
			}
			gw.logger.Error("File watcher error", zap.Error(err))
			select {
			case gw.errorsChan <- err:
			default:
			}
		}
	}
}

// fileGirlHandleEvent converts and forwards a single fsnotify event. It
// returns false once the watcher is shutting down.
func (gw *GuardWatcher) fileGirlHandleEvent(ctx context.Context, event fsnotify.Event) bool {
	changeType := MapOp(event.Op)

	changeEvent := interfaces.ChangeEvent{
		Type:      changeType,
		Path:      filepath.Clean(event.Name),
		Timestamp: time.Now().Unix(),
	}

	switch changeType {
	case interfaces.ChangeTypeCreate:
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			changeEvent.IsDir = true

			// New directories must be watched before their contents change
			gw.pathsMu.Lock()
			err := gw.fileGirlAddRecursive(changeEvent.Path)
			gw.pathsMu.Unlock()
			if err != nil {
				gw.logger.Warn("Failed to add new directory to watcher",
					zap.String("path", changeEvent.Path),
					zap.Error(err),
				)
			}
		}
	case interfaces.ChangeTypeDelete, interfaces.ChangeTypeRename:
		gw.fileGirlForget(changeEvent.Path)
	}

	select {
	case gw.eventsChan <- changeEvent:
		gw.logger.Debug("File change detected",
			zap.String("path", changeEvent.Path),
			zap.String("type", string(changeType)),
		)
		return true
	case <-ctx.Done():
		return false
	case <-gw.stopChan:
		return false
	}
}

// MapOp maps fsnotify operations to change types
func MapOp(op fsnotify.Op) interfaces.ChangeType {
	switch {
	case op.Has(fsnotify.Create):
		return interfaces.ChangeTypeCreate
	case op.Has(fsnotify.Write):
		return interfaces.ChangeTypeModify
	case op.Has(fsnotify.Remove):
		return interfaces.ChangeTypeDelete
	case op.Has(fsnotify.Rename):
		return interfaces.ChangeTypeRename
	case op.Has(fsnotify.Chmod):
		return interfaces.ChangeTypeChmod
	default:
		return interfaces.ChangeTypeUnknown
	}
}

// fileGirlForget drops bookkeeping for a removed directory and everything
// below it. The kernel drops the underlying watches on its own.
func (gw *GuardWatcher) fileGirlForget(path string) {
	gw.pathsMu.Lock()
	defer gw.pathsMu.Unlock()

	prefix := path + string(filepath.Separator)
	for watched := range gw.paths {
		if watched == path || strings.HasPrefix(watched, prefix) {
			delete(gw.paths, watched)
		}
	}
}

// fileGirlAddRecursive adds a directory and every subdirectory to the
// watcher. Callers hold pathsMu.
func (gw *GuardWatcher) fileGirlAddRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// Entries can vanish while walking
			if os.IsNotExist(err) && path != dir {
				return nil
			}
			return err
		}

		// Only directories are added; files are watched through their parent
		if !d.IsDir() || gw.paths[path] {
			return nil
		}

		if err := gw.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to add directory %s: %w", path, err)
		}
		gw.paths[path] = true
		return nil
	})
}
