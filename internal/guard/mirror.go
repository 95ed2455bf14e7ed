package guard

import (
	"fmt"
	"os"
	"path/filepath"

	pperrors "github.com/filegirl/filegirl/pkg/errors"
	"github.com/otiai10/copy"
	"go.uber.org/zap"
)

// Mirror performs the recursive copy and delete actions between protected
// trees and the backup tree. Every copy overwrites what is already there.
type Mirror struct {
	logger *zap.Logger
}

// NewMirror creates a new backup mirror
func NewMirror(logger *zap.Logger) *Mirror {
	return &Mirror{logger: logger.With(zap.String("component", "mirror"))}
}

func overwriteOptions() copy.Options {
	return copy.Options{
		OnSymlink: func(string) copy.SymlinkAction {
			return copy.Shallow
		},
		OnDirExists: func(src, dest string) copy.DirExistsAction {
			return copy.Merge
		},
		PreserveTimes: true,
	}
}

// EnsureRoot creates the backup root if it does not exist
func (m *Mirror) EnsureRoot(backupRoot string) error {
	if err := os.MkdirAll(backupRoot, 0755); err != nil {
		return pperrors.NewIOError("failed to create backup root", err).WithContext("path", backupRoot)
	}
	return nil
}

// InitialBackup copies protectedDir into backupRoot/<base(protectedDir)>
// A destination that overlaps the source is refused, since copying a tree
// onto itself truncates every file in it.
func (m *Mirror) InitialBackup(protectedDir, backupRoot string) error {
	src := filepath.Clean(protectedDir)
	dest := filepath.Join(backupRoot, filepath.Base(src))
	if within(src, dest) || within(dest, src) {
		return pperrors.NewIOError(fmt.Sprintf("backup of %s would overlap the protected tree", src), nil).
			WithContext("destination", dest)
	}

	if err := m.EnsureRoot(backupRoot); err != nil {
		return err
	}

	if err := copy.Copy(protectedDir, dest, overwriteOptions()); err != nil {
		return pperrors.NewIOError(fmt.Sprintf("failed to back up %s", protectedDir), err).
			WithContext("destination", dest)
	}

	m.logger.Info("Initial backup completed",
		zap.String("source", protectedDir),
		zap.String("destination", dest),
	)
	return nil
}

// Restore copies backupPath to destDir/<base(backupPath)>
func (m *Mirror) Restore(backupPath, destDir string) error {
	dest := filepath.Join(destDir, filepath.Base(backupPath))
	if err := copy.Copy(backupPath, dest, overwriteOptions()); err != nil {
		return pperrors.NewIOError(fmt.Sprintf("failed to restore %s", dest), err).
			WithContext("backup_path", backupPath)
	}
	return nil
}

// Quarantine copies sourcePath to destDir/<base(sourcePath)>
func (m *Mirror) Quarantine(sourcePath, destDir string) error {
	if err := os.MkdirAll(destDir, 0700); err != nil {
		return pperrors.NewIOError("failed to create quarantine directory", err).WithContext("path", destDir)
	}

	dest := filepath.Join(destDir, filepath.Base(sourcePath))
	if err := copy.Copy(sourcePath, dest, overwriteOptions()); err != nil {
		return pperrors.NewIOError(fmt.Sprintf("failed to quarantine %s", sourcePath), err).
			WithContext("destination", dest)
	}
	return nil
}

// Delete removes every path recursively. Missing paths are not an error.
// All paths are attempted; the first failure is returned.
func (m *Mirror) Delete(paths ...string) error {
	var firstErr error
	for _, path := range paths {
		if err := os.RemoveAll(path); err != nil {
			m.logger.Warn("Failed to delete path", zap.String("path", path), zap.Error(err))
			if firstErr == nil {
				firstErr = pperrors.NewIOError(fmt.Sprintf("failed to delete %s", path), err)
			}
		}
	}
	return firstErr
}
