package interfaces

import (
	"context"

	"github.com/filegirl/filegirl/pkg/models"
)

// BackupMirror moves content between a protected tree and its backup tree
type BackupMirror interface {
	// InitialBackup copies protectedDir into backupRoot/<base(protectedDir)>
	InitialBackup(protectedDir, backupRoot string) error

	// Restore copies backupPath to destDir/<base(backupPath)>, overwriting
	Restore(backupPath, destDir string) error

	// Quarantine copies sourcePath to destDir/<base(sourcePath)>, overwriting
	Quarantine(sourcePath, destDir string) error

	// Delete removes the given entries recursively
	Delete(paths ...string) error
}

// Fingerprinter computes content fingerprints
type Fingerprinter interface {
	// Fingerprint returns the digest of the file at path, and false if the
	// path cannot be read as a file
	Fingerprint(path string) (string, bool)
}

// IncidentRecorder persists reactions fired by the guard
type IncidentRecorder interface {
	Record(ctx context.Context, incident *models.Incident) error
}
