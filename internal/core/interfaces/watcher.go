package interfaces

import (
	"context"
)

// EventSource delivers file system change notifications for one directory tree
type EventSource interface {
	// Start attaches the watch to root and every directory below it
	Start(ctx context.Context, root string) error

	// Stop stops the source and closes its channels
	Stop() error

	// AddPath watches dir and every directory below it, skipping directories
	// that are already watched
	AddPath(dir string) error

	// Events returns a channel that receives change events in delivery order
	Events() <-chan ChangeEvent

	// Errors returns a channel for error notifications
	Errors() <-chan error
}

// ChangeEvent represents a file system change event
type ChangeEvent struct {
	Type      ChangeType `json:"type"`
	Path      string     `json:"path"`
	Timestamp int64      `json:"timestamp"`
	IsDir     bool       `json:"is_dir"`
}

// ChangeType defines the type of file system change
type ChangeType string

const (
	// ChangeTypeCreate indicates a file or directory was created
	ChangeTypeCreate ChangeType = "create"

	// ChangeTypeModify indicates a file was modified
	ChangeTypeModify ChangeType = "modify"

	// ChangeTypeDelete indicates a file or directory was deleted
	ChangeTypeDelete ChangeType = "delete"

	// ChangeTypeRename indicates a file or directory was renamed away
	ChangeTypeRename ChangeType = "rename"

	// ChangeTypeChmod indicates file permissions changed
	ChangeTypeChmod ChangeType = "chmod"

	// ChangeTypeUnknown indicates any other notification
	ChangeTypeUnknown ChangeType = "unknown"
)

// String returns the string representation of the change type
func (ct ChangeType) String() string {
	return string(ct)
}
