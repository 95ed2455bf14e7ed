// Package models defines the data structures used throughout filegirl
package models

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ActionType identifies the reaction taken for an unauthorized change
type ActionType string

const (
	// ActionDelete removes an entry that is not part of the snapshot
	ActionDelete ActionType = "delete"

	// ActionRollback restores the backup copy over tampered content
	ActionRollback ActionType = "rollback"

	// ActionRestore restores a deleted entry from the backup tree
	ActionRestore ActionType = "restore"
)

// Outcome describes whether a reaction succeeded
type Outcome string

const (
	// OutcomeSucceeded the reaction completed
	OutcomeSucceeded Outcome = "succeeded"

	// OutcomeFailed the reaction was attempted and failed
	OutcomeFailed Outcome = "failed"
)

// Incident records one reaction fired by the guard
type Incident struct {
	ID             string     `json:"id"`
	Directory      string     `json:"directory"`
	Path           string     `json:"path"`
	Kind           string     `json:"kind"`
	Action         ActionType `json:"action"`
	Outcome        Outcome    `json:"outcome"`
	Error          string     `json:"error,omitempty"`
	QuarantinePath string     `json:"quarantine_path,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
}

// NewIncident creates a new incident with a fresh ID
func NewIncident(dir, path, kind string, action ActionType) *Incident {
	return &Incident{
		ID:        uuid.New().String(),
		Directory: dir,
		Path:      path,
		Kind:      kind,
		Action:    action,
		Outcome:   OutcomeSucceeded,
		Timestamp: time.Now(),
	}
}

// Fail marks the incident as failed with the given error
func (i *Incident) Fail(err error) {
	i.Outcome = OutcomeFailed
	if err != nil {
		i.Error = err.Error()
	}
}

// Succeeded reports whether the reaction completed
func (i *Incident) Succeeded() bool {
	return i.Outcome == OutcomeSucceeded
}

// Key returns a time-ordered storage key for the incident
func (i *Incident) Key() string {
	return fmt.Sprintf("%020d-%s", i.Timestamp.UnixNano(), i.ID)
}

// IncidentFilter represents filters for incident queries
type IncidentFilter struct {
	Directory string  `json:"directory,omitempty"`
	Outcome   Outcome `json:"outcome,omitempty"`
	Since     time.Time
	Limit     int `json:"limit,omitempty"`
}

// Matches checks whether an incident satisfies the filter. Directory is
// compared in its cleaned form.
func (f *IncidentFilter) Matches(i *Incident) bool {
	if f == nil {
		return true
	}
	if f.Directory != "" && i.Directory != filepath.Clean(f.Directory) {
		return false
	}
	if f.Outcome != "" && i.Outcome != f.Outcome {
		return false
	}
	if !f.Since.IsZero() && i.Timestamp.Before(f.Since) {
		return false
	}
	return true
}
