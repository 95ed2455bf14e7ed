// Package errors defines custom error types for filegirl
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ConfigError indicates an unreadable or malformed configuration
	ConfigError ErrorType = "config"
	// PatternError indicates an allowlist pattern that does not compile
	PatternError ErrorType = "pattern"
	// IOError indicates a backup, restore, delete or read failure
	IOError ErrorType = "io"
	// WatchSetupError indicates a watch could not be attached to a directory
	WatchSetupError ErrorType = "watch_setup"
	// DatabaseError indicates incident journal issues
	DatabaseError ErrorType = "database"
)

// GuardError is the base error type for all filegirl errors
type GuardError struct {
	Type    ErrorType
	Message string
	Err     error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *GuardError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *GuardError) Unwrap() error {
	return e.Err
}

// WithContext adds context to the error
func (e *GuardError) WithContext(key string, value interface{}) *GuardError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new GuardError
func New(errType ErrorType, message string, err error) *GuardError {
	return &GuardError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

func isType(err error, errType ErrorType) bool {
	var ge *GuardError
	if stderrors.As(err, &ge) {
		return ge.Type == errType
	}
	return false
}

// IsConfigError checks if the error is a configuration error
func IsConfigError(err error) bool {
	return isType(err, ConfigError)
}

// IsPatternError checks if the error is an allowlist pattern error
func IsPatternError(err error) bool {
	return isType(err, PatternError)
}

// IsIOError checks if the error is a filesystem I/O error
func IsIOError(err error) bool {
	return isType(err, IOError)
}

// IsWatchSetupError checks if the error is a watch setup error
func IsWatchSetupError(err error) bool {
	return isType(err, WatchSetupError)
}

// IsDatabaseError checks if the error is a journal error
func IsDatabaseError(err error) bool {
	return isType(err, DatabaseError)
}

// Constructor functions for each error type

// NewConfigError creates a new configuration error
func NewConfigError(message string, err error) *GuardError {
	return New(ConfigError, message, err)
}

// NewPatternError creates a new pattern error
func NewPatternError(message string, err error) *GuardError {
	return New(PatternError, message, err)
}

// NewIOError creates a new I/O error
func NewIOError(message string, err error) *GuardError {
	return New(IOError, message, err)
}

// NewWatchSetupError creates a new watch setup error
func NewWatchSetupError(message string, err error) *GuardError {
	return New(WatchSetupError, message, err)
}

// NewDatabaseError creates a new database error
func NewDatabaseError(message string, err error) *GuardError {
	return New(DatabaseError, message, err)
}
