// Package database provides the incident journal storage for filegirl
package database

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	pperrors "github.com/filegirl/filegirl/pkg/errors"
	"github.com/filegirl/filegirl/pkg/logger"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// Database buckets
const (
	// BucketIncidents stores reaction incidents keyed by time
	BucketIncidents = "incidents"

	// BucketMetadata stores general metadata
	BucketMetadata = "metadata"
)

// SchemaVersion is written to the metadata bucket on first open
const SchemaVersion = 1

const keySchemaVersion = "schema_version"

// Manager manages the BoltDB database connection
type Manager struct {
	DB      *bolt.DB // Exported for direct access
	path    string
	logger  *zap.Logger
	mu      sync.RWMutex
	isOpen  bool
	options *Options
}

// Options represents database options
type Options struct {
	Path     string        `json:"path"`
	FileMode uint32        `json:"file_mode"`
	Timeout  time.Duration `json:"timeout"`
	ReadOnly bool          `json:"read_only"`
	NoSync   bool          `json:"no_sync"`
}

// DefaultOptions returns default database options for the journal at path
func DefaultOptions(path string) *Options {
	return &Options{
		Path:     path,
		FileMode: 0600,
		Timeout:  1 * time.Second,
	}
}

// NewManager creates a new database manager
func NewManager(options *Options) (*Manager, error) {
	if options == nil || options.Path == "" {
		return nil, pperrors.NewDatabaseError("journal path is required", nil)
	}

	return &Manager{
		path:    options.Path,
		logger:  logger.Get().With(zap.String("component", "journal")),
		options: options,
	}, nil
}

// Open opens the database connection
func (m *Manager) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isOpen {
		return nil
	}

	if !m.options.ReadOnly {
		if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
			return pperrors.NewDatabaseError("failed to create journal directory", err)
		}
	}

	boltOptions := &bolt.Options{
		Timeout:  m.options.Timeout,
		ReadOnly: m.options.ReadOnly,
		NoSync:   m.options.NoSync,
	}

	db, err := bolt.Open(m.path, os.FileMode(m.options.FileMode), boltOptions)
	if err != nil {
		return pperrors.NewDatabaseError("failed to open journal", err).WithContext("path", m.path)
	}

	m.DB = db
	m.isOpen = true

	if !m.options.ReadOnly {
		if err := m.initBuckets(); err != nil {
			m.DB.Close()
			m.isOpen = false
			return pperrors.NewDatabaseError("failed to initialize buckets", err)
		}
	}

	m.logger.Info("Journal opened", zap.String("path", m.path))
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isOpen || m.DB == nil {
		return nil
	}

	if err := m.DB.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}

	m.isOpen = false
	m.logger.Info("Journal closed")
	return nil
}

// initBuckets creates the buckets and stamps the schema version
func (m *Manager) initBuckets() error {
	return m.DB.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{BucketIncidents, BucketMetadata} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		meta := tx.Bucket([]byte(BucketMetadata))
		if meta.Get([]byte(keySchemaVersion)) != nil {
			return nil
		}
		data, err := json.Marshal(SchemaVersion)
		if err != nil {
			return err
		}
		return meta.Put([]byte(keySchemaVersion), data)
	})
}

// IsOpen checks if the database is open
func (m *Manager) IsOpen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isOpen
}

// Path returns the journal file path
func (m *Manager) Path() string {
	return m.path
}

// Transaction executes a function within a database transaction
func (m *Manager) Transaction(writable bool, fn func(*bolt.Tx) error) error {
	if !m.IsOpen() {
		return pperrors.NewDatabaseError("journal is not open", nil)
	}

	if writable {
		return m.DB.Update(fn)
	}
	return m.DB.View(fn)
}

// Put stores a key-value pair in a bucket
func (m *Manager) Put(bucket, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return m.Transaction(true, func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %s not found", bucket)
		}
		return b.Put([]byte(key), data)
	})
}

// Get retrieves a value from a bucket
func (m *Manager) Get(bucket, key string, value interface{}) error {
	return m.Transaction(false, func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %s not found", bucket)
		}

		data := b.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("key %s not found in bucket %s", key, bucket)
		}

		return json.Unmarshal(data, value)
	})
}

// Count returns the number of items in a bucket
func (m *Manager) Count(bucket string) (int, error) {
	count := 0

	err := m.Transaction(false, func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %s not found", bucket)
		}

		count = b.Stats().KeyN
		return nil
	})

	return count, err
}

// Clear removes all items from a bucket
func (m *Manager) Clear(bucket string) error {
	return m.Transaction(true, func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucket))
		return err
	})
}

// Backup writes a consistent copy of the database to path
func (m *Manager) Backup(path string) error {
	if !m.IsOpen() {
		return pperrors.NewDatabaseError("journal is not open", nil)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	return m.DB.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(path, 0600)
	})
}

// Compact rewrites the database to reclaim space freed by Clear
func (m *Manager) Compact() error {
	tempPath := m.path + ".compact"

	if err := m.Backup(tempPath); err != nil {
		return fmt.Errorf("failed to create compact copy: %w", err)
	}

	if err := m.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace with compacted journal: %w", err)
	}

	return m.Open()
}
