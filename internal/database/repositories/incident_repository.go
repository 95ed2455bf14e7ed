// Package repositories provides database repository implementations
package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/filegirl/filegirl/internal/database"
	pperrors "github.com/filegirl/filegirl/pkg/errors"
	"github.com/filegirl/filegirl/pkg/models"
	bolt "go.etcd.io/bbolt"
)

// IncidentRepository manages the incident journal
type IncidentRepository struct {
	db *database.Manager
}

// NewIncidentRepository creates a new incident repository
func NewIncidentRepository(db *database.Manager) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// Record appends an incident to the journal
func (r *IncidentRepository) Record(ctx context.Context, incident *models.Incident) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if incident.ID == "" {
		return fmt.Errorf("incident ID cannot be empty")
	}

	if err := r.db.Put(database.BucketIncidents, incident.Key(), incident); err != nil {
		return pperrors.NewDatabaseError("failed to record incident", err).WithContext("incident_id", incident.ID)
	}
	return nil
}

// Get retrieves an incident by ID
func (r *IncidentRepository) Get(id string) (*models.Incident, error) {
	var found *models.Incident

	err := r.db.Transaction(false, func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(database.BucketIncidents))
		if b == nil {
			return fmt.Errorf("bucket %s not found", database.BucketIncidents)
		}

		return b.ForEach(func(k, v []byte) error {
			if found != nil {
				return nil
			}
			var incident models.Incident
			if err := json.Unmarshal(v, &incident); err != nil {
				return err
			}
			if incident.ID == id {
				found = &incident
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("incident %s not found", id)
	}
	return found, nil
}

// List returns incidents matching the filter, newest first
func (r *IncidentRepository) List(filter *models.IncidentFilter) ([]*models.Incident, error) {
	var incidents []*models.Incident

	err := r.db.Transaction(false, func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(database.BucketIncidents))
		if b == nil {
			return fmt.Errorf("bucket %s not found", database.BucketIncidents)
		}

		// Keys start with the timestamp, so walking backwards is newest first
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var incident models.Incident
			if err := json.Unmarshal(v, &incident); err != nil {
				return fmt.Errorf("failed to decode incident %s: %w", k, err)
			}
			if !filter.Matches(&incident) {
				continue
			}
			incidents = append(incidents, &incident)
			if filter != nil && filter.Limit > 0 && len(incidents) >= filter.Limit {
				break
			}
		}
		return nil
	})

	return incidents, err
}

// Count returns the number of recorded incidents
func (r *IncidentRepository) Count() (int, error) {
	return r.db.Count(database.BucketIncidents)
}

// Clear removes every incident and compacts the journal
func (r *IncidentRepository) Clear() error {
	if err := r.db.Clear(database.BucketIncidents); err != nil {
		return pperrors.NewDatabaseError("failed to clear incidents", err)
	}
	return r.db.Compact()
}
