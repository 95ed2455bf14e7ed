package guard

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/filegirl/filegirl/internal/core/interfaces"
	"github.com/filegirl/filegirl/internal/metrics"
	"github.com/filegirl/filegirl/internal/watchers/allowlist"
	pperrors "github.com/filegirl/filegirl/pkg/errors"
	"github.com/filegirl/filegirl/pkg/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ReactorConfig holds the collaborators of a reactor for one directory
type ReactorConfig struct {
	ProtectedDir   string
	BackupRoot     string
	QuarantineRoot string // empty disables quarantine
	RenameAsRemove bool
	Snapshot       *Snapshot
	Allowlist      *allowlist.Matcher
	Mirror         interfaces.BackupMirror
	Hasher         interfaces.Fingerprinter
	Recorder       interfaces.IncidentRecorder // optional
	Metrics        *metrics.Metrics            // optional
	Limiter        *rate.Limiter               // optional
	Logger         *zap.Logger
}

// Reactor classifies change events for one protected directory and reverts
// unauthorized changes. It is driven by a single session goroutine.
type Reactor struct {
	dir            string
	parent         string
	backupRoot     string
	quarantineRoot string
	renameAsRemove bool
	snapshot       *Snapshot
	allow          *allowlist.Matcher
	mirror         interfaces.BackupMirror
	hasher         interfaces.Fingerprinter
	recorder       interfaces.IncidentRecorder
	metrics        *metrics.Metrics
	limiter        *rate.Limiter
	logger         *zap.Logger
}

// NewReactor creates a reactor
func NewReactor(cfg ReactorConfig) (*Reactor, error) {
	if cfg.Snapshot == nil {
		return nil, fmt.Errorf("snapshot is required")
	}
	if cfg.Mirror == nil {
		return nil, fmt.Errorf("mirror is required")
	}
	if cfg.Hasher == nil {
		return nil, fmt.Errorf("hasher is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	dir := filepath.Clean(cfg.ProtectedDir)

	return &Reactor{
		dir:            dir,
		parent:         filepath.Dir(dir),
		backupRoot:     filepath.Clean(cfg.BackupRoot),
		quarantineRoot: cfg.QuarantineRoot,
		renameAsRemove: cfg.RenameAsRemove,
		snapshot:       cfg.Snapshot,
		allow:          cfg.Allowlist,
		mirror:         cfg.Mirror,
		hasher:         cfg.Hasher,
		recorder:       cfg.Recorder,
		metrics:        cfg.Metrics,
		limiter:        cfg.Limiter,
		logger:         cfg.Logger.With(zap.String("component", "reactor")),
	}, nil
}

// Classify decides which reaction an event calls for. An empty action means
// no reaction.
func (r *Reactor) Classify(ev interfaces.ChangeEvent) models.ActionType {
	if r.allow.IsPathExempt(ev.Path) {
		return ""
	}

	entry, tracked := r.snapshot.Lookup(ev.Path)

	switch ev.Type {
	case interfaces.ChangeTypeCreate:
		if !tracked {
			return models.ActionDelete
		}

	case interfaces.ChangeTypeModify:
		if !tracked || entry.IsDir {
			return ""
		}
		current, _ := r.hasher.Fingerprint(ev.Path)
		if current != entry.Hash {
			return models.ActionRollback
		}

	case interfaces.ChangeTypeDelete:
		if tracked {
			return models.ActionRestore
		}

	case interfaces.ChangeTypeRename:
		if r.renameAsRemove && tracked {
			return models.ActionRestore
		}
	}

	return ""
}

// Handle classifies one event and fires the matching reaction. It returns
// the incident for a fired reaction, or nil when the event needs none.
// Reaction failures are reported on the incident, not as an error.
func (r *Reactor) Handle(ctx context.Context, ev interfaces.ChangeEvent) (*models.Incident, error) {
	path := filepath.Clean(ev.Path)
	ev.Path = path

	backupPath, err := r.backupPathFor(path)
	if err != nil {
		return nil, err
	}

	r.metrics.ObserveEvent(r.dir, ev.Type.String())

	action := r.Classify(ev)
	if action == "" {
		return nil, nil
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	incident := models.NewIncident(r.dir, path, ev.Type.String(), action)

	var actionErr error
	switch action {
	case models.ActionDelete:
		r.logger.Warn("Unauthorized creation detected", zap.String("path", path))
		r.quarantine(incident)
		actionErr = r.mirror.Delete(path)

	case models.ActionRollback:
		r.logger.Warn("Unauthorized modification detected", zap.String("path", path))
		r.quarantine(incident)
		actionErr = r.mirror.Restore(backupPath, filepath.Dir(path))

	case models.ActionRestore:
		r.logger.Warn("Unauthorized deletion detected",
			zap.String("path", path),
			zap.String("kind", ev.Type.String()),
		)
		actionErr = r.mirror.Restore(backupPath, filepath.Dir(path))
	}

	if actionErr != nil {
		incident.Fail(actionErr)
		r.logger.Error("Reaction failed",
			zap.String("path", path),
			zap.String("action", string(action)),
			zap.Error(actionErr),
		)
	} else if action != models.ActionDelete {
		// Keep the baseline in line with what the backup put back
		r.snapshot.Refresh(path, backupPath, r.hasher)
	}

	r.metrics.ObserveReaction(r.dir, string(action), string(incident.Outcome))
	r.record(ctx, incident)

	return incident, nil
}

// backupPathFor maps a path under the protected directory to its location
// in the backup tree by swapping the directory's parent for the backup root.
func (r *Reactor) backupPathFor(path string) (string, error) {
	if !r.snapshot.Contains(path) {
		return "", pperrors.NewIOError(fmt.Sprintf("path %s is outside protected directory %s", path, r.dir), nil)
	}

	rel, err := filepath.Rel(r.parent, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", pperrors.NewIOError(fmt.Sprintf("cannot map %s into the backup tree", path), err)
	}

	return filepath.Join(r.backupRoot, rel), nil
}

// quarantine preserves the offending content before it is reverted. It
// never blocks the reaction.
func (r *Reactor) quarantine(incident *models.Incident) {
	if r.quarantineRoot == "" {
		return
	}

	dest := filepath.Join(r.quarantineRoot, incident.ID)
	if err := r.mirror.Quarantine(incident.Path, dest); err != nil {
		r.logger.Warn("Failed to quarantine content",
			zap.String("path", incident.Path),
			zap.Error(err),
		)
		return
	}
	incident.QuarantinePath = filepath.Join(dest, filepath.Base(incident.Path))
}

func (r *Reactor) record(ctx context.Context, incident *models.Incident) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.Record(ctx, incident); err != nil {
		r.logger.Error("Failed to record incident",
			zap.String("incident_id", incident.ID),
			zap.Error(err),
		)
	}
}
