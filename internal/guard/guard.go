// Package guard implements the protection engine: integrity snapshots, the
// event classifier and reactor, the backup mirror, and the coordinator that
// runs one watch session per protected directory.
package guard

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/filegirl/filegirl/internal/config"
	"github.com/filegirl/filegirl/internal/core/interfaces"
	"github.com/filegirl/filegirl/internal/metrics"
	"github.com/filegirl/filegirl/internal/watchers/allowlist"
	"github.com/filegirl/filegirl/internal/watchers/local"
	pperrors "github.com/filegirl/filegirl/pkg/errors"
	"github.com/filegirl/filegirl/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// SourceFactory creates the event source for one session
type SourceFactory func(logger *zap.Logger) (interfaces.EventSource, error)

// Dependencies are the optional collaborators of a Guard. Zero values get
// working defaults.
type Dependencies struct {
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Recorder  interfaces.IncidentRecorder
	Mirror    *Mirror
	NewSource SourceFactory
}

// SessionStatus describes one protected directory
type SessionStatus struct {
	Dir             string `json:"dir"`
	Active          bool   `json:"active"`
	SnapshotEntries int    `json:"snapshot_entries"`
}

// Guard owns the snapshot store and the watch sessions
type Guard struct {
	cfg       *config.Config
	store     *Store
	hasher    *Hasher
	allow     *allowlist.Matcher
	mirror    *Mirror
	metrics   *metrics.Metrics
	recorder  interfaces.IncidentRecorder
	newSource SourceFactory
	logger    *zap.Logger

	sessionsMu sync.RWMutex
	sessions   map[string]*Session
}

// New creates a guard for a validated configuration
func New(cfg *config.Config, deps Dependencies) (*Guard, error) {
	if cfg == nil {
		return nil, pperrors.NewConfigError("configuration is required", nil)
	}

	hasher, err := NewHasher(cfg.HashAlgorithm)
	if err != nil {
		return nil, pperrors.NewConfigError("invalid hash_algorithm", err)
	}

	allow, err := allowlist.New(cfg.WhiteNames)
	if err != nil {
		return nil, err
	}

	log := deps.Logger
	if log == nil {
		log = logger.Get()
	}

	mirror := deps.Mirror
	if mirror == nil {
		mirror = NewMirror(log)
	}

	newSource := deps.NewSource
	if newSource == nil {
		newSource = func(l *zap.Logger) (interfaces.EventSource, error) {
			return local.NewGuardWatcher(l)
		}
	}

	return &Guard{
		cfg:       cfg,
		store:     NewStore(),
		hasher:    hasher,
		allow:     allow,
		mirror:    mirror,
		metrics:   deps.Metrics,
		recorder:  deps.Recorder,
		newSource: newSource,
		logger:    log.With(zap.String("component", "guard")),
		sessions:  make(map[string]*Session),
	}, nil
}

// Store returns the snapshot store
func (g *Guard) Store() *Store {
	return g.store
}

// Run snapshots and backs up every protected directory, starts one watch
// session per directory, and blocks until ctx is cancelled and every
// session has returned. Only setup failures are returned.
func (g *Guard) Run(ctx context.Context) error {
	if err := g.mirror.EnsureRoot(g.cfg.BackupDir); err != nil {
		return err
	}
	g.logger.Info("Backup directory ready", zap.String("backup_dir", g.cfg.BackupDir))

	if patterns := g.allow.GetPatterns(); len(patterns) > 0 {
		g.logger.Info("Allowlist loaded", zap.Strings("white_names", patterns))
	}

	for _, warning := range g.cfg.Warnings() {
		g.logger.Warn("Configuration warning", zap.String("warning", warning))
	}

	dirs := g.cfg.Directories()
	if err := g.setup(ctx, dirs); err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, dir := range dirs {
		session, err := g.newSession(dir)
		if err != nil {
			g.logger.Error("Failed to create watch session", zap.String("protected_dir", dir), zap.Error(err))
			continue
		}

		g.sessionsMu.Lock()
		g.sessions[dir] = session
		g.sessionsMu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := session.Run(ctx); err != nil {
				session.logger.Error("Watch session exited", zap.Error(err))
			}
		}()
	}

	g.logger.Info("Guard running", zap.Int("protected_dirs", len(dirs)))

	<-ctx.Done()
	wg.Wait()

	g.logger.Info("Guard stopped")
	return nil
}

// setup builds each directory's snapshot and then takes its initial
// backup. The snapshot comes first so it describes what the backup copies.
func (g *Guard) setup(ctx context.Context, dirs []string) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())

	for _, dir := range dirs {
		dir := dir
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}

			log := logger.ForDirectory(g.logger, dir)

			snap := BuildSnapshot(dir, g.hasher)
			g.store.Put(dir, snap)
			g.metrics.SetSnapshotEntries(dir, snap.Len())
			log.Info("Snapshot built", zap.Int("entries", snap.Len()))

			if err := g.mirror.InitialBackup(dir, g.cfg.BackupDir); err != nil {
				// Not fatal: the directory is watched but cannot be restored
				log.Error("Initial backup failed", zap.Error(err))
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return fmt.Errorf("setup interrupted: %w", err)
	}
	return nil
}

func (g *Guard) newSession(dir string) (*Session, error) {
	snap, ok := g.store.Get(dir)
	if !ok {
		return nil, fmt.Errorf("no snapshot for %s", dir)
	}

	log := logger.ForDirectory(g.logger, dir)

	source, err := g.newSource(log)
	if err != nil {
		return nil, pperrors.NewWatchSetupError("failed to create event source", err)
	}

	reactor, err := NewReactor(ReactorConfig{
		ProtectedDir:   dir,
		BackupRoot:     g.cfg.BackupDir,
		QuarantineRoot: g.cfg.QuarantineDir,
		RenameAsRemove: g.cfg.RenameAsRemove,
		Snapshot:       snap,
		Allowlist:      g.allow,
		Mirror:         g.mirror,
		Hasher:         g.hasher,
		Recorder:       g.recorder,
		Metrics:        g.metrics,
		Limiter:        newLimiter(g.cfg.ReactionRate),
		Logger:         log,
	})
	if err != nil {
		return nil, err
	}

	return NewSession(source, reactor, snap, g.metrics, log), nil
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(math.Ceil(perSecond))
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Status reports every configured directory and whether its session runs
func (g *Guard) Status() []SessionStatus {
	dirs := g.store.Dirs()
	statuses := make([]SessionStatus, 0, len(dirs))

	g.sessionsMu.RLock()
	defer g.sessionsMu.RUnlock()

	for _, dir := range dirs {
		st := SessionStatus{Dir: dir}
		if snap, ok := g.store.Get(dir); ok {
			st.SnapshotEntries = snap.Len()
		}
		if s, ok := g.sessions[dir]; ok {
			st.Active = s.IsRunning()
		}
		statuses = append(statuses, st)
	}
	return statuses
}
