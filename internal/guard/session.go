package guard

import (
	"context"
	"sync/atomic"

	"github.com/filegirl/filegirl/internal/core/interfaces"
	"github.com/filegirl/filegirl/internal/metrics"
	"github.com/filegirl/filegirl/pkg/models"
	"go.uber.org/zap"
)

// Session watches one protected directory and feeds its events, in
// delivery order, to the directory's reactor.
type Session struct {
	dir      string
	source   interfaces.EventSource
	reactor  *Reactor
	snapshot *Snapshot
	metrics  *metrics.Metrics
	logger   *zap.Logger
	running  atomic.Bool
}

// NewSession creates a watch session
func NewSession(source interfaces.EventSource, reactor *Reactor, snapshot *Snapshot, m *metrics.Metrics, logger *zap.Logger) *Session {
	return &Session{
		dir:      snapshot.Root(),
		source:   source,
		reactor:  reactor,
		snapshot: snapshot,
		metrics:  m,
		logger:   logger.With(zap.String("component", "session")),
	}
}

// Dir returns the protected directory
func (s *Session) Dir() string {
	return s.dir
}

// IsRunning reports whether the session is processing events
func (s *Session) IsRunning() bool {
	return s.running.Load()
}

// Run attaches the watch and processes events until ctx is cancelled or
// the event source closes. A watch that cannot be attached is returned as
// a WatchSetupError.
func (s *Session) Run(ctx context.Context) error {
	if err := s.source.Start(ctx, s.dir); err != nil {
		s.source.Stop()
		return err
	}
	defer s.source.Stop()

	s.running.Store(true)
	s.metrics.SessionStarted()
	defer func() {
		s.running.Store(false)
		s.metrics.SessionStopped()
	}()

	s.logger.Info("Monitoring directory", zap.Int("snapshot_entries", s.snapshot.Len()))

	events := s.source.Events()
	errs := s.source.Errors()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.handle(ctx, ev)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Error("Watch error", zap.Error(err))
		}
	}
}

func (s *Session) handle(ctx context.Context, ev interfaces.ChangeEvent) {
	if !s.snapshot.Contains(ev.Path) {
		s.logger.Warn("Dropping event outside the protected directory", zap.String("path", ev.Path))
		return
	}

	incident, err := s.reactor.Handle(ctx, ev)
	if err != nil {
		s.logger.Error("Failed to handle event",
			zap.String("path", ev.Path),
			zap.String("type", ev.Type.String()),
			zap.Error(err),
		)
		return
	}

	if incident == nil || !incident.Succeeded() || incident.Action == models.ActionDelete {
		return
	}

	// A restored directory needs its watches back, including the root itself
	if entry, ok := s.snapshot.Lookup(incident.Path); ok && entry.IsDir {
		if err := s.source.AddPath(incident.Path); err != nil {
			s.logger.Warn("Failed to watch restored directory",
				zap.String("path", incident.Path),
				zap.Error(err),
			)
		}
	}
}
