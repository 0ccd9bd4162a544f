package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vadim/glance/internal/domain/analytics/policy"
)

// WorkspaceLister pages through workspaces that own widgets
type WorkspaceLister interface {
	ListWorkspaceIDs(ctx context.Context, limit, offset int) ([]string, error)
}

// SnapshotExporter exports a report snapshot for one workspace
type SnapshotExporter interface {
	ExportSnapshot(ctx context.Context, workspaceID string) (*policy.ExportOutput, error)
}

// Scheduler periodically exports report snapshots for every workspace
type Scheduler struct {
	lister    WorkspaceLister
	exporter  SnapshotExporter
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	stopCh    chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// Config holds configuration for the snapshot scheduler
type Config struct {
	Interval  time.Duration
	BatchSize int
}

// New creates a new snapshot scheduler
func New(lister WorkspaceLister, exporter SnapshotExporter, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Interval == 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 50
	}

	return &Scheduler{
		lister:    lister,
		exporter:  exporter,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info("snapshot scheduler started", "interval", s.interval, "batch_size", s.batchSize)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the scheduler and waits for the current run to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("snapshot scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce exports a snapshot for every workspace, one page at a time.
// Failures are logged per workspace and do not stop the run.
func (s *Scheduler) RunOnce(ctx context.Context) (exported, failed int) {
	for offset := 0; ; offset += s.batchSize {
		ids, err := s.lister.ListWorkspaceIDs(ctx, s.batchSize, offset)
		if err != nil {
			s.logger.Error("failed to list workspaces", "offset", offset, "error", err)
			return exported, failed
		}

		for _, id := range ids {
			select {
			case <-ctx.Done():
				return exported, failed
			default:
			}

			out, err := s.exporter.ExportSnapshot(ctx, id)
			if err != nil {
				failed++
				s.logger.Error("failed to export snapshot", "workspace_id", id, "error", err)
				continue
			}
			exported++
			s.logger.Debug("exported snapshot", "workspace_id", id, "key", out.Key)
		}

		if len(ids) < s.batchSize {
			break
		}
	}

	s.logger.Info("snapshot run complete", "exported", exported, "failed", failed)
	return exported, failed
}
