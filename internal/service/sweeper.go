package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"campus/internal/middleware"
	"campus/internal/models"
	"campus/internal/observability"
	"campus/internal/repository"
	"campus/internal/storage"

	"github.com/robfig/cron/v3"
)

const (
	defaultSweepSchedule = "@every 30m"
	defaultStageMaxAge   = time.Hour
	sweepBatchSize       = 200
)

// SweeperConfig tunes OrphanSweeper.
type SweeperConfig struct {
	// Schedule is a cron spec or descriptor such as "@every 30m".
	Schedule string
	// StageMaxAge is how long a staged payload may exist before it is removed.
	StageMaxAge time.Duration
	// OrphanGrace is how old an unreferenced published payload must be before it is removed.
	OrphanGrace time.Duration
}

// SweepReport summarizes one sweep.
type SweepReport struct {
	StagedRemoved       int
	UnreferencedRemoved int
	MissingPayloads     int
}

// OrphanSweeper reconciles payloads with resource rows. It removes abandoned
// stages and unreferenced payloads, and reports rows whose payload is gone.
// Rows are never deleted by the sweeper.
type OrphanSweeper struct {
	resources repository.ResourceRepository
	blobs     storage.BlobStore
	cfg       SweeperConfig
	now       func() time.Time

	runMu sync.Mutex
	cron  *cron.Cron
}

func NewOrphanSweeper(resources repository.ResourceRepository, blobs storage.BlobStore, cfg SweeperConfig) *OrphanSweeper {
	if cfg.Schedule == "" {
		cfg.Schedule = defaultSweepSchedule
	}
	if cfg.StageMaxAge <= 0 {
		cfg.StageMaxAge = defaultStageMaxAge
	}
	if cfg.OrphanGrace <= 0 {
		cfg.OrphanGrace = cfg.StageMaxAge
	}
	return &OrphanSweeper{resources: resources, blobs: blobs, cfg: cfg, now: time.Now}
}

// Start schedules RunOnce until Stop is called.
func (s *OrphanSweeper) Start(ctx context.Context) error {
	logger := cronLogger{}
	c := cron.New(cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))
	if _, err := c.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			middleware.Logger.Error("orphan sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.cfg.Schedule, err)
	}
	s.cron = c
	c.Start()
	middleware.Logger.Info("orphan sweeper started", "schedule", s.cfg.Schedule, "backend", s.blobs.Backend())
	return nil
}

// Stop halts scheduling and waits for a running sweep, or for ctx.
func (s *OrphanSweeper) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce performs one full sweep. Phase failures are joined; later phases still run.
func (s *OrphanSweeper) RunOnce(ctx context.Context) (report SweepReport, err error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	ctx, span := observability.StartServiceSpan(ctx, "OrphanSweeper", "RunOnce")
	defer func() {
		observability.EndSpan(span, err)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		observability.SweepRuns.WithLabelValues(outcome).Inc()
	}()

	var errs []error
	if n, err := s.sweepStaged(ctx); err != nil {
		errs = append(errs, fmt.Errorf("sweep staged: %w", err))
	} else {
		report.StagedRemoved = n
	}
	if n, err := s.sweepUnreferenced(ctx); err != nil {
		errs = append(errs, fmt.Errorf("sweep unreferenced: %w", err))
	} else {
		report.UnreferencedRemoved = n
	}
	if n, err := s.countMissingPayloads(ctx); err != nil {
		errs = append(errs, fmt.Errorf("check payloads: %w", err))
	} else {
		report.MissingPayloads = n
		observability.ResourcesMissingPayload.Set(float64(n))
	}

	middleware.Logger.InfoContext(ctx, "orphan sweep finished",
		"staged_removed", report.StagedRemoved,
		"unreferenced_removed", report.UnreferencedRemoved,
		"missing_payloads", report.MissingPayloads)
	return report, errors.Join(errs...)
}

func (s *OrphanSweeper) sweepStaged(ctx context.Context) (int, error) {
	staged, err := s.blobs.ListStaged(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-s.cfg.StageMaxAge)
	removed := 0
	for _, blob := range staged {
		if blob.ModTime.After(cutoff) {
			continue
		}
		if err := s.blobs.Discard(ctx, blob.Key); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to remove stale stage", "key", blob.Key, "error", err)
			continue
		}
		removed++
		observability.SweepRemoved.WithLabelValues("staged").Inc()
	}
	return removed, nil
}

func (s *OrphanSweeper) sweepUnreferenced(ctx context.Context) (int, error) {
	published, err := s.blobs.ListPublished(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-s.cfg.OrphanGrace)
	candidates := make([]storage.BlobInfo, 0, len(published))
	for _, blob := range published {
		if !blob.ModTime.After(cutoff) {
			candidates = append(candidates, blob)
		}
	}

	removed := 0
	for start := 0; start < len(candidates); start += sweepBatchSize {
		batch := candidates[start:min(start+sweepBatchSize, len(candidates))]
		paths := make([]string, len(batch))
		for i, blob := range batch {
			paths[i] = models.FilePathForKey(blob.Key)
		}
		referenced, err := s.resources.ExistingFilePaths(ctx, paths)
		if err != nil {
			return removed, err
		}
		for i, blob := range batch {
			if referenced[paths[i]] {
				continue
			}
			if err := s.blobs.Delete(ctx, blob.Key); err != nil {
				middleware.Logger.WarnContext(ctx, "failed to remove unreferenced payload", "key", blob.Key, "error", err)
				continue
			}
			removed++
			observability.SweepRemoved.WithLabelValues("unreferenced").Inc()
		}
	}
	return removed, nil
}

func (s *OrphanSweeper) countMissingPayloads(ctx context.Context) (int, error) {
	missing := 0
	err := s.resources.EachBatch(ctx, sweepBatchSize, func(batch []models.Resource) error {
		for i := range batch {
			exists, err := s.blobs.Exists(ctx, batch[i].StorageKey())
			if err != nil {
				return err
			}
			if !exists {
				missing++
				middleware.Logger.WarnContext(ctx, "resource payload missing",
					"resource_id", batch[i].ID, "file_path", batch[i].FilePath)
			}
		}
		return nil
	})
	return missing, err
}

// cronLogger routes cron's recover and skip messages to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	middleware.Logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	middleware.Logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
