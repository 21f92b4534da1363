// Package jobs contains implementations of scheduled jobs for Kurso Learning Hub.
// Each job keeps derived progress data consistent with the course catalog,
// which authors keep editing while students learn.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/course"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
	"github.com/kurso-hub/kurso-learning-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESYNC MATERIAL COUNTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ResyncMaterialCountsJob reconciles the per-record material-count snapshot
// with the current course catalog. Completion percentages are derived from
// this denominator, so a stale value silently skews every progress read
// until the student's next write.
//
// Write conflicts with live traffic are skipped, not retried: the record
// that lost the race was just rewritten by a handler that already synced
// its denominator.
type ResyncMaterialCountsJob struct {
	// Dependencies
	progressRepo   progress.Repository
	progressCache  progress.Cache
	catalog        course.CatalogReader
	eventPublisher shared.EventPublisher
	logger         *logger.Logger

	// Configuration
	config ResyncMaterialCountsConfig

	// State (for metrics)
	lastStats atomic.Value // *ResyncStats
}

// ResyncMaterialCountsConfig contains configuration for the resync job.
type ResyncMaterialCountsConfig struct {
	// ActiveWindow selects records accessed within this window.
	// Dormant records are reconciled lazily on their next write.
	ActiveWindow time.Duration

	// BatchSize is the number of progress records to process per run.
	BatchSize int

	// Timeout is the maximum duration for the entire resync operation.
	Timeout time.Duration
}

// DefaultResyncMaterialCountsConfig returns sensible defaults.
func DefaultResyncMaterialCountsConfig() ResyncMaterialCountsConfig {
	return ResyncMaterialCountsConfig{
		ActiveWindow: 7 * 24 * time.Hour,
		BatchSize:    500,
		Timeout:      5 * time.Minute,
	}
}

// ResyncStats contains statistics from a resync run.
type ResyncStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Scanned     int
	Drifted     int
	Skipped     int
	Failed      int
}

// NewResyncMaterialCountsJob creates a new resync job.
func NewResyncMaterialCountsJob(
	progressRepo progress.Repository,
	progressCache progress.Cache,
	catalog course.CatalogReader,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
	config ResyncMaterialCountsConfig,
) *ResyncMaterialCountsJob {
	if log == nil {
		log = logger.Default()
	}
	if config.ActiveWindow <= 0 {
		config.ActiveWindow = 7 * 24 * time.Hour
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 500
	}

	return &ResyncMaterialCountsJob{
		progressRepo:   progressRepo,
		progressCache:  progressCache,
		catalog:        catalog,
		eventPublisher: eventPublisher,
		logger:         log.With(logger.Component("resync_job")),
		config:         config,
	}
}

// Name returns the job name.
func (j *ResyncMaterialCountsJob) Name() string {
	return "resync_material_counts"
}

// Description returns a human-readable description.
func (j *ResyncMaterialCountsJob) Description() string {
	return "Reconciles progress denominators with the current course catalog"
}

// Run executes the resync job.
func (j *ResyncMaterialCountsJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &ResyncStats{StartedAt: startedAt}

	j.logger.Info("starting resync_material_counts job")

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	since := startedAt.Add(-j.config.ActiveWindow)
	records, err := j.progressRepo.ListAccessedSince(ctx, since, j.config.BatchSize)
	if err != nil {
		return fmt.Errorf("list active progress records: %w", err)
	}

	stats.Scanned = len(records)
	j.logger.Info("found active progress records", logger.Int("count", stats.Scanned))

	// One catalog call per course, not per record.
	counts := make(map[shared.CourseID]int)

	for _, p := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		count, ok := counts[p.CourseID]
		if !ok {
			count, err = j.catalog.GetMaterialCount(ctx, p.CourseID)
			if err != nil {
				if errors.Is(err, shared.ErrCourseNotFound) {
					// Course removed from the catalog. Leave the record as is:
					// unenrollment is an administrative action, not ours.
					j.logger.Warn("course missing from catalog",
						logger.CourseID(p.CourseID.String()),
					)
					stats.Skipped++
					continue
				}
				stats.Failed++
				j.logger.Error("catalog lookup failed",
					logger.CourseID(p.CourseID.String()),
					logger.Err(err),
				)
				continue
			}
			counts[p.CourseID] = count
		}

		oldCount := p.TotalMaterials
		if !p.SyncTotalMaterials(count) {
			stats.Skipped++
			continue
		}

		if err := j.progressRepo.Update(ctx, p); err != nil {
			if errors.Is(err, shared.ErrProgressVersionConflict) {
				stats.Skipped++
				continue
			}
			stats.Failed++
			j.logger.Error("progress update failed",
				logger.StudentID(p.StudentID.String()),
				logger.CourseID(p.CourseID.String()),
				logger.Err(err),
			)
			continue
		}

		stats.Drifted++
		if j.progressCache != nil {
			_ = j.progressCache.Invalidate(ctx, p.StudentID, p.CourseID)
		}
		if j.eventPublisher != nil {
			_ = j.eventPublisher.Publish(progress.NewMaterialCountDriftEvent(
				p.StudentID, p.CourseID, oldCount, p.TotalMaterials,
			))
		}
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastStats.Store(stats)

	if j.eventPublisher != nil {
		_ = j.eventPublisher.Publish(progress.NewResyncCompletedEvent(
			stats.Scanned, stats.Drifted, stats.Failed,
		))
	}

	j.logger.Info("resync_material_counts job completed",
		logger.Int("scanned", stats.Scanned),
		logger.Int("drifted", stats.Drifted),
		logger.Int("skipped", stats.Skipped),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration),
	)

	if stats.Failed > 0 && stats.Drifted == 0 && stats.Skipped == 0 {
		return fmt.Errorf("resync failed for all %d records", stats.Failed)
	}

	return nil
}

// LastStats returns statistics from the most recent run, or nil.
func (j *ResyncMaterialCountsJob) LastStats() *ResyncStats {
	stats, _ := j.lastStats.Load().(*ResyncStats)
	return stats
}
