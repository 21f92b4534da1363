// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/course"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD INTERVAL COMMAND
// Ingests a playback position heartbeat from the video player and folds
// it into the material's watched-interval set. Heartbeats arrive every
// second while the player runs, so this is the hottest write path and
// stays deliberately cheap: no gating checks, no events on the happy path.
// ══════════════════════════════════════════════════════════════════════════════

// RecordIntervalCommand contains one playback position observation.
type RecordIntervalCommand struct {
	// StudentID is the ID of the watching student.
	StudentID string

	// CourseID is the ID of the course being watched.
	CourseID string

	// MaterialID is the ID of the video material.
	MaterialID string

	// CurrentTime is the playback position in seconds.
	CurrentTime float64

	// Duration is the total video duration in seconds, as reported
	// by the player.
	Duration float64

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordIntervalCommand) Validate() error {
	if _, err := shared.NewStudentID(c.StudentID); err != nil {
		return fmt.Errorf("record_interval: %w", err)
	}
	if _, err := shared.NewCourseID(c.CourseID); err != nil {
		return fmt.Errorf("record_interval: %w", err)
	}
	if _, err := shared.NewMaterialID(c.MaterialID); err != nil {
		return fmt.Errorf("record_interval: %w", err)
	}
	if _, err := shared.NewSeconds(c.CurrentTime); err != nil {
		return fmt.Errorf("record_interval: current_time: %w", err)
	}
	if _, err := shared.NewSeconds(c.Duration); err != nil {
		return fmt.Errorf("record_interval: duration: %w", err)
	}
	return nil
}

// RecordIntervalResult describes the material's watch state after the
// observation was folded in.
type RecordIntervalResult struct {
	// MaterialID is the ID of the video material.
	MaterialID string

	// WatchedSeconds is the total covered playback time.
	WatchedSeconds float64

	// WatchedPercent is the covered share of the video, 0..100.
	WatchedPercent float64

	// MaxWatchedTime is the furthest observed playback position.
	MaxWatchedTime float64

	// IntervalCount is the number of merged watched intervals.
	IntervalCount int
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordIntervalHandler handles the RecordIntervalCommand.
type RecordIntervalHandler struct {
	progressRepo  progress.Repository
	progressCache progress.Cache
	catalog       course.CatalogReader
	enrollment    course.EnrollmentChecker
}

// NewRecordIntervalHandler creates a new RecordIntervalHandler.
func NewRecordIntervalHandler(
	progressRepo progress.Repository,
	progressCache progress.Cache,
	catalog course.CatalogReader,
	enrollment course.EnrollmentChecker,
) *RecordIntervalHandler {
	return &RecordIntervalHandler{
		progressRepo:  progressRepo,
		progressCache: progressCache,
		catalog:       catalog,
		enrollment:    enrollment,
	}
}

// Handle executes the record interval command.
func (h *RecordIntervalHandler) Handle(ctx context.Context, cmd RecordIntervalCommand) (*RecordIntervalResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	studentID := shared.StudentID(cmd.StudentID)
	courseID := shared.CourseID(cmd.CourseID)
	materialID := shared.MaterialID(cmd.MaterialID)

	if err := ensureEnrolled(ctx, h.enrollment, studentID, courseID); err != nil {
		return nil, err
	}

	var state progress.VideoWatchProgress

	_, err := mutateProgress(ctx, h.progressRepo, h.catalog, studentID, courseID, true,
		func(p *progress.Progress) error {
			state = p.ObserveInterval(materialID, shared.Seconds(cmd.CurrentTime), shared.Seconds(cmd.Duration))
			p.Touch()
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("record_interval: %w", err)
	}

	invalidateCache(ctx, h.progressCache, studentID, courseID)

	return &RecordIntervalResult{
		MaterialID:     cmd.MaterialID,
		WatchedSeconds: state.Coverage().Float64(),
		WatchedPercent: state.WatchPercent(),
		MaxWatchedTime: state.MaxWatched().Float64(),
		IntervalCount:  len(state.WatchedSegments),
	}, nil
}
