package command

import (
	"context"
	"fmt"
	"time"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/course"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MARK COMPLETE COMMAND
// Marks a material as completed for a student. This is the gate-keeping
// write: strict linear order is enforced here, video materials must meet
// the watch threshold, and crossing into 100% course completion emits
// the course-completed event exactly on the transition.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultWatchThresholdPercent is the minimum watched share of a video
// required to mark it complete.
const DefaultWatchThresholdPercent = 95.0

// MarkCompleteCommand contains the data to complete a material.
type MarkCompleteCommand struct {
	// StudentID is the ID of the student.
	StudentID string

	// CourseID is the ID of the course.
	CourseID string

	// MaterialID is the ID of the material being completed.
	MaterialID string

	// WatchTime is the client-reported watched seconds (video materials).
	WatchTime float64

	// TotalDuration is the client-reported video duration in seconds.
	TotalDuration float64

	// FullyWatched is the client-reported "watched to the end" flag.
	FullyWatched bool

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c MarkCompleteCommand) Validate() error {
	if _, err := shared.NewStudentID(c.StudentID); err != nil {
		return fmt.Errorf("mark_complete: %w", err)
	}
	if _, err := shared.NewCourseID(c.CourseID); err != nil {
		return fmt.Errorf("mark_complete: %w", err)
	}
	if _, err := shared.NewMaterialID(c.MaterialID); err != nil {
		return fmt.Errorf("mark_complete: %w", err)
	}
	if _, err := shared.NewSeconds(c.WatchTime); err != nil {
		return fmt.Errorf("mark_complete: watch_time: %w", err)
	}
	if _, err := shared.NewSeconds(c.TotalDuration); err != nil {
		return fmt.Errorf("mark_complete: total_duration: %w", err)
	}
	return nil
}

// MarkCompleteResult contains the result of completing a material.
type MarkCompleteResult struct {
	// Changed indicates whether this call transitioned the material to
	// completed. Repeat completions are accepted and return false.
	Changed bool

	// CompletionPercentage is the course percentage after the write.
	CompletionPercentage int

	// CourseCompleted is true only on the call that crossed into 100%.
	CourseCompleted bool

	// UnlockedMaterialID is the ID of the next material this completion
	// unlocked, empty if none.
	UnlockedMaterialID string

	// CompletedAt is when the completion was recorded.
	CompletedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// MarkCompleteConfig contains completion-policy configuration.
type MarkCompleteConfig struct {
	// WatchThresholdPercent is the required watched share for videos.
	WatchThresholdPercent float64

	// StrictWatchValidation derives the watched share from the
	// server-side interval tracker instead of trusting the client
	// heartbeat payload.
	StrictWatchValidation bool
}

// DefaultMarkCompleteConfig returns default configuration.
func DefaultMarkCompleteConfig() MarkCompleteConfig {
	return MarkCompleteConfig{
		WatchThresholdPercent: DefaultWatchThresholdPercent,
		StrictWatchValidation: false,
	}
}

// MarkCompleteHandler handles the MarkCompleteCommand.
type MarkCompleteHandler struct {
	progressRepo   progress.Repository
	progressCache  progress.Cache
	catalog        course.CatalogReader
	enrollment     course.EnrollmentChecker
	eventPublisher shared.EventPublisher
	config         MarkCompleteConfig
}

// NewMarkCompleteHandler creates a new MarkCompleteHandler.
func NewMarkCompleteHandler(
	progressRepo progress.Repository,
	progressCache progress.Cache,
	catalog course.CatalogReader,
	enrollment course.EnrollmentChecker,
	eventPublisher shared.EventPublisher,
	config MarkCompleteConfig,
) *MarkCompleteHandler {
	if config.WatchThresholdPercent <= 0 || config.WatchThresholdPercent > 100 {
		config.WatchThresholdPercent = DefaultWatchThresholdPercent
	}

	return &MarkCompleteHandler{
		progressRepo:   progressRepo,
		progressCache:  progressCache,
		catalog:        catalog,
		enrollment:     enrollment,
		eventPublisher: eventPublisher,
		config:         config,
	}
}

// Handle executes the mark complete command.
func (h *MarkCompleteHandler) Handle(ctx context.Context, cmd MarkCompleteCommand) (*MarkCompleteResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	studentID := shared.StudentID(cmd.StudentID)
	courseID := shared.CourseID(cmd.CourseID)
	materialID := shared.MaterialID(cmd.MaterialID)

	if err := ensureEnrolled(ctx, h.enrollment, studentID, courseID); err != nil {
		return nil, err
	}

	snapshot, err := h.catalog.GetSnapshot(ctx, courseID)
	if err != nil {
		return nil, err
	}

	material, index, found := snapshot.FindMaterial(materialID)
	if !found {
		return nil, shared.ErrMaterialNotFound
	}

	var (
		result MarkCompleteResult
		events []shared.Event
	)

	// The mutation re-runs on a version conflict against a freshly read
	// record: every captured output is rebuilt from scratch per attempt.
	saved, err := mutateProgress(ctx, h.progressRepo, h.catalog, studentID, courseID, true,
		func(p *progress.Progress) error {
			result = MarkCompleteResult{}
			events = events[:0]

			if oldTotal := p.TotalMaterials; p.SyncTotalMaterials(snapshot.MaterialCount()) {
				events = append(events, progress.NewMaterialCountDriftEvent(
					studentID, courseID, oldTotal, p.TotalMaterials))
			}

			gate := progress.EvaluateGate(snapshot.Materials, p.CompletedSet())
			if !gate.IsUnlocked(index) {
				return progress.NewLockedMaterialError(materialID, index, gate.NextUnlockedIndex)
			}

			now := time.Now().UTC()
			entry := progress.NewPlainCompletion(materialID, now)

			if material.IsVideo() {
				meta := progress.VideoCompletionMeta{
					WatchTime:     shared.Seconds(cmd.WatchTime),
					TotalDuration: shared.Seconds(cmd.TotalDuration),
					FullyWatched:  cmd.FullyWatched,
				}
				if err := h.checkWatchThreshold(p, materialID, meta); err != nil {
					return err
				}
				entry = progress.NewVideoCompletion(materialID, now, meta)
			}

			before := p.CompletionPercentage
			changed := p.MarkComplete(entry)
			after := p.CompletionPercentage
			p.Touch()

			result.Changed = changed
			result.CompletionPercentage = after.Int()
			result.CompletedAt = now

			if !changed {
				return nil
			}

			events = append(events, progress.NewMaterialCompletedEvent(
				studentID, courseID, materialID, index, after))

			if next := index + 1; next < snapshot.MaterialCount() {
				nextID := snapshot.Materials[next].ID
				result.UnlockedMaterialID = nextID.String()
				events = append(events, progress.NewMaterialUnlockedEvent(
					studentID, courseID, nextID, next))
			}

			// Edge trigger: fire only on the transition into 100%,
			// never on repeat calls at 100%.
			if !before.IsComplete() && after.IsComplete() {
				result.CourseCompleted = true
				events = append(events, progress.NewCourseCompletedEvent(
					studentID, courseID, p.TotalMaterials))
			}

			return nil
		})
	if err != nil {
		return nil, err
	}

	invalidateCache(ctx, h.progressCache, studentID, courseID)
	publishEvents(h.eventPublisher, events)

	result.CompletionPercentage = saved.CompletionPercentage.Int()
	return &result, nil
}

// checkWatchThreshold verifies the video was watched far enough.
// Source of truth depends on the strict_watch_validation flag.
func (h *MarkCompleteHandler) checkWatchThreshold(
	p *progress.Progress,
	materialID shared.MaterialID,
	meta progress.VideoCompletionMeta,
) error {
	if !h.config.StrictWatchValidation && meta.FullyWatched {
		return nil
	}

	ratio := meta.WatchRatio()
	if h.config.StrictWatchValidation {
		ratio = p.ServerWatchRatio(materialID)
	}

	watched := ratio * 100
	if watched < h.config.WatchThresholdPercent {
		return progress.NewInsufficientWatchTimeError(materialID, watched, h.config.WatchThresholdPercent)
	}
	return nil
}
