package command

import (
	"context"
	"fmt"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/course"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESET PROGRESS COMMAND
// Clears all completions for a student in a course, returning the course
// to its initial gated state. Watched-interval history is kept so a
// re-watch of an already seen video still counts under strict validation.
// ══════════════════════════════════════════════════════════════════════════════

// ResetProgressCommand contains the data to reset course progress.
type ResetProgressCommand struct {
	// StudentID is the ID of the student.
	StudentID string

	// CourseID is the ID of the course to reset.
	CourseID string

	// ClearWatchHistory also drops the watched-interval sets.
	ClearWatchHistory bool

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ResetProgressCommand) Validate() error {
	if _, err := shared.NewStudentID(c.StudentID); err != nil {
		return fmt.Errorf("reset_progress: %w", err)
	}
	if _, err := shared.NewCourseID(c.CourseID); err != nil {
		return fmt.Errorf("reset_progress: %w", err)
	}
	return nil
}

// ResetProgressResult contains the result of resetting progress.
type ResetProgressResult struct {
	// CompletionPercentage is always zero after a reset; kept for a
	// uniform command result shape.
	CompletionPercentage int
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ResetProgressHandler handles the ResetProgressCommand.
type ResetProgressHandler struct {
	progressRepo   progress.Repository
	progressCache  progress.Cache
	catalog        course.CatalogReader
	enrollment     course.EnrollmentChecker
	eventPublisher shared.EventPublisher
}

// NewResetProgressHandler creates a new ResetProgressHandler.
func NewResetProgressHandler(
	progressRepo progress.Repository,
	progressCache progress.Cache,
	catalog course.CatalogReader,
	enrollment course.EnrollmentChecker,
	eventPublisher shared.EventPublisher,
) *ResetProgressHandler {
	return &ResetProgressHandler{
		progressRepo:   progressRepo,
		progressCache:  progressCache,
		catalog:        catalog,
		enrollment:     enrollment,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the reset progress command.
func (h *ResetProgressHandler) Handle(ctx context.Context, cmd ResetProgressCommand) (*ResetProgressResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	studentID := shared.StudentID(cmd.StudentID)
	courseID := shared.CourseID(cmd.CourseID)

	if err := ensureEnrolled(ctx, h.enrollment, studentID, courseID); err != nil {
		return nil, err
	}

	_, err := mutateProgress(ctx, h.progressRepo, h.catalog, studentID, courseID, false,
		func(p *progress.Progress) error {
			p.Reset()
			if cmd.ClearWatchHistory {
				p.ClearVideoProgress()
			}
			p.Touch()
			return nil
		})
	if err != nil {
		return nil, err
	}

	invalidateCache(ctx, h.progressCache, studentID, courseID)
	publishEvents(h.eventPublisher, []shared.Event{
		progress.NewProgressResetEvent(studentID, courseID),
	})

	return &ResetProgressResult{CompletionPercentage: 0}, nil
}
