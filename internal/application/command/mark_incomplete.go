package command

import (
	"context"
	"fmt"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/course"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MARK INCOMPLETE COMMAND
// Reopens a completed material. Re-locks everything past it through the
// gating rule on the next read; already-issued certificates are never
// revoked.
// ══════════════════════════════════════════════════════════════════════════════

// MarkIncompleteCommand contains the data to reopen a material.
type MarkIncompleteCommand struct {
	// StudentID is the ID of the student.
	StudentID string

	// CourseID is the ID of the course.
	CourseID string

	// MaterialID is the ID of the material to reopen.
	MaterialID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c MarkIncompleteCommand) Validate() error {
	if _, err := shared.NewStudentID(c.StudentID); err != nil {
		return fmt.Errorf("mark_incomplete: %w", err)
	}
	if _, err := shared.NewCourseID(c.CourseID); err != nil {
		return fmt.Errorf("mark_incomplete: %w", err)
	}
	if _, err := shared.NewMaterialID(c.MaterialID); err != nil {
		return fmt.Errorf("mark_incomplete: %w", err)
	}
	return nil
}

// MarkIncompleteResult contains the result of reopening a material.
type MarkIncompleteResult struct {
	// Changed indicates whether the material was completed before this
	// call. Reopening a not-completed material is a no-op, not an error.
	Changed bool

	// CompletionPercentage is the course percentage after the write.
	CompletionPercentage int
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// MarkIncompleteHandler handles the MarkIncompleteCommand.
type MarkIncompleteHandler struct {
	progressRepo   progress.Repository
	progressCache  progress.Cache
	catalog        course.CatalogReader
	enrollment     course.EnrollmentChecker
	eventPublisher shared.EventPublisher
}

// NewMarkIncompleteHandler creates a new MarkIncompleteHandler.
func NewMarkIncompleteHandler(
	progressRepo progress.Repository,
	progressCache progress.Cache,
	catalog course.CatalogReader,
	enrollment course.EnrollmentChecker,
	eventPublisher shared.EventPublisher,
) *MarkIncompleteHandler {
	return &MarkIncompleteHandler{
		progressRepo:   progressRepo,
		progressCache:  progressCache,
		catalog:        catalog,
		enrollment:     enrollment,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the mark incomplete command.
func (h *MarkIncompleteHandler) Handle(ctx context.Context, cmd MarkIncompleteCommand) (*MarkIncompleteResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	studentID := shared.StudentID(cmd.StudentID)
	courseID := shared.CourseID(cmd.CourseID)
	materialID := shared.MaterialID(cmd.MaterialID)

	if err := ensureEnrolled(ctx, h.enrollment, studentID, courseID); err != nil {
		return nil, err
	}

	var (
		result MarkIncompleteResult
		events []shared.Event
	)

	// allowCreate is false: reopening a material for a student with no
	// progress record at all is a not-found, not a lazy creation.
	_, err := mutateProgress(ctx, h.progressRepo, h.catalog, studentID, courseID, false,
		func(p *progress.Progress) error {
			result = MarkIncompleteResult{}
			events = events[:0]

			changed := p.MarkIncomplete(materialID)
			p.Touch()

			result.Changed = changed
			result.CompletionPercentage = p.CompletionPercentage.Int()

			if changed {
				events = append(events, progress.NewMaterialReopenedEvent(
					studentID, courseID, materialID, p.CompletionPercentage))
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	invalidateCache(ctx, h.progressCache, studentID, courseID)
	publishEvents(h.eventPublisher, events)

	return &result, nil
}
