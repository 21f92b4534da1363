package command

import (
	"context"
	"errors"
	"time"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/course"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
	"github.com/kurso-hub/kurso-learning-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// SHARED WRITE-PATH HELPERS
// Every command follows the same read-modify-write cycle against the
// progress repository. Concurrent writers are resolved with optimistic
// versioning: a version conflict re-reads the record and re-applies the
// mutation, so mutate functions must be safe to run more than once.
// ══════════════════════════════════════════════════════════════════════════════

// progressWriteRetryOpts configure the conflict retry loop.
// Tight delays: conflicts come from our own replicas, not a flaky network.
var progressWriteRetryOpts = []retry.Option{
	retry.WithMaxAttempts(4),
	retry.WithInitialDelay(25 * time.Millisecond),
	retry.WithMaxDelay(250 * time.Millisecond),
	retry.WithMultiplier(2.0),
	retry.WithJitter(0.2),
}

// ensureEnrolled verifies the student is enrolled in the course.
func ensureEnrolled(
	ctx context.Context,
	enrollment course.EnrollmentChecker,
	studentID shared.StudentID,
	courseID shared.CourseID,
) error {
	enrolled, err := enrollment.IsEnrolled(ctx, studentID, courseID)
	if err != nil {
		return err
	}
	if !enrolled {
		return shared.ErrNotEnrolled
	}
	return nil
}

// mutateProgress loads the progress record (creating it lazily on first
// touch when allowCreate is set), applies mutate and persists the result.
// Version conflicts and lost create races are retried with a fresh read;
// business errors from mutate abort the loop unchanged.
func mutateProgress(
	ctx context.Context,
	repo progress.Repository,
	catalog course.CatalogReader,
	studentID shared.StudentID,
	courseID shared.CourseID,
	allowCreate bool,
	mutate func(p *progress.Progress) error,
) (*progress.Progress, error) {
	return retry.DoWithData(ctx, func(ctx context.Context) (*progress.Progress, error) {
		created := false

		p, err := repo.Get(ctx, studentID, courseID)
		switch {
		case err == nil:
			// Existing record, plain update path.
		case errors.Is(err, shared.ErrProgressNotFound) && allowCreate:
			total, cerr := catalog.GetMaterialCount(ctx, courseID)
			if cerr != nil {
				return nil, cerr
			}
			p = progress.NewProgress(studentID, courseID, total)
			created = true
		default:
			return nil, err
		}

		if err := mutate(p); err != nil {
			return nil, err
		}

		if created {
			if err := repo.Create(ctx, p); err != nil {
				// Lost the lazy-creation race: the record exists now,
				// re-read it and re-apply the mutation.
				if errors.Is(err, shared.ErrProgressAlreadyExists) {
					return nil, retry.Retryable(err)
				}
				return nil, err
			}
			return p, nil
		}

		if err := repo.Update(ctx, p); err != nil {
			if errors.Is(err, shared.ErrProgressVersionConflict) {
				return nil, retry.Retryable(err)
			}
			return nil, err
		}
		return p, nil
	}, progressWriteRetryOpts...)
}

// invalidateCache drops the cached snapshot after a successful write.
// Best effort: a failed invalidation only extends staleness until TTL.
func invalidateCache(
	ctx context.Context,
	cache progress.Cache,
	studentID shared.StudentID,
	courseID shared.CourseID,
) {
	if cache == nil {
		return
	}
	_ = cache.Invalidate(ctx, studentID, courseID)
}

// publishEvents delivers domain events after the write committed.
// Event delivery never fails the command.
func publishEvents(publisher shared.EventPublisher, events []shared.Event) {
	if publisher == nil {
		return
	}
	for _, event := range events {
		_ = publisher.Publish(event)
	}
}
