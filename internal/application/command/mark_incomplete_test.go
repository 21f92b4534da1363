package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

func seedCompletedCourse(repo *memProgressRepo) {
	p := progress.NewProgress(shared.StudentID(testStudentID), shared.CourseID(testCourseID), 3)
	now := time.Now().UTC()
	p.MarkComplete(progress.NewVideoCompletion(shared.MaterialID(matVideo), now, progress.VideoCompletionMeta{
		WatchTime: 100, TotalDuration: 100, FullyWatched: true,
	}))
	p.MarkComplete(progress.NewPlainCompletion(shared.MaterialID(matDoc), now))
	p.MarkComplete(progress.NewPlainCompletion(shared.MaterialID(matLast), now))
	repo.seed(p)
}

func newMarkIncompleteHandler(repo *memProgressRepo, pub *capturePublisher) *MarkIncompleteHandler {
	return NewMarkIncompleteHandler(
		repo,
		nil,
		&stubCatalog{snapshot: testSnapshot()},
		&stubEnrollment{enrolled: true},
		pub,
	)
}

func TestMarkIncomplete_ReopensMaterial(t *testing.T) {
	repo := newMemProgressRepo()
	pub := &capturePublisher{}
	seedCompletedCourse(repo)

	h := newMarkIncompleteHandler(repo, pub)

	result, err := h.Handle(context.Background(), MarkIncompleteCommand{
		StudentID:  testStudentID,
		CourseID:   testCourseID,
		MaterialID: matDoc,
	})

	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, 67, result.CompletionPercentage)
	assert.Equal(t, 1, pub.countOf(shared.EventMaterialReopened))

	// Reopening never emits course-completion or certificate events
	assert.Equal(t, 0, pub.countOf(shared.EventCourseCompleted))
}

func TestMarkIncomplete_NotCompletedIsNoop(t *testing.T) {
	repo := newMemProgressRepo()
	pub := &capturePublisher{}

	p := progress.NewProgress(shared.StudentID(testStudentID), shared.CourseID(testCourseID), 3)
	repo.seed(p)

	h := newMarkIncompleteHandler(repo, pub)

	result, err := h.Handle(context.Background(), MarkIncompleteCommand{
		StudentID:  testStudentID,
		CourseID:   testCourseID,
		MaterialID: matDoc,
	})

	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Empty(t, pub.events)
}

func TestMarkIncomplete_NoRecordIsNotFound(t *testing.T) {
	h := newMarkIncompleteHandler(newMemProgressRepo(), &capturePublisher{})

	_, err := h.Handle(context.Background(), MarkIncompleteCommand{
		StudentID:  testStudentID,
		CourseID:   testCourseID,
		MaterialID: matDoc,
	})

	assert.ErrorIs(t, err, shared.ErrProgressNotFound)
}

func TestMarkIncomplete_RelocksThroughGate(t *testing.T) {
	repo := newMemProgressRepo()
	pub := &capturePublisher{}
	seedCompletedCourse(repo)

	h := newMarkIncompleteHandler(repo, pub)

	// Reopen the first material: the gate must re-lock everything past
	// the new frontier on the next evaluation
	_, err := h.Handle(context.Background(), MarkIncompleteCommand{
		StudentID:  testStudentID,
		CourseID:   testCourseID,
		MaterialID: matVideo,
	})
	require.NoError(t, err)

	p, err := repo.Get(context.Background(), shared.StudentID(testStudentID), shared.CourseID(testCourseID))
	require.NoError(t, err)

	gate := progress.EvaluateGate(testSnapshot().Materials, p.CompletedSet())
	assert.Equal(t, 0, gate.NextUnlockedIndex)
	assert.True(t, gate.IsUnlocked(0))
	// Index 1 stays unlocked only via its completed predecessor rule;
	// matVideo is no longer completed, so it is locked
	assert.False(t, gate.IsUnlocked(1))
}
