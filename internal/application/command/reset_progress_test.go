package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

func newResetProgressHandler(repo *memProgressRepo, pub *capturePublisher) *ResetProgressHandler {
	return NewResetProgressHandler(
		repo,
		nil,
		&stubCatalog{snapshot: testSnapshot()},
		&stubEnrollment{enrolled: true},
		pub,
	)
}

func TestResetProgress_ClearsCompletions(t *testing.T) {
	repo := newMemProgressRepo()
	pub := &capturePublisher{}
	seedCompletedCourse(repo)

	h := newResetProgressHandler(repo, pub)

	result, err := h.Handle(context.Background(), ResetProgressCommand{
		StudentID: testStudentID,
		CourseID:  testCourseID,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.CompletionPercentage)
	assert.Equal(t, 1, pub.countOf(shared.EventProgressReset))

	p, err := repo.Get(context.Background(), shared.StudentID(testStudentID), shared.CourseID(testCourseID))
	require.NoError(t, err)
	assert.Empty(t, p.Completed)
	assert.Equal(t, shared.PercentZero, p.CompletionPercentage)
}

func TestResetProgress_KeepsWatchHistoryByDefault(t *testing.T) {
	repo := newMemProgressRepo()
	pub := &capturePublisher{}

	p := progress.NewProgress(shared.StudentID(testStudentID), shared.CourseID(testCourseID), 3)
	p.ObserveInterval(shared.MaterialID(matVideo), 5, 100)
	repo.seed(p)

	h := newResetProgressHandler(repo, pub)

	_, err := h.Handle(context.Background(), ResetProgressCommand{
		StudentID: testStudentID,
		CourseID:  testCourseID,
	})
	require.NoError(t, err)

	stored, err := repo.Get(context.Background(), shared.StudentID(testStudentID), shared.CourseID(testCourseID))
	require.NoError(t, err)
	assert.Len(t, stored.VideoProgress, 1)
}

func TestResetProgress_ClearWatchHistory(t *testing.T) {
	repo := newMemProgressRepo()
	pub := &capturePublisher{}

	p := progress.NewProgress(shared.StudentID(testStudentID), shared.CourseID(testCourseID), 3)
	p.ObserveInterval(shared.MaterialID(matVideo), 5, 100)
	repo.seed(p)

	h := newResetProgressHandler(repo, pub)

	_, err := h.Handle(context.Background(), ResetProgressCommand{
		StudentID:         testStudentID,
		CourseID:          testCourseID,
		ClearWatchHistory: true,
	})
	require.NoError(t, err)

	stored, err := repo.Get(context.Background(), shared.StudentID(testStudentID), shared.CourseID(testCourseID))
	require.NoError(t, err)
	assert.Empty(t, stored.VideoProgress)
}

func TestResetProgress_NoRecordIsNotFound(t *testing.T) {
	h := newResetProgressHandler(newMemProgressRepo(), &capturePublisher{})

	_, err := h.Handle(context.Background(), ResetProgressCommand{
		StudentID: testStudentID,
		CourseID:  testCourseID,
	})

	assert.ErrorIs(t, err, shared.ErrProgressNotFound)
}
