package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

func newRecordIntervalHandler(repo *memProgressRepo) *RecordIntervalHandler {
	return NewRecordIntervalHandler(
		repo,
		nil,
		&stubCatalog{snapshot: testSnapshot()},
		&stubEnrollment{enrolled: true},
	)
}

func TestRecordInterval_FirstObservationCreatesRecord(t *testing.T) {
	repo := newMemProgressRepo()
	h := newRecordIntervalHandler(repo)

	result, err := h.Handle(context.Background(), RecordIntervalCommand{
		StudentID:   testStudentID,
		CourseID:    testCourseID,
		MaterialID:  matVideo,
		CurrentTime: 0,
		Duration:    100,
	})

	require.NoError(t, err)
	assert.Equal(t, matVideo, result.MaterialID)
	assert.Equal(t, 1.0, result.WatchedSeconds)
	assert.Equal(t, 1, result.IntervalCount)

	// Heartbeat created the progress record lazily
	p, err := repo.Get(context.Background(), shared.StudentID(testStudentID), shared.CourseID(testCourseID))
	require.NoError(t, err)
	assert.Equal(t, 3, p.TotalMaterials)
}

func TestRecordInterval_HeartbeatStream(t *testing.T) {
	repo := newMemProgressRepo()
	h := newRecordIntervalHandler(repo)

	var last *RecordIntervalResult
	for i := 0; i < 30; i++ {
		result, err := h.Handle(context.Background(), RecordIntervalCommand{
			StudentID:   testStudentID,
			CourseID:    testCourseID,
			MaterialID:  matVideo,
			CurrentTime: float64(i),
			Duration:    100,
		})
		require.NoError(t, err)
		last = result
	}

	assert.Equal(t, 30.0, last.WatchedSeconds)
	assert.InDelta(t, 30.0, last.WatchedPercent, 0.001)
	assert.Equal(t, 30.0, last.MaxWatchedTime)
	assert.Equal(t, 1, last.IntervalCount)
}

func TestRecordInterval_SeekProducesSecondInterval(t *testing.T) {
	repo := newMemProgressRepo()
	h := newRecordIntervalHandler(repo)

	for _, pos := range []float64{0, 1, 2, 60, 61} {
		_, err := h.Handle(context.Background(), RecordIntervalCommand{
			StudentID:   testStudentID,
			CourseID:    testCourseID,
			MaterialID:  matVideo,
			CurrentTime: pos,
			Duration:    100,
		})
		require.NoError(t, err)
	}

	result, err := h.Handle(context.Background(), RecordIntervalCommand{
		StudentID:   testStudentID,
		CourseID:    testCourseID,
		MaterialID:  matVideo,
		CurrentTime: 62,
		Duration:    100,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, result.IntervalCount)
	assert.Equal(t, 6.0, result.WatchedSeconds)
	assert.Equal(t, 63.0, result.MaxWatchedTime)
}

func TestRecordInterval_NoGatingOnHotPath(t *testing.T) {
	repo := newMemProgressRepo()
	h := newRecordIntervalHandler(repo)

	// Observing a locked material's video is allowed: gating applies to
	// completion, not to watching
	result, err := h.Handle(context.Background(), RecordIntervalCommand{
		StudentID:   testStudentID,
		CourseID:    testCourseID,
		MaterialID:  matDoc,
		CurrentTime: 5,
		Duration:    100,
	})

	require.NoError(t, err)
	assert.Equal(t, 1.0, result.WatchedSeconds)
}

func TestRecordInterval_NotEnrolled(t *testing.T) {
	h := NewRecordIntervalHandler(
		newMemProgressRepo(),
		nil,
		&stubCatalog{snapshot: testSnapshot()},
		&stubEnrollment{enrolled: false},
	)

	_, err := h.Handle(context.Background(), RecordIntervalCommand{
		StudentID:   testStudentID,
		CourseID:    testCourseID,
		MaterialID:  matVideo,
		CurrentTime: 0,
		Duration:    100,
	})

	assert.ErrorIs(t, err, shared.ErrNotEnrolled)
}

func TestRecordInterval_RejectsNegativePosition(t *testing.T) {
	h := newRecordIntervalHandler(newMemProgressRepo())

	_, err := h.Handle(context.Background(), RecordIntervalCommand{
		StudentID:   testStudentID,
		CourseID:    testCourseID,
		MaterialID:  matVideo,
		CurrentTime: -1,
		Duration:    100,
	})

	assert.ErrorIs(t, err, shared.ErrNegativeValue)
}
