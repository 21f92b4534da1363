package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

const (
	testStudentID = shared.StudentID("9ca4322d-ebd5-4ffa-a340-56fe811bbab1")
	testCourseID  = shared.CourseID("7ed99bd0-87b2-4dbb-a97b-596c3f29c49b")
	matA          = shared.MaterialID("11111111-1111-1111-1111-111111111111")
	matB          = shared.MaterialID("22222222-2222-2222-2222-222222222222")
)

func TestNewProgress(t *testing.T) {
	p := NewProgress(testStudentID, testCourseID, 4)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 4, p.TotalMaterials)
	assert.Empty(t, p.Completed)
	assert.Equal(t, shared.PercentZero, p.CompletionPercentage)
	assert.Equal(t, int64(0), p.Version)
	assert.False(t, p.StartedAt.IsZero())
}

func TestProgress_MarkComplete_RecomputesPercent(t *testing.T) {
	p := NewProgress(testStudentID, testCourseID, 4)

	added := p.MarkComplete(NewPlainCompletion(matA, time.Now().UTC()))

	assert.True(t, added)
	assert.Equal(t, 1, p.CompletedCount())
	assert.Equal(t, shared.Percent(25), p.CompletionPercentage)
}

func TestProgress_MarkComplete_Idempotent(t *testing.T) {
	p := NewProgress(testStudentID, testCourseID, 2)
	p.MarkComplete(NewPlainCompletion(matA, time.Now().UTC()))

	added := p.MarkComplete(NewPlainCompletion(matA, time.Now().UTC()))

	assert.False(t, added)
	assert.Equal(t, 1, p.CompletedCount())
	assert.Equal(t, shared.Percent(50), p.CompletionPercentage)
}

func TestProgress_MarkComplete_RepeatUpdatesVideoMeta(t *testing.T) {
	p := NewProgress(testStudentID, testCourseID, 1)
	p.MarkComplete(NewVideoCompletion(matA, time.Now().UTC(), VideoCompletionMeta{
		WatchTime:     50,
		TotalDuration: 100,
	}))

	p.MarkComplete(NewVideoCompletion(matA, time.Now().UTC(), VideoCompletionMeta{
		WatchTime:     100,
		TotalDuration: 100,
		FullyWatched:  true,
	}))

	require.Len(t, p.Completed, 1)
	require.NotNil(t, p.Completed[0].Video)
	assert.Equal(t, shared.Seconds(100), p.Completed[0].Video.WatchTime)
	assert.True(t, p.Completed[0].Video.FullyWatched)
}

func TestProgress_MarkIncomplete(t *testing.T) {
	p := NewProgress(testStudentID, testCourseID, 2)
	p.MarkComplete(NewPlainCompletion(matA, time.Now().UTC()))
	p.MarkComplete(NewPlainCompletion(matB, time.Now().UTC()))
	assert.True(t, p.IsCourseCompleted())

	removed := p.MarkIncomplete(matB)

	assert.True(t, removed)
	assert.Equal(t, shared.Percent(50), p.CompletionPercentage)
	assert.False(t, p.IsCourseCompleted())

	// Removing a missing entry is not an error
	assert.False(t, p.MarkIncomplete(matB))
}

func TestProgress_CompletionAt100(t *testing.T) {
	p := NewProgress(testStudentID, testCourseID, 2)
	p.MarkComplete(NewPlainCompletion(matA, time.Now().UTC()))
	assert.False(t, p.IsCourseCompleted())

	p.MarkComplete(NewPlainCompletion(matB, time.Now().UTC()))

	assert.True(t, p.IsCourseCompleted())
	assert.Equal(t, shared.PercentComplete, p.CompletionPercentage)
}

func TestProgress_ObserveInterval_Upsert(t *testing.T) {
	p := NewProgress(testStudentID, testCourseID, 1)

	vp := p.ObserveInterval(matA, 0, 120)
	assert.Equal(t, shared.Seconds(0), vp.CurrentTime)

	vp = p.ObserveInterval(matA, 1, 120)
	assert.Len(t, p.VideoProgress, 1)
	assert.Equal(t, shared.Seconds(1), vp.CurrentTime)
	assert.Equal(t, shared.Seconds(2), vp.Coverage())
}

func TestProgress_ServerWatchRatio(t *testing.T) {
	p := NewProgress(testStudentID, testCourseID, 1)
	for i := 0; i < 9; i++ {
		p.ObserveInterval(matA, shared.Seconds(i), 10)
	}

	// 0..8 observations cover [0,9] of a 10s video
	assert.InDelta(t, 0.9, p.ServerWatchRatio(matA), 0.001)
	assert.Equal(t, 0.0, p.ServerWatchRatio(matB))
}

func TestProgress_SyncTotalMaterials(t *testing.T) {
	p := NewProgress(testStudentID, testCourseID, 4)
	p.MarkComplete(NewPlainCompletion(matA, time.Now().UTC()))
	assert.Equal(t, shared.Percent(25), p.CompletionPercentage)

	// Course author added a material: denominator drifts
	drifted := p.SyncTotalMaterials(5)

	assert.True(t, drifted)
	assert.Equal(t, shared.Percent(20), p.CompletionPercentage)

	assert.False(t, p.SyncTotalMaterials(5))
	assert.False(t, p.SyncTotalMaterials(-1))
}

func TestProgress_Reset_KeepsWatchHistory(t *testing.T) {
	p := NewProgress(testStudentID, testCourseID, 2)
	p.MarkComplete(NewPlainCompletion(matA, time.Now().UTC()))
	p.ObserveInterval(matA, 3, 60)

	p.Reset()

	assert.Empty(t, p.Completed)
	assert.Equal(t, shared.PercentZero, p.CompletionPercentage)
	// Watch intervals survive a reset unless cleared explicitly
	assert.Len(t, p.VideoProgress, 1)

	p.ClearVideoProgress()
	assert.Empty(t, p.VideoProgress)
}
