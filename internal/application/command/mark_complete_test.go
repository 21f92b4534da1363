package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

func newMarkCompleteHandler(repo *memProgressRepo, pub *capturePublisher, cfg MarkCompleteConfig) *MarkCompleteHandler {
	return NewMarkCompleteHandler(
		repo,
		nil,
		&stubCatalog{snapshot: testSnapshot()},
		&stubEnrollment{enrolled: true},
		pub,
		cfg,
	)
}

func TestMarkComplete_FirstMaterial(t *testing.T) {
	repo := newMemProgressRepo()
	pub := &capturePublisher{}
	h := newMarkCompleteHandler(repo, pub, DefaultMarkCompleteConfig())

	result, err := h.Handle(context.Background(), MarkCompleteCommand{
		StudentID:     testStudentID,
		CourseID:      testCourseID,
		MaterialID:    matVideo,
		WatchTime:     98,
		TotalDuration: 100,
	})

	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, 33, result.CompletionPercentage)
	assert.False(t, result.CourseCompleted)
	assert.Equal(t, matDoc, result.UnlockedMaterialID)

	assert.Equal(t, 1, pub.countOf(shared.EventMaterialCompleted))
	assert.Equal(t, 1, pub.countOf(shared.EventMaterialUnlocked))
	assert.Equal(t, 0, pub.countOf(shared.EventCourseCompleted))
}

func TestMarkComplete_LockedMaterial(t *testing.T) {
	repo := newMemProgressRepo()
	pub := &capturePublisher{}
	h := newMarkCompleteHandler(repo, pub, DefaultMarkCompleteConfig())

	// Second material without completing the first
	_, err := h.Handle(context.Background(), MarkCompleteCommand{
		StudentID:  testStudentID,
		CourseID:   testCourseID,
		MaterialID: matDoc,
	})

	require.Error(t, err)
	locked, ok := progress.AsLockedMaterial(err)
	require.True(t, ok)
	assert.Equal(t, shared.MaterialID(matDoc), locked.MaterialID)
	assert.Equal(t, 1, locked.Index)
	assert.Equal(t, 0, locked.NextUnlockedIndex)
	assert.Empty(t, pub.events)
}

func TestMarkComplete_InsufficientWatchTime(t *testing.T) {
	repo := newMemProgressRepo()
	pub := &capturePublisher{}
	h := newMarkCompleteHandler(repo, pub, DefaultMarkCompleteConfig())

	_, err := h.Handle(context.Background(), MarkCompleteCommand{
		StudentID:     testStudentID,
		CourseID:      testCourseID,
		MaterialID:    matVideo,
		WatchTime:     50,
		TotalDuration: 100,
	})

	require.Error(t, err)
	insufficient, ok := progress.AsInsufficientWatchTime(err)
	require.True(t, ok)
	assert.InDelta(t, 50.0, insufficient.WatchedPercent, 0.001)
	assert.InDelta(t, DefaultWatchThresholdPercent, insufficient.RequiredPercent, 0.001)
}

func TestMarkComplete_FullyWatchedFlagTrusted(t *testing.T) {
	repo := newMemProgressRepo()
	pub := &capturePublisher{}
	h := newMarkCompleteHandler(repo, pub, DefaultMarkCompleteConfig())

	// Under the default (non-strict) policy the client's fully-watched
	// flag bypasses the threshold check
	result, err := h.Handle(context.Background(), MarkCompleteCommand{
		StudentID:     testStudentID,
		CourseID:      testCourseID,
		MaterialID:    matVideo,
		WatchTime:     10,
		TotalDuration: 100,
		FullyWatched:  true,
	})

	require.NoError(t, err)
	assert.True(t, result.Changed)
}

func TestMarkComplete_StrictValidationUsesServerIntervals(t *testing.T) {
	repo := newMemProgressRepo()
	pub := &capturePublisher{}
	h := newMarkCompleteHandler(repo, pub, MarkCompleteConfig{
		WatchThresholdPercent: 95,
		StrictWatchValidation: true,
	})

	// Client claims a full watch but the server saw no heartbeats
	_, err := h.Handle(context.Background(), MarkCompleteCommand{
		StudentID:     testStudentID,
		CourseID:      testCourseID,
		MaterialID:    matVideo,
		WatchTime:     100,
		TotalDuration: 100,
		FullyWatched:  true,
	})

	require.Error(t, err)
	_, ok := progress.AsInsufficientWatchTime(err)
	assert.True(t, ok)
}

func TestMarkComplete_StrictValidationPassesWithHistory(t *testing.T) {
	repo := newMemProgressRepo()
	pub := &capturePublisher{}

	// Backfill server-side watch history covering the whole video
	p := progress.NewProgress(shared.StudentID(testStudentID), shared.CourseID(testCourseID), 3)
	for i := 0; i < 100; i++ {
		p.ObserveInterval(shared.MaterialID(matVideo), shared.Seconds(i), 100)
	}
	repo.seed(p)

	h := newMarkCompleteHandler(repo, pub, MarkCompleteConfig{
		WatchThresholdPercent: 95,
		StrictWatchValidation: true,
	})

	result, err := h.Handle(context.Background(), MarkCompleteCommand{
		StudentID:     testStudentID,
		CourseID:      testCourseID,
		MaterialID:    matVideo,
		TotalDuration: 100,
	})

	require.NoError(t, err)
	assert.True(t, result.Changed)
}

func TestMarkComplete_RepeatIsIdempotent(t *testing.T) {
	repo := newMemProgressRepo()
	pub := &capturePublisher{}
	h := newMarkCompleteHandler(repo, pub, DefaultMarkCompleteConfig())

	cmd := MarkCompleteCommand{
		StudentID:     testStudentID,
		CourseID:      testCourseID,
		MaterialID:    matVideo,
		WatchTime:     100,
		TotalDuration: 100,
		FullyWatched:  true,
	}

	first, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, first.Changed)

	second, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, first.CompletionPercentage, second.CompletionPercentage)

	// No duplicate completion events on the repeat call
	assert.Equal(t, 1, pub.countOf(shared.EventMaterialCompleted))
}

func TestMarkComplete_EdgeTriggeredCourseCompletion(t *testing.T) {
	repo := newMemProgressRepo()
	pub := &capturePublisher{}
	h := newMarkCompleteHandler(repo, pub, DefaultMarkCompleteConfig())

	complete := func(materialID string) *MarkCompleteResult {
		result, err := h.Handle(context.Background(), MarkCompleteCommand{
			StudentID:     testStudentID,
			CourseID:      testCourseID,
			MaterialID:    materialID,
			WatchTime:     100,
			TotalDuration: 100,
			FullyWatched:  true,
		})
		require.NoError(t, err)
		return result
	}

	assert.False(t, complete(matVideo).CourseCompleted)
	assert.False(t, complete(matDoc).CourseCompleted)

	last := complete(matLast)
	assert.True(t, last.CourseCompleted)
	assert.Equal(t, 100, last.CompletionPercentage)

	// Repeating the final completion must not re-fire the event
	again := complete(matLast)
	assert.False(t, again.CourseCompleted)
	assert.Equal(t, 1, pub.countOf(shared.EventCourseCompleted))
}

func TestMarkComplete_VersionConflictRetries(t *testing.T) {
	repo := newMemProgressRepo()
	pub := &capturePublisher{}

	p := progress.NewProgress(shared.StudentID(testStudentID), shared.CourseID(testCourseID), 3)
	repo.seed(p)
	repo.conflictsLeft = 2

	h := newMarkCompleteHandler(repo, pub, DefaultMarkCompleteConfig())

	result, err := h.Handle(context.Background(), MarkCompleteCommand{
		StudentID:     testStudentID,
		CourseID:      testCourseID,
		MaterialID:    matVideo,
		WatchTime:     100,
		TotalDuration: 100,
		FullyWatched:  true,
	})

	require.NoError(t, err)
	assert.True(t, result.Changed)
	// The retried mutation must not double-publish
	assert.Equal(t, 1, pub.countOf(shared.EventMaterialCompleted))
}

func TestMarkComplete_NotEnrolled(t *testing.T) {
	h := NewMarkCompleteHandler(
		newMemProgressRepo(),
		nil,
		&stubCatalog{snapshot: testSnapshot()},
		&stubEnrollment{enrolled: false},
		&capturePublisher{},
		DefaultMarkCompleteConfig(),
	)

	_, err := h.Handle(context.Background(), MarkCompleteCommand{
		StudentID:  testStudentID,
		CourseID:   testCourseID,
		MaterialID: matVideo,
	})

	assert.ErrorIs(t, err, shared.ErrNotEnrolled)
}

func TestMarkComplete_UnknownMaterial(t *testing.T) {
	h := newMarkCompleteHandler(newMemProgressRepo(), &capturePublisher{}, DefaultMarkCompleteConfig())

	_, err := h.Handle(context.Background(), MarkCompleteCommand{
		StudentID:  testStudentID,
		CourseID:   testCourseID,
		MaterialID: "44444444-4444-4444-4444-444444444444",
	})

	assert.ErrorIs(t, err, shared.ErrMaterialNotFound)
}

func TestMarkComplete_InvalidCommand(t *testing.T) {
	h := newMarkCompleteHandler(newMemProgressRepo(), &capturePublisher{}, DefaultMarkCompleteConfig())

	_, err := h.Handle(context.Background(), MarkCompleteCommand{
		StudentID:  "not-a-uuid",
		CourseID:   testCourseID,
		MaterialID: matVideo,
	})

	assert.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestMarkComplete_MaterialCountDrift(t *testing.T) {
	repo := newMemProgressRepo()
	pub := &capturePublisher{}

	// Seed a record created when the course had two materials
	p := progress.NewProgress(shared.StudentID(testStudentID), shared.CourseID(testCourseID), 2)
	repo.seed(p)

	h := newMarkCompleteHandler(repo, pub, DefaultMarkCompleteConfig())

	result, err := h.Handle(context.Background(), MarkCompleteCommand{
		StudentID:     testStudentID,
		CourseID:      testCourseID,
		MaterialID:    matVideo,
		WatchTime:     100,
		TotalDuration: 100,
		FullyWatched:  true,
	})

	require.NoError(t, err)
	// Percent is computed against the synced count of three
	assert.Equal(t, 33, result.CompletionPercentage)
	assert.Equal(t, 1, pub.countOf(shared.EventMaterialCountDrift))
}
