package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/course"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

const (
	testStudentID = "9ca4322d-ebd5-4ffa-a340-56fe811bbab1"
	testCourseID  = "7ed99bd0-87b2-4dbb-a97b-596c3f29c49b"
	matVideo      = "11111111-1111-1111-1111-111111111111"
	matDoc        = "22222222-2222-2222-2222-222222222222"
)

func testSnapshot() course.Snapshot {
	return course.NewSnapshot(shared.CourseID(testCourseID), "Go for Beginners", []course.Material{
		{ID: shared.MaterialID(matVideo), Title: "Intro video", Type: course.MaterialTypeVideo, Order: 0, Duration: 100},
		{ID: shared.MaterialID(matDoc), Title: "Setup guide", Type: course.MaterialTypeDocument, Order: 1},
	})
}

type stubProgressRepo struct {
	record *progress.Progress
	calls  int
}

func (r *stubProgressRepo) Get(context.Context, shared.StudentID, shared.CourseID) (*progress.Progress, error) {
	r.calls++
	if r.record == nil {
		return nil, shared.ErrProgressNotFound
	}
	return r.record, nil
}

func (r *stubProgressRepo) Create(context.Context, *progress.Progress) error { return nil }
func (r *stubProgressRepo) Update(context.Context, *progress.Progress) error { return nil }
func (r *stubProgressRepo) ListAccessedSince(context.Context, time.Time, int) ([]*progress.Progress, error) {
	return nil, nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]*progress.Progress
	sets    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]*progress.Progress)}
}

func (c *memCache) key(studentID shared.StudentID, courseID shared.CourseID) string {
	return studentID.String() + "/" + courseID.String()
}

func (c *memCache) Get(_ context.Context, studentID shared.StudentID, courseID shared.CourseID) (*progress.Progress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[c.key(studentID, courseID)]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return p, nil
}

func (c *memCache) Set(_ context.Context, p *progress.Progress, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.key(p.StudentID, p.CourseID)] = p
	c.sets++
	return nil
}

func (c *memCache) Invalidate(_ context.Context, studentID shared.StudentID, courseID shared.CourseID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, c.key(studentID, courseID))
	return nil
}

type stubCatalog struct{ snapshot course.Snapshot }

func (c *stubCatalog) GetSnapshot(context.Context, shared.CourseID) (course.Snapshot, error) {
	return c.snapshot, nil
}

func (c *stubCatalog) GetMaterialCount(context.Context, shared.CourseID) (int, error) {
	return c.snapshot.MaterialCount(), nil
}

type stubEnrollment struct{ enrolled bool }

func (e *stubEnrollment) IsEnrolled(context.Context, shared.StudentID, shared.CourseID) (bool, error) {
	return e.enrolled, nil
}

func seededProgress() *progress.Progress {
	p := progress.NewProgress(shared.StudentID(testStudentID), shared.CourseID(testCourseID), 2)
	for i := 0; i < 40; i++ {
		p.ObserveInterval(shared.MaterialID(matVideo), shared.Seconds(i), 100)
	}
	p.MarkComplete(progress.NewVideoCompletion(shared.MaterialID(matVideo), time.Now().UTC(), progress.VideoCompletionMeta{
		WatchTime: 100, TotalDuration: 100, FullyWatched: true,
	}))
	return p
}

func TestGetProgress_NoRecordReturnsZeroSlice(t *testing.T) {
	h := NewGetProgressHandler(
		&stubProgressRepo{},
		nil,
		&stubCatalog{snapshot: testSnapshot()},
		&stubEnrollment{enrolled: true},
		0,
	)

	dto, err := h.Handle(context.Background(), GetProgressQuery{
		StudentID: testStudentID,
		CourseID:  testCourseID,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, dto.CompletionPercentage)
	assert.Equal(t, 0, dto.CompletedCount)
	assert.Equal(t, 2, dto.TotalMaterials)
	assert.Equal(t, 0, dto.NextUnlockedIndex)
	assert.Nil(t, dto.StartedAt)

	// открыт только первый материал
	require.Len(t, dto.Materials, 2)
	assert.True(t, dto.Materials[0].Unlocked)
	assert.False(t, dto.Materials[1].Unlocked)
}

func TestGetProgress_WithRecord(t *testing.T) {
	h := NewGetProgressHandler(
		&stubProgressRepo{record: seededProgress()},
		nil,
		&stubCatalog{snapshot: testSnapshot()},
		&stubEnrollment{enrolled: true},
		0,
	)

	dto, err := h.Handle(context.Background(), GetProgressQuery{
		StudentID: testStudentID,
		CourseID:  testCourseID,
	})

	require.NoError(t, err)
	assert.Equal(t, 50, dto.CompletionPercentage)
	assert.Equal(t, 1, dto.CompletedCount)
	assert.Equal(t, 1, dto.NextUnlockedIndex)
	assert.False(t, dto.CourseCompleted)

	video := dto.Materials[0]
	assert.True(t, video.Completed)
	assert.NotNil(t, video.CompletedAt)
	assert.InDelta(t, 40.0, video.WatchedPercent, 0.001)
	assert.Empty(t, video.Segments)

	// выполнение видео открыло документ
	assert.True(t, dto.Materials[1].Unlocked)
}

func TestGetProgress_IncludeWatchSegments(t *testing.T) {
	h := NewGetProgressHandler(
		&stubProgressRepo{record: seededProgress()},
		nil,
		&stubCatalog{snapshot: testSnapshot()},
		&stubEnrollment{enrolled: true},
		0,
	)

	dto, err := h.Handle(context.Background(), GetProgressQuery{
		StudentID:            testStudentID,
		CourseID:             testCourseID,
		IncludeWatchSegments: true,
	})

	require.NoError(t, err)
	require.Len(t, dto.Materials[0].Segments, 1)
	assert.Equal(t, 0.0, dto.Materials[0].Segments[0].Start)
	assert.Equal(t, 40.0, dto.Materials[0].Segments[0].End)
}

func TestGetProgress_CacheHitAndMiss(t *testing.T) {
	repo := &stubProgressRepo{record: seededProgress()}
	cache := newMemCache()
	h := NewGetProgressHandler(
		repo,
		cache,
		&stubCatalog{snapshot: testSnapshot()},
		&stubEnrollment{enrolled: true},
		time.Minute,
	)

	q := GetProgressQuery{StudentID: testStudentID, CourseID: testCourseID}

	// промах: чтение из хранилища, запись в кеш
	first, err := h.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, 1, cache.sets)

	// попадание: хранилище не трогаем
	second, err := h.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, repo.calls)
}

func TestGetProgress_BypassCache(t *testing.T) {
	repo := &stubProgressRepo{record: seededProgress()}
	cache := newMemCache()
	h := NewGetProgressHandler(
		repo,
		cache,
		&stubCatalog{snapshot: testSnapshot()},
		&stubEnrollment{enrolled: true},
		time.Minute,
	)

	q := GetProgressQuery{StudentID: testStudentID, CourseID: testCourseID}

	_, err := h.Handle(context.Background(), q)
	require.NoError(t, err)

	// свежее чтение идёт мимо кеша даже при тёплом кеше
	q.BypassCache = true
	dto, err := h.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.False(t, dto.FromCache)
	assert.Equal(t, 2, repo.calls)
}

func TestGetProgress_NotEnrolled(t *testing.T) {
	h := NewGetProgressHandler(
		&stubProgressRepo{},
		nil,
		&stubCatalog{snapshot: testSnapshot()},
		&stubEnrollment{enrolled: false},
		0,
	)

	_, err := h.Handle(context.Background(), GetProgressQuery{
		StudentID: testStudentID,
		CourseID:  testCourseID,
	})

	assert.ErrorIs(t, err, shared.ErrNotEnrolled)
}

func TestGetProgress_InvalidIDs(t *testing.T) {
	h := NewGetProgressHandler(
		&stubProgressRepo{},
		nil,
		&stubCatalog{snapshot: testSnapshot()},
		&stubEnrollment{enrolled: true},
		0,
	)

	_, err := h.Handle(context.Background(), GetProgressQuery{
		StudentID: "nope",
		CourseID:  testCourseID,
	})

	assert.ErrorIs(t, err, shared.ErrInvalidID)
}
