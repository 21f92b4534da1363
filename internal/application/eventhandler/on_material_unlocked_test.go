package eventhandler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/course"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/notification"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

const testMaterialID = shared.MaterialID("22222222-2222-2222-2222-222222222222")

type stubCatalog struct {
	snapshot course.Snapshot
	err      error
}

func (c *stubCatalog) GetSnapshot(context.Context, shared.CourseID) (course.Snapshot, error) {
	if c.err != nil {
		return course.Snapshot{}, c.err
	}
	return c.snapshot, nil
}

func (c *stubCatalog) GetMaterialCount(context.Context, shared.CourseID) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	return c.snapshot.MaterialCount(), nil
}

func unlockedSnapshot() course.Snapshot {
	return course.NewSnapshot(testCourseID, "Go for Beginners", []course.Material{
		{ID: testMaterialID, Title: "Setup guide", Type: course.MaterialTypeDocument, Order: 0},
	})
}

func TestOnMaterialUnlocked_UsesCatalogTitle(t *testing.T) {
	sender := &captureSender{}
	h := NewOnMaterialUnlockedHandler(&stubCatalog{snapshot: unlockedSnapshot()}, sender, nil, time.Second)

	err := h.Handle(progress.NewMaterialUnlockedEvent(testStudentID, testCourseID, testMaterialID, 1))

	require.NoError(t, err)
	require.Len(t, sender.messages, 1)
	msg := sender.messages[0]
	assert.Equal(t, notification.KindMaterialUnlocked, msg.Kind)
	assert.Equal(t, testStudentID, msg.StudentID)
	assert.Contains(t, msg.Body, "Setup guide")
}

func TestOnMaterialUnlocked_CatalogDownFallsBackToID(t *testing.T) {
	// каталог недоступен: уведомление всё равно уходит, с ID вместо названия
	sender := &captureSender{}
	h := NewOnMaterialUnlockedHandler(&stubCatalog{err: shared.ErrServiceUnavailable}, sender, nil, time.Second)

	err := h.Handle(progress.NewMaterialUnlockedEvent(testStudentID, testCourseID, testMaterialID, 1))

	require.NoError(t, err)
	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0].Body, testMaterialID.String())
}

func TestOnMaterialUnlocked_NilSenderIsNoop(t *testing.T) {
	h := NewOnMaterialUnlockedHandler(&stubCatalog{snapshot: unlockedSnapshot()}, nil, nil, time.Second)

	err := h.Handle(progress.NewMaterialUnlockedEvent(testStudentID, testCourseID, testMaterialID, 1))

	assert.NoError(t, err)
}

func TestOnMaterialUnlocked_RemoteEventViaPayload(t *testing.T) {
	sender := &captureSender{}
	h := NewOnMaterialUnlockedHandler(&stubCatalog{snapshot: unlockedSnapshot()}, sender, nil, time.Second)

	err := h.Handle(payloadEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventMaterialUnlocked, testStudentID.String()+":"+testCourseID.String()),
		payload: map[string]interface{}{
			"student_id":  testStudentID.String(),
			"course_id":   testCourseID.String(),
			"material_id": testMaterialID.String(),
		},
	})

	require.NoError(t, err)
	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0].Body, "Setup guide")
}

func TestOnMaterialUnlocked_IgnoresForeignEvent(t *testing.T) {
	sender := &captureSender{}
	h := NewOnMaterialUnlockedHandler(&stubCatalog{snapshot: unlockedSnapshot()}, sender, nil, time.Second)

	err := h.Handle(progress.NewProgressResetEvent(testStudentID, testCourseID))

	require.NoError(t, err)
	assert.Empty(t, sender.messages)
}
