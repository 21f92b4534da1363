package eventhandler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/certificate"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/notification"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

const (
	testStudentID = shared.StudentID("9ca4322d-ebd5-4ffa-a340-56fe811bbab1")
	testCourseID  = shared.CourseID("7ed99bd0-87b2-4dbb-a97b-596c3f29c49b")
)

type fakeIssuer struct {
	calls          int
	alreadyExisted bool
	err            error
	lastStudentID  shared.StudentID
	lastCourseID   shared.CourseID
}

func (f *fakeIssuer) IssueIfAbsent(_ context.Context, studentID shared.StudentID, courseID shared.CourseID) (certificate.IssueResult, error) {
	f.calls++
	f.lastStudentID = studentID
	f.lastCourseID = courseID
	if f.err != nil {
		return certificate.IssueResult{}, f.err
	}
	return certificate.IssueResult{
		Certificate:    certificate.NewCertificate(studentID, courseID),
		AlreadyExisted: f.alreadyExisted,
	}, nil
}

type captureSender struct {
	messages []notification.Message
	err      error
}

func (s *captureSender) Send(_ context.Context, msg notification.Message) error {
	s.messages = append(s.messages, msg)
	return s.err
}

type capturePublisher struct {
	events []shared.Event
}

func (p *capturePublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

func testConfig() CourseCompletedConfig {
	return CourseCompletedConfig{SendNotification: true, HandleTimeout: time.Second}
}

func TestOnCourseCompleted_IssuesCertificate(t *testing.T) {
	issuer := &fakeIssuer{}
	sender := &captureSender{}
	publisher := &capturePublisher{}
	h := NewOnCourseCompletedHandler(issuer, sender, publisher, nil, testConfig())

	err := h.Handle(progress.NewCourseCompletedEvent(testStudentID, testCourseID, 3))

	require.NoError(t, err)
	assert.Equal(t, 1, issuer.calls)
	assert.Equal(t, testStudentID, issuer.lastStudentID)
	assert.Equal(t, testCourseID, issuer.lastCourseID)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, shared.EventCertificateIssued, publisher.events[0].EventType())

	require.Len(t, sender.messages, 1)
	msg := sender.messages[0]
	assert.Equal(t, notification.KindCertificateGenerated, msg.Kind)
	assert.Equal(t, testStudentID, msg.StudentID)
	assert.Contains(t, msg.Body, "KRS-")
}

func TestOnCourseCompleted_RedeliveryIsIdempotent(t *testing.T) {
	// повторная доставка: сертификат уже есть - успех без побочных эффектов
	issuer := &fakeIssuer{alreadyExisted: true}
	sender := &captureSender{}
	publisher := &capturePublisher{}
	h := NewOnCourseCompletedHandler(issuer, sender, publisher, nil, testConfig())

	err := h.Handle(progress.NewCourseCompletedEvent(testStudentID, testCourseID, 3))

	require.NoError(t, err)
	assert.Equal(t, 1, issuer.calls)
	assert.Empty(t, publisher.events)
	assert.Empty(t, sender.messages)
}

func TestOnCourseCompleted_IssuerFailurePropagates(t *testing.T) {
	// ошибка выдачи возвращается наверх - диспетчер повторит доставку
	issuer := &fakeIssuer{err: errors.New("connection refused")}
	h := NewOnCourseCompletedHandler(issuer, &captureSender{}, &capturePublisher{}, nil, testConfig())

	err := h.Handle(progress.NewCourseCompletedEvent(testStudentID, testCourseID, 3))

	assert.Error(t, err)
}

func TestOnCourseCompleted_NotificationFailureDoesNotRollBack(t *testing.T) {
	issuer := &fakeIssuer{}
	sender := &captureSender{err: errors.New("webhook timeout")}
	publisher := &capturePublisher{}
	h := NewOnCourseCompletedHandler(issuer, sender, publisher, nil, testConfig())

	err := h.Handle(progress.NewCourseCompletedEvent(testStudentID, testCourseID, 3))

	require.NoError(t, err)
	assert.Equal(t, 1, issuer.calls)
	assert.Len(t, publisher.events, 1)
}

func TestOnCourseCompleted_NotificationDisabled(t *testing.T) {
	sender := &captureSender{}
	cfg := testConfig()
	cfg.SendNotification = false
	h := NewOnCourseCompletedHandler(&fakeIssuer{}, sender, &capturePublisher{}, nil, cfg)

	err := h.Handle(progress.NewCourseCompletedEvent(testStudentID, testCourseID, 3))

	require.NoError(t, err)
	assert.Empty(t, sender.messages)
}

// payloadEvent имитирует событие, восстановленное из envelope другой
// реплики: конкретного типа нет, есть только payload.
type payloadEvent struct {
	shared.BaseEvent
	payload map[string]interface{}
}

func (e payloadEvent) Payload() map[string]interface{} { return e.payload }

func TestOnCourseCompleted_RemoteEventViaPayload(t *testing.T) {
	issuer := &fakeIssuer{}
	h := NewOnCourseCompletedHandler(issuer, &captureSender{}, &capturePublisher{}, nil, testConfig())

	err := h.Handle(payloadEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventCourseCompleted, testStudentID.String()+":"+testCourseID.String()),
		payload: map[string]interface{}{
			"student_id": testStudentID.String(),
			"course_id":  testCourseID.String(),
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, issuer.calls)
	assert.Equal(t, testStudentID, issuer.lastStudentID)
	assert.Equal(t, testCourseID, issuer.lastCourseID)
}

func TestOnCourseCompleted_MalformedRemotePayload(t *testing.T) {
	issuer := &fakeIssuer{}
	h := NewOnCourseCompletedHandler(issuer, &captureSender{}, &capturePublisher{}, nil, testConfig())

	err := h.Handle(payloadEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventCourseCompleted, "junk"),
		payload:   map[string]interface{}{"student_id": "not-a-uuid"},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, issuer.calls)
}

func TestOnCourseCompleted_IgnoresForeignEvent(t *testing.T) {
	issuer := &fakeIssuer{}
	h := NewOnCourseCompletedHandler(issuer, &captureSender{}, &capturePublisher{}, nil, testConfig())

	err := h.Handle(progress.NewProgressResetEvent(testStudentID, testCourseID))

	require.NoError(t, err)
	assert.Equal(t, 0, issuer.calls)
}
