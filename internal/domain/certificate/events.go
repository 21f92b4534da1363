package certificate

import (
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// IssuedEvent публикуется при первой выдаче сертификата.
// Повторные прохождения курса событие не публикуют.
type IssuedEvent struct {
	shared.BaseEvent
	StudentID shared.StudentID
	CourseID  shared.CourseID
	Serial    string
}

// Payload возвращает полезную нагрузку события.
func (e IssuedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID.String(),
		"course_id":  e.CourseID.String(),
		"serial":     e.Serial,
	}
}

// NewIssuedEvent создаёт событие выдачи сертификата.
func NewIssuedEvent(cert *Certificate) IssuedEvent {
	return IssuedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventCertificateIssued, cert.StudentID.String()+":"+cert.CourseID.String()),
		StudentID: cert.StudentID,
		CourseID:  cert.CourseID,
		Serial:    cert.Serial,
	}
}
