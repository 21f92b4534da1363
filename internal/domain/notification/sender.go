// Package notification содержит контракт сервиса уведомлений.
// Для движка прогресса уведомления - внешний коллаборатор в режиме
// fire-and-forget: сбой доставки никогда не откатывает мутацию прогресса.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MESSAGE KINDS
// ══════════════════════════════════════════════════════════════════════════════

// Kind определяет тип уведомления.
type Kind string

const (
	// KindMaterialUnlocked - выполнение материала открыло следующий.
	KindMaterialUnlocked Kind = "material_unlocked"

	// KindCourseCompleted - курс пройден на 100%.
	KindCourseCompleted Kind = "course_completed"

	// KindCertificateGenerated - сертификат выдан.
	KindCertificateGenerated Kind = "certificate_generated"
)

// IsValid проверяет, что тип уведомления известен.
func (k Kind) IsValid() bool {
	switch k {
	case KindMaterialUnlocked, KindCourseCompleted, KindCertificateGenerated:
		return true
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// MESSAGE
// ══════════════════════════════════════════════════════════════════════════════

// Message представляет одно уведомление студенту.
type Message struct {
	// Kind - тип уведомления.
	Kind Kind

	// StudentID - получатель.
	StudentID shared.StudentID

	// CourseID - курс, к которому относится уведомление.
	CourseID shared.CourseID

	// Title - заголовок.
	Title string

	// Body - текст уведомления.
	Body string

	// CreatedAt - когда уведомление было сформировано.
	CreatedAt time.Time
}

// NewMaterialUnlocked строит уведомление об открытии материала.
func NewMaterialUnlocked(studentID shared.StudentID, courseID shared.CourseID, materialTitle string) Message {
	return Message{
		Kind:      KindMaterialUnlocked,
		StudentID: studentID,
		CourseID:  courseID,
		Title:     "New material unlocked",
		Body:      fmt.Sprintf("You can now start %q.", materialTitle),
		CreatedAt: time.Now().UTC(),
	}
}

// NewCourseCompleted строит уведомление о прохождении курса.
func NewCourseCompleted(studentID shared.StudentID, courseID shared.CourseID, courseTitle string) Message {
	return Message{
		Kind:      KindCourseCompleted,
		StudentID: studentID,
		CourseID:  courseID,
		Title:     "Course completed",
		Body:      fmt.Sprintf("Congratulations, you completed %q!", courseTitle),
		CreatedAt: time.Now().UTC(),
	}
}

// NewCertificateGenerated строит уведомление о выдаче сертификата.
func NewCertificateGenerated(studentID shared.StudentID, courseID shared.CourseID, serial string) Message {
	return Message{
		Kind:      KindCertificateGenerated,
		StudentID: studentID,
		CourseID:  courseID,
		Title:     "Certificate issued",
		Body:      fmt.Sprintf("Your certificate %s is ready.", serial),
		CreatedAt: time.Now().UTC(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SENDER CONTRACT
// ══════════════════════════════════════════════════════════════════════════════

// Sender определяет отправку уведомлений.
// Реализации находятся в infrastructure/service.
type Sender interface {
	// Send отправляет уведомление. Ошибка доставки - ответственность
	// вызывающего кода решить, логировать или повторять; мутации
	// прогресса от неё не зависят.
	Send(ctx context.Context, msg Message) error
}
