package certificate

import (
	"context"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ISSUER CONTRACT
// Выдача обязана быть идемпотентной: check-then-create под ограничением
// уникальности (студент, курс) в хранилище. Повторный вызов - вторая линия
// защиты от дублей при конкурентных запросах - возвращает существующий
// сертификат, а не создаёт новый.
// ══════════════════════════════════════════════════════════════════════════════

// IssueResult - результат идемпотентной выдачи.
type IssueResult struct {
	// Certificate - выданный или уже существующий сертификат.
	Certificate *Certificate

	// AlreadyExisted - true, если сертификат был выдан ранее.
	AlreadyExisted bool
}

// Issuer определяет идемпотентную выдачу сертификатов.
type Issuer interface {
	// IssueIfAbsent выдаёт сертификат, если его ещё нет.
	// Безопасен для повторных и конкурентных вызовов.
	IssueIfAbsent(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (IssueResult, error)
}

// Repository определяет операции хранилища сертификатов.
type Repository interface {
	Issuer

	// Get возвращает сертификат для пары студент×курс.
	// Возвращает shared.ErrCertificateNotFound, если сертификата нет.
	Get(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (*Certificate, error)

	// GetBySerial возвращает сертификат по серийному номеру.
	GetBySerial(ctx context.Context, serial string) (*Certificate, error)

	// ListByStudent возвращает все сертификаты студента.
	ListByStudent(ctx context.Context, studentID shared.StudentID) ([]*Certificate, error)
}
