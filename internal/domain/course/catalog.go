package course

import (
	"context"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG CONTRACTS
// Реализации находятся в infrastructure/external/catalog и
// infrastructure/persistence/postgres.
// ══════════════════════════════════════════════════════════════════════════════

// CatalogReader определяет доступ к каталогу курсов только для чтения.
type CatalogReader interface {
	// GetSnapshot возвращает снимок курса с материалами в авторском порядке.
	// Возвращает shared.ErrCourseNotFound, если курс не существует.
	GetSnapshot(ctx context.Context, courseID shared.CourseID) (Snapshot, error)

	// GetMaterialCount возвращает текущее количество материалов курса.
	// Возвращает shared.ErrCourseNotFound, если курс не существует.
	GetMaterialCount(ctx context.Context, courseID shared.CourseID) (int, error)
}

// EnrollmentChecker проверяет запись студента на курс.
type EnrollmentChecker interface {
	// IsEnrolled возвращает true, если студент записан на курс.
	IsEnrolled(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (bool, error)
}
