package progress

import (
	"context"
	"time"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Контракт хранилища записей Progress. Реализации - в
// infrastructure/persistence.
//
// Паттерн read-modify-write небезопасен при конкурентных писателях,
// поэтому Update - условная запись по версии: несовпадение версии
// означает конкурентную модификацию и возвращается как
// shared.ErrProgressVersionConflict. Вызывающий код перечитывает запись
// и повторяет мутацию.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции над записями Progress.
type Repository interface {
	// Get возвращает запись прогресса для пары студент×курс.
	// Возвращает shared.ErrProgressNotFound, если записи нет.
	Get(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (*Progress, error)

	// Create создаёт новую запись прогресса.
	// Возвращает shared.ErrProgressAlreadyExists при нарушении составной
	// уникальности (студент, курс) - конкурентное ленивое создание.
	Create(ctx context.Context, p *Progress) error

	// Update сохраняет запись условной записью по p.Version.
	// При несовпадении версии возвращает shared.ErrProgressVersionConflict
	// и не меняет хранилище; при успехе инкрементирует p.Version.
	Update(ctx context.Context, p *Progress) error

	// ListAccessedSince возвращает записи, к которым обращались после
	// указанного момента (для фонового ресинка количества материалов).
	ListAccessedSince(ctx context.Context, since time.Time, limit int) ([]*Progress, error)
}

// Cache определяет кеширование снимков прогресса для читающего пути.
// Кеш всегда инвалидируется мутацией до записи нового значения:
// устаревший снимок допустим, воскресший - нет.
type Cache interface {
	// Get возвращает закешированную запись или ошибку промаха.
	Get(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (*Progress, error)

	// Set сохраняет запись с TTL.
	Set(ctx context.Context, p *Progress, ttl time.Duration) error

	// Invalidate удаляет запись из кеша.
	Invalidate(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) error
}
