package progress

import (
	"errors"
	"fmt"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TYPED ERRORS
// Ошибки гейтинга несут контекст, который клиенту нужен для редиректа:
// LockedMaterialError - текущий фронтир, InsufficientWatchTimeError -
// вычисленный процент просмотра ("осталось X%").
// ══════════════════════════════════════════════════════════════════════════════

// LockedMaterialError возвращается при попытке отметить выполненным
// заблокированный материал.
type LockedMaterialError struct {
	// MaterialID - материал, который пытались отметить.
	MaterialID shared.MaterialID

	// Index - индекс материала в авторском порядке.
	Index int

	// NextUnlockedIndex - текущий фронтир, куда клиенту следует перенаправить.
	NextUnlockedIndex int
}

// Error реализует интерфейс error.
func (e *LockedMaterialError) Error() string {
	return fmt.Sprintf("material %s at index %d is locked, next unlocked index is %d",
		e.MaterialID, e.Index, e.NextUnlockedIndex)
}

// Is сопоставляет ошибку с shared.ErrMaterialLocked для errors.Is().
func (e *LockedMaterialError) Is(target error) bool {
	return target == shared.ErrMaterialLocked || errors.Is(shared.ErrMaterialLocked, target)
}

// NewLockedMaterialError создаёт LockedMaterialError.
func NewLockedMaterialError(materialID shared.MaterialID, index, nextUnlocked int) *LockedMaterialError {
	return &LockedMaterialError{
		MaterialID:        materialID,
		Index:             index,
		NextUnlockedIndex: nextUnlocked,
	}
}

// InsufficientWatchTimeError возвращается при попытке отметить видео
// выполненным ниже порога просмотра.
type InsufficientWatchTimeError struct {
	// MaterialID - видеоматериал.
	MaterialID shared.MaterialID

	// WatchedPercent - вычисленный процент просмотра (0..100).
	WatchedPercent float64

	// RequiredPercent - требуемый порог (0..100).
	RequiredPercent float64
}

// Error реализует интерфейс error.
func (e *InsufficientWatchTimeError) Error() string {
	return fmt.Sprintf("material %s watched %.1f%%, completion requires %.0f%%",
		e.MaterialID, e.WatchedPercent, e.RequiredPercent)
}

// Is сопоставляет ошибку с shared.ErrInsufficientWatchTime для errors.Is().
func (e *InsufficientWatchTimeError) Is(target error) bool {
	return target == shared.ErrInsufficientWatchTime || errors.Is(shared.ErrInsufficientWatchTime, target)
}

// NewInsufficientWatchTimeError создаёт InsufficientWatchTimeError.
func NewInsufficientWatchTimeError(materialID shared.MaterialID, watched, required float64) *InsufficientWatchTimeError {
	return &InsufficientWatchTimeError{
		MaterialID:      materialID,
		WatchedPercent:  watched,
		RequiredPercent: required,
	}
}

// AsLockedMaterial извлекает LockedMaterialError из цепочки ошибок.
func AsLockedMaterial(err error) (*LockedMaterialError, bool) {
	var locked *LockedMaterialError
	if errors.As(err, &locked) {
		return locked, true
	}
	return nil, false
}

// AsInsufficientWatchTime извлекает InsufficientWatchTimeError из цепочки ошибок.
func AsInsufficientWatchTime(err error) (*InsufficientWatchTimeError, bool) {
	var insufficient *InsufficientWatchTimeError
	if errors.As(err, &insufficient) {
		return insufficient, true
	}
	return nil, false
}
