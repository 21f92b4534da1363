// Package shared contains common domain types, errors, events, and value objects.
package shared

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// IDENTIFIERS
// ══════════════════════════════════════════════════════════════════════════════

var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// StudentID представляет внутренний идентификатор студента (UUID).
type StudentID string

// IsValid проверяет, что ID имеет формат UUID.
func (s StudentID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// String возвращает строковое представление.
func (s StudentID) String() string {
	return string(s)
}

// IsEmpty проверяет, что ID пустой.
func (s StudentID) IsEmpty() bool {
	return len(s) == 0
}

// NewStudentID создаёт StudentID с валидацией.
func NewStudentID(id string) (StudentID, error) {
	sid := StudentID(strings.TrimSpace(id))
	if !sid.IsValid() {
		return "", fmt.Errorf("%w: student id %q", ErrInvalidID, id)
	}
	return sid, nil
}

// CourseID представляет идентификатор курса (UUID).
type CourseID string

// IsValid проверяет, что ID имеет формат UUID.
func (c CourseID) IsValid() bool {
	return uuidRegex.MatchString(string(c))
}

// String возвращает строковое представление.
func (c CourseID) String() string {
	return string(c)
}

// IsEmpty проверяет, что ID пустой.
func (c CourseID) IsEmpty() bool {
	return len(c) == 0
}

// NewCourseID создаёт CourseID с валидацией.
func NewCourseID(id string) (CourseID, error) {
	cid := CourseID(strings.TrimSpace(id))
	if !cid.IsValid() {
		return "", fmt.Errorf("%w: course id %q", ErrInvalidID, id)
	}
	return cid, nil
}

// MaterialID представляет идентификатор учебного материала (UUID).
type MaterialID string

// IsValid проверяет, что ID имеет формат UUID.
func (m MaterialID) IsValid() bool {
	return uuidRegex.MatchString(string(m))
}

// String возвращает строковое представление.
func (m MaterialID) String() string {
	return string(m)
}

// IsEmpty проверяет, что ID пустой.
func (m MaterialID) IsEmpty() bool {
	return len(m) == 0
}

// NewMaterialID создаёт MaterialID с валидацией.
func NewMaterialID(id string) (MaterialID, error) {
	mid := MaterialID(strings.TrimSpace(id))
	if !mid.IsValid() {
		return "", fmt.Errorf("%w: material id %q", ErrInvalidID, id)
	}
	return mid, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PERCENT
// ══════════════════════════════════════════════════════════════════════════════

// Percent представляет процент выполнения в диапазоне 0..100.
type Percent int

const (
	// PercentZero - нулевой прогресс.
	PercentZero Percent = 0

	// PercentComplete - полное выполнение.
	PercentComplete Percent = 100
)

// IsValid проверяет, что значение в допустимом диапазоне.
func (p Percent) IsValid() bool {
	return p >= PercentZero && p <= PercentComplete
}

// Int возвращает значение как int.
func (p Percent) Int() int {
	return int(p)
}

// IsComplete проверяет, достигнуто ли полное выполнение.
func (p Percent) IsComplete() bool {
	return p >= PercentComplete
}

// String возвращает строковое представление ("75%").
func (p Percent) String() string {
	return fmt.Sprintf("%d%%", int(p))
}

// NewPercent создаёт Percent из доли done/total с округлением.
// Возвращает PercentZero, если total == 0.
func NewPercent(done, total int) Percent {
	if total <= 0 {
		return PercentZero
	}
	p := Percent(math.Round(float64(done) / float64(total) * 100))
	return p.Clamp()
}

// Clamp ограничивает значение диапазоном 0..100.
func (p Percent) Clamp() Percent {
	if p < PercentZero {
		return PercentZero
	}
	if p > PercentComplete {
		return PercentComplete
	}
	return p
}

// ══════════════════════════════════════════════════════════════════════════════
// SECONDS
// ══════════════════════════════════════════════════════════════════════════════

// Seconds представляет позицию или длительность воспроизведения в секундах.
// Используется вместо time.Duration, так как плееры присылают дробные секунды.
type Seconds float64

// IsValid проверяет, что значение не отрицательное и конечное.
func (s Seconds) IsValid() bool {
	return s >= 0 && !math.IsInf(float64(s), 0) && !math.IsNaN(float64(s))
}

// Float64 возвращает значение как float64.
func (s Seconds) Float64() float64 {
	return float64(s)
}

// IsZero проверяет, что значение нулевое.
func (s Seconds) IsZero() bool {
	return s == 0
}

// NewSeconds создаёт Seconds с валидацией.
func NewSeconds(v float64) (Seconds, error) {
	s := Seconds(v)
	if !s.IsValid() {
		return 0, fmt.Errorf("%w: seconds value %v", ErrNegativeValue, v)
	}
	return s, nil
}

// Ratio возвращает отношение s к total, или 0 при total == 0.
func (s Seconds) Ratio(total Seconds) float64 {
	if total <= 0 {
		return 0
	}
	return float64(s) / float64(total)
}
