// Package course содержит доменную модель каталога курсов.
// С точки зрения движка прогресса каталог - внешний коллаборатор,
// доступный только для чтения: материалы и их авторский порядок
// приходят снимком на каждый запрос и никогда не мутируются здесь.
package course

import (
	"sort"
	"time"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MATERIAL
// ══════════════════════════════════════════════════════════════════════════════

// MaterialType определяет тип учебного материала.
type MaterialType string

const (
	// MaterialTypeVideo - видеоматериал: выполнение гейтится порогом просмотра.
	MaterialTypeVideo MaterialType = "video"

	// MaterialTypeDocument - текстовый документ.
	MaterialTypeDocument MaterialType = "document"

	// MaterialTypeImage - изображение/инфографика.
	MaterialTypeImage MaterialType = "image"
)

// IsValid проверяет, что тип материала известен.
func (t MaterialType) IsValid() bool {
	switch t {
	case MaterialTypeVideo, MaterialTypeDocument, MaterialTypeImage:
		return true
	}
	return false
}

// HasWatchThreshold сообщает, применяется ли к материалу порог просмотра.
func (t MaterialType) HasWatchThreshold() bool {
	return t == MaterialTypeVideo
}

// Material представляет единицу контента курса с фиксированным авторским порядком.
type Material struct {
	// ID - идентификатор материала.
	ID shared.MaterialID

	// Title - название материала.
	Title string

	// Type - тип материала (video, document, image).
	Type MaterialType

	// Order - позиция в авторском порядке курса (0-based).
	Order int

	// Duration - длительность видео в секундах (0 для не-видео).
	Duration shared.Seconds
}

// IsVideo проверяет, является ли материал видео.
func (m Material) IsVideo() bool {
	return m.Type == MaterialTypeVideo
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE SNAPSHOT
// Снимок курса на момент запроса. Неизменяемый в рамках одной операции.
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot представляет состояние курса на момент запроса.
type Snapshot struct {
	// ID - идентификатор курса.
	ID shared.CourseID

	// Title - название курса.
	Title string

	// Materials - материалы в авторском порядке (отсортированы по Order).
	Materials []Material

	// FetchedAt - когда снимок был получен из каталога.
	FetchedAt time.Time
}

// NewSnapshot создаёт снимок курса, сортируя материалы по авторскому порядку.
func NewSnapshot(id shared.CourseID, title string, materials []Material) Snapshot {
	sorted := make([]Material, len(materials))
	copy(sorted, materials)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})
	return Snapshot{
		ID:        id,
		Title:     title,
		Materials: sorted,
		FetchedAt: time.Now().UTC(),
	}
}

// MaterialCount возвращает количество материалов в курсе.
func (s Snapshot) MaterialCount() int {
	return len(s.Materials)
}

// FindMaterial ищет материал по ID. Возвращает материал, его индекс
// в авторском порядке и признак наличия.
func (s Snapshot) FindMaterial(id shared.MaterialID) (Material, int, bool) {
	for i, m := range s.Materials {
		if m.ID == id {
			return m, i, true
		}
	}
	return Material{}, -1, false
}

// MaterialIDs возвращает ID всех материалов в авторском порядке.
func (s Snapshot) MaterialIDs() []shared.MaterialID {
	ids := make([]shared.MaterialID, len(s.Materials))
	for i, m := range s.Materials {
		ids[i] = m.ID
	}
	return ids
}

// IsEmpty проверяет, что в курсе нет материалов.
func (s Snapshot) IsEmpty() bool {
	return len(s.Materials) == 0
}
