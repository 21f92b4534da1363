// Package progress содержит ядро движка прогресса обучения:
// запись Progress (одна на пару студент×курс), трекер интервалов
// просмотра видео и вычислитель последовательного гейтинга.
package progress

import (
	"time"

	"github.com/google/uuid"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION ENTRIES
// Записи о выполнении - тегированные варианты, а не мешок опциональных
// полей: обычный материал выполняется без метаданных, видео несёт
// метрики просмотра.
// ══════════════════════════════════════════════════════════════════════════════

// CompletionKind различает варианты записи о выполнении.
type CompletionKind string

const (
	// CompletionKindPlain - документ или изображение, без метаданных просмотра.
	CompletionKindPlain CompletionKind = "plain"

	// CompletionKindVideo - видео, несёт метрики просмотра.
	CompletionKindVideo CompletionKind = "video"
)

// IsValid проверяет, что вариант известен.
func (k CompletionKind) IsValid() bool {
	return k == CompletionKindPlain || k == CompletionKindVideo
}

// VideoCompletionMeta - метрики просмотра видеоматериала на момент выполнения.
type VideoCompletionMeta struct {
	// WatchTime - заявленное время просмотра в секундах.
	WatchTime shared.Seconds `json:"watch_time"`

	// TotalDuration - длительность видео в секундах.
	TotalDuration shared.Seconds `json:"total_duration"`

	// FullyWatched - просмотрено ли видео целиком.
	FullyWatched bool `json:"fully_watched"`
}

// WatchRatio возвращает долю просмотра (0..1).
func (m VideoCompletionMeta) WatchRatio() float64 {
	return m.WatchTime.Ratio(m.TotalDuration)
}

// CompletionEntry - запись о выполнении одного материала.
// MaterialID уникален внутри списка: семантика множества обеспечивается
// на границе мутации (upsert), а не хранилищем.
type CompletionEntry struct {
	// MaterialID - выполненный материал.
	MaterialID shared.MaterialID `json:"material_id"`

	// CompletedAt - когда материал был выполнен.
	CompletedAt time.Time `json:"completed_at"`

	// Kind - вариант записи (plain или video).
	Kind CompletionKind `json:"kind"`

	// Video - метрики просмотра, только для Kind == video.
	Video *VideoCompletionMeta `json:"video,omitempty"`
}

// NewPlainCompletion создаёт запись о выполнении не-видео материала.
func NewPlainCompletion(materialID shared.MaterialID, at time.Time) CompletionEntry {
	return CompletionEntry{
		MaterialID:  materialID,
		CompletedAt: at,
		Kind:        CompletionKindPlain,
	}
}

// NewVideoCompletion создаёт запись о выполнении видеоматериала.
func NewVideoCompletion(materialID shared.MaterialID, at time.Time, meta VideoCompletionMeta) CompletionEntry {
	return CompletionEntry{
		MaterialID:  materialID,
		CompletedAt: at,
		Kind:        CompletionKindVideo,
		Video:       &meta,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// VIDEO WATCH PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// VideoWatchProgress - состояние частичного просмотра одного видео.
// Не более одной записи на materialId (upsert-by-materialId).
type VideoWatchProgress struct {
	// MaterialID - видеоматериал.
	MaterialID shared.MaterialID `json:"material_id"`

	// CurrentTime - последняя наблюдённая позиция в секундах.
	CurrentTime shared.Seconds `json:"current_time"`

	// Duration - длительность видео в секундах.
	Duration shared.Seconds `json:"duration"`

	// WatchedSegments - просмотренные отрезки (инвариант слияния
	// поддерживается IntervalSet.Observe).
	WatchedSegments IntervalSet `json:"watched_segments"`

	// LastWatchedAt - время последнего наблюдения.
	LastWatchedAt time.Time `json:"last_watched_at"`
}

// Coverage возвращает покрытие просмотра в секундах.
func (v VideoWatchProgress) Coverage() shared.Seconds {
	return v.WatchedSegments.Coverage(v.Duration)
}

// WatchPercent возвращает процент просмотра (0..100).
func (v VideoWatchProgress) WatchPercent() float64 {
	return v.WatchedSegments.WatchPercent(v.Duration)
}

// MaxWatched возвращает максимальную достигнутую позицию.
func (v VideoWatchProgress) MaxWatched() shared.Seconds {
	return v.WatchedSegments.MaxWatched()
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS
// Единственный разделяемый мутируемый ресурс подсистемы. Одна запись на
// пару студент×курс (составная уникальность). CompletionPercentage -
// всегда перевычислим из Completed и TotalMaterials: это кеш, не источник
// истины.
// ══════════════════════════════════════════════════════════════════════════════

// Progress представляет прогресс одного студента по одному курсу.
type Progress struct {
	// ID - внутренний идентификатор записи.
	ID string

	// StudentID - студент.
	StudentID shared.StudentID

	// CourseID - курс.
	CourseID shared.CourseID

	// TotalMaterials - снимок количества материалов курса на момент
	// последней синхронизации. Пересинхронизируется при дрейфе.
	TotalMaterials int

	// Completed - записи о выполнении, materialId уникален в списке.
	Completed []CompletionEntry

	// VideoProgress - частичный просмотр видео, не более записи на материал.
	VideoProgress []VideoWatchProgress

	// CompletionPercentage - производный процент выполнения (0..100).
	CompletionPercentage shared.Percent

	// StartedAt - когда запись была создана (первое взаимодействие).
	StartedAt time.Time

	// LastAccessedAt - время последней мутирующей операции.
	LastAccessedAt time.Time

	// Version - счётчик версий для оптимистической блокировки.
	// Инкрементируется хранилищем при каждом успешном Update.
	Version int64
}

// NewProgress создаёт запись прогресса при первом взаимодействии студента
// с курсом. TotalMaterials берётся из снимка курса в этот момент.
func NewProgress(studentID shared.StudentID, courseID shared.CourseID, totalMaterials int) *Progress {
	now := time.Now().UTC()
	return &Progress{
		ID:                   uuid.NewString(),
		StudentID:            studentID,
		CourseID:             courseID,
		TotalMaterials:       totalMaterials,
		Completed:            make([]CompletionEntry, 0),
		VideoProgress:        make([]VideoWatchProgress, 0),
		CompletionPercentage: shared.PercentZero,
		StartedAt:            now,
		LastAccessedAt:       now,
		Version:              0,
	}
}

// IsCompleted проверяет, выполнен ли материал.
func (p *Progress) IsCompleted(materialID shared.MaterialID) bool {
	for _, e := range p.Completed {
		if e.MaterialID == materialID {
			return true
		}
	}
	return false
}

// CompletedSet возвращает множество ID выполненных материалов.
func (p *Progress) CompletedSet() map[shared.MaterialID]struct{} {
	set := make(map[shared.MaterialID]struct{}, len(p.Completed))
	for _, e := range p.Completed {
		set[e.MaterialID] = struct{}{}
	}
	return set
}

// CompletedCount возвращает количество выполненных материалов.
func (p *Progress) CompletedCount() int {
	return len(p.Completed)
}

// MarkComplete добавляет или обновляет запись о выполнении (upsert по
// materialId) и перевычисляет процент. Возвращает true, если запись новая.
// Повторный вызов - no-op по множеству, но метаданные видео обновляются.
//
// Гейтинг здесь НЕ проверяется: точка принуждения - уровень приложения,
// которому доступен снимок курса.
func (p *Progress) MarkComplete(entry CompletionEntry) bool {
	now := time.Now().UTC()
	for i := range p.Completed {
		if p.Completed[i].MaterialID == entry.MaterialID {
			if entry.Kind == CompletionKindVideo && entry.Video != nil {
				p.Completed[i].Kind = CompletionKindVideo
				p.Completed[i].Video = entry.Video
			}
			p.LastAccessedAt = now
			return false
		}
	}

	p.Completed = append(p.Completed, entry)
	p.recompute()
	p.LastAccessedAt = now
	return true
}

// MarkIncomplete удаляет запись о выполнении и перевычисляет процент.
// Идемпотентна: отсутствие записи - не ошибка.
func (p *Progress) MarkIncomplete(materialID shared.MaterialID) bool {
	for i := range p.Completed {
		if p.Completed[i].MaterialID == materialID {
			p.Completed = append(p.Completed[:i], p.Completed[i+1:]...)
			p.recompute()
			p.LastAccessedAt = time.Now().UTC()
			return true
		}
	}
	p.LastAccessedAt = time.Now().UTC()
	return false
}

// ObserveInterval сворачивает наблюдение позиции t в трекер интервалов
// материала (upsert записи VideoWatchProgress) и возвращает обновлённое
// состояние просмотра.
func (p *Progress) ObserveInterval(materialID shared.MaterialID, t, duration shared.Seconds) VideoWatchProgress {
	now := time.Now().UTC()
	p.LastAccessedAt = now

	for i := range p.VideoProgress {
		if p.VideoProgress[i].MaterialID == materialID {
			p.VideoProgress[i].WatchedSegments = p.VideoProgress[i].WatchedSegments.Observe(t)
			p.VideoProgress[i].CurrentTime = t
			if duration > 0 {
				p.VideoProgress[i].Duration = duration
			}
			p.VideoProgress[i].LastWatchedAt = now
			return p.VideoProgress[i]
		}
	}

	vp := VideoWatchProgress{
		MaterialID:      materialID,
		CurrentTime:     t,
		Duration:        duration,
		WatchedSegments: IntervalSet{}.Observe(t),
		LastWatchedAt:   now,
	}
	p.VideoProgress = append(p.VideoProgress, vp)
	return vp
}

// VideoProgressFor возвращает состояние просмотра материала.
func (p *Progress) VideoProgressFor(materialID shared.MaterialID) (VideoWatchProgress, bool) {
	for _, v := range p.VideoProgress {
		if v.MaterialID == materialID {
			return v, true
		}
	}
	return VideoWatchProgress{}, false
}

// ServerWatchRatio возвращает долю просмотра (0..1), выведенную из
// серверного трекера интервалов, а не из заявленных клиентом значений.
func (p *Progress) ServerWatchRatio(materialID shared.MaterialID) float64 {
	v, ok := p.VideoProgressFor(materialID)
	if !ok || v.Duration <= 0 {
		return 0
	}
	return float64(v.Coverage()) / float64(v.Duration)
}

// SyncTotalMaterials сверяет снимок количества материалов с актуальным
// значением каталога. При дрейфе обновляет снимок и перевычисляет процент.
// Возвращает true, если был дрейф.
func (p *Progress) SyncTotalMaterials(count int) bool {
	if count < 0 || count == p.TotalMaterials {
		return false
	}
	p.TotalMaterials = count
	p.recompute()
	return true
}

// Reset очищает записи о выполнении и перевычисляет процент до нуля.
// Интервалы просмотра видео остаются нетронутыми: это осознанный выбор,
// вызывающий код очищает их явно через ClearVideoProgress.
func (p *Progress) Reset() {
	p.Completed = p.Completed[:0]
	p.recompute()
	p.LastAccessedAt = time.Now().UTC()
}

// ClearVideoProgress очищает интервалы просмотра всех видео.
func (p *Progress) ClearVideoProgress() {
	p.VideoProgress = p.VideoProgress[:0]
	p.LastAccessedAt = time.Now().UTC()
}

// Recompute перевычисляет CompletionPercentage из первичных данных.
// Публичная обёртка для сценариев восстановления после десериализации.
func (p *Progress) Recompute() {
	p.recompute()
}

// recompute поддерживает инвариант
// CompletionPercentage == round(len(Completed)/TotalMaterials*100).
func (p *Progress) recompute() {
	p.CompletionPercentage = shared.NewPercent(len(p.Completed), p.TotalMaterials)
}

// IsCourseCompleted проверяет, достигнут ли полный прогресс.
func (p *Progress) IsCourseCompleted() bool {
	return p.CompletionPercentage.IsComplete()
}

// Touch обновляет LastAccessedAt.
func (p *Progress) Touch() {
	p.LastAccessedAt = time.Now().UTC()
}
