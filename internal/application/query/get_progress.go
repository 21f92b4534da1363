// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/course"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Возвращает срез прогресса студента по курсу: процент, список
// материалов с флагами разблокировки и выполнения, состояние просмотра
// видео. Это главный читающий путь - плеер опрашивает его при каждом
// открытии курса.
//
// Чтение никогда не создаёт запись: у студента без прогресса - 0% и
// открыт только первый материал.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery содержит параметры запроса прогресса.
type GetProgressQuery struct {
	// StudentID - ID студента.
	StudentID string

	// CourseID - ID курса.
	CourseID string

	// IncludeWatchSegments - включить в ответ сырые интервалы просмотра.
	IncludeWatchSegments bool

	// BypassCache - читать напрямую из хранилища.
	BypassCache bool
}

// Validate проверяет корректность параметров.
func (q *GetProgressQuery) Validate() error {
	if _, err := shared.NewStudentID(q.StudentID); err != nil {
		return fmt.Errorf("get_progress: %w", err)
	}
	if _, err := shared.NewCourseID(q.CourseID); err != nil {
		return fmt.Errorf("get_progress: %w", err)
	}
	return nil
}

// WatchSegmentDTO - один слитый интервал просмотра.
type WatchSegmentDTO struct {
	// Start - начало интервала в секундах.
	Start float64 `json:"start"`

	// End - конец интервала в секундах.
	End float64 `json:"end"`
}

// MaterialAccessDTO - материал курса глазами студента.
type MaterialAccessDTO struct {
	// MaterialID - ID материала.
	MaterialID string `json:"material_id"`

	// Title - название материала.
	Title string `json:"title"`

	// Type - тип материала (video/document/image).
	Type string `json:"type"`

	// Index - позиция в последовательности курса.
	Index int `json:"index"`

	// Unlocked - материал доступен студенту.
	Unlocked bool `json:"unlocked"`

	// Completed - материал выполнен.
	Completed bool `json:"completed"`

	// CompletedAt - когда выполнен (если выполнен).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// WatchedPercent - доля просмотра видео, 0..100.
	WatchedPercent float64 `json:"watched_percent,omitempty"`

	// WatchedSeconds - суммарное покрытое время просмотра.
	WatchedSeconds float64 `json:"watched_seconds,omitempty"`

	// MaxWatchedTime - максимальная достигнутая позиция.
	MaxWatchedTime float64 `json:"max_watched_time,omitempty"`

	// Segments - слитые интервалы просмотра (по запросу).
	Segments []WatchSegmentDTO `json:"segments,omitempty"`
}

// ProgressDTO - срез прогресса студента по курсу.
type ProgressDTO struct {
	// StudentID - ID студента.
	StudentID string `json:"student_id"`

	// CourseID - ID курса.
	CourseID string `json:"course_id"`

	// CourseTitle - название курса.
	CourseTitle string `json:"course_title"`

	// CompletionPercentage - процент прохождения, 0..100.
	CompletionPercentage int `json:"completion_percentage"`

	// CompletedCount - выполнено материалов.
	CompletedCount int `json:"completed_count"`

	// TotalMaterials - всего материалов в курсе.
	TotalMaterials int `json:"total_materials"`

	// NextUnlockedIndex - индекс первого невыполненного материала.
	NextUnlockedIndex int `json:"next_unlocked_index"`

	// CourseCompleted - курс пройден полностью.
	CourseCompleted bool `json:"course_completed"`

	// StartedAt - когда начато прохождение (nil - не начато).
	StartedAt *time.Time `json:"started_at,omitempty"`

	// LastAccessedAt - последнее обращение к прогрессу.
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`

	// Materials - материалы в порядке курса.
	Materials []MaterialAccessDTO `json:"materials"`

	// FromCache - срез отдан из кеша.
	FromCache bool `json:"-"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// DefaultProgressCacheTTL bounds staleness of the read path.
const DefaultProgressCacheTTL = 30 * time.Second

// GetProgressHandler обрабатывает GetProgressQuery.
type GetProgressHandler struct {
	progressRepo  progress.Repository
	progressCache progress.Cache
	catalog       course.CatalogReader
	enrollment    course.EnrollmentChecker
	cacheTTL      time.Duration
}

// NewGetProgressHandler создаёт новый GetProgressHandler.
func NewGetProgressHandler(
	progressRepo progress.Repository,
	progressCache progress.Cache,
	catalog course.CatalogReader,
	enrollment course.EnrollmentChecker,
	cacheTTL time.Duration,
) *GetProgressHandler {
	if cacheTTL <= 0 {
		cacheTTL = DefaultProgressCacheTTL
	}
	return &GetProgressHandler{
		progressRepo:  progressRepo,
		progressCache: progressCache,
		catalog:       catalog,
		enrollment:    enrollment,
		cacheTTL:      cacheTTL,
	}
}

// Handle выполняет запрос прогресса.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*ProgressDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	studentID := shared.StudentID(q.StudentID)
	courseID := shared.CourseID(q.CourseID)

	enrolled, err := h.enrollment.IsEnrolled(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, shared.ErrNotEnrolled
	}

	snapshot, err := h.catalog.GetSnapshot(ctx, courseID)
	if err != nil {
		return nil, err
	}

	p, fromCache, err := h.loadProgress(ctx, studentID, courseID, q.BypassCache)
	if err != nil {
		return nil, err
	}

	return h.buildDTO(snapshot, p, fromCache, q.IncludeWatchSegments), nil
}

// loadProgress читает запись через кеш. Отсутствие записи - не ошибка:
// возвращается nil и срез строится как нулевой.
func (h *GetProgressHandler) loadProgress(
	ctx context.Context,
	studentID shared.StudentID,
	courseID shared.CourseID,
	bypassCache bool,
) (*progress.Progress, bool, error) {
	if h.progressCache != nil && !bypassCache {
		if p, err := h.progressCache.Get(ctx, studentID, courseID); err == nil && p != nil {
			return p, true, nil
		}
	}

	p, err := h.progressRepo.Get(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, shared.ErrProgressNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	if h.progressCache != nil {
		_ = h.progressCache.Set(ctx, p, h.cacheTTL)
	}
	return p, false, nil
}

// buildDTO собирает срез: оценивает гейтинг и накладывает состояние
// просмотра видео на материалы каталога.
func (h *GetProgressHandler) buildDTO(
	snapshot course.Snapshot,
	p *progress.Progress,
	fromCache bool,
	includeSegments bool,
) *ProgressDTO {
	completed := map[shared.MaterialID]struct{}{}
	if p != nil {
		completed = p.CompletedSet()
	}

	gate := progress.EvaluateGate(snapshot.Materials, completed)

	dto := &ProgressDTO{
		CourseID:          snapshot.ID.String(),
		CourseTitle:       snapshot.Title,
		TotalMaterials:    snapshot.MaterialCount(),
		NextUnlockedIndex: gate.NextUnlockedIndex,
		Materials:         make([]MaterialAccessDTO, 0, snapshot.MaterialCount()),
		FromCache:         fromCache,
	}

	if p != nil {
		dto.StudentID = p.StudentID.String()
		dto.CompletionPercentage = p.CompletionPercentage.Int()
		dto.CompletedCount = p.CompletedCount()
		dto.CourseCompleted = p.IsCourseCompleted()
		startedAt := p.StartedAt
		lastAccessed := p.LastAccessedAt
		dto.StartedAt = &startedAt
		dto.LastAccessedAt = &lastAccessed
	}

	completedAt := map[shared.MaterialID]time.Time{}
	if p != nil {
		for _, entry := range p.Completed {
			completedAt[entry.MaterialID] = entry.CompletedAt
		}
	}

	for _, access := range gate.Access {
		m := MaterialAccessDTO{
			MaterialID: access.Material.ID.String(),
			Title:      access.Material.Title,
			Type:       string(access.Material.Type),
			Index:      access.Index,
			Unlocked:   access.Unlocked,
			Completed:  access.Completed,
		}

		if at, ok := completedAt[access.Material.ID]; ok {
			t := at
			m.CompletedAt = &t
		}

		if p != nil && access.Material.IsVideo() {
			if v, ok := p.VideoProgressFor(access.Material.ID); ok {
				m.WatchedPercent = v.WatchPercent()
				m.WatchedSeconds = v.Coverage().Float64()
				m.MaxWatchedTime = v.MaxWatched().Float64()
				if includeSegments {
					for _, seg := range v.WatchedSegments {
						m.Segments = append(m.Segments, WatchSegmentDTO{
							Start: seg.Start.Float64(),
							End:   seg.End.Float64(),
						})
					}
				}
			}
		}

		dto.Materials = append(dto.Materials, m)
	}

	return dto
}
