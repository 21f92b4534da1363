package progress

import (
	"time"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN EVENTS
// События прогресса. Агрегат - запись Progress (ID = "{student}:{course}").
// ══════════════════════════════════════════════════════════════════════════════

// aggregateKey строит ID агрегата для событий прогресса.
func aggregateKey(studentID shared.StudentID, courseID shared.CourseID) string {
	return studentID.String() + ":" + courseID.String()
}

// MaterialCompletedEvent эмитится при выполнении материала.
type MaterialCompletedEvent struct {
	shared.BaseEvent
	StudentID  shared.StudentID  `json:"student_id"`
	CourseID   shared.CourseID   `json:"course_id"`
	MaterialID shared.MaterialID `json:"material_id"`
	Index      int               `json:"index"`
	Percentage int               `json:"percentage"`
}

// Payload реализует интерфейс Event.
func (e MaterialCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":  e.StudentID.String(),
		"course_id":   e.CourseID.String(),
		"material_id": e.MaterialID.String(),
		"index":       e.Index,
		"percentage":  e.Percentage,
	}
}

// NewMaterialCompletedEvent создаёт MaterialCompletedEvent.
func NewMaterialCompletedEvent(studentID shared.StudentID, courseID shared.CourseID, materialID shared.MaterialID, index int, pct shared.Percent) MaterialCompletedEvent {
	return MaterialCompletedEvent{
		BaseEvent:  shared.NewBaseEvent(shared.EventMaterialCompleted, aggregateKey(studentID, courseID)),
		StudentID:  studentID,
		CourseID:   courseID,
		MaterialID: materialID,
		Index:      index,
		Percentage: pct.Int(),
	}
}

// MaterialUnlockedEvent эмитится, когда выполнение материала открывает следующий.
type MaterialUnlockedEvent struct {
	shared.BaseEvent
	StudentID  shared.StudentID  `json:"student_id"`
	CourseID   shared.CourseID   `json:"course_id"`
	MaterialID shared.MaterialID `json:"material_id"`
	Index      int               `json:"index"`
}

// Payload реализует интерфейс Event.
func (e MaterialUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":  e.StudentID.String(),
		"course_id":   e.CourseID.String(),
		"material_id": e.MaterialID.String(),
		"index":       e.Index,
	}
}

// NewMaterialUnlockedEvent создаёт MaterialUnlockedEvent.
func NewMaterialUnlockedEvent(studentID shared.StudentID, courseID shared.CourseID, materialID shared.MaterialID, index int) MaterialUnlockedEvent {
	return MaterialUnlockedEvent{
		BaseEvent:  shared.NewBaseEvent(shared.EventMaterialUnlocked, aggregateKey(studentID, courseID)),
		StudentID:  studentID,
		CourseID:   courseID,
		MaterialID: materialID,
		Index:      index,
	}
}

// CourseCompletedEvent эмитится ровно один раз на переход процента <100 → 100.
// Edge-triggered: повторная отметка уже выполненного курса событие не порождает.
type CourseCompletedEvent struct {
	shared.BaseEvent
	StudentID   shared.StudentID `json:"student_id"`
	CourseID    shared.CourseID  `json:"course_id"`
	CompletedAt time.Time        `json:"completed_at"`
	Materials   int              `json:"materials"`
}

// Payload реализует интерфейс Event.
func (e CourseCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":   e.StudentID.String(),
		"course_id":    e.CourseID.String(),
		"completed_at": e.CompletedAt.Format(time.RFC3339),
		"materials":    e.Materials,
	}
}

// NewCourseCompletedEvent создаёт CourseCompletedEvent.
func NewCourseCompletedEvent(studentID shared.StudentID, courseID shared.CourseID, materials int) CourseCompletedEvent {
	return CourseCompletedEvent{
		BaseEvent:   shared.NewBaseEvent(shared.EventCourseCompleted, aggregateKey(studentID, courseID)),
		StudentID:   studentID,
		CourseID:    courseID,
		CompletedAt: time.Now().UTC(),
		Materials:   materials,
	}
}

// MaterialReopenedEvent эмитится при снятии отметки о выполнении.
type MaterialReopenedEvent struct {
	shared.BaseEvent
	StudentID  shared.StudentID  `json:"student_id"`
	CourseID   shared.CourseID   `json:"course_id"`
	MaterialID shared.MaterialID `json:"material_id"`
	Percentage int               `json:"percentage"`
}

// Payload реализует интерфейс Event.
func (e MaterialReopenedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":  e.StudentID.String(),
		"course_id":   e.CourseID.String(),
		"material_id": e.MaterialID.String(),
		"percentage":  e.Percentage,
	}
}

// NewMaterialReopenedEvent создаёт MaterialReopenedEvent.
func NewMaterialReopenedEvent(studentID shared.StudentID, courseID shared.CourseID, materialID shared.MaterialID, pct shared.Percent) MaterialReopenedEvent {
	return MaterialReopenedEvent{
		BaseEvent:  shared.NewBaseEvent(shared.EventMaterialReopened, aggregateKey(studentID, courseID)),
		StudentID:  studentID,
		CourseID:   courseID,
		MaterialID: materialID,
		Percentage: pct.Int(),
	}
}

// ProgressResetEvent эмитится при явном сбросе прогресса курса.
type ProgressResetEvent struct {
	shared.BaseEvent
	StudentID shared.StudentID `json:"student_id"`
	CourseID  shared.CourseID  `json:"course_id"`
}

// Payload реализует интерфейс Event.
func (e ProgressResetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID.String(),
		"course_id":  e.CourseID.String(),
	}
}

// NewProgressResetEvent создаёт ProgressResetEvent.
func NewProgressResetEvent(studentID shared.StudentID, courseID shared.CourseID) ProgressResetEvent {
	return ProgressResetEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventProgressReset, aggregateKey(studentID, courseID)),
		StudentID: studentID,
		CourseID:  courseID,
	}
}

// MaterialCountDriftEvent эмитится, когда ленивый ресинк обнаруживает,
// что количество материалов курса изменилось.
type MaterialCountDriftEvent struct {
	shared.BaseEvent
	StudentID shared.StudentID `json:"student_id"`
	CourseID  shared.CourseID  `json:"course_id"`
	OldCount  int              `json:"old_count"`
	NewCount  int              `json:"new_count"`
}

// Payload реализует интерфейс Event.
func (e MaterialCountDriftEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID.String(),
		"course_id":  e.CourseID.String(),
		"old_count":  e.OldCount,
		"new_count":  e.NewCount,
	}
}

// NewMaterialCountDriftEvent создаёт MaterialCountDriftEvent.
func NewMaterialCountDriftEvent(studentID shared.StudentID, courseID shared.CourseID, oldCount, newCount int) MaterialCountDriftEvent {
	return MaterialCountDriftEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventMaterialCountDrift, aggregateKey(studentID, courseID)),
		StudentID: studentID,
		CourseID:  courseID,
		OldCount:  oldCount,
		NewCount:  newCount,
	}
}

// ResyncCompletedEvent эмитится фоновым джобом после прохода сверки
// знаменателей с каталогом.
type ResyncCompletedEvent struct {
	shared.BaseEvent
	Scanned int `json:"scanned"`
	Drifted int `json:"drifted"`
	Failed  int `json:"failed"`
}

// Payload реализует интерфейс Event.
func (e ResyncCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"scanned": e.Scanned,
		"drifted": e.Drifted,
		"failed":  e.Failed,
	}
}

// NewResyncCompletedEvent создаёт ResyncCompletedEvent.
func NewResyncCompletedEvent(scanned, drifted, failed int) ResyncCompletedEvent {
	return ResyncCompletedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventResyncCompleted, "resync"),
		Scanned:   scanned,
		Drifted:   drifted,
		Failed:    failed,
	}
}
