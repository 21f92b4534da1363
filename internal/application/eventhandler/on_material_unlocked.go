package eventhandler

import (
	"context"
	"time"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/course"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/notification"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
	"github.com/kurso-hub/kurso-learning-hub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON MATERIAL UNLOCKED HANDLER
// Уведомляет студента об открытии следующего материала. Полностью
// вспомогательный путь: любой сбой здесь не влияет на прогресс.
// ═══════════════════════════════════════════════════════════════════════════

// OnMaterialUnlockedHandler обрабатывает событие разблокировки материала.
type OnMaterialUnlockedHandler struct {
	catalog course.CatalogReader
	sender  notification.Sender
	logger  *logger.Logger
	timeout time.Duration
}

// NewOnMaterialUnlockedHandler создаёт новый обработчик.
func NewOnMaterialUnlockedHandler(
	catalog course.CatalogReader,
	sender notification.Sender,
	log *logger.Logger,
	timeout time.Duration,
) *OnMaterialUnlockedHandler {
	if log == nil {
		log = logger.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &OnMaterialUnlockedHandler{
		catalog: catalog,
		sender:  sender,
		logger:  log.With(logger.Component("on_material_unlocked")),
		timeout: timeout,
	}
}

// Handle обрабатывает событие разблокировки материала.
// Реализует интерфейс shared.EventHandler.
func (h *OnMaterialUnlockedHandler) Handle(event shared.Event) error {
	studentID, courseID, materialID, ok := materialUnlockedIDs(event)
	if !ok {
		h.logger.Warn("received non-MaterialUnlockedEvent",
			logger.String("event_type", string(event.EventType())),
		)
		return nil
	}

	if h.sender == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	// Название материала берём из каталога; при недоступности каталога
	// в уведомление уходит ID материала.
	title := materialID.String()
	if snapshot, err := h.catalog.GetSnapshot(ctx, courseID); err == nil {
		if m, _, found := snapshot.FindMaterial(materialID); found {
			title = m.Title
		}
	}

	msg := notification.NewMaterialUnlocked(studentID, courseID, title)
	if err := h.sender.Send(ctx, msg); err != nil {
		h.logger.Error("failed to send unlock notification",
			logger.StudentID(studentID.String()),
			logger.MaterialID(materialID.String()),
			logger.Err(err),
		)
	}

	return nil
}

// materialUnlockedIDs извлекает идентификаторы из события: конкретный тип
// с локальной шины либо payload восстановленного события с другой реплики.
func materialUnlockedIDs(event shared.Event) (shared.StudentID, shared.CourseID, shared.MaterialID, bool) {
	if e, ok := event.(progress.MaterialUnlockedEvent); ok {
		return e.StudentID, e.CourseID, e.MaterialID, true
	}

	if event.EventType() != shared.EventMaterialUnlocked {
		return "", "", "", false
	}

	payload := event.Payload()
	rawStudent, _ := payload["student_id"].(string)
	rawCourse, _ := payload["course_id"].(string)
	rawMaterial, _ := payload["material_id"].(string)

	studentID, err := shared.NewStudentID(rawStudent)
	if err != nil {
		return "", "", "", false
	}
	courseID, err := shared.NewCourseID(rawCourse)
	if err != nil {
		return "", "", "", false
	}
	materialID, err := shared.NewMaterialID(rawMaterial)
	if err != nil {
		return "", "", "", false
	}
	return studentID, courseID, materialID, true
}
