// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"context"
	"fmt"
	"time"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/certificate"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/notification"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
	"github.com/kurso-hub/kurso-learning-hub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON COURSE COMPLETED HANDLER
// Обрабатывает переход курса в 100%: выдаёт сертификат и уведомляет
// студента.
//
// Ключевые гарантии:
// 1. Сертификат выдаётся не более одного раза на пару студент×курс -
//    идемпотентность обеспечивается уникальным ограничением хранилища,
//    а не состоянием обработчика.
// 2. Сбой уведомления не мешает выдаче сертификата и не откатывает её.
// 3. Событие приходит только на фронте перехода в 100%, но обработчик
//    всё равно переживает повторную доставку.
// ═══════════════════════════════════════════════════════════════════════════

// OnCourseCompletedHandler обрабатывает событие прохождения курса.
type OnCourseCompletedHandler struct {
	issuer         certificate.Issuer
	sender         notification.Sender
	eventPublisher shared.EventPublisher
	logger         *logger.Logger
	config         CourseCompletedConfig
}

// CourseCompletedConfig содержит конфигурацию обработчика.
type CourseCompletedConfig struct {
	// SendNotification - отправлять ли уведомление о сертификате.
	SendNotification bool

	// HandleTimeout - бюджет времени на обработку одного события.
	HandleTimeout time.Duration
}

// DefaultCourseCompletedConfig возвращает конфигурацию по умолчанию.
func DefaultCourseCompletedConfig() CourseCompletedConfig {
	return CourseCompletedConfig{
		SendNotification: true,
		HandleTimeout:    10 * time.Second,
	}
}

// NewOnCourseCompletedHandler создаёт новый обработчик.
func NewOnCourseCompletedHandler(
	issuer certificate.Issuer,
	sender notification.Sender,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
	config CourseCompletedConfig,
) *OnCourseCompletedHandler {
	if log == nil {
		log = logger.Default()
	}
	if config.HandleTimeout <= 0 {
		config = DefaultCourseCompletedConfig()
	}

	return &OnCourseCompletedHandler{
		issuer:         issuer,
		sender:         sender,
		eventPublisher: eventPublisher,
		logger:         log.With(logger.Component("on_course_completed")),
		config:         config,
	}
}

// Handle обрабатывает событие прохождения курса.
// Реализует интерфейс shared.EventHandler.
func (h *OnCourseCompletedHandler) Handle(event shared.Event) error {
	studentID, courseID, ok := courseCompletedIDs(event)
	if !ok {
		h.logger.Warn("received non-CourseCompletedEvent",
			logger.String("event_type", string(event.EventType())),
		)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.HandleTimeout)
	defer cancel()

	h.logger.Info("processing course completed event",
		logger.StudentID(studentID.String()),
		logger.CourseID(courseID.String()),
	)

	// Выдача сертификата. Уникальное ограничение (студент, курс) в
	// хранилище делает операцию идемпотентной при повторной доставке.
	result, err := h.issuer.IssueIfAbsent(ctx, studentID, courseID)
	if err != nil {
		return fmt.Errorf("on_course_completed: issue certificate: %w", err)
	}

	if result.AlreadyExisted {
		h.logger.Debug("certificate already issued, skipping",
			logger.StudentID(studentID.String()),
			logger.CourseID(courseID.String()),
			logger.Serial(result.Certificate.Serial),
		)
		return nil
	}

	h.logger.Info("certificate issued",
		logger.StudentID(studentID.String()),
		logger.CourseID(courseID.String()),
		logger.Serial(result.Certificate.Serial),
	)

	if h.eventPublisher != nil {
		_ = h.eventPublisher.Publish(certificate.NewIssuedEvent(result.Certificate))
	}

	// Уведомление - fire-and-forget: сбой логируется и не откатывает
	// выдачу сертификата.
	if h.config.SendNotification && h.sender != nil {
		msg := notification.NewCertificateGenerated(
			studentID,
			courseID,
			result.Certificate.Serial,
		)
		if err := h.sender.Send(ctx, msg); err != nil {
			h.logger.Error("failed to send certificate notification",
				logger.StudentID(studentID.String()),
				logger.Err(err),
			)
		}
	}

	return nil
}

// courseCompletedIDs извлекает идентификаторы из события. Локальная шина
// доставляет конкретный тип; событие с другой реплики (Redis Pub/Sub)
// приходит восстановленным из envelope, и идентификаторы читаются из payload.
func courseCompletedIDs(event shared.Event) (shared.StudentID, shared.CourseID, bool) {
	if e, ok := event.(progress.CourseCompletedEvent); ok {
		return e.StudentID, e.CourseID, true
	}

	if event.EventType() != shared.EventCourseCompleted {
		return "", "", false
	}

	payload := event.Payload()
	rawStudent, _ := payload["student_id"].(string)
	rawCourse, _ := payload["course_id"].(string)

	studentID, err := shared.NewStudentID(rawStudent)
	if err != nil {
		return "", "", false
	}
	courseID, err := shared.NewCourseID(rawCourse)
	if err != nil {
		return "", "", false
	}
	return studentID, courseID, true
}
