package query

import (
	"context"
	"fmt"
	"time"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/certificate"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CERTIFICATE QUERY
// Возвращает сертификат студента по курсу либо проверяет сертификат по
// серийному номеру (публичная верификация).
// ══════════════════════════════════════════════════════════════════════════════

// GetCertificateQuery содержит параметры запроса сертификата.
// Заполняется либо пара StudentID+CourseID, либо Serial.
type GetCertificateQuery struct {
	// StudentID - ID студента.
	StudentID string

	// CourseID - ID курса.
	CourseID string

	// Serial - серийный номер для публичной верификации.
	Serial string
}

// Validate проверяет корректность параметров.
func (q *GetCertificateQuery) Validate() error {
	if q.Serial != "" {
		return nil
	}
	if _, err := shared.NewStudentID(q.StudentID); err != nil {
		return fmt.Errorf("get_certificate: %w", err)
	}
	if _, err := shared.NewCourseID(q.CourseID); err != nil {
		return fmt.Errorf("get_certificate: %w", err)
	}
	return nil
}

// CertificateDTO - сертификат о прохождении курса.
type CertificateDTO struct {
	// ID - внутренний ID сертификата.
	ID string `json:"id"`

	// StudentID - ID студента.
	StudentID string `json:"student_id"`

	// CourseID - ID курса.
	CourseID string `json:"course_id"`

	// Serial - серийный номер.
	Serial string `json:"serial"`

	// IssuedAt - момент выдачи.
	IssuedAt time.Time `json:"issued_at"`
}

// GetCertificateHandler обрабатывает GetCertificateQuery.
type GetCertificateHandler struct {
	certRepo certificate.Repository
}

// NewGetCertificateHandler создаёт новый GetCertificateHandler.
func NewGetCertificateHandler(certRepo certificate.Repository) *GetCertificateHandler {
	return &GetCertificateHandler{certRepo: certRepo}
}

// Handle выполняет запрос сертификата.
// Возвращает shared.ErrCertificateNotFound, если сертификата нет.
func (h *GetCertificateHandler) Handle(ctx context.Context, q GetCertificateQuery) (*CertificateDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var (
		cert *certificate.Certificate
		err  error
	)

	if q.Serial != "" {
		cert, err = h.certRepo.GetBySerial(ctx, q.Serial)
	} else {
		cert, err = h.certRepo.Get(ctx, shared.StudentID(q.StudentID), shared.CourseID(q.CourseID))
	}
	if err != nil {
		return nil, err
	}

	return &CertificateDTO{
		ID:        cert.ID,
		StudentID: cert.StudentID.String(),
		CourseID:  cert.CourseID.String(),
		Serial:    cert.Serial,
		IssuedAt:  cert.IssuedAt,
	}, nil
}
