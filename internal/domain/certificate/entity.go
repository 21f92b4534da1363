// Package certificate содержит доменную модель сертификатов о прохождении курса.
// Сертификат выдаётся не более одного раза на пару студент×курс - уникальность
// обеспечивается и проверкой перед созданием, и ограничением хранилища.
package certificate

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// Certificate представляет выданный сертификат о прохождении курса.
type Certificate struct {
	// ID - внутренний идентификатор сертификата.
	ID string

	// StudentID - студент.
	StudentID shared.StudentID

	// CourseID - пройденный курс.
	CourseID shared.CourseID

	// Serial - публичный серийный номер для проверки подлинности.
	Serial string

	// IssuedAt - когда сертификат был выдан.
	IssuedAt time.Time
}

// NewCertificate создаёт сертификат с детерминированным серийным номером.
func NewCertificate(studentID shared.StudentID, courseID shared.CourseID) *Certificate {
	issuedAt := time.Now().UTC()
	return &Certificate{
		ID:        uuid.NewString(),
		StudentID: studentID,
		CourseID:  courseID,
		Serial:    Serial(studentID, courseID, issuedAt),
		IssuedAt:  issuedAt,
	}
}

// Serial выводит серийный номер из (студент, курс, момент выдачи)
// хешем SHA3-256. Номер публикуется на сертификате и позволяет
// проверить его подлинность без доступа к внутренним ID.
func Serial(studentID shared.StudentID, courseID shared.CourseID, issuedAt time.Time) string {
	h := sha3.New256()
	h.Write([]byte(studentID.String()))
	h.Write([]byte{0})
	h.Write([]byte(courseID.String()))
	h.Write([]byte{0})
	h.Write([]byte(issuedAt.UTC().Format(time.RFC3339)))
	sum := h.Sum(nil)
	return fmt.Sprintf("KRS-%s", hex.EncodeToString(sum[:8]))
}

// Validate проверяет целостность сертификата.
func (c *Certificate) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: certificate id is empty", shared.ErrInvalidEntity)
	}
	if c.StudentID.IsEmpty() {
		return fmt.Errorf("%w: student id is empty", shared.ErrInvalidEntity)
	}
	if c.CourseID.IsEmpty() {
		return fmt.Errorf("%w: course id is empty", shared.ErrInvalidEntity)
	}
	if c.Serial == "" {
		return fmt.Errorf("%w: serial is empty", shared.ErrInvalidEntity)
	}
	return nil
}
