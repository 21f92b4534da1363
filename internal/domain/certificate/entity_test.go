package certificate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

const (
	studentID = shared.StudentID("9ca4322d-ebd5-4ffa-a340-56fe811bbab1")
	courseID  = shared.CourseID("7ed99bd0-87b2-4dbb-a97b-596c3f29c49b")
)

func TestSerial_Deterministic(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := Serial(studentID, courseID, issuedAt)
	b := Serial(studentID, courseID, issuedAt)

	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "KRS-"))
	assert.Len(t, a, len("KRS-")+16)
}

func TestSerial_DistinguishesInputs(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	base := Serial(studentID, courseID, issuedAt)

	other := shared.CourseID("32e8a7d1-55c0-4b6f-9a21-0e4dc8b7f3a6")
	assert.NotEqual(t, base, Serial(studentID, other, issuedAt))
	assert.NotEqual(t, base, Serial(studentID, courseID, issuedAt.Add(time.Second)))
}

func TestNewCertificate(t *testing.T) {
	cert := NewCertificate(studentID, courseID)

	assert.NoError(t, cert.Validate())
	assert.NotEmpty(t, cert.ID)
	assert.Equal(t, Serial(studentID, courseID, cert.IssuedAt), cert.Serial)
	assert.Equal(t, time.UTC, cert.IssuedAt.Location())
}

func TestCertificate_Validate(t *testing.T) {
	cert := NewCertificate(studentID, courseID)
	cert.Serial = ""

	assert.ErrorIs(t, cert.Validate(), shared.ErrInvalidEntity)
}
