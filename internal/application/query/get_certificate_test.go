package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/certificate"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

type stubCertRepo struct {
	cert *certificate.Certificate
}

func (r *stubCertRepo) IssueIfAbsent(context.Context, shared.StudentID, shared.CourseID) (certificate.IssueResult, error) {
	return certificate.IssueResult{Certificate: r.cert, AlreadyExisted: r.cert != nil}, nil
}

func (r *stubCertRepo) Get(_ context.Context, studentID shared.StudentID, courseID shared.CourseID) (*certificate.Certificate, error) {
	if r.cert == nil || r.cert.StudentID != studentID || r.cert.CourseID != courseID {
		return nil, shared.ErrCertificateNotFound
	}
	return r.cert, nil
}

func (r *stubCertRepo) GetBySerial(_ context.Context, serial string) (*certificate.Certificate, error) {
	if r.cert == nil || r.cert.Serial != serial {
		return nil, shared.ErrCertificateNotFound
	}
	return r.cert, nil
}

func (r *stubCertRepo) ListByStudent(_ context.Context, studentID shared.StudentID) ([]*certificate.Certificate, error) {
	if r.cert == nil || r.cert.StudentID != studentID {
		return nil, nil
	}
	return []*certificate.Certificate{r.cert}, nil
}

func issuedCert() *certificate.Certificate {
	return certificate.NewCertificate(shared.StudentID(testStudentID), shared.CourseID(testCourseID))
}

func TestGetCertificate_ByStudentAndCourse(t *testing.T) {
	cert := issuedCert()
	h := NewGetCertificateHandler(&stubCertRepo{cert: cert})

	dto, err := h.Handle(context.Background(), GetCertificateQuery{
		StudentID: testStudentID,
		CourseID:  testCourseID,
	})

	require.NoError(t, err)
	assert.Equal(t, cert.ID, dto.ID)
	assert.Equal(t, testStudentID, dto.StudentID)
	assert.Equal(t, testCourseID, dto.CourseID)
	assert.Equal(t, cert.Serial, dto.Serial)
	assert.Equal(t, cert.IssuedAt, dto.IssuedAt)
}

func TestGetCertificate_BySerial(t *testing.T) {
	cert := issuedCert()
	h := NewGetCertificateHandler(&stubCertRepo{cert: cert})

	// публичная верификация: ID сторон не требуются
	dto, err := h.Handle(context.Background(), GetCertificateQuery{Serial: cert.Serial})

	require.NoError(t, err)
	assert.Equal(t, cert.Serial, dto.Serial)
	assert.Equal(t, testStudentID, dto.StudentID)
}

func TestGetCertificate_NotFound(t *testing.T) {
	h := NewGetCertificateHandler(&stubCertRepo{})

	_, err := h.Handle(context.Background(), GetCertificateQuery{
		StudentID: testStudentID,
		CourseID:  testCourseID,
	})

	assert.ErrorIs(t, err, shared.ErrCertificateNotFound)
}

func TestGetCertificate_UnknownSerial(t *testing.T) {
	h := NewGetCertificateHandler(&stubCertRepo{cert: issuedCert()})

	_, err := h.Handle(context.Background(), GetCertificateQuery{Serial: "KRS-0000000000000000"})

	assert.ErrorIs(t, err, shared.ErrCertificateNotFound)
}

func TestGetCertificate_InvalidIDs(t *testing.T) {
	h := NewGetCertificateHandler(&stubCertRepo{})

	_, err := h.Handle(context.Background(), GetCertificateQuery{
		StudentID: "not-a-uuid",
		CourseID:  testCourseID,
	})

	assert.ErrorIs(t, err, shared.ErrInvalidID)
}
