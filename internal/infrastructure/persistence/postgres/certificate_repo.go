// Package postgres implements PostgreSQL persistence layer for Kurso Learning Hub.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/certificate"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CERTIFICATE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CertificateRepository implements certificate.Repository for PostgreSQL.
type CertificateRepository struct {
	conn *Connection
}

// NewCertificateRepository creates a new CertificateRepository.
func NewCertificateRepository(conn *Connection) *CertificateRepository {
	return &CertificateRepository{conn: conn}
}

// IssueIfAbsent issues a certificate at most once per (student, course).
// Check-then-create, backed by the composite unique constraint: losing
// the INSERT race is not an error, the winner's certificate is returned.
func (r *CertificateRepository) IssueIfAbsent(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (certificate.IssueResult, error) {
	existing, err := r.Get(ctx, studentID, courseID)
	if err == nil {
		return certificate.IssueResult{Certificate: existing, AlreadyExisted: true}, nil
	}
	if !shared.IsNotFound(err) {
		return certificate.IssueResult{}, err
	}

	cert := certificate.NewCertificate(studentID, courseID)

	query := `
		INSERT INTO certificates (id, student_id, course_id, serial, issued_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = r.conn.Exec(ctx, query,
		cert.ID,
		cert.StudentID.String(),
		cert.CourseID.String(),
		cert.Serial,
		cert.IssuedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			// Lost the race to a concurrent issuer.
			winner, getErr := r.Get(ctx, studentID, courseID)
			if getErr != nil {
				return certificate.IssueResult{}, getErr
			}
			return certificate.IssueResult{Certificate: winner, AlreadyExisted: true}, nil
		}
		return certificate.IssueResult{}, fmt.Errorf("failed to issue certificate: %w", err)
	}

	return certificate.IssueResult{Certificate: cert, AlreadyExisted: false}, nil
}

// Get returns the certificate for a (student, course) pair.
func (r *CertificateRepository) Get(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (*certificate.Certificate, error) {
	query := `
		SELECT id, student_id, course_id, serial, issued_at
		FROM certificates
		WHERE student_id = $1 AND course_id = $2
	`

	row := r.conn.QueryRow(ctx, query, studentID.String(), courseID.String())
	return r.scanCertificate(row)
}

// GetBySerial returns a certificate by its public serial number.
func (r *CertificateRepository) GetBySerial(ctx context.Context, serial string) (*certificate.Certificate, error) {
	query := `
		SELECT id, student_id, course_id, serial, issued_at
		FROM certificates
		WHERE serial = $1
	`

	row := r.conn.QueryRow(ctx, query, serial)
	return r.scanCertificate(row)
}

// ListByStudent returns all certificates of a student, newest first.
func (r *CertificateRepository) ListByStudent(ctx context.Context, studentID shared.StudentID) ([]*certificate.Certificate, error) {
	query := `
		SELECT id, student_id, course_id, serial, issued_at
		FROM certificates
		WHERE student_id = $1
		ORDER BY issued_at DESC
	`

	rows, err := r.conn.Query(ctx, query, studentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	defer rows.Close()

	var result []*certificate.Certificate
	for rows.Next() {
		cert, err := r.scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, cert)
	}

	return result, rows.Err()
}

// scanCertificate scans a single certificate row.
func (r *CertificateRepository) scanCertificate(row pgx.Row) (*certificate.Certificate, error) {
	var (
		cert      certificate.Certificate
		studentID string
		courseID  string
	)

	err := row.Scan(&cert.ID, &studentID, &courseID, &cert.Serial, &cert.IssuedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCertificateNotFound
		}
		return nil, fmt.Errorf("failed to scan certificate: %w", err)
	}

	cert.StudentID = shared.StudentID(studentID)
	cert.CourseID = shared.CourseID(courseID)

	return &cert, nil
}
