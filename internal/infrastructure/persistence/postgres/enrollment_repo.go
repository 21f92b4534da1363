// Package postgres implements PostgreSQL persistence layer for Kurso Learning Hub.
package postgres

import (
	"context"
	"fmt"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentRepository implements course.EnrollmentChecker for PostgreSQL.
// Enrollment is managed by the platform's admission flow; the progress
// engine only asks whether a pair exists and is active.
type EnrollmentRepository struct {
	conn *Connection
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(conn *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{conn: conn}
}

// IsEnrolled reports whether the student has an active enrollment.
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM enrollments
			WHERE student_id = $1 AND course_id = $2 AND status = 'active'
		)
	`

	var enrolled bool
	err := r.conn.QueryRow(ctx, query, studentID.String(), courseID.String()).Scan(&enrolled)
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}

	return enrolled, nil
}

// Enroll creates an active enrollment. Used by seeding and tests;
// re-enrolling an existing pair reactivates it.
func (r *EnrollmentRepository) Enroll(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) error {
	query := `
		INSERT INTO enrollments (student_id, course_id, status)
		VALUES ($1, $2, 'active')
		ON CONFLICT (student_id, course_id) DO UPDATE SET status = 'active'
	`

	_, err := r.conn.Exec(ctx, query, studentID.String(), courseID.String())
	if err != nil {
		return fmt.Errorf("failed to enroll: %w", err)
	}

	return nil
}
