// Package postgres implements PostgreSQL persistence layer for Kurso Learning Hub.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository for PostgreSQL.
//
// Update is a conditional write on the version column. Two replicas that
// read the same row race on the UPDATE; the loser sees zero affected rows
// and gets shared.ErrProgressVersionConflict to re-read and retry.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Get returns the progress record for a (student, course) pair.
func (r *ProgressRepository) Get(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (*progress.Progress, error) {
	query := `
		SELECT id, student_id, course_id, total_materials, completion_percentage,
			   completed, video_progress, started_at, last_accessed_at, version
		FROM learning_progress
		WHERE student_id = $1 AND course_id = $2
	`

	row := r.conn.QueryRow(ctx, query, studentID.String(), courseID.String())
	return r.scanProgress(row)
}

// Create inserts a new progress record.
func (r *ProgressRepository) Create(ctx context.Context, p *progress.Progress) error {
	query := `
		INSERT INTO learning_progress (
			id, student_id, course_id, total_materials, completion_percentage,
			completed, video_progress, started_at, last_accessed_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	completedJSON, videoJSON, err := marshalProgressDocs(p)
	if err != nil {
		return err
	}

	_, err = r.conn.Exec(ctx, query,
		p.ID,
		p.StudentID.String(),
		p.CourseID.String(),
		p.TotalMaterials,
		p.CompletionPercentage.Int(),
		completedJSON,
		videoJSON,
		p.StartedAt,
		p.LastAccessedAt,
		p.Version,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrProgressAlreadyExists
		}
		return fmt.Errorf("failed to create progress: %w", err)
	}

	return nil
}

// Update persists the record conditionally on p.Version and increments it
// on success.
func (r *ProgressRepository) Update(ctx context.Context, p *progress.Progress) error {
	query := `
		UPDATE learning_progress SET
			total_materials = $1,
			completion_percentage = $2,
			completed = $3,
			video_progress = $4,
			last_accessed_at = $5,
			version = version + 1
		WHERE id = $6 AND version = $7
	`

	completedJSON, videoJSON, err := marshalProgressDocs(p)
	if err != nil {
		return err
	}

	tag, err := r.conn.Exec(ctx, query,
		p.TotalMaterials,
		p.CompletionPercentage.Int(),
		completedJSON,
		videoJSON,
		p.LastAccessedAt,
		p.ID,
		p.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return shared.ErrProgressVersionConflict
	}

	p.Version++
	return nil
}

// ListAccessedSince returns records touched after the given moment,
// oldest first. Used by the background material-count resync job.
func (r *ProgressRepository) ListAccessedSince(ctx context.Context, since time.Time, limit int) ([]*progress.Progress, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, student_id, course_id, total_materials, completion_percentage,
			   completed, video_progress, started_at, last_accessed_at, version
		FROM learning_progress
		WHERE last_accessed_at >= $1
		ORDER BY last_accessed_at ASC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	var result []*progress.Progress
	for rows.Next() {
		p, err := r.scanProgress(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}

	return result, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

// scanProgress scans a single progress row.
func (r *ProgressRepository) scanProgress(row pgx.Row) (*progress.Progress, error) {
	var (
		p             progress.Progress
		studentID     string
		courseID      string
		pct           int
		completedJSON []byte
		videoJSON     []byte
	)

	err := row.Scan(
		&p.ID,
		&studentID,
		&courseID,
		&p.TotalMaterials,
		&pct,
		&completedJSON,
		&videoJSON,
		&p.StartedAt,
		&p.LastAccessedAt,
		&p.Version,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to scan progress: %w", err)
	}

	p.StudentID = shared.StudentID(studentID)
	p.CourseID = shared.CourseID(courseID)
	p.CompletionPercentage = shared.Percent(pct)

	if err := json.Unmarshal(completedJSON, &p.Completed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal completed entries: %w", err)
	}
	if err := json.Unmarshal(videoJSON, &p.VideoProgress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal video progress: %w", err)
	}

	return &p, nil
}

// marshalProgressDocs serializes the JSONB columns.
func marshalProgressDocs(p *progress.Progress) ([]byte, []byte, error) {
	completed := p.Completed
	if completed == nil {
		completed = []progress.CompletionEntry{}
	}
	video := p.VideoProgress
	if video == nil {
		video = []progress.VideoWatchProgress{}
	}

	completedJSON, err := json.Marshal(completed)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal completed entries: %w", err)
	}
	videoJSON, err := json.Marshal(video)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal video progress: %w", err)
	}

	return completedJSON, videoJSON, nil
}
