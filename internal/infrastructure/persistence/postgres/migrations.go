// Package postgres implements PostgreSQL persistence layer for Kurso Learning Hub.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE LEARNING PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create learning_progress table
-- Version: 001

-- One row per (student, course) pair. Completion entries and video watch
-- intervals are document-shaped and change together with the row, so they
-- are stored as JSONB instead of child tables. The version column backs
-- optimistic concurrency: updates are conditional on it.
CREATE TABLE IF NOT EXISTS learning_progress (
    id UUID PRIMARY KEY,
    student_id UUID NOT NULL,
    course_id UUID NOT NULL,
    total_materials INTEGER NOT NULL DEFAULT 0,
    completion_percentage INTEGER NOT NULL DEFAULT 0,
    completed JSONB NOT NULL DEFAULT '[]'::jsonb,
    video_progress JSONB NOT NULL DEFAULT '[]'::jsonb,
    started_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    last_accessed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    version BIGINT NOT NULL DEFAULT 0,

    CONSTRAINT uq_progress_student_course UNIQUE (student_id, course_id),
    CONSTRAINT valid_total_materials CHECK (total_materials >= 0),
    CONSTRAINT valid_percentage CHECK (completion_percentage >= 0 AND completion_percentage <= 100)
);

CREATE INDEX IF NOT EXISTS idx_progress_student ON learning_progress(student_id);
CREATE INDEX IF NOT EXISTS idx_progress_course ON learning_progress(course_id);

-- Background resync scans by recency of access
CREATE INDEX IF NOT EXISTS idx_progress_last_accessed ON learning_progress(last_accessed_at);
`

const migration001Down = `
DROP TABLE IF EXISTS learning_progress;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE CERTIFICATES
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create certificates table
-- Version: 002

-- The composite unique constraint is the at-most-once guarantee for
-- certificate issuance: concurrent issuers race on the INSERT and the
-- loser reads the winner's row.
CREATE TABLE IF NOT EXISTS certificates (
    id UUID PRIMARY KEY,
    student_id UUID NOT NULL,
    course_id UUID NOT NULL,
    serial VARCHAR(30) NOT NULL UNIQUE,
    issued_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_certificates_student_course UNIQUE (student_id, course_id)
);

CREATE INDEX IF NOT EXISTS idx_certificates_student ON certificates(student_id);
CREATE INDEX IF NOT EXISTS idx_certificates_serial ON certificates(serial);
`

const migration002Down = `
DROP TABLE IF EXISTS certificates;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE ENROLLMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create enrollments table
-- Version: 003

CREATE TABLE IF NOT EXISTS enrollments (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    student_id UUID NOT NULL,
    course_id UUID NOT NULL,
    enrolled_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    status VARCHAR(20) NOT NULL DEFAULT 'active',

    CONSTRAINT uq_enrollments_student_course UNIQUE (student_id, course_id),
    CONSTRAINT valid_enrollment_status CHECK (status IN ('active', 'suspended', 'withdrawn'))
);

CREATE INDEX IF NOT EXISTS idx_enrollments_student ON enrollments(student_id);
CREATE INDEX IF NOT EXISTS idx_enrollments_course ON enrollments(course_id);
`

const migration003Down = `
DROP TABLE IF EXISTS enrollments;
`
