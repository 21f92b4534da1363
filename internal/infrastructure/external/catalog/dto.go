// Package catalog implements the Kurso course-catalog API client.
// This package handles all communication with the catalog service,
// including fetching course snapshots and material counts.
package catalog

import (
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// API RESPONSE WRAPPERS
// ══════════════════════════════════════════════════════════════════════════════

// APIResponse represents a generic API response wrapper.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// Meta contains pagination and additional metadata.
type Meta struct {
	Total      int    `json:"total,omitempty"`
	Page       int    `json:"page,omitempty"`
	PerPage    int    `json:"per_page,omitempty"`
	TotalPages int    `json:"total_pages,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE DTOs
// ══════════════════════════════════════════════════════════════════════════════

// CourseDTO represents a course as returned by the catalog API.
// This is the external representation that needs to be mapped to our domain model.
type CourseDTO struct {
	// ID is the unique course identifier in the catalog
	ID string `json:"id"`

	// Title is the course title
	Title string `json:"title"`

	// Materials is the ordered list of course materials
	Materials []MaterialDTO `json:"materials"`

	// MaterialCount is the total number of materials (also present
	// without the materials array on the lightweight endpoint)
	MaterialCount int `json:"material_count"`

	// UpdatedAt is when the course was last modified by its author
	UpdatedAt time.Time `json:"updated_at"`
}

// MaterialDTO represents a single course material.
type MaterialDTO struct {
	// ID is the unique material identifier
	ID string `json:"id"`

	// Title is the material title
	Title string `json:"title"`

	// Type is the material type: "video", "document" or "image"
	Type string `json:"type"`

	// Order is the 0-based position in the author-defined sequence
	Order int `json:"order"`

	// DurationSeconds is the video duration (0 for non-video materials)
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// CourseCountDTO is the lightweight response of the material-count endpoint.
type CourseCountDTO struct {
	ID            string `json:"id"`
	MaterialCount int    `json:"material_count"`
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR DTOs
// ══════════════════════════════════════════════════════════════════════════════

// APIErrorDTO represents an error response from the catalog API.
type APIErrorDTO struct {
	// Code is the machine-readable error code
	Code string `json:"code"`

	// Message is the human-readable error description
	Message string `json:"message"`

	// StatusCode is the HTTP status the error arrived with (not serialized)
	StatusCode int `json:"-"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	return fmt.Sprintf("catalog api error %s: %s", e.Code, e.Message)
}
