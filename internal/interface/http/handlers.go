// Package http implements the REST API for Kurso Learning Hub.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/kurso-hub/kurso-learning-hub/internal/application/command"
	"github.com/kurso-hub/kurso-learning-hub/internal/application/query"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
	"github.com/kurso-hub/kurso-learning-hub/pkg/logger"
)

// validate checks request body DTOs against their struct tags.
var validate = validator.New()

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Kurso Learning Hub API",
		"version":     "v1",
		"description": "REST API for Kurso Learning Hub - Progress Tracking and Content Gating",
		"endpoints": map[string]string{
			"health":       "/health",
			"progress":     "/api/v1/students/{student_id}/courses/{course_id}/progress",
			"intervals":    "/api/v1/students/{student_id}/courses/{course_id}/materials/{material_id}/intervals",
			"complete":     "/api/v1/students/{student_id}/courses/{course_id}/materials/{material_id}/complete",
			"certificate":  "/api/v1/students/{student_id}/courses/{course_id}/certificate",
			"verification": "/api/v1/certificates/{serial}",
		},
		"documentation": "https://github.com/kurso-hub/kurso-learning-hub",
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			w.WriteHeader(http.StatusServiceUnavailable)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleMetrics handles the metrics endpoint.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	// TODO: Implement Prometheus metrics exposition
	// For now, return basic server metrics as JSON
	metrics := map[string]interface{}{
		"uptime_seconds": s.Uptime().Seconds(),
		"running":        s.IsRunning(),
	}

	writeJSON(w, http.StatusOK, metrics)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetProgress handles GET /api/v1/students/{student_id}/courses/{course_id}/progress
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("student_id")
	courseID := r.PathValue("course_id")
	if studentID == "" || courseID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Student ID and course ID are required")
		return
	}

	if s.deps.GetProgressHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Progress handler not configured")
		return
	}

	q := query.GetProgressQuery{
		StudentID:            studentID,
		CourseID:             courseID,
		IncludeWatchSegments: getQueryParamBool(r, "include_segments"),
		BypassCache:          getQueryParamBool(r, "fresh"),
	}

	result, err := s.deps.GetProgressHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get progress")
		return
	}

	meta := &ResponseMeta{FromCache: result.FromCache}
	writeJSONWithMeta(w, r, http.StatusOK, result, meta)
}

// RecordIntervalRequest is the body of a playback position heartbeat.
type RecordIntervalRequest struct {
	// CurrentTime is the playback position in seconds.
	CurrentTime float64 `json:"current_time" validate:"gte=0"`

	// Duration is the total video duration in seconds.
	Duration float64 `json:"duration" validate:"required,gt=0"`
}

// handleRecordInterval handles POST /api/v1/students/{student_id}/courses/{course_id}/materials/{material_id}/intervals
func (s *Server) handleRecordInterval(w http.ResponseWriter, r *http.Request) {
	if s.deps.RecordIntervalHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Interval handler not configured")
		return
	}

	var req RecordIntervalRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.RecordIntervalCommand{
		StudentID:     r.PathValue("student_id"),
		CourseID:      r.PathValue("course_id"),
		MaterialID:    r.PathValue("material_id"),
		CurrentTime:   req.CurrentTime,
		Duration:      req.Duration,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.RecordIntervalHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to record interval")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// MarkCompleteRequest is the body of a completion request. All fields
// are client-reported and only advisory under strict watch validation.
type MarkCompleteRequest struct {
	// WatchTime is the watched seconds reported by the player.
	WatchTime float64 `json:"watch_time" validate:"gte=0"`

	// TotalDuration is the video duration reported by the player.
	TotalDuration float64 `json:"total_duration" validate:"gte=0"`

	// FullyWatched is the player's "watched to the end" flag.
	FullyWatched bool `json:"fully_watched"`
}

// handleMarkComplete handles POST /api/v1/students/{student_id}/courses/{course_id}/materials/{material_id}/complete
func (s *Server) handleMarkComplete(w http.ResponseWriter, r *http.Request) {
	if s.deps.MarkCompleteHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Completion handler not configured")
		return
	}

	// Document and image materials complete with an empty body.
	var req MarkCompleteRequest
	if r.ContentLength != 0 && !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.MarkCompleteCommand{
		StudentID:     r.PathValue("student_id"),
		CourseID:      r.PathValue("course_id"),
		MaterialID:    r.PathValue("material_id"),
		WatchTime:     req.WatchTime,
		TotalDuration: req.TotalDuration,
		FullyWatched:  req.FullyWatched,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.MarkCompleteHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to mark complete")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleMarkIncomplete handles DELETE /api/v1/students/{student_id}/courses/{course_id}/materials/{material_id}/complete
func (s *Server) handleMarkIncomplete(w http.ResponseWriter, r *http.Request) {
	if s.deps.MarkIncompleteHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Completion handler not configured")
		return
	}

	cmd := command.MarkIncompleteCommand{
		StudentID:     r.PathValue("student_id"),
		CourseID:      r.PathValue("course_id"),
		MaterialID:    r.PathValue("material_id"),
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.MarkIncompleteHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to mark incomplete")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ResetProgressRequest is the body of an administrative progress reset.
type ResetProgressRequest struct {
	// ClearWatchHistory also drops the watched-interval sets.
	ClearWatchHistory bool `json:"clear_watch_history"`
}

// handleResetProgress handles POST /api/v1/students/{student_id}/courses/{course_id}/progress/reset
func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	if s.deps.ResetProgressHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Reset handler not configured")
		return
	}

	var req ResetProgressRequest
	if r.ContentLength != 0 && !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.ResetProgressCommand{
		StudentID:         r.PathValue("student_id"),
		CourseID:          r.PathValue("course_id"),
		ClearWatchHistory: req.ClearWatchHistory,
		CorrelationID:     getRequestID(r.Context()),
	}

	result, err := s.deps.ResetProgressHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to reset progress")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// CERTIFICATE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetCertificate handles GET /api/v1/students/{student_id}/courses/{course_id}/certificate
func (s *Server) handleGetCertificate(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetCertificateHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Certificate handler not configured")
		return
	}

	q := query.GetCertificateQuery{
		StudentID: r.PathValue("student_id"),
		CourseID:  r.PathValue("course_id"),
	}

	result, err := s.deps.GetCertificateHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get certificate")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleVerifyCertificate handles GET /api/v1/certificates/{serial}
func (s *Server) handleVerifyCertificate(w http.ResponseWriter, r *http.Request) {
	serial := r.PathValue("serial")
	if serial == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Certificate serial is required")
		return
	}

	if s.deps.GetCertificateHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Certificate handler not configured")
		return
	}

	q := query.GetCertificateQuery{Serial: serial}

	result, err := s.deps.GetCertificateHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to verify certificate")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DECODING & ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody reads and validates a JSON request body. It writes the
// error response itself and returns false on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return false
	}
	defer r.Body.Close()

	if err := json.Unmarshal(body, dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return false
	}

	if err := validate.Struct(dst); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "validation_failed", "Request body validation failed", err.Error())
		return false
	}

	return true
}

// writeDomainError maps domain errors to HTTP responses. Gating errors
// carry the context the frontend needs to redirect the student.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	if locked, ok := progress.AsLockedMaterial(err); ok {
		writeJSONErrorContext(w, http.StatusConflict, "material_locked", locked.Error(), map[string]interface{}{
			"material_id":         locked.MaterialID.String(),
			"index":               locked.Index,
			"next_unlocked_index": locked.NextUnlockedIndex,
		})
		return
	}

	if insufficient, ok := progress.AsInsufficientWatchTime(err); ok {
		writeJSONErrorContext(w, http.StatusUnprocessableEntity, "insufficient_watch_time", insufficient.Error(), map[string]interface{}{
			"material_id":      insufficient.MaterialID.String(),
			"watched_percent":  insufficient.WatchedPercent,
			"required_percent": insufficient.RequiredPercent,
		})
		return
	}

	switch {
	case errors.Is(err, shared.ErrNotEnrolled):
		writeJSONError(w, http.StatusForbidden, "not_enrolled", "Student is not enrolled in this course")

	case errors.Is(err, shared.ErrCourseNotFound):
		writeJSONError(w, http.StatusNotFound, "course_not_found", "Course not found in catalog")

	case errors.Is(err, shared.ErrMaterialNotFound):
		writeJSONError(w, http.StatusNotFound, "material_not_found", "Material not found in course")

	case errors.Is(err, shared.ErrProgressNotFound):
		writeJSONError(w, http.StatusNotFound, "progress_not_found", "No progress recorded for this course")

	case errors.Is(err, shared.ErrCertificateNotFound):
		writeJSONError(w, http.StatusNotFound, "certificate_not_found", "Certificate not found")

	case errors.Is(err, shared.ErrProgressVersionConflict):
		writeJSONError(w, http.StatusConflict, "conflict", "Progress was modified concurrently, please retry")

	case errors.Is(err, shared.ErrCatalogTimeout):
		writeJSONError(w, http.StatusGatewayTimeout, "catalog_timeout", "Course catalog did not respond in time")

	case errors.Is(err, shared.ErrCatalogUnavailable), errors.Is(err, shared.ErrCatalogRateLimited):
		writeJSONError(w, http.StatusServiceUnavailable, "catalog_unavailable", "Course catalog is temporarily unavailable")

	case errors.Is(err, shared.ErrInvalidID),
		errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrNegativeValue),
		errors.Is(err, shared.ErrValueOutOfRange):
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "validation_failed", "Invalid request parameters", err.Error())

	default:
		s.logger.Error(logMsg,
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
