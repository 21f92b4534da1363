package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles and gradual rollouts.
// Supports per-student rollout percentages, course targeting, and
// time-based activation.
//
// Gating policy changes are the main consumer: tightening watch
// validation for everyone at once would lock students out mid-course,
// so the strict path rolls out per student.
type FeatureFlags struct {
	mu sync.RWMutex

	// Core features
	features map[string]*Feature

	// Override rules (for testing/debugging)
	studentOverrides map[string]map[string]bool // studentID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Students are assigned based on hash of their ID
	RolloutPercent int

	// Course targeting. Empty means all courses.
	TargetCourses []string

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	StudentID string
	CourseID  string
	IsAdmin   bool
}

// Predefined feature flag names.
const (
	// === Gating Features ===
	FeatureGatingStrictWatchValidation = "gating.strict_watch_validation" // Derive watch share from server-side intervals
	FeatureGatingMarkIncomplete        = "gating.mark_incomplete"         // Allow reopening completed materials

	// === Certificate Features ===
	FeatureCertificatesAutoIssue    = "certificates.auto_issue"    // Issue on course completion
	FeatureCertificatesVerification = "certificates.verification"  // Public serial verification endpoint

	// === Notification Features ===
	FeatureNotifyCourseCompleted   = "notify.course_completed"   // Congratulate on 100%
	FeatureNotifyCertificateIssued = "notify.certificate_issued" // Certificate delivery notice

	// === Background Jobs ===
	FeatureResyncMaterialCounts = "resync.material_counts" // Nightly denominator reconciliation
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:         make(map[string]*Feature),
		studentOverrides: make(map[string]map[string]bool),
	}

	// Initialize all features with defaults
	ff.initializeDefaults()

	// Load overrides from environment
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	// Strict validation is off by default: the client-reported payload
	// is trusted until the interval tracker has backfilled enough watch
	// history to make server-side checks fair.
	ff.features[FeatureGatingStrictWatchValidation] = &Feature{
		Name:           FeatureGatingStrictWatchValidation,
		Description:    "Validate video completion against server-side watched intervals",
		Enabled:        false,
		RolloutPercent: 0,
	}

	ff.features[FeatureGatingMarkIncomplete] = &Feature{
		Name:           FeatureGatingMarkIncomplete,
		Description:    "Allow students to reopen completed materials",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureCertificatesAutoIssue] = &Feature{
		Name:           FeatureCertificatesAutoIssue,
		Description:    "Issue certificates on course completion",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureCertificatesVerification] = &Feature{
		Name:           FeatureCertificatesVerification,
		Description:    "Public certificate verification by serial",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyCourseCompleted] = &Feature{
		Name:           FeatureNotifyCourseCompleted,
		Description:    "Notify students on course completion",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyCertificateIssued] = &Feature{
		Name:           FeatureNotifyCertificateIssued,
		Description:    "Notify students when a certificate is issued",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureResyncMaterialCounts] = &Feature{
		Name:           FeatureResyncMaterialCounts,
		Description:    "Nightly reconciliation of material counts with the catalog",
		Enabled:        true,
		RolloutPercent: 100,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_GATING_STRICT_WATCH_VALIDATION=true
// Example: FEATURE_GATING_STRICT_WATCH_VALIDATION=25 (25% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "gating.strict_watch_validation" -> "FEATURE_GATING_STRICT_WATCH_VALIDATION"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check student overrides first
	if ctx != nil && ctx.StudentID != "" {
		if overrides, ok := ff.studentOverrides[ctx.StudentID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Admin users get all features
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	// Check if feature is enabled at all
	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check course targeting
	if len(feature.TargetCourses) > 0 && ctx != nil && ctx.CourseID != "" {
		courseMatch := false
		for _, c := range feature.TargetCourses {
			if c == ctx.CourseID {
				courseMatch = true
				break
			}
		}
		if !courseMatch {
			return false
		}
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.StudentID != "" {
		return ff.isInRollout(ctx.StudentID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a student is in the rollout percentage.
// Uses consistent hashing so students stay in their bucket.
func (ff *FeatureFlags) isInRollout(studentID string, featureName string, percent int) bool {
	// Create a consistent hash for this student+feature combination
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(studentID))
	hash := h.Sum32()

	// Map to 0-99 range
	bucket := int(hash % 100)

	return bucket < percent
}

// SetStudentOverride sets a feature override for a specific student.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetStudentOverride(studentID string, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.studentOverrides[studentID]; !ok {
		ff.studentOverrides[studentID] = make(map[string]bool)
	}
	ff.studentOverrides[studentID][featureName] = enabled
}

// ClearStudentOverrides removes all overrides for a student.
func (ff *FeatureFlags) ClearStudentOverrides(studentID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.studentOverrides, studentID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		// Return a copy
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Convenience methods for common checks ---

// StrictWatchValidationEnabled checks the strict gating path for a student.
func (ff *FeatureFlags) StrictWatchValidationEnabled(ctx *FeatureContext) bool {
	return ff.IsEnabled(FeatureGatingStrictWatchValidation, ctx)
}

// NotificationsEnabled checks if any notifications are enabled.
func (ff *FeatureFlags) NotificationsEnabled(ctx *FeatureContext) bool {
	return ff.IsEnabled(FeatureNotifyCourseCompleted, ctx) ||
		ff.IsEnabled(FeatureNotifyCertificateIssued, ctx)
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
