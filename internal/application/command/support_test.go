package command

import (
	"context"
	"sync"
	"time"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/course"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// In-memory collaborators shared by the command handler tests.

const (
	testStudentID = "9ca4322d-ebd5-4ffa-a340-56fe811bbab1"
	testCourseID  = "7ed99bd0-87b2-4dbb-a97b-596c3f29c49b"
	matVideo      = "11111111-1111-1111-1111-111111111111"
	matDoc        = "22222222-2222-2222-2222-222222222222"
	matLast       = "33333333-3333-3333-3333-333333333333"
)

// testSnapshot is a three-material course: video, document, document.
func testSnapshot() course.Snapshot {
	return course.NewSnapshot(shared.CourseID(testCourseID), "Go for Beginners", []course.Material{
		{ID: shared.MaterialID(matVideo), Title: "Intro video", Type: course.MaterialTypeVideo, Order: 0, Duration: 100},
		{ID: shared.MaterialID(matDoc), Title: "Setup guide", Type: course.MaterialTypeDocument, Order: 1},
		{ID: shared.MaterialID(matLast), Title: "Cheat sheet", Type: course.MaterialTypeImage, Order: 2},
	})
}

// memProgressRepo is an in-memory progress.Repository with optimistic
// versioning, matching the contract of the Postgres implementation.
type memProgressRepo struct {
	mu      sync.Mutex
	records map[string]*progress.Progress

	// conflictsLeft makes the next N updates fail with a version
	// conflict to exercise the retry loop.
	conflictsLeft int
}

func newMemProgressRepo() *memProgressRepo {
	return &memProgressRepo{records: make(map[string]*progress.Progress)}
}

func repoKey(studentID shared.StudentID, courseID shared.CourseID) string {
	return studentID.String() + "/" + courseID.String()
}

func (r *memProgressRepo) Get(_ context.Context, studentID shared.StudentID, courseID shared.CourseID) (*progress.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.records[repoKey(studentID, courseID)]
	if !ok {
		return nil, shared.ErrProgressNotFound
	}
	cp := *p
	cp.Completed = append([]progress.CompletionEntry(nil), p.Completed...)
	cp.VideoProgress = append([]progress.VideoWatchProgress(nil), p.VideoProgress...)
	return &cp, nil
}

func (r *memProgressRepo) Create(_ context.Context, p *progress.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := repoKey(p.StudentID, p.CourseID)
	if _, exists := r.records[key]; exists {
		return shared.ErrProgressAlreadyExists
	}
	cp := *p
	r.records[key] = &cp
	return nil
}

func (r *memProgressRepo) Update(_ context.Context, p *progress.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := repoKey(p.StudentID, p.CourseID)
	stored, ok := r.records[key]
	if !ok {
		return shared.ErrProgressNotFound
	}
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return shared.ErrProgressVersionConflict
	}
	if stored.Version != p.Version {
		return shared.ErrProgressVersionConflict
	}
	p.Version++
	cp := *p
	r.records[key] = &cp
	return nil
}

func (r *memProgressRepo) ListAccessedSince(_ context.Context, since time.Time, limit int) ([]*progress.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*progress.Progress, 0)
	for _, p := range r.records {
		if p.LastAccessedAt.After(since) {
			cp := *p
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// seed stores a record directly, bypassing the versioned write path.
func (r *memProgressRepo) seed(p *progress.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[repoKey(p.StudentID, p.CourseID)] = p
}

// stubCatalog serves a fixed snapshot.
type stubCatalog struct {
	snapshot course.Snapshot
	err      error
}

func (c *stubCatalog) GetSnapshot(_ context.Context, courseID shared.CourseID) (course.Snapshot, error) {
	if c.err != nil {
		return course.Snapshot{}, c.err
	}
	if courseID != c.snapshot.ID {
		return course.Snapshot{}, shared.ErrCourseNotFound
	}
	return c.snapshot, nil
}

func (c *stubCatalog) GetMaterialCount(ctx context.Context, courseID shared.CourseID) (int, error) {
	snap, err := c.GetSnapshot(ctx, courseID)
	if err != nil {
		return 0, err
	}
	return snap.MaterialCount(), nil
}

// stubEnrollment reports a fixed enrollment answer.
type stubEnrollment struct {
	enrolled bool
	err      error
}

func (e *stubEnrollment) IsEnrolled(context.Context, shared.StudentID, shared.CourseID) (bool, error) {
	return e.enrolled, e.err
}

// capturePublisher records published events.
type capturePublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturePublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) typesSeen() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

func (p *capturePublisher) countOf(t shared.EventType) int {
	n := 0
	for _, seen := range p.typesSeen() {
		if seen == t {
			n++
		}
	}
	return n
}
