package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/course"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

func TestCourseDTO_Parsing(t *testing.T) {
	jsonData := `{
    "success": true,
    "data": {
        "id": "7ed99bd0-87b2-4dbb-a97b-596c3f29c49b",
        "title": "Go for Beginners",
        "material_count": 3,
        "updated_at": "2026-02-10T09:30:00Z",
        "materials": [
            {
                "id": "9ca4322d-ebd5-4ffa-a340-56fe811bbab1",
                "title": "Introduction",
                "type": "video",
                "order": 0,
                "duration_seconds": 312.5
            },
            {
                "id": "f0b1a54e-2c14-4a9d-8f3e-6d7c1b2a9e05",
                "title": "Environment setup",
                "type": "document",
                "order": 1
            },
            {
                "id": "32e8a7d1-55c0-4b6f-9a21-0e4dc8b7f3a6",
                "title": "Toolchain diagram",
                "type": "image",
                "order": 2
            }
        ]
    }
}`

	var resp APIResponse[CourseDTO]
	err := json.Unmarshal([]byte(jsonData), &resp)
	assert.NoError(t, err)
	assert.True(t, resp.Success)

	dto := resp.Data
	assert.Equal(t, "7ed99bd0-87b2-4dbb-a97b-596c3f29c49b", dto.ID)
	assert.Equal(t, "Go for Beginners", dto.Title)
	assert.Equal(t, 3, dto.MaterialCount)
	assert.Len(t, dto.Materials, 3)

	video := dto.Materials[0]
	assert.Equal(t, "video", video.Type)
	assert.Equal(t, 0, video.Order)
	assert.Equal(t, 312.5, video.DurationSeconds)

	doc := dto.Materials[1]
	assert.Equal(t, "document", doc.Type)
	assert.Equal(t, 0.0, doc.DurationSeconds)
}

func TestSnapshotFromDTO(t *testing.T) {
	dto := &CourseDTO{
		ID:    "7ed99bd0-87b2-4dbb-a97b-596c3f29c49b",
		Title: "Go for Beginners",
		Materials: []MaterialDTO{
			// author order, deliberately shuffled in the payload
			{ID: "f0b1a54e-2c14-4a9d-8f3e-6d7c1b2a9e05", Title: "Environment setup", Type: "document", Order: 1},
			{ID: "9ca4322d-ebd5-4ffa-a340-56fe811bbab1", Title: "Introduction", Type: "video", Order: 0, DurationSeconds: 312.5},
		},
	}

	mapper := NewMapper()
	snapshot, err := mapper.SnapshotFromDTO(dto)

	assert.NoError(t, err)
	assert.Equal(t, "7ed99bd0-87b2-4dbb-a97b-596c3f29c49b", snapshot.ID.String())
	assert.Equal(t, "Go for Beginners", snapshot.Title)
	assert.Equal(t, 2, snapshot.MaterialCount())

	// NewSnapshot restores the author order
	assert.Equal(t, "Introduction", snapshot.Materials[0].Title)
	assert.Equal(t, course.MaterialTypeVideo, snapshot.Materials[0].Type)
	assert.Equal(t, shared.Seconds(312.5), snapshot.Materials[0].Duration)
	assert.Equal(t, "Environment setup", snapshot.Materials[1].Title)
}

func TestSnapshotFromDTO_RejectsUnknownType(t *testing.T) {
	dto := &CourseDTO{
		ID: "7ed99bd0-87b2-4dbb-a97b-596c3f29c49b",
		Materials: []MaterialDTO{
			{ID: "9ca4322d-ebd5-4ffa-a340-56fe811bbab1", Title: "Quiz", Type: "quiz", Order: 0},
		},
	}

	_, err := NewMapper().SnapshotFromDTO(dto)
	assert.ErrorIs(t, err, shared.ErrCatalogInvalidResponse)
}

func TestSnapshotFromDTO_RejectsMalformedIDs(t *testing.T) {
	mapper := NewMapper()

	_, err := mapper.SnapshotFromDTO(&CourseDTO{ID: "not-a-uuid"})
	assert.ErrorIs(t, err, shared.ErrCatalogInvalidResponse)

	_, err = mapper.SnapshotFromDTO(&CourseDTO{
		ID: "7ed99bd0-87b2-4dbb-a97b-596c3f29c49b",
		Materials: []MaterialDTO{
			{ID: "oops", Title: "Introduction", Type: "video", Order: 0},
		},
	})
	assert.ErrorIs(t, err, shared.ErrCatalogInvalidResponse)
}

func TestSnapshotFromDTO_Nil(t *testing.T) {
	_, err := NewMapper().SnapshotFromDTO(nil)
	assert.ErrorIs(t, err, ErrNilDTO)
}
