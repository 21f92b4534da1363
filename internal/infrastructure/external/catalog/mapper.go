// Package catalog implements the Kurso course-catalog API client.
package catalog

import (
	"errors"
	"fmt"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/course"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ErrNilDTO is returned when a nil DTO is passed to a mapper.
var ErrNilDTO = errors.New("catalog: nil DTO")

// ══════════════════════════════════════════════════════════════════════════════
// MAPPER - DTO to Domain Entity transformations
// ══════════════════════════════════════════════════════════════════════════════

// Mapper handles transformation between catalog API DTOs and domain entities.
// This follows the Anti-Corruption Layer pattern from DDD, protecting our domain
// from external API changes.
type Mapper struct{}

// NewMapper creates a new Mapper instance.
func NewMapper() *Mapper {
	return &Mapper{}
}

// SnapshotFromDTO converts a CourseDTO to a domain course.Snapshot.
// Materials arriving with an unknown type or malformed ID make the whole
// response invalid: a partial snapshot would corrupt gating decisions.
func (m *Mapper) SnapshotFromDTO(dto *CourseDTO) (course.Snapshot, error) {
	if dto == nil {
		return course.Snapshot{}, ErrNilDTO
	}

	courseID, err := shared.NewCourseID(dto.ID)
	if err != nil {
		return course.Snapshot{}, fmt.Errorf("%w: course id %q", shared.ErrCatalogInvalidResponse, dto.ID)
	}

	materials := make([]course.Material, 0, len(dto.Materials))
	for _, md := range dto.Materials {
		material, err := m.materialFromDTO(md)
		if err != nil {
			return course.Snapshot{}, err
		}
		materials = append(materials, material)
	}

	return course.NewSnapshot(courseID, dto.Title, materials), nil
}

func (m *Mapper) materialFromDTO(dto MaterialDTO) (course.Material, error) {
	materialID, err := shared.NewMaterialID(dto.ID)
	if err != nil {
		return course.Material{}, fmt.Errorf("%w: material id %q", shared.ErrCatalogInvalidResponse, dto.ID)
	}

	materialType := course.MaterialType(dto.Type)
	if !materialType.IsValid() {
		return course.Material{}, fmt.Errorf("%w: material type %q", shared.ErrCatalogInvalidResponse, dto.Type)
	}

	duration, err := shared.NewSeconds(dto.DurationSeconds)
	if err != nil {
		return course.Material{}, fmt.Errorf("%w: material %s duration %v", shared.ErrCatalogInvalidResponse, dto.ID, dto.DurationSeconds)
	}

	if dto.Order < 0 {
		return course.Material{}, fmt.Errorf("%w: material %s order %d", shared.ErrCatalogInvalidResponse, dto.ID, dto.Order)
	}

	return course.Material{
		ID:       materialID,
		Title:    dto.Title,
		Type:     materialType,
		Order:    dto.Order,
		Duration: duration,
	}, nil
}
