package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/course"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

func gateMaterials(ids ...string) []course.Material {
	out := make([]course.Material, len(ids))
	for i, id := range ids {
		out[i] = course.Material{
			ID:    shared.MaterialID(id),
			Order: i,
			Type:  course.MaterialTypeDocument,
		}
	}
	return out
}

func completedSet(ids ...string) map[shared.MaterialID]struct{} {
	set := make(map[shared.MaterialID]struct{}, len(ids))
	for _, id := range ids {
		set[shared.MaterialID(id)] = struct{}{}
	}
	return set
}

func TestEvaluateGate_FirstMaterialAlwaysUnlocked(t *testing.T) {
	result := EvaluateGate(gateMaterials("a", "b", "c"), completedSet())

	assert.True(t, result.IsUnlocked(0))
	assert.False(t, result.IsUnlocked(1))
	assert.False(t, result.IsUnlocked(2))
	assert.Equal(t, 0, result.NextUnlockedIndex)
}

func TestEvaluateGate_SingleFrontier(t *testing.T) {
	result := EvaluateGate(gateMaterials("a", "b", "c", "d"), completedSet("a", "b"))

	// Everything up to and including the frontier is unlocked
	assert.True(t, result.IsUnlocked(0))
	assert.True(t, result.IsUnlocked(1))
	assert.True(t, result.IsUnlocked(2))
	assert.False(t, result.IsUnlocked(3))
	assert.Equal(t, 2, result.NextUnlockedIndex)
	assert.False(t, result.AllCompleted())
}

func TestEvaluateGate_AllCompleted(t *testing.T) {
	result := EvaluateGate(gateMaterials("a", "b"), completedSet("a", "b"))

	assert.True(t, result.AllCompleted())
	assert.Equal(t, 2, result.NextUnlockedIndex)
	assert.True(t, result.IsCompleted(0))
	assert.True(t, result.IsCompleted(1))
}

func TestEvaluateGate_GapDoesNotUnlockBeyond(t *testing.T) {
	// A completion recorded out of order (e.g. before the course was
	// re-sequenced) must not unlock material past the first gap
	result := EvaluateGate(gateMaterials("a", "b", "c", "d"), completedSet("a", "c"))

	assert.True(t, result.IsUnlocked(0))
	assert.True(t, result.IsUnlocked(1))
	assert.False(t, result.IsUnlocked(2)) // b not completed
	assert.True(t, result.IsUnlocked(3))  // c completed unlocks d
	assert.Equal(t, 1, result.NextUnlockedIndex)
}

func TestEvaluateGate_EmptyCourse(t *testing.T) {
	result := EvaluateGate(nil, completedSet())

	assert.Empty(t, result.Access)
	assert.Equal(t, 0, result.NextUnlockedIndex)
	assert.True(t, result.AllCompleted())
}

func TestGateResult_IsUnlocked_OutOfRange(t *testing.T) {
	result := EvaluateGate(gateMaterials("a"), completedSet())

	assert.False(t, result.IsUnlocked(-1))
	assert.False(t, result.IsUnlocked(1))
	assert.False(t, result.IsCompleted(5))
}
