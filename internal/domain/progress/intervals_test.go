package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

func TestIntervalSet_Observe_Heartbeat(t *testing.T) {
	// Player reports position once per second of playback
	var set IntervalSet
	for i := 0; i < 10; i++ {
		set = set.Observe(shared.Seconds(i))
	}

	assert.Len(t, set, 1)
	assert.Equal(t, shared.Seconds(0), set[0].Start)
	assert.Equal(t, shared.Seconds(10), set[0].End)
	assert.Equal(t, shared.Seconds(10), set.Coverage(60))
}

func TestIntervalSet_Observe_SeekCreatesGap(t *testing.T) {
	var set IntervalSet
	set = set.Observe(0)
	set = set.Observe(1)
	// Seek forward well past the merge distance
	set = set.Observe(30)
	set = set.Observe(31)

	assert.Len(t, set, 2)
	assert.Equal(t, shared.Seconds(0), set[0].Start)
	assert.Equal(t, shared.Seconds(2), set[0].End)
	assert.Equal(t, shared.Seconds(30), set[1].Start)
	assert.Equal(t, shared.Seconds(32), set[1].End)
	assert.Equal(t, shared.Seconds(4), set.Coverage(60))
}

func TestIntervalSet_Observe_BackwardSeekMerges(t *testing.T) {
	var set IntervalSet
	set = set.Observe(10)
	set = set.Observe(11)
	// Rewind and rewatch: fills the gap back to the first segment
	set = set.Observe(5)
	set = set.Observe(6)
	set = set.Observe(7)
	set = set.Observe(8)

	assert.Len(t, set, 1)
	assert.Equal(t, shared.Seconds(5), set[0].Start)
	assert.Equal(t, shared.Seconds(12), set[0].End)
}

func TestIntervalSet_Observe_RewatchIsIdempotent(t *testing.T) {
	var set IntervalSet
	set = set.Observe(3)
	set = set.Observe(4)
	before := set.Coverage(60)

	// Watching the same span again must not inflate coverage
	set = set.Observe(3)
	set = set.Observe(4)

	assert.Equal(t, before, set.Coverage(60))
	assert.Len(t, set, 1)
}

func TestIntervalSet_Observe_OutOfOrder(t *testing.T) {
	// Observations may arrive in any order; the invariant still holds
	var set IntervalSet
	for _, pos := range []shared.Seconds{7, 2, 5, 3, 6, 4} {
		set = set.Observe(pos)
	}

	assert.Len(t, set, 1)
	assert.Equal(t, shared.Seconds(2), set[0].Start)
	assert.Equal(t, shared.Seconds(8), set[0].End)

	// Pairwise disjoint and sorted after every insert
	for i := 1; i < len(set); i++ {
		assert.Greater(t, set[i].Start, set[i-1].End+SegmentWidth)
	}
}

func TestIntervalSet_Observe_IgnoresInvalid(t *testing.T) {
	var set IntervalSet
	set = set.Observe(-5)

	assert.Empty(t, set)
}

func TestIntervalSet_Coverage_ClampedToDuration(t *testing.T) {
	var set IntervalSet
	for i := 0; i < 12; i++ {
		set = set.Observe(shared.Seconds(i))
	}

	// Observation width can push the raw sum past the duration
	assert.Equal(t, shared.Seconds(10), set.Coverage(10))
	assert.InDelta(t, 100.0, set.WatchPercent(10), 0.001)
}

func TestIntervalSet_WatchPercent_ZeroDuration(t *testing.T) {
	var set IntervalSet
	set = set.Observe(0)

	assert.Equal(t, 0.0, set.WatchPercent(0))
}

func TestIntervalSet_MaxWatched(t *testing.T) {
	var set IntervalSet
	set = set.Observe(2)
	set = set.Observe(40)

	assert.Equal(t, shared.Seconds(41), set.MaxWatched())
	assert.True(t, set.IsWatched(40.5))
	assert.False(t, set.IsWatched(20))
}

func TestIntervalSet_Clone_Independent(t *testing.T) {
	var set IntervalSet
	set = set.Observe(1)

	clone := set.Clone()
	clone[0].End = 99

	assert.Equal(t, shared.Seconds(2), set[0].End)
}
