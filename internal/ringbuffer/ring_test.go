package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Suke-go/syllabledetection/internal/types"
)

func eventAt(sample uint64) types.Event {
	return types.Event{TimestampSamples: sample}
}

func TestPushAndAtOrdering(t *testing.T) {
	var r Ring
	for i := uint64(0); i < 5; i++ {
		r.Push(eventAt(i))
	}
	require.Equal(t, 5, r.Count())
	for i := 0; i < 5; i++ {
		assert.Equal(t, uint64(i), r.At(i).TimestampSamples)
	}
}

func TestOverwriteOldestOnOverflow(t *testing.T) {
	var r Ring
	for i := uint64(0); i < Capacity+3; i++ {
		r.Push(eventAt(i))
	}
	assert.Equal(t, Capacity, r.Count())
	assert.Equal(t, uint64(3), r.At(0).TimestampSamples, "oldest 3 events should have been displaced")
	assert.Equal(t, uint64(Capacity+2), r.At(Capacity-1).TimestampSamples)
}

func TestAdvanceTracksPendingButKeepsContext(t *testing.T) {
	var r Ring
	for i := uint64(0); i < 4; i++ {
		r.Push(eventAt(i))
	}
	assert.Equal(t, 4, r.Pending())

	idx := r.NextIndex()
	assert.Equal(t, 0, idx)
	r.Advance()
	assert.Equal(t, 3, r.Pending())
	assert.Equal(t, 4, r.Count(), "emitted events remain in the ring as context until displaced")
	assert.Equal(t, uint64(0), r.At(0).TimestampSamples)
}

func TestNextIndexIsMinusOneWhenEmpty(t *testing.T) {
	var r Ring
	assert.Equal(t, -1, r.NextIndex())
}

func TestResetClearsRing(t *testing.T) {
	var r Ring
	r.Push(eventAt(1))
	r.Push(eventAt(2))
	r.Reset()
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, 0, r.Pending())
}

func TestEmittedDisplacedByOverflowReducesEmittedCount(t *testing.T) {
	var r Ring
	for i := uint64(0); i < Capacity; i++ {
		r.Push(eventAt(i))
	}
	r.Advance()
	r.Advance()
	assert.Equal(t, Capacity-2, r.Pending())

	r.Push(eventAt(Capacity)) // overflow: displaces the oldest, an already-emitted slot
	assert.Equal(t, Capacity-1, r.Pending())
}
