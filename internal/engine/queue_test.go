package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(phase Phase, fired Fired, seq int64) *queueEntry {
	return &queueEntry{key: QueueKey{Phase: phase, Fired: fired, Seq: seq}}
}

func TestStepQueue_PollMinOrder(t *testing.T) {
	q := newStepQueue()

	q.Push(entry(PhaseCounting, 1, 1))
	q.Push(entry(PhaseLinking, 5, 2))
	q.Push(entry(PhaseLinking, 2, 3))
	q.Push(entry(PhaseLinking, 2, 4))
	q.Push(entry(PhaseInit, NotFired, 5))

	var got []QueueKey
	for {
		qe, ok := q.PollMin()
		if !ok {
			break
		}
		assert.Equal(t, -1, qe.index, "polled entry should be detached")
		got = append(got, qe.key)
	}

	assert.Equal(t, []QueueKey{
		{PhaseInit, NotFired, 5},
		{PhaseLinking, 2, 3},
		{PhaseLinking, 2, 4},
		{PhaseLinking, 5, 2},
		{PhaseCounting, 1, 1},
	}, got)
}

func TestStepQueue_PollMin_Empty(t *testing.T) {
	q := newStepQueue()

	_, ok := q.PollMin()
	assert.False(t, ok, "poll from empty queue should return false")

	_, ok = q.PeekMin()
	assert.False(t, ok)
}

func TestStepQueue_Remove(t *testing.T) {
	q := newStepQueue()
	a := entry(PhaseLinking, 1, 1)
	b := entry(PhaseLinking, 2, 2)
	c := entry(PhaseLinking, 3, 3)
	q.Push(a)
	q.Push(b)
	q.Push(c)

	require.True(t, q.Remove(b))
	assert.False(t, q.Remove(b), "second removal must report absence")
	assert.Equal(t, 2, q.Len())

	first, _ := q.PollMin()
	second, _ := q.PollMin()
	assert.Same(t, a, first)
	assert.Same(t, c, second)
}

func TestStepQueue_Snapshot(t *testing.T) {
	q := newStepQueue()
	q.Push(entry(PhaseCounting, 1, 1))
	q.Push(entry(PhaseLinking, 9, 2))

	snap := q.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, PhaseLinking, snap[0].key.Phase)
	assert.Equal(t, 2, q.Len(), "snapshot must not consume entries")

	top, ok := q.PeekMin()
	require.True(t, ok)
	assert.Same(t, snap[0], top)
}

func TestQueueKey_Compare(t *testing.T) {
	tests := []struct {
		name string
		a, b QueueKey
		want int
	}{
		{"phase dominates fired", QueueKey{PhaseLinking, 9, 9}, QueueKey{PhaseCounting, 1, 1}, -1},
		{"fired breaks phase tie", QueueKey{PhaseLinking, 2, 9}, QueueKey{PhaseLinking, 5, 1}, -1},
		{"seq breaks fired tie", QueueKey{PhaseLinking, 2, 1}, QueueKey{PhaseLinking, 2, 2}, -1},
		{"not fired sorts last", QueueKey{PhaseLinking, NotFired, 1}, QueueKey{PhaseLinking, 100, 2}, 1},
		{"equal", QueueKey{PhaseInit, 1, 1}, QueueKey{PhaseInit, 1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
			assert.Equal(t, -tt.want, tt.b.Compare(tt.a))
		})
	}
}

func TestPhase_StringAndParse(t *testing.T) {
	for p := PhaseInit; p <= PhaseTraining; p++ {
		parsed, err := ParsePhase(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}

	p, err := ParsePhase("FINAL_LINKING")
	require.NoError(t, err)
	assert.Equal(t, PhaseFinalLinking, p)

	_, err = ParsePhase("gardening")
	assert.Error(t, err)

	assert.Equal(t, "phase(42)", Phase(42).String())
	assert.Equal(t, "not-fired", NotFired.String())
}
