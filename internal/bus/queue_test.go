package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePushPopFIFOOrder(t *testing.T) {
	q := NewQueue[int](4, false)
	require.True(t, q.Push(1))
	require.True(t, q.Push(2))
	require.True(t, q.Push(3))

	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestQueuePopEmptyReturnsFalse(t *testing.T) {
	q := NewQueue[int](4, false)
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestQueueBlockingPolicyRejectsWhenFull(t *testing.T) {
	q := NewQueue[int](2, false)
	require.True(t, q.Push(1))
	require.True(t, q.Push(2))
	assert.False(t, q.Push(3))
	assert.Equal(t, 2, q.Len())
}

func TestQueueDropOldestEvictsOldestItem(t *testing.T) {
	q := NewQueue[int](2, true)
	require.True(t, q.Push(1))
	require.True(t, q.Push(2))
	require.True(t, q.Push(3))

	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, v, "oldest item (1) should have been dropped to make room")
	assert.Equal(t, uint64(1), q.Dropped())
}

func TestQueueZeroCapacityClampsToOne(t *testing.T) {
	q := NewQueue[int](0, true)
	require.True(t, q.Push(1))
	require.True(t, q.Push(2))
	assert.Equal(t, 1, q.Len())
}
