package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/hifi/internal/state"
)

func makeTracks(ids ...string) []Track {
	tracks := make([]Track, len(ids))
	for i, id := range ids {
		tracks[i] = Track{ID: id, Title: "Track " + id, Duration: 3 * time.Minute}
	}
	return tracks
}

func newQueue(t *testing.T, ids ...string) (*Queue, *state.Mock) {
	t.Helper()
	store := state.NewMock()
	q := New(store)
	if len(ids) > 0 {
		require.NoError(t, q.Replace(makeTracks(ids...)...))
	}
	return q, store
}

func TestNew_Empty(t *testing.T) {
	q, _ := newQueue(t)

	assert.True(t, q.IsEmpty())
	assert.Equal(t, -1, q.CurrentIndex())
	assert.Nil(t, q.Current())
}

func TestReplace_SetsCursorToFirst(t *testing.T) {
	q, _ := newQueue(t, "a", "b", "c")

	assert.Equal(t, 0, q.CurrentIndex())
	assert.Equal(t, "a", q.Current().ID)
	assert.Equal(t, 3, q.Len())
}

func TestAppend_DoesNotMoveCursor(t *testing.T) {
	q, _ := newQueue(t, "a")
	require.NoError(t, q.Append(makeTracks("b", "c")...))

	assert.Equal(t, 0, q.CurrentIndex())
	assert.Equal(t, 3, q.Len())
}

func TestInsert_BeforeCursorShiftsIt(t *testing.T) {
	q, _ := newQueue(t, "a", "b", "c")
	_, err := q.JumpTo(1)
	require.NoError(t, err)

	require.NoError(t, q.Insert(0, makeTracks("x")...))

	assert.Equal(t, 2, q.CurrentIndex())
	assert.Equal(t, "b", q.Current().ID)
	assert.Equal(t, "x", q.Tracks()[0].ID)
}

func TestRemove_BeforeCursor(t *testing.T) {
	q, _ := newQueue(t, "a", "b", "c")
	_, err := q.JumpTo(2)
	require.NoError(t, err)

	res, err := q.Remove(0)
	require.NoError(t, err)

	assert.Equal(t, RemovedOther, res)
	assert.Equal(t, 1, q.CurrentIndex())
	assert.Equal(t, "c", q.Current().ID)
}

func TestRemove_Current(t *testing.T) {
	q, _ := newQueue(t, "a", "b", "c")
	_, err := q.JumpTo(1)
	require.NoError(t, err)

	res, err := q.Remove(1)
	require.NoError(t, err)

	assert.Equal(t, RemovedPlaying, res)
	// cursor now points at the track that followed
	assert.Equal(t, 1, q.CurrentIndex())
	assert.Equal(t, "c", q.Current().ID)
}

func TestRemove_LastRemaining(t *testing.T) {
	q, _ := newQueue(t, "a")

	res, err := q.Remove(0)
	require.NoError(t, err)

	assert.Equal(t, RemovedLast, res)
	assert.Equal(t, -1, q.CurrentIndex())
	assert.True(t, q.IsEmpty())
}

func TestRemove_OutOfRange(t *testing.T) {
	q, _ := newQueue(t, "a")

	_, err := q.Remove(5)
	assert.Error(t, err)
}

func TestMove_AdjustsCursor(t *testing.T) {
	q, _ := newQueue(t, "a", "b", "c", "d")

	// moving the current track follows it
	require.NoError(t, q.Move(0, 2))
	assert.Equal(t, 2, q.CurrentIndex())
	assert.Equal(t, "a", q.Current().ID)
	assert.Equal(t, []string{"b", "c", "a", "d"}, trackIDs(q))

	// moving a later track before the cursor shifts it right
	require.NoError(t, q.Move(3, 0))
	assert.Equal(t, 3, q.CurrentIndex())
	assert.Equal(t, "a", q.Current().ID)
}

func TestAdvance_Linear(t *testing.T) {
	q, _ := newQueue(t, "a", "b", "c")

	track, err := q.Advance(1)
	require.NoError(t, err)
	assert.Equal(t, "b", track.ID)

	track, err = q.Advance(1)
	require.NoError(t, err)
	assert.Equal(t, "c", track.ID)

	// boundary with repeat off: end of queue
	track, err = q.Advance(1)
	require.NoError(t, err)
	assert.Nil(t, track)
	assert.Equal(t, -1, q.CurrentIndex())
}

func TestAdvance_RepeatOne(t *testing.T) {
	q, _ := newQueue(t, "a", "b")
	require.NoError(t, q.SetRepeat(RepeatOne))

	for range 3 {
		track, err := q.Advance(1)
		require.NoError(t, err)
		require.NotNil(t, track)
		assert.Equal(t, "a", track.ID)
	}
}

func TestAdvance_RepeatAll_Wraps(t *testing.T) {
	q, _ := newQueue(t, "a", "b", "c")
	require.NoError(t, q.SetRepeat(RepeatAll))

	visited := map[string]int{"a": 1} // cursor starts on a
	for range 6 {
		track, err := q.Advance(1)
		require.NoError(t, err)
		require.NotNil(t, track, "repeat-all must never reach end of queue")
		visited[track.ID]++
	}

	// every index revisited
	assert.Len(t, visited, 3)
	for id, n := range visited {
		assert.GreaterOrEqual(t, n, 2, "track %s", id)
	}
}

func TestAdvance_Previous_ClampsAtStart(t *testing.T) {
	q, _ := newQueue(t, "a", "b")

	track, err := q.Advance(-1)
	require.NoError(t, err)
	assert.Equal(t, "a", track.ID)
}

func TestShuffle_CycleVisitsEachOnce(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e", "f"}
	q, _ := newQueue(t, ids...)
	require.NoError(t, q.SetShuffle(true))

	visited := map[string]int{q.Current().ID: 1}
	for range len(ids) - 1 {
		track, err := q.Advance(1)
		require.NoError(t, err)
		require.NotNil(t, track)
		visited[track.ID]++
	}

	require.Len(t, visited, len(ids), "cycle must visit every track")
	for id, n := range visited {
		assert.Equal(t, 1, n, "track %s visited %d times in one cycle", id, n)
	}

	// cycle exhausted with repeat off: end of queue
	track, err := q.Advance(1)
	require.NoError(t, err)
	assert.Nil(t, track)
}

func TestShuffle_RepeatAll_Recycles(t *testing.T) {
	ids := []string{"a", "b", "c"}
	q, _ := newQueue(t, ids...)
	require.NoError(t, q.SetRepeat(RepeatAll))
	require.NoError(t, q.SetShuffle(true))

	visited := map[string]int{q.Current().ID: 1}
	for range 2*len(ids) - 1 {
		track, err := q.Advance(1)
		require.NoError(t, err)
		require.NotNil(t, track)
		visited[track.ID]++
	}

	// two full cycles: every track seen exactly twice
	require.Len(t, visited, len(ids))
	for id, n := range visited {
		assert.Equal(t, 2, n, "track %s", id)
	}
}

func TestPeekNext(t *testing.T) {
	q, _ := newQueue(t, "a", "b")

	next := q.PeekNext()
	require.NotNil(t, next)
	assert.Equal(t, "b", next.ID)
	assert.Equal(t, 0, q.CurrentIndex(), "peek must not move the cursor")

	_, err := q.Advance(1)
	require.NoError(t, err)
	assert.Nil(t, q.PeekNext(), "no next at boundary with repeat off")
}

func TestPersistence_RoundTrip(t *testing.T) {
	store := state.NewMock()
	q := New(store)
	require.NoError(t, q.Replace(makeTracks("a", "b", "c")...))
	_, err := q.JumpTo(1)
	require.NoError(t, err)
	require.NoError(t, q.SetRepeat(RepeatAll))
	require.NoError(t, q.SetShuffle(true))

	// A second queue restored from the same store matches.
	restored := New(store)
	require.NoError(t, restored.Restore())

	assert.Equal(t, trackIDs(q), trackIDs(restored))
	assert.Equal(t, q.CurrentIndex(), restored.CurrentIndex())
	assert.Equal(t, q.Repeat(), restored.Repeat())
	assert.Equal(t, q.Shuffle(), restored.Shuffle())
}

func TestMutation_RollsBackOnStoreError(t *testing.T) {
	store := state.NewMock()
	q := New(store)
	require.NoError(t, q.Replace(makeTracks("a", "b")...))

	store.SaveErr = errors.New("disk full")

	err := q.Append(makeTracks("c")...)
	require.Error(t, err)

	// in-memory state rolled back to match durable state
	assert.Equal(t, []string{"a", "b"}, trackIDs(q))
	assert.Equal(t, 0, q.CurrentIndex())

	store.SaveErr = nil
	restored := New(store)
	require.NoError(t, restored.Restore())
	assert.Equal(t, trackIDs(q), trackIDs(restored))
}

func TestHasNext(t *testing.T) {
	q, _ := newQueue(t, "a", "b")
	assert.True(t, q.HasNext())

	_, err := q.Advance(1)
	require.NoError(t, err)
	assert.False(t, q.HasNext())

	require.NoError(t, q.SetRepeat(RepeatAll))
	assert.True(t, q.HasNext())
}

func trackIDs(q *Queue) []string {
	var ids []string
	for _, t := range q.Tracks() {
		ids = append(ids, t.ID)
	}
	return ids
}
