// Package queue holds the ordered play queue: track list, cursor, repeat
// and shuffle modes. Every mutation writes through to durable storage
// before it is acknowledged; a failed write rolls the mutation back.
//
// The queue itself is not locked. The playback coordinator is its single
// writer and serializes all access.
package queue

import (
	"fmt"
	"math/rand/v2"

	"github.com/llehouerou/hifi/internal/state"
)

// RepeatMode defines the repeat behavior.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

// String returns the repeat mode name.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "Off"
	case RepeatAll:
		return "All"
	case RepeatOne:
		return "One"
	default:
		return "Unknown"
	}
}

// Store is the durable backing for the queue. Satisfied by state.Manager
// and state.Mock.
type Store interface {
	SaveQueue(state.QueueState) error
	GetQueue() (*state.QueueState, error)
}

// Queue is the ordered track list with a cursor and mode flags.
// Invariant: cursor is -1 iff the queue has no active track, otherwise a
// valid index into tracks.
type Queue struct {
	store Store

	tracks  []Track
	cursor  int
	repeat  RepeatMode
	shuffle bool

	// shuffle cycle: a permutation of indices, each visited once per
	// cycle. cyclePos points at the cursor's position within the cycle.
	cycle    []int
	cyclePos int

	rng *rand.Rand
}

// New creates an empty queue backed by the given store.
func New(store Store) *Queue {
	return &Queue{
		store:  store,
		cursor: -1,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // shuffle order is not security sensitive
	}
}

// Restore loads the persisted queue state. Called once at startup.
func (q *Queue) Restore() error {
	saved, err := q.store.GetQueue()
	if err != nil {
		return fmt.Errorf("restore queue: %w", err)
	}
	q.tracks = q.tracks[:0]
	for _, t := range saved.Tracks {
		q.tracks = append(q.tracks, fromState(t))
	}
	q.cursor = saved.CurrentIndex
	if q.cursor < -1 || q.cursor >= len(q.tracks) {
		q.cursor = -1
	}
	q.repeat = RepeatMode(saved.RepeatMode)
	if q.repeat < RepeatOff || q.repeat > RepeatOne {
		q.repeat = RepeatOff
	}
	q.shuffle = saved.Shuffle
	q.reshuffle()
	return nil
}

// Queries

// Current returns the track under the cursor, or nil.
func (q *Queue) Current() *Track {
	if q.cursor < 0 || q.cursor >= len(q.tracks) {
		return nil
	}
	t := q.tracks[q.cursor]
	return &t
}

// CurrentIndex returns the cursor (-1 if none).
func (q *Queue) CurrentIndex() int { return q.cursor }

// Tracks returns a copy of all tracks in order.
func (q *Queue) Tracks() []Track {
	return append([]Track(nil), q.tracks...)
}

// Len returns the number of tracks.
func (q *Queue) Len() int { return len(q.tracks) }

// IsEmpty returns true if the queue has no tracks.
func (q *Queue) IsEmpty() bool { return len(q.tracks) == 0 }

// Repeat returns the repeat mode.
func (q *Queue) Repeat() RepeatMode { return q.repeat }

// Shuffle returns whether shuffle is enabled.
func (q *Queue) Shuffle() bool { return q.shuffle }

// HasNext reports whether Advance(1) would yield a track.
func (q *Queue) HasNext() bool {
	if len(q.tracks) == 0 {
		return false
	}
	if q.repeat != RepeatOff {
		return true
	}
	if q.shuffle {
		return q.cyclePos < len(q.cycle)-1
	}
	return q.cursor < len(q.tracks)-1
}

// Mutations. Each persists before acknowledging; on a store error the
// in-memory change is rolled back and the error returned.

// Append adds tracks to the end of the queue.
func (q *Queue) Append(tracks ...Track) error {
	return q.mutate(func() {
		q.tracks = append(q.tracks, tracks...)
		q.reshuffle()
	})
}

// Insert adds tracks at the given position (clamped to [0, Len]).
func (q *Queue) Insert(at int, tracks ...Track) error {
	return q.mutate(func() {
		if at < 0 {
			at = 0
		}
		if at > len(q.tracks) {
			at = len(q.tracks)
		}
		q.tracks = append(q.tracks[:at], append(append([]Track(nil), tracks...), q.tracks[at:]...)...)
		if q.cursor >= at {
			q.cursor += len(tracks)
		}
		q.reshuffle()
	})
}

// Replace clears the queue, adds tracks and sets the cursor to 0 (or -1
// when tracks is empty).
func (q *Queue) Replace(tracks ...Track) error {
	return q.mutate(func() {
		q.tracks = append(q.tracks[:0:0], tracks...)
		if len(q.tracks) == 0 {
			q.cursor = -1
		} else {
			q.cursor = 0
		}
		q.reshuffle()
	})
}

// RemovedCurrent reports what Remove did to the cursor.
type RemovedCurrent int

const (
	RemovedOther   RemovedCurrent = iota // cursor untouched or shifted
	RemovedPlaying                       // the active track was removed
	RemovedLast                          // the active track was removed and none remain
)

// Remove deletes the track at index. When the active track is removed the
// cursor stays in place (now pointing at the following track) so the
// caller can advance playback; the returned RemovedCurrent says which
// case applies.
func (q *Queue) Remove(index int) (RemovedCurrent, error) {
	if index < 0 || index >= len(q.tracks) {
		return RemovedOther, fmt.Errorf("remove: index %d out of range", index)
	}

	result := RemovedOther
	err := q.mutate(func() {
		wasCurrent := index == q.cursor
		q.tracks = append(q.tracks[:index], q.tracks[index+1:]...)

		switch {
		case q.cursor > index:
			q.cursor--
		case wasCurrent:
			if len(q.tracks) == 0 {
				q.cursor = -1
				result = RemovedLast
			} else {
				if q.cursor >= len(q.tracks) {
					q.cursor = len(q.tracks) - 1
				}
				result = RemovedPlaying
			}
		}
		q.reshuffle()
	})
	if err != nil {
		return RemovedOther, err
	}
	return result, nil
}

// Move reorders the track at from to position to.
func (q *Queue) Move(from, to int) error {
	if from < 0 || from >= len(q.tracks) || to < 0 || to >= len(q.tracks) {
		return fmt.Errorf("move: index out of range (%d -> %d)", from, to)
	}
	if from == to {
		return nil
	}
	return q.mutate(func() {
		t := q.tracks[from]
		q.tracks = append(q.tracks[:from], q.tracks[from+1:]...)
		q.tracks = append(q.tracks[:to], append([]Track{t}, q.tracks[to:]...)...)

		switch {
		case q.cursor == from:
			q.cursor = to
		case from < q.cursor && to >= q.cursor:
			q.cursor--
		case from > q.cursor && to <= q.cursor:
			q.cursor++
		}
		q.reshuffle()
	})
}

// Clear removes all tracks and resets the cursor.
func (q *Queue) Clear() error {
	return q.mutate(func() {
		q.tracks = q.tracks[:0]
		q.cursor = -1
		q.cycle = nil
		q.cyclePos = 0
	})
}

// JumpTo moves the cursor to index.
func (q *Queue) JumpTo(index int) (*Track, error) {
	if index < 0 || index >= len(q.tracks) {
		return nil, fmt.Errorf("jump: index %d out of range", index)
	}
	err := q.mutate(func() {
		q.cursor = index
		q.syncCyclePos()
	})
	if err != nil {
		return nil, err
	}
	return q.Current(), nil
}

// SetRepeat sets the repeat mode.
func (q *Queue) SetRepeat(mode RepeatMode) error {
	return q.mutate(func() { q.repeat = mode })
}

// SetShuffle enables or disables shuffle. Enabling recomputes the cycle
// with the current track first, so the playing track keeps its place.
func (q *Queue) SetShuffle(enabled bool) error {
	return q.mutate(func() {
		q.shuffle = enabled
		q.reshuffle()
	})
}

// Advance moves the cursor per the mode flags. dir is +1 (next) or -1
// (previous). Returns the new current track, or nil when the queue
// boundary is reached with repeat off (end of queue).
func (q *Queue) Advance(dir int) (*Track, error) {
	if len(q.tracks) == 0 {
		return nil, nil
	}

	// Shuffle cycle exhausted under repeat-all: start a fresh permutation
	// so every track is again visited exactly once.
	if q.shuffle && dir > 0 && q.repeat == RepeatAll && q.cyclePos+1 >= len(q.cycle) {
		err := q.mutate(func() {
			// A fresh, unanchored permutation: the new cycle must visit
			// every track exactly once, including the one just played.
			q.cycle = q.rng.Perm(len(q.tracks))
			q.cyclePos = 0
			q.cursor = q.cycle[0]
		})
		if err != nil {
			return nil, err
		}
		return q.Current(), nil
	}

	next := q.nextIndex(dir)

	if next < 0 {
		// End of queue. The cursor resets so a later play starts over.
		err := q.mutate(func() {
			q.cursor = -1
			q.reshuffle()
		})
		return nil, err
	}

	err := q.mutate(func() {
		q.cursor = next
		q.syncCyclePos()
	})
	if err != nil {
		return nil, err
	}
	return q.Current(), nil
}

// nextIndex computes the index Advance would move to, or -1 for end of
// queue. It does not mutate.
func (q *Queue) nextIndex(dir int) int {
	if q.repeat == RepeatOne && q.cursor >= 0 {
		return q.cursor
	}

	if q.shuffle {
		pos := q.cyclePos + dir
		if pos >= len(q.cycle) {
			if q.repeat == RepeatAll {
				// cycle restarts from a fresh permutation
				return q.cycle[0]
			}
			return -1
		}
		if pos < 0 {
			return q.cycle[0]
		}
		return q.cycle[pos]
	}

	next := q.cursor + dir
	switch {
	case next >= len(q.tracks):
		if q.repeat == RepeatAll {
			return 0
		}
		return -1
	case next < 0:
		return 0
	}
	return next
}

// PeekNext returns the track Advance(1) would land on without moving the
// cursor. Used for gapless prefetch.
func (q *Queue) PeekNext() *Track {
	if len(q.tracks) == 0 {
		return nil
	}
	next := q.nextIndex(1)
	if next < 0 {
		return nil
	}
	// a shuffle cycle that wraps under repeat-all reshuffles on wrap, so
	// the peeked index is only a prediction there; for prefetch that is
	// acceptable.
	t := q.tracks[next]
	return &t
}

// reshuffle recomputes the shuffle cycle. The current track, if any, is
// placed first so it counts as visited.
func (q *Queue) reshuffle() {
	if !q.shuffle || len(q.tracks) == 0 {
		q.cycle = nil
		q.cyclePos = 0
		return
	}

	q.cycle = q.rng.Perm(len(q.tracks))
	q.cyclePos = 0

	if q.cursor >= 0 {
		for i, idx := range q.cycle {
			if idx == q.cursor {
				q.cycle[0], q.cycle[i] = q.cycle[i], q.cycle[0]
				break
			}
		}
	}
}

// syncCyclePos aligns cyclePos with the cursor after an explicit jump.
func (q *Queue) syncCyclePos() {
	for i, idx := range q.cycle {
		if idx == q.cursor {
			q.cyclePos = i
			return
		}
	}
}

// mutate applies fn, persists, and rolls back on a store failure.
func (q *Queue) mutate(fn func()) error {
	prevTracks := append([]Track(nil), q.tracks...)
	prevCursor := q.cursor
	prevRepeat := q.repeat
	prevShuffle := q.shuffle
	prevCycle := append([]int(nil), q.cycle...)
	prevCyclePos := q.cyclePos

	fn()

	if err := q.persist(); err != nil {
		q.tracks = prevTracks
		q.cursor = prevCursor
		q.repeat = prevRepeat
		q.shuffle = prevShuffle
		q.cycle = prevCycle
		q.cyclePos = prevCyclePos
		return fmt.Errorf("persist queue: %w", err)
	}
	return nil
}

func (q *Queue) persist() error {
	s := state.QueueState{
		CurrentIndex: q.cursor,
		RepeatMode:   int(q.repeat),
		Shuffle:      q.shuffle,
	}
	for _, t := range q.tracks {
		s.Tracks = append(s.Tracks, toState(t))
	}
	return q.store.SaveQueue(s)
}
