package playback

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/hifi/internal/catalog"
	"github.com/llehouerou/hifi/internal/player"
	"github.com/llehouerou/hifi/internal/queue"
	"github.com/llehouerou/hifi/internal/resolver"
	"github.com/llehouerou/hifi/internal/state"
)

const (
	waitFor = 2 * time.Second
	tick    = 2 * time.Millisecond
)

type fixture struct {
	svc    Service
	player *player.Mock
	cat    *catalog.Mock
	store  *state.Mock
	queue  *queue.Queue
}

func newFixture(t *testing.T, trackCount int) *fixture {
	t.Helper()

	cat := catalog.NewMock()
	store := state.NewMock()
	q := queue.New(store)

	var tracks []queue.Track
	for i := 1; i <= trackCount; i++ {
		ct := catalog.Track{
			ID:       fmt.Sprintf("t%d", i),
			Title:    fmt.Sprintf("Track %d", i),
			Artist:   "Artist",
			Album:    "Album",
			Duration: 3 * time.Minute,
		}
		cat.AddTrack(ct)
		tracks = append(tracks, queue.FromCatalog(ct))
	}
	if len(tracks) > 0 {
		require.NoError(t, q.Append(tracks...))
	}

	p := player.NewMock()
	svc := New(p, q, resolver.New(cat), store)
	t.Cleanup(func() { svc.Close() })

	return &fixture{svc: svc, player: p, cat: cat, store: store, queue: q}
}

// waitLoad blocks until the backend has seen at least n loads and returns
// the n-th one.
func (f *fixture) waitLoad(t *testing.T, n int) player.MockLoad {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(f.player.Loads()) >= n
	}, waitFor, tick, "backend never received load %d", n)
	return f.player.Loads()[n-1]
}

func (f *fixture) waitStatus(t *testing.T, want Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.svc.Status() == want
	}, waitFor, tick, "status never reached %s (now %s)", want, f.svc.Status())
}

// startPlaying drives the service from idle to playing track 1.
func (f *fixture) startPlaying(t *testing.T) player.MockLoad {
	t.Helper()
	require.NoError(t, f.svc.Play())
	l := f.waitLoad(t, 1)
	f.player.EmitReady(l.Gen)
	f.waitStatus(t, StatusPlaying)
	return l
}

func TestPlay_EmptyQueue(t *testing.T) {
	f := newFixture(t, 0)
	assert.ErrorIs(t, f.svc.Play(), ErrEmptyQueue)
}

func TestPlay_StartsFirstTrack(t *testing.T) {
	f := newFixture(t, 2)

	require.NoError(t, f.svc.Play())
	assert.Equal(t, StatusLoading, f.svc.Status())

	l := f.waitLoad(t, 1)
	assert.Equal(t, "t1", l.Desc.TrackID)
	assert.True(t, l.Autoplay)

	f.player.EmitReady(l.Gen)
	f.waitStatus(t, StatusPlaying)
	assert.Equal(t, 0, f.svc.QueueIndex())
	assert.Equal(t, 3*time.Minute, f.svc.Duration())
}

func TestPlay_WhilePlayingIsNoop(t *testing.T) {
	f := newFixture(t, 1)
	f.startPlaying(t)

	require.NoError(t, f.svc.Play())
	assert.Len(t, f.player.Loads(), 1)
}

func TestPlay_ResumesWhenPaused(t *testing.T) {
	f := newFixture(t, 1)
	f.startPlaying(t)

	require.NoError(t, f.svc.Pause())
	require.NoError(t, f.svc.Play())

	assert.Equal(t, StatusPlaying, f.svc.Status())
	assert.Equal(t, 1, f.player.PlayCalls())
	assert.Len(t, f.player.Loads(), 1, "resume must not reload the stream")
}

func TestPlayTracks_ReplacesQueueAndPlays(t *testing.T) {
	f := newFixture(t, 2)
	f.startPlaying(t)

	extra := catalog.Track{ID: "t9", Title: "Other", Duration: time.Minute}
	f.cat.AddTrack(extra)
	require.NoError(t, f.svc.PlayTracks([]queue.Track{queue.FromCatalog(extra)}))

	l := f.waitLoad(t, 2)
	assert.Equal(t, "t9", l.Desc.TrackID)
	assert.Equal(t, 1, f.svc.QueueLen())
	assert.Equal(t, 0, f.svc.QueueIndex())
}

func TestPauseResume(t *testing.T) {
	f := newFixture(t, 1)
	f.startPlaying(t)

	require.NoError(t, f.svc.Pause())
	assert.Equal(t, StatusPaused, f.svc.Status())
	assert.Equal(t, 1, f.player.PauseCalls())

	// Pausing while paused is a no-op, not an error.
	require.NoError(t, f.svc.Pause())
	assert.Equal(t, 1, f.player.PauseCalls())

	require.NoError(t, f.svc.Resume())
	assert.Equal(t, StatusPlaying, f.svc.Status())
	assert.Equal(t, 1, f.player.PlayCalls())
}

func TestPause_InvalidWhenIdle(t *testing.T) {
	f := newFixture(t, 1)
	assert.ErrorIs(t, f.svc.Pause(), ErrInvalidInState)
	assert.ErrorIs(t, f.svc.Resume(), ErrInvalidInState)
}

func TestPause_InvalidWhileLoading(t *testing.T) {
	f := newFixture(t, 1)
	f.cat.ResolveDelay = 50 * time.Millisecond

	require.NoError(t, f.svc.Play())
	assert.Equal(t, StatusLoading, f.svc.Status())
	assert.ErrorIs(t, f.svc.Pause(), ErrInvalidInState)
}

func TestStop_ReturnsToIdleKeepsCursor(t *testing.T) {
	f := newFixture(t, 2)
	f.startPlaying(t)

	require.NoError(t, f.svc.Stop())
	assert.Equal(t, StatusIdle, f.svc.Status())
	assert.Equal(t, 1, f.player.StopCalls())
	assert.Equal(t, 0, f.svc.QueueIndex(), "stop must not move the cursor")
	assert.Equal(t, time.Duration(0), f.svc.Position())
}

func TestNext_AdvancesAndPlays(t *testing.T) {
	f := newFixture(t, 3)
	f.startPlaying(t)

	require.NoError(t, f.svc.Next())
	l := f.waitLoad(t, 2)
	assert.Equal(t, "t2", l.Desc.TrackID)
	f.player.EmitReady(l.Gen)
	f.waitStatus(t, StatusPlaying)
	assert.Equal(t, 1, f.svc.QueueIndex())
}

func TestNext_WhileIdleMovesCursorOnly(t *testing.T) {
	f := newFixture(t, 3)

	require.NoError(t, f.svc.Next())
	assert.Equal(t, 0, f.svc.QueueIndex())
	assert.Equal(t, StatusIdle, f.svc.Status())

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, f.player.Loads(), "skipping while idle must not start playback")
}

func TestNext_SupersedesInflightLoad(t *testing.T) {
	f := newFixture(t, 2)
	f.cat.ResolveDelay = 30 * time.Millisecond

	require.NoError(t, f.svc.Play())
	// Skip before track 1 finished resolving: its result must be
	// discarded and only track 2 reach the backend.
	require.NoError(t, f.svc.Next())

	l := f.waitLoad(t, 1)
	assert.Equal(t, "t2", l.Desc.TrackID)

	// Give the stale resolution time to land, then confirm it was dropped.
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, f.player.Loads(), 1)
}

func TestEndOfStream_AdvancesToNextTrack(t *testing.T) {
	f := newFixture(t, 2)
	l1 := f.startPlaying(t)

	f.player.Emit(player.Signal{Kind: player.SignalEndOfStream, Gen: l1.Gen})

	l2 := f.waitLoad(t, 2)
	assert.Equal(t, "t2", l2.Desc.TrackID)
	f.player.EmitReady(l2.Gen)
	f.waitStatus(t, StatusPlaying)
	assert.Equal(t, 1, f.svc.QueueIndex())
}

func TestEndOfStream_LastTrackGoesIdle(t *testing.T) {
	f := newFixture(t, 1)
	l := f.startPlaying(t)

	f.player.Emit(player.Signal{Kind: player.SignalEndOfStream, Gen: l.Gen})

	f.waitStatus(t, StatusIdle)
	assert.Equal(t, -1, f.svc.QueueIndex())
	assert.Equal(t, 1, f.player.StopCalls())
}

func TestEndOfStream_RepeatOneReplays(t *testing.T) {
	f := newFixture(t, 2)
	require.NoError(t, f.svc.SetRepeat(queue.RepeatOne))
	l1 := f.startPlaying(t)

	f.player.Emit(player.Signal{Kind: player.SignalEndOfStream, Gen: l1.Gen})

	l2 := f.waitLoad(t, 2)
	assert.Equal(t, "t1", l2.Desc.TrackID)
	assert.Equal(t, 0, f.svc.QueueIndex())
}

func TestStaleSignalsIgnored(t *testing.T) {
	f := newFixture(t, 2)
	l := f.startPlaying(t)

	// A signal from a generation the service never accepted.
	f.player.Emit(player.Signal{Kind: player.SignalEndOfStream, Gen: l.Gen + 40})

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StatusPlaying, f.svc.Status())
	assert.Len(t, f.player.Loads(), 1)
}

func TestSeek_Clamps(t *testing.T) {
	f := newFixture(t, 1)
	f.startPlaying(t)

	require.NoError(t, f.svc.SeekTo(10*time.Minute))
	seeks := f.player.Seeks()
	require.Len(t, seeks, 1)
	assert.Equal(t, 3*time.Minute, seeks[0])

	require.NoError(t, f.svc.SeekTo(-5*time.Second))
	seeks = f.player.Seeks()
	require.Len(t, seeks, 2)
	assert.Equal(t, time.Duration(0), seeks[1])
}

func TestSeek_RelativeFromPosition(t *testing.T) {
	f := newFixture(t, 1)
	l := f.startPlaying(t)

	f.player.Emit(player.Signal{Kind: player.SignalPosition, Gen: l.Gen, Position: time.Minute})
	require.Eventually(t, func() bool {
		return f.svc.Position() == time.Minute
	}, waitFor, tick)

	require.NoError(t, f.svc.Seek(10*time.Second))
	seeks := f.player.Seeks()
	require.Len(t, seeks, 1)
	assert.Equal(t, time.Minute+10*time.Second, seeks[0])
}

func TestSeek_InvalidWhenIdle(t *testing.T) {
	f := newFixture(t, 1)
	assert.ErrorIs(t, f.svc.SeekTo(time.Second), ErrInvalidInState)
}

func TestJumpTo(t *testing.T) {
	f := newFixture(t, 3)
	f.startPlaying(t)

	require.NoError(t, f.svc.JumpTo(2))
	l := f.waitLoad(t, 2)
	assert.Equal(t, "t3", l.Desc.TrackID)

	assert.ErrorIs(t, f.svc.JumpTo(7), ErrInvalidRange)
	assert.ErrorIs(t, f.svc.JumpTo(-1), ErrInvalidRange)
}

func TestVolume_AppliedAndPersisted(t *testing.T) {
	f := newFixture(t, 1)

	require.NoError(t, f.svc.SetVolume(0.5))
	assert.Equal(t, 0.5, f.svc.Volume())
	assert.Equal(t, 0.5, f.player.Volume())

	v, err := f.store.GetVolume()
	require.NoError(t, err)
	assert.Equal(t, 0.5, v.Volume)

	// Out-of-range levels clamp instead of failing.
	require.NoError(t, f.svc.SetVolume(1.7))
	assert.Equal(t, 1.0, f.svc.Volume())
	require.NoError(t, f.svc.SetVolume(-0.2))
	assert.Equal(t, 0.0, f.svc.Volume())
}

func TestToggleMute(t *testing.T) {
	f := newFixture(t, 1)
	require.NoError(t, f.svc.SetVolume(0.8))

	require.NoError(t, f.svc.ToggleMute())
	assert.True(t, f.svc.Muted())
	assert.Equal(t, 0.0, f.player.Volume())
	assert.Equal(t, 0.8, f.svc.Volume(), "mute must not forget the level")

	require.NoError(t, f.svc.ToggleMute())
	assert.False(t, f.svc.Muted())
	assert.Equal(t, 0.8, f.player.Volume())
}

func TestVolume_RestoredFromStore(t *testing.T) {
	cat := catalog.NewMock()
	store := state.NewMock()
	require.NoError(t, store.SaveVolume(0.3, false))
	q := queue.New(store)
	p := player.NewMock()

	svc := New(p, q, resolver.New(cat), store)
	defer svc.Close()

	assert.Equal(t, 0.3, svc.Volume())
	assert.Equal(t, 0.3, p.Volume())
}

func TestRemove_CurrentTrackAdvances(t *testing.T) {
	f := newFixture(t, 3)
	f.startPlaying(t)

	require.NoError(t, f.svc.Remove(0))

	// The cursor stays at 0, now pointing at the former track 2, and
	// playback restarts there.
	l := f.waitLoad(t, 2)
	assert.Equal(t, "t2", l.Desc.TrackID)
	assert.True(t, l.Autoplay)
	assert.Equal(t, 2, f.svc.QueueLen())
}

func TestRemove_LastRemainingStops(t *testing.T) {
	f := newFixture(t, 1)
	f.startPlaying(t)

	require.NoError(t, f.svc.Remove(0))
	assert.Equal(t, StatusIdle, f.svc.Status())
	assert.Equal(t, 0, f.svc.QueueLen())
	assert.Equal(t, 1, f.player.StopCalls())
}

func TestRemove_OtherTrackKeepsPlaying(t *testing.T) {
	f := newFixture(t, 3)
	f.startPlaying(t)

	require.NoError(t, f.svc.Remove(2))
	assert.Equal(t, StatusPlaying, f.svc.Status())
	assert.Len(t, f.player.Loads(), 1)

	assert.ErrorIs(t, f.svc.Remove(5), ErrInvalidRange)
}

func TestClear_StopsPlayback(t *testing.T) {
	f := newFixture(t, 2)
	f.startPlaying(t)

	require.NoError(t, f.svc.Clear())
	assert.Equal(t, StatusIdle, f.svc.Status())
	assert.Equal(t, 0, f.svc.QueueLen())
	assert.Nil(t, f.svc.CurrentTrack())
}

func TestResolveError_PublishesMessage(t *testing.T) {
	f := newFixture(t, 1)
	sub := f.svc.Subscribe()
	f.cat.StreamErr = errors.New("catalog unavailable")

	require.NoError(t, f.svc.Play())
	f.waitStatus(t, StatusErrored)

	var sawMessage, sawErrored bool
	deadline := time.After(waitFor)
	for !(sawMessage && sawErrored) {
		select {
		case e := <-sub.Events:
			switch ev := e.(type) {
			case Message:
				if ev.Level == LevelError {
					sawMessage = true
				}
			case StatusChange:
				if ev.Current == StatusErrored {
					sawErrored = true
				}
			}
		case <-deadline:
			t.Fatalf("missing events: message=%v errored=%v", sawMessage, sawErrored)
		}
	}

	assert.Error(t, f.svc.State().Err)
}

func TestBackendError_TransitionsToErrored(t *testing.T) {
	f := newFixture(t, 1)
	l := f.startPlaying(t)

	f.player.Emit(player.Signal{Kind: player.SignalError, Gen: l.Gen, Err: errors.New("decode failed")})
	f.waitStatus(t, StatusErrored)

	// Skipping out of the errored state works.
	require.NoError(t, f.svc.Stop())
	assert.Equal(t, StatusIdle, f.svc.Status())
}

func TestPositionSignal_UpdatesAndPublishes(t *testing.T) {
	f := newFixture(t, 1)
	sub := f.svc.Subscribe()
	l := f.startPlaying(t)

	f.player.Emit(player.Signal{Kind: player.SignalPosition, Gen: l.Gen, Position: 42 * time.Second})

	require.Eventually(t, func() bool {
		return f.svc.Position() == 42*time.Second
	}, waitFor, tick)

	deadline := time.After(waitFor)
	for {
		select {
		case e := <-sub.Events:
			if pc, ok := e.(PositionChange); ok {
				assert.Equal(t, 42*time.Second, pc.Position)
				assert.Equal(t, 3*time.Minute, pc.Duration)
				return
			}
		case <-deadline:
			t.Fatal("no position event")
		}
	}
}

func TestPrefetch_NearEndOfTrack(t *testing.T) {
	f := newFixture(t, 2)
	l := f.startPlaying(t)

	// 10s from the end: inside the prefetch window.
	f.player.Emit(player.Signal{Kind: player.SignalPosition, Gen: l.Gen, Position: 3*time.Minute - 10*time.Second})

	require.Eventually(t, func() bool {
		for _, id := range f.cat.StreamCalls() {
			if id == "t2" {
				return true
			}
		}
		return false
	}, waitFor, tick, "next track was never prefetched")

	// The prefetch is resolve-only; the backend sees nothing yet.
	assert.Len(t, f.player.Loads(), 1)
}

func TestPrefetch_FailureSurfacesWarning(t *testing.T) {
	f := newFixture(t, 2)
	l := f.startPlaying(t)

	sub := f.svc.Subscribe()
	t.Cleanup(func() { f.svc.Unsubscribe(sub) })

	f.cat.StreamErr = errors.New("edge node unreachable")
	f.player.Emit(player.Signal{Kind: player.SignalPosition, Gen: l.Gen, Position: 3*time.Minute - 10*time.Second})

	deadline := time.After(waitFor)
	for {
		select {
		case e := <-sub.Events:
			if m, ok := e.(Message); ok {
				assert.Equal(t, LevelWarning, m.Level)
				assert.Contains(t, m.Text, "prefetch")
				assert.Contains(t, m.Text, "Track 2")
				// The failure warms nothing; the later advance resolves anew.
				assert.Len(t, f.player.Loads(), 1)
				return
			}
		case <-deadline:
			t.Fatal("prefetch failure never produced a warning")
		}
	}
}

func TestScenario_PlayThroughQueueToIdle(t *testing.T) {
	f := newFixture(t, 3)

	l := f.startPlaying(t)
	for i := 2; i <= 3; i++ {
		f.player.Emit(player.Signal{Kind: player.SignalEndOfStream, Gen: l.Gen})
		l = f.waitLoad(t, i)
		assert.Equal(t, fmt.Sprintf("t%d", i), l.Desc.TrackID)
		f.player.EmitReady(l.Gen)
		f.waitStatus(t, StatusPlaying)
	}

	f.player.Emit(player.Signal{Kind: player.SignalEndOfStream, Gen: l.Gen})
	f.waitStatus(t, StatusIdle)
	assert.Equal(t, -1, f.svc.QueueIndex())
}

func TestModeChanges_Published(t *testing.T) {
	f := newFixture(t, 2)
	sub := f.svc.Subscribe()

	assert.Equal(t, queue.RepeatAll, f.svc.CycleRepeat())
	assert.True(t, f.svc.ToggleShuffle())

	e1 := <-sub.Events
	require.IsType(t, ModeChange{}, e1)
	assert.Equal(t, queue.RepeatAll, e1.(ModeChange).Repeat)

	e2 := <-sub.Events
	require.IsType(t, ModeChange{}, e2)
	assert.True(t, e2.(ModeChange).Shuffle)
}

func TestState_Snapshot(t *testing.T) {
	f := newFixture(t, 2)
	require.NoError(t, f.svc.SetVolume(0.6))
	f.startPlaying(t)

	st := f.svc.State()
	assert.Equal(t, StatusPlaying, st.Status)
	require.NotNil(t, st.Track)
	assert.Equal(t, "t1", st.Track.ID)
	assert.Equal(t, 0, st.Index)
	assert.Equal(t, 0.6, st.Volume)
	assert.Equal(t, 3*time.Minute, st.Duration)
	assert.NoError(t, st.Err)
}

func TestClose_RejectsFurtherCommands(t *testing.T) {
	f := newFixture(t, 1)
	sub := f.svc.Subscribe()

	require.NoError(t, f.svc.Close())
	assert.ErrorIs(t, f.svc.Play(), ErrClosed)
	assert.ErrorIs(t, f.svc.Pause(), ErrClosed)

	select {
	case <-sub.Done:
	case <-time.After(time.Second):
		t.Fatal("subscription not closed on shutdown")
	}
}
