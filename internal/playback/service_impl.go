package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/llehouerou/hifi/internal/catalog"
	"github.com/llehouerou/hifi/internal/errmsg"
	"github.com/llehouerou/hifi/internal/player"
	"github.com/llehouerou/hifi/internal/queue"
	"github.com/llehouerou/hifi/internal/state"
)

const (
	resolveTimeout = 15 * time.Second

	// prefetchWindow is how close to the end of a track the next track's
	// stream URL is resolved, so the follow-up load starts from a warm
	// cache.
	prefetchWindow = 15 * time.Second
)

// TrackResolver turns a track id into a playable stream descriptor.
type TrackResolver interface {
	Resolve(ctx context.Context, trackID string) (*catalog.StreamDescriptor, error)
}

// VolumeStore persists the output level across sessions.
type VolumeStore interface {
	GetVolume() (*state.VolumeState, error)
	SaveVolume(volume float64, muted bool) error
}

// Verify serviceImpl implements Service at compile time.
var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	mu sync.Mutex

	player   player.Interface
	queue    *queue.Queue
	resolver TrackResolver
	store    VolumeStore
	hub      *Hub

	status   Status
	position time.Duration
	duration time.Duration
	volume   float64
	muted    bool
	lastErr  error

	// gen is the player generation of the accepted load; signals carrying
	// any other generation are stale and ignored. epoch supersedes
	// in-flight stream resolutions the same way.
	gen   uint64
	epoch uint64

	// autoplay says whether the pending load should start playing when the
	// backend reports Ready.
	autoplay bool

	// prefetched is the track id already warmed in the resolver.
	prefetched string

	done   chan struct{}
	closed bool
}

// New creates the playback service. The previous session's volume is
// restored from the store; playback state starts idle.
func New(p player.Interface, q *queue.Queue, r TrackResolver, store VolumeStore) Service {
	s := &serviceImpl{
		player:   p,
		queue:    q,
		resolver: r,
		store:    store,
		hub:      NewHub(),
		volume:   1.0,
		done:     make(chan struct{}),
	}
	if v, err := store.GetVolume(); err == nil && v != nil {
		s.volume = v.Volume
		s.muted = v.Muted
	}
	p.SetVolume(s.effectiveLevel())
	go s.consumeSignals()
	return s
}

func (s *serviceImpl) effectiveLevel() float64 {
	if s.muted {
		return 0
	}
	return s.volume
}

// --- event plumbing ---

func (s *serviceImpl) consumeSignals() {
	for {
		select {
		case sig := <-s.player.Signals():
			s.handleSignal(sig)
		case <-s.done:
			return
		}
	}
}

func (s *serviceImpl) handleSignal(sig player.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == 0 || sig.Gen != s.gen {
		return // stale signal from a superseded load
	}

	switch sig.Kind {
	case player.SignalBuffering:
		if sig.Buffering {
			s.setStatusLocked(StatusBuffering)
		}
		// buffering-off is always followed by Ready, which sets the
		// real status

	case player.SignalReady:
		s.position = 0
		if t := s.queue.Current(); t != nil {
			s.duration = t.Duration
		}
		if s.autoplay {
			s.setStatusLocked(StatusPlaying)
		} else {
			s.setStatusLocked(StatusPaused)
		}

	case player.SignalPosition:
		s.position = sig.Position
		s.hub.Publish(PositionChange{Position: sig.Position, Duration: s.duration})
		s.maybePrefetchLocked()

	case player.SignalEndOfStream:
		_ = s.advanceLocked(1, true)

	case player.SignalError:
		s.lastErr = fmt.Errorf("%w: %v", ErrBackend, sig.Err)
		s.setStatusLocked(StatusErrored)
		s.hub.Publish(Message{Level: LevelError, Text: errmsg.Format(errmsg.OpPlaybackStart, sig.Err)})
	}
}

func (s *serviceImpl) setStatusLocked(st Status) {
	if st == s.status {
		return
	}
	prev := s.status
	s.status = st
	s.hub.Publish(StatusChange{Previous: prev, Current: st})
}

func (s *serviceImpl) publishQueueLocked() {
	s.hub.Publish(QueueChange{Tracks: s.queue.Tracks(), Index: s.queue.CurrentIndex()})
}

// --- load pipeline ---

// startCurrentLocked resolves the cursor track and hands it to the
// backend. Resolution happens off the lock; a later epoch discards the
// result.
func (s *serviceImpl) startCurrentLocked(autoplay bool) error {
	t := s.queue.Current()
	if t == nil {
		return ErrEmptyQueue
	}
	s.lastErr = nil
	s.position = 0
	s.duration = t.Duration
	s.autoplay = autoplay
	s.prefetched = ""
	s.setStatusLocked(StatusLoading)
	s.epoch++
	go s.resolveAndLoad(*t, s.epoch)
	return nil
}

func (s *serviceImpl) resolveAndLoad(track queue.Track, epoch uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	desc, err := s.resolver.Resolve(ctx, track.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || epoch != s.epoch {
		return // a newer play request took over while resolving
	}
	if err != nil {
		s.lastErr = fmt.Errorf("%w: %v", ErrResolution, err)
		s.setStatusLocked(StatusErrored)
		s.hub.Publish(Message{Level: LevelError, Text: errmsg.FormatWith(errmsg.OpTrackResolve, track.Title, err)})
		return
	}
	s.gen = s.player.Load(*desc, s.autoplay)
}

// maybePrefetchLocked warms the resolver cache for the upcoming track near
// the end of the current one, so the follow-up load does not wait on the
// catalog.
func (s *serviceImpl) maybePrefetchLocked() {
	if s.duration <= 0 || s.duration-s.position > prefetchWindow {
		return
	}
	next := s.queue.PeekNext()
	if next == nil || next.ID == s.prefetched {
		return
	}
	s.prefetched = next.ID
	id, title := next.ID, next.Title
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		defer cancel()
		if _, err := s.resolver.Resolve(ctx, id); err != nil {
			// The transition will retry through the normal loading path,
			// but the gap it causes deserves an explanation.
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.closed {
				return
			}
			s.hub.Publish(Message{Level: LevelWarning, Text: errmsg.FormatWith(errmsg.OpPrefetch, title, err)})
		}
	}()
}

// advanceLocked moves the cursor and, when autoplay is set, starts the
// landed-on track. A nil landing track means end of queue: playback stops
// and the cursor resets.
func (s *serviceImpl) advanceLocked(dir int, autoplay bool) error {
	prev := s.queue.Current()
	prevIdx := s.queue.CurrentIndex()

	t, err := s.queue.Advance(dir)
	if err != nil {
		s.hub.Publish(Message{Level: LevelError, Text: errmsg.Format(errmsg.OpQueueSave, err)})
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if t == nil {
		s.stopLocked()
		s.hub.Publish(TrackChange{Previous: prev, Current: nil, PreviousIndex: prevIdx, Index: -1})
		s.publishQueueLocked()
		return nil
	}

	s.hub.Publish(TrackChange{Previous: prev, Current: t, PreviousIndex: prevIdx, Index: s.queue.CurrentIndex()})
	s.publishQueueLocked()
	if autoplay {
		return s.startCurrentLocked(true)
	}
	return nil
}

// stopLocked tears down the backend and returns to idle. The cursor is
// left where it is.
func (s *serviceImpl) stopLocked() {
	s.epoch++
	s.gen = 0
	s.player.Stop()
	s.position = 0
	s.duration = 0
	s.lastErr = nil
	s.prefetched = ""
	s.setStatusLocked(StatusIdle)
}

// --- playback control ---

func (s *serviceImpl) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	switch s.status {
	case StatusPlaying, StatusLoading, StatusBuffering:
		return nil
	case StatusPaused:
		s.player.Play()
		s.setStatusLocked(StatusPlaying)
		return nil
	}

	// Idle or errored: start from the cursor, or the top of the queue.
	if s.queue.IsEmpty() {
		return ErrEmptyQueue
	}
	if s.queue.CurrentIndex() < 0 {
		if _, err := s.queue.JumpTo(0); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}
	s.hub.Publish(TrackChange{
		Previous:      nil,
		Current:       s.queue.Current(),
		PreviousIndex: -1,
		Index:         s.queue.CurrentIndex(),
	})
	s.publishQueueLocked()
	return s.startCurrentLocked(true)
}

func (s *serviceImpl) PlayTracks(tracks []queue.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if len(tracks) == 0 {
		return ErrEmptyQueue
	}

	prev := s.queue.Current()
	prevIdx := s.queue.CurrentIndex()
	if err := s.queue.Replace(tracks...); err != nil {
		s.hub.Publish(Message{Level: LevelError, Text: errmsg.Format(errmsg.OpQueueSave, err)})
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.hub.Publish(TrackChange{
		Previous:      prev,
		Current:       s.queue.Current(),
		PreviousIndex: prevIdx,
		Index:         0,
	})
	s.publishQueueLocked()
	return s.startCurrentLocked(true)
}

func (s *serviceImpl) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	switch s.status {
	case StatusPaused:
		return nil
	case StatusPlaying, StatusBuffering:
		s.player.Pause()
		s.setStatusLocked(StatusPaused)
		return nil
	default:
		return fmt.Errorf("pause while %s: %w", s.status, ErrInvalidInState)
	}
}

func (s *serviceImpl) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	switch s.status {
	case StatusPlaying:
		return nil
	case StatusPaused:
		s.player.Play()
		s.setStatusLocked(StatusPlaying)
		return nil
	default:
		return fmt.Errorf("resume while %s: %w", s.status, ErrInvalidInState)
	}
}

func (s *serviceImpl) Toggle() error {
	s.mu.Lock()
	st := s.status
	s.mu.Unlock()

	switch st {
	case StatusPlaying, StatusBuffering:
		return s.Pause()
	case StatusPaused:
		return s.Resume()
	default:
		return s.Play()
	}
}

func (s *serviceImpl) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.stopLocked()
	return nil
}

func (s *serviceImpl) Next() error {
	return s.skip(1)
}

func (s *serviceImpl) Previous() error {
	return s.skip(-1)
}

func (s *serviceImpl) skip(dir int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.queue.IsEmpty() {
		return ErrEmptyQueue
	}
	// Skipping while stopped just moves the cursor; skipping from an
	// errored state retries with the neighbouring track.
	autoplay := s.status.IsActive() || s.status == StatusErrored
	return s.advanceLocked(dir, autoplay)
}

func (s *serviceImpl) JumpTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if index < 0 || index >= s.queue.Len() {
		return fmt.Errorf("jump to %d: %w", index, ErrInvalidRange)
	}

	prev := s.queue.Current()
	prevIdx := s.queue.CurrentIndex()
	t, err := s.queue.JumpTo(index)
	if err != nil {
		s.hub.Publish(Message{Level: LevelError, Text: errmsg.Format(errmsg.OpQueueSave, err)})
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.hub.Publish(TrackChange{Previous: prev, Current: t, PreviousIndex: prevIdx, Index: index})
	s.publishQueueLocked()
	return s.startCurrentLocked(true)
}

func (s *serviceImpl) Seek(delta time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seekToLocked(s.position + delta)
}

func (s *serviceImpl) SeekTo(position time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seekToLocked(position)
}

func (s *serviceImpl) seekToLocked(pos time.Duration) error {
	if s.closed {
		return ErrClosed
	}
	switch s.status {
	case StatusPlaying, StatusPaused, StatusBuffering:
	default:
		return fmt.Errorf("seek while %s: %w", s.status, ErrInvalidInState)
	}
	if s.duration <= 0 {
		return fmt.Errorf("seek: track duration unknown: %w", ErrInvalidRange)
	}

	if pos < 0 {
		pos = 0
	}
	if pos > s.duration {
		pos = s.duration
	}
	s.player.SeekTo(pos)
	s.position = pos
	s.hub.Publish(PositionChange{Position: pos, Duration: s.duration})
	return nil
}

// --- volume control ---

func (s *serviceImpl) SetVolume(level float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	level = min(max(level, 0), 1)
	s.volume = level
	s.player.SetVolume(s.effectiveLevel())
	s.hub.Publish(VolumeChange{Level: level, Muted: s.muted})

	if err := s.store.SaveVolume(level, s.muted); err != nil {
		s.hub.Publish(Message{Level: LevelWarning, Text: errmsg.Format(errmsg.OpVolumeSet, err)})
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (s *serviceImpl) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *serviceImpl) ToggleMute() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.muted = !s.muted
	s.player.SetVolume(s.effectiveLevel())
	s.hub.Publish(VolumeChange{Level: s.volume, Muted: s.muted})

	if err := s.store.SaveVolume(s.volume, s.muted); err != nil {
		s.hub.Publish(Message{Level: LevelWarning, Text: errmsg.Format(errmsg.OpVolumeSet, err)})
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (s *serviceImpl) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// --- queue manipulation ---

func (s *serviceImpl) Append(tracks ...queue.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.queue.Append(tracks...); err != nil {
		s.hub.Publish(Message{Level: LevelError, Text: errmsg.Format(errmsg.OpQueueSave, err)})
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.publishQueueLocked()
	return nil
}

func (s *serviceImpl) Insert(at int, tracks ...queue.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.queue.Insert(at, tracks...); err != nil {
		s.hub.Publish(Message{Level: LevelError, Text: errmsg.Format(errmsg.OpQueueSave, err)})
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.publishQueueLocked()
	return nil
}

func (s *serviceImpl) Remove(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if index < 0 || index >= s.queue.Len() {
		return fmt.Errorf("remove %d: %w", index, ErrInvalidRange)
	}

	prev := s.queue.Current()
	prevIdx := s.queue.CurrentIndex()
	wasActive := s.status.IsActive()
	wasPlaying := s.status == StatusPlaying || s.status == StatusLoading || s.status == StatusBuffering

	res, err := s.queue.Remove(index)
	if err != nil {
		s.hub.Publish(Message{Level: LevelError, Text: errmsg.Format(errmsg.OpQueueSave, err)})
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.publishQueueLocked()

	switch res {
	case queue.RemovedLast:
		s.stopLocked()
		s.hub.Publish(TrackChange{Previous: prev, Current: nil, PreviousIndex: prevIdx, Index: -1})
	case queue.RemovedPlaying:
		s.hub.Publish(TrackChange{
			Previous:      prev,
			Current:       s.queue.Current(),
			PreviousIndex: prevIdx,
			Index:         s.queue.CurrentIndex(),
		})
		if wasActive {
			// Keep the play/pause disposition across the swap.
			return s.startCurrentLocked(wasPlaying)
		}
	}
	return nil
}

func (s *serviceImpl) Move(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if from < 0 || from >= s.queue.Len() || to < 0 || to >= s.queue.Len() {
		return fmt.Errorf("move %d to %d: %w", from, to, ErrInvalidRange)
	}
	if err := s.queue.Move(from, to); err != nil {
		s.hub.Publish(Message{Level: LevelError, Text: errmsg.Format(errmsg.OpQueueReorder, err)})
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.publishQueueLocked()
	return nil
}

func (s *serviceImpl) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.queue.Clear(); err != nil {
		s.hub.Publish(Message{Level: LevelError, Text: errmsg.Format(errmsg.OpQueueClear, err)})
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.stopLocked()
	s.publishQueueLocked()
	return nil
}

// --- mode control ---

func (s *serviceImpl) SetRepeat(mode queue.RepeatMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.queue.SetRepeat(mode); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.hub.Publish(ModeChange{Repeat: mode, Shuffle: s.queue.Shuffle()})
	return nil
}

func (s *serviceImpl) CycleRepeat() queue.RepeatMode {
	s.mu.Lock()
	var next queue.RepeatMode
	switch s.queue.Repeat() {
	case queue.RepeatOff:
		next = queue.RepeatAll
	case queue.RepeatAll:
		next = queue.RepeatOne
	default:
		next = queue.RepeatOff
	}
	s.mu.Unlock()
	_ = s.SetRepeat(next)
	return next
}

func (s *serviceImpl) Repeat() queue.RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Repeat()
}

func (s *serviceImpl) SetShuffle(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.queue.SetShuffle(enabled); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.hub.Publish(ModeChange{Repeat: s.queue.Repeat(), Shuffle: enabled})
	return nil
}

func (s *serviceImpl) ToggleShuffle() bool {
	s.mu.Lock()
	enabled := !s.queue.Shuffle()
	s.mu.Unlock()
	_ = s.SetShuffle(enabled)
	return enabled
}

func (s *serviceImpl) Shuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Shuffle()
}

// --- state queries ---

func (s *serviceImpl) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Status:   s.status,
		Track:    s.queue.Current(),
		Index:    s.queue.CurrentIndex(),
		Position: s.position,
		Duration: s.duration,
		Volume:   s.volume,
		Muted:    s.muted,
		Repeat:   s.queue.Repeat(),
		Shuffle:  s.queue.Shuffle(),
		Err:      s.lastErr,
	}
}

func (s *serviceImpl) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *serviceImpl) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *serviceImpl) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

func (s *serviceImpl) Buffered() int64 {
	return s.player.Buffered()
}

func (s *serviceImpl) CurrentTrack() *queue.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Current()
}

func (s *serviceImpl) QueueTracks() []queue.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Tracks()
}

func (s *serviceImpl) QueueIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.CurrentIndex()
}

func (s *serviceImpl) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

func (s *serviceImpl) HasNext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.HasNext()
}

// --- subscription and lifecycle ---

func (s *serviceImpl) Subscribe() *Subscription {
	return s.hub.Subscribe()
}

func (s *serviceImpl) Unsubscribe(sub *Subscription) {
	s.hub.Unsubscribe(sub)
}

func (s *serviceImpl) Notify(level MessageLevel, text string) {
	s.hub.Publish(Message{Level: level, Text: text})
}

func (s *serviceImpl) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.epoch++
	s.gen = 0
	close(s.done)
	s.mu.Unlock()

	s.hub.Close()
	return nil
}
