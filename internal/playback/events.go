package playback

import (
	"time"

	"github.com/llehouerou/hifi/internal/queue"
)

// Event is a playback notification. All event kinds flow through one
// channel per subscriber so every subscriber observes the same order.
// Every event carries the publish time in its At field, stamped by the
// hub.
type Event interface {
	event()
}

// StatusChange is emitted when the playback status changes.
type StatusChange struct {
	At       time.Time
	Previous Status
	Current  Status
}

// TrackChange is emitted when playback moves to a different track.
//
// Emitted by:
//   - Play: when starting a track after idle
//   - Next/Previous/JumpTo: when navigating
//   - end-of-stream auto-advance
//
// NOT emitted by pause, resume, or stop; those are status changes only.
type TrackChange struct {
	At            time.Time
	Previous      *queue.Track
	Current       *queue.Track
	PreviousIndex int
	Index         int
}

// QueueChange is emitted when the queue contents or cursor change.
type QueueChange struct {
	At     time.Time
	Tracks []queue.Track
	Index  int
}

// ModeChange is emitted when repeat or shuffle mode changes.
type ModeChange struct {
	At      time.Time
	Repeat  queue.RepeatMode
	Shuffle bool
}

// PositionChange is a periodic position tick or a seek landing. These are
// the only events a slow subscriber may lose; every other kind is
// delivered or the subscriber is disconnected.
type PositionChange struct {
	At       time.Time
	Position time.Duration
	Duration time.Duration
}

// VolumeChange is emitted when the output level or mute flag changes.
type VolumeChange struct {
	At    time.Time
	Level float64
	Muted bool
}

// MessageLevel classifies a user-facing message.
type MessageLevel int

const (
	LevelInfo MessageLevel = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// String returns the level name.
func (l MessageLevel) String() string {
	switch l {
	case LevelInfo:
		return "Info"
	case LevelSuccess:
		return "Success"
	case LevelWarning:
		return "Warning"
	case LevelError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Message is a user-facing notification, typically a failure the user
// should see regardless of which front-end they are looking at.
type Message struct {
	At    time.Time
	Level MessageLevel
	Text  string
}

// stamped returns a copy of e carrying the publish time.
func stamped(e Event, now time.Time) Event {
	switch ev := e.(type) {
	case StatusChange:
		ev.At = now
		return ev
	case TrackChange:
		ev.At = now
		return ev
	case QueueChange:
		ev.At = now
		return ev
	case ModeChange:
		ev.At = now
		return ev
	case PositionChange:
		ev.At = now
		return ev
	case VolumeChange:
		ev.At = now
		return ev
	case Message:
		ev.At = now
		return ev
	default:
		return e
	}
}

func (StatusChange) event()   {}
func (TrackChange) event()    {}
func (QueueChange) event()    {}
func (ModeChange) event()     {}
func (PositionChange) event() {}
func (VolumeChange) event()   {}
func (Message) event()        {}
