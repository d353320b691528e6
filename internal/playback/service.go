package playback

import (
	"time"

	"github.com/llehouerou/hifi/internal/queue"
)

// Service defines the playback coordination contract. It is the single
// write path to the play queue and the audio backend; every front-end
// (terminal UI, web, MPRIS, RFID, GPIO) drives playback through it and
// observes it through Subscribe.
type Service interface {
	// Playback control
	Play() error
	PlayTracks(tracks []queue.Track) error // replace the queue and start at 0
	Pause() error
	Resume() error
	Toggle() error
	Stop() error
	Next() error
	Previous() error
	JumpTo(index int) error
	Seek(delta time.Duration) error
	SeekTo(position time.Duration) error

	// Volume control
	SetVolume(level float64) error
	Volume() float64
	ToggleMute() error
	Muted() bool

	// Queue manipulation
	Append(tracks ...queue.Track) error
	Insert(at int, tracks ...queue.Track) error
	Remove(index int) error
	Move(from, to int) error
	Clear() error

	// Mode control
	SetRepeat(mode queue.RepeatMode) error
	CycleRepeat() queue.RepeatMode
	Repeat() queue.RepeatMode
	SetShuffle(enabled bool) error
	ToggleShuffle() bool
	Shuffle() bool

	// State queries
	State() State
	Status() Status
	Position() time.Duration
	Duration() time.Duration
	Buffered() int64 // bytes of the current stream spooled locally
	CurrentTrack() *queue.Track
	QueueTracks() []queue.Track
	QueueIndex() int
	QueueLen() int
	HasNext() bool

	// Event subscription
	Subscribe() *Subscription
	Unsubscribe(sub *Subscription)

	// Notify publishes a user-facing message to every subscriber.
	Notify(level MessageLevel, text string)

	// Lifecycle
	Close() error
}
