package playback

import (
	"time"

	"github.com/llehouerou/hifi/internal/queue"
)

// Status represents the playback status.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusPlaying
	StatusPaused
	StatusBuffering
	StatusErrored
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusLoading:
		return "Loading"
	case StatusPlaying:
		return "Playing"
	case StatusPaused:
		return "Paused"
	case StatusBuffering:
		return "Buffering"
	case StatusErrored:
		return "Errored"
	default:
		return "Unknown"
	}
}

// IsActive returns true when a track is loaded or loading.
func (s Status) IsActive() bool {
	switch s {
	case StatusLoading, StatusPlaying, StatusPaused, StatusBuffering:
		return true
	default:
		return false
	}
}

// State is a point-in-time snapshot of the whole playback surface. New
// subscribers read one snapshot and then follow events.
type State struct {
	Status   Status
	Track    *queue.Track
	Index    int
	Position time.Duration
	Duration time.Duration
	Volume   float64
	Muted    bool
	Repeat   queue.RepeatMode
	Shuffle  bool
	Err      error
}
