package playback

import "errors"

// Sentinel errors returned by Service operations. Callers match them with
// errors.Is; the wrapped message carries the detail.
var (
	// ErrEmptyQueue means the operation needs at least one queued track.
	ErrEmptyQueue = errors.New("queue is empty")

	// ErrInvalidInState means the operation is not valid in the current
	// playback status (e.g. seek while idle).
	ErrInvalidInState = errors.New("not valid in current state")

	// ErrInvalidRange means an index or position is out of bounds.
	ErrInvalidRange = errors.New("out of range")

	// ErrResolution means the catalog could not produce a playable
	// stream descriptor for the track.
	ErrResolution = errors.New("stream resolution failed")

	// ErrBackend means the audio engine rejected a load or reported a
	// decode failure.
	ErrBackend = errors.New("audio backend failed")

	// ErrPersistence means the session store rejected a write. The
	// in-memory change was rolled back.
	ErrPersistence = errors.New("persistence failed")

	// ErrClosed means the service has been shut down.
	ErrClosed = errors.New("playback service closed")
)
