package player

import "time"

// SignalKind tags a backend signal.
type SignalKind int

const (
	// SignalBuffering reports a buffering state change before or during play.
	SignalBuffering SignalKind = iota
	// SignalReady means decode started and audio is about to begin.
	SignalReady
	// SignalPosition is a periodic position tick (bounded rate).
	SignalPosition
	// SignalEndOfStream means the track played to completion.
	SignalEndOfStream
	// SignalError means the engine rejected the load or decoding failed.
	SignalError
)

// String returns the signal kind name.
func (k SignalKind) String() string {
	switch k {
	case SignalBuffering:
		return "Buffering"
	case SignalReady:
		return "Ready"
	case SignalPosition:
		return "Position"
	case SignalEndOfStream:
		return "EndOfStream"
	case SignalError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Signal is a backend-driven event. Gen identifies the load that produced
// it.
type Signal struct {
	Kind      SignalKind
	Gen       uint64
	Position  time.Duration // SignalPosition
	Buffering bool          // SignalBuffering
	Err       error         // SignalError
}
